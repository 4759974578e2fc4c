package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, "*", cfg.CORSOrigin)
	assert.Equal(t, 60, cfg.RateLimit.ValidateLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.ValidateWindow)
	assert.Equal(t, 4, cfg.Audit.Workers)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Mongo.URI)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFrom_MissingSecret(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	assert.Error(t, err)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":          "s3cret",
		"JWT_EXPIRES_IN":      "2h",
		"ENV":                 "production",
		"REDIS_ADDR":          "redis:6379",
		"MONGO_URI":           "mongodb://mongo:27017",
		"VALIDATE_RATE_LIMIT": "5",
	}))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.JWTExpiresIn)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Mongo.URI)
	assert.Equal(t, 5, cfg.RateLimit.ValidateLimit)
}

func TestLoadFrom_RejectsNonPositiveLimit(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":          "s3cret",
		"VALIDATE_RATE_LIMIT": "0",
	}))
	assert.Error(t, err)
}

func TestLoadFrom_RejectsNonPositiveWindow(t *testing.T) {
	for _, window := range []string{"0s", "-1m"} {
		_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
			"JWT_SECRET":           "s3cret",
			"VALIDATE_RATE_WINDOW": window,
		}))
		assert.Error(t, err, window)
	}
}
