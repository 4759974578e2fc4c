package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/hwidlock/license-system/docs"
	"github.com/hwidlock/license-system/internal/api/handler"
	"github.com/hwidlock/license-system/internal/api/metrics"
	"github.com/hwidlock/license-system/internal/api/middleware"
	"github.com/hwidlock/license-system/internal/core/domain"
	"github.com/hwidlock/license-system/internal/core/ports"
	"github.com/hwidlock/license-system/internal/pkg/config"
)

// Dependencies groups everything the router wires into handlers.
type Dependencies struct {
	Config   *config.Config
	Log      zerolog.Logger
	Users    ports.UserFinder
	Auth     ports.AuthService
	Licenses ports.LicenseService
	Admin    ports.AdminService
	// RateLimitStore backs the validate limiter. Nil selects an in-memory store.
	RateLimitStore echomiddleware.RateLimiterStore
	HealthChecks   map[string]handler.HealthCheck
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	cfg := deps.Config

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: splitOrigins(cfg.CORSOrigin),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	licenseHandler := handler.NewLicenseHandler(deps.Licenses)
	adminHandler := handler.NewAdminHandler(deps.Admin)
	healthHandler := handler.NewHealthHandler(deps.HealthChecks)

	authMiddleware := middleware.Auth(cfg.JWTSecret, deps.Users)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	store := deps.RateLimitStore
	if store == nil {
		store = middleware.NewMemoryStore(cfg.RateLimit.ValidateLimit, cfg.RateLimit.ValidateWindow)
	}
	validateLimiter := middleware.RateLimit(store, metrics.ValidationsRateLimitedTotal.Inc)

	base := e.Group("/api")
	base.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "License Key API Running")
	})

	// --- Auth routes ---
	auth := base.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// --- License routes ---
	license := base.Group("/license")
	license.GET("/me", licenseHandler.Me, authMiddleware)
	license.POST("/bind", licenseHandler.Bind, authMiddleware)
	license.POST("/validate", licenseHandler.Validate, validateLimiter)
	license.POST("/generate", licenseHandler.Generate, authMiddleware, adminOnly)
	license.DELETE("/revoke/:id", licenseHandler.Revoke, authMiddleware, adminOnly)

	// --- Admin routes ---
	admin := base.Group("/admin", authMiddleware, adminOnly)
	admin.GET("/users", adminHandler.ListUsers)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
