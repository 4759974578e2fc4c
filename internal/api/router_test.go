package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwidlock/license-system/internal/api/handler"
	"github.com/hwidlock/license-system/internal/core/domain"
	"github.com/hwidlock/license-system/internal/pkg/config"
)

const testSecret = "router-secret"

type fakeUsers map[int64]*domain.User

func (f fakeUsers) FindByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

type fakeAuth struct{}

func (fakeAuth) Register(_ context.Context, username, _ string) (*domain.User, error) {
	if username == "taken" {
		return nil, domain.ErrUserExists
	}
	return &domain.User{ID: 10, Username: username, Role: domain.RoleUser}, nil
}

func (fakeAuth) Login(context.Context, string, string) (string, *domain.User, error) {
	return "", nil, domain.ErrInvalidCredentials
}

type fakeLicenses struct {
	bound map[string]domain.ValidationResult
}

func (f *fakeLicenses) MyLicense(_ context.Context, ownerID int64) (*domain.License, error) {
	if ownerID == 2 {
		return &domain.License{ID: 1, UserID: 2, LicenseKey: "KEY-2"}, nil
	}
	return nil, domain.ErrLicenseNotFound
}

func (f *fakeLicenses) Bind(_ context.Context, _ int64, hwid string) error {
	if strings.TrimSpace(hwid) == "" {
		return domain.ErrInvalidHWID
	}
	return fmt.Errorf("bind hwid: %w", domain.ErrAlreadyBound)
}

func (f *fakeLicenses) Validate(_ context.Context, hwid string) (domain.ValidationResult, error) {
	return f.bound[hwid], nil
}

func (f *fakeLicenses) Issue(_ context.Context, targetUserID int64) (*domain.License, error) {
	if targetUserID == 404 {
		return nil, fmt.Errorf("issue license: %w", domain.ErrUserNotFound)
	}
	return &domain.License{ID: 5, UserID: targetUserID, LicenseKey: "NEW"}, nil
}

func (f *fakeLicenses) Revoke(_ context.Context, id int64) error {
	if id == 5 {
		return nil
	}
	return fmt.Errorf("revoke license: %w", domain.ErrLicenseNotFound)
}

type fakeAdmin struct{}

func (fakeAdmin) ListUsers(context.Context) ([]domain.UserWithLicense, error) {
	return []domain.UserWithLicense{{ID: 1, Username: "root", Role: domain.RoleAdmin}}, nil
}

func newTestRouter(t *testing.T, limit int) *echo.Echo {
	t.Helper()
	return NewRouter(Dependencies{
		Config: &config.Config{
			JWTSecret:  testSecret,
			CORSOrigin: "*",
			RateLimit: config.RateLimitConfig{
				ValidateLimit:  limit,
				ValidateWindow: time.Minute,
			},
		},
		Log: zerolog.Nop(),
		Users: fakeUsers{
			1: {ID: 1, Username: "root", Role: domain.RoleAdmin},
			2: {ID: 2, Username: "alice", Role: domain.RoleUser},
		},
		Auth:     fakeAuth{},
		Licenses: &fakeLicenses{bound: map[string]domain.ValidationResult{"HW-1": {IsValid: true, LicenseKey: "KEY-2", OwnerID: 2}}},
		Admin:    fakeAdmin{},
		HealthChecks: map[string]handler.HealthCheck{
			"postgres": func(context.Context) error { return nil },
		},
	})
}

func bearer(t *testing.T, userID int64) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func do(e *echo.Echo, method, path, body, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = "192.0.2.1:5000"
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestRouter_Banner(t *testing.T) {
	e := newTestRouter(t, 10)
	rec := do(e, http.MethodGet, "/api", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "License Key API Running", rec.Body.String())
}

func TestRouter_AuthenticationBeforeAuthorization(t *testing.T) {
	e := newTestRouter(t, 10)

	rec := do(e, http.MethodPost, "/api/license/generate", `{"userId":2}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/api/license/generate", `{"userId":2}`, bearer(t, 2))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodPost, "/api/license/generate", `{"userId":2}`, bearer(t, 1))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRouter_TokenForDeletedUser(t *testing.T) {
	e := newTestRouter(t, 10)
	rec := do(e, http.MethodGet, "/api/license/me", "", bearer(t, 99))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_LicenseMe(t *testing.T) {
	e := newTestRouter(t, 10)

	rec := do(e, http.MethodGet, "/api/license/me", "", bearer(t, 2))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"license_key":"KEY-2"`)

	rec = do(e, http.MethodGet, "/api/license/me", "", bearer(t, 1))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "license not found", errorBody(t, rec))
}

func TestRouter_BindErrors(t *testing.T) {
	e := newTestRouter(t, 10)

	rec := do(e, http.MethodPost, "/api/license/bind", `{"hwid":"   "}`, bearer(t, 2))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "valid hwid is required", errorBody(t, rec))

	rec = do(e, http.MethodPost, "/api/license/bind", `{"hwid":"HW-2"}`, bearer(t, 2))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "hwid already bound to this license", errorBody(t, rec))
}

func TestRouter_ValidateIsPublic(t *testing.T) {
	e := newTestRouter(t, 10)

	rec := do(e, http.MethodPost, "/api/license/validate", `{"hwid":"HW-1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["isValid"])
	assert.Equal(t, "KEY-2", resp["licenseKey"])
	assert.Equal(t, float64(2), resp["userId"])
}

func TestRouter_ValidateRateLimited(t *testing.T) {
	e := newTestRouter(t, 2)

	for i := 0; i < 2; i++ {
		rec := do(e, http.MethodPost, "/api/license/validate", `{"hwid":"HW-1"}`, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(e, http.MethodPost, "/api/license/validate", `{"hwid":"HW-1"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRouter_AdminRoutes(t *testing.T) {
	e := newTestRouter(t, 10)

	rec := do(e, http.MethodGet, "/api/admin/users", "", bearer(t, 2))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodGet, "/api/admin/users", "", bearer(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"root"`)

	rec = do(e, http.MethodDelete, "/api/license/revoke/5", "", bearer(t, 1))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodDelete, "/api/license/revoke/6", "", bearer(t, 1))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodDelete, "/api/license/revoke/abc", "", bearer(t, 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid license id", errorBody(t, rec))

	rec = do(e, http.MethodPost, "/api/license/generate", `{"userId":404}`, bearer(t, 1))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user not found", errorBody(t, rec))
}

func TestRouter_AuthRoutes(t *testing.T) {
	e := newTestRouter(t, 10)

	rec := do(e, http.MethodPost, "/api/auth/register", `{"username":"taken","password":"secret1"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPost, "/api/auth/register", `{"username":"bob","password":"secret1"}`, "")
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(e, http.MethodPost, "/api/auth/login", `{"username":"bob","password":"secret1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", errorBody(t, rec))
}

func TestRouter_Health(t *testing.T) {
	e := newTestRouter(t, 10)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/health/ready", "", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/metrics", "", "").Code)
}

func TestResolveError(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{fmt.Errorf("bind hwid: %w", domain.ErrAlreadyBound), http.StatusBadRequest, "hwid already bound to this license"},
		{fmt.Errorf("issue license: %w", domain.ErrAlreadyLicensed), http.StatusBadRequest, "user already has a license"},
		{domain.ErrHWIDInUse, http.StatusBadRequest, "hwid already bound to another license"},
		{fmt.Errorf("%w: invalid license id", domain.ErrInvalidInput), http.StatusBadRequest, "invalid license id"},
		{domain.ErrInvalidInput, http.StatusBadRequest, "invalid input"},
		{domain.ErrUserExists, http.StatusConflict, "user already exists"},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("revoke license: %w", domain.ErrLicenseNotFound), http.StatusNotFound, "license not found"},
		{echo.NewHTTPError(http.StatusTeapot, "short and stout"), http.StatusTeapot, "short and stout"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		code, msg := resolveError(tc.err, zerolog.Nop(), c)
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.Equal(t, tc.msg, msg, tc.err.Error())
	}
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, splitOrigins(""))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, splitOrigins("https://a.example, https://b.example"))
}
