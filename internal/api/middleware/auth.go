package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/hwidlock/license-system/internal/core/domain"
	"github.com/hwidlock/license-system/internal/core/ports"
)

// Context keys populated by Auth.
const (
	ContextKeyUserID   = "user_id"
	ContextKeyRole     = "role"
	ContextKeyUsername = "username"
)

// Auth validates the bearer JWT, resolves its subject against the user store
// and injects the identity into the context. Any failure stops the chain with 401.
func Auth(jwtSecret string, users ports.UserFinder) echo.MiddlewareFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authorized, no token")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := parser.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authorized, token failed")
			}

			userID, ok := claimUserID(claims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authorized, token failed")
			}

			user, err := users.FindByID(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "not authorized, user not found")
				}
				return err
			}

			c.Set(ContextKeyUserID, user.ID)
			c.Set(ContextKeyRole, user.Role)
			c.Set(ContextKeyUsername, user.Username)

			return next(c)
		}
	}
}

// claimUserID reads the numeric "id" claim. JSON numbers decode as float64.
func claimUserID(claims jwt.MapClaims) (int64, bool) {
	raw, ok := claims["id"].(float64)
	if !ok || raw <= 0 || raw != float64(int64(raw)) {
		return 0, false
	}
	return int64(raw), true
}
