package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hwidlock/license-system/internal/api/middleware"
	"github.com/hwidlock/license-system/internal/core/domain"
)

// ctxUser extracts the identity injected by the Auth middleware. A missing
// id or role means the middleware did not run and the request is rejected.
func ctxUser(c echo.Context) (userID int64, role domain.Role, err error) {
	userID, _ = c.Get(middleware.ContextKeyUserID).(int64)
	role, _ = c.Get(middleware.ContextKeyRole).(domain.Role)
	if userID <= 0 || !role.Valid() {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return userID, role, nil
}
