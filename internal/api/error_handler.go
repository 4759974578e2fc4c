package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hwidlock/license-system/internal/api/handler"
	"github.com/hwidlock/license-system/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, handler.ErrorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidHWID):
		return http.StatusBadRequest, domain.ErrInvalidHWID.Error()
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrAlreadyBound),
		errors.Is(err, domain.ErrAlreadyLicensed),
		errors.Is(err, domain.ErrHWIDInUse):
		return http.StatusBadRequest, userMessage(err)
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "user already exists"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "not authorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrLicenseNotFound):
		return http.StatusNotFound, "license not found"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

// userMessage strips the operation prefixes added while the error travelled
// up from the service, leaving the innermost domain message.
func userMessage(err error) string {
	for _, target := range []error{
		domain.ErrAlreadyBound,
		domain.ErrAlreadyLicensed,
		domain.ErrHWIDInUse,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	// ErrInvalidInput is wrapped as "<sentinel>: <detail>".
	if _, detail, ok := strings.Cut(err.Error(), domain.ErrInvalidInput.Error()+": "); ok {
		return detail
	}
	return domain.ErrInvalidInput.Error()
}
