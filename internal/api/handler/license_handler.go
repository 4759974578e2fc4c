package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hwidlock/license-system/internal/api/metrics"
	"github.com/hwidlock/license-system/internal/core/domain"
	"github.com/hwidlock/license-system/internal/core/ports"
)

// LicenseHandler exposes the license lifecycle over HTTP.
type LicenseHandler struct {
	licenses ports.LicenseService
}

func NewLicenseHandler(licenses ports.LicenseService) *LicenseHandler {
	return &LicenseHandler{licenses: licenses}
}

// Me returns the caller's license.
//
// @Summary      Get my license
// @Tags         license
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.License
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /license/me [get]
func (h *LicenseHandler) Me(c echo.Context) error {
	userID, _, err := ctxUser(c)
	if err != nil {
		return err
	}

	license, err := h.licenses.MyLicense(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, license)
}

// Bind attaches a hardware id to the caller's license. Binding is one-shot.
//
// @Summary      Bind HWID
// @Tags         license
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      hwidRequest  true  "Hardware id"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /license/bind [post]
func (h *LicenseHandler) Bind(c echo.Context) error {
	userID, _, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req hwidRequest
	if err := c.Bind(&req); err != nil {
		metrics.BindAttemptsTotal.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	err = h.licenses.Bind(c.Request().Context(), userID, req.HWID)
	metrics.BindAttemptsTotal.WithLabelValues(bindResult(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "HWID bound successfully"})
}

// Validate reports whether a hardware id is bound to a license. No
// authentication is required.
//
// @Summary      Validate HWID
// @Tags         license
// @Accept       json
// @Produce      json
// @Param        body  body      hwidRequest  true  "Hardware id"
// @Success      200   {object}  validateResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      429   {object}  ErrorResponse
// @Router       /license/validate [post]
func (h *LicenseHandler) Validate(c echo.Context) error {
	var req hwidRequest
	if err := c.Bind(&req); err != nil {
		metrics.ValidationsTotal.WithLabelValues("bad_request").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	result, err := h.licenses.Validate(c.Request().Context(), req.HWID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidHWID) {
			metrics.ValidationsTotal.WithLabelValues("bad_request").Inc()
		} else {
			metrics.ValidationsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	if result.IsValid {
		metrics.ValidationsTotal.WithLabelValues("valid").Inc()
	} else {
		metrics.ValidationsTotal.WithLabelValues("invalid").Inc()
	}
	return c.JSON(http.StatusOK, validateResponse{
		IsValid:    result.IsValid,
		LicenseKey: result.LicenseKey,
		UserID:     result.OwnerID,
	})
}

// Generate issues a license for a user. Admin only.
//
// @Summary      Generate license
// @Tags         license
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      generateRequest  true  "Target user"
// @Success      201   {object}  generateResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /license/generate [post]
func (h *LicenseHandler) Generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	license, err := h.licenses.Issue(c.Request().Context(), req.UserID)
	if err != nil {
		return err
	}

	metrics.LicensesIssuedTotal.Inc()
	return c.JSON(http.StatusCreated, generateResponse{
		Message:    "License generated successfully",
		LicenseID:  license.ID,
		LicenseKey: license.LicenseKey,
	})
}

// Revoke deletes a license by id. Admin only.
//
// @Summary      Revoke license
// @Tags         license
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "License ID"
// @Success      200  {object}  messageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /license/revoke/{id} [delete]
func (h *LicenseHandler) Revoke(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid license id")
	}

	if err := h.licenses.Revoke(c.Request().Context(), id); err != nil {
		if errors.Is(err, domain.ErrLicenseNotFound) {
			metrics.LicensesRevokedTotal.WithLabelValues("not_found").Inc()
		} else {
			metrics.LicensesRevokedTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.LicensesRevokedTotal.WithLabelValues("revoked").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "License revoked successfully"})
}

func bindResult(err error) string {
	switch {
	case err == nil:
		return "bound"
	case errors.Is(err, domain.ErrAlreadyBound):
		return "already_bound"
	case errors.Is(err, domain.ErrLicenseNotFound):
		return "no_license"
	case errors.Is(err, domain.ErrHWIDInUse):
		return "hwid_in_use"
	case errors.Is(err, domain.ErrInvalidHWID):
		return "invalid"
	default:
		return "error"
	}
}
