package handler

import "github.com/hwidlock/license-system/internal/core/domain"

// ErrorResponse is the error envelope returned on every 4xx/5xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

type userResponse struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// --- License ---

type hwidRequest struct {
	HWID string `json:"hwid"`
}

type validateResponse struct {
	IsValid    bool   `json:"isValid"`
	LicenseKey string `json:"licenseKey,omitempty"`
	UserID     int64  `json:"userId,omitempty"`
}

type generateRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
}

type generateResponse struct {
	Message    string `json:"message"`
	LicenseID  int64  `json:"licenseId"`
	LicenseKey string `json:"licenseKey"`
}

// --- Health ---

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}
