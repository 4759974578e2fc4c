package domain

import (
	"errors"
	"time"
)

var (
	ErrLicenseNotFound     = errors.New("license not found")
	ErrAlreadyBound        = errors.New("hwid already bound to this license")
	ErrAlreadyLicensed     = errors.New("user already has a license")
	ErrHWIDInUse           = errors.New("hwid already bound to another license")
	ErrInvalidHWID         = errors.New("valid hwid is required")
	ErrDuplicateLicenseKey = errors.New("license key already exists")
)

// License is a per-user license key, optionally bound to one hardware id.
// HWID is nil until the first successful bind and never changes afterwards.
type License struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	LicenseKey string    `json:"license_key"`
	HWID       *string   `json:"hwid"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsBound reports whether a hardware id has been attached.
func (l *License) IsBound() bool {
	return l.HWID != nil
}

// LicenseSummary is the license view embedded in the admin user listing.
type LicenseSummary struct {
	ID         int64   `json:"id"`
	LicenseKey string  `json:"license_key"`
	HWID       *string `json:"hwid"`
}

// ValidationResult is the verdict returned for a presented hardware id.
type ValidationResult struct {
	IsValid    bool
	LicenseKey string
	OwnerID    int64
}

// EventType names an entry in the license audit trail.
type EventType string

const (
	EventLicenseIssued  EventType = "license.issued"
	EventLicenseBound   EventType = "license.bound"
	EventLicenseRevoked EventType = "license.revoked"
)

// LicenseEvent is a single audit record of a license mutation.
type LicenseEvent struct {
	Type       EventType
	LicenseID  int64
	LicenseKey string
	UserID     int64
	HWID       string
	OccurredAt time.Time
}
