package ports

import (
	"context"

	"github.com/hwidlock/license-system/internal/core/domain"
)

// LicenseRepository defines persistence operations for licenses.
type LicenseRepository interface {
	// Create inserts a new unbound license and fills in ID and timestamps.
	// Returns domain.ErrAlreadyLicensed when the owner already has a license and
	// domain.ErrDuplicateLicenseKey when the key collides.
	Create(ctx context.Context, license *domain.License) error
	FindByUserID(ctx context.Context, userID int64) (*domain.License, error)
	// FindByHWID returns the lowest-id license bound to hwid.
	FindByHWID(ctx context.Context, hwid string) (*domain.License, error)
	// BindHWID sets hwid on the owner's license only if it is still unbound.
	// It reports false when no row was updated.
	BindHWID(ctx context.Context, userID int64, hwid string) (bool, error)
	// Delete removes the license and returns the deleted row.
	Delete(ctx context.Context, id int64) (*domain.License, error)
}
