package ports

import (
	"context"

	"github.com/hwidlock/license-system/internal/core/domain"
)

// LicenseService defines the license lifecycle use cases.
type LicenseService interface {
	MyLicense(ctx context.Context, ownerID int64) (*domain.License, error)
	Bind(ctx context.Context, ownerID int64, hwid string) error
	Validate(ctx context.Context, hwid string) (domain.ValidationResult, error)
	Issue(ctx context.Context, targetUserID int64) (*domain.License, error)
	Revoke(ctx context.Context, licenseID int64) error
}

// AdminService defines cross-user administrative queries.
type AdminService interface {
	ListUsers(ctx context.Context) ([]domain.UserWithLicense, error)
}
