package ports

import (
	"context"

	"github.com/hwidlock/license-system/internal/core/domain"
)

// UserFinder resolves an authenticated identity back to a stored user.
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

// UserRepository defines the interface for user credential persistence.
type UserRepository interface {
	UserFinder
	// FindByUsername returns the user including its password hash.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// ListWithLicenses returns every user joined with its license, ordered by id.
	ListWithLicenses(ctx context.Context) ([]domain.UserWithLicense, error)
}
