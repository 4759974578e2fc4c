package service

import (
	"context"
	"fmt"

	"github.com/hwidlock/license-system/internal/core/domain"
	"github.com/hwidlock/license-system/internal/core/ports"
)

type AdminService struct {
	users ports.UserRepository
}

func NewAdminService(users ports.UserRepository) *AdminService {
	return &AdminService{users: users}
}

// ListUsers returns all users with their license, ordered by id.
func (s *AdminService) ListUsers(ctx context.Context) ([]domain.UserWithLicense, error) {
	users, err := s.users.ListWithLicenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []domain.UserWithLicense{}
	}
	return users, nil
}
