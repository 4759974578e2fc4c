package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hwidlock/license-system/internal/core/domain"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	created := *user
	if created.Role == "" {
		created.Role = domain.RoleUser
	}
	err := r.db.QueryRowContext(ctx, query, created.Username, created.PasswordHash, string(created.Role)).
		Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		if _, ok := constraintViolation(err, uniqueViolation); ok {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &created, nil
}

// FindByUsername returns the user including its password hash.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`

	var (
		u    domain.User
		role string
	)
	err := r.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u.Role, err = domain.ParseRole(role); err != nil {
		return nil, fmt.Errorf("find user %d: %w", u.ID, err)
	}
	return &u, nil
}

// FindByID returns the user without its password hash.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `SELECT id, username, role, created_at FROM users WHERE id = $1`

	var (
		u    domain.User
		role string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u.Role, err = domain.ParseRole(role); err != nil {
		return nil, fmt.Errorf("find user %d: %w", u.ID, err)
	}
	return &u, nil
}

func (r *UserRepository) ListWithLicenses(ctx context.Context) ([]domain.UserWithLicense, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
		SELECT u.id, u.username, u.role, u.created_at,
		       l.id, l.license_key, l.hwid
		FROM users u
		LEFT JOIN licenses l ON l.user_id = u.id
		ORDER BY u.id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.UserWithLicense, 0)
	for rows.Next() {
		var (
			u          domain.UserWithLicense
			role       string
			licenseID  sql.NullInt64
			licenseKey sql.NullString
			hwid       sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Username, &role, &u.CreatedAt, &licenseID, &licenseKey, &hwid); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if u.Role, err = domain.ParseRole(role); err != nil {
			return nil, fmt.Errorf("scan user %d: %w", u.ID, err)
		}
		if licenseID.Valid {
			u.License = &domain.LicenseSummary{
				ID:         licenseID.Int64,
				LicenseKey: licenseKey.String,
				HWID:       nullableString(hwid),
			}
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
