package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hwidlock/license-system/internal/core/domain"
)

const (
	constraintLicenseKey  = "licenses_license_key_key"
	constraintLicenseHWID = "licenses_hwid_key"
	constraintLicenseUser = "licenses_user_id_key"

	licenseColumns = `id, user_id, license_key, hwid, created_at, updated_at`
)

type LicenseRepository struct {
	db DBTX
}

func NewLicenseRepository(db DBTX) *LicenseRepository {
	return &LicenseRepository{db: db}
}

// Create inserts an unbound license and fills in its id and timestamps.
func (r *LicenseRepository) Create(ctx context.Context, license *domain.License) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO licenses (user_id, license_key)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, license.UserID, license.LicenseKey).
		Scan(&license.ID, &license.CreatedAt, &license.UpdatedAt)
	if err != nil {
		if constraint, ok := constraintViolation(err, uniqueViolation); ok {
			switch constraint {
			case constraintLicenseKey:
				return domain.ErrDuplicateLicenseKey
			case constraintLicenseUser:
				return domain.ErrAlreadyLicensed
			}
		}
		if _, ok := constraintViolation(err, fkViolation); ok {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("insert license: %w", err)
	}
	license.HWID = nil
	return nil
}

func (r *LicenseRepository) FindByUserID(ctx context.Context, userID int64) (*domain.License, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE user_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID))
}

// FindByHWID returns the lowest-id license whose hwid equals hwid exactly.
func (r *LicenseRepository) FindByHWID(ctx context.Context, hwid string) (*domain.License, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE hwid = $1 ORDER BY id LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, hwid))
}

// BindHWID is the single conditional write that decides a bind race.
func (r *LicenseRepository) BindHWID(ctx context.Context, userID int64, hwid string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
		UPDATE licenses
		SET hwid = $1, updated_at = now()
		WHERE user_id = $2 AND hwid IS NULL`

	res, err := r.db.ExecContext(ctx, query, hwid, userID)
	if err != nil {
		if constraint, ok := constraintViolation(err, uniqueViolation); ok && constraint == constraintLicenseHWID {
			return false, domain.ErrHWIDInUse
		}
		return false, fmt.Errorf("bind hwid: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("bind hwid: rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *LicenseRepository) Delete(ctx context.Context, id int64) (*domain.License, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `DELETE FROM licenses WHERE id = $1 RETURNING ` + licenseColumns
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *LicenseRepository) scanOne(row *sql.Row) (*domain.License, error) {
	var (
		l    domain.License
		hwid sql.NullString
	)
	if err := row.Scan(&l.ID, &l.UserID, &l.LicenseKey, &hwid, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLicenseNotFound
		}
		return nil, fmt.Errorf("scan license: %w", err)
	}
	l.HWID = nullableString(hwid)
	return &l, nil
}
