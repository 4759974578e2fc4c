package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hwidlock/license-system/internal/core/domain"
	"github.com/hwidlock/license-system/internal/core/ports"
)

const (
	licenseKeySegments = 5
	maxKeyAttempts     = 3
)

// KeyGenerator produces license keys.
type KeyGenerator func() string

type LicenseService struct {
	licenses ports.LicenseRepository
	users    ports.UserFinder
	audit    ports.AuditLog
	newKey   KeyGenerator
	log      zerolog.Logger
}

// NewLicenseService returns a LicenseService. A nil audit log disables the audit trail.
func NewLicenseService(licenses ports.LicenseRepository, users ports.UserFinder, audit ports.AuditLog, log zerolog.Logger) *LicenseService {
	if audit == nil {
		audit = nopAudit{}
	}
	return &LicenseService{
		licenses: licenses,
		users:    users,
		audit:    audit,
		newKey:   GenerateLicenseKey,
		log:      log,
	}
}

// WithKeyGenerator replaces the license key source.
func (s *LicenseService) WithKeyGenerator(gen KeyGenerator) *LicenseService {
	s.newKey = gen
	return s
}

// MyLicense returns the license owned by ownerID.
func (s *LicenseService) MyLicense(ctx context.Context, ownerID int64) (*domain.License, error) {
	return s.licenses.FindByUserID(ctx, ownerID)
}

// Bind attaches hwid to the owner's license. The existence and bound checks
// only select the error to report; the conditional update decides the winner.
func (s *LicenseService) Bind(ctx context.Context, ownerID int64, hwid string) error {
	hwid = strings.TrimSpace(hwid)
	if hwid == "" || strings.IndexByte(hwid, 0) >= 0 {
		return domain.ErrInvalidHWID
	}

	license, err := s.licenses.FindByUserID(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("bind hwid: %w", err)
	}
	if license.IsBound() {
		return fmt.Errorf("bind hwid: %w", domain.ErrAlreadyBound)
	}

	bound, err := s.licenses.BindHWID(ctx, ownerID, hwid)
	if err != nil {
		return fmt.Errorf("bind hwid: %w", err)
	}
	if !bound {
		s.log.Warn().Int64("user_id", ownerID).Int64("license_id", license.ID).Msg("lost concurrent hwid bind")
		return fmt.Errorf("bind hwid: %w", domain.ErrAlreadyBound)
	}

	s.audit.Record(domain.LicenseEvent{
		Type:       domain.EventLicenseBound,
		LicenseID:  license.ID,
		LicenseKey: license.LicenseKey,
		UserID:     ownerID,
		HWID:       hwid,
		OccurredAt: time.Now().UTC(),
	})
	s.log.Info().Int64("user_id", ownerID).Int64("license_id", license.ID).Msg("hwid bound")
	return nil
}

// Validate reports whether hwid is bound to a license. The value is matched
// exactly as presented.
func (s *LicenseService) Validate(ctx context.Context, hwid string) (domain.ValidationResult, error) {
	if strings.TrimSpace(hwid) == "" {
		return domain.ValidationResult{}, domain.ErrInvalidHWID
	}
	// NUL can never be stored, so it can never match.
	if strings.IndexByte(hwid, 0) >= 0 {
		return domain.ValidationResult{IsValid: false}, nil
	}

	license, err := s.licenses.FindByHWID(ctx, hwid)
	if err != nil {
		if errors.Is(err, domain.ErrLicenseNotFound) {
			return domain.ValidationResult{IsValid: false}, nil
		}
		return domain.ValidationResult{}, fmt.Errorf("validate hwid: %w", err)
	}

	return domain.ValidationResult{
		IsValid:    true,
		LicenseKey: license.LicenseKey,
		OwnerID:    license.UserID,
	}, nil
}

// Issue creates an unbound license for targetUserID.
func (s *LicenseService) Issue(ctx context.Context, targetUserID int64) (*domain.License, error) {
	if targetUserID <= 0 {
		return nil, fmt.Errorf("%w: valid user id is required", domain.ErrInvalidInput)
	}

	if _, err := s.users.FindByID(ctx, targetUserID); err != nil {
		return nil, fmt.Errorf("issue license: %w", err)
	}

	if _, err := s.licenses.FindByUserID(ctx, targetUserID); err == nil {
		return nil, fmt.Errorf("issue license: %w", domain.ErrAlreadyLicensed)
	} else if !errors.Is(err, domain.ErrLicenseNotFound) {
		return nil, fmt.Errorf("issue license: %w", err)
	}

	var (
		license *domain.License
		err     error
	)
	for attempt := 1; attempt <= maxKeyAttempts; attempt++ {
		license = &domain.License{UserID: targetUserID, LicenseKey: s.newKey()}
		err = s.licenses.Create(ctx, license)
		if !errors.Is(err, domain.ErrDuplicateLicenseKey) {
			break
		}
		s.log.Warn().Int("attempt", attempt).Msg("license key collision, regenerating")
	}
	if err != nil {
		return nil, fmt.Errorf("issue license: %w", err)
	}

	s.audit.Record(domain.LicenseEvent{
		Type:       domain.EventLicenseIssued,
		LicenseID:  license.ID,
		LicenseKey: license.LicenseKey,
		UserID:     targetUserID,
		OccurredAt: time.Now().UTC(),
	})
	s.log.Info().Int64("user_id", targetUserID).Int64("license_id", license.ID).Msg("license issued")
	return license, nil
}

// Revoke deletes a license. Revoking a missing license returns ErrLicenseNotFound.
func (s *LicenseService) Revoke(ctx context.Context, licenseID int64) error {
	if licenseID <= 0 {
		return fmt.Errorf("%w: invalid license id", domain.ErrInvalidInput)
	}

	deleted, err := s.licenses.Delete(ctx, licenseID)
	if err != nil {
		return fmt.Errorf("revoke license: %w", err)
	}

	event := domain.LicenseEvent{
		Type:       domain.EventLicenseRevoked,
		LicenseID:  deleted.ID,
		LicenseKey: deleted.LicenseKey,
		UserID:     deleted.UserID,
		OccurredAt: time.Now().UTC(),
	}
	if deleted.HWID != nil {
		event.HWID = *deleted.HWID
	}
	s.audit.Record(event)
	s.log.Info().Int64("license_id", licenseID).Int64("user_id", deleted.UserID).Msg("license revoked")
	return nil
}

// GenerateLicenseKey returns five upper-case groups of eight hex characters,
// each taken from the first segment of a random UUID.
func GenerateLicenseKey() string {
	segments := make([]string, licenseKeySegments)
	for i := range segments {
		id := uuid.NewString()
		segments[i] = strings.ToUpper(id[:strings.IndexByte(id, '-')])
	}
	return strings.Join(segments, "-")
}

type nopAudit struct{}

func (nopAudit) Record(domain.LicenseEvent) {}
