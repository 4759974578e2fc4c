package ports

import (
	"context"

	"github.com/hwidlock/license-system/internal/core/domain"
)

// AuditLog accepts license events for the audit trail. Implementations must
// not block the caller on slow storage.
type AuditLog interface {
	Record(event domain.LicenseEvent)
}

// AuditRepository persists audit events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.LicenseEvent) error
}
