package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hwidlock/license-system/internal/core/domain"
)

const collectionLicenseEvents = "license_events"

// AuditRepository writes license events to the license_events collection.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionLicenseEvents)}
}

type licenseEventDoc struct {
	Type       string    `bson:"type"`
	LicenseID  int64     `bson:"license_id"`
	LicenseKey string    `bson:"license_key"`
	UserID     int64     `bson:"user_id"`
	HWID       string    `bson:"hwid,omitempty"`
	OccurredAt time.Time `bson:"occurred_at"`
	RecordedAt time.Time `bson:"recorded_at"`
}

func toEventDoc(e *domain.LicenseEvent, now time.Time) licenseEventDoc {
	return licenseEventDoc{
		Type:       string(e.Type),
		LicenseID:  e.LicenseID,
		LicenseKey: e.LicenseKey,
		UserID:     e.UserID,
		HWID:       e.HWID,
		OccurredAt: e.OccurredAt.UTC(),
		RecordedAt: now.UTC(),
	}
}

// InsertEvent persists a single license event.
func (r *AuditRepository) InsertEvent(ctx context.Context, event *domain.LicenseEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toEventDoc(event, time.Now())); err != nil {
		return fmt.Errorf("insert license event: %w", err)
	}
	return nil
}

// EnsureIndexes creates the lookup indexes on the license_events collection.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "license_key", Value: 1}, {Key: "occurred_at", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "hwid", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
