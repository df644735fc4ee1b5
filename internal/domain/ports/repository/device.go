package repository

import (
	"context"

	"referral-service/internal/domain/model"
)

// DeviceRepository persists canonical device identities. Devices are only
// ever upserted by the resolver; this subsystem never deletes them.
type DeviceRepository interface {
	// Upsert inserts the device or, when it already exists, bumps
	// last_seen_at only. Idempotent under identical payloads.
	Upsert(ctx context.Context, tx Tx, d *model.DeviceIdentity) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.DeviceIdentity, error)
}
