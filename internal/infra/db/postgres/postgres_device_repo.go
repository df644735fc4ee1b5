package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"referral-service/internal/domain"
	"referral-service/internal/domain/model"
	"referral-service/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.DeviceRepository = (*deviceRepo)(nil)

type deviceRepo struct {
	pool *pgxpool.Pool
}

func NewDeviceRepo(pool *pgxpool.Pool) repository.DeviceRepository {
	return &deviceRepo{pool: pool}
}

// Upsert keeps the identity immutable: an existing row only gets its
// last_seen_at bumped, first_seen_at is never rewritten.
func (r *deviceRepo) Upsert(ctx context.Context, tx repository.Tx, d *model.DeviceIdentity) error {
	const q = `
INSERT INTO devices (id, first_seen_at, last_seen_at)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at;
`
	if _, err := execSQL(ctx, r.pool, tx, q, d.ID, d.FirstSeenAt, d.LastSeenAt); err != nil {
		return fmt.Errorf("postgres: upsert device: %w", err)
	}
	return nil
}

func (r *deviceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.DeviceIdentity, error) {
	const q = `
SELECT id, first_seen_at, last_seen_at
  FROM devices
 WHERE id = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	var d model.DeviceIdentity
	if err := row.Scan(&d.ID, &d.FirstSeenAt, &d.LastSeenAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &d, nil
}
