package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"referral-service/internal/domain"
	"referral-service/internal/domain/model"
	"referral-service/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.ReferralCodeRepository = (*referralCodeRepo)(nil)

type referralCodeRepo struct {
	pool *pgxpool.Pool
}

func NewReferralCodeRepo(pool *pgxpool.Pool) repository.ReferralCodeRepository {
	return &referralCodeRepo{pool: pool}
}

// Save creates or updates a code. ON CONFLICT covers both the admin create
// path and the activate/deactivate/expiry mutations.
func (r *referralCodeRepo) Save(ctx context.Context, tx repository.Tx, c *model.ReferralCode) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	const q = `
INSERT INTO referral_codes (id, code, owner_user_id, owner_name, is_special, is_active, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
  is_active  = EXCLUDED.is_active,
  expires_at = EXCLUDED.expires_at;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.Code, c.OwnerUserID, c.OwnerName, c.IsSpecial, c.IsActive, c.ExpiresAt, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save referral code: %w", err)
	}
	return nil
}

// FindByCode answers the hot-path lookup against the unique index on the
// normalized code text. Callers must normalize before calling.
func (r *referralCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, normalizedCode string) (*model.ReferralCode, error) {
	const q = `
SELECT id, code, owner_user_id, owner_name, is_special, is_active, expires_at, created_at
  FROM referral_codes
 WHERE code = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, normalizedCode)
	if err != nil {
		return nil, err
	}
	return scanCode(row)
}

func (r *referralCodeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ReferralCode, error) {
	const q = `
SELECT id, code, owner_user_id, owner_name, is_special, is_active, expires_at, created_at
  FROM referral_codes
 WHERE id = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanCode(row)
}

func (r *referralCodeRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.ReferralCode, error) {
	const q = `
SELECT id, code, owner_user_id, owner_name, is_special, is_active, expires_at, created_at
  FROM referral_codes
 ORDER BY created_at DESC
 OFFSET $1 LIMIT $2;
`
	rows, err := querySQL(ctx, r.pool, tx, q, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list referral codes: %w", err)
	}
	defer rows.Close()

	var out []*model.ReferralCode
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *referralCodeRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM referral_codes WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete referral code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanCode(row pgx.Row) (*model.ReferralCode, error) {
	var c model.ReferralCode
	err := row.Scan(&c.ID, &c.Code, &c.OwnerUserID, &c.OwnerName, &c.IsSpecial, &c.IsActive, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &c, nil
}
