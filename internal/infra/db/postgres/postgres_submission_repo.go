package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"referral-service/internal/domain"
	"referral-service/internal/domain/model"
	"referral-service/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.SubmissionRepository = (*submissionRepo)(nil)

// uniqueViolation is the Postgres error code raised when the
// (referral_code_id, device_id) constraint catches a double redemption.
const uniqueViolation = "23505"

type submissionRepo struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepo(pool *pgxpool.Pool) repository.SubmissionRepository {
	return &submissionRepo{pool: pool}
}

// Insert writes the one-time redemption record. A unique-constraint conflict
// is translated to domain.ErrAlreadyRedeemed so callers never see a raw
// database error for the legitimate retry case.
func (r *submissionRepo) Insert(ctx context.Context, tx repository.Tx, s *model.ReferralSubmission) error {
	const q = `
INSERT INTO referral_submissions (id, referral_code_id, device_id, form_snapshot, created_at)
VALUES ($1, $2, $3, $4, $5);
`
	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.ReferralCodeID, s.DeviceID, s.FormSnapshot, s.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyRedeemed
		}
		return fmt.Errorf("postgres: insert submission: %w", err)
	}
	return nil
}

func (r *submissionRepo) FindByCodeAndDevice(ctx context.Context, tx repository.Tx, referralCodeID, deviceID string) (*model.ReferralSubmission, error) {
	const q = `
SELECT id, referral_code_id, device_id, form_snapshot, created_at
  FROM referral_submissions
 WHERE referral_code_id = $1 AND device_id = $2;
`
	row, err := pickRow(ctx, r.pool, tx, q, referralCodeID, deviceID)
	if err != nil {
		return nil, err
	}
	return scanSubmission(row)
}

func (r *submissionRepo) ListByCode(ctx context.Context, tx repository.Tx, referralCodeID string, offset, limit int) ([]*model.ReferralSubmission, error) {
	const q = `
SELECT id, referral_code_id, device_id, form_snapshot, created_at
  FROM referral_submissions
 WHERE referral_code_id = $1
 ORDER BY created_at DESC
 OFFSET $2 LIMIT $3;
`
	rows, err := querySQL(ctx, r.pool, tx, q, referralCodeID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list submissions: %w", err)
	}
	defer rows.Close()

	var out []*model.ReferralSubmission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *submissionRepo) CountByCode(ctx context.Context, tx repository.Tx, referralCodeID string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM referral_submissions WHERE referral_code_id = $1;`, referralCodeID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func scanSubmission(row pgx.Row) (*model.ReferralSubmission, error) {
	var s model.ReferralSubmission
	err := row.Scan(&s.ID, &s.ReferralCodeID, &s.DeviceID, &s.FormSnapshot, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &s, nil
}
