package repository

import (
	"context"

	"referral-service/internal/domain/model"
)

// ReferralCodeRepository is the registry port. FindByCode is on the hot path
// of every validation call and must be answered via the unique index on the
// normalized code. Mutations exist for the admin surface only; the
// validation and submission paths never call them.
type ReferralCodeRepository interface {
	Save(ctx context.Context, tx Tx, c *model.ReferralCode) error
	FindByCode(ctx context.Context, tx Tx, normalizedCode string) (*model.ReferralCode, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.ReferralCode, error)
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.ReferralCode, error)
	Delete(ctx context.Context, tx Tx, id string) error
}
