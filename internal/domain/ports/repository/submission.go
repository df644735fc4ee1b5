package repository

import (
	"context"

	"referral-service/internal/domain/model"
)

// SubmissionRepository persists accepted referrals. Insert is the only write
// and must surface a (referral_code_id, device_id) uniqueness conflict as
// domain.ErrAlreadyRedeemed, not a generic database error. The storage
// constraint is the authoritative guard against double redemption.
type SubmissionRepository interface {
	Insert(ctx context.Context, tx Tx, s *model.ReferralSubmission) error
	FindByCodeAndDevice(ctx context.Context, tx Tx, referralCodeID, deviceID string) (*model.ReferralSubmission, error)
	ListByCode(ctx context.Context, tx Tx, referralCodeID string, offset, limit int) ([]*model.ReferralSubmission, error)
	CountByCode(ctx context.Context, tx Tx, referralCodeID string) (int, error)
}
