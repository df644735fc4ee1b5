package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"referral-service/internal/domain"
	"referral-service/internal/domain/model"
	"referral-service/internal/domain/ports/repository"
	"referral-service/internal/infra/logging"
	"referral-service/internal/infra/metrics"
)

// Compile-time check
var _ SubmissionUseCase = (*submissionUC)(nil)

// SubmissionUseCase records an accepted referral exactly once per
// (code, device) pair. It is the only component that writes submissions.
type SubmissionUseCase interface {
	Submit(ctx context.Context, rawCode string, fp model.FingerprintPayload, requestingUserID *string, formSnapshot json.RawMessage) (*model.ReferralSubmission, error)
}

type submissionUC struct {
	devices     deviceResolver
	codes       repository.ReferralCodeRepository
	submissions repository.SubmissionRepository
	bans        repository.BanLedger
	tm          repository.TransactionManager
	log         *zerolog.Logger
}

func NewSubmissionUseCase(
	devices deviceResolver,
	codes repository.ReferralCodeRepository,
	submissions repository.SubmissionRepository,
	bans repository.BanLedger,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *submissionUC {
	return &submissionUC{devices: devices, codes: codes, submissions: submissions, bans: bans, tm: tm, log: logger}
}

// Submit re-runs the essential checks (active, unexpired, not self-owned)
// inside the same transaction that inserts the row. The client's earlier
// validate call may be arbitrarily stale: the code can have been
// deactivated, or a concurrent submit from the same device may land first.
// The unique constraint on (referral_code_id, device_id) is the
// authoritative guard; a conflict surfaces as domain.ErrAlreadyRedeemed.
func (u *submissionUC) Submit(ctx context.Context, rawCode string, fp model.FingerprintPayload, requestingUserID *string, formSnapshot json.RawMessage) (*model.ReferralSubmission, error) {
	defer logging.TraceDuration(u.log, "SubmissionUC.Submit")()

	device, err := u.devices.Resolve(ctx, fp)
	if err != nil {
		return nil, err
	}

	// The ban ledger gates submission too, without consuming an attempt.
	status, err := u.bans.Status(ctx, device.ID)
	if err != nil {
		return nil, fmt.Errorf("ban status: %w", err)
	}
	if status.IsBanned(time.Now().UTC()) {
		metrics.IncSubmission("device_banned")
		return nil, &BannedError{Status: status}
	}

	normalized := model.NormalizeCode(rawCode)
	if err := model.ValidateCodeFormat(normalized); err != nil {
		return nil, err
	}

	var submission *model.ReferralSubmission
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err = u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		code, err := u.codes.FindByCode(ctx, tx, normalized)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrCodeNotFound
			}
			return err
		}
		if !code.IsActive {
			return domain.ErrCodeInactive
		}
		if code.IsExpired(time.Now().UTC()) {
			return domain.ErrCodeExpired
		}
		if requestingUserID != nil && code.OwnedBy(*requestingUserID) {
			return domain.ErrSelfReferral
		}

		s, err := model.NewReferralSubmission(code.ID, device.ID, formSnapshot)
		if err != nil {
			return err
		}
		if err := u.submissions.Insert(ctx, tx, s); err != nil {
			return err
		}
		submission = s
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyRedeemed) {
			metrics.IncSubmission("already_redeemed")
			u.log.Info().Str("device_id", device.ID).Msg("duplicate submission for device")
		} else {
			metrics.IncSubmission("rejected")
		}
		return nil, err
	}

	metrics.IncSubmission("committed")
	u.log.Info().
		Str("submission_id", submission.ID).
		Str("referral_code_id", submission.ReferralCodeID).
		Str("device_id", device.ID).
		Msg("referral recorded")
	return submission, nil
}
