package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"referral-service/internal/domain"
	"referral-service/internal/domain/model"
	"referral-service/internal/domain/ports/repository"
	"referral-service/internal/infra/logging"
	"referral-service/internal/infra/metrics"
)

// Compile-time check
var _ ValidationUseCase = (*validationUC)(nil)

// ValidationResult is the acceptance returned to a caller whose code passed
// the full rule chain. DeviceID doubles as the fingerprint echoed back to
// the client so the later submit call can be correlated.
type ValidationResult struct {
	ReferralCodeID string
	DeviceID       string
	IsSpecial      bool
	ReferrerName   *string
}

// BannedError carries the ban window details a rejected client needs to know
// when a retry becomes meaningful. It unwraps to domain.ErrDeviceBanned so
// errors.Is classification keeps working.
type BannedError struct {
	Status model.BanStatus
}

func (e *BannedError) Error() string {
	return fmt.Sprintf("device banned until %v after %d failed attempts", e.Status.BannedUntil, e.Status.FailedAttempts)
}

func (e *BannedError) Unwrap() error { return domain.ErrDeviceBanned }

// ValidationUseCase is the decision core: it applies the ordered rule chain
// to a (code, device, optional user) triple. Read-mostly and safe to call
// repeatedly; the only side effects are device last-seen bumps and the ban
// ledger counters.
type ValidationUseCase interface {
	Validate(ctx context.Context, rawCode string, fp model.FingerprintPayload, requestingUserID *string) (*ValidationResult, error)
}

type validationUC struct {
	devices deviceResolver
	codes   repository.ReferralCodeRepository
	bans    repository.BanLedger
	log     *zerolog.Logger
}

// deviceResolver is the narrow slice of DeviceUseCase the rule chain needs.
type deviceResolver interface {
	Resolve(ctx context.Context, fp model.FingerprintPayload) (*model.DeviceIdentity, error)
}

func NewValidationUseCase(devices deviceResolver, codes repository.ReferralCodeRepository, bans repository.BanLedger, logger *zerolog.Logger) *validationUC {
	return &validationUC{devices: devices, codes: codes, bans: bans, log: logger}
}

// Validate evaluates the rules in a fixed order, first match wins, so a
// caller always receives the most specific actionable rejection:
//
//  1. active ban window        -> ErrDeviceBanned (no further increment)
//  2. malformed code           -> ErrInvalidCodeFormat
//  3. unknown code             -> ErrCodeNotFound
//  4. deactivated code         -> ErrCodeInactive
//  5. past expiry              -> ErrCodeExpired
//  6. caller owns the code     -> ErrSelfReferral
//  7. otherwise                -> accept, reset the failure counter
func (u *validationUC) Validate(ctx context.Context, rawCode string, fp model.FingerprintPayload, requestingUserID *string) (*ValidationResult, error) {
	defer logging.TraceDuration(u.log, "ValidationUC.Validate")()

	device, err := u.devices.Resolve(ctx, fp)
	if err != nil {
		return nil, err
	}
	log := u.log.With().Str("device_id", device.ID).Logger()

	status, err := u.bans.Status(ctx, device.ID)
	if err != nil {
		return nil, fmt.Errorf("ban status: %w", err)
	}
	now := time.Now().UTC()
	if status.IsBanned(now) {
		// Attempts during the ban window must not extend the ban, so no
		// RecordFailure here.
		metrics.IncValidation("device_banned")
		return nil, &BannedError{Status: status}
	}

	normalized := model.NormalizeCode(rawCode)
	if err := model.ValidateCodeFormat(normalized); err != nil {
		return nil, u.reject(ctx, log, device.ID, "invalid_format", err)
	}

	code, err := u.codes.FindByCode(ctx, repository.NoTX, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, u.reject(ctx, log, device.ID, "not_found", domain.ErrCodeNotFound)
		}
		return nil, fmt.Errorf("code lookup: %w", err)
	}

	if !code.IsActive {
		return nil, u.reject(ctx, log, device.ID, "inactive", domain.ErrCodeInactive)
	}
	if code.IsExpired(now) {
		return nil, u.reject(ctx, log, device.ID, "expired", domain.ErrCodeExpired)
	}
	if requestingUserID != nil && code.OwnedBy(*requestingUserID) {
		return nil, u.reject(ctx, log, device.ID, "self_referral", domain.ErrSelfReferral)
	}

	if err := u.bans.RecordSuccess(ctx, device.ID); err != nil {
		// The decision stands even if the counter reset fails; the next
		// successful validation resets it again.
		log.Error().Err(err).Msg("failure counter reset failed")
	}
	metrics.IncValidation("accepted")
	return &ValidationResult{
		ReferralCodeID: code.ID,
		DeviceID:       device.ID,
		IsSpecial:      code.IsSpecial,
		ReferrerName:   code.OwnerName,
	}, nil
}

// reject records a failed attempt against the device and returns the
// classified rejection. Crossing the threshold here is what opens a ban.
func (u *validationUC) reject(ctx context.Context, log zerolog.Logger, deviceID, outcome string, cause error) error {
	metrics.IncValidation(outcome)
	status, err := u.bans.RecordFailure(ctx, deviceID)
	if err != nil {
		log.Error().Err(err).Msg("failure record failed")
		return cause
	}
	if status.BannedUntil != nil {
		metrics.IncBanTripped()
		log.Warn().
			Int("failed_attempts", status.FailedAttempts).
			Time("banned_until", *status.BannedUntil).
			Msg("device crossed failure threshold")
	}
	return cause
}
