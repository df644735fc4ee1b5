package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"referral-service/internal/domain"
	"referral-service/internal/domain/model"
	"referral-service/internal/domain/ports/repository"
	"referral-service/internal/infra/logging"
)

// Compile-time check
var _ CodeAdminUseCase = (*codeAdminUC)(nil)

// CodeAdminUseCase is the administrative surface over the code registry:
// creation, activation, expiry changes, deletion, and redemption listings.
// The validation and submission paths never go through here.
type CodeAdminUseCase interface {
	CreateOwned(ctx context.Context, code, ownerUserID, ownerName string, expiresAt *time.Time) (*model.ReferralCode, error)
	CreateSpecial(ctx context.Context, code string, expiresAt *time.Time) (*model.ReferralCode, error)
	SetActive(ctx context.Context, id string, active bool) (*model.ReferralCode, error)
	SetExpiry(ctx context.Context, id string, expiresAt *time.Time) (*model.ReferralCode, error)
	Get(ctx context.Context, id string) (*model.ReferralCode, error)
	List(ctx context.Context, offset, limit int) ([]*model.ReferralCode, error)
	Delete(ctx context.Context, id string) error
	Submissions(ctx context.Context, codeID string, offset, limit int) ([]*model.ReferralSubmission, int, error)
}

type codeAdminUC struct {
	codes       repository.ReferralCodeRepository
	submissions repository.SubmissionRepository
	log         *zerolog.Logger
}

func NewCodeAdminUseCase(codes repository.ReferralCodeRepository, submissions repository.SubmissionRepository, logger *zerolog.Logger) *codeAdminUC {
	return &codeAdminUC{codes: codes, submissions: submissions, log: logger}
}

func (u *codeAdminUC) CreateOwned(ctx context.Context, code, ownerUserID, ownerName string, expiresAt *time.Time) (*model.ReferralCode, error) {
	defer logging.TraceDuration(u.log, "CodeAdminUC.CreateOwned")()

	c, err := model.NewReferralCode(code, ownerUserID, ownerName, expiresAt)
	if err != nil {
		return nil, err
	}
	if err := u.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (u *codeAdminUC) CreateSpecial(ctx context.Context, code string, expiresAt *time.Time) (*model.ReferralCode, error) {
	defer logging.TraceDuration(u.log, "CodeAdminUC.CreateSpecial")()

	c, err := model.NewSpecialCode(code, expiresAt)
	if err != nil {
		return nil, err
	}
	if err := u.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// save rejects a code whose normalized text is already registered, so two
// admins racing on the same text get a clean ErrAlreadyExists instead of a
// bare constraint error.
func (u *codeAdminUC) save(ctx context.Context, c *model.ReferralCode) error {
	if existing, err := u.codes.FindByCode(ctx, repository.NoTX, c.Code); err == nil && existing != nil {
		return domain.ErrAlreadyExists
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err := u.codes.Save(ctx, repository.NoTX, c); err != nil {
		return err
	}
	u.log.Info().Str("code_id", c.ID).Bool("special", c.IsSpecial).Msg("referral code created")
	return nil
}

func (u *codeAdminUC) SetActive(ctx context.Context, id string, active bool) (*model.ReferralCode, error) {
	defer logging.TraceDuration(u.log, "CodeAdminUC.SetActive")()

	c, err := u.codes.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	c.IsActive = active
	if err := u.codes.Save(ctx, repository.NoTX, c); err != nil {
		return nil, err
	}
	u.log.Info().Str("code_id", id).Bool("active", active).Msg("referral code status changed")
	return c, nil
}

func (u *codeAdminUC) SetExpiry(ctx context.Context, id string, expiresAt *time.Time) (*model.ReferralCode, error) {
	defer logging.TraceDuration(u.log, "CodeAdminUC.SetExpiry")()

	c, err := u.codes.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	c.ExpiresAt = expiresAt
	if err := u.codes.Save(ctx, repository.NoTX, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (u *codeAdminUC) Get(ctx context.Context, id string) (*model.ReferralCode, error) {
	return u.codes.FindByID(ctx, repository.NoTX, id)
}

func (u *codeAdminUC) List(ctx context.Context, offset, limit int) ([]*model.ReferralCode, error) {
	return u.codes.List(ctx, repository.NoTX, offset, limit)
}

func (u *codeAdminUC) Delete(ctx context.Context, id string) error {
	defer logging.TraceDuration(u.log, "CodeAdminUC.Delete")()
	return u.codes.Delete(ctx, repository.NoTX, id)
}

func (u *codeAdminUC) Submissions(ctx context.Context, codeID string, offset, limit int) ([]*model.ReferralSubmission, int, error) {
	subs, err := u.submissions.ListByCode(ctx, repository.NoTX, codeID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := u.submissions.CountByCode(ctx, repository.NoTX, codeID)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}
