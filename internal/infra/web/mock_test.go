//go:build !integration

package web

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/rs/zerolog"

	"referral-service/internal/domain"
	"referral-service/internal/domain/model"
	"referral-service/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// --- Mock Use Cases ---

type mockValidationUC struct {
	ValidateFunc func(ctx context.Context, rawCode string, fp model.FingerprintPayload, requestingUserID *string) (*usecase.ValidationResult, error)
}

var _ usecase.ValidationUseCase = (*mockValidationUC)(nil)

func (m *mockValidationUC) Validate(ctx context.Context, rawCode string, fp model.FingerprintPayload, requestingUserID *string) (*usecase.ValidationResult, error) {
	return m.ValidateFunc(ctx, rawCode, fp, requestingUserID)
}

type mockSubmissionUC struct {
	SubmitFunc func(ctx context.Context, rawCode string, fp model.FingerprintPayload, requestingUserID *string, formSnapshot json.RawMessage) (*model.ReferralSubmission, error)
}

var _ usecase.SubmissionUseCase = (*mockSubmissionUC)(nil)

func (m *mockSubmissionUC) Submit(ctx context.Context, rawCode string, fp model.FingerprintPayload, requestingUserID *string, formSnapshot json.RawMessage) (*model.ReferralSubmission, error) {
	return m.SubmitFunc(ctx, rawCode, fp, requestingUserID, formSnapshot)
}

type mockDeviceUC struct {
	ResolveFunc func(ctx context.Context, fp model.FingerprintPayload) (*model.DeviceIdentity, error)
	StatusFunc  func(ctx context.Context, fp model.FingerprintPayload) (model.BanStatus, error)
}

var _ usecase.DeviceUseCase = (*mockDeviceUC)(nil)

func (m *mockDeviceUC) Resolve(ctx context.Context, fp model.FingerprintPayload) (*model.DeviceIdentity, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, fp)
	}
	return model.NewDeviceIdentity(fp)
}

func (m *mockDeviceUC) Status(ctx context.Context, fp model.FingerprintPayload) (model.BanStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, fp)
	}
	return model.BanStatus{DeviceID: model.FingerprintHash(fp)}, nil
}

type mockAdminUC struct {
	CreateOwnedFunc   func(ctx context.Context, code, ownerUserID, ownerName string, expiresAt *time.Time) (*model.ReferralCode, error)
	CreateSpecialFunc func(ctx context.Context, code string, expiresAt *time.Time) (*model.ReferralCode, error)
	SetActiveFunc     func(ctx context.Context, id string, active bool) (*model.ReferralCode, error)
	SetExpiryFunc     func(ctx context.Context, id string, expiresAt *time.Time) (*model.ReferralCode, error)
	GetFunc           func(ctx context.Context, id string) (*model.ReferralCode, error)
	ListFunc          func(ctx context.Context, offset, limit int) ([]*model.ReferralCode, error)
	DeleteFunc        func(ctx context.Context, id string) error
	SubmissionsFunc   func(ctx context.Context, codeID string, offset, limit int) ([]*model.ReferralSubmission, int, error)
}

var _ usecase.CodeAdminUseCase = (*mockAdminUC)(nil)

func (m *mockAdminUC) CreateOwned(ctx context.Context, code, ownerUserID, ownerName string, expiresAt *time.Time) (*model.ReferralCode, error) {
	if m.CreateOwnedFunc != nil {
		return m.CreateOwnedFunc(ctx, code, ownerUserID, ownerName, expiresAt)
	}
	return model.NewReferralCode(code, ownerUserID, ownerName, expiresAt)
}

func (m *mockAdminUC) CreateSpecial(ctx context.Context, code string, expiresAt *time.Time) (*model.ReferralCode, error) {
	if m.CreateSpecialFunc != nil {
		return m.CreateSpecialFunc(ctx, code, expiresAt)
	}
	return model.NewSpecialCode(code, expiresAt)
}

func (m *mockAdminUC) SetActive(ctx context.Context, id string, active bool) (*model.ReferralCode, error) {
	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(ctx, id, active)
	}
	return nil, domain.ErrNotFound
}

func (m *mockAdminUC) SetExpiry(ctx context.Context, id string, expiresAt *time.Time) (*model.ReferralCode, error) {
	if m.SetExpiryFunc != nil {
		return m.SetExpiryFunc(ctx, id, expiresAt)
	}
	return nil, domain.ErrNotFound
}

func (m *mockAdminUC) Get(ctx context.Context, id string) (*model.ReferralCode, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockAdminUC) List(ctx context.Context, offset, limit int) ([]*model.ReferralCode, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, offset, limit)
	}
	return nil, nil
}

func (m *mockAdminUC) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return domain.ErrNotFound
}

func (m *mockAdminUC) Submissions(ctx context.Context, codeID string, offset, limit int) ([]*model.ReferralSubmission, int, error) {
	if m.SubmissionsFunc != nil {
		return m.SubmissionsFunc(ctx, codeID, offset, limit)
	}
	return nil, 0, nil
}
