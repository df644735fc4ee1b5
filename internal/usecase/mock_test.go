//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"referral-service/internal/domain"
	"referral-service/internal/domain/model"
	"referral-service/internal/domain/ports/repository"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Repositories
// =============================

// ---- Mock DeviceRepository ----

type MockDeviceRepo struct {
	mu   sync.Mutex
	byID map[string]*model.DeviceIdentity

	UpsertFunc   func(ctx context.Context, tx repository.Tx, d *model.DeviceIdentity) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.DeviceIdentity, error)
}

var _ repository.DeviceRepository = (*MockDeviceRepo)(nil)

func NewMockDeviceRepo() *MockDeviceRepo {
	return &MockDeviceRepo{byID: map[string]*model.DeviceIdentity{}}
}

func (r *MockDeviceRepo) Upsert(ctx context.Context, tx repository.Tx, d *model.DeviceIdentity) error {
	if r.UpsertFunc != nil {
		return r.UpsertFunc(ctx, tx, d)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byID[d.ID]; ok {
		existing.LastSeenAt = d.LastSeenAt
		return nil
	}
	cp := *d
	r.byID[d.ID] = &cp
	return nil
}

func (r *MockDeviceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.DeviceIdentity, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byID[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// ---- Mock ReferralCodeRepository ----

type MockCodeRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.ReferralCode
	byCode map[string]string // normalized code -> id

	SaveFunc       func(ctx context.Context, tx repository.Tx, c *model.ReferralCode) error
	FindByCodeFunc func(ctx context.Context, tx repository.Tx, normalizedCode string) (*model.ReferralCode, error)
	FindByIDFunc   func(ctx context.Context, tx repository.Tx, id string) (*model.ReferralCode, error)
	ListFunc       func(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.ReferralCode, error)
	DeleteFunc     func(ctx context.Context, tx repository.Tx, id string) error
}

var _ repository.ReferralCodeRepository = (*MockCodeRepo)(nil)

func NewMockCodeRepo() *MockCodeRepo {
	return &MockCodeRepo{byID: map[string]*model.ReferralCode{}, byCode: map[string]string{}}
}

// Seed stores a code directly, bypassing any configured SaveFunc.
func (r *MockCodeRepo) Seed(c *model.ReferralCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.byID[c.ID] = &cp
	r.byCode[c.Code] = c.ID
}

func (r *MockCodeRepo) Save(ctx context.Context, tx repository.Tx, c *model.ReferralCode) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, c)
	}
	r.Seed(c)
	return nil
}

func (r *MockCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, normalizedCode string) (*model.ReferralCode, error) {
	if r.FindByCodeFunc != nil {
		return r.FindByCodeFunc(ctx, tx, normalizedCode)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byCode[normalizedCode]; ok {
		cp := *r.byID[id]
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockCodeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ReferralCode, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.byID[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockCodeRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.ReferralCode, error) {
	if r.ListFunc != nil {
		return r.ListFunc(ctx, tx, offset, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.ReferralCode, 0, len(r.byID))
	for _, c := range r.byID {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockCodeRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	if r.DeleteFunc != nil {
		return r.DeleteFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.byCode, c.Code)
	delete(r.byID, id)
	return nil
}

// ---- Mock SubmissionRepository ----

type MockSubmissionRepo struct {
	mu   sync.Mutex
	byID map[string]*model.ReferralSubmission
	pair map[string]string // referralCodeID + ":" + deviceID -> submission id

	InsertFunc              func(ctx context.Context, tx repository.Tx, s *model.ReferralSubmission) error
	FindByCodeAndDeviceFunc func(ctx context.Context, tx repository.Tx, referralCodeID, deviceID string) (*model.ReferralSubmission, error)
	ListByCodeFunc          func(ctx context.Context, tx repository.Tx, referralCodeID string, offset, limit int) ([]*model.ReferralSubmission, error)
	CountByCodeFunc         func(ctx context.Context, tx repository.Tx, referralCodeID string) (int, error)
}

var _ repository.SubmissionRepository = (*MockSubmissionRepo)(nil)

func NewMockSubmissionRepo() *MockSubmissionRepo {
	return &MockSubmissionRepo{byID: map[string]*model.ReferralSubmission{}, pair: map[string]string{}}
}

// Insert mirrors the storage-level unique constraint: a second row for the
// same (code, device) pair fails with ErrAlreadyRedeemed.
func (r *MockSubmissionRepo) Insert(ctx context.Context, tx repository.Tx, s *model.ReferralSubmission) error {
	if r.InsertFunc != nil {
		return r.InsertFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := s.ReferralCodeID + ":" + s.DeviceID
	if _, ok := r.pair[key]; ok {
		return domain.ErrAlreadyRedeemed
	}
	cp := *s
	r.byID[s.ID] = &cp
	r.pair[key] = s.ID
	return nil
}

func (r *MockSubmissionRepo) FindByCodeAndDevice(ctx context.Context, tx repository.Tx, referralCodeID, deviceID string) (*model.ReferralSubmission, error) {
	if r.FindByCodeAndDeviceFunc != nil {
		return r.FindByCodeAndDeviceFunc(ctx, tx, referralCodeID, deviceID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.pair[referralCodeID+":"+deviceID]; ok {
		cp := *r.byID[id]
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubmissionRepo) ListByCode(ctx context.Context, tx repository.Tx, referralCodeID string, offset, limit int) ([]*model.ReferralSubmission, error) {
	if r.ListByCodeFunc != nil {
		return r.ListByCodeFunc(ctx, tx, referralCodeID, offset, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ReferralSubmission
	for _, s := range r.byID {
		if s.ReferralCodeID == referralCodeID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockSubmissionRepo) CountByCode(ctx context.Context, tx repository.Tx, referralCodeID string) (int, error) {
	if r.CountByCodeFunc != nil {
		return r.CountByCodeFunc(ctx, tx, referralCodeID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.byID {
		if s.ReferralCodeID == referralCodeID {
			n++
		}
	}
	return n, nil
}

// ---- Mock BanLedger ----

// MockBanLedger is an in-memory rendition of the failure counter with the
// same threshold semantics as the Redis implementation.
type MockBanLedger struct {
	mu        sync.Mutex
	Threshold int
	Window    time.Duration
	fails     map[string]int
	until     map[string]time.Time
	last      map[string]time.Time

	StatusFunc        func(ctx context.Context, deviceID string) (model.BanStatus, error)
	RecordFailureFunc func(ctx context.Context, deviceID string) (model.BanStatus, error)
	RecordSuccessFunc func(ctx context.Context, deviceID string) error
}

var _ repository.BanLedger = (*MockBanLedger)(nil)

func NewMockBanLedger() *MockBanLedger {
	return &MockBanLedger{
		Threshold: 5,
		Window:    24 * time.Hour,
		fails:     map[string]int{},
		until:     map[string]time.Time{},
		last:      map[string]time.Time{},
	}
}

func (l *MockBanLedger) Status(ctx context.Context, deviceID string) (model.BanStatus, error) {
	if l.StatusFunc != nil {
		return l.StatusFunc(ctx, deviceID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statusLocked(deviceID), nil
}

func (l *MockBanLedger) statusLocked(deviceID string) model.BanStatus {
	status := model.BanStatus{DeviceID: deviceID, FailedAttempts: l.fails[deviceID]}
	if u, ok := l.until[deviceID]; ok {
		cp := u
		status.BannedUntil = &cp
	}
	if t, ok := l.last[deviceID]; ok {
		cp := t
		status.LastAttemptAt = &cp
	}
	return status
}

func (l *MockBanLedger) RecordFailure(ctx context.Context, deviceID string) (model.BanStatus, error) {
	if l.RecordFailureFunc != nil {
		return l.RecordFailureFunc(ctx, deviceID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fails[deviceID]++
	l.last[deviceID] = now()
	if l.fails[deviceID] >= l.Threshold {
		if _, ok := l.until[deviceID]; !ok {
			l.until[deviceID] = now().Add(l.Window)
		}
	}
	return l.statusLocked(deviceID), nil
}

func (l *MockBanLedger) RecordSuccess(ctx context.Context, deviceID string) error {
	if l.RecordSuccessFunc != nil {
		return l.RecordSuccessFunc(ctx, deviceID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.fails, deviceID)
	delete(l.until, deviceID)
	l.last[deviceID] = now()
	return nil
}

// =============================
// Infra helpers for tests
// =============================

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx provides a way to control transaction behavior during tests.
// By default, it runs the function immediately without a real transaction.
// For specific transactional tests, you can assign a custom function to WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}
