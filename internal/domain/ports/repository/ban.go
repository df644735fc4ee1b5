package repository

import (
	"context"

	"referral-service/internal/domain/model"
)

// BanLedger tracks per-device failure counters and the active ban window.
// It is the authority for "may this device attempt validation at all".
//
// Implementations must make RecordFailure a single storage-level atomic
// read-modify-write: two browser tabs retrying concurrently must never
// under-count. The ledger holds no in-process state.
type BanLedger interface {
	// Status is a pure read. Banned iff BannedUntil is strictly future.
	Status(ctx context.Context, deviceID string) (model.BanStatus, error)

	// RecordFailure atomically increments the failure counter. Crossing the
	// configured threshold opens a ban window; the counter stays up until
	// the window naturally lapses.
	RecordFailure(ctx context.Context, deviceID string) (model.BanStatus, error)

	// RecordSuccess resets the counter and clears any ban remnant. Called
	// only after a successful validation, never after a bare submission.
	RecordSuccess(ctx context.Context, deviceID string) error
}
