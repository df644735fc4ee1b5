package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"referral-service/internal/domain/model"
	"referral-service/internal/domain/ports/repository"
	"referral-service/internal/infra/logging"
)

// Compile-time check
var _ DeviceUseCase = (*deviceUC)(nil)

// DeviceUseCase resolves fingerprint payloads into canonical device
// identities and answers ban-status reads for the form UI.
type DeviceUseCase interface {
	// Resolve normalizes the payload into a DeviceIdentity and upserts it,
	// bumping last_seen_at. Idempotent under identical payloads.
	Resolve(ctx context.Context, fp model.FingerprintPayload) (*model.DeviceIdentity, error)

	// Status reports the device's ban state without consuming a validation
	// attempt. Used by the form UI to preemptively block submissions.
	Status(ctx context.Context, fp model.FingerprintPayload) (model.BanStatus, error)
}

type deviceUC struct {
	devices repository.DeviceRepository
	bans    repository.BanLedger
	log     *zerolog.Logger
}

func NewDeviceUseCase(devices repository.DeviceRepository, bans repository.BanLedger, logger *zerolog.Logger) *deviceUC {
	return &deviceUC{devices: devices, bans: bans, log: logger}
}

func (u *deviceUC) Resolve(ctx context.Context, fp model.FingerprintPayload) (*model.DeviceIdentity, error) {
	defer logging.TraceDuration(u.log, "DeviceUC.Resolve")()

	d, err := model.NewDeviceIdentity(fp)
	if err != nil {
		return nil, err
	}
	if err := u.devices.Upsert(ctx, repository.NoTX, d); err != nil {
		u.log.Error().Err(err).Str("device_id", d.ID).Msg("device upsert failed")
		return nil, err
	}
	return d, nil
}

func (u *deviceUC) Status(ctx context.Context, fp model.FingerprintPayload) (model.BanStatus, error) {
	defer logging.TraceDuration(u.log, "DeviceUC.Status")()

	d, err := u.Resolve(ctx, fp)
	if err != nil {
		return model.BanStatus{}, err
	}
	return u.bans.Status(ctx, d.ID)
}
