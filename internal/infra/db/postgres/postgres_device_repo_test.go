//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"referral-service/internal/domain"
	"referral-service/internal/domain/model"
)

func TestDeviceRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	repo := NewDeviceRepo(testPool)
	ctx := context.Background()

	t.Run("should insert and read back a device", func(t *testing.T) {
		cleanup(t)

		d, err := model.NewDeviceIdentity(model.FingerprintPayload{
			UserAgent:        "Mozilla/5.0",
			Timezone:         "UTC",
			ScreenResolution: "1920x1080",
		})
		if err != nil {
			t.Fatalf("model.NewDeviceIdentity() failed: %v", err)
		}
		if err := repo.Upsert(ctx, nil, d); err != nil {
			t.Fatalf("Failed to upsert device: %v", err)
		}

		found, err := repo.FindByID(ctx, nil, d.ID)
		if err != nil {
			t.Fatalf("Failed to find device: %v", err)
		}
		if found.ID != d.ID {
			t.Errorf("Expected device ID %s, got %s", d.ID, found.ID)
		}
	})

	t.Run("should only bump last_seen_at on repeat upserts", func(t *testing.T) {
		cleanup(t)

		d, _ := model.NewDeviceIdentity(model.FingerprintPayload{
			UserAgent:        "Mozilla/5.0",
			Timezone:         "UTC",
			ScreenResolution: "1920x1080",
		})
		if err := repo.Upsert(ctx, nil, d); err != nil {
			t.Fatalf("First upsert failed: %v", err)
		}
		firstSeen := d.FirstSeenAt

		time.Sleep(10 * time.Millisecond)
		d.Touch()
		if err := repo.Upsert(ctx, nil, d); err != nil {
			t.Fatalf("Second upsert failed: %v", err)
		}

		found, err := repo.FindByID(ctx, nil, d.ID)
		if err != nil {
			t.Fatalf("Failed to find device: %v", err)
		}
		// timestamptz stores microseconds; compare with a small tolerance.
		if drift := found.FirstSeenAt.Sub(firstSeen); drift > time.Millisecond || drift < -time.Millisecond {
			t.Errorf("FirstSeenAt must be immutable: %v vs %v", found.FirstSeenAt, firstSeen)
		}
		if !found.LastSeenAt.After(found.FirstSeenAt) {
			t.Errorf("Expected LastSeenAt to advance, got %v", found.LastSeenAt)
		}
	})

	t.Run("should report not found for an unknown id", func(t *testing.T) {
		cleanup(t)

		_, err := repo.FindByID(ctx, nil, "no-such-device")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}
