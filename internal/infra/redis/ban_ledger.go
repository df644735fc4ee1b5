package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"referral-service/internal/domain/model"
	"referral-service/internal/domain/ports/repository"
)

// Ensure implementation satisfies the port.
var _ repository.BanLedger = (*BanLedger)(nil)

// BanLedger keeps per-device failure counters and ban windows in Redis.
// INCR is the atomic read-modify-write the contract demands: concurrent
// failures from two tabs of the same device never under-count. A tripped
// ban gives both the window marker and the counter the window's TTL, so the
// counter stays visible for the whole ban and both reset when it lapses.
type BanLedger struct {
	client    RedisClient
	threshold int
	window    time.Duration
}

func NewBanLedger(client RedisClient, threshold int, window time.Duration) *BanLedger {
	return &BanLedger{client: client, threshold: threshold, window: window}
}

func failsKey(deviceID string) string { return "referral:ban:fails:" + deviceID }
func untilKey(deviceID string) string { return "referral:ban:until:" + deviceID }
func lastKey(deviceID string) string  { return "referral:ban:last:" + deviceID }

func (l *BanLedger) Status(ctx context.Context, deviceID string) (model.BanStatus, error) {
	status := model.BanStatus{DeviceID: deviceID}

	fails, err := l.client.Get(ctx, failsKey(deviceID))
	if err != nil && !errors.Is(err, Nil) {
		return status, fmt.Errorf("redis: read failure count: %w", err)
	}
	if fails != "" {
		n, convErr := strconv.Atoi(fails)
		if convErr != nil {
			return status, fmt.Errorf("redis: corrupt failure count %q: %w", fails, convErr)
		}
		status.FailedAttempts = n
	}

	until, err := l.client.Get(ctx, untilKey(deviceID))
	if err != nil && !errors.Is(err, Nil) {
		return status, fmt.Errorf("redis: read ban window: %w", err)
	}
	if until != "" {
		t, parseErr := time.Parse(time.RFC3339Nano, until)
		if parseErr != nil {
			return status, fmt.Errorf("redis: corrupt ban window %q: %w", until, parseErr)
		}
		status.BannedUntil = &t
	}

	last, err := l.client.Get(ctx, lastKey(deviceID))
	if err != nil && !errors.Is(err, Nil) {
		return status, fmt.Errorf("redis: read last attempt: %w", err)
	}
	if last != "" {
		if t, parseErr := time.Parse(time.RFC3339Nano, last); parseErr == nil {
			status.LastAttemptAt = &t
		}
	}

	return status, nil
}

func (l *BanLedger) RecordFailure(ctx context.Context, deviceID string) (model.BanStatus, error) {
	now := time.Now().UTC()

	count, err := l.client.Incr(ctx, failsKey(deviceID))
	if err != nil {
		return model.BanStatus{}, fmt.Errorf("redis: increment failure count: %w", err)
	}
	if err := l.client.Set(ctx, lastKey(deviceID), now.Format(time.RFC3339Nano), 0); err != nil {
		return model.BanStatus{}, fmt.Errorf("redis: record last attempt: %w", err)
	}

	status := model.BanStatus{
		DeviceID:       deviceID,
		FailedAttempts: int(count),
		LastAttemptAt:  &now,
	}

	if int(count) >= l.threshold {
		until := now.Add(l.window)
		// SETNX keeps a concurrent over-threshold failure from extending a
		// window another request just opened.
		set, err := l.client.SetNX(ctx, untilKey(deviceID), until.Format(time.RFC3339Nano), l.window)
		if err != nil {
			return status, fmt.Errorf("redis: open ban window: %w", err)
		}
		if set {
			// Counter lives exactly as long as the ban; expiry is the reset.
			if err := l.client.Expire(ctx, failsKey(deviceID), l.window); err != nil {
				return status, fmt.Errorf("redis: bound failure count: %w", err)
			}
			status.BannedUntil = &until
		} else {
			existing, err := l.client.Get(ctx, untilKey(deviceID))
			if err != nil && !errors.Is(err, Nil) {
				return status, fmt.Errorf("redis: read ban window: %w", err)
			}
			if t, parseErr := time.Parse(time.RFC3339Nano, existing); parseErr == nil {
				status.BannedUntil = &t
			}
		}
	}

	return status, nil
}

func (l *BanLedger) RecordSuccess(ctx context.Context, deviceID string) error {
	if err := l.client.Del(ctx, failsKey(deviceID), untilKey(deviceID)); err != nil {
		return fmt.Errorf("redis: reset ban state: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := l.client.Set(ctx, lastKey(deviceID), now, 0); err != nil {
		return fmt.Errorf("redis: record last attempt: %w", err)
	}
	return nil
}
