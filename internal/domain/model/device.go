package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"referral-service/internal/domain"
)

// FingerprintPayload is the opaque signal set computed by the client-side
// fingerprinting library. The service never interprets individual signals;
// it only checks the required fields are present and hashes the whole thing
// into a stable device identity.
type FingerprintPayload struct {
	UserAgent        string `json:"user_agent"`
	Language         string `json:"language"`
	Timezone         string `json:"timezone"`
	ScreenResolution string `json:"screen_resolution"`
	Platform         string `json:"platform"`
	CanvasHash       string `json:"canvas_hash"`
	AudioHash        string `json:"audio_hash"`
	Fonts            string `json:"fonts"`
}

// DeviceIdentity is the canonical server-side identity derived from a
// fingerprint payload. The ID is immutable once created; LastSeenAt is the
// only field that changes, bumped on every validation attempt.
type DeviceIdentity struct {
	ID          string
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// NewDeviceIdentity hashes the payload deterministically into a fixed-width
// identity. Returns ErrInvalidFingerprint when the required signals are
// missing; callers must reject such requests before any ban-ledger access.
func NewDeviceIdentity(fp FingerprintPayload) (*DeviceIdentity, error) {
	if strings.TrimSpace(fp.UserAgent) == "" ||
		strings.TrimSpace(fp.Timezone) == "" ||
		strings.TrimSpace(fp.ScreenResolution) == "" {
		return nil, domain.ErrInvalidFingerprint
	}
	now := time.Now().UTC()
	return &DeviceIdentity{
		ID:          FingerprintHash(fp),
		FirstSeenAt: now,
		LastSeenAt:  now,
	}, nil
}

// FingerprintHash produces the stable hex digest of a payload. Fields are
// joined with a separator that cannot appear in them after normalization so
// that distinct payloads never collide by concatenation.
func FingerprintHash(fp FingerprintPayload) string {
	norm := func(s string) string {
		return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "\x1f", " ")))
	}
	h := sha256.New()
	for _, part := range []string{
		norm(fp.UserAgent),
		norm(fp.Language),
		norm(fp.Timezone),
		norm(fp.ScreenResolution),
		norm(fp.Platform),
		norm(fp.CanvasHash),
		norm(fp.AudioHash),
		norm(fp.Fonts),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (d *DeviceIdentity) IsZero() bool { return d == nil || d.ID == "" }
func (d *DeviceIdentity) Touch()       { d.LastSeenAt = time.Now().UTC() }
