package model

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"referral-service/internal/domain"
)

// ReferralSubmission is the one-time redemption record for a (code, device)
// pair. FormSnapshot is captured verbatim at submission time and never
// interpreted here. Rows are immutable once written.
type ReferralSubmission struct {
	ID             string
	ReferralCodeID string
	DeviceID       string
	FormSnapshot   json.RawMessage
	CreatedAt      time.Time
}

func NewReferralSubmission(referralCodeID, deviceID string, formSnapshot json.RawMessage) (*ReferralSubmission, error) {
	if referralCodeID == "" || deviceID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if len(formSnapshot) == 0 {
		formSnapshot = json.RawMessage("{}")
	}
	return &ReferralSubmission{
		ID:             ulid.Make().String(),
		ReferralCodeID: referralCodeID,
		DeviceID:       deviceID,
		FormSnapshot:   formSnapshot,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
