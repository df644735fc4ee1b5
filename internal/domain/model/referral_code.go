package model

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"referral-service/internal/domain"
)

const (
	// CodeMinLen and CodeMaxLen bound the accepted code format. Anything
	// outside the bounds is rejected before the registry is consulted.
	CodeMinLen = 4
	CodeMaxLen = 32

	// generatedCodeLen is the length of server-generated codes.
	generatedCodeLen = 8

	// codeAlphabet excludes 0/O and 1/I to keep codes transcribable.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// ReferralCode is a unique token a user or admin distributes. A nil
// OwnerUserID marks an admin-issued "special" promotion code; an owned code
// attributes redemptions to its owner.
type ReferralCode struct {
	ID          string
	Code        string
	OwnerUserID *string
	OwnerName   *string
	IsSpecial   bool
	IsActive    bool
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// NewReferralCode creates a user-owned code. An empty code is generated.
func NewReferralCode(code, ownerUserID, ownerName string, expiresAt *time.Time) (*ReferralCode, error) {
	if ownerUserID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if code == "" {
		code = GenerateCode()
	}
	norm := NormalizeCode(code)
	if err := ValidateCodeFormat(norm); err != nil {
		return nil, err
	}
	return &ReferralCode{
		ID:          uuid.NewString(),
		Code:        norm,
		OwnerUserID: &ownerUserID,
		OwnerName:   &ownerName,
		IsSpecial:   false,
		IsActive:    true,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// NewSpecialCode creates an admin-issued promotion code with no owner.
func NewSpecialCode(code string, expiresAt *time.Time) (*ReferralCode, error) {
	if code == "" {
		code = GenerateCode()
	}
	norm := NormalizeCode(code)
	if err := ValidateCodeFormat(norm); err != nil {
		return nil, err
	}
	return &ReferralCode{
		ID:        uuid.NewString(),
		Code:      norm,
		IsSpecial: true,
		IsActive:  true,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NormalizeCode is applied before every comparison and lookup: codes are
// case-insensitive and surrounding whitespace is ignored.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidateCodeFormat checks the normalized code against the allowed shape:
// non-empty, bounded length, alphanumeric with dashes/underscores.
func ValidateCodeFormat(code string) error {
	if len(code) < CodeMinLen || len(code) > CodeMaxLen {
		return domain.ErrInvalidCodeFormat
	}
	for _, r := range code {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return domain.ErrInvalidCodeFormat
		}
	}
	return nil
}

// GenerateCode returns a random code over the transcribable alphabet.
func GenerateCode() string {
	b := make([]byte, generatedCodeLen)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to a uuid-derived code rather than panic.
		return NormalizeCode(strings.ReplaceAll(uuid.NewString(), "-", "")[:generatedCodeLen])
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}

// IsExpired reports whether the code's expiry, if set, has passed.
// Expiry is independent of IsActive: an active code can still be expired.
func (c *ReferralCode) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// OwnedBy reports whether userID is the code's owner. Special codes have no
// owner and are never self-referrals.
func (c *ReferralCode) OwnedBy(userID string) bool {
	return c.OwnerUserID != nil && userID != "" && *c.OwnerUserID == userID
}
