package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Referral validation rejections. Each one maps 1:1 to a wire error code;
	// there is intentionally no generic "validation failed" fallback.
	ErrInvalidFingerprint = errors.New("fingerprint payload is missing required fields")
	ErrInvalidCodeFormat  = errors.New("referral code has invalid format")
	ErrCodeNotFound       = errors.New("referral code not found")
	ErrCodeInactive       = errors.New("referral code is inactive")
	ErrCodeExpired        = errors.New("referral code has expired")
	ErrSelfReferral       = errors.New("referral code cannot be redeemed by its owner")
	ErrDeviceBanned       = errors.New("device is banned from referral validation")

	// Submission terminal state. Success-adjacent on retries: the referral
	// was already recorded for this (code, device) pair.
	ErrAlreadyRedeemed = errors.New("referral already redeemed by this device")
)
