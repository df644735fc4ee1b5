package model

import "time"

// BanStatus is the ban ledger's answer for a single device. A device is
// banned iff BannedUntil exists and is strictly in the future, regardless of
// the current failure count.
type BanStatus struct {
	DeviceID       string
	FailedAttempts int
	BannedUntil    *time.Time
	LastAttemptAt  *time.Time
}

func (b BanStatus) IsBanned(now time.Time) bool {
	return b.BannedUntil != nil && b.BannedUntil.After(now)
}
