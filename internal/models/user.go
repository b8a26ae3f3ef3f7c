package models

import "time"

const DefaultReminderTime = "10:00"

// UserProgress is the per-user curriculum position. CurrentDay may run
// past the last authored day of a phase; lookups just come back empty.
type UserProgress struct {
	UserID       string
	CurrentPhase int
	CurrentDay   int
	PausedUntil  *time.Time
	ReminderTime string
	CreatedAt    time.Time
}

// IsPaused reports whether reminders are suppressed at the given moment.
// Paused is derived, not stored: PausedUntil set and strictly in the future.
func (u *UserProgress) IsPaused(now time.Time) bool {
	return u.PausedUntil != nil && u.PausedUntil.After(now)
}
