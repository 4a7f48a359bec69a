package rules

import "time"

const (
	MaxFailedLogins = 5
	LockoutDuration = 15 * time.Minute

	PasswordMinLength   = 8
	PasswordMaxLength   = 128
	PasswordHistorySize = 5
	PasswordMinAge      = 24 * time.Hour

	SecurityAnswerMinLength = 3

	ManagerTempBanCapHours = 48
	DefaultRestrictHours   = 48
)

// RemainingLockMinutes reports how many whole minutes of a lockout window are
// left, rounded up so a 30-second remainder still reads as one minute.
func RemainingLockMinutes(lockoutUntil, now time.Time) int {
	remaining := lockoutUntil.Sub(now)
	if remaining <= 0 {
		return 0
	}
	minutes := int(remaining / time.Minute)
	if remaining%time.Minute > 0 {
		minutes++
	}
	return minutes
}
