package loansvc

import "time"

// DaysOverdue returns the whole days elapsed since the due date as of now,
// floored to an integer and never negative.
func DaysOverdue(dueDate, now time.Time) int {
	if !now.After(dueDate) {
		return 0
	}
	return int(now.Sub(dueDate).Hours() / 24)
}

// CalculateFine is the fine policy: days overdue times the daily rate.
// Pure, so callers can preview a fine on a detached loan snapshot.
func CalculateFine(dueDate, now time.Time, dailyRate float64) float64 {
	return float64(DaysOverdue(dueDate, now)) * dailyRate
}
