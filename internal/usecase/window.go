package usecase

import "time"

// Registration windows, relative to the month the lesson starts in:
// lessons in the current month accept applications until month end;
// lessons in the next month open on the 25th at 10:00; renewal for
// next month runs from the 20th at 10:00 through the 24th 23:59:59.

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func monthEnd(t time.Time) time.Time {
	return monthStart(t).AddDate(0, 1, 0).Add(-time.Second)
}

// RegistrationOpen reports whether a new application for a lesson
// starting at lessonStart is accepted at time now.
func RegistrationOpen(lessonStart, now time.Time) bool {
	curStart := monthStart(now)
	nextStart := curStart.AddDate(0, 1, 0)

	lessonMonth := monthStart(lessonStart)

	switch {
	case lessonMonth.Equal(curStart):
		return !now.After(monthEnd(now))
	case lessonMonth.Equal(nextStart):
		open := time.Date(now.Year(), now.Month(), 25, 10, 0, 0, 0, now.Location())
		return !now.Before(open)
	default:
		return false
	}
}

// RenewalOpen reports whether the renewal window for next-month
// lessons is active at time now.
func RenewalOpen(lessonStart, now time.Time) bool {
	nextStart := monthStart(now).AddDate(0, 1, 0)
	if !monthStart(lessonStart).Equal(nextStart) {
		return false
	}

	open := time.Date(now.Year(), now.Month(), 20, 10, 0, 0, 0, now.Location())
	close := time.Date(now.Year(), now.Month(), 24, 23, 59, 59, 0, now.Location())
	return !now.Before(open) && !now.After(close)
}
