package board

import "time"

// =============================================================================
// STREAK - Consecutive accident-free days
// =============================================================================

// SafeStreak derives the count of consecutive qualifying days (safe or
// near-miss) ending at or before today. Returns 0 when now's year differs
// from the calendar's year.
//
// The anchor is today when today's status already qualifies; otherwise
// yesterday, which covers the pre-cutoff window where today is legitimately
// still unset. Counting walks backward one day at a time and stops, without
// counting, on the first accident or unset day, or on crossing into the
// previous year.
func SafeStreak(cal YearCalendar, now time.Time, year int) int {
	if now.Year() != year {
		return 0
	}

	anchor := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if status, ok := cal.StatusAt(int(now.Month())-1, now.Day()); !ok || !qualifies(status) {
		anchor = anchor.AddDate(0, 0, -1)
	}

	streak := 0
	for d := anchor; d.Year() == year; d = d.AddDate(0, 0, -1) {
		status, ok := cal.StatusAt(int(d.Month())-1, d.Day())
		if !ok || !qualifies(status) {
			break
		}
		streak++
	}
	return streak
}

func qualifies(s Status) bool {
	return s == StatusSafe || s == StatusNearMiss
}
