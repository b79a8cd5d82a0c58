package board

import "time"

// =============================================================================
// AUTO-SAFE ROLLOVER - Promote undecided past days to safe
// =============================================================================

// CutoffHour is the local hour after which an undecided "today" is
// automatically promoted to safe. A day with no recorded incident by
// late afternoon counts as a safe day.
const CutoffHour = 16

// ApplyAutoSafe promotes unset days to safe according to the rollover rules:
//   - days strictly before now's date become safe
//   - today becomes safe once local time reaches the cutoff hour
//   - future days, and days already decided (safe, near-miss, accident),
//     are never touched
//
// The function is pure and idempotent. It returns the input calendar
// unchanged (same reference) when no day qualified, so callers can use
// reference equality as cheap change detection. When now's year differs
// from year the call is a no-op.
func ApplyAutoSafe(cal YearCalendar, now time.Time, year int) YearCalendar {
	if now.Year() != year {
		return cal
	}

	todayMonth := int(now.Month()) - 1
	todayDay := now.Day()
	pastCutoff := now.Hour() >= CutoffHour

	result := cal
	changed := false

	for m := range cal {
		if m > todayMonth {
			break
		}
		for d := range cal[m].Days {
			if cal[m].Days[d].Status != StatusUnset {
				continue
			}
			day := d + 1
			promote := false
			switch {
			case m < todayMonth || day < todayDay:
				promote = true
			case m == todayMonth && day == todayDay && pastCutoff:
				promote = true
			}
			if !promote {
				continue
			}
			if !changed {
				// First change: copy the outer slice once, then copy
				// each month's days lazily as they are touched.
				result = make(YearCalendar, len(cal))
				copy(result, cal)
				changed = true
			}
			if sameDays(result[m].Days, cal[m].Days) {
				days := make([]Day, len(cal[m].Days))
				copy(days, cal[m].Days)
				result[m].Days = days
			}
			result[m].Days[d].Status = StatusSafe
		}
	}

	return result
}

// sameDays reports whether two day slices share backing storage.
func sameDays(a, b []Day) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}
