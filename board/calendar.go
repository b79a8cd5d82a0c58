/*
Package board provides the core state model for the safety dashboard.

PURPOSE:

	This package contains the pure domain logic behind the wall-mounted
	safety board: the year calendar of daily statuses, the automatic
	end-of-day promotion rules, the accident-free streak derivation, and
	the man-hour target computation.

KEY CONCEPTS IN THIS FILE (calendar.go):
  - Status: the four-valued daily safety state
  - Day / Month / YearCalendar: one year of daily statuses
  - SetStatus / CycleStatus: copy-on-write mutations

DESIGN PRINCIPLES:
 1. Purity: nothing in this package touches storage, timers, or HTTP
 2. Copy-on-write: mutations return new calendars; untouched months and
    days are structurally shared, so reference equality detects change
 3. Defensiveness: out-of-range targets are no-ops, never panics

SEE ALSO:
  - rollover.go: automatic unset -> safe promotion
  - streak.go: consecutive safe-day derivation
  - persist/: snapshot validation and storage
*/
package board

import "time"

// =============================================================================
// STATUS - Daily safety state
// =============================================================================

// Status is the safety state recorded for a single calendar day.
type Status string

const (
	StatusUnset    Status = "unset"
	StatusSafe     Status = "safe"
	StatusNearMiss Status = "near_miss"
	StatusAccident Status = "accident"
)

// Next returns the status that follows s in the click cycle:
// unset -> safe -> near_miss -> accident -> unset.
func (s Status) Next() Status {
	switch s {
	case StatusUnset:
		return StatusSafe
	case StatusSafe:
		return StatusNearMiss
	case StatusNearMiss:
		return StatusAccident
	case StatusAccident:
		return StatusUnset
	default:
		return StatusUnset
	}
}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnset, StatusSafe, StatusNearMiss, StatusAccident:
		return true
	}
	return false
}

// =============================================================================
// CALENDAR MODEL - One year of daily statuses
// =============================================================================

// Day is a single calendar day and its recorded status.
type Day struct {
	Day    int    `json:"day"`
	Status Status `json:"status"`
}

// Month is one month of a year calendar. Month is zero-based (0 = January)
// to match the persisted document format.
type Month struct {
	Month int   `json:"month"`
	Year  int   `json:"year"`
	Days  []Day `json:"days"`
}

// YearCalendar is an ordered sequence of exactly twelve months.
type YearCalendar []Month

// DaysIn returns the number of days in the given zero-based month of year.
// Leap years are handled by time.Date day-zero normalization.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

// NewYearCalendar produces a fresh calendar for year: twelve months, each
// with the correct day count, every day unset.
func NewYearCalendar(year int) YearCalendar {
	cal := make(YearCalendar, 12)
	for m := 0; m < 12; m++ {
		n := DaysIn(year, m)
		days := make([]Day, n)
		for d := 0; d < n; d++ {
			days[d] = Day{Day: d + 1, Status: StatusUnset}
		}
		cal[m] = Month{Month: m, Year: year, Days: days}
	}
	return cal
}

// Validate reports whether candidate is structurally sound for year:
// exactly twelve months, each month's index and year matching, each with the
// true day count for that month, and every status one of the known four.
// Callers must fall back to NewYearCalendar when this returns false.
func Validate(candidate YearCalendar, year int) bool {
	if len(candidate) != 12 {
		return false
	}
	for m, month := range candidate {
		if month.Month != m || month.Year != year {
			return false
		}
		if len(month.Days) != DaysIn(year, m) {
			return false
		}
		for d, day := range month.Days {
			if day.Day != d+1 || !day.Status.Valid() {
				return false
			}
		}
	}
	return true
}

// StatusAt returns the status of the given day, or false if the month or
// day index is out of range.
func (c YearCalendar) StatusAt(monthIndex, day int) (Status, bool) {
	if monthIndex < 0 || monthIndex >= len(c) {
		return StatusUnset, false
	}
	if day < 1 || day > len(c[monthIndex].Days) {
		return StatusUnset, false
	}
	return c[monthIndex].Days[day-1].Status, true
}

// SetStatus returns a calendar with exactly one day's status changed.
// Out-of-range targets (a stale click racing a month change) are no-ops
// returning the input unchanged. Setting a day to its current status is
// also a no-op, so callers can detect change by reference comparison.
func SetStatus(cal YearCalendar, monthIndex, day int, status Status) YearCalendar {
	current, ok := cal.StatusAt(monthIndex, day)
	if !ok || current == status {
		return cal
	}

	next := make(YearCalendar, len(cal))
	copy(next, cal)

	days := make([]Day, len(cal[monthIndex].Days))
	copy(days, cal[monthIndex].Days)
	days[day-1].Status = status

	next[monthIndex].Days = days
	return next
}

// CycleStatus advances the given day's status one step through the click
// cycle. Out-of-range targets are no-ops.
func CycleStatus(cal YearCalendar, monthIndex, day int) YearCalendar {
	current, ok := cal.StatusAt(monthIndex, day)
	if !ok {
		return cal
	}
	return SetStatus(cal, monthIndex, day, current.Next())
}
