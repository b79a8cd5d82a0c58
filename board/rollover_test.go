package board_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfloor/safety-board/board"
)

func at(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

// =============================================================================
// AUTO-SAFE PROMOTION TESTS
// =============================================================================

func TestApplyAutoSafe_MidMarchMorning_PastDaysOnly(t *testing.T) {
	// GIVEN: An all-unset 2026 calendar, now = March 15 10:00 (before cutoff)
	// WHEN: Applying the auto-safe promotion
	// THEN: Jan, Feb and March 1-14 are safe; March 15 and everything after stay unset

	cal := board.NewYearCalendar(2026)
	result := board.ApplyAutoSafe(cal, at(2026, time.March, 15, 10), 2026)

	for m := 0; m < 2; m++ {
		for _, day := range result[m].Days {
			assert.Equal(t, board.StatusSafe, day.Status, "month %d day %d", m, day.Day)
		}
	}
	for _, day := range result[2].Days {
		if day.Day <= 14 {
			assert.Equal(t, board.StatusSafe, day.Status, "March %d", day.Day)
		} else {
			assert.Equal(t, board.StatusUnset, day.Status, "March %d", day.Day)
		}
	}
	for m := 3; m < 12; m++ {
		for _, day := range result[m].Days {
			assert.Equal(t, board.StatusUnset, day.Status, "month %d day %d", m, day.Day)
		}
	}
}

func TestApplyAutoSafe_AtCutoff_TodayBecomesSafe(t *testing.T) {
	cal := board.NewYearCalendar(2026)
	result := board.ApplyAutoSafe(cal, at(2026, time.March, 15, 16), 2026)

	got, ok := result.StatusAt(2, 15)
	require.True(t, ok)
	assert.Equal(t, board.StatusSafe, got)

	// Tomorrow is still undecided
	got, _ = result.StatusAt(2, 16)
	assert.Equal(t, board.StatusUnset, got)
}

func TestApplyAutoSafe_DecidedDaysNeverTouched(t *testing.T) {
	// GIVEN: A past accident and a past near miss
	cal := board.NewYearCalendar(2026)
	cal = board.SetStatus(cal, 0, 5, board.StatusAccident)
	cal = board.SetStatus(cal, 0, 20, board.StatusNearMiss)

	result := board.ApplyAutoSafe(cal, at(2026, time.March, 15, 10), 2026)

	got, _ := result.StatusAt(0, 5)
	assert.Equal(t, board.StatusAccident, got)
	got, _ = result.StatusAt(0, 20)
	assert.Equal(t, board.StatusNearMiss, got)
	got, _ = result.StatusAt(0, 6)
	assert.Equal(t, board.StatusSafe, got)
}

func TestApplyAutoSafe_Idempotent_SecondPassReturnsSameReference(t *testing.T) {
	// The second application must change nothing and return the same
	// calendar reference, so callers can detect change cheaply.

	now := at(2026, time.March, 15, 16)
	cal := board.NewYearCalendar(2026)

	once := board.ApplyAutoSafe(cal, now, 2026)
	twice := board.ApplyAutoSafe(once, now, 2026)

	assert.Equal(t, once, twice)
	require.NotEmpty(t, twice)
	assert.Same(t, &once[0], &twice[0])
}

func TestApplyAutoSafe_YearMismatch_NoOp(t *testing.T) {
	cal := board.NewYearCalendar(2026)
	result := board.ApplyAutoSafe(cal, at(2027, time.January, 2, 10), 2026)

	assert.Same(t, &cal[0], &result[0])
}

func TestApplyAutoSafe_InputUntouched(t *testing.T) {
	// Copy-on-write: the input calendar must be observably unchanged.
	cal := board.NewYearCalendar(2026)
	_ = board.ApplyAutoSafe(cal, at(2026, time.June, 1, 10), 2026)

	for _, month := range cal {
		for _, day := range month.Days {
			assert.Equal(t, board.StatusUnset, day.Status)
		}
	}
}
