/*
handlers_test.go - Unit tests for API handlers

Tests run against a real router and an in-memory store, with the
handler clock pinned so cutoff and streak behavior is deterministic.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfloor/safety-board/board"
	"github.com/shopfloor/safety-board/persist"
	"github.com/shopfloor/safety-board/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	handler *Handler
	router  http.Handler
	now     time.Time
}

func newFixture(t *testing.T, now time.Time) *fixture {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{now: now}
	f.handler = NewHandler(store)
	f.handler.now = func() time.Time { return f.now }
	f.handler.LoadState()
	t.Cleanup(f.handler.Close)

	f.router = NewRouter(f.handler)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func marchMorning() time.Time {
	return time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
}

// =============================================================================
// STATE & BACKFILL TESTS
// =============================================================================

func TestGetState_BackfillPromotesPastDays(t *testing.T) {
	// GIVEN: A fresh database, now = March 15 10:00 (before cutoff)
	f := newFixture(t, marchMorning())

	rec := f.do(t, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeBody[StateDTO](t, rec)

	assert.Equal(t, 2026, state.Year)
	// March 14 promoted, March 15 still undecided
	status, _ := state.Calendar.StatusAt(2, 14)
	assert.Equal(t, board.StatusSafe, status)
	status, _ = state.Calendar.StatusAt(2, 15)
	assert.Equal(t, board.StatusUnset, status)
	// Jan 1 .. Mar 14 = 73 consecutive safe days
	assert.Equal(t, 73, state.Streak)
	assert.Equal(t, board.DefaultAnnouncements(), state.Announcements)
	assert.Equal(t, persist.DefaultZoom, state.FontScale)
}

func TestLoadState_PersistsBackfillThroughRestart(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store)
	h.now = marchMorning
	h.LoadState()
	h.Close() // flushes the debounced backfill write

	raw, err := store.LoadSnapshot(context.Background(), 2026)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	loaded := persist.Decode(raw, 2026)
	status, _ := loaded.MonthlyData.StatusAt(2, 14)
	assert.Equal(t, board.StatusSafe, status)
}

// =============================================================================
// CALENDAR TESTS
// =============================================================================

func TestCycleDay_AdvancesStatus(t *testing.T) {
	f := newFixture(t, marchMorning())

	// March 20 is future and unset; one cycle makes it safe
	rec := f.do(t, http.MethodPost, "/api/calendar/cycle", CycleDayRequest{Month: 2, Day: 20})
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decodeBody[CalendarDTO](t, rec)

	status, _ := dto.Calendar.StatusAt(2, 20)
	assert.Equal(t, board.StatusSafe, status)

	rec = f.do(t, http.MethodPost, "/api/calendar/cycle", CycleDayRequest{Month: 2, Day: 20})
	dto = decodeBody[CalendarDTO](t, rec)
	status, _ = dto.Calendar.StatusAt(2, 20)
	assert.Equal(t, board.StatusNearMiss, status)
}

func TestCycleDay_OutOfRange_NoOpNotError(t *testing.T) {
	f := newFixture(t, marchMorning())

	rec := f.do(t, http.MethodPost, "/api/calendar/cycle", CycleDayRequest{Month: 7, Day: 32})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/calendar/cycle", CycleDayRequest{Month: 12, Day: 1})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetDay_DirectStatus(t *testing.T) {
	f := newFixture(t, marchMorning())

	rec := f.do(t, http.MethodPut, "/api/calendar/day",
		SetDayRequest{Month: 2, Day: 10, Status: board.StatusAccident})
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decodeBody[CalendarDTO](t, rec)

	status, _ := dto.Calendar.StatusAt(2, 10)
	assert.Equal(t, board.StatusAccident, status)
	// Accident on March 10 limits the streak to March 11-14
	assert.Equal(t, 4, dto.Streak)
}

func TestSetDay_UnknownStatus_BadRequest(t *testing.T) {
	f := newFixture(t, marchMorning())

	rec := f.do(t, http.MethodPut, "/api/calendar/day",
		map[string]any{"month": 2, "day": 10, "status": "splendid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// ROLLOVER TESTS
// =============================================================================

func TestTriggerRollover_AfterCutoff_PromotesToday(t *testing.T) {
	f := newFixture(t, marchMorning())

	// Before cutoff: nothing left to promote after the load backfill
	rec := f.do(t, http.MethodPost, "/api/admin/rollover", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[RolloverResponse](t, rec).Changed)

	// Clock passes the cutoff
	f.now = time.Date(2026, time.March, 15, 16, 0, 0, 0, time.UTC)
	rec = f.do(t, http.MethodPost, "/api/admin/rollover", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[RolloverResponse](t, rec).Changed)

	rec = f.do(t, http.MethodGet, "/api/state", nil)
	state := decodeBody[StateDTO](t, rec)
	status, _ := state.Calendar.StatusAt(2, 15)
	assert.Equal(t, board.StatusSafe, status)
}

// =============================================================================
// ANNOUNCEMENT TESTS
// =============================================================================

func TestAnnouncements_CRUDKeepsOrder(t *testing.T) {
	f := newFixture(t, marchMorning())

	first := decodeBody[board.Announcement](t,
		f.do(t, http.MethodPost, "/api/announcements/", AnnouncementRequest{Text: "wear gloves"}))
	second := decodeBody[board.Announcement](t,
		f.do(t, http.MethodPost, "/api/announcements/", AnnouncementRequest{Text: "fire drill monday"}))
	require.NotEmpty(t, first.ID)
	require.NotEqual(t, first.ID, second.ID)

	rec := f.do(t, http.MethodGet, "/api/announcements/", nil)
	list := decodeBody[[]board.Announcement](t, rec)
	require.Len(t, list, len(board.DefaultAnnouncements())+2)
	assert.Equal(t, "wear gloves", list[len(list)-2].Text)
	assert.Equal(t, "fire drill monday", list[len(list)-1].Text)

	// Update keeps position
	rec = f.do(t, http.MethodPut, "/api/announcements/"+first.ID, AnnouncementRequest{Text: "wear gloves and goggles"})
	require.Equal(t, http.StatusOK, rec.Code)
	list = decodeBody[[]board.Announcement](t, f.do(t, http.MethodGet, "/api/announcements/", nil))
	assert.Equal(t, "wear gloves and goggles", list[len(list)-2].Text)

	// Delete
	rec = f.do(t, http.MethodDelete, "/api/announcements/"+second.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	list = decodeBody[[]board.Announcement](t, f.do(t, http.MethodGet, "/api/announcements/", nil))
	assert.Len(t, list, len(board.DefaultAnnouncements())+1)
}

func TestAnnouncements_UpdateMissing_NotFound(t *testing.T) {
	f := newFixture(t, marchMorning())

	rec := f.do(t, http.MethodPut, "/api/announcements/no-such-id", AnnouncementRequest{Text: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// METRIC TESTS
// =============================================================================

func TestMetrics_CreateAndUpdate(t *testing.T) {
	f := newFixture(t, marchMorning())

	created := decodeBody[board.Metric](t, f.do(t, http.MethodPost, "/api/metrics/",
		MetricRequest{Label: "Safety Walks", Value: "12", Unit: "walks"}))
	require.NotEmpty(t, created.ID)

	rec := f.do(t, http.MethodPut, "/api/metrics/"+created.ID,
		MetricRequest{Label: "Safety Walks", Value: "13", Unit: "walks"})
	require.Equal(t, http.StatusOK, rec.Code)

	list := decodeBody[[]board.Metric](t, f.do(t, http.MethodGet, "/api/metrics/", nil))
	assert.Equal(t, "13", list[len(list)-1].Value)
}

// =============================================================================
// TARGET TESTS
// =============================================================================

func TestGetTarget_DefaultFormulasEvaluate(t *testing.T) {
	f := newFixture(t, marchMorning())

	dto := decodeBody[TargetDTO](t, f.do(t, http.MethodGet, "/api/target/", nil))
	require.NotNil(t, dto.Total)
	assert.Equal(t, "1620000", *dto.Total)
}

func TestUpdateTargetFormulas_InvalidFormula_NullFigureNotError(t *testing.T) {
	f := newFixture(t, marchMorning())

	rec := f.do(t, http.MethodPut, "/api/target/formulas",
		board.TargetFormulas{TotalExpr: "import(1)", ToDateExpr: "manpower * hoursPerDay * workingDaysSoFar"})
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decodeBody[TargetDTO](t, rec)

	assert.Nil(t, dto.Total)
	assert.NotNil(t, dto.ToDate)
	assert.NotEmpty(t, dto.LastUpdateIso)
}

func TestUpdateTargetVars_NegativesClamped(t *testing.T) {
	f := newFixture(t, marchMorning())

	rec := f.do(t, http.MethodPut, "/api/target/vars",
		board.TargetVars{Manpower: -10, DaysPerWeek: 6, HoursPerDay: 8, WorkingDaysYear: 300})
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decodeBody[TargetDTO](t, rec)

	assert.Equal(t, 0.0, dto.Vars.Manpower)
	require.NotNil(t, dto.Total)
	assert.Equal(t, "0", *dto.Total)
}

// =============================================================================
// POSTER & PREFERENCE TESTS
// =============================================================================

func TestSetPoster_PolicySlotTruncatedToTwo(t *testing.T) {
	f := newFixture(t, marchMorning())

	rec := f.do(t, http.MethodPut, "/api/posters/policy",
		PolicyImagesRequest{Images: []string{"a", "b", "c"}})
	require.Equal(t, http.StatusNoContent, rec.Code)

	state := decodeBody[StateDTO](t, f.do(t, http.MethodGet, "/api/state", nil))
	assert.Equal(t, []string{"a", "b"}, state.PolicyImages)
}

func TestSetPoster_UnknownSlot_NotFound(t *testing.T) {
	f := newFixture(t, marchMorning())

	rec := f.do(t, http.MethodPut, "/api/posters/sideways", PosterRequest{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetPosterZoom_Clamped(t *testing.T) {
	f := newFixture(t, marchMorning())

	rec := f.do(t, http.MethodPut, "/api/posters/top/zoom", ZoomRequest{Zoom: 99})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, persist.MaxZoom, decodeBody[ZoomRequest](t, rec).Zoom)
}

func TestFontScale_PersistsAndClamps(t *testing.T) {
	f := newFixture(t, marchMorning())

	rec := f.do(t, http.MethodPut, "/api/prefs/font-scale", FontScaleDTO{Scale: 0.1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, persist.MinZoom, decodeBody[FontScaleDTO](t, rec).Scale)

	rec = f.do(t, http.MethodGet, "/api/prefs/font-scale", nil)
	assert.Equal(t, persist.MinZoom, decodeBody[FontScaleDTO](t, rec).Scale)
}

// =============================================================================
// HOLIDAY TESTS
// =============================================================================

func TestListHolidays_CoveredYear(t *testing.T) {
	f := newFixture(t, marchMorning())

	list := decodeBody[[]board.Holiday](t, f.do(t, http.MethodGet, "/api/holidays", nil))
	require.NotEmpty(t, list)
	assert.Equal(t, "2026-01-01", list[0].Date)
}
