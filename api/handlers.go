/*
handlers.go - HTTP API handlers for the safety board

PURPOSE:

	Exposes the board state layer via REST API. Handles HTTP
	request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:

	State:
	  GET    /api/state                  Full year snapshot + derived figures

	Calendar:
	  POST   /api/calendar/cycle         Advance a day through the click cycle
	  PUT    /api/calendar/day           Set a day's status directly

	Announcements / Metrics:
	  GET/POST /api/announcements        List / append ticker entries
	  PUT/DELETE /api/announcements/{id}
	  GET/POST /api/metrics              List / append grid entries
	  PUT/DELETE /api/metrics/{id}

	Target:
	  GET    /api/target                 Evaluated man-hour targets
	  PUT    /api/target/vars            Update formula variables
	  PUT    /api/target/formulas        Update formula expressions
	  PUT    /api/target/records         Update best record / LTA count

	Posters / Prefs:
	  PUT    /api/posters/{slot}         Set or clear poster image(s)
	  PUT    /api/posters/{slot}/zoom    Set slot zoom (clamped)
	  GET/PUT /api/prefs/font-scale      Kiosk font-scale preference

	Misc:
	  GET    /api/streak                 Accident-free streak
	  GET    /api/holidays               Static holiday labels
	  POST   /api/admin/rollover         Run auto-safe promotion now

ARCHITECTURE:

	Handler owns the in-memory state for the current year behind a mutex.
	Every mutation goes through the copy-on-write board functions and
	schedules a debounced snapshot write. The kiosk must never see a 5xx
	for a recoverable condition: out-of-range mutation targets are no-ops
	and invalid formulas surface as null figures.

YEAR ROLLOVER:

	Every state access re-checks the wall-clock year; crossing into a new
	year loads (or freshly creates) that year's snapshot and backfills it
	through the auto-safe promotion.

SEE ALSO:
  - dto.go: Request/response data structures
  - scheduler.go: Daily cutoff-hour timer
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopfloor/safety-board/board"
	"github.com/shopfloor/safety-board/persist"
	"github.com/shopfloor/safety-board/store/sqlite"
)

// fontScaleKey is the preference key for the kiosk font scale, persisted
// independently of the year snapshots.
const fontScaleKey = "font_scale"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers and owns the in-memory
// board state for the current year.
type Handler struct {
	Store *sqlite.Store
	Saver *persist.Saver

	mu   sync.Mutex
	year int
	snap persist.Snapshot

	// now is a seam for tests; production uses time.Now.
	now func() time.Time
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store: store,
		Saver: persist.NewSaver(store, persist.DefaultDebounce),
		now:   time.Now,
	}
}

// LoadState loads the current year's snapshot and backfills stale unset
// days synchronously, so the board is correct before the first request and
// before the first scheduled rollover fire.
func (h *Handler) LoadState() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloadLocked(h.now())
}

// Close stops the debounced saver, flushing any pending write.
func (h *Handler) Close() {
	h.Saver.Stop()
}

func (h *Handler) reloadLocked(now time.Time) {
	year := now.Year()
	snap := persist.Load(context.Background(), h.Store, year)

	promoted := board.ApplyAutoSafe(snap.MonthlyData, now, year)
	changed := calendarChanged(snap.MonthlyData, promoted)
	snap.MonthlyData = promoted

	h.year = year
	h.snap = snap
	if changed {
		h.Saver.Schedule(year, snap)
	}
}

// ensureYearLocked reloads state when the wall-clock year has rolled over
// since the last access.
func (h *Handler) ensureYearLocked(now time.Time) {
	if now.Year() != h.year {
		h.reloadLocked(now)
	}
}

func (h *Handler) scheduleSaveLocked() {
	h.Saver.Schedule(h.year, h.snap)
}

// RunRollover applies the auto-safe promotion at the given moment and
// persists any change. Returns whether anything changed. Called by the
// scheduler on each cutoff fire and by the admin endpoint.
func (h *Handler) RunRollover(now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ensureYearLocked(now)
	promoted := board.ApplyAutoSafe(h.snap.MonthlyData, now, h.year)
	if !calendarChanged(h.snap.MonthlyData, promoted) {
		return false
	}
	h.snap.MonthlyData = promoted
	h.scheduleSaveLocked()
	return true
}

// calendarChanged reports whether ApplyAutoSafe/SetStatus returned a new
// calendar. The board functions return the same reference when nothing
// changed, so reference equality is sufficient.
func calendarChanged(before, after board.YearCalendar) bool {
	if len(before) != len(after) {
		return true
	}
	return len(before) > 0 && &before[0] != &after[0]
}

// =============================================================================
// STATE
// =============================================================================

// GetState returns the full snapshot plus derived figures in one payload.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	now := h.now()
	h.ensureYearLocked(now)
	dto := StateDTO{
		Year:             h.year,
		Calendar:         h.snap.MonthlyData,
		Announcements:    h.snap.Announcements,
		Metrics:          h.snap.Metrics,
		PosterTop:        h.snap.PosterTop,
		PosterBottom:     h.snap.PosterBottom,
		PosterTopZoom:    h.snap.PosterTopZoom,
		PosterBottomZoom: h.snap.PosterBottomZoom,
		PolicyImages:     h.snap.PolicyImages,
		PolicyZoom:       h.snap.PolicyZoom,
		Target:           h.targetDTOLocked(),
		Streak:           board.SafeStreak(h.snap.MonthlyData, now, h.year),
	}
	h.mu.Unlock()

	dto.FontScale = h.loadFontScale(r)
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// CycleDay advances one day's status through the click cycle. Out-of-range
// targets are no-ops returning the current calendar.
func (h *Handler) CycleDay(w http.ResponseWriter, r *http.Request) {
	var req CycleDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	now := h.now()
	h.ensureYearLocked(now)
	next := board.CycleStatus(h.snap.MonthlyData, req.Month, req.Day)
	if calendarChanged(h.snap.MonthlyData, next) {
		h.snap.MonthlyData = next
		h.scheduleSaveLocked()
	}
	dto := h.calendarDTOLocked(now)
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, dto)
}

// SetDay sets one day's status directly.
func (h *Handler) SetDay(w http.ResponseWriter, r *http.Request) {
	var req SetDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown status", nil)
		return
	}

	h.mu.Lock()
	now := h.now()
	h.ensureYearLocked(now)
	next := board.SetStatus(h.snap.MonthlyData, req.Month, req.Day, req.Status)
	if calendarChanged(h.snap.MonthlyData, next) {
		h.snap.MonthlyData = next
		h.scheduleSaveLocked()
	}
	dto := h.calendarDTOLocked(now)
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) calendarDTOLocked(now time.Time) CalendarDTO {
	return CalendarDTO{
		Year:     h.year,
		Calendar: h.snap.MonthlyData,
		Streak:   board.SafeStreak(h.snap.MonthlyData, now, h.year),
	}
}

// GetStreak returns the standalone accident-free streak.
func (h *Handler) GetStreak(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	now := h.now()
	h.ensureYearLocked(now)
	streak := board.SafeStreak(h.snap.MonthlyData, now, h.year)
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, StreakDTO{Streak: streak})
}

// =============================================================================
// ANNOUNCEMENT HANDLERS
// =============================================================================

// ListAnnouncements returns the ticker entries in display order.
func (h *Handler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.ensureYearLocked(h.now())
	list := h.snap.Announcements
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, list)
}

// CreateAnnouncement appends a ticker entry.
func (h *Handler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req AnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ann := board.Announcement{ID: uuid.NewString(), Text: req.Text}

	h.mu.Lock()
	h.ensureYearLocked(h.now())
	list := make([]board.Announcement, 0, len(h.snap.Announcements)+1)
	list = append(list, h.snap.Announcements...)
	h.snap.Announcements = append(list, ann)
	h.scheduleSaveLocked()
	h.mu.Unlock()

	writeJSON(w, http.StatusCreated, ann)
}

// UpdateAnnouncement replaces an entry's text, keeping its position.
func (h *Handler) UpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req AnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	h.ensureYearLocked(h.now())
	updated, found := updateAnnouncement(h.snap.Announcements, id, req.Text)
	if found {
		h.snap.Announcements = updated
		h.scheduleSaveLocked()
	}
	h.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "Announcement not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, board.Announcement{ID: id, Text: req.Text})
}

// DeleteAnnouncement removes an entry.
func (h *Handler) DeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	h.ensureYearLocked(h.now())
	filtered, found := removeAnnouncement(h.snap.Announcements, id)
	if found {
		h.snap.Announcements = filtered
		h.scheduleSaveLocked()
	}
	h.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "Announcement not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func updateAnnouncement(list []board.Announcement, id, text string) ([]board.Announcement, bool) {
	for i := range list {
		if list[i].ID == id {
			next := make([]board.Announcement, len(list))
			copy(next, list)
			next[i].Text = text
			return next, true
		}
	}
	return list, false
}

func removeAnnouncement(list []board.Announcement, id string) ([]board.Announcement, bool) {
	next := make([]board.Announcement, 0, len(list))
	found := false
	for _, a := range list {
		if a.ID == id {
			found = true
			continue
		}
		next = append(next, a)
	}
	return next, found
}

// =============================================================================
// METRIC HANDLERS
// =============================================================================

// ListMetrics returns the metrics grid entries in display order.
func (h *Handler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.ensureYearLocked(h.now())
	list := h.snap.Metrics
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, list)
}

// CreateMetric appends a grid entry.
func (h *Handler) CreateMetric(w http.ResponseWriter, r *http.Request) {
	var req MetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	metric := board.Metric{ID: uuid.NewString(), Label: req.Label, Value: req.Value, Unit: req.Unit}

	h.mu.Lock()
	h.ensureYearLocked(h.now())
	list := make([]board.Metric, 0, len(h.snap.Metrics)+1)
	list = append(list, h.snap.Metrics...)
	h.snap.Metrics = append(list, metric)
	h.scheduleSaveLocked()
	h.mu.Unlock()

	writeJSON(w, http.StatusCreated, metric)
}

// UpdateMetric replaces an entry's fields, keeping its position.
func (h *Handler) UpdateMetric(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req MetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	h.ensureYearLocked(h.now())
	updated, found := updateMetric(h.snap.Metrics, id, req)
	if found {
		h.snap.Metrics = updated
		h.scheduleSaveLocked()
	}
	h.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "Metric not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, board.Metric{ID: id, Label: req.Label, Value: req.Value, Unit: req.Unit})
}

// DeleteMetric removes an entry.
func (h *Handler) DeleteMetric(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	h.ensureYearLocked(h.now())
	filtered, found := removeMetric(h.snap.Metrics, id)
	if found {
		h.snap.Metrics = filtered
		h.scheduleSaveLocked()
	}
	h.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "Metric not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func updateMetric(list []board.Metric, id string, req MetricRequest) ([]board.Metric, bool) {
	for i := range list {
		if list[i].ID == id {
			next := make([]board.Metric, len(list))
			copy(next, list)
			next[i].Label = req.Label
			next[i].Value = req.Value
			next[i].Unit = req.Unit
			return next, true
		}
	}
	return list, false
}

func removeMetric(list []board.Metric, id string) ([]board.Metric, bool) {
	next := make([]board.Metric, 0, len(list))
	found := false
	for _, m := range list {
		if m.ID == id {
			found = true
			continue
		}
		next = append(next, m)
	}
	return next, found
}

// =============================================================================
// TARGET HANDLERS
// =============================================================================

// GetTarget returns the evaluated man-hour target panel.
func (h *Handler) GetTarget(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.ensureYearLocked(h.now())
	dto := h.targetDTOLocked()
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, dto)
}

// UpdateTargetVars replaces the formula variables.
func (h *Handler) UpdateTargetVars(w http.ResponseWriter, r *http.Request) {
	var req board.TargetVars
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	now := h.now()
	h.ensureYearLocked(now)
	h.snap.TargetVars = persist.ClampVars(req)
	h.snap.LastUpdateIso = now.Format(time.RFC3339)
	h.scheduleSaveLocked()
	dto := h.targetDTOLocked()
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, dto)
}

// UpdateTargetFormulas replaces the formula expressions. Invalid expressions
// are accepted and stored; they simply evaluate to null figures.
func (h *Handler) UpdateTargetFormulas(w http.ResponseWriter, r *http.Request) {
	var req board.TargetFormulas
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	now := h.now()
	h.ensureYearLocked(now)
	h.snap.TargetFormulas = req
	h.snap.LastUpdateIso = now.Format(time.RFC3339)
	h.scheduleSaveLocked()
	dto := h.targetDTOLocked()
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, dto)
}

// UpdateTargetRecords replaces the best record and loss-time accident count.
func (h *Handler) UpdateTargetRecords(w http.ResponseWriter, r *http.Request) {
	var req TargetRecordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	now := h.now()
	h.ensureYearLocked(now)
	if req.BestRecord >= 0 {
		h.snap.BestRecord = req.BestRecord
	}
	if req.LossTimeAccidents >= 0 {
		h.snap.LossTimeAccidents = req.LossTimeAccidents
	}
	h.snap.LastUpdateIso = now.Format(time.RFC3339)
	h.scheduleSaveLocked()
	dto := h.targetDTOLocked()
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) targetDTOLocked() TargetDTO {
	result := board.ComputeTargets(h.snap.TargetState())
	dto := TargetDTO{
		Vars:              h.snap.TargetVars,
		Formulas:          h.snap.TargetFormulas,
		BestRecord:        h.snap.BestRecord,
		LossTimeAccidents: h.snap.LossTimeAccidents,
		LastUpdateIso:     h.snap.LastUpdateIso,
	}
	if result.TotalValid {
		total := result.Total.String()
		dto.Total = &total
	}
	if result.ToDateValid {
		toDate := result.ToDate.String()
		dto.ToDate = &toDate
	}
	return dto
}

// =============================================================================
// POSTER HANDLERS
// =============================================================================

// SetPoster sets or clears a poster slot. Slots "top" and "bottom" hold a
// single image; "policy" holds a strip of up to two.
func (h *Handler) SetPoster(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")

	switch slot {
	case "top", "bottom":
		var req PosterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		h.mu.Lock()
		h.ensureYearLocked(h.now())
		if slot == "top" {
			h.snap.PosterTop = req.Image
		} else {
			h.snap.PosterBottom = req.Image
		}
		h.scheduleSaveLocked()
		h.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	case "policy":
		var req PolicyImagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		images := req.Images
		if len(images) > persist.MaxPolicyImages {
			images = images[:persist.MaxPolicyImages]
		}
		h.mu.Lock()
		h.ensureYearLocked(h.now())
		h.snap.PolicyImages = images
		h.scheduleSaveLocked()
		h.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusNotFound, "Unknown poster slot", nil)
	}
}

// SetPosterZoom sets a slot's zoom level, clamped to the allowed range.
func (h *Handler) SetPosterZoom(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	var req ZoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	zoom := persist.ClampZoom(req.Zoom)

	h.mu.Lock()
	h.ensureYearLocked(h.now())
	switch slot {
	case "top":
		h.snap.PosterTopZoom = zoom
	case "bottom":
		h.snap.PosterBottomZoom = zoom
	case "policy":
		h.snap.PolicyZoom = zoom
	default:
		h.mu.Unlock()
		writeError(w, http.StatusNotFound, "Unknown poster slot", nil)
		return
	}
	h.scheduleSaveLocked()
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, ZoomRequest{Zoom: zoom})
}

// =============================================================================
// PREFERENCE HANDLERS
// =============================================================================

// GetFontScale returns the kiosk font-scale preference.
func (h *Handler) GetFontScale(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FontScaleDTO{Scale: h.loadFontScale(r)})
}

// SetFontScale stores the kiosk font-scale preference, clamped. The write
// is direct (not debounced): the preference is a single scalar keyed
// independently of the year snapshots.
func (h *Handler) SetFontScale(w http.ResponseWriter, r *http.Request) {
	var req FontScaleDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	scale := persist.ClampZoom(req.Scale)

	// Best-effort: a failed preference write must not break the kiosk.
	_ = h.Store.SetPreference(r.Context(), fontScaleKey, strconv.FormatFloat(scale, 'f', -1, 64))

	writeJSON(w, http.StatusOK, FontScaleDTO{Scale: scale})
}

func (h *Handler) loadFontScale(r *http.Request) float64 {
	value, ok, err := h.Store.GetPreference(r.Context(), fontScaleKey)
	if err != nil || !ok {
		return persist.DefaultZoom
	}
	scale, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return persist.DefaultZoom
	}
	return persist.ClampZoom(scale)
}

// =============================================================================
// MISC HANDLERS
// =============================================================================

// ListHolidays returns the static holiday table for the current board year.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.ensureYearLocked(h.now())
	list := board.Holidays(h.year)
	h.mu.Unlock()

	if list == nil {
		list = []board.Holiday{}
	}
	writeJSON(w, http.StatusOK, list)
}

// TriggerRollover runs the auto-safe promotion immediately.
func (h *Handler) TriggerRollover(w http.ResponseWriter, r *http.Request) {
	changed := h.RunRollover(h.now())
	writeJSON(w, http.StatusOK, RolloverResponse{Changed: changed})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
