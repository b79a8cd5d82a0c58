/*
Package persist owns reading and writing the per-year board snapshot.

PURPOSE:

	A snapshot is one JSON document holding everything the dashboard
	displays for a calendar year: the status calendar, announcements,
	metrics, posters, and the man-hour target state. The document is
	external untrusted input (a prior version of the software, a restored
	backup, or a corrupted write may have produced it), so every field is
	validated independently and replaced with its documented default on
	failure. Partial corruption degrades gracefully: a broken
	announcements list never invalidates a valid calendar.

OWNERSHIP:

	This package exclusively owns the stored document. Other components
	only ever see the decoded in-memory forms.

SEE ALSO:
  - saver.go: debounced best-effort writes
  - board/calendar.go: calendar structural validation
  - store/sqlite: raw document storage
*/
package persist

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopfloor/safety-board/board"
)

// Zoom bounds for poster and policy images. Stored zooms outside this range
// are clamped, not trusted.
const (
	MinZoom     = 0.5
	MaxZoom     = 2.5
	DefaultZoom = 1.0
)

// MaxPolicyImages caps the policy image strip.
const MaxPolicyImages = 2

// SnapshotStore is the storage the reconciler reads and writes. Implemented
// by store/sqlite.Store.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context, year int) ([]byte, error)
	SaveSnapshot(ctx context.Context, year int, doc []byte) error
}

// Snapshot is the full serializable board state for one calendar year.
// Field names match the persisted document format.
type Snapshot struct {
	MonthlyData       board.YearCalendar   `json:"monthlyData"`
	Announcements     []board.Announcement `json:"announcements"`
	PosterTop         *string              `json:"posterTop"`
	PosterBottom      *string              `json:"posterBottom"`
	PosterTopZoom     float64              `json:"posterTopZoom"`
	PosterBottomZoom  float64              `json:"posterBottomZoom"`
	PolicyImages      []string             `json:"policyImages"`
	PolicyZoom        float64              `json:"policyZoom"`
	TargetVars        board.TargetVars     `json:"targetVars"`
	TargetFormulas    board.TargetFormulas `json:"targetFormulas"`
	BestRecord        float64              `json:"bestRecord"`
	LossTimeAccidents float64              `json:"lossTimeAccidents"`
	LastUpdateIso     string               `json:"lastUpdateIso"`
	Metrics           []board.Metric       `json:"metrics"`
}

// Default returns the snapshot a fresh year starts with.
func Default(year int) Snapshot {
	defaults := board.DefaultTargetState()
	return Snapshot{
		MonthlyData:      board.NewYearCalendar(year),
		Announcements:    board.DefaultAnnouncements(),
		PosterTopZoom:    DefaultZoom,
		PosterBottomZoom: DefaultZoom,
		PolicyZoom:       DefaultZoom,
		TargetVars:       defaults.Vars,
		TargetFormulas:   defaults.Formulas,
		Metrics:          board.DefaultMetrics(),
	}
}

// TargetState assembles the board-level target state from the snapshot's
// persisted fields.
func (s Snapshot) TargetState() board.TargetState {
	lastUpdate, _ := time.Parse(time.RFC3339, s.LastUpdateIso)
	return board.TargetState{
		Vars:              s.TargetVars,
		Formulas:          s.TargetFormulas,
		BestRecord:        s.BestRecord,
		LossTimeAccidents: s.LossTimeAccidents,
		LastUpdate:        lastUpdate,
	}
}

// Load reads and reconciles the snapshot for year. A missing document, a
// storage read error, or unparseable JSON all yield the full default; a
// parseable document is reconciled field by field.
func Load(ctx context.Context, store SnapshotStore, year int) Snapshot {
	raw, err := store.LoadSnapshot(ctx, year)
	if err != nil || len(raw) == 0 {
		return Default(year)
	}
	return Decode(raw, year)
}

// Encode serializes the snapshot document.
func Encode(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// Decode reconciles a raw stored document against the expected shape for
// year. It never fails: each entity is validated independently and replaced
// with its default when absent or malformed.
func Decode(raw []byte, year int) Snapshot {
	snap := Default(year)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return snap
	}

	var calendar board.YearCalendar
	if decodeField(fields, "monthlyData", &calendar) && board.Validate(calendar, year) {
		snap.MonthlyData = calendar
	}

	var announcements []board.Announcement
	if decodeField(fields, "announcements", &announcements) {
		snap.Announcements = validAnnouncements(announcements)
	}

	var metrics []board.Metric
	if decodeField(fields, "metrics", &metrics) {
		snap.Metrics = validMetrics(metrics)
	}

	var poster *string
	if decodeField(fields, "posterTop", &poster) {
		snap.PosterTop = poster
	}
	poster = nil
	if decodeField(fields, "posterBottom", &poster) {
		snap.PosterBottom = poster
	}

	var zoom float64
	if decodeField(fields, "posterTopZoom", &zoom) {
		snap.PosterTopZoom = ClampZoom(zoom)
	}
	if decodeField(fields, "posterBottomZoom", &zoom) {
		snap.PosterBottomZoom = ClampZoom(zoom)
	}
	if decodeField(fields, "policyZoom", &zoom) {
		snap.PolicyZoom = ClampZoom(zoom)
	}

	var images []string
	if decodeField(fields, "policyImages", &images) {
		if len(images) > MaxPolicyImages {
			images = images[:MaxPolicyImages]
		}
		snap.PolicyImages = images
	}

	var vars board.TargetVars
	if decodeField(fields, "targetVars", &vars) {
		snap.TargetVars = ClampVars(vars)
	}

	var formulas board.TargetFormulas
	if decodeField(fields, "targetFormulas", &formulas) {
		snap.TargetFormulas = formulas
	}

	var number float64
	if decodeField(fields, "bestRecord", &number) && number >= 0 {
		snap.BestRecord = number
	}
	if decodeField(fields, "lossTimeAccidents", &number) && number >= 0 {
		snap.LossTimeAccidents = number
	}

	var iso string
	if decodeField(fields, "lastUpdateIso", &iso) {
		if _, err := time.Parse(time.RFC3339, iso); err == nil {
			snap.LastUpdateIso = iso
		}
	}

	return snap
}

// decodeField unmarshals one entity of the document, reporting false when
// the field is absent or does not match the expected shape.
func decodeField(fields map[string]json.RawMessage, key string, out any) bool {
	raw, ok := fields[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// ClampZoom coerces a stored zoom level into the allowed range. Zero and
// negative values (including unmarshal defaults) fall back to 1.0.
func ClampZoom(zoom float64) float64 {
	if zoom <= 0 {
		return DefaultZoom
	}
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}

// ClampVars coerces stored target variables into range: negatives become 0.
func ClampVars(vars board.TargetVars) board.TargetVars {
	vars.Manpower = nonNegative(vars.Manpower)
	vars.DaysPerWeek = nonNegative(vars.DaysPerWeek)
	vars.HoursPerDay = nonNegative(vars.HoursPerDay)
	vars.WorkingDaysYear = nonNegative(vars.WorkingDaysYear)
	vars.WorkingDaysSoFar = nonNegative(vars.WorkingDaysSoFar)
	return vars
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// validAnnouncements drops entries without an id; text may be empty.
func validAnnouncements(in []board.Announcement) []board.Announcement {
	out := make([]board.Announcement, 0, len(in))
	for _, a := range in {
		if a.ID != "" {
			out = append(out, a)
		}
	}
	return out
}

func validMetrics(in []board.Metric) []board.Metric {
	out := make([]board.Metric, 0, len(in))
	for _, m := range in {
		if m.ID != "" {
			out = append(out, m)
		}
	}
	return out
}
