/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:

	Defines the JSON structures for API communication. These types decouple
	the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:

	Validation is done in handlers, not in DTOs. DTOs are pure data
	carriers. Out-of-range calendar targets are deliberately NOT rejected
	here: per the mutation contract they degrade to no-ops.

SEE ALSO:
  - handlers.go: Uses these types
  - persist/snapshot.go: the persisted document the state DTO mirrors
*/
package api

import (
	"github.com/shopfloor/safety-board/board"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CALENDAR
// =============================================================================

// CycleDayRequest advances one day's status through the click cycle.
// Month is zero-based.
type CycleDayRequest struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

// SetDayRequest sets one day's status directly.
type SetDayRequest struct {
	Month  int          `json:"month"`
	Day    int          `json:"day"`
	Status board.Status `json:"status"`
}

// CalendarDTO is the calendar plus its derived streak, returned from
// calendar reads and mutations so the kiosk can refresh both at once.
type CalendarDTO struct {
	Year     int                `json:"year"`
	Calendar board.YearCalendar `json:"calendar"`
	Streak   int                `json:"streak"`
}

// =============================================================================
// ANNOUNCEMENTS & METRICS
// =============================================================================

// AnnouncementRequest creates or updates a ticker entry.
type AnnouncementRequest struct {
	Text string `json:"text"`
}

// MetricRequest creates or updates a metrics grid entry.
type MetricRequest struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// =============================================================================
// TARGET
// =============================================================================

// TargetRecordsRequest updates the scalar record figures.
type TargetRecordsRequest struct {
	BestRecord        float64 `json:"bestRecord"`
	LossTimeAccidents float64 `json:"lossTimeAccidents"`
}

// TargetDTO is the full target panel including evaluated formulas. Total
// and ToDate are nil when the corresponding formula is invalid; the kiosk
// renders "-" for nil.
type TargetDTO struct {
	Vars              board.TargetVars     `json:"vars"`
	Formulas          board.TargetFormulas `json:"formulas"`
	BestRecord        float64              `json:"bestRecord"`
	LossTimeAccidents float64              `json:"lossTimeAccidents"`
	LastUpdateIso     string               `json:"lastUpdateIso,omitempty"`
	Total             *string              `json:"total"`
	ToDate            *string              `json:"toDate"`
}

// =============================================================================
// POSTERS & PREFERENCES
// =============================================================================

// PosterRequest sets or clears a poster slot. A nil image clears the slot.
type PosterRequest struct {
	Image *string `json:"image"`
}

// PolicyImagesRequest replaces the policy image strip (max 2 kept).
type PolicyImagesRequest struct {
	Images []string `json:"images"`
}

// ZoomRequest sets a poster slot's zoom level (clamped to [0.5, 2.5]).
type ZoomRequest struct {
	Zoom float64 `json:"zoom"`
}

// FontScaleDTO carries the kiosk font-scale preference.
type FontScaleDTO struct {
	Scale float64 `json:"scale"`
}

// =============================================================================
// AGGREGATE STATE
// =============================================================================

// StateDTO is the single-fetch kiosk payload: the full year snapshot plus
// derived figures.
type StateDTO struct {
	Year             int                  `json:"year"`
	Calendar         board.YearCalendar   `json:"calendar"`
	Announcements    []board.Announcement `json:"announcements"`
	Metrics          []board.Metric       `json:"metrics"`
	PosterTop        *string              `json:"posterTop"`
	PosterBottom     *string              `json:"posterBottom"`
	PosterTopZoom    float64              `json:"posterTopZoom"`
	PosterBottomZoom float64              `json:"posterBottomZoom"`
	PolicyImages     []string             `json:"policyImages"`
	PolicyZoom       float64              `json:"policyZoom"`
	Target           TargetDTO            `json:"target"`
	Streak           int                  `json:"streak"`
	FontScale        float64              `json:"fontScale"`
}

// StreakDTO is the standalone streak read.
type StreakDTO struct {
	Streak int `json:"streak"`
}

// RolloverResponse reports whether a manual rollover changed anything.
type RolloverResponse struct {
	Changed bool `json:"changed"`
}
