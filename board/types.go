package board

// =============================================================================
// ANNOUNCEMENTS & METRICS - Ordered display collections
// =============================================================================

// Announcement is one entry of the scrolling ticker. List order is ticker
// concatenation order and is significant.
type Announcement struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Metric is one editable figure of the safety metrics grid. Value is
// free-form text, not necessarily numeric. List order is grid order.
type Metric struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// DefaultAnnouncements is the ticker content a fresh (or corrupted) year
// starts with.
func DefaultAnnouncements() []Announcement {
	return []Announcement{
		{ID: "ann-welcome", Text: "Safety first. Report every near miss to your supervisor."},
		{ID: "ann-ppe", Text: "PPE is mandatory in all production areas."},
	}
}

// DefaultMetrics is the metrics grid a fresh (or corrupted) year starts with.
func DefaultMetrics() []Metric {
	return []Metric{
		{ID: "met-lta", Label: "Loss Time Accidents", Value: "0", Unit: "cases"},
		{ID: "met-near-miss", Label: "Near Misses Reported", Value: "0", Unit: "cases"},
		{ID: "met-first-aid", Label: "First Aid Cases", Value: "0", Unit: "cases"},
		{ID: "met-training", Label: "Safety Training Hours", Value: "0", Unit: "hours"},
	}
}
