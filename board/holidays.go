package board

import "fmt"

// =============================================================================
// HOLIDAY LOOKUP - Static display configuration
// =============================================================================

// HolidayYear is the year the holiday table below covers. The table is
// display configuration for cell labels and tooltips; it never influences
// status logic.
const HolidayYear = 2026

// holidays maps "MM-DD" to a label for HolidayYear.
var holidays = map[string]string{
	"01-01": "New Year's Day",
	"04-13": "Songkran Festival",
	"04-14": "Songkran Festival",
	"04-15": "Songkran Festival",
	"05-01": "Labour Day",
	"07-28": "King's Birthday",
	"08-12": "Mother's Day",
	"10-23": "Chulalongkorn Day",
	"12-05": "Father's Day",
	"12-10": "Constitution Day",
	"12-31": "New Year's Eve",
}

// HolidayLabel returns the holiday label for the given zero-based month and
// day, or false when the date is not a holiday or year is not the covered
// year.
func HolidayLabel(year, monthIndex, day int) (string, bool) {
	if year != HolidayYear {
		return "", false
	}
	label, ok := holidays[fmt.Sprintf("%02d-%02d", monthIndex+1, day)]
	return label, ok
}

// Holiday pairs a date with its label for API listings.
type Holiday struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Label string `json:"label"`
}

// Holidays returns the full table for year in date order, empty for any
// other year.
func Holidays(year int) []Holiday {
	if year != HolidayYear {
		return nil
	}
	out := make([]Holiday, 0, len(holidays))
	for m := 0; m < 12; m++ {
		for d := 1; d <= DaysIn(year, m); d++ {
			if label, ok := HolidayLabel(year, m, d); ok {
				out = append(out, Holiday{
					Date:  fmt.Sprintf("%04d-%02d-%02d", year, m+1, d),
					Label: label,
				})
			}
		}
	}
	return out
}
