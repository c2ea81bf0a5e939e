package timesheet

import (
	"sort"
	"strings"

	"github.com/warp/timesheet-engine/core"
	"github.com/warp/timesheet-engine/discipline"
)

// Entry is one calendar day of hours.
type Entry struct {
	Date            core.Day   `json:"date"`
	NormalHours     core.Hours `json:"normalHours"`
	OTHours         core.Hours `json:"otHours"`
	HoursCode       string     `json:"hoursCode,omitempty"`
	Description     string     `json:"description,omitempty"`
	DisciplineCodes []string   `json:"disciplineCodes,omitempty"`
}

// TotalHours is normal plus overtime.
func (e Entry) TotalHours() core.Hours {
	return e.NormalHours.Add(e.OTHours)
}

// NormalizeEntries validates entries against the (month, year) period and
// returns them cleaned and sorted by date. Errors name the offending day.
func NormalizeEntries(month, year int, in []Entry) ([]Entry, error) {
	entries := make([]Entry, 0, len(in))
	seen := make(map[string]bool, len(in))

	for _, e := range in {
		if e.Date.IsZero() {
			return nil, core.Invalid("entries", "every entry needs a date")
		}
		day := e.Date.String()
		field := "entry " + day
		if !e.Date.InMonth(year, month) {
			return nil, core.Invalid(field, "outside %04d-%02d", year, month)
		}
		if seen[day] {
			return nil, core.Invalid(field, "more than one entry for this day")
		}
		if !core.ValidDayHours(e.NormalHours) {
			return nil, core.Invalid(field, "normal hours must be between 0 and 24, got %s", e.NormalHours)
		}
		if !core.ValidDayHours(e.OTHours) {
			return nil, core.Invalid(field, "overtime hours must be between 0 and 24, got %s", e.OTHours)
		}
		codes, err := discipline.NormalizeDisciplineCodes(e.DisciplineCodes, false)
		if err != nil {
			return nil, core.Invalid(field, "%s", err.Error())
		}
		seen[day] = true

		entries = append(entries, Entry{
			Date:            core.DayOf(e.Date.Time),
			NormalHours:     e.NormalHours,
			OTHours:         e.OTHours,
			HoursCode:       strings.ToUpper(strings.TrimSpace(e.HoursCode)),
			Description:     strings.TrimSpace(e.Description),
			DisciplineCodes: codes,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	return entries, nil
}
