package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAY - A calendar day (UTC midnight)
// =============================================================================

// DayLayout is the wire and storage format of a Day.
const DayLayout = "2006-01-02"

// Day is a calendar day. Entries, overtime days and week spans are all
// day-granular, so comparisons never see a time-of-day component.
type Day struct {
	Time time.Time
}

func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates t to its calendar day, keeping the date as seen in t's
// location.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DayLayout) {
		// accept full timestamps from older clients, keep the date part
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return DayOf(t), nil
		}
	}
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	return DayOf(t), nil
}

func (d Day) Before(other Day) bool        { return d.Time.Before(other.Time) }
func (d Day) After(other Day) bool         { return d.Time.After(other.Time) }
func (d Day) Equal(other Day) bool         { return d.Time.Equal(other.Time) }
func (d Day) BeforeOrEqual(other Day) bool { return !d.After(other) }
func (d Day) AfterOrEqual(other Day) bool  { return !d.Before(other) }

func (d Day) AddDays(n int) Day     { return DayOf(d.Time.AddDate(0, 0, n)) }
func (d Day) Year() int             { return d.Time.Year() }
func (d Day) Month() time.Month     { return d.Time.Month() }
func (d Day) DayOfMonth() int       { return d.Time.Day() }
func (d Day) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Day) IsZero() bool          { return d.Time.IsZero() }
func (d Day) String() string        { return d.Time.Format(DayLayout) }

// InMonth reports whether d falls in the given month (1-12) of year.
func (d Day) InMonth(year, month int) bool {
	return d.Year() == year && int(d.Month()) == month
}

// StartOfWeek returns the Monday on or before d.
func (d Day) StartOfWeek() Day {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

func (d Day) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Day) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Day{}
		return nil
	}
	parsed, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// HOURS
// =============================================================================

// Hours is a decimal quantity of hours. Decimal avoids float drift when
// totals are summed over a month of quarter-hour entries.
type Hours = decimal.Decimal

// MaxDayHours bounds every per-day hour figure.
var MaxDayHours = decimal.NewFromInt(24)

func HoursFromFloat(h float64) Hours { return decimal.NewFromFloat(h) }

// ValidDayHours reports 0 <= h <= 24.
func ValidDayHours(h Hours) bool {
	return !h.IsNegative() && h.LessThanOrEqual(MaxDayHours)
}

// FormatHours renders hours without trailing zeros ("7.5", "8").
func FormatHours(h Hours) string {
	return h.String()
}
