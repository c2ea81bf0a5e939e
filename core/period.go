package core

import "time"

// =============================================================================
// MONTH PERIODS - Timesheets are keyed by (month, year)
// =============================================================================

// YearMonth identifies one timesheet period.
type YearMonth struct {
	Year  int
	Month time.Month
}

func (ym YearMonth) String() string {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// Next returns the following month.
func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// ValidPeriod checks month 1-12 and a sane year.
func ValidPeriod(month, year int) error {
	if month < 1 || month > 12 {
		return Invalid("month", "must be between 1 and 12, got %d", month)
	}
	if year < 2000 || year > 2100 {
		return Invalid("year", "must be between 2000 and 2100, got %d", year)
	}
	return nil
}

// DaysInMonth returns the number of calendar days in the month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthsCovered expands [from, to] into every (month, year) it touches,
// oldest first.
func MonthsCovered(from, to Day) ([]YearMonth, error) {
	if to.Before(from) {
		return nil, Invalid("endDate", "must not be before startDate")
	}
	var months []YearMonth
	current := YearMonth{Year: from.Year(), Month: from.Month()}
	last := YearMonth{Year: to.Year(), Month: to.Month()}
	for !last.Before(current) {
		months = append(months, current)
		current = current.Next()
	}
	return months, nil
}
