/*
request.go - Overtime request model

PURPOSE:
  An overtime request pre-authorizes overtime hours for one user on one
  project over a single week. Timesheet entries with overtime hours must be
  covered by an approved request listing that exact calendar day.

WEEKLY FORM:
  The weekly form is the only stored shape:

    WeekStart ──────────────── WeekEnd (= WeekStart + 6)
      │ DailyHours: 1..7 (date, hours) pairs inside the span
      │ no duplicate dates, 0 <= hours <= 24

  The legacy single-day form (date + requestedHours) is accepted on input
  and folded into the Monday-start week containing the date, with one
  DailyHours element.

LIFECYCLE:
  pending ──approve──▶ approved   (terminal)
     │
     └────reject────▶ rejected   (terminal, reason required)

  Update and delete are allowed for the owner while pending.

OVERLAP:
  At most one active (pending or approved) request per user, project and
  overlapping week. Stores enforce it by claiming every day of the span of
  an active request in a unique index.

ACTUAL HOURS:
  Consumed records the overtime actually logged on timesheets against the
  request, per day. ActualHours is their sum, nil until something is
  consumed.

SEE ALSO:
  - ledger.go: Lifecycle operations and coverage queries
  - store.go: Persistence interface
*/
package overtime

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/core"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	default:
		return "", core.Invalid("status", "unknown overtime status %q", s)
	}
}

// IsActive reports whether a request in this status holds its week.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusApproved
}

// =============================================================================
// REQUEST
// =============================================================================

// DailyHours is the overtime requested (or consumed) on one day.
type DailyHours struct {
	Date  core.Day   `json:"date"`
	Hours core.Hours `json:"hours"`
}

// DaysPerWeek is the length of every request span.
const DaysPerWeek = 7

type Request struct {
	ID              string
	UserID          string
	ProjectID       string
	WeekStart       core.Day
	WeekEnd         core.Day
	DailyHours      []DailyHours
	Reason          string
	WorkDescription string
	DisciplineCode  string
	Area            string
	Status          Status
	Consumed        []DailyHours
	ActualHours     *core.Hours
	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Days returns every day of the request span. Active requests claim all of
// them.
func (r *Request) Days() []core.Day {
	days := make([]core.Day, 0, DaysPerWeek)
	for d := r.WeekStart; d.BeforeOrEqual(r.WeekEnd); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Overlaps reports whether the request span intersects [from, to].
func (r *Request) Overlaps(from, to core.Day) bool {
	return r.WeekStart.BeforeOrEqual(to) && from.BeforeOrEqual(r.WeekEnd)
}

// HoursOn returns the hours requested for exactly that day.
func (r *Request) HoursOn(day core.Day) (core.Hours, bool) {
	for _, dh := range r.DailyHours {
		if dh.Date.Equal(day) {
			return dh.Hours, true
		}
	}
	return decimal.Zero, false
}

// TotalHours sums the requested hours.
func (r *Request) TotalHours() core.Hours {
	total := decimal.Zero
	for _, dh := range r.DailyHours {
		total = total.Add(dh.Hours)
	}
	return total
}

func (r *Request) Approve(approverID string, now time.Time) error {
	if r.Status != StatusPending {
		return &core.StateError{Op: "approve overtime request", Status: string(r.Status)}
	}
	r.Status = StatusApproved
	r.ApprovedBy = approverID
	r.ApprovedAt = &now
	r.RejectionReason = ""
	r.UpdatedAt = now
	return nil
}

func (r *Request) Reject(approverID, reason string, now time.Time) error {
	if r.Status != StatusPending {
		return &core.StateError{Op: "reject overtime request", Status: string(r.Status)}
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return core.Invalid("rejectionReason", "rejection reason is required")
	}
	r.Status = StatusRejected
	r.ApprovedBy = approverID
	r.ApprovedAt = &now
	r.RejectionReason = reason
	r.UpdatedAt = now
	return nil
}

// ApplyConsumption replaces the consumed hours recorded for the days of
// period with used, keyed by day string. Days outside period are kept, so a
// week spanning two months is fed by two timesheets.
func (r *Request) ApplyConsumption(period core.YearMonth, used map[string]core.Hours) {
	var consumed []DailyHours
	for _, c := range r.Consumed {
		if !c.Date.InMonth(period.Year, int(period.Month)) {
			consumed = append(consumed, c)
		}
	}
	for _, dh := range r.DailyHours {
		if !dh.Date.InMonth(period.Year, int(period.Month)) {
			continue
		}
		if h, ok := used[dh.Date.String()]; ok && h.IsPositive() {
			consumed = append(consumed, DailyHours{Date: dh.Date, Hours: h})
		}
	}
	sort.Slice(consumed, func(i, j int) bool { return consumed[i].Date.Before(consumed[j].Date) })

	r.Consumed = consumed
	if len(consumed) == 0 {
		r.ActualHours = nil
		return
	}
	total := decimal.Zero
	for _, c := range consumed {
		total = total.Add(c.Hours)
	}
	r.ActualHours = &total
}

// Clone returns a deep copy so stores never share slices with callers.
func (r *Request) Clone() *Request {
	c := *r
	c.DailyHours = append([]DailyHours(nil), r.DailyHours...)
	c.Consumed = append([]DailyHours(nil), r.Consumed...)
	if r.ActualHours != nil {
		h := *r.ActualHours
		c.ActualHours = &h
	}
	if r.ApprovedAt != nil {
		t := *r.ApprovedAt
		c.ApprovedAt = &t
	}
	return &c
}

// =============================================================================
// WEEK NORMALIZATION
// =============================================================================

// WeekInput carries either form of the requested days.
type WeekInput struct {
	WeekStart  core.Day
	DailyHours []DailyHours

	// legacy single-day form
	Date           core.Day
	RequestedHours *core.Hours
}

// IsEmpty reports that no day information was supplied at all. A non-nil
// empty DailyHours counts as supplied.
func (in WeekInput) IsEmpty() bool {
	return in.WeekStart.IsZero() && in.DailyHours == nil && in.Date.IsZero() && in.RequestedHours == nil
}

// isLegacy reports the single-day form: no daily list, and a date or an
// hour amount.
func (in WeekInput) isLegacy() bool {
	return in.DailyHours == nil && (!in.Date.IsZero() || in.RequestedHours != nil)
}

// mergeWeek completes a partial week edit from the stored request. A
// single-day edit carrying only one of date and requestedHours needs a
// request with exactly one day.
func (r *Request) mergeWeek(in WeekInput) (WeekInput, error) {
	if in.isLegacy() && (in.Date.IsZero() || in.RequestedHours == nil) {
		if len(r.DailyHours) != 1 {
			return in, core.Invalid("requestedHours", "request spans %d days, send dailyHours instead", len(r.DailyHours))
		}
		if in.Date.IsZero() {
			in.Date = r.DailyHours[0].Date
			if in.WeekStart.IsZero() {
				in.WeekStart = r.WeekStart
			}
		}
		if in.RequestedHours == nil {
			h := r.DailyHours[0].Hours
			in.RequestedHours = &h
		}
		return in, nil
	}
	if in.isLegacy() {
		return in, nil
	}
	if in.WeekStart.IsZero() && in.DailyHours != nil {
		in.WeekStart = r.WeekStart
	}
	if in.DailyHours == nil {
		// start moved, keep the days
		in.DailyHours = r.DailyHours
	}
	return in, nil
}

// NormalizeWeek folds either input form into (weekStart, weekEnd, days),
// validating every day. Days come back sorted by date.
func NormalizeWeek(in WeekInput) (core.Day, core.Day, []DailyHours, error) {
	start := in.WeekStart
	days := in.DailyHours

	if len(days) == 0 && !in.Date.IsZero() {
		if in.RequestedHours == nil {
			return core.Day{}, core.Day{}, nil, core.Invalid("requestedHours", "is required with date")
		}
		if start.IsZero() {
			start = in.Date.StartOfWeek()
		}
		days = []DailyHours{{Date: in.Date, Hours: *in.RequestedHours}}
	}

	if start.IsZero() {
		return core.Day{}, core.Day{}, nil, core.Invalid("weekStartDate", "is required")
	}
	if len(days) == 0 {
		return core.Day{}, core.Day{}, nil, core.Invalid("dailyHours", "at least one day is required")
	}
	if len(days) > DaysPerWeek {
		return core.Day{}, core.Day{}, nil, core.Invalid("dailyHours", "at most %d days allowed, got %d", DaysPerWeek, len(days))
	}

	end := start.AddDays(DaysPerWeek - 1)
	seen := make(map[string]bool, len(days))
	normalized := make([]DailyHours, 0, len(days))
	for i, dh := range days {
		if dh.Date.IsZero() {
			return core.Day{}, core.Day{}, nil, core.Invalid(fmt.Sprintf("dailyHours[%d].date", i), "is required")
		}
		day := dh.Date.String()
		if dh.Date.Before(start) || dh.Date.After(end) {
			return core.Day{}, core.Day{}, nil, core.Invalid(day, "outside the week %s to %s", start, end)
		}
		if seen[day] {
			return core.Day{}, core.Day{}, nil, core.Invalid(day, "listed more than once")
		}
		if !core.ValidDayHours(dh.Hours) {
			return core.Day{}, core.Day{}, nil, core.Invalid(day, "hours must be between 0 and 24, got %s", dh.Hours)
		}
		seen[day] = true
		normalized = append(normalized, DailyHours{Date: core.DayOf(dh.Date.Time), Hours: dh.Hours})
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i].Date.Before(normalized[j].Date) })

	return start, end, normalized, nil
}
