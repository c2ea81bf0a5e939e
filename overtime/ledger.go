/*
ledger.go - Overtime request ledger

PURPOSE:
  Orchestrates the overtime request lifecycle (create, update, delete,
  approve, reject) and answers the coverage question the timesheet
  lifecycle asks for every overtime entry:

    "Is overtime on this day, for this project, approved, and how much?"

COVERAGE:
  Coverage matches the exact calendar day listed in DailyHours of an
  approved request. A day inside an approved week but not listed is NOT
  covered.

CONFLICTS:
  Overlap is checked up front for a readable error, and the store's day
  claims are the authoritative guard. A claim collision (core.ErrDuplicate)
  is translated into the same ConflictError the pre-check produces.

TRANSACTIONS:
  The ledger holds no state besides its store. The timesheet service builds
  a ledger over its transactional view so coverage checks and consumption
  bookkeeping run in the same transaction as the entry update.

SEE ALSO:
  - request.go: Request model and week normalization
  - timesheet/service.go: Consumer of coverage queries
*/
package overtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/timesheet-engine/core"
	"github.com/warp/timesheet-engine/discipline"
)

// TypeOvertime is the timesheet type that requires coverage.
const TypeOvertime = "ot"

// Ledger manages overtime requests.
type Ledger struct {
	store     Store
	directory core.Directory

	Now   func() time.Time
	NewID func() string
}

func NewLedger(store Store, directory core.Directory) *Ledger {
	return &Ledger{
		store:     store,
		directory: directory,
		Now:       func() time.Time { return time.Now().UTC() },
		NewID:     uuid.NewString,
	}
}

// =============================================================================
// INPUT TYPES
// =============================================================================

type CreateInput struct {
	ProjectID       string
	Week            WeekInput
	Reason          string
	WorkDescription string
	DisciplineCode  string
	Area            string
}

// Patch holds optional changes; nil fields are left alone.
type Patch struct {
	Week            *WeekInput
	Reason          *string
	WorkDescription *string
	DisciplineCode  *string
	Area            *string
}

// Coverage is the approved overtime for one day.
type Coverage struct {
	RequestID string
	Hours     core.Hours
}

// Validation is the answer to a pre-entry overtime check.
type Validation struct {
	Valid         bool
	Message       string
	ApprovedHours *core.Hours
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Create records a pending request for the actor.
func (l *Ledger) Create(ctx context.Context, actor core.Actor, in CreateInput) (*Request, error) {
	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		return nil, core.Invalid("projectId", "is required")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, core.Invalid("reason", "is required")
	}
	start, end, days, err := NormalizeWeek(in.Week)
	if err != nil {
		return nil, err
	}

	project, err := l.directory.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, core.NotFound("project", projectID)
	}

	if err := l.checkOverlap(ctx, "", actor.ID, projectID, start, end); err != nil {
		return nil, err
	}

	now := l.Now()
	r := &Request{
		ID:              l.NewID(),
		UserID:          actor.ID,
		ProjectID:       projectID,
		WeekStart:       start,
		WeekEnd:         end,
		DailyHours:      days,
		Reason:          reason,
		WorkDescription: strings.TrimSpace(in.WorkDescription),
		DisciplineCode:  discipline.NormalizeDisciplineCode(in.DisciplineCode),
		Area:            strings.TrimSpace(in.Area),
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := l.store.CreateOvertimeRequest(ctx, r); err != nil {
		if errors.Is(err, core.ErrDuplicate) {
			return nil, overlapConflict(start, end)
		}
		return nil, fmt.Errorf("create overtime request: %w", err)
	}
	return r, nil
}

// Update changes a pending request. Only the owner may update.
func (l *Ledger) Update(ctx context.Context, id string, actor core.Actor, patch Patch) (*Request, error) {
	r, err := l.loadForOwner(ctx, id, actor, "update overtime request")
	if err != nil {
		return nil, err
	}

	if patch.Week != nil && !patch.Week.IsEmpty() {
		week, err := r.mergeWeek(*patch.Week)
		if err != nil {
			return nil, err
		}
		start, end, days, err := NormalizeWeek(week)
		if err != nil {
			return nil, err
		}
		if err := l.checkOverlap(ctx, r.ID, r.UserID, r.ProjectID, start, end); err != nil {
			return nil, err
		}
		r.WeekStart, r.WeekEnd, r.DailyHours = start, end, days
	}
	if patch.Reason != nil {
		reason := strings.TrimSpace(*patch.Reason)
		if reason == "" {
			return nil, core.Invalid("reason", "is required")
		}
		r.Reason = reason
	}
	if patch.WorkDescription != nil {
		r.WorkDescription = strings.TrimSpace(*patch.WorkDescription)
	}
	if patch.DisciplineCode != nil {
		r.DisciplineCode = discipline.NormalizeDisciplineCode(*patch.DisciplineCode)
	}
	if patch.Area != nil {
		r.Area = strings.TrimSpace(*patch.Area)
	}
	r.UpdatedAt = l.Now()

	if err := l.store.SaveOvertimeRequest(ctx, r); err != nil {
		if errors.Is(err, core.ErrDuplicate) {
			return nil, overlapConflict(r.WeekStart, r.WeekEnd)
		}
		return nil, fmt.Errorf("save overtime request: %w", err)
	}
	return r, nil
}

// Delete removes a pending request. Only the owner may delete.
func (l *Ledger) Delete(ctx context.Context, id string, actor core.Actor) error {
	if _, err := l.loadForOwner(ctx, id, actor, "delete overtime request"); err != nil {
		return err
	}
	if err := l.store.DeleteOvertimeRequest(ctx, id); err != nil {
		return fmt.Errorf("delete overtime request: %w", err)
	}
	return nil
}

func (l *Ledger) Approve(ctx context.Context, id string, approver core.Actor) (*Request, error) {
	if !approver.CanApprove() {
		return nil, core.Forbidden(approver.ID, "approve overtime requests")
	}
	r, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.Approve(approver.ID, l.Now()); err != nil {
		return nil, err
	}
	if err := l.store.SaveOvertimeRequest(ctx, r); err != nil {
		return nil, fmt.Errorf("save overtime request: %w", err)
	}
	return r, nil
}

func (l *Ledger) Reject(ctx context.Context, id string, approver core.Actor, reason string) (*Request, error) {
	if !approver.CanApprove() {
		return nil, core.Forbidden(approver.ID, "reject overtime requests")
	}
	r, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.Reject(approver.ID, reason, l.Now()); err != nil {
		return nil, err
	}
	if err := l.store.SaveOvertimeRequest(ctx, r); err != nil {
		return nil, fmt.Errorf("save overtime request: %w", err)
	}
	return r, nil
}

// Get returns a request visible to the actor.
func (l *Ledger) Get(ctx context.Context, id string, actor core.Actor) (*Request, error) {
	r, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanView(r.UserID) {
		return nil, core.Forbidden(actor.ID, "view this overtime request")
	}
	return r, nil
}

// List returns requests matching f. Employees only ever see their own.
func (l *Ledger) List(ctx context.Context, actor core.Actor, f Filter) ([]Request, error) {
	if !actor.CanApprove() {
		f.UserID = actor.ID
	}
	requests, err := l.store.ListOvertimeRequests(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list overtime requests: %w", err)
	}
	return requests, nil
}

// =============================================================================
// COVERAGE
// =============================================================================

// FindApprovedCoverage returns the approved hours for exactly that day, or
// nil when no approved request lists it.
func (l *Ledger) FindApprovedCoverage(ctx context.Context, userID, projectID string, day core.Day) (*Coverage, error) {
	requests, err := l.store.FindApprovedOvertime(ctx, userID, projectID, day)
	if err != nil {
		return nil, fmt.Errorf("find approved overtime: %w", err)
	}
	for i := range requests {
		if requests[i].Status != StatusApproved {
			continue
		}
		if hours, ok := requests[i].HoursOn(day); ok {
			return &Coverage{RequestID: requests[i].ID, Hours: hours}, nil
		}
	}
	return nil, nil
}

// CheckHours fails with a ValidationError naming the day when otHours is not
// covered by an approved request, or exceeds the approved amount.
func (l *Ledger) CheckHours(ctx context.Context, userID, projectID string, day core.Day, otHours core.Hours) (*Coverage, error) {
	if !otHours.IsPositive() {
		return nil, nil
	}
	cov, err := l.FindApprovedCoverage(ctx, userID, projectID, day)
	if err != nil {
		return nil, err
	}
	if cov == nil {
		return nil, core.Invalid("entry "+day.String(), "overtime not approved for this day")
	}
	if otHours.GreaterThan(cov.Hours) {
		return nil, core.Invalid("entry "+day.String(),
			"overtime hours %s exceed approved %s", core.FormatHours(otHours), core.FormatHours(cov.Hours))
	}
	return cov, nil
}

// ValidateForEntry answers the UI pre-check before overtime is typed in.
// Only the overtime timesheet type needs coverage.
func (l *Ledger) ValidateForEntry(ctx context.Context, actor core.Actor, projectID string, day core.Day, hours core.Hours, timesheetType string) (Validation, error) {
	if !strings.EqualFold(strings.TrimSpace(timesheetType), TypeOvertime) {
		return Validation{Valid: true}, nil
	}
	if strings.TrimSpace(projectID) == "" {
		return Validation{}, core.Invalid("projectId", "is required")
	}
	if day.IsZero() {
		return Validation{}, core.Invalid("date", "is required")
	}

	cov, err := l.FindApprovedCoverage(ctx, actor.ID, projectID, day)
	if err != nil {
		return Validation{}, err
	}
	if cov == nil {
		return Validation{
			Valid:   false,
			Message: fmt.Sprintf("No approved overtime request for %s", day),
		}, nil
	}
	approved := cov.Hours
	if hours.GreaterThan(approved) {
		return Validation{
			Valid:         false,
			Message:       fmt.Sprintf("Overtime hours %s exceed approved %s for %s", core.FormatHours(hours), core.FormatHours(approved), day),
			ApprovedHours: &approved,
		}, nil
	}
	return Validation{Valid: true, ApprovedHours: &approved}, nil
}

// RecordActualHours replaces the consumption that one timesheet period
// records against the user's approved requests on the project. used maps
// day strings to the overtime logged that day.
func (l *Ledger) RecordActualHours(ctx context.Context, userID, projectID string, period core.YearMonth, used map[string]core.Hours) error {
	first := core.NewDay(period.Year, period.Month, 1)
	last := core.NewDay(period.Year, period.Month, core.DaysInMonth(period.Year, period.Month))

	requests, err := l.store.ListOvertimeRequests(ctx, Filter{
		UserID:    userID,
		ProjectID: projectID,
		Status:    StatusApproved,
		From:      first,
		To:        last,
	})
	if err != nil {
		return fmt.Errorf("list approved overtime: %w", err)
	}

	for i := range requests {
		r := &requests[i]
		r.ApplyConsumption(period, used)
		r.UpdatedAt = l.Now()
		if err := l.store.SaveOvertimeRequest(ctx, r); err != nil {
			return fmt.Errorf("record actual hours on %s: %w", r.ID, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (l *Ledger) load(ctx context.Context, id string) (*Request, error) {
	r, err := l.store.GetOvertimeRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load overtime request: %w", err)
	}
	if r == nil {
		return nil, core.NotFound("overtime request", id)
	}
	return r, nil
}

func (l *Ledger) loadForOwner(ctx context.Context, id string, actor core.Actor, action string) (*Request, error) {
	r, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != actor.ID {
		return nil, core.Forbidden(actor.ID, action)
	}
	if r.Status != StatusPending {
		return nil, &core.StateError{Op: action, Status: string(r.Status)}
	}
	return r, nil
}

func (l *Ledger) checkOverlap(ctx context.Context, selfID, userID, projectID string, start, end core.Day) error {
	existing, err := l.store.ListOvertimeRequests(ctx, Filter{
		UserID:     userID,
		ProjectID:  projectID,
		ActiveOnly: true,
		From:       start,
		To:         end,
	})
	if err != nil {
		return fmt.Errorf("check overlapping overtime: %w", err)
	}
	for _, r := range existing {
		if r.ID != selfID {
			return overlapConflict(start, end)
		}
	}
	return nil
}

func overlapConflict(start, end core.Day) error {
	return &core.ConflictError{
		Resource: "overtime request",
		Message:  fmt.Sprintf("an active overtime request already overlaps the week %s to %s for this project", start, end),
	}
}
