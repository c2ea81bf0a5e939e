/*
service.go - Timesheet lifecycle controller

PURPOSE:
  Orchestrates create, update, submit, approve, reject and delete. The
  aggregate enforces the state machine; this layer adds authorization,
  project checks, overtime gating and transactional persistence.

AUTHORIZATION:
  create    the actor becomes the owner
  update    owner or admin
  submit    owner
  approve   manager or admin
  reject    manager or admin
  delete    owner or admin, never once approved
  get       owner, manager or admin
  list      employees are always scoped to their own timesheets

OVERTIME GATING:
  Every entry with overtime must be covered by an approved overtime
  request of the timesheet owner listing that exact day, for an amount at
  least as large. The check and the consumption bookkeeping run in the
  same transaction as the write.

EXAMPLE:
  svc := timesheet.NewService(store, store)
  ts, err := svc.Create(ctx, actor, timesheet.CreateInput{
      ProjectID: "p-1", Month: 3, Year: 2024,
      DisciplineCodes: []string{"civ"},
  })
  ts, err = svc.Submit(ctx, ts.ID, actor)

SEE ALSO:
  - timesheet.go: Aggregate and transitions
  - overtime/ledger.go: Coverage queries
*/
package timesheet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/timesheet-engine/core"
	"github.com/warp/timesheet-engine/discipline"
	"github.com/warp/timesheet-engine/overtime"
)

// Service is the timesheet lifecycle controller.
type Service struct {
	store     TxStore
	directory core.Directory

	Now   func() time.Time
	NewID func() string
}

func NewService(store TxStore, directory core.Directory) *Service {
	return &Service{
		store:     store,
		directory: directory,
		Now:       func() time.Time { return time.Now().UTC() },
		NewID:     uuid.NewString,
	}
}

type CreateInput struct {
	ProjectID       string
	Area            string
	Month           int
	Year            int
	Entries         []Entry
	DisciplineCodes []string
}

// =============================================================================
// CREATE / UPDATE
// =============================================================================

func (s *Service) Create(ctx context.Context, actor core.Actor, in CreateInput) (*Timesheet, error) {
	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		return nil, core.Invalid("projectId", "is required")
	}
	if err := core.ValidPeriod(in.Month, in.Year); err != nil {
		return nil, err
	}
	codes, err := discipline.NormalizeDisciplineCodes(in.DisciplineCodes, true)
	if err != nil {
		return nil, err
	}
	entries, err := NormalizeEntries(in.Month, in.Year, in.Entries)
	if err != nil {
		return nil, err
	}

	project, err := s.directory.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, core.NotFound("project", projectID)
	}
	if project.Status != core.ProjectActive {
		return nil, core.Invalid("projectId", "project %s is %s, timesheets need an active project", project.Code, project.Status)
	}

	existing, err := s.store.FindTimesheet(ctx, actor.ID, projectID, in.Month, in.Year)
	if err != nil {
		return nil, fmt.Errorf("check existing timesheet: %w", err)
	}
	if existing != nil {
		return nil, duplicatePeriod(in.Month, in.Year)
	}

	ts := New(s.NewID(), actor.ID, projectID, codes, in.Area, in.Month, in.Year, entries, s.Now())

	err = s.store.WithTx(ctx, func(repo Repository) error {
		ledger := overtime.NewLedger(repo, s.directory)
		if err := checkOvertime(ctx, ledger, ts); err != nil {
			return err
		}
		if err := repo.CreateTimesheet(ctx, ts); err != nil {
			return err
		}
		return ledger.RecordActualHours(ctx, ts.UserID, ts.ProjectID, ts.Period(), ts.OvertimeByDay())
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicate) {
			return nil, duplicatePeriod(in.Month, in.Year)
		}
		return nil, wrapInfra(err, "create timesheet")
	}
	return ts, nil
}

// Update applies an owner edit. Overtime entries are gated against the
// owner's approved overtime requests.
func (s *Service) Update(ctx context.Context, id string, actor core.Actor, patch Patch) (*Timesheet, error) {
	var updated *Timesheet
	err := s.store.WithTx(ctx, func(repo Repository) error {
		ts, err := loadTimesheet(ctx, repo, id)
		if err != nil {
			return err
		}
		if !actor.CanManage(ts.UserID) {
			return core.Forbidden(actor.ID, "update this timesheet")
		}
		if err := ts.Apply(patch, s.Now()); err != nil {
			return err
		}

		ledger := overtime.NewLedger(repo, s.directory)
		if err := checkOvertime(ctx, ledger, ts); err != nil {
			return err
		}
		if err := repo.SaveTimesheet(ctx, ts); err != nil {
			return err
		}
		if err := ledger.RecordActualHours(ctx, ts.UserID, ts.ProjectID, ts.Period(), ts.OvertimeByDay()); err != nil {
			return err
		}
		updated = ts
		return nil
	})
	if err != nil {
		return nil, wrapInfra(err, "update timesheet")
	}
	return updated, nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func (s *Service) Submit(ctx context.Context, id string, actor core.Actor) (*Timesheet, error) {
	return s.transition(ctx, id, func(ts *Timesheet) error {
		if ts.UserID != actor.ID {
			return core.Forbidden(actor.ID, "submit this timesheet")
		}
		return ts.Submit(s.Now())
	})
}

func (s *Service) Approve(ctx context.Context, id string, actor core.Actor, comments string) (*Timesheet, error) {
	if !actor.CanApprove() {
		return nil, core.Forbidden(actor.ID, "approve timesheets")
	}
	return s.transition(ctx, id, func(ts *Timesheet) error {
		return ts.Approve(actor.ID, comments, s.Now())
	})
}

func (s *Service) Reject(ctx context.Context, id string, actor core.Actor, reason, comments string) (*Timesheet, error) {
	if !actor.CanApprove() {
		return nil, core.Forbidden(actor.ID, "reject timesheets")
	}
	return s.transition(ctx, id, func(ts *Timesheet) error {
		return ts.Reject(actor.ID, reason, comments, s.Now())
	})
}

func (s *Service) Delete(ctx context.Context, id string, actor core.Actor) error {
	err := s.store.WithTx(ctx, func(repo Repository) error {
		ts, err := loadTimesheet(ctx, repo, id)
		if err != nil {
			return err
		}
		if !actor.CanManage(ts.UserID) {
			return core.Forbidden(actor.ID, "delete this timesheet")
		}
		if ts.IsTerminal() {
			return &core.StateError{Op: "delete timesheet", Status: string(ts.Status)}
		}
		if err := repo.DeleteTimesheet(ctx, id); err != nil {
			return err
		}
		// release the overtime this period had consumed
		ledger := overtime.NewLedger(repo, s.directory)
		return ledger.RecordActualHours(ctx, ts.UserID, ts.ProjectID, ts.Period(), nil)
	})
	return wrapInfra(err, "delete timesheet")
}

func (s *Service) transition(ctx context.Context, id string, fn func(*Timesheet) error) (*Timesheet, error) {
	var updated *Timesheet
	err := s.store.WithTx(ctx, func(repo Repository) error {
		ts, err := loadTimesheet(ctx, repo, id)
		if err != nil {
			return err
		}
		if err := fn(ts); err != nil {
			return err
		}
		if err := repo.SaveTimesheet(ctx, ts); err != nil {
			return err
		}
		updated = ts
		return nil
	})
	if err != nil {
		return nil, wrapInfra(err, "save timesheet")
	}
	return updated, nil
}

// =============================================================================
// QUERIES
// =============================================================================

func (s *Service) Get(ctx context.Context, id string, actor core.Actor) (*Timesheet, error) {
	ts, err := loadTimesheet(ctx, s.store, id)
	if err != nil {
		return nil, wrapInfra(err, "get timesheet")
	}
	if !actor.CanView(ts.UserID) {
		return nil, core.Forbidden(actor.ID, "view this timesheet")
	}
	return ts, nil
}

// ListQuery is a List request. Name matches the owning user's name,
// case-insensitively.
type ListQuery struct {
	UserID    string
	ProjectID string
	Status    Status
	Month     int
	Year      int
	Name      string
}

func (s *Service) List(ctx context.Context, actor core.Actor, q ListQuery) ([]Timesheet, error) {
	f := Filter{
		UserID:    q.UserID,
		ProjectID: q.ProjectID,
		Status:    q.Status,
		Month:     q.Month,
		Year:      q.Year,
	}
	if !actor.CanApprove() {
		f.UserID = actor.ID
	}

	if name := strings.TrimSpace(q.Name); name != "" {
		users, err := s.directory.FindUsersByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("find users by name: %w", err)
		}
		if len(users) == 0 {
			return []Timesheet{}, nil
		}
		f.UserIDs = make([]string, 0, len(users))
		for _, u := range users {
			f.UserIDs = append(f.UserIDs, u.ID)
		}
	}

	list, err := s.store.ListTimesheets(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list timesheets: %w", err)
	}
	return list, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func loadTimesheet(ctx context.Context, store Store, id string) (*Timesheet, error) {
	ts, err := store.GetTimesheet(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load timesheet: %w", err)
	}
	if ts == nil {
		return nil, core.NotFound("timesheet", id)
	}
	return ts, nil
}

// checkOvertime gates every overtime entry on the owner's approved
// requests.
func checkOvertime(ctx context.Context, ledger *overtime.Ledger, ts *Timesheet) error {
	for _, e := range ts.Entries {
		if _, err := ledger.CheckHours(ctx, ts.UserID, ts.ProjectID, e.Date, e.OTHours); err != nil {
			return err
		}
	}
	return nil
}

func duplicatePeriod(month, year int) error {
	return &core.ConflictError{
		Resource: "timesheet",
		Message:  fmt.Sprintf("a timesheet for %04d-%02d already exists for this project", year, month),
	}
}

// wrapInfra keeps business errors as they are and labels the rest.
func wrapInfra(err error, op string) error {
	if err == nil || core.IsClientError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
