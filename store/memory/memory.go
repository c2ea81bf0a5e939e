// Package memory provides an in-memory timesheet.TxStore and core.Directory
// for tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/warp/timesheet-engine/core"
	"github.com/warp/timesheet-engine/discipline"
	"github.com/warp/timesheet-engine/overtime"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store keeps the same two unique indexes as the SQL schema: one timesheet
// per (user, project, month, year) and one active overtime request per
// (user, project, day).
type Store struct {
	mu sync.RWMutex
	st *state
}

type periodKey struct {
	UserID    string
	ProjectID string
	Month     int
	Year      int
}

type claimKey struct {
	UserID    string
	ProjectID string
	Day       string
}

type state struct {
	timesheets map[string]*timesheet.Timesheet
	periods    map[periodKey]string
	requests   map[string]*overtime.Request
	claims     map[claimKey]string
	users      map[string]core.User
	projects   map[string]core.Project
}

func newState() *state {
	return &state{
		timesheets: make(map[string]*timesheet.Timesheet),
		periods:    make(map[periodKey]string),
		requests:   make(map[string]*overtime.Request),
		claims:     make(map[claimKey]string),
		users:      make(map[string]core.User),
		projects:   make(map[string]core.Project),
	}
}

func New() *Store {
	return &Store{st: newState()}
}

// =============================================================================
// TIMESHEETS
// =============================================================================

func (s *Store) CreateTimesheet(ctx context.Context, t *timesheet.Timesheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CreateTimesheet(ctx, t)
}

func (s *Store) GetTimesheet(ctx context.Context, id string) (*timesheet.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetTimesheet(ctx, id)
}

func (s *Store) FindTimesheet(ctx context.Context, userID, projectID string, month, year int) (*timesheet.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.FindTimesheet(ctx, userID, projectID, month, year)
}

func (s *Store) SaveTimesheet(ctx context.Context, t *timesheet.Timesheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.SaveTimesheet(ctx, t)
}

func (s *Store) DeleteTimesheet(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.DeleteTimesheet(ctx, id)
}

func (s *Store) ListTimesheets(ctx context.Context, f timesheet.Filter) ([]timesheet.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListTimesheets(ctx, f)
}

// =============================================================================
// OVERTIME REQUESTS
// =============================================================================

func (s *Store) CreateOvertimeRequest(ctx context.Context, r *overtime.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CreateOvertimeRequest(ctx, r)
}

func (s *Store) GetOvertimeRequest(ctx context.Context, id string) (*overtime.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetOvertimeRequest(ctx, id)
}

func (s *Store) SaveOvertimeRequest(ctx context.Context, r *overtime.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.SaveOvertimeRequest(ctx, r)
}

func (s *Store) DeleteOvertimeRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.DeleteOvertimeRequest(ctx, id)
}

func (s *Store) FindApprovedOvertime(ctx context.Context, userID, projectID string, day core.Day) ([]overtime.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.FindApprovedOvertime(ctx, userID, projectID, day)
}

func (s *Store) ListOvertimeRequests(ctx context.Context, f overtime.Filter) ([]overtime.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListOvertimeRequests(ctx, f)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (s *Store) WithTx(ctx context.Context, fn func(timesheet.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(s.st); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (s *Store) SaveUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = u
	return nil
}

func (s *Store) SaveProject(_ context.Context, p core.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Areas = discipline.NormalizeAreas(p.Areas)
	p.Platforms = discipline.NormalizePlatforms(p.Platforms)
	s.st.projects[p.ID] = p
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) GetProject(_ context.Context, id string) (*core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.st.projects[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) FindUsersByName(_ context.Context, query string) ([]core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query = strings.ToLower(strings.TrimSpace(query))
	var users []core.User
	for _, u := range s.st.users {
		if strings.Contains(strings.ToLower(u.Name), query) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *Store) ListProjects(_ context.Context) ([]core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	projects := make([]core.Project, 0, len(s.st.projects))
	for _, p := range s.st.projects {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

// =============================================================================
// UNLOCKED STATE - callers hold the mutex
// =============================================================================

func (st *state) CreateTimesheet(_ context.Context, t *timesheet.Timesheet) error {
	t.Recompute()
	if _, exists := st.timesheets[t.ID]; exists {
		return core.ErrDuplicate
	}
	key := periodKey{UserID: t.UserID, ProjectID: t.ProjectID, Month: t.Month, Year: t.Year}
	if _, taken := st.periods[key]; taken {
		return core.ErrDuplicate
	}
	st.periods[key] = t.ID
	st.timesheets[t.ID] = t.Clone()
	return nil
}

func (st *state) GetTimesheet(_ context.Context, id string) (*timesheet.Timesheet, error) {
	t, ok := st.timesheets[id]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

func (st *state) FindTimesheet(ctx context.Context, userID, projectID string, month, year int) (*timesheet.Timesheet, error) {
	id, ok := st.periods[periodKey{UserID: userID, ProjectID: projectID, Month: month, Year: year}]
	if !ok {
		return nil, nil
	}
	return st.GetTimesheet(ctx, id)
}

func (st *state) SaveTimesheet(_ context.Context, t *timesheet.Timesheet) error {
	t.Recompute()
	old, ok := st.timesheets[t.ID]
	if !ok {
		return core.NotFound("timesheet", t.ID)
	}
	oldKey := periodKey{UserID: old.UserID, ProjectID: old.ProjectID, Month: old.Month, Year: old.Year}
	newKey := periodKey{UserID: t.UserID, ProjectID: t.ProjectID, Month: t.Month, Year: t.Year}
	if oldKey != newKey {
		if _, taken := st.periods[newKey]; taken {
			return core.ErrDuplicate
		}
		delete(st.periods, oldKey)
		st.periods[newKey] = t.ID
	}
	st.timesheets[t.ID] = t.Clone()
	return nil
}

func (st *state) DeleteTimesheet(_ context.Context, id string) error {
	t, ok := st.timesheets[id]
	if !ok {
		return nil
	}
	delete(st.periods, periodKey{UserID: t.UserID, ProjectID: t.ProjectID, Month: t.Month, Year: t.Year})
	delete(st.timesheets, id)
	return nil
}

func (st *state) ListTimesheets(_ context.Context, f timesheet.Filter) ([]timesheet.Timesheet, error) {
	list := []timesheet.Timesheet{}
	for _, t := range st.timesheets {
		if f.Matches(t) {
			list = append(list, *t.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Month != b.Month {
			return a.Month > b.Month
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return list, nil
}

func (st *state) CreateOvertimeRequest(_ context.Context, r *overtime.Request) error {
	if _, exists := st.requests[r.ID]; exists {
		return core.ErrDuplicate
	}
	if err := st.claim(r); err != nil {
		return err
	}
	st.requests[r.ID] = r.Clone()
	return nil
}

func (st *state) GetOvertimeRequest(_ context.Context, id string) (*overtime.Request, error) {
	r, ok := st.requests[id]
	if !ok {
		return nil, nil
	}
	return r.Clone(), nil
}

func (st *state) SaveOvertimeRequest(_ context.Context, r *overtime.Request) error {
	old, ok := st.requests[r.ID]
	if !ok {
		return core.NotFound("overtime request", r.ID)
	}
	st.release(old)
	if err := st.claim(r); err != nil {
		// put the previous claims back
		_ = st.claim(old)
		return err
	}
	st.requests[r.ID] = r.Clone()
	return nil
}

func (st *state) DeleteOvertimeRequest(_ context.Context, id string) error {
	r, ok := st.requests[id]
	if !ok {
		return nil
	}
	st.release(r)
	delete(st.requests, id)
	return nil
}

func (st *state) FindApprovedOvertime(ctx context.Context, userID, projectID string, day core.Day) ([]overtime.Request, error) {
	return st.ListOvertimeRequests(ctx, overtime.Filter{
		UserID:    userID,
		ProjectID: projectID,
		Status:    overtime.StatusApproved,
		From:      day,
		To:        day,
	})
}

func (st *state) ListOvertimeRequests(_ context.Context, f overtime.Filter) ([]overtime.Request, error) {
	list := []overtime.Request{}
	for _, r := range st.requests {
		if f.Matches(r) {
			list = append(list, *r.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].WeekStart.Equal(list[j].WeekStart) {
			return list[i].WeekStart.After(list[j].WeekStart)
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// claim takes every day of an active request's span, all or nothing.
func (st *state) claim(r *overtime.Request) error {
	if !r.Status.IsActive() {
		return nil
	}
	days := r.Days()
	for _, d := range days {
		if owner, taken := st.claims[claimKey{r.UserID, r.ProjectID, d.String()}]; taken && owner != r.ID {
			return core.ErrDuplicate
		}
	}
	for _, d := range days {
		st.claims[claimKey{r.UserID, r.ProjectID, d.String()}] = r.ID
	}
	return nil
}

func (st *state) release(r *overtime.Request) {
	for k, owner := range st.claims {
		if owner == r.ID {
			delete(st.claims, k)
		}
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.timesheets {
		c.timesheets[k] = v.Clone()
	}
	for k, v := range st.periods {
		c.periods[k] = v
	}
	for k, v := range st.requests {
		c.requests[k] = v.Clone()
	}
	for k, v := range st.claims {
		c.claims[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.projects {
		c.projects[k] = v
	}
	return c
}
