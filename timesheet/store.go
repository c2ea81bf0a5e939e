/*
store.go - Persistence interfaces for timesheets

PURPOSE:
  Separates the lifecycle controller from the database. Stores persist
  timesheets and overtime requests; the controller owns every rule.

UNIQUENESS:
  One timesheet per (user, project, month, year). Stores enforce it with a
  unique index and report a violation as core.ErrDuplicate. The service
  translates that into the ConflictError its pre-check would have raised,
  so concurrent creates that race past the pre-check fail the same way.

RECOMPUTE ON PERSIST:
  Stores call Recompute() on the timesheet before every write.

TRANSACTIONS:
  TxStore.WithTx hands fn a Repository bound to one transaction. An entry
  update, the totals it implies and the overtime consumption it records
  are committed together or not at all.

IMPLEMENTATIONS:
  - store/sqlstore: SQLite and PostgreSQL over database/sql
  - store/memory: In-memory, for tests and local runs
*/
package timesheet

import (
	"context"

	"github.com/warp/timesheet-engine/overtime"
)

// Store persists timesheets.
type Store interface {
	CreateTimesheet(ctx context.Context, t *Timesheet) error

	// GetTimesheet returns (nil, nil) when id does not exist.
	GetTimesheet(ctx context.Context, id string) (*Timesheet, error)

	// FindTimesheet returns (nil, nil) when the period has no timesheet.
	FindTimesheet(ctx context.Context, userID, projectID string, month, year int) (*Timesheet, error)

	SaveTimesheet(ctx context.Context, t *Timesheet) error
	DeleteTimesheet(ctx context.Context, id string) error
	ListTimesheets(ctx context.Context, f Filter) ([]Timesheet, error)
}

// Repository is everything the lifecycle controller reads and writes.
type Repository interface {
	Store
	overtime.Store
}

// TxStore runs fn inside a transaction. If fn returns an error the
// transaction is rolled back, otherwise it is committed.
type TxStore interface {
	Repository
	WithTx(ctx context.Context, fn func(Repository) error) error
}

// Filter narrows ListTimesheets. Zero fields do not filter.
type Filter struct {
	UserID    string
	UserIDs   []string // any of, used for name matches
	ProjectID string
	Status    Status
	Month     int
	Year      int
}

// Matches applies the filter in memory.
func (f Filter) Matches(t *Timesheet) bool {
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if f.UserIDs != nil && !contains(f.UserIDs, t.UserID) {
		return false
	}
	if f.ProjectID != "" && t.ProjectID != f.ProjectID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Month != 0 && t.Month != f.Month {
		return false
	}
	if f.Year != 0 && t.Year != f.Year {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
