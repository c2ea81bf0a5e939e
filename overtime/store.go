package overtime

import (
	"context"

	"github.com/warp/timesheet-engine/core"
)

// =============================================================================
// STORE - Interface for overtime request persistence
// =============================================================================

// Store persists overtime requests.
//
// Writes of an active request claim every day of its span in a unique
// (user, project, day) index; a collision returns core.ErrDuplicate. Saving
// a request as rejected releases its claims, as does deleting it.
type Store interface {
	CreateOvertimeRequest(ctx context.Context, r *Request) error

	// GetOvertimeRequest returns (nil, nil) when id does not exist.
	GetOvertimeRequest(ctx context.Context, id string) (*Request, error)

	SaveOvertimeRequest(ctx context.Context, r *Request) error
	DeleteOvertimeRequest(ctx context.Context, id string) error

	// FindApprovedOvertime returns approved requests of the user on the
	// project whose span contains day.
	FindApprovedOvertime(ctx context.Context, userID, projectID string, day core.Day) ([]Request, error)

	ListOvertimeRequests(ctx context.Context, f Filter) ([]Request, error)
}

// Filter narrows ListOvertimeRequests. Zero fields do not filter.
type Filter struct {
	UserID     string
	ProjectID  string
	Status     Status
	ActiveOnly bool

	// From/To keep requests whose span overlaps [From, To].
	From core.Day
	To   core.Day
}

// Matches applies the filter in memory.
func (f Filter) Matches(r *Request) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.ProjectID != "" && r.ProjectID != f.ProjectID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.ActiveOnly && !r.Status.IsActive() {
		return false
	}
	if !f.From.IsZero() && r.WeekEnd.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.WeekStart.After(f.To) {
		return false
	}
	return true
}
