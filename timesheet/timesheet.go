/*
timesheet.go - Timesheet aggregate and approval state machine

PURPOSE:
  A timesheet is one user's month of hours on one project. It owns its
  entries (one per calendar day), keeps the hour totals in step with them,
  and enforces the approval state machine. Callers never assign Status or
  totals directly; they go through the transition methods below.

STATE MACHINE:

    draft ──submit──▶ submitted ──approve──▶ approved (terminal)
                          │
                        reject
                          ▼
    draft ◀──edit─── rejected ──submit──▶ resubmitted ──approve──▶ approved
                          ▲                    │
                          └───────reject───────┘

  Submitting a timesheet that was submitted before (SubmittedAt set) is a
  resubmission: status becomes resubmitted and ResubmissionCount grows by
  one. Editing a rejected timesheet resets it to draft and clears the
  previous review (approver, approval date, rejection reason).

EDITING:
  Entries, area, comments and discipline codes change only in draft or
  rejected. Submitted, resubmitted and approved timesheets are read-only
  to their owner.

TOTALS:
  TotalNormalHours = Σ entries.NormalHours
  TotalOTHours     = Σ entries.OTHours
  TotalHours       = TotalNormalHours + TotalOTHours

  Recompute runs inside every mutation and again in the stores right before
  a write. Totals supplied by a caller are overwritten.

SEE ALSO:
  - entry.go: Entry validation
  - service.go: Lifecycle controller (authorization, overtime gating)
*/
package timesheet

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/core"
	"github.com/warp/timesheet-engine/discipline"
)

// =============================================================================
// TIMESHEET
// =============================================================================

type Timesheet struct {
	ID              string
	UserID          string
	ProjectID       string
	DisciplineCodes []string
	Area            string
	Month           int
	Year            int
	Entries         []Entry

	TotalNormalHours core.Hours
	TotalOTHours     core.Hours
	TotalHours       core.Hours

	Status            Status
	ResubmissionCount int
	RejectionReason   string
	Comments          string
	SubmittedAt       *time.Time
	ApprovedBy        string
	ApprovalDate      *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// New builds a draft timesheet. Entries must already be normalized.
func New(id, userID, projectID string, codes []string, area string, month, year int, entries []Entry, now time.Time) *Timesheet {
	t := &Timesheet{
		ID:              id,
		UserID:          userID,
		ProjectID:       projectID,
		DisciplineCodes: codes,
		Area:            strings.TrimSpace(area),
		Month:           month,
		Year:            year,
		Entries:         entries,
		Status:          StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	t.Recompute()
	return t
}

// Period returns the (month, year) the timesheet covers.
func (t *Timesheet) Period() core.YearMonth {
	return core.YearMonth{Year: t.Year, Month: time.Month(t.Month)}
}

func (t *Timesheet) CanEdit() bool    { return t.Status.IsEditable() }
func (t *Timesheet) IsTerminal() bool { return t.Status.IsTerminal() }

// Recompute derives the totals from the entries.
func (t *Timesheet) Recompute() {
	normal, ot := decimal.Zero, decimal.Zero
	for _, e := range t.Entries {
		normal = normal.Add(e.NormalHours)
		ot = ot.Add(e.OTHours)
	}
	t.TotalNormalHours = normal
	t.TotalOTHours = ot
	t.TotalHours = normal.Add(ot)
}

// =============================================================================
// EDITING
// =============================================================================

// Patch is an owner edit. Nil fields are left alone; a non-nil empty
// Entries slice clears every entry.
type Patch struct {
	Entries         []Entry
	Area            *string
	Comments        *string
	DisciplineCodes []string
}

// Apply validates and applies an edit. A rejected timesheet goes back to
// draft.
func (t *Timesheet) Apply(p Patch, now time.Time) error {
	if !t.CanEdit() {
		return &core.StateError{Op: "update timesheet", Status: string(t.Status)}
	}

	entries, codes := t.Entries, t.DisciplineCodes
	if p.Entries != nil {
		var err error
		if entries, err = NormalizeEntries(t.Month, t.Year, p.Entries); err != nil {
			return err
		}
	}
	if p.DisciplineCodes != nil {
		var err error
		if codes, err = discipline.NormalizeDisciplineCodes(p.DisciplineCodes, true); err != nil {
			return err
		}
	}
	t.Entries, t.DisciplineCodes = entries, codes
	if p.Area != nil {
		t.Area = strings.TrimSpace(*p.Area)
	}
	if p.Comments != nil {
		t.Comments = strings.TrimSpace(*p.Comments)
	}

	if t.Status == StatusRejected {
		t.Status = StatusDraft
		t.ApprovedBy = ""
		t.ApprovalDate = nil
		t.RejectionReason = ""
	}
	t.UpdatedAt = now
	t.Recompute()
	return nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Submit sends the timesheet for review. A timesheet that was submitted
// before becomes resubmitted.
func (t *Timesheet) Submit(now time.Time) error {
	if !t.Status.IsEditable() {
		return &core.StateError{Op: "submit timesheet", Status: string(t.Status)}
	}
	if t.SubmittedAt != nil {
		t.Status = StatusResubmitted
		t.ResubmissionCount++
	} else {
		t.Status = StatusSubmitted
	}
	t.SubmittedAt = &now
	t.UpdatedAt = now
	t.Recompute()
	return nil
}

func (t *Timesheet) Approve(approverID, comments string, now time.Time) error {
	if !t.Status.IsPendingReview() {
		return &core.StateError{Op: "approve timesheet", Status: string(t.Status)}
	}
	t.Status = StatusApproved
	t.ApprovedBy = approverID
	t.ApprovalDate = &now
	t.RejectionReason = ""
	if c := strings.TrimSpace(comments); c != "" {
		t.Comments = c
	}
	t.UpdatedAt = now
	return nil
}

func (t *Timesheet) Reject(approverID, reason, comments string, now time.Time) error {
	if !t.Status.IsPendingReview() {
		return &core.StateError{Op: "reject timesheet", Status: string(t.Status)}
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return core.Invalid("rejectionReason", "rejection reason is required")
	}
	t.Status = StatusRejected
	t.ApprovedBy = approverID
	t.ApprovalDate = &now
	t.RejectionReason = reason
	if c := strings.TrimSpace(comments); c != "" {
		t.Comments = c
	}
	t.UpdatedAt = now
	return nil
}

// Clone returns a deep copy.
func (t *Timesheet) Clone() *Timesheet {
	c := *t
	c.DisciplineCodes = append([]string(nil), t.DisciplineCodes...)
	c.Entries = make([]Entry, len(t.Entries))
	for i, e := range t.Entries {
		e.DisciplineCodes = append([]string(nil), e.DisciplineCodes...)
		c.Entries[i] = e
	}
	if t.SubmittedAt != nil {
		s := *t.SubmittedAt
		c.SubmittedAt = &s
	}
	if t.ApprovalDate != nil {
		a := *t.ApprovalDate
		c.ApprovalDate = &a
	}
	return &c
}

// OvertimeByDay maps each day with overtime to its hours.
func (t *Timesheet) OvertimeByDay() map[string]core.Hours {
	used := make(map[string]core.Hours)
	for _, e := range t.Entries {
		if e.OTHours.IsPositive() {
			used[e.Date.String()] = e.OTHours
		}
	}
	return used
}
