package timesheet

import (
	"strings"

	"github.com/warp/timesheet-engine/core"
)

// Status is the approval state of a timesheet.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusResubmitted Status = "resubmitted"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusDraft, StatusSubmitted, StatusResubmitted, StatusApproved, StatusRejected}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", core.Invalid("status", "unknown timesheet status %q", s)
}

// IsPendingReview reports submitted or resubmitted.
func (s Status) IsPendingReview() bool {
	return s == StatusSubmitted || s == StatusResubmitted
}

// IsEditable reports whether entries may change in this status.
func (s Status) IsEditable() bool {
	return s == StatusDraft || s == StatusRejected
}

func (s Status) IsTerminal() bool {
	return s == StatusApproved
}
