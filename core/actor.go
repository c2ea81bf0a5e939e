package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROLES & ACTORS
// =============================================================================

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool    { return a.Role == RoleAdmin }
func (a Actor) IsManager() bool  { return a.Role == RoleManager }
func (a Actor) IsEmployee() bool { return a.Role == RoleEmployee }

// CanApprove reports whether the actor may approve or reject submissions.
func (a Actor) CanApprove() bool {
	return a.IsManager() || a.IsAdmin()
}

// CanManage reports owner-or-admin access to a record owned by ownerID.
func (a Actor) CanManage(ownerID string) bool {
	return a.IsAdmin() || a.ID == ownerID
}

// CanView reports read access: owner, or anyone who reviews submissions.
func (a Actor) CanView(ownerID string) bool {
	return a.ID == ownerID || a.CanApprove()
}

// =============================================================================
// COLLABORATOR RECORDS - owned elsewhere, referenced here
// =============================================================================

// User is the identity record the auth subsystem owns.
type User struct {
	ID         string
	Name       string
	Email      string
	Role       Role
	HourlyRate *decimal.Decimal // nil when absent or not numeric
	Active     bool
}

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "on-hold"
	ProjectCancelled ProjectStatus = "cancelled"
)

func ParseProjectStatus(s string) (ProjectStatus, error) {
	switch ps := ProjectStatus(strings.ToLower(strings.TrimSpace(s))); ps {
	case ProjectActive, ProjectCompleted, ProjectOnHold, ProjectCancelled:
		return ps, nil
	default:
		return "", fmt.Errorf("unknown project status %q", s)
	}
}

// Project is the project record the admin subsystem owns.
type Project struct {
	ID        string
	Code      string
	Name      string
	Status    ProjectStatus
	Areas     []string
	Platforms []string
}

// Directory resolves users and projects. Lookups return (nil, nil) when the
// id does not exist.
type Directory interface {
	GetUser(ctx context.Context, id string) (*User, error)
	GetProject(ctx context.Context, id string) (*Project, error)
	// FindUsersByName matches name case-insensitively as a substring.
	FindUsersByName(ctx context.Context, query string) ([]User, error)
}
