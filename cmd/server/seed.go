package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/api"
	"github.com/warp/timesheet-engine/core"
	"github.com/warp/timesheet-engine/store/sqlstore"
)

// seedDemo upserts a small directory for local runs and prints a token per
// user. Users and projects are owned by other systems in production.
func seedDemo(ctx context.Context, store *sqlstore.Store, secret []byte) error {
	rate := func(v int64) *decimal.Decimal {
		d := decimal.NewFromInt(v)
		return &d
	}
	users := []core.User{
		{ID: "demo-admin", Name: "Ada Admin", Email: "admin@example.com", Role: core.RoleAdmin, Active: true},
		{ID: "demo-manager", Name: "Morgan Manager", Email: "manager@example.com", Role: core.RoleManager, HourlyRate: rate(85), Active: true},
		{ID: "demo-employee", Name: "Eli Engineer", Email: "eli@example.com", Role: core.RoleEmployee, HourlyRate: rate(55), Active: true},
		{ID: "demo-contractor", Name: "Casey Contractor", Email: "casey@example.com", Role: core.RoleEmployee, Active: true},
	}
	projects := []core.Project{
		{ID: "6b1f2d3e-4c5a-4b6c-8d7e-9f0a1b2c3d4e", Code: "BR-01", Name: "River Bridge", Status: core.ProjectActive, Areas: []string{"Deck", "Piers"}},
		{ID: "7c2e3f4a-5d6b-4c7d-9e8f-0a1b2c3d4e5f", Code: "TN-02", Name: "North Tunnel", Status: core.ProjectActive},
		{ID: "8d3f4a5b-6e7c-4d8e-af90-1b2c3d4e5f60", Code: "DP-03", Name: "Depot Upgrade", Status: core.ProjectOnHold},
	}

	for _, u := range users {
		if err := store.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	for _, p := range projects {
		if err := store.SaveProject(ctx, p); err != nil {
			return fmt.Errorf("seed project %s: %w", p.Code, err)
		}
	}

	log.Printf("[Seed] %d users, %d projects", len(users), len(projects))
	for _, u := range users {
		token, err := api.SignToken(secret, core.Actor{ID: u.ID, Role: u.Role}, 24*time.Hour)
		if err != nil {
			return fmt.Errorf("sign demo token: %w", err)
		}
		log.Printf("[Seed] %-9s %s: %s", u.Role, u.ID, token)
	}
	return nil
}
