/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:    Unique ID per request for tracing
  2. Logger:       Request logging
  3. Recoverer:    Panic recovery (500 instead of crash)
  4. CORS:         Cross-origin requests for the frontend (bearer
                   tokens only, no cookies)
  5. Authenticate: Bearer token to core.Actor (/api only)

ROUTE GROUPS:
  /api/timesheets/*         Timesheet lifecycle
  /api/overtime-requests/*  Overtime pre-approval
  /api/costing              Cost reporting
  /healthz                  Liveness + storage ping (no auth)

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Bearer token middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	AllowedOrigins []string
	JWTSecret      []byte
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/healthz", h.Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(opts.JWTSecret))

		r.Route("/timesheets", func(r chi.Router) {
			r.Get("/", h.ListTimesheets)
			r.Post("/", h.CreateTimesheet)
			r.Get("/{id}", h.GetTimesheet)
			r.Put("/{id}", h.UpdateTimesheet)
			r.Delete("/{id}", h.DeleteTimesheet)
			r.Post("/{id}/submit", h.SubmitTimesheet)
			r.Post("/{id}/approve", h.ApproveTimesheet)
			r.Post("/{id}/reject", h.RejectTimesheet)
		})

		r.Route("/overtime-requests", func(r chi.Router) {
			r.Get("/", h.ListOvertime)
			r.Post("/", h.CreateOvertime)
			r.Post("/validate", h.ValidateOvertime)
			r.Get("/{id}", h.GetOvertime)
			r.Put("/{id}", h.UpdateOvertime)
			r.Delete("/{id}", h.DeleteOvertime)
			r.Post("/{id}/approve", h.ApproveOvertime)
			r.Post("/{id}/reject", h.RejectOvertime)
		})

		r.Get("/costing", h.GetCosting)
	})

	return r
}
