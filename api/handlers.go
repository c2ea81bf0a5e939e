/*
handlers.go - HTTP API handlers for the timesheet engine

PURPOSE:
  Exposes the timesheet lifecycle, the overtime request ledger and the
  costing report via REST. Handlers parse, call one service method and
  serialize. Business rules live in the services.

ENDPOINTS:
  Timesheets:
    POST   /api/timesheets               Create draft for (project, month, year)
    GET    /api/timesheets               List (employees see only their own)
    GET    /api/timesheets/{id}          Get
    PUT    /api/timesheets/{id}          Owner edit (draft or rejected)
    POST   /api/timesheets/{id}/submit   Submit or resubmit
    POST   /api/timesheets/{id}/approve  Manager/admin
    POST   /api/timesheets/{id}/reject   Manager/admin, reason required
    DELETE /api/timesheets/{id}          Owner/admin, not once approved

  Overtime requests:
    POST   /api/overtime-requests               Create (weekly or single-day form)
    GET    /api/overtime-requests               List
    POST   /api/overtime-requests/validate      Pre-check hours for an entry
    GET    /api/overtime-requests/{id}          Get
    PUT    /api/overtime-requests/{id}          Owner edit while pending
    DELETE /api/overtime-requests/{id}          Owner delete while pending
    POST   /api/overtime-requests/{id}/approve  Manager/admin
    POST   /api/overtime-requests/{id}/reject   Manager/admin, reason required

  Costing:
    GET    /api/costing                  Manager/admin cost report

REQUEST FLOW:
  1. Actor from the bearer token (auth.go)
  2. Decode + validate body (errors.go)
  3. One service call
  4. DTO out, or writeDomainError

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Error to status mapping
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/core"
	"github.com/warp/timesheet-engine/costing"
	"github.com/warp/timesheet-engine/overtime"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds the services the endpoints delegate to.
type Handler struct {
	Timesheets *timesheet.Service
	Overtime   *overtime.Ledger
	Costing    *costing.Aggregator

	// Ping reports storage health for /healthz. Optional.
	Ping func(ctx context.Context) error

	validate     *validator.Validate
	maxBodyBytes int64
}

func NewHandler(timesheets *timesheet.Service, ledger *overtime.Ledger, aggregator *costing.Aggregator, maxBodyBytes int64) *Handler {
	return &Handler{
		Timesheets:   timesheets,
		Overtime:     ledger,
		Costing:      aggregator,
		validate:     newValidator(),
		maxBodyBytes: maxBodyBytes,
	}
}

// actor is set by Authenticate; routes are never mounted without it.
func actor(r *http.Request) core.Actor {
	a, _ := ActorFrom(r.Context())
	return a
}

// =============================================================================
// TIMESHEET HANDLERS
// =============================================================================

// CreateTimesheet creates a draft.
// POST /api/timesheets
func (h *Handler) CreateTimesheet(w http.ResponseWriter, r *http.Request) {
	var req CreateTimesheetRequest
	if !h.decode(w, r, &req) {
		return
	}
	entries, err := toEntries(req.Entries)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	ts, err := h.Timesheets.Create(r.Context(), actor(r), timesheet.CreateInput{
		ProjectID:       req.ProjectID,
		Area:            req.Area,
		Month:           req.Month,
		Year:            req.Year,
		Entries:         entries,
		DisciplineCodes: req.DisciplineCodes,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "timesheet": toTimesheetDTO(ts)})
}

// ListTimesheets supports userId, projectId, status, month, year and name
// (case-insensitive employee name search).
// GET /api/timesheets
func (h *Handler) ListTimesheets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := timesheet.ListQuery{
		UserID:    q.Get("userId"),
		ProjectID: q.Get("projectId"),
		Name:      q.Get("name"),
	}
	var err error
	if s := q.Get("status"); s != "" {
		if query.Status, err = timesheet.ParseStatus(s); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	if query.Month, err = queryInt(q.Get("month"), "month"); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if query.Year, err = queryInt(q.Get("year"), "year"); err != nil {
		writeDomainError(w, r, err)
		return
	}

	list, err := h.Timesheets.List(r.Context(), actor(r), query)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	dtos := make([]TimesheetDTO, len(list))
	for i := range list {
		dtos[i] = toTimesheetDTO(&list[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "timesheets": dtos})
}

// GET /api/timesheets/{id}
func (h *Handler) GetTimesheet(w http.ResponseWriter, r *http.Request) {
	ts, err := h.Timesheets.Get(r.Context(), chi.URLParam(r, "id"), actor(r))
	h.respondTimesheet(w, r, ts, err)
}

// UpdateTimesheet applies an owner edit.
// PUT /api/timesheets/{id}
func (h *Handler) UpdateTimesheet(w http.ResponseWriter, r *http.Request) {
	var req UpdateTimesheetRequest
	if !h.decode(w, r, &req) {
		return
	}
	entries, err := toEntries(req.Entries)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	ts, err := h.Timesheets.Update(r.Context(), chi.URLParam(r, "id"), actor(r), timesheet.Patch{
		Entries:         entries,
		Area:            req.Area,
		Comments:        req.Comments,
		DisciplineCodes: req.DisciplineCodes,
	})
	h.respondTimesheet(w, r, ts, err)
}

// POST /api/timesheets/{id}/submit
func (h *Handler) SubmitTimesheet(w http.ResponseWriter, r *http.Request) {
	ts, err := h.Timesheets.Submit(r.Context(), chi.URLParam(r, "id"), actor(r))
	h.respondTimesheet(w, r, ts, err)
}

// POST /api/timesheets/{id}/approve
func (h *Handler) ApproveTimesheet(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if !h.decode(w, r, &req) {
		return
	}
	ts, err := h.Timesheets.Approve(r.Context(), chi.URLParam(r, "id"), actor(r), req.Comments)
	h.respondTimesheet(w, r, ts, err)
}

// POST /api/timesheets/{id}/reject
func (h *Handler) RejectTimesheet(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if !h.decode(w, r, &req) {
		return
	}
	ts, err := h.Timesheets.Reject(r.Context(), chi.URLParam(r, "id"), actor(r), req.RejectionReason, req.Comments)
	h.respondTimesheet(w, r, ts, err)
}

// DELETE /api/timesheets/{id}
func (h *Handler) DeleteTimesheet(w http.ResponseWriter, r *http.Request) {
	if err := h.Timesheets.Delete(r.Context(), chi.URLParam(r, "id"), actor(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) respondTimesheet(w http.ResponseWriter, r *http.Request, ts *timesheet.Timesheet, err error) {
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "timesheet": toTimesheetDTO(ts)})
}

// =============================================================================
// OVERTIME REQUEST HANDLERS
// =============================================================================

// CreateOvertime files a pending request.
// POST /api/overtime-requests
func (h *Handler) CreateOvertime(w http.ResponseWriter, r *http.Request) {
	var req CreateOvertimeRequest
	if !h.decode(w, r, &req) {
		return
	}
	week, err := toWeekInput(req.WeekStartDate, req.DailyHours, req.Date, req.RequestedHours)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	created, err := h.Overtime.Create(r.Context(), actor(r), overtime.CreateInput{
		ProjectID:       req.ProjectID,
		Week:            week,
		Reason:          req.Reason,
		WorkDescription: req.WorkDescription,
		DisciplineCode:  req.DisciplineCode,
		Area:            req.Area,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "request": toOvertimeDTO(created)})
}

// GET /api/overtime-requests
func (h *Handler) ListOvertime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := overtime.Filter{
		UserID:    q.Get("userId"),
		ProjectID: q.Get("projectId"),
	}
	if s := q.Get("status"); s != "" {
		status, err := overtime.ParseStatus(s)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		filter.Status = status
	}

	list, err := h.Overtime.List(r.Context(), actor(r), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	dtos := make([]OvertimeRequestDTO, len(list))
	for i := range list {
		dtos[i] = toOvertimeDTO(&list[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "requests": dtos})
}

// GET /api/overtime-requests/{id}
func (h *Handler) GetOvertime(w http.ResponseWriter, r *http.Request) {
	req, err := h.Overtime.Get(r.Context(), chi.URLParam(r, "id"), actor(r))
	h.respondOvertime(w, r, req, err)
}

// PUT /api/overtime-requests/{id}
func (h *Handler) UpdateOvertime(w http.ResponseWriter, r *http.Request) {
	var req UpdateOvertimeRequest
	if !h.decode(w, r, &req) {
		return
	}
	patch := overtime.Patch{
		Reason:          req.Reason,
		WorkDescription: req.WorkDescription,
		DisciplineCode:  req.DisciplineCode,
		Area:            req.Area,
	}
	if req.hasWeek() {
		week, err := toWeekInput(req.WeekStartDate, req.DailyHours, req.Date, req.RequestedHours)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		patch.Week = &week
	}

	updated, err := h.Overtime.Update(r.Context(), chi.URLParam(r, "id"), actor(r), patch)
	h.respondOvertime(w, r, updated, err)
}

// DELETE /api/overtime-requests/{id}
func (h *Handler) DeleteOvertime(w http.ResponseWriter, r *http.Request) {
	if err := h.Overtime.Delete(r.Context(), chi.URLParam(r, "id"), actor(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// POST /api/overtime-requests/{id}/approve
func (h *Handler) ApproveOvertime(w http.ResponseWriter, r *http.Request) {
	req, err := h.Overtime.Approve(r.Context(), chi.URLParam(r, "id"), actor(r))
	h.respondOvertime(w, r, req, err)
}

// POST /api/overtime-requests/{id}/reject
func (h *Handler) RejectOvertime(w http.ResponseWriter, r *http.Request) {
	var body RejectOvertimeRequest
	if !h.decode(w, r, &body) {
		return
	}
	req, err := h.Overtime.Reject(r.Context(), chi.URLParam(r, "id"), actor(r), body.RejectionReason)
	h.respondOvertime(w, r, req, err)
}

// ValidateOvertime answers whether hours on a day are covered by an
// approved request of the caller.
// POST /api/overtime-requests/validate
func (h *Handler) ValidateOvertime(w http.ResponseWriter, r *http.Request) {
	var req ValidateOvertimeRequest
	if !h.decode(w, r, &req) {
		return
	}
	day, err := parseDay("date", req.Date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := h.Overtime.ValidateForEntry(r.Context(), actor(r), req.ProjectID, day, decimal.NewFromFloat(req.Hours), req.TimesheetType)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp := ValidateOvertimeResponse{Valid: res.Valid, Message: res.Message}
	if res.ApprovedHours != nil {
		v := res.ApprovedHours.InexactFloat64()
		resp.ApprovedHours = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) respondOvertime(w http.ResponseWriter, r *http.Request, req *overtime.Request, err error) {
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "request": toOvertimeDTO(req)})
}

// =============================================================================
// COSTING
// =============================================================================

// GetCosting builds the cost report. Query: projectId, month, year,
// startDate, endDate, hourlyRate (default rate), disciplineCode (filter).
// GET /api/costing
func (h *Handler) GetCosting(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	if !a.CanApprove() {
		writeDomainError(w, r, core.Forbidden(a.ID, "view cost reports"))
		return
	}

	q := r.URL.Query()
	query := costing.Query{
		ProjectID:      q.Get("projectId"),
		DisciplineCode: q.Get("disciplineCode"),
	}
	var err error
	if query.Month, err = queryInt(q.Get("month"), "month"); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if query.Year, err = queryInt(q.Get("year"), "year"); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if s := q.Get("startDate"); s != "" {
		if query.StartDate, err = parseDay("startDate", s); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	if s := q.Get("endDate"); s != "" {
		if query.EndDate, err = parseDay("endDate", s); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	if s := strings.TrimSpace(q.Get("hourlyRate")); s != "" {
		rate, err := decimal.NewFromString(s)
		if err != nil {
			writeDomainError(w, r, core.Invalid("hourlyRate", "must be a number"))
			return
		}
		query.DefaultRate = &rate
	}

	report, err := h.Costing.Report(r.Context(), query)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCostingDTO(report))
}

// =============================================================================
// HEALTH
// =============================================================================

// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Storage unavailable", nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(s, field string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, core.Invalid(field, "must be a whole number")
	}
	return n, nil
}
