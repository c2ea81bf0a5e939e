/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Bearer authentication and role claims
- The full timesheet lifecycle over HTTP, overtime gating included
- Error to status mapping (400/403/404/409)
- Overtime validate endpoint and costing authorization
- CORS headers
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/core"
	"github.com/warp/timesheet-engine/costing"
	"github.com/warp/timesheet-engine/overtime"
	"github.com/warp/timesheet-engine/store/memory"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const projectID = "3f2c9a51-7d0e-4b8a-9c1d-5e6f7a8b9c0d"

var (
	testSecret = []byte("test-secret")
	employee   = core.Actor{ID: "u-1", Role: core.RoleEmployee}
	colleague  = core.Actor{ID: "u-2", Role: core.RoleEmployee}
	manager    = core.Actor{ID: "m-1", Role: core.RoleManager}
)

type testServer struct {
	router http.Handler
	store  *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	rate := decimal.NewFromInt(50)
	require.NoError(t, store.SaveUser(ctx, core.User{ID: "u-1", Name: "Alice", Role: core.RoleEmployee, HourlyRate: &rate, Active: true}))
	require.NoError(t, store.SaveUser(ctx, core.User{ID: "u-2", Name: "Bob", Role: core.RoleEmployee, Active: true}))
	require.NoError(t, store.SaveProject(ctx, core.Project{ID: projectID, Code: "BR", Name: "Bridge", Status: core.ProjectActive}))

	h := NewHandler(
		timesheet.NewService(store, store),
		overtime.NewLedger(store, store),
		costing.NewAggregator(store, store, decimal.NewFromInt(1), decimal.NewFromInt(40)),
		1<<20,
	)
	return &testServer{
		router: NewRouter(h, RouterOptions{AllowedOrigins: []string{"*"}, JWTSecret: testSecret}),
		store:  store,
	}
}

func (s *testServer) do(t *testing.T, method, path string, actor *core.Actor, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := SignToken(testSecret, *actor, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type timesheetResponse struct {
	Success   bool         `json:"success"`
	Timesheet TimesheetDTO `json:"timesheet"`
}

type overtimeResponse struct {
	Success bool               `json:"success"`
	Request OvertimeRequestDTO `json:"request"`
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// approvedWeek files and approves 3h of overtime on Friday 2024-03-15.
func (s *testServer) approvedWeek(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/overtime-requests", &employee, map[string]any{
		"projectId":     projectID,
		"weekStartDate": "2024-03-11",
		"dailyHours":    []map[string]any{{"date": "2024-03-15", "hours": 3}},
		"reason":        "pour deadline",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[overtimeResponse](t, rec)
	assert.Equal(t, "pending", created.Request.Status)

	rec = s.do(t, http.MethodPost, "/api/overtime-requests/"+created.Request.ID+"/approve", &manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return created.Request.ID
}

// =============================================================================
// AUTH
// =============================================================================

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health needs no token")

	rec = s.do(t, http.MethodGet, "/api/timesheets", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bogus := core.Actor{ID: "u-9", Role: "superuser"}
	rec = s.do(t, http.MethodGet, "/api/timesheets", &bogus, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "unknown role")

	forged, err := SignToken([]byte("other-secret"), employee, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/timesheets", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "wrong signing key")

	expired, err := SignToken(testSecret, employee, -time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/timesheets", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "expired")
}

// =============================================================================
// TIMESHEET LIFECYCLE
// =============================================================================

func TestTimesheetLifecycle(t *testing.T) {
	// GIVEN: 3h of approved overtime on 2024-03-15
	s := newTestServer(t)
	s.approvedWeek(t)

	// WHEN: The employee logs 2h overtime that day
	rec := s.do(t, http.MethodPost, "/api/timesheets", &employee, map[string]any{
		"projectId":       projectID,
		"month":           3,
		"year":            2024,
		"disciplineCodes": "civ",
		"entries": []map[string]any{
			{"date": "2024-03-15", "normalHours": 8, "otHours": 2},
			{"date": "2024-03-14", "normalHours": 7.5, "otHours": 0},
		},
	})

	// THEN: Created as draft with derived totals
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ts := decodeBody[timesheetResponse](t, rec).Timesheet
	assert.Equal(t, "draft", ts.Status)
	assert.Equal(t, []string{"CIV"}, ts.DisciplineCodes)
	assert.Equal(t, 15.5, ts.TotalNormalHours)
	assert.Equal(t, 2.0, ts.TotalOTHours)
	assert.Equal(t, 17.5, ts.TotalHours)
	assert.Equal(t, "2024-03-14", ts.Entries[0].Date)

	// duplicate period
	rec = s.do(t, http.MethodPost, "/api/timesheets", &employee, map[string]any{
		"projectId": projectID, "month": 3, "year": 2024, "disciplineCodes": []string{"CIV"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// overtime beyond the approved 3h names the day
	rec = s.do(t, http.MethodPut, "/api/timesheets/"+ts.ID, &employee, map[string]any{
		"entries": []map[string]any{{"date": "2024-03-15", "normalHours": 8, "otHours": 4}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Error, "2024-03-15")

	// submit
	rec = s.do(t, http.MethodPost, "/api/timesheets/"+ts.ID+"/submit", &employee, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "submitted", decodeBody[timesheetResponse](t, rec).Timesheet.Status)

	// submitted is not editable
	rec = s.do(t, http.MethodPut, "/api/timesheets/"+ts.ID, &employee, map[string]any{"comments": "late edit"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// employees cannot review
	rec = s.do(t, http.MethodPost, "/api/timesheets/"+ts.ID+"/approve", &employee, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// reject needs a reason
	rec = s.do(t, http.MethodPost, "/api/timesheets/"+ts.ID+"/reject", &manager, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/timesheets/"+ts.ID+"/reject", &manager, map[string]any{"rejectionReason": "wrong project"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rejected := decodeBody[timesheetResponse](t, rec).Timesheet
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, "wrong project", rejected.RejectionReason)

	// editing a rejected timesheet resets it to draft
	rec = s.do(t, http.MethodPut, "/api/timesheets/"+ts.ID, &employee, map[string]any{"area": "Deck"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := decodeBody[timesheetResponse](t, rec).Timesheet
	assert.Equal(t, "draft", edited.Status)
	assert.Empty(t, edited.RejectionReason)

	rec = s.do(t, http.MethodPost, "/api/timesheets/"+ts.ID+"/submit", &employee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resubmitted := decodeBody[timesheetResponse](t, rec).Timesheet
	assert.Equal(t, "resubmitted", resubmitted.Status)
	assert.Equal(t, 1, resubmitted.ResubmissionCount)

	rec = s.do(t, http.MethodPost, "/api/timesheets/"+ts.ID+"/approve", &manager, map[string]any{"comments": "ok"})
	require.Equal(t, http.StatusOK, rec.Code)
	approved := decodeBody[timesheetResponse](t, rec).Timesheet
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, "m-1", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovalDate)

	// approved is terminal
	rec = s.do(t, http.MethodDelete, "/api/timesheets/"+ts.ID, &employee, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// and the consumed overtime shows up on the request
	rec = s.do(t, http.MethodGet, "/api/overtime-requests?status=approved", &employee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[struct {
		Requests []OvertimeRequestDTO `json:"requests"`
	}](t, rec)
	require.Len(t, list.Requests, 1)
	require.NotNil(t, list.Requests[0].ActualHours)
	assert.Equal(t, 2.0, *list.Requests[0].ActualHours)
}

func TestTimesheet_OvertimeWithoutApproval(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/timesheets", &employee, map[string]any{
		"projectId": projectID, "month": 3, "year": 2024, "disciplineCodes": []string{"CIV"},
		"entries": []map[string]any{{"date": "2024-03-15", "normalHours": 8, "otHours": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[ErrorResponse](t, rec)
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "2024-03-15")
	assert.Contains(t, body.Error, "overtime not approved")
}

func TestTimesheet_Access(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/timesheets", &employee, map[string]any{
		"projectId": projectID, "month": 4, "year": 2024, "disciplineCodes": []string{"CIV"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeBody[timesheetResponse](t, rec).Timesheet.ID

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/timesheets/"+id, &colleague, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/timesheets/"+id, &manager, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/timesheets/missing", &manager, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/timesheets/"+id+"/submit", &colleague, nil).Code)

	// colleagues only ever see their own list
	rec = s.do(t, http.MethodGet, "/api/timesheets?userId=u-1", &colleague, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[struct {
		Timesheets []TimesheetDTO `json:"timesheets"`
	}](t, rec)
	assert.Empty(t, list.Timesheets)

	rec = s.do(t, http.MethodGet, "/api/timesheets?name=ali", &manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decodeBody[struct {
		Timesheets []TimesheetDTO `json:"timesheets"`
	}](t, rec)
	assert.Len(t, list.Timesheets, 1)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/timesheets/"+id, &employee, nil).Code)
}

func TestTimesheet_BadInput(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/timesheets", &employee, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/timesheets", &employee, map[string]any{"month": 3, "year": 2024})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Details, "projectId")

	rec = s.do(t, http.MethodPost, "/api/timesheets", &employee, map[string]any{
		"projectId": projectID, "month": 3, "year": 2024, "disciplineCodes": []string{"CIV"},
		"entries": []map[string]any{{"date": "15/03/2024", "normalHours": 8}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/timesheets", &employee, map[string]any{
		"projectId": projectID, "month": 3, "year": 2024,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "discipline code is required")

	rec = s.do(t, http.MethodGet, "/api/timesheets?month=march", &employee, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/timesheets?status=pending", &employee, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// OVERTIME REQUESTS
// =============================================================================

func TestOvertime_ValidateEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.approvedWeek(t)

	check := func(hours float64, date, kind string) ValidateOvertimeResponse {
		rec := s.do(t, http.MethodPost, "/api/overtime-requests/validate", &employee, map[string]any{
			"projectId": projectID, "date": date, "hours": hours, "timesheetType": kind,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decodeBody[ValidateOvertimeResponse](t, rec)
	}

	ok := check(2, "2024-03-15", "ot")
	assert.True(t, ok.Valid)
	require.NotNil(t, ok.ApprovedHours)
	assert.Equal(t, 3.0, *ok.ApprovedHours)

	over := check(4, "2024-03-15", "ot")
	assert.False(t, over.Valid)
	assert.NotEmpty(t, over.Message)

	none := check(1, "2024-03-20", "ot")
	assert.False(t, none.Valid)

	assert.True(t, check(10, "2024-03-20", "normal").Valid, "only overtime entries need coverage")
}

func TestOvertime_Lifecycle(t *testing.T) {
	s := newTestServer(t)

	// legacy single-day form lands on the Monday week
	rec := s.do(t, http.MethodPost, "/api/overtime-requests", &employee, map[string]any{
		"projectId": projectID, "date": "2024-03-13", "requestedHours": 2, "reason": "commissioning",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[overtimeResponse](t, rec).Request
	assert.Equal(t, "2024-03-11", created.WeekStartDate)
	assert.Equal(t, "2024-03-17", created.WeekEndDate)

	// an overlapping active request conflicts
	rec = s.do(t, http.MethodPost, "/api/overtime-requests", &employee, map[string]any{
		"projectId": projectID, "weekStartDate": "2024-03-11",
		"dailyHours": []map[string]any{{"date": "2024-03-12", "hours": 1}}, "reason": "again",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// owner edit while pending
	rec = s.do(t, http.MethodPut, "/api/overtime-requests/"+created.ID, &employee, map[string]any{"reason": "commissioning, phase 2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "commissioning, phase 2", decodeBody[overtimeResponse](t, rec).Request.Reason)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/overtime-requests/"+created.ID, &colleague, nil).Code)

	rec = s.do(t, http.MethodPost, "/api/overtime-requests/"+created.ID+"/reject", &manager, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/overtime-requests/"+created.ID+"/reject", &manager, map[string]any{"rejectionReason": "no budget"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rejected", decodeBody[overtimeResponse](t, rec).Request.Status)

	// rejected requests cannot be edited
	rec = s.do(t, http.MethodPut, "/api/overtime-requests/"+created.ID, &employee, map[string]any{"reason": "retry"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// the week is free again
	rec = s.do(t, http.MethodPost, "/api/overtime-requests", &employee, map[string]any{
		"projectId": projectID, "weekStartDate": "2024-03-11",
		"dailyHours": []map[string]any{{"date": "2024-03-12", "hours": 1}}, "reason": "again",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	second := decodeBody[overtimeResponse](t, rec).Request

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/overtime-requests/"+second.ID, &employee, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/overtime-requests/"+second.ID, &employee, nil).Code)
}

func TestOvertime_UpdateWeekForms(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/overtime-requests", &employee, map[string]any{
		"projectId": projectID, "date": "2024-03-13", "requestedHours": 2, "reason": "commissioning",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeBody[overtimeResponse](t, rec).Request.ID

	rec = s.do(t, http.MethodPut, "/api/overtime-requests/"+id, &employee, map[string]any{"requestedHours": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[overtimeResponse](t, rec).Request
	assert.Equal(t, 5.0, updated.TotalHours)
	require.Len(t, updated.DailyHours, 1)
	assert.Equal(t, "2024-03-13", updated.DailyHours[0].Date)

	rec = s.do(t, http.MethodPut, "/api/overtime-requests/"+id, &employee, map[string]any{"dailyHours": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Error, "at least one day is required")
}

// =============================================================================
// COSTING
// =============================================================================

func TestCosting(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/timesheets", &employee, map[string]any{
		"projectId": projectID, "month": 3, "year": 2024, "disciplineCodes": []string{"CIV", "STR"},
		"entries": []map[string]any{{"date": "2024-03-04", "normalHours": 8, "otHours": 0}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeBody[timesheetResponse](t, rec).Timesheet.ID
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/timesheets/"+id+"/submit", &employee, nil).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/timesheets/"+id+"/approve", &manager, nil).Code)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/costing?month=3&year=2024", &employee, nil).Code)

	rec = s.do(t, http.MethodGet, "/api/costing?month=3&year=2024&projectId="+projectID, &manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decodeBody[CostingReportDTO](t, rec)
	require.NotNil(t, report.Project)
	assert.Equal(t, "Bridge", report.Project.Name)
	require.Len(t, report.Disciplines, 2)
	assert.Equal(t, 4.0, report.Disciplines[0].Hours.Total)
	assert.Equal(t, 200.0, report.Disciplines[0].Cost.Total)
	assert.Equal(t, 400.0, report.Summary.Cost.Total)
	assert.Equal(t, []string{"2024-03"}, report.Periods)

	rec = s.do(t, http.MethodGet, "/api/costing?startDate=2024-02-10&endDate=2024-04-02&disciplineCode=str", &manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report = decodeBody[CostingReportDTO](t, rec)
	assert.Len(t, report.Periods, 3)
	assert.Equal(t, 4.0, report.Summary.Hours.Total)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/costing", &manager, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/costing?month=3&year=2024&projectId=bridge", &manager, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/costing?month=3&year=2024&hourlyRate=abc", &manager, nil).Code)
}

func TestCORS_NoCredentials(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/timesheets", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestHealthz_StorageDown(t *testing.T) {
	store := memory.New()
	h := NewHandler(timesheet.NewService(store, store), overtime.NewLedger(store, store),
		costing.NewAggregator(store, store, decimal.NewFromInt(1), decimal.Zero), 0)
	h.Ping = func(context.Context) error { return assert.AnError }
	router := NewRouter(h, RouterOptions{JWTSecret: testSecret})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", strings.NewReader("")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
