/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes of the timesheet, overtime and costing endpoints. Domain types
  never go on the wire directly.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

HOURS & MONEY:
  Hours and costs travel as JSON numbers. Internally they are decimals, so
  conversion happens here and nowhere else.

VALIDATION:
  Struct tags (go-playground/validator) check presence only. Ranges, day
  uniqueness and every business rule stay in the domain packages so the
  messages match whichever entry point is used.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/core"
	"github.com/warp/timesheet-engine/costing"
	"github.com/warp/timesheet-engine/discipline"
	"github.com/warp/timesheet-engine/overtime"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// TIMESHEETS
// =============================================================================

type EntryDTO struct {
	Date            string                `json:"date" validate:"required"`
	NormalHours     float64               `json:"normalHours"`
	OTHours         float64               `json:"otHours"`
	HoursCode       string                `json:"hoursCode,omitempty"`
	Description     string                `json:"description,omitempty"`
	DisciplineCodes discipline.StringList `json:"disciplineCodes,omitempty"`
}

type CreateTimesheetRequest struct {
	ProjectID       string                `json:"projectId" validate:"required"`
	Area            string                `json:"area"`
	Month           int                   `json:"month" validate:"required"`
	Year            int                   `json:"year" validate:"required"`
	Entries         []EntryDTO            `json:"entries" validate:"omitempty,dive"`
	DisciplineCodes discipline.StringList `json:"disciplineCodes"`
}

// UpdateTimesheetRequest leaves absent fields untouched. "entries": []
// clears every entry.
type UpdateTimesheetRequest struct {
	Entries         []EntryDTO            `json:"entries" validate:"omitempty,dive"`
	Area            *string               `json:"area"`
	Comments        *string               `json:"comments"`
	DisciplineCodes discipline.StringList `json:"disciplineCodes"`
}

type ApproveRequest struct {
	Comments string `json:"comments"`
}

type RejectRequest struct {
	RejectionReason string `json:"rejectionReason" validate:"required"`
	Comments        string `json:"comments"`
}

type TimesheetDTO struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	ProjectID         string     `json:"projectId"`
	DisciplineCodes   []string   `json:"disciplineCodes"`
	Area              string     `json:"area,omitempty"`
	Month             int        `json:"month"`
	Year              int        `json:"year"`
	Entries           []EntryDTO `json:"entries"`
	TotalNormalHours  float64    `json:"totalNormalHours"`
	TotalOTHours      float64    `json:"totalOTHours"`
	TotalHours        float64    `json:"totalHours"`
	Status            string     `json:"status"`
	ResubmissionCount int        `json:"resubmissionCount"`
	RejectionReason   string     `json:"rejectionReason,omitempty"`
	Comments          string     `json:"comments,omitempty"`
	SubmittedAt       *string    `json:"submittedAt,omitempty"`
	ApprovedBy        string     `json:"approvedBy,omitempty"`
	ApprovalDate      *string    `json:"approvalDate,omitempty"`
	CreatedAt         string     `json:"createdAt"`
	UpdatedAt         string     `json:"updatedAt"`
}

// toEntries converts wire entries. A nil input stays nil so updates can
// tell "absent" from "empty".
func toEntries(in []EntryDTO) ([]timesheet.Entry, error) {
	if in == nil {
		return nil, nil
	}
	entries := make([]timesheet.Entry, len(in))
	for i, e := range in {
		day, err := parseDay("entries.date", e.Date)
		if err != nil {
			return nil, err
		}
		entries[i] = timesheet.Entry{
			Date:            day,
			NormalHours:     decimal.NewFromFloat(e.NormalHours),
			OTHours:         decimal.NewFromFloat(e.OTHours),
			HoursCode:       e.HoursCode,
			Description:     e.Description,
			DisciplineCodes: e.DisciplineCodes,
		}
	}
	return entries, nil
}

func toTimesheetDTO(t *timesheet.Timesheet) TimesheetDTO {
	entries := make([]EntryDTO, len(t.Entries))
	for i, e := range t.Entries {
		entries[i] = EntryDTO{
			Date:            e.Date.String(),
			NormalHours:     e.NormalHours.InexactFloat64(),
			OTHours:         e.OTHours.InexactFloat64(),
			HoursCode:       e.HoursCode,
			Description:     e.Description,
			DisciplineCodes: e.DisciplineCodes,
		}
	}
	codes := t.DisciplineCodes
	if codes == nil {
		codes = []string{}
	}
	return TimesheetDTO{
		ID:                t.ID,
		UserID:            t.UserID,
		ProjectID:         t.ProjectID,
		DisciplineCodes:   codes,
		Area:              t.Area,
		Month:             t.Month,
		Year:              t.Year,
		Entries:           entries,
		TotalNormalHours:  t.TotalNormalHours.InexactFloat64(),
		TotalOTHours:      t.TotalOTHours.InexactFloat64(),
		TotalHours:        t.TotalHours.InexactFloat64(),
		Status:            string(t.Status),
		ResubmissionCount: t.ResubmissionCount,
		RejectionReason:   t.RejectionReason,
		Comments:          t.Comments,
		SubmittedAt:       formatOptionalTime(t.SubmittedAt),
		ApprovedBy:        t.ApprovedBy,
		ApprovalDate:      formatOptionalTime(t.ApprovalDate),
		CreatedAt:         t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         t.UpdatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// OVERTIME REQUESTS
// =============================================================================

type DailyHoursDTO struct {
	Date  string  `json:"date" validate:"required"`
	Hours float64 `json:"hours"`
}

// CreateOvertimeRequest accepts the weekly form (weekStartDate + dailyHours)
// or the older single-day form (date + requestedHours).
type CreateOvertimeRequest struct {
	ProjectID       string          `json:"projectId" validate:"required"`
	WeekStartDate   string          `json:"weekStartDate"`
	DailyHours      []DailyHoursDTO `json:"dailyHours" validate:"omitempty,dive"`
	Date            string          `json:"date"`
	RequestedHours  *float64        `json:"requestedHours"`
	Reason          string          `json:"reason"`
	WorkDescription string          `json:"workDescription"`
	DisciplineCode  string          `json:"disciplineCode"`
	Area            string          `json:"area"`
}

type UpdateOvertimeRequest struct {
	WeekStartDate   string          `json:"weekStartDate"`
	DailyHours      []DailyHoursDTO `json:"dailyHours" validate:"omitempty,dive"`
	Date            string          `json:"date"`
	RequestedHours  *float64        `json:"requestedHours"`
	Reason          *string         `json:"reason"`
	WorkDescription *string         `json:"workDescription"`
	DisciplineCode  *string         `json:"disciplineCode"`
	Area            *string         `json:"area"`
}

type RejectOvertimeRequest struct {
	RejectionReason string `json:"rejectionReason" validate:"required"`
}

type ValidateOvertimeRequest struct {
	ProjectID     string  `json:"projectId" validate:"required"`
	Date          string  `json:"date" validate:"required"`
	Hours         float64 `json:"hours"`
	TimesheetType string  `json:"timesheetType"`
}

type ValidateOvertimeResponse struct {
	Valid         bool     `json:"valid"`
	Message       string   `json:"message,omitempty"`
	ApprovedHours *float64 `json:"approvedHours,omitempty"`
}

type OvertimeRequestDTO struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	ProjectID       string          `json:"projectId"`
	WeekStartDate   string          `json:"weekStartDate"`
	WeekEndDate     string          `json:"weekEndDate"`
	DailyHours      []DailyHoursDTO `json:"dailyHours"`
	TotalHours      float64         `json:"totalHours"`
	Reason          string          `json:"reason"`
	WorkDescription string          `json:"workDescription,omitempty"`
	DisciplineCode  string          `json:"disciplineCode,omitempty"`
	Area            string          `json:"area,omitempty"`
	Status          string          `json:"status"`
	ActualHours     *float64        `json:"actualHours,omitempty"`
	ApprovedBy      string          `json:"approvedBy,omitempty"`
	ApprovedAt      *string         `json:"approvedAt,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

func toWeekInput(weekStart string, daily []DailyHoursDTO, date string, requested *float64) (overtime.WeekInput, error) {
	var in overtime.WeekInput
	var err error
	if weekStart != "" {
		if in.WeekStart, err = parseDay("weekStartDate", weekStart); err != nil {
			return in, err
		}
	}
	if daily != nil {
		// "dailyHours": [] must reach the ledger as an empty list
		in.DailyHours = make([]overtime.DailyHours, 0, len(daily))
	}
	for _, d := range daily {
		day, err := parseDay("dailyHours.date", d.Date)
		if err != nil {
			return in, err
		}
		in.DailyHours = append(in.DailyHours, overtime.DailyHours{Date: day, Hours: decimal.NewFromFloat(d.Hours)})
	}
	if date != "" {
		if in.Date, err = parseDay("date", date); err != nil {
			return in, err
		}
	}
	if requested != nil {
		h := decimal.NewFromFloat(*requested)
		in.RequestedHours = &h
	}
	return in, nil
}

func (r UpdateOvertimeRequest) hasWeek() bool {
	return r.WeekStartDate != "" || r.DailyHours != nil || r.Date != "" || r.RequestedHours != nil
}

func toOvertimeDTO(r *overtime.Request) OvertimeRequestDTO {
	daily := make([]DailyHoursDTO, len(r.DailyHours))
	for i, d := range r.DailyHours {
		daily[i] = DailyHoursDTO{Date: d.Date.String(), Hours: d.Hours.InexactFloat64()}
	}
	dto := OvertimeRequestDTO{
		ID:              r.ID,
		UserID:          r.UserID,
		ProjectID:       r.ProjectID,
		WeekStartDate:   r.WeekStart.String(),
		WeekEndDate:     r.WeekEnd.String(),
		DailyHours:      daily,
		TotalHours:      r.TotalHours().InexactFloat64(),
		Reason:          r.Reason,
		WorkDescription: r.WorkDescription,
		DisciplineCode:  r.DisciplineCode,
		Area:            r.Area,
		Status:          string(r.Status),
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      formatOptionalTime(r.ApprovedAt),
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       r.UpdatedAt.Format(time.RFC3339),
	}
	if r.ActualHours != nil {
		v := r.ActualHours.InexactFloat64()
		dto.ActualHours = &v
	}
	return dto
}

// =============================================================================
// COSTING
// =============================================================================

type HoursDTO struct {
	Normal   float64 `json:"normal"`
	Overtime float64 `json:"overtime"`
	Total    float64 `json:"total"`
}

type CostDTO struct {
	Normal   float64 `json:"normal"`
	Overtime float64 `json:"overtime"`
	Total    float64 `json:"total"`
}

type ProjectDTO struct {
	ID     string `json:"id"`
	Code   string `json:"code,omitempty"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type EmployeeCostDTO struct {
	UserID     string   `json:"userId"`
	Name       string   `json:"name"`
	HourlyRate float64  `json:"hourlyRate"`
	Timesheets int      `json:"timesheetCount"`
	Hours      HoursDTO `json:"hours"`
	Cost       CostDTO  `json:"cost"`
}

type DisciplineCostDTO struct {
	Code  string   `json:"disciplineCode"`
	Hours HoursDTO `json:"hours"`
	Cost  CostDTO  `json:"cost"`
}

type MonthCostDTO struct {
	Month int      `json:"month"`
	Year  int      `json:"year"`
	Hours HoursDTO `json:"hours"`
	Cost  CostDTO  `json:"cost"`
}

type CostSummaryDTO struct {
	Hours                  HoursDTO `json:"hours"`
	Cost                   CostDTO  `json:"cost"`
	EmployeeCount          int      `json:"employeeCount"`
	ProjectCount           int      `json:"projectCount"`
	AverageCostPerEmployee float64  `json:"averageCostPerEmployee"`
	AverageCostPerProject  float64  `json:"averageCostPerProject"`
}

type CostingReportDTO struct {
	Success            bool                `json:"success"`
	Project            *ProjectDTO         `json:"project,omitempty"`
	Periods            []string            `json:"periods"`
	DisciplineFilter   string              `json:"disciplineFilter,omitempty"`
	OvertimeMultiplier float64             `json:"overtimeMultiplier"`
	Employees          []EmployeeCostDTO   `json:"employeeBreakdown"`
	Disciplines        []DisciplineCostDTO `json:"disciplineBreakdown"`
	Months             []MonthCostDTO      `json:"monthlyBreakdown"`
	Summary            CostSummaryDTO      `json:"summary"`
}

func toHoursDTO(h costing.Hours) HoursDTO {
	return HoursDTO{Normal: h.Normal.InexactFloat64(), Overtime: h.Overtime.InexactFloat64(), Total: h.Total.InexactFloat64()}
}

func toCostDTO(c costing.Cost) CostDTO {
	return CostDTO{Normal: money(c.Normal), Overtime: money(c.Overtime), Total: money(c.Total)}
}

func toCostingDTO(r *costing.Report) CostingReportDTO {
	dto := CostingReportDTO{
		Success:            true,
		DisciplineFilter:   r.DisciplineFilter,
		OvertimeMultiplier: r.OvertimeMultiplier.InexactFloat64(),
		Periods:            make([]string, len(r.Periods)),
		Employees:          make([]EmployeeCostDTO, len(r.Employees)),
		Disciplines:        make([]DisciplineCostDTO, len(r.Disciplines)),
		Months:             make([]MonthCostDTO, len(r.Months)),
		Summary: CostSummaryDTO{
			Hours:                  toHoursDTO(r.Summary.Hours),
			Cost:                   toCostDTO(r.Summary.Cost),
			EmployeeCount:          r.Summary.EmployeeCount,
			ProjectCount:           r.Summary.ProjectCount,
			AverageCostPerEmployee: money(r.Summary.AverageCostPerEmployee),
			AverageCostPerProject:  money(r.Summary.AverageCostPerProject),
		},
	}
	if r.Project != nil {
		dto.Project = &ProjectDTO{ID: r.Project.ID, Code: r.Project.Code, Name: r.Project.Name, Status: string(r.Project.Status)}
	}
	for i, p := range r.Periods {
		dto.Periods[i] = p.String()
	}
	for i, e := range r.Employees {
		dto.Employees[i] = EmployeeCostDTO{
			UserID: e.UserID, Name: e.Name, HourlyRate: money(e.HourlyRate), Timesheets: e.Timesheets,
			Hours: toHoursDTO(e.Hours), Cost: toCostDTO(e.Cost),
		}
	}
	for i, d := range r.Disciplines {
		dto.Disciplines[i] = DisciplineCostDTO{Code: d.Code, Hours: toHoursDTO(d.Hours), Cost: toCostDTO(d.Cost)}
	}
	for i, m := range r.Months {
		dto.Months[i] = MonthCostDTO{
			Month: int(m.Period.Month), Year: m.Period.Year,
			Hours: toHoursDTO(m.Hours), Cost: toCostDTO(m.Cost),
		}
	}
	return dto
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDay(field, s string) (core.Day, error) {
	d, err := core.ParseDay(s)
	if err != nil {
		return core.Day{}, core.Invalid(field, "%s", err.Error())
	}
	return d, nil
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
