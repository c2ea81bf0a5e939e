/*
costing.go - Read-only cost projection over approved timesheets

PURPOSE:
  Joins approved timesheets with hourly rates and produces cost rollups per
  employee, per discipline and per month, plus summary totals. Nothing here
  writes.

PERIOD:
  Either an explicit month + year, or a date range expanded into every
  (month, year) it touches. Whole months are costed.

RATES:
  rate          = user's stored hourly rate
                  else the query's DefaultRate
                  else the configured default rate
  normal cost   = normal hours x rate
  overtime cost = overtime hours x rate x OvertimeMultiplier

  The multiplier is configuration (1.0 today: overtime is paid at the normal
  rate).

DISCIPLINE SPLIT:
  Each entry's hours are split evenly across its discipline codes (the
  entry's own codes, else the timesheet's codes). Shares are rounded to
  four decimals and the last code takes the remainder, so the shares of one
  entry always sum to the entry total.

    8h on [CIV, STR]  =>  CIV 4h, STR 4h
    1h on [A, B, C]   =>  A 0.3333h, B 0.3333h, C 0.3334h

  A discipline filter keeps only that code's share, in every rollup.

SEE ALSO:
  - timesheet/store.go: Source of approved timesheets
*/
package costing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/core"
	"github.com/warp/timesheet-engine/discipline"
	"github.com/warp/timesheet-engine/timesheet"
)

// Unassigned labels hours with no discipline code at all.
const Unassigned = "UNASSIGNED"

const sharePlaces = 4

// Source lists timesheets.
type Source interface {
	ListTimesheets(ctx context.Context, f timesheet.Filter) ([]timesheet.Timesheet, error)
}

type Aggregator struct {
	source    Source
	directory core.Directory

	OvertimeMultiplier decimal.Decimal
	DefaultRate        decimal.Decimal
}

func NewAggregator(source Source, directory core.Directory, overtimeMultiplier, defaultRate decimal.Decimal) *Aggregator {
	return &Aggregator{
		source:             source,
		directory:          directory,
		OvertimeMultiplier: overtimeMultiplier,
		DefaultRate:        defaultRate,
	}
}

// =============================================================================
// QUERY & REPORT
// =============================================================================

type Query struct {
	ProjectID      string // empty means every project
	Month          int
	Year           int
	StartDate      core.Day
	EndDate        core.Day
	DefaultRate    *decimal.Decimal
	DisciplineCode string
}

type Report struct {
	Project            *core.Project
	Periods            []core.YearMonth
	DisciplineFilter   string
	OvertimeMultiplier decimal.Decimal
	Employees          []EmployeeCost
	Disciplines        []DisciplineCost
	Months             []MonthCost
	Summary            Summary
}

type Hours struct {
	Normal   decimal.Decimal
	Overtime decimal.Decimal
	Total    decimal.Decimal
}

type Cost struct {
	Normal   decimal.Decimal
	Overtime decimal.Decimal
	Total    decimal.Decimal
}

type EmployeeCost struct {
	UserID     string
	Name       string
	HourlyRate decimal.Decimal
	Timesheets int
	Hours      Hours
	Cost       Cost
}

type DisciplineCost struct {
	Code  string
	Hours Hours
	Cost  Cost
}

type MonthCost struct {
	Period core.YearMonth
	Hours  Hours
	Cost   Cost
}

type Summary struct {
	Hours                  Hours
	Cost                   Cost
	EmployeeCount          int
	ProjectCount           int
	AverageCostPerEmployee decimal.Decimal
	AverageCostPerProject  decimal.Decimal
}

// =============================================================================
// REPORT
// =============================================================================

func (a *Aggregator) Report(ctx context.Context, q Query) (*Report, error) {
	periods, err := resolvePeriods(q)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Periods:            periods,
		DisciplineFilter:   discipline.NormalizeDisciplineCode(q.DisciplineCode),
		OvertimeMultiplier: a.OvertimeMultiplier,
	}

	projectID := strings.TrimSpace(q.ProjectID)
	if projectID != "" {
		if _, err := uuid.Parse(projectID); err != nil {
			return nil, core.Invalid("projectId", "invalid id format")
		}
		project, err := a.directory.GetProject(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("load project: %w", err)
		}
		if project == nil {
			return nil, core.NotFound("project", projectID)
		}
		report.Project = project
	}

	defaultRate := a.DefaultRate
	if q.DefaultRate != nil {
		if q.DefaultRate.IsNegative() {
			return nil, core.Invalid("hourlyRate", "must not be negative")
		}
		defaultRate = *q.DefaultRate
	}

	acc := newAccumulator(a.OvertimeMultiplier, report.DisciplineFilter)
	rates := make(map[string]*core.User)

	for _, period := range periods {
		sheets, err := a.source.ListTimesheets(ctx, timesheet.Filter{
			ProjectID: projectID,
			Status:    timesheet.StatusApproved,
			Month:     int(period.Month),
			Year:      period.Year,
		})
		if err != nil {
			return nil, fmt.Errorf("list approved timesheets: %w", err)
		}

		for i := range sheets {
			ts := &sheets[i]
			user, ok := rates[ts.UserID]
			if !ok {
				if user, err = a.directory.GetUser(ctx, ts.UserID); err != nil {
					return nil, fmt.Errorf("load user: %w", err)
				}
				rates[ts.UserID] = user
			}
			rate := defaultRate
			name := ""
			if user != nil {
				name = user.Name
				if user.HourlyRate != nil {
					rate = *user.HourlyRate
				}
			}
			acc.addTimesheet(period, ts, name, rate)
		}
	}

	acc.fill(report)
	return report, nil
}

func resolvePeriods(q Query) ([]core.YearMonth, error) {
	if q.Month != 0 || q.Year != 0 {
		if err := core.ValidPeriod(q.Month, q.Year); err != nil {
			return nil, err
		}
		return []core.YearMonth{{Year: q.Year, Month: time.Month(q.Month)}}, nil
	}
	if !q.StartDate.IsZero() && !q.EndDate.IsZero() {
		return core.MonthsCovered(q.StartDate, q.EndDate)
	}
	return nil, core.Invalid("period", "provide month and year, or startDate and endDate")
}

// =============================================================================
// ACCUMULATION
// =============================================================================

type accumulator struct {
	multiplier decimal.Decimal
	filter     string

	employees   map[string]*EmployeeCost
	disciplines map[string]*DisciplineCost
	months      map[core.YearMonth]*MonthCost
	projects    map[string]bool
	total       struct {
		Hours Hours
		Cost  Cost
	}
}

func newAccumulator(multiplier decimal.Decimal, filter string) *accumulator {
	return &accumulator{
		multiplier:  multiplier,
		filter:      filter,
		employees:   make(map[string]*EmployeeCost),
		disciplines: make(map[string]*DisciplineCost),
		months:      make(map[core.YearMonth]*MonthCost),
		projects:    make(map[string]bool),
	}
}

func (acc *accumulator) addTimesheet(period core.YearMonth, ts *timesheet.Timesheet, name string, rate decimal.Decimal) {
	counted := false
	for _, e := range ts.Entries {
		codes := e.DisciplineCodes
		if len(codes) == 0 {
			codes = ts.DisciplineCodes
		}
		if len(codes) == 0 {
			codes = []string{Unassigned}
		}

		for _, share := range SplitEntry(e.NormalHours, e.OTHours, codes) {
			if acc.filter != "" && share.Code != acc.filter {
				continue
			}
			cost := acc.cost(share.Hours, rate)

			emp := acc.employee(ts.UserID, name, rate)
			addInto(&emp.Hours, &emp.Cost, share.Hours, cost)

			d := acc.discipline(share.Code)
			addInto(&d.Hours, &d.Cost, share.Hours, cost)

			m := acc.month(period)
			addInto(&m.Hours, &m.Cost, share.Hours, cost)

			addInto(&acc.total.Hours, &acc.total.Cost, share.Hours, cost)
			counted = true
		}
	}

	if counted || acc.filter == "" {
		acc.employee(ts.UserID, name, rate).Timesheets++
		acc.projects[ts.ProjectID] = true
	}
}

func (acc *accumulator) cost(h Hours, rate decimal.Decimal) Cost {
	normal := h.Normal.Mul(rate)
	overtime := h.Overtime.Mul(rate).Mul(acc.multiplier)
	return Cost{Normal: normal, Overtime: overtime, Total: normal.Add(overtime)}
}

func (acc *accumulator) employee(userID, name string, rate decimal.Decimal) *EmployeeCost {
	emp, ok := acc.employees[userID]
	if !ok {
		emp = &EmployeeCost{UserID: userID, Name: name, HourlyRate: rate, Hours: zeroHours(), Cost: zeroCost()}
		acc.employees[userID] = emp
	}
	return emp
}

func (acc *accumulator) discipline(code string) *DisciplineCost {
	d, ok := acc.disciplines[code]
	if !ok {
		d = &DisciplineCost{Code: code, Hours: zeroHours(), Cost: zeroCost()}
		acc.disciplines[code] = d
	}
	return d
}

func (acc *accumulator) month(period core.YearMonth) *MonthCost {
	m, ok := acc.months[period]
	if !ok {
		m = &MonthCost{Period: period, Hours: zeroHours(), Cost: zeroCost()}
		acc.months[period] = m
	}
	return m
}

func (acc *accumulator) fill(r *Report) {
	r.Employees = make([]EmployeeCost, 0, len(acc.employees))
	for _, e := range acc.employees {
		r.Employees = append(r.Employees, *e)
	}
	sort.Slice(r.Employees, func(i, j int) bool {
		if r.Employees[i].Name != r.Employees[j].Name {
			return r.Employees[i].Name < r.Employees[j].Name
		}
		return r.Employees[i].UserID < r.Employees[j].UserID
	})

	r.Disciplines = make([]DisciplineCost, 0, len(acc.disciplines))
	for _, d := range acc.disciplines {
		r.Disciplines = append(r.Disciplines, *d)
	}
	sort.Slice(r.Disciplines, func(i, j int) bool { return r.Disciplines[i].Code < r.Disciplines[j].Code })

	r.Months = make([]MonthCost, 0, len(acc.months))
	for _, m := range acc.months {
		r.Months = append(r.Months, *m)
	}
	sort.Slice(r.Months, func(i, j int) bool { return r.Months[i].Period.Before(r.Months[j].Period) })

	s := Summary{
		Hours:                  acc.total.Hours,
		Cost:                   acc.total.Cost,
		EmployeeCount:          len(acc.employees),
		ProjectCount:           len(acc.projects),
		AverageCostPerEmployee: decimal.Zero,
		AverageCostPerProject:  decimal.Zero,
	}
	if len(acc.employees) == 0 {
		s.Hours, s.Cost = zeroHours(), zeroCost()
	}
	if s.EmployeeCount > 0 {
		s.AverageCostPerEmployee = s.Cost.Total.DivRound(decimal.NewFromInt(int64(s.EmployeeCount)), 2)
	}
	if s.ProjectCount > 0 {
		s.AverageCostPerProject = s.Cost.Total.DivRound(decimal.NewFromInt(int64(s.ProjectCount)), 2)
	}
	r.Summary = s
}

// =============================================================================
// SPLITTING
// =============================================================================

// Share is one discipline's part of an entry.
type Share struct {
	Code  string
	Hours Hours
}

// SplitEntry divides an entry's hours evenly across codes. The last code
// takes the rounding remainder.
func SplitEntry(normal, overtime decimal.Decimal, codes []string) []Share {
	n := decimal.NewFromInt(int64(len(codes)))
	normalShare := normal.DivRound(n, sharePlaces)
	overtimeShare := overtime.DivRound(n, sharePlaces)

	shares := make([]Share, len(codes))
	normalLeft, overtimeLeft := normal, overtime
	for i, code := range codes {
		nh, oh := normalShare, overtimeShare
		if i == len(codes)-1 {
			nh, oh = normalLeft, overtimeLeft
		}
		normalLeft = normalLeft.Sub(nh)
		overtimeLeft = overtimeLeft.Sub(oh)
		shares[i] = Share{Code: code, Hours: Hours{Normal: nh, Overtime: oh, Total: nh.Add(oh)}}
	}
	return shares
}

func addInto(h *Hours, c *Cost, dh Hours, dc Cost) {
	h.Normal = h.Normal.Add(dh.Normal)
	h.Overtime = h.Overtime.Add(dh.Overtime)
	h.Total = h.Total.Add(dh.Total)
	c.Normal = c.Normal.Add(dc.Normal)
	c.Overtime = c.Overtime.Add(dc.Overtime)
	c.Total = c.Total.Add(dc.Total)
}

func zeroHours() Hours {
	return Hours{Normal: decimal.Zero, Overtime: decimal.Zero, Total: decimal.Zero}
}

func zeroCost() Cost {
	return Cost{Normal: decimal.Zero, Overtime: decimal.Zero, Total: decimal.Zero}
}
