package timesheet_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/core"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// AGGREGATE TESTS - no store involved
// =============================================================================

var now = time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)

func h(v float64) core.Hours { return decimal.NewFromFloat(v) }

func march(d int) core.Day { return core.NewDay(2024, time.March, d) }

func entry(d int, normal, ot float64) timesheet.Entry {
	return timesheet.Entry{Date: march(d), NormalHours: h(normal), OTHours: h(ot)}
}

func newDraft(t *testing.T, entries ...timesheet.Entry) *timesheet.Timesheet {
	t.Helper()
	normalized, err := timesheet.NormalizeEntries(3, 2024, entries)
	require.NoError(t, err)
	return timesheet.New("ts-1", "u-1", "p-1", []string{"CIV"}, "", 3, 2024, normalized, now)
}

func assertTotals(t *testing.T, ts *timesheet.Timesheet) {
	t.Helper()
	normal, ot := decimal.Zero, decimal.Zero
	for _, e := range ts.Entries {
		normal = normal.Add(e.NormalHours)
		ot = ot.Add(e.OTHours)
	}
	assert.True(t, ts.TotalNormalHours.Equal(normal), "normal %s != %s", ts.TotalNormalHours, normal)
	assert.True(t, ts.TotalOTHours.Equal(ot), "ot %s != %s", ts.TotalOTHours, ot)
	assert.True(t, ts.TotalHours.Equal(normal.Add(ot)), "total %s", ts.TotalHours)
}

func TestTimesheet_TotalsFollowEntries(t *testing.T) {
	ts := newDraft(t)
	assertTotals(t, ts)
	assert.True(t, ts.TotalHours.IsZero())

	require.NoError(t, ts.Apply(timesheet.Patch{Entries: []timesheet.Entry{
		entry(4, 8, 0), entry(5, 7.5, 1.25), entry(6, 0, 2),
	}}, now))
	assertTotals(t, ts)
	assert.True(t, ts.TotalHours.Equal(h(18.75)))

	require.NoError(t, ts.Apply(timesheet.Patch{Entries: []timesheet.Entry{}}, now))
	assertTotals(t, ts)
	assert.Empty(t, ts.Entries)
}

func TestTimesheet_RecomputeOverwritesCallerTotals(t *testing.T) {
	ts := newDraft(t, entry(4, 8, 0))
	ts.TotalHours = h(999)
	ts.TotalNormalHours = h(1)

	ts.Recompute()
	assertTotals(t, ts)
	assert.True(t, ts.TotalHours.Equal(h(8)))
}

func TestNormalizeEntries(t *testing.T) {
	entries, err := timesheet.NormalizeEntries(3, 2024, []timesheet.Entry{
		{Date: march(9), NormalHours: h(4), HoursCode: " al ", DisciplineCodes: []string{"str", "STR", " civ"}},
		{Date: march(2), NormalHours: h(8), Description: "  site visit "},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-03-02", entries[0].Date.String(), "sorted by date")
	assert.Equal(t, "site visit", entries[0].Description)
	assert.Equal(t, "AL", entries[1].HoursCode)
	assert.Equal(t, []string{"STR", "CIV"}, entries[1].DisciplineCodes)
}

func TestNormalizeEntries_Rejects(t *testing.T) {
	cases := map[string][]timesheet.Entry{
		"other month":   {{Date: core.NewDay(2024, time.April, 1), NormalHours: h(8)}},
		"duplicate day": {entry(4, 4, 0), entry(4, 4, 0)},
		"normal > 24":   {entry(4, 24.5, 0)},
		"negative ot":   {entry(4, 8, -1)},
		"ot > 24":       {entry(4, 0, 25)},
		"missing date":  {{NormalHours: h(8)}},
	}
	for name, entries := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := timesheet.NormalizeEntries(3, 2024, entries)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}

	_, err := timesheet.NormalizeEntries(3, 2024, []timesheet.Entry{entry(4, 4, 0), entry(4, 4, 0)})
	assert.Contains(t, err.Error(), "2024-03-04", "error names the day")
}

// =============================================================================
// STATE MACHINE
// =============================================================================

func TestTimesheet_StateMachine(t *testing.T) {
	// GIVEN: A draft timesheet
	ts := newDraft(t, entry(5, 8, 0))
	assert.Equal(t, timesheet.StatusDraft, ts.Status)
	assert.True(t, ts.CanEdit())

	// WHEN: Submitted
	require.NoError(t, ts.Submit(now))
	assert.Equal(t, timesheet.StatusSubmitted, ts.Status)
	assert.Equal(t, 0, ts.ResubmissionCount)
	require.NotNil(t, ts.SubmittedAt)
	assert.False(t, ts.CanEdit())
	assert.ErrorIs(t, ts.Apply(timesheet.Patch{}, now), core.ErrInvalidState)
	assert.ErrorIs(t, ts.Submit(now), core.ErrInvalidState)

	// WHEN: Rejected
	require.NoError(t, ts.Reject("m-1", "wrong project", "", now))
	assert.Equal(t, timesheet.StatusRejected, ts.Status)
	assert.Equal(t, "wrong project", ts.RejectionReason)
	assert.Equal(t, "m-1", ts.ApprovedBy)

	// WHEN: Resubmitted straight from rejected
	require.NoError(t, ts.Submit(now))
	assert.Equal(t, timesheet.StatusResubmitted, ts.Status)
	assert.Equal(t, 1, ts.ResubmissionCount)
	assert.ErrorIs(t, ts.Apply(timesheet.Patch{}, now), core.ErrInvalidState, "resubmitted is under review")

	// WHEN: Approved
	require.NoError(t, ts.Approve("m-1", "ok", now))
	assert.Equal(t, timesheet.StatusApproved, ts.Status)
	assert.Empty(t, ts.RejectionReason)
	assert.Equal(t, "ok", ts.Comments)
	assert.True(t, ts.IsTerminal())

	// THEN: Approved is terminal
	assert.ErrorIs(t, ts.Submit(now), core.ErrInvalidState)
	assert.ErrorIs(t, ts.Approve("m-1", "", now), core.ErrInvalidState)
	assert.ErrorIs(t, ts.Reject("m-1", "late", "", now), core.ErrInvalidState)
	assert.ErrorIs(t, ts.Apply(timesheet.Patch{Entries: []timesheet.Entry{}}, now), core.ErrInvalidState)
}

func TestTimesheet_EditingRejectedResetsToDraft(t *testing.T) {
	ts := newDraft(t, entry(5, 8, 0))
	require.NoError(t, ts.Submit(now))
	require.NoError(t, ts.Reject("m-1", "wrong project", "", now))

	area := "Plant A"
	require.NoError(t, ts.Apply(timesheet.Patch{Area: &area}, now))

	assert.Equal(t, timesheet.StatusDraft, ts.Status)
	assert.Empty(t, ts.ApprovedBy)
	assert.Nil(t, ts.ApprovalDate)
	assert.Empty(t, ts.RejectionReason)
	assert.Equal(t, "Plant A", ts.Area)

	// a draft that was submitted before counts as a resubmission
	require.NoError(t, ts.Submit(now))
	assert.Equal(t, timesheet.StatusResubmitted, ts.Status)
	assert.Equal(t, 1, ts.ResubmissionCount)
}

func TestTimesheet_RejectNeedsReason(t *testing.T) {
	ts := newDraft(t)
	require.NoError(t, ts.Submit(now))

	assert.ErrorIs(t, ts.Reject("m-1", " ", "", now), core.ErrValidation)
	assert.Equal(t, timesheet.StatusSubmitted, ts.Status)

	assert.ErrorIs(t, newDraft(t).Reject("m-1", "x", "", now), core.ErrInvalidState)
	assert.ErrorIs(t, newDraft(t).Approve("m-1", "", now), core.ErrInvalidState)
}

func TestTimesheet_PatchDisciplineCodes(t *testing.T) {
	ts := newDraft(t)
	require.NoError(t, ts.Apply(timesheet.Patch{DisciplineCodes: []string{"str", " civ", "STR"}}, now))
	assert.Equal(t, []string{"STR", "CIV"}, ts.DisciplineCodes)

	assert.ErrorIs(t, ts.Apply(timesheet.Patch{DisciplineCodes: []string{}}, now), core.ErrValidation)
}

func TestParseStatus(t *testing.T) {
	for _, s := range timesheet.AllStatuses {
		got, err := timesheet.ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := timesheet.ParseStatus("pending")
	assert.ErrorIs(t, err, core.ErrValidation)
}
