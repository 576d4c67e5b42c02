// internal/policy/scenarios_test.go
package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoWeekRollingPolicy = `{
  "id": "9d1d2a2e-4f5b-4a6c-9d4e-5c1a6e0b1f11",
  "name": "Two week loans",
  "loanable": true,
  "renewable": true,
  "loansPolicy": {
    "profileId": "Rolling",
    "period": {"duration": 2, "intervalId": "Weeks"},
    "fixedDueDateScheduleId": "limit"
  },
  "renewalsPolicy": {
    "numberAllowed": 2,
    "renewFromId": "CURRENT_DUE_DATE",
    "differentPeriod": true,
    "period": {"duration": 1, "intervalId": "Months"}
  }
}`

const semesterSchedule = `{
  "id": "semester",
  "name": "Spring semester",
  "schedules": [
    {"from": "2024-01-01T00:00:00Z", "to": "2024-02-01T00:00:00Z", "due": "2024-02-15T00:00:00Z"}
  ]
}`

const fixedSemesterPolicy = `{
  "id": "5f0c2a8e-0d9e-4b52-8f0a-3c2e9a7d4b22",
  "name": "Semester loans",
  "loanable": true,
  "renewable": false,
  "loansPolicy": {"profileId": "Fixed", "fixedDueDateScheduleId": "semester"}
}`

const recallPolicyJSON = `{
  "id": "1c7e4c1a-77a2-4c8b-9a55-0e6f3b9d7c33",
  "name": "Recallable loans",
  "loanable": true,
  "renewable": true,
  "loansPolicy": {"profileId": "Rolling", "period": {"duration": 4, "intervalId": "Weeks"}},
  "requestManagement": {
    "recalls": {
      "recallReturnInterval": {"duration": 1, "intervalId": "Weeks"},
      "allowRecallsToExtendOverdueLoans": false
    }
  }
}`

func mustPolicy(t *testing.T, raw string) LoanPolicy {
	t.Helper()
	p, err := FromJSON([]byte(raw))
	require.NoError(t, err)
	return p
}

func mustSchedules(t *testing.T, raw string) FixedDueDateSchedules {
	t.Helper()
	doc, err := ParseScheduleDocument([]byte(raw))
	require.NoError(t, err)
	return doc.FixedDueDateSchedules()
}

func TestScenario_RollingCheckoutWithoutLimit(t *testing.T) {
	p := mustPolicy(t, twoWeekRollingPolicy)
	l := newLoan(date(2024, 1, 1), time.Time{})

	got, err := p.CalculateInitialDueDate(l, nil, l.ItemID.String())
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 15), got.DueDate)
	assert.False(t, got.AlternatePeriodUsed)
}

func TestScenario_RollingCheckoutCappedBySchedule(t *testing.T) {
	limit := NewFixedDueDateSchedules("limit", "Term end", []ScheduleEntry{
		{From: date(2023, 12, 1), To: date(2024, 1, 31), Due: date(2024, 1, 10)},
	})
	p := mustPolicy(t, twoWeekRollingPolicy).WithDueDateSchedules(limit)
	l := newLoan(date(2024, 1, 1), time.Time{})

	got, err := p.CalculateInitialDueDate(l, nil, l.ItemID.String())
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 10), got.DueDate)
}

func TestScenario_FixedCheckout(t *testing.T) {
	p := mustPolicy(t, fixedSemesterPolicy).WithDueDateSchedules(mustSchedules(t, semesterSchedule))

	inside := newLoan(date(2024, 1, 15), time.Time{})
	got, err := p.CalculateInitialDueDate(inside, nil, inside.ItemID.String())
	require.NoError(t, err)
	assert.Equal(t, date(2024, 2, 15), got.DueDate)

	outside := newLoan(date(2024, 3, 1), time.Time{})
	_, err = p.CalculateInitialDueDate(outside, nil, outside.ItemID.String())
	vf := requireValidation(t, err)
	assert.Equal(t, []string{ReasonLoanDateOutsideSchedules}, reasons(vf))
	name, _ := vf.Errors[0].Param(ParamLoanPolicyName)
	assert.Equal(t, "Semester loans", name)
}

func TestScenario_RollingRenewalFromCurrentDueDate(t *testing.T) {
	p := mustPolicy(t, twoWeekRollingPolicy)
	l := newLoan(date(2024, 1, 1), date(2024, 1, 15))

	got, err := p.SelectStrategy(nil, true, false, date(2024, 1, 14), l.ItemID.String()).Calculate(l)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 2, 15), got)
}

func TestScenario_RecallShortensLoan(t *testing.T) {
	p := mustPolicy(t, recallPolicyJSON)
	l := newLoan(date(2024, 2, 20), date(2024, 3, 19))

	got, err := p.Recall(l, date(2024, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 8), got.DueDate)
	assert.True(t, got.WasDueDateChangedByRecall())
}

func TestScenario_RecallLeavesOverdueLoanAlone(t *testing.T) {
	p := mustPolicy(t, recallPolicyJSON)
	l := newLoan(date(2024, 1, 20), date(2024, 2, 17))

	got, err := p.Recall(l, date(2024, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 2, 17), got.DueDate)
}
