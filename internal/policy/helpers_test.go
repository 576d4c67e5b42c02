// internal/policy/helpers_test.go
package policy

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"libracirc/internal/loan"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func periodDoc(duration int, interval Interval) *PeriodDocument {
	return &PeriodDocument{Duration: &duration, IntervalID: string(interval)}
}

// wholeMonth covers the month and makes loans inside it due on its last day.
func wholeMonth(y int, m time.Month) ScheduleEntry {
	from := date(y, m, 1)
	to := from.AddDate(0, 1, 0).Add(-time.Second)
	return ScheduleEntry{From: from, To: to, Due: to}
}

func schedules(entries ...ScheduleEntry) FixedDueDateSchedules {
	return NewFixedDueDateSchedules("sched-1", "Semester", entries)
}

func rollingDocument(period *PeriodDocument) Document {
	return Document{
		ID:          "policy-rolling",
		Name:        "Rolling loans",
		Loanable:    true,
		Renewable:   true,
		LoansPolicy: &LoansPolicy{ProfileID: ProfileRolling, Period: period},
		RenewalsPolicy: &RenewalsPolicy{
			NumberAllowed: 3,
			RenewFromID:   RenewFromCurrentDueDate,
		},
	}
}

func fixedDocument() Document {
	return Document{
		ID:          "policy-fixed",
		Name:        "Fixed semester loans",
		Loanable:    true,
		Renewable:   true,
		LoansPolicy: &LoansPolicy{ProfileID: ProfileFixed, FixedDueDateScheduleID: "sched-1"},
		RenewalsPolicy: &RenewalsPolicy{
			NumberAllowed: 3,
			RenewFromID:   RenewFromSystemDate,
		},
	}
}

func policyOf(doc Document) LoanPolicy {
	return New(doc, nil)
}

func newLoan(loanDate, dueDate time.Time) *loan.Loan {
	return &loan.Loan{
		ID:       uuid.New(),
		ItemID:   uuid.New(),
		UserID:   uuid.New(),
		LoanDate: loanDate,
		DueDate:  dueDate,
		Status:   "Open",
	}
}

func holdQueue(itemID *uuid.UUID) *loan.RequestQueue {
	return loan.NewRequestQueue([]loan.Request{{
		ID:          uuid.New(),
		RequestType: loan.RequestTypeHold,
		Status:      loan.RequestStatusOpenNotYetFilled,
		ItemID:      itemID,
		Position:    1,
	}})
}

func recallQueue() *loan.RequestQueue {
	return loan.NewRequestQueue([]loan.Request{{
		ID:          uuid.New(),
		RequestType: loan.RequestTypeRecall,
		Status:      loan.RequestStatusOpenNotYetFilled,
		Position:    1,
	}})
}

func requireValidation(t *testing.T, err error) *ValidationFailure {
	t.Helper()
	require.Error(t, err)
	vf, ok := AsValidationFailure(err)
	require.True(t, ok, "expected validation failure, got %v", err)
	return vf
}

func reasons(vf *ValidationFailure) []string {
	out := make([]string, len(vf.Errors))
	for i, e := range vf.Errors {
		out[i] = e.Reason
	}
	return out
}
