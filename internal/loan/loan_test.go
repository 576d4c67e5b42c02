// internal/loan/loan_test.go
package loan

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoan_IsOverdue(t *testing.T) {
	due := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	l := &Loan{DueDate: due, Status: "Open"}

	assert.False(t, l.IsOverdue(due.Add(-time.Minute)))
	assert.False(t, l.IsOverdue(due))
	assert.True(t, l.IsOverdue(due.Add(time.Minute)))

	l.Status = "Closed"
	assert.False(t, l.IsOverdue(due.Add(time.Minute)))
}

func TestLoan_ApplyRecall(t *testing.T) {
	sent := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	l := &Loan{
		DueDate:   time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		Reminders: &Reminders{LastNumber: 2, LastSentAt: &sent},
	}
	newDue := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	l.ApplyRecall(newDue)

	assert.Equal(t, newDue, l.DueDate)
	assert.Nil(t, l.Reminders)
	assert.True(t, l.WasDueDateChangedByRecall())
	assert.Equal(t, ActionRecallRequested, l.Action)
}

func TestLoan_RenewAndOverride(t *testing.T) {
	l := &Loan{RenewalCount: 1}
	due := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	l.Renew(due, "policy-1")
	assert.Equal(t, 2, l.RenewalCount)
	assert.Equal(t, ActionRenewed, l.Action)
	assert.Equal(t, "policy-1", l.LoanPolicyID)

	l.OverrideRenewal(due.AddDate(0, 0, 7), "policy-1", "staff decision")
	assert.Equal(t, 3, l.RenewalCount)
	assert.Equal(t, ActionRenewedThroughOverride, l.Action)
	assert.Equal(t, "staff decision", l.ActionComment)
}

func TestLoan_CloneIsIndependent(t *testing.T) {
	l := &Loan{RenewalCount: 1, Reminders: &Reminders{LastNumber: 1}}
	c := l.Clone()
	c.RenewalCount = 5
	c.Reminders.LastNumber = 9

	assert.Equal(t, 1, l.RenewalCount)
	assert.Equal(t, 1, l.Reminders.LastNumber)
}

func TestRequestQueue_HasOpenHoldFor(t *testing.T) {
	itemID := uuid.New()
	other := uuid.New()

	tests := []struct {
		name     string
		requests []Request
		want     bool
	}{
		{"empty queue", nil, false},
		{"title level hold", []Request{{RequestType: RequestTypeHold, Status: RequestStatusOpenNotYetFilled}}, true},
		{"hold bound to item", []Request{{RequestType: RequestTypeHold, Status: RequestStatusOpenNotYetFilled, ItemID: &itemID}}, true},
		{"hold bound to other item", []Request{{RequestType: RequestTypeHold, Status: RequestStatusOpenNotYetFilled, ItemID: &other}}, false},
		{"hold awaiting pickup", []Request{{RequestType: RequestTypeHold, Status: RequestStatusOpenAwaitingPickup}}, false},
		{"recall only", []Request{{RequestType: RequestTypeRecall, Status: RequestStatusOpenNotYetFilled}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewRequestQueue(tt.requests)
			assert.Equal(t, tt.want, q.HasOpenHoldFor(itemID.String()))
		})
	}

	var nilQueue *RequestQueue
	require.Nil(t, nilQueue.First())
	assert.False(t, nilQueue.HasOpenHoldFor(itemID.String()))
}
