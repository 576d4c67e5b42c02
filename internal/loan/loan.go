// internal/loan/loan.go
package loan

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Loan actions recorded on the loan after an operation.
const (
	ActionCheckedOut             = "checkedout"
	ActionRenewed                = "renewed"
	ActionRenewedThroughOverride = "renewedThroughOverride"
	ActionRecallRequested        = "recallrequested"
)

// Item statuses the circulation rules care about.
const (
	ItemStatusCheckedOut      = "Checked out"
	ItemStatusDeclaredLost    = "Declared lost"
	ItemStatusClaimedReturned = "Claimed returned"
	ItemStatusAgedToLost      = "Aged to lost"
)

// Reminders tracks the reminder notices sent for an overdue loan.
type Reminders struct {
	LastNumber int        `json:"lastFeeBilledNumber"`
	LastSentAt *time.Time `json:"lastFeeBilledDate,omitempty"`
}

// Loan is an item checked out to a patron.
type Loan struct {
	ID                     uuid.UUID  `json:"id"`
	ItemID                 uuid.UUID  `json:"itemId" validate:"required"`
	UserID                 uuid.UUID  `json:"userId" validate:"required"`
	LoanPolicyID           string     `json:"loanPolicyId,omitempty"`
	LoanDate               time.Time  `json:"loanDate" validate:"required"`
	DueDate                time.Time  `json:"dueDate"`
	Status                 string     `json:"status,omitempty"`
	ItemStatus             string     `json:"itemStatus,omitempty"`
	Action                 string     `json:"action,omitempty"`
	ActionComment          string     `json:"actionComment,omitempty"`
	RenewalCount           int        `json:"renewalCount" validate:"gte=0"`
	DueDateChangedByRecall bool       `json:"dueDateChangedByRecall"`
	Reminders              *Reminders `json:"reminders,omitempty"`
}

// IsOverdue reports whether the loan was due before the given instant.
func (l *Loan) IsOverdue(systemDate time.Time) bool {
	if strings.EqualFold(l.Status, "Closed") {
		return false
	}
	return l.DueDate.Before(systemDate)
}

// IsItemLost reports whether the loaned item is declared or aged to lost.
func (l *Loan) IsItemLost() bool {
	return l.ItemStatus == ItemStatusDeclaredLost || l.ItemStatus == ItemStatusAgedToLost
}

// WasDueDateChangedByRecall reports whether a recall already moved the due date.
func (l *Loan) WasDueDateChangedByRecall() bool {
	return l.DueDateChangedByRecall
}

// ChangeDueDate sets a new due date.
func (l *Loan) ChangeDueDate(dueDate time.Time) *Loan {
	l.DueDate = dueDate
	return l
}

// ResetReminders clears reminder state so overdue notices restart from the new due date.
func (l *Loan) ResetReminders() *Loan {
	l.Reminders = nil
	return l
}

// ApplyRecall moves the due date for a recall and marks the loan as changed by recall.
func (l *Loan) ApplyRecall(dueDate time.Time) *Loan {
	l.ChangeDueDate(dueDate)
	l.ResetReminders()
	l.DueDateChangedByRecall = true
	l.Action = ActionRecallRequested
	return l
}

// Renew applies a regular renewal.
func (l *Loan) Renew(dueDate time.Time, loanPolicyID string) *Loan {
	l.DueDate = dueDate
	l.LoanPolicyID = loanPolicyID
	l.RenewalCount++
	l.Action = ActionRenewed
	l.ActionComment = ""
	return l
}

// OverrideRenewal applies a renewal forced through by staff.
func (l *Loan) OverrideRenewal(dueDate time.Time, loanPolicyID, comment string) *Loan {
	l.DueDate = dueDate
	l.LoanPolicyID = loanPolicyID
	l.RenewalCount++
	l.Action = ActionRenewedThroughOverride
	l.ActionComment = comment
	return l
}

// Clone returns a copy that can be changed without touching the original.
func (l *Loan) Clone() *Loan {
	c := *l
	if l.Reminders != nil {
		r := *l.Reminders
		c.Reminders = &r
	}
	return &c
}
