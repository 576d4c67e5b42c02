// internal/circulation/domain.go
package circulation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"libracirc/internal/loan"
)

// Event types written to the event store.
const (
	EventLoanRenewed                = "LoanRenewed"
	EventLoanRenewalOverridden      = "LoanRenewalOverridden"
	EventLoanDueDateChangedByRecall = "LoanDueDateChangedByRecall"

	aggregateLoan = "loan"
)

// DueDateRequest asks for the due date of a new loan.
type DueDateRequest struct {
	Loan   loan.Loan `json:"loan"`
	ItemID uuid.UUID `json:"itemId,omitempty"`
}

// LoanRequest carries a loan to renew or recall.
type LoanRequest struct {
	Loan loan.Loan `json:"loan"`
}

// OverrideRenewRequest carries a staff override renewal.
type OverrideRenewRequest struct {
	Loan    loan.Loan  `json:"loan"`
	DueDate *time.Time `json:"dueDate,omitempty"`
	Comment string     `json:"comment"`
}

// DueDate is the calculated due date of a new loan.
type DueDate struct {
	DueDate             time.Time `json:"dueDate"`
	LoanPolicyID        string    `json:"loanPolicyId"`
	LoanPolicyName      string    `json:"loanPolicyName"`
	AlternatePeriodUsed bool      `json:"alternatePeriodUsed"`
	Strategy            string    `json:"strategy"`
}

// PolicySummary describes a resolved loan policy.
type PolicySummary struct {
	ID                                  string          `json:"id"`
	Name                                string          `json:"name"`
	ProfileID                           string          `json:"profileId,omitempty"`
	Loanable                            bool            `json:"loanable"`
	Renewable                           bool            `json:"renewable"`
	FixedDueDateScheduleID              string          `json:"fixedDueDateScheduleId,omitempty"`
	SchedulesConfigured                 bool            `json:"schedulesConfigured"`
	AlternateRenewalScheduleID          string          `json:"alternateFixedDueDateScheduleId,omitempty"`
	AlternateRenewalSchedulesConfigured bool            `json:"alternateSchedulesConfigured"`
	Document                            json.RawMessage `json:"document"`
}

// LoanDueDateChanged is the payload of every due date event.
type LoanDueDateChanged struct {
	LoanID          uuid.UUID `json:"loanId"`
	ItemID          uuid.UUID `json:"itemId"`
	UserID          uuid.UUID `json:"userId"`
	LoanPolicyID    string    `json:"loanPolicyId"`
	PreviousDueDate time.Time `json:"previousDueDate"`
	DueDate         time.Time `json:"dueDate"`
	RenewalCount    int       `json:"renewalCount"`
	Comment         string    `json:"comment,omitempty"`
}

// HistoryEntry is one stored event of a loan.
type HistoryEntry struct {
	Version   int             `json:"version"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}
