// internal/policy/document.go
package policy

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"libracirc/internal/platform/validate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Profile ids of loansPolicy.profileId.
const (
	ProfileRolling = "Rolling"
	ProfileFixed   = "Fixed"
)

// Values of renewalsPolicy.renewFromId.
const (
	RenewFromCurrentDueDate = "CURRENT_DUE_DATE"
	RenewFromSystemDate     = "SYSTEM_DATE"
)

// Document is a loan policy as stored by the policy storage service.
type Document struct {
	ID                string             `json:"id" validate:"required"`
	Name              string             `json:"name" validate:"required"`
	Description       string             `json:"description,omitempty"`
	Loanable          bool               `json:"loanable"`
	Renewable         bool               `json:"renewable"`
	LoansPolicy       *LoansPolicy       `json:"loansPolicy,omitempty"`
	RenewalsPolicy    *RenewalsPolicy    `json:"renewalsPolicy,omitempty"`
	RequestManagement *RequestManagement `json:"requestManagement,omitempty"`
}

// PeriodDocument is the stored form of a Period.
type PeriodDocument struct {
	Duration   *int   `json:"duration,omitempty"`
	IntervalID string `json:"intervalId,omitempty"`
}

// Period converts the document, treating nil as an unconfigured period.
func (p *PeriodDocument) Period() Period {
	if p == nil {
		return Period{}
	}
	return Period{Duration: p.Duration, Interval: Interval(p.IntervalID)}
}

// LoansPolicy is the checkout section of a loan policy.
type LoansPolicy struct {
	ProfileID                        string          `json:"profileId"`
	Period                           *PeriodDocument `json:"period,omitempty"`
	FixedDueDateScheduleID           string          `json:"fixedDueDateScheduleId,omitempty"`
	ClosedLibraryDueDateManagementID string          `json:"closedLibraryDueDateManagementId,omitempty"`
	GracePeriod                      *PeriodDocument `json:"gracePeriod,omitempty"`
}

// RenewalsPolicy is the renewal section of a loan policy.
type RenewalsPolicy struct {
	Unlimited                       bool            `json:"unlimited"`
	NumberAllowed                   int             `json:"numberAllowed" validate:"gte=0"`
	RenewFromID                     string          `json:"renewFromId,omitempty"`
	DifferentPeriod                 bool            `json:"differentPeriod"`
	Period                          *PeriodDocument `json:"period,omitempty"`
	AlternateFixedDueDateScheduleID string          `json:"alternateFixedDueDateScheduleId,omitempty"`
}

// RequestManagement holds the recall and hold rules of a loan policy.
type RequestManagement struct {
	Recalls *Recalls `json:"recalls,omitempty"`
	Holds   *Holds   `json:"holds,omitempty"`
}

// Recalls is requestManagement.recalls.
type Recalls struct {
	AlternateGracePeriod             *PeriodDocument `json:"alternateGracePeriod,omitempty"`
	MinimumGuaranteedLoanPeriod      *PeriodDocument `json:"minimumGuaranteedLoanPeriod,omitempty"`
	RecallReturnInterval             *PeriodDocument `json:"recallReturnInterval,omitempty"`
	AllowRecallsToExtendOverdueLoans bool            `json:"allowRecallsToExtendOverdueLoans"`
	AlternateRecallReturnInterval    *PeriodDocument `json:"alternateRecallReturnInterval,omitempty"`
}

// Holds is requestManagement.holds.
type Holds struct {
	AlternateCheckoutLoanPeriod *PeriodDocument `json:"alternateCheckoutLoanPeriod,omitempty"`
	RenewItemsWithRequest       bool            `json:"renewItemsWithRequest"`
	AlternateRenewalLoanPeriod  *PeriodDocument `json:"alternateRenewalLoanPeriod,omitempty"`
}

// ParseDocument decodes and validates a loan policy document.
func ParseDocument(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: decode loan policy: %v", ErrInvalidDocument, err)
	}
	if err := validate.Struct(doc); err != nil {
		return Document{}, fmt.Errorf("%w: loan policy %q: %v", ErrInvalidDocument, doc.ID, err)
	}
	return doc, nil
}

// ScheduleDocument is a fixed due date schedule as stored by the policy storage service.
type ScheduleDocument struct {
	ID          string                  `json:"id" validate:"required"`
	Name        string                  `json:"name" validate:"required"`
	Description string                  `json:"description,omitempty"`
	Schedules   []ScheduleEntryDocument `json:"schedules" validate:"dive"`
}

// ScheduleEntryDocument is one range of a schedule document.
type ScheduleEntryDocument struct {
	From time.Time `json:"from" validate:"required"`
	To   time.Time `json:"to" validate:"required,gtfield=From"`
	Due  time.Time `json:"due" validate:"required"`
}

// ParseScheduleDocument decodes and validates a fixed due date schedule document.
func ParseScheduleDocument(raw []byte) (ScheduleDocument, error) {
	var doc ScheduleDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ScheduleDocument{}, fmt.Errorf("%w: decode fixed due date schedule: %v", ErrInvalidDocument, err)
	}
	if err := validate.Struct(doc); err != nil {
		return ScheduleDocument{}, fmt.Errorf("%w: fixed due date schedule %q: %v", ErrInvalidDocument, doc.ID, err)
	}
	return doc, nil
}

// FixedDueDateSchedules converts the document into a configured schedule set.
func (d ScheduleDocument) FixedDueDateSchedules() FixedDueDateSchedules {
	entries := make([]ScheduleEntry, len(d.Schedules))
	for i, s := range d.Schedules {
		entries[i] = ScheduleEntry{From: s.From, To: s.To, Due: s.Due}
	}
	return NewFixedDueDateSchedules(d.ID, d.Name, entries)
}

// ValidJSON reports whether raw is syntactically valid JSON.
func ValidJSON(raw []byte) bool {
	return jsoniter.ConfigFastest.Valid(raw)
}
