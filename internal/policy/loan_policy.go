// internal/policy/loan_policy.go
package policy

import (
	"strings"
	"time"

	"libracirc/internal/loan"
)

// LoanPolicy is an immutable snapshot of a loan policy document and its resolved schedules.
type LoanPolicy struct {
	doc                       Document
	raw                       []byte
	schedules                 FixedDueDateSchedules
	alternateRenewalSchedules FixedDueDateSchedules
}

// New builds a policy from a parsed document. Both schedule sets start as "no schedules".
func New(doc Document, raw []byte) LoanPolicy {
	return LoanPolicy{
		doc:                       doc,
		raw:                       append([]byte(nil), raw...),
		schedules:                 NoFixedDueDateSchedules(),
		alternateRenewalSchedules: NoFixedDueDateSchedules(),
	}
}

// FromJSON parses and validates a loan policy document.
func FromJSON(raw []byte) (LoanPolicy, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return LoanPolicy{}, err
	}
	return New(doc, raw), nil
}

// WithDueDateSchedules returns a copy using s as the checkout schedules.
func (p LoanPolicy) WithDueDateSchedules(s FixedDueDateSchedules) LoanPolicy {
	p.schedules = s
	return p
}

// WithAlternateRenewalSchedules returns a copy using s as the alternate renewal schedules.
func (p LoanPolicy) WithAlternateRenewalSchedules(s FixedDueDateSchedules) LoanPolicy {
	p.alternateRenewalSchedules = s
	return p
}

func (p LoanPolicy) ID() string                              { return p.doc.ID }
func (p LoanPolicy) Name() string                            { return p.doc.Name }
func (p LoanPolicy) Document() Document                      { return p.doc }
func (p LoanPolicy) Raw() []byte                             { return append([]byte(nil), p.raw...) }
func (p LoanPolicy) DueDateSchedules() FixedDueDateSchedules { return p.schedules }
func (p LoanPolicy) AlternateRenewalSchedules() FixedDueDateSchedules {
	return p.alternateRenewalSchedules
}
func (p LoanPolicy) IsLoanable() bool  { return p.doc.Loanable }
func (p LoanPolicy) IsRenewable() bool { return p.doc.Renewable }

// ProfileID returns loansPolicy.profileId, or "" without a loans section.
func (p LoanPolicy) ProfileID() string {
	if p.doc.LoansPolicy == nil {
		return ""
	}
	return p.doc.LoansPolicy.ProfileID
}

func (p LoanPolicy) IsRolling() bool { return strings.EqualFold(p.ProfileID(), ProfileRolling) }
func (p LoanPolicy) IsFixed() bool   { return strings.EqualFold(p.ProfileID(), ProfileFixed) }

// FixedDueDateScheduleID returns the id of the checkout schedule document.
func (p LoanPolicy) FixedDueDateScheduleID() string {
	if p.doc.LoansPolicy == nil {
		return ""
	}
	return p.doc.LoansPolicy.FixedDueDateScheduleID
}

// AlternateRenewalScheduleID returns the id of the alternate renewal schedule document.
func (p LoanPolicy) AlternateRenewalScheduleID() string {
	if p.doc.RenewalsPolicy == nil {
		return ""
	}
	return p.doc.RenewalsPolicy.AlternateFixedDueDateScheduleID
}

func (p LoanPolicy) loanPeriod() Period {
	if p.doc.LoansPolicy == nil {
		return Period{}
	}
	return p.doc.LoansPolicy.Period.Period()
}

func (p LoanPolicy) holds() *Holds {
	if p.doc.RequestManagement == nil {
		return nil
	}
	return p.doc.RequestManagement.Holds
}

func (p LoanPolicy) recalls() *Recalls {
	if p.doc.RequestManagement == nil {
		return nil
	}
	return p.doc.RequestManagement.Recalls
}

func (p LoanPolicy) renewals() RenewalsPolicy {
	if p.doc.RenewalsPolicy == nil {
		return RenewalsPolicy{}
	}
	return *p.doc.RenewalsPolicy
}

func (p LoanPolicy) alternateCheckoutLoanPeriod() Period {
	if h := p.holds(); h != nil {
		return h.AlternateCheckoutLoanPeriod.Period()
	}
	return Period{}
}

func (p LoanPolicy) alternateRenewalLoanPeriod() Period {
	if h := p.holds(); h != nil {
		return h.AlternateRenewalLoanPeriod.Period()
	}
	return Period{}
}

// IsUnlimitedRenewals reports renewalsPolicy.unlimited.
func (p LoanPolicy) IsUnlimitedRenewals() bool { return p.renewals().Unlimited }

// HasReachedRenewalLimit reports whether the loan used up its allowed renewals.
func (p LoanPolicy) HasReachedRenewalLimit(l *loan.Loan) bool {
	r := p.renewals()
	return !r.Unlimited && l.RenewalCount >= r.NumberAllowed
}

// IsHoldRequestRenewable reports holds.renewItemsWithRequest.
func (p LoanPolicy) IsHoldRequestRenewable() bool {
	h := p.holds()
	return h != nil && h.RenewItemsWithRequest
}

// HasAlternateRenewalLoanPeriodForHolds reports whether holds.alternateRenewalLoanPeriod is set.
func (p LoanPolicy) HasAlternateRenewalLoanPeriodForHolds() bool {
	return p.alternateRenewalLoanPeriod().IsConfigured()
}

// HasRenewalPeriod reports whether renewals use their own period.
func (p LoanPolicy) HasRenewalPeriod() bool {
	r := p.renewals()
	return r.DifferentPeriod && r.Period.Period().IsConfigured()
}

// RenewalPeriod picks the period used for a renewal.
func (p LoanPolicy) RenewalPeriod(isRenewalWithHoldRequest bool) Period {
	if isRenewalWithHoldRequest && p.HasAlternateRenewalLoanPeriodForHolds() {
		return p.alternateRenewalLoanPeriod()
	}
	if r := p.renewals(); r.DifferentPeriod {
		return r.Period.Period()
	}
	return p.loanPeriod()
}

// RenewalDueDateLimitSchedules picks the schedules that cap rolling renewals.
func (p LoanPolicy) RenewalDueDateLimitSchedules() FixedDueDateSchedules {
	if p.renewals().DifferentPeriod && p.alternateRenewalSchedules.IsConfigured() {
		return p.alternateRenewalSchedules
	}
	return p.schedules
}

// RenewalFixedDueDateSchedules picks the schedules that set fixed renewal due dates.
func (p LoanPolicy) RenewalFixedDueDateSchedules() FixedDueDateSchedules {
	if p.renewals().DifferentPeriod {
		return p.alternateRenewalSchedules
	}
	return p.schedules
}

// IsAlternatePeriodApplicable reports whether an unfilled hold on the item
// switches the checkout to the alternate loan period.
func (p LoanPolicy) IsAlternatePeriodApplicable(queue *loan.RequestQueue, itemID string) bool {
	if queue == nil || !p.alternateCheckoutLoanPeriod().IsConfigured() {
		return false
	}
	return queue.HasOpenHoldFor(itemID)
}

// SelectStrategy picks how the due date is calculated for a checkout or renewal.
func (p LoanPolicy) SelectStrategy(
	queue *loan.RequestQueue,
	isRenewal, isRenewalWithHoldRequest bool,
	systemDate time.Time,
	itemID string,
) DueDateStrategy {
	base := DueDateStrategy{PolicyID: p.ID(), PolicyName: p.Name(), Renewal: isRenewal}

	if p.doc.LoansPolicy == nil {
		base.Kind = KindUnknown
		return base
	}

	switch {
	case p.IsRolling():
		if isRenewal {
			base.Kind = KindRollingRenewal
			base.Period = p.RenewalPeriod(isRenewalWithHoldRequest)
			base.Schedules = p.RenewalDueDateLimitSchedules()
			base.RenewFrom = p.renewals().RenewFromID
			base.SystemDate = systemDate
			return base
		}
		base.Kind = KindRollingCheckout
		base.Schedules = p.schedules
		if p.IsAlternatePeriodApplicable(queue, itemID) {
			base.Period = p.alternateCheckoutLoanPeriod()
			base.AlternatePeriodUsed = true
			return base
		}
		base.Period = p.loanPeriod()
		return base

	case p.IsFixed():
		if isRenewal {
			base.Kind = KindFixedRenewal
			base.Schedules = p.RenewalFixedDueDateSchedules()
			base.SystemDate = systemDate
			return base
		}
		if p.IsAlternatePeriodApplicable(queue, itemID) {
			base.Kind = KindRollingCheckout
			base.Period = p.alternateCheckoutLoanPeriod()
			base.Schedules = p.schedules
			return base
		}
		base.Kind = KindFixedCheckout
		base.Schedules = p.schedules
		return base
	}

	base.Kind = KindUnknown
	base.ProfileID = p.ProfileID()
	return base
}

// SelectAlternateFixedCheckout returns the fixed checkout strategy that picks the
// earliest due date among overlapping schedule ranges.
func (p LoanPolicy) SelectAlternateFixedCheckout() DueDateStrategy {
	return DueDateStrategy{
		Kind:       KindFixedCheckoutEarliest,
		PolicyID:   p.ID(),
		PolicyName: p.Name(),
		Schedules:  p.schedules,
	}
}

// SelectRenewalOverride returns the uncapped rolling renewal strategy used when
// staff override a renewal that the regular rules reject.
func (p LoanPolicy) SelectRenewalOverride(systemDate time.Time) DueDateStrategy {
	return DueDateStrategy{
		Kind:       KindRollingRenewalUnlimited,
		PolicyID:   p.ID(),
		PolicyName: p.Name(),
		Period:     p.RenewalPeriod(false),
		RenewFrom:  p.renewals().RenewFromID,
		SystemDate: systemDate,
		Renewal:    true,
	}
}

// DueDateResult is the outcome of an initial due date calculation.
type DueDateResult struct {
	DueDate             time.Time
	AlternatePeriodUsed bool
	Strategy            StrategyKind
}

// CalculateInitialDueDate computes the due date for a checkout.
func (p LoanPolicy) CalculateInitialDueDate(l *loan.Loan, queue *loan.RequestQueue, itemID string) (DueDateResult, error) {
	s := p.SelectStrategy(queue, false, false, time.Time{}, itemID)
	due, err := s.Calculate(l)
	if err != nil {
		return DueDateResult{}, err
	}
	return DueDateResult{DueDate: due, AlternatePeriodUsed: s.AlternatePeriodUsed, Strategy: s.Kind}, nil
}

func (p LoanPolicy) errorFor(reason string) ValidationError {
	return NewValidationError(reason, ParamLoanPolicyID, p.ID(), ParamLoanPolicyName, p.Name())
}
