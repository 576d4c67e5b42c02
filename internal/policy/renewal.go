// internal/policy/renewal.go
package policy

import (
	"fmt"
	"strings"
	"time"

	"libracirc/internal/loan"
)

// Renewal rule violations.
const (
	ReasonRecallRequested            = "items cannot be renewed when there is an active recall request"
	ReasonNotLoanable                = "item is not loanable"
	ReasonNotRenewable               = "loan is not renewable"
	ReasonHoldNotRenewable           = "Items with this loan policy cannot be renewed when there is an active, pending hold request"
	ReasonFixedWithHoldRenewalPeriod = "Item's loan policy has fixed profile but alternative renewal period for holds is specified"
	ReasonFixedWithRenewalPeriod     = "Item's loan policy has fixed profile but renewal period is specified"
	ReasonRenewalLimitReached        = "loan at maximum renewal number"
	ReasonDueDateUnchanged           = "renewal would not change the due date"
	ReasonOverrideCommentRequired    = "Override renewal request must have a comment"
	ReasonOverrideDueDateRequired    = "New due date must be specified when due date calculation fails"
	ReasonOverrideDueDateNotChanged  = "New due date is required when renewal would not change the due date"
	ReasonOverrideNoMatchingCase     = "Override renewal does not match any of expected cases: item is not renewable, reached number of renewals limit or renewal date falls outside of the date ranges in the loan policy"
)

var statusesDisallowedForRenewal = map[string]bool{
	loan.ItemStatusDeclaredLost:    true,
	loan.ItemStatusClaimedReturned: true,
	loan.ItemStatusAgedToLost:      true,
}

// Renew applies the regular renewal rules and, when none are violated, renews a
// copy of l. All violations are reported together.
func (p LoanPolicy) Renew(l *loan.Loan, systemDate time.Time, queue *loan.RequestQueue) (*loan.Loan, error) {
	errs := p.renewalViolations(l, queue)

	if !p.IsLoanable() || !p.IsRenewable() {
		return nil, Failed(errs...)
	}

	proposed, err := p.proposedRenewalDueDate(l, systemDate, queue.First().IsHold())
	if err != nil {
		vf, ok := AsValidationFailure(err)
		if !ok {
			return nil, err
		}
		errs = append(errs, vf.Errors...)
	} else if !proposed.After(l.DueDate) {
		errs = append(errs, p.errorFor(ReasonDueDateUnchanged))
	}

	if len(errs) > 0 {
		return nil, Failed(errs...)
	}
	return l.Clone().Renew(proposed, p.ID()), nil
}

func (p LoanPolicy) renewalViolations(l *loan.Loan, queue *loan.RequestQueue) []ValidationError {
	var errs []ValidationError
	first := queue.First()

	if first.IsRecall() {
		errs = append(errs, NewValidationError(ReasonRecallRequested, ParamRequestID, first.ID.String()))
	}
	if !p.IsLoanable() {
		errs = append(errs, p.errorFor(ReasonNotLoanable))
	}
	if !p.IsRenewable() {
		errs = append(errs, p.errorFor(ReasonNotRenewable))
	}
	if first.IsHold() {
		if !p.IsHoldRequestRenewable() {
			errs = append(errs, p.errorFor(ReasonHoldNotRenewable))
		}
		if p.IsFixed() {
			if p.HasAlternateRenewalLoanPeriodForHolds() {
				errs = append(errs, p.errorFor(ReasonFixedWithHoldRenewalPeriod))
			}
			if p.HasRenewalPeriod() {
				errs = append(errs, p.errorFor(ReasonFixedWithRenewalPeriod))
			}
		}
	}
	if statusesDisallowedForRenewal[l.ItemStatus] {
		errs = append(errs, NewValidationError("item is "+l.ItemStatus, ParamItemID, l.ItemID.String()))
	}
	if p.HasReachedRenewalLimit(l) {
		errs = append(errs, p.errorFor(ReasonRenewalLimitReached))
	}
	return errs
}

func (p LoanPolicy) proposedRenewalDueDate(l *loan.Loan, systemDate time.Time, withHold bool) (time.Time, error) {
	return p.SelectStrategy(nil, true, withHold, systemDate, l.ItemID.String()).Calculate(l)
}

// OverrideRenewal renews a copy of l on staff request even when the regular
// renewal rules reject it. overrideDueDate is used when no due date can be
// calculated or the calculated one would not extend the loan.
func (p LoanPolicy) OverrideRenewal(
	l *loan.Loan,
	systemDate time.Time,
	overrideDueDate *time.Time,
	comment string,
	queue *loan.RequestQueue,
) (*loan.Loan, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, Failed(NewValidationError(ReasonOverrideCommentRequired, ParamComment, ""))
	}

	if !p.IsLoanable() || !p.IsRenewable() {
		return p.overrideWithDueDate(l, overrideDueDate, comment)
	}

	proposed, err := p.proposedRenewalDueDate(l, systemDate, false)
	if err != nil {
		if !IsValidation(err) {
			return nil, err
		}
		return p.overrideAfterFailedCalculation(l, systemDate, overrideDueDate, comment)
	}

	extends := proposed.After(l.DueDate)
	newDue := proposed
	if !extends {
		if overrideDueDate == nil {
			return nil, Failed(NewValidationError(ReasonOverrideDueDateNotChanged, ParamDueDate, ""))
		}
		newDue = *overrideDueDate
	}

	renewed := l.Clone()
	switch {
	case p.HasReachedRenewalLimit(l), queue.First().IsRecall(), !extends:
	case l.IsItemLost():
		renewed.ItemStatus = loan.ItemStatusCheckedOut
	default:
		return nil, Failed(p.errorFor(ReasonOverrideNoMatchingCase))
	}

	if !newDue.After(l.DueDate) {
		return nil, Failed(p.errorFor(ReasonDueDateUnchanged))
	}
	return renewed.OverrideRenewal(newDue, p.ID(), comment), nil
}

// overrideAfterFailedCalculation falls back to an uncapped rolling renewal for
// rolling policies, then to the staff supplied due date.
func (p LoanPolicy) overrideAfterFailedCalculation(
	l *loan.Loan,
	systemDate time.Time,
	overrideDueDate *time.Time,
	comment string,
) (*loan.Loan, error) {
	if p.IsRolling() {
		due, err := p.SelectRenewalOverride(systemDate).Calculate(l)
		if err != nil && !IsValidation(err) {
			return nil, err
		}
		if err == nil && due.After(l.DueDate) {
			return l.Clone().OverrideRenewal(due, p.ID(), comment), nil
		}
	}
	return p.overrideWithDueDate(l, overrideDueDate, comment)
}

func (p LoanPolicy) overrideWithDueDate(l *loan.Loan, overrideDueDate *time.Time, comment string) (*loan.Loan, error) {
	if overrideDueDate == nil {
		return nil, Failed(NewValidationError(ReasonOverrideDueDateRequired, ParamDueDate, ""))
	}
	return l.Clone().OverrideRenewal(*overrideDueDate, p.ID(), comment), nil
}

// String describes the policy for logs.
func (p LoanPolicy) String() string {
	return fmt.Sprintf("%s (%s, %s)", p.Name(), p.ID(), p.ProfileID())
}
