// internal/policy/strategy.go
package policy

import (
	"errors"
	"fmt"
	"time"

	"libracirc/internal/loan"
	"libracirc/internal/platform/logger"
)

// Reasons reported by due date strategies.
const (
	ReasonLoanDateOutsideSchedules    = "loan date falls outside of the date ranges in the loan policy"
	ReasonRenewalDateOutsideSchedules = "renewal date falls outside of date ranges in the loan policy"
	ReasonLoanPeriodNotRecognised     = "the loan period in the loan policy is not recognised"
	ReasonRenewFromNotRecognised      = "cannot determine when to renew from"
)

// StrategyKind identifies how a due date is calculated.
type StrategyKind int

const (
	KindUnknown StrategyKind = iota
	KindFixedCheckout
	KindFixedCheckoutEarliest
	KindFixedRenewal
	KindRollingCheckout
	KindRollingRenewal
	KindRollingRenewalUnlimited
)

func (k StrategyKind) String() string {
	switch k {
	case KindFixedCheckout:
		return "fixed-checkout"
	case KindFixedCheckoutEarliest:
		return "fixed-checkout-earliest"
	case KindFixedRenewal:
		return "fixed-renewal"
	case KindRollingCheckout:
		return "rolling-checkout"
	case KindRollingRenewal:
		return "rolling-renewal"
	case KindRollingRenewalUnlimited:
		return "rolling-renewal-unlimited"
	default:
		return "unknown"
	}
}

// DueDateStrategy is a selected way of calculating a due date. Which fields
// matter depends on Kind:
//
//	FixedCheckout, FixedCheckoutEarliest  Schedules
//	FixedRenewal                          Schedules, SystemDate
//	RollingCheckout                       Period, Schedules (limit)
//	RollingRenewal                        Period, Schedules (limit), RenewFrom, SystemDate
//	RollingRenewalUnlimited               Period, RenewFrom, SystemDate
//	Unknown                               ProfileID, Renewal
type DueDateStrategy struct {
	Kind                StrategyKind
	PolicyID            string
	PolicyName          string
	Period              Period
	Schedules           FixedDueDateSchedules
	RenewFrom           string
	SystemDate          time.Time
	ProfileID           string
	Renewal             bool
	AlternatePeriodUsed bool
}

var errNilLoan = errors.New("no loan to calculate a due date for")

// Calculate computes the due date for l. It never changes l.
// Failures are *ValidationFailure for policy problems and *InternalError otherwise.
func (s DueDateStrategy) Calculate(l *loan.Loan) (due time.Time, err error) {
	defer func() {
		if r := recover(); r != nil {
			due, err = time.Time{}, s.internalError(fmt.Errorf("panic: %v", r))
		}
	}()

	if l == nil {
		return time.Time{}, s.internalError(errNilLoan)
	}

	switch s.Kind {
	case KindFixedCheckout:
		return s.fromSchedule(s.Schedules.FindDueDateFor, l.LoanDate, ReasonLoanDateOutsideSchedules)
	case KindFixedCheckoutEarliest:
		return s.fromSchedule(s.Schedules.FindEarliestDueDateFor, l.LoanDate, ReasonLoanDateOutsideSchedules)
	case KindFixedRenewal:
		return s.fromSchedule(s.Schedules.FindDueDateFor, s.SystemDate, ReasonRenewalDateOutsideSchedules)
	case KindRollingCheckout:
		return s.rolling(l.LoanDate, true, ReasonLoanDateOutsideSchedules)
	case KindRollingRenewal, KindRollingRenewalUnlimited:
		from, ok := s.renewFrom(l)
		if !ok {
			return time.Time{}, Failed(s.errorFor(ReasonRenewFromNotRecognised))
		}
		return s.rolling(from, s.Kind == KindRollingRenewal, ReasonRenewalDateOutsideSchedules)
	default:
		return time.Time{}, Failed(s.errorFor(s.unknownProfileReason()))
	}
}

func (s DueDateStrategy) fromSchedule(
	find func(time.Time) (time.Time, bool),
	reference time.Time,
	outsideReason string,
) (time.Time, error) {
	due, ok := find(reference)
	if !ok {
		return time.Time{}, Failed(s.errorFor(outsideReason))
	}
	return due, nil
}

func (s DueDateStrategy) rolling(from time.Time, truncate bool, outsideReason string) (time.Time, error) {
	due, err := s.Period.AddTo(from,
		func() error { return Failed(s.errorFor(ReasonLoanPeriodNotRecognised)) },
		func(interval string) error {
			return Failed(s.errorFor(fmt.Sprintf("the interval %q in the loan policy is not recognised", interval)))
		},
		func(duration int) error {
			return Failed(s.errorFor(fmt.Sprintf("the duration \"%d\" in the loan policy is invalid", duration)))
		},
	)
	if err != nil || !truncate {
		return due, err
	}
	return s.Schedules.TruncateDueDate(due, from, func() error {
		return Failed(s.errorFor(outsideReason))
	})
}

func (s DueDateStrategy) renewFrom(l *loan.Loan) (time.Time, bool) {
	switch s.RenewFrom {
	case RenewFromCurrentDueDate:
		return l.DueDate, true
	case RenewFromSystemDate:
		return s.SystemDate, true
	default:
		return time.Time{}, false
	}
}

func (s DueDateStrategy) unknownProfileReason() string {
	if s.Renewal {
		return fmt.Sprintf("Item can't be renewed as profile %q in the loan policy is not recognised", s.ProfileID)
	}
	return fmt.Sprintf("Item can't be checked out as profile %q in the loan policy is not recognised", s.ProfileID)
}

func (s DueDateStrategy) errorFor(reason string) ValidationError {
	return NewValidationError(reason, ParamLoanPolicyID, s.PolicyID, ParamLoanPolicyName, s.PolicyName)
}

func (s DueDateStrategy) internalError(err error) error {
	op := "calculate due date (" + s.Kind.String() + ")"
	logger.Named("policy").Error().
		Err(err).
		Str("loan_policy_id", s.PolicyID).
		Str("loan_policy_name", s.PolicyName).
		Str("operation", op).
		Msg("due date calculation failed")
	return &InternalError{Op: op, PolicyID: s.PolicyID, PolicyName: s.PolicyName, Err: err}
}
