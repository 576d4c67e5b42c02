// internal/policy/recall.go
package policy

import (
	"fmt"
	"time"

	"libracirc/internal/loan"
)

// Keys of the recall periods, used in error messages.
const (
	keyMinimumGuaranteedLoanPeriod   = "minimumGuaranteedLoanPeriod"
	keyRecallReturnInterval          = "recallReturnInterval"
	keyAlternateRecallReturnInterval = "alternateRecallReturnInterval"
)

// Recall reconciles the recall return interval with the minimum guaranteed loan
// period and applies the result to l. A loan whose due date was already changed
// by a recall is validated again but keeps its due date.
func (p LoanPolicy) Recall(l *loan.Loan, systemDate time.Time) (*loan.Loan, error) {
	recalls := p.recalls()
	if recalls == nil {
		recalls = &Recalls{}
	}

	var errs []ValidationError

	recallPeriod, recallKey := recalls.RecallReturnInterval, keyRecallReturnInterval
	if l.IsOverdue(systemDate) && recalls.AllowRecallsToExtendOverdueLoans && recalls.AlternateRecallReturnInterval != nil {
		recallPeriod, recallKey = recalls.AlternateRecallReturnInterval, keyAlternateRecallReturnInterval
	}
	recallDue, hasRecall, err := p.recallPeriodFrom(recallPeriod, recallKey, systemDate)
	if err != nil {
		errs = append(errs, err...)
	}
	if !hasRecall {
		recallDue = systemDate
	}

	minimumDue, hasMinimum, err := p.recallPeriodFrom(recalls.MinimumGuaranteedLoanPeriod, keyMinimumGuaranteedLoanPeriod, l.LoanDate)
	if err != nil {
		errs = append(errs, err...)
	}

	if len(errs) > 0 {
		return nil, Failed(errs...)
	}

	due := reconcileRecallDueDate(l.DueDate, recallDue, minimumDue, hasMinimum,
		l.IsOverdue(systemDate), recalls.AllowRecallsToExtendOverdueLoans)

	if !l.WasDueDateChangedByRecall() {
		l.ApplyRecall(due)
	}
	return l, nil
}

// reconcileRecallDueDate never extends a loan unless the policy allows it and
// never shortens it below the guaranteed minimum.
func reconcileRecallDueDate(current, recallDue, minimumDue time.Time, hasMinimum, overdue, allowExtend bool) time.Time {
	switch {
	case overdue && !allowExtend:
		return current
	case recallDue.After(current) && !allowExtend:
		return current
	case !hasMinimum || recallDue.After(minimumDue):
		return recallDue
	default:
		return minimumDue
	}
}

// recallPeriodFrom adds the period stored under key to from. A missing period
// yields ok=false without errors.
func (p LoanPolicy) recallPeriodFrom(doc *PeriodDocument, key string, from time.Time) (time.Time, bool, []ValidationError) {
	if doc == nil {
		return time.Time{}, false, nil
	}
	var failure ValidationError
	due, err := doc.Period().AddTo(from,
		func() error {
			failure = p.errorFor(fmt.Sprintf("the %q in the loan policy is not recognized", key))
			return Failed(failure)
		},
		func(interval string) error {
			failure = p.errorFor(fmt.Sprintf("the interval %q in %q is not recognized", interval, key))
			return Failed(failure)
		},
		func(duration int) error {
			failure = p.errorFor(fmt.Sprintf("the duration \"%d\" in %q is invalid", duration, key))
			return Failed(failure)
		},
	)
	if err != nil {
		return time.Time{}, false, []ValidationError{failure}
	}
	return due, true, nil
}
