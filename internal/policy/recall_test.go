// internal/policy/recall_test.go
package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func recallPolicy(recalls *Recalls) LoanPolicy {
	doc := rollingDocument(periodDoc(3, Weeks))
	doc.RequestManagement = &RequestManagement{Recalls: recalls}
	return policyOf(doc)
}

func TestRecall_MinimumGuaranteedPeriodIsTheFloor(t *testing.T) {
	// GIVEN: a loan from March 1 due March 22 and a two week guarantee
	p := recallPolicy(&Recalls{
		MinimumGuaranteedLoanPeriod: periodDoc(2, Weeks),
		RecallReturnInterval:        periodDoc(2, Days),
	})
	l := newLoan(date(2024, 3, 1), date(2024, 3, 22))

	// WHEN: recalled on March 3
	got, err := p.Recall(l, date(2024, 3, 3))

	// THEN: the recall date (March 5) is raised to the guarantee (March 15)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 15), got.DueDate)
	assert.True(t, got.DueDateChangedByRecall)
}

func TestRecall_RecallDateAfterFloorWins(t *testing.T) {
	p := recallPolicy(&Recalls{
		MinimumGuaranteedLoanPeriod: periodDoc(1, Weeks),
		RecallReturnInterval:        periodDoc(5, Days),
	})
	l := newLoan(date(2024, 3, 1), date(2024, 3, 22))

	got, err := p.Recall(l, date(2024, 3, 10))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 15), got.DueDate)
}

func TestRecall_NeverExtendsWithoutPermission(t *testing.T) {
	p := recallPolicy(&Recalls{RecallReturnInterval: periodDoc(3, Weeks)})
	l := newLoan(date(2024, 3, 1), date(2024, 3, 10))

	got, err := p.Recall(l, date(2024, 3, 5))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 10), got.DueDate)
}

func TestRecall_ExtendsWhenAllowed(t *testing.T) {
	p := recallPolicy(&Recalls{RecallReturnInterval: periodDoc(3, Weeks), AllowRecallsToExtendOverdueLoans: true})
	l := newLoan(date(2024, 3, 1), date(2024, 3, 10))

	got, err := p.Recall(l, date(2024, 3, 5))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 26), got.DueDate)
}

func TestRecall_OverdueUsesAlternateInterval(t *testing.T) {
	p := recallPolicy(&Recalls{
		RecallReturnInterval:             periodDoc(2, Weeks),
		AllowRecallsToExtendOverdueLoans: true,
		AlternateRecallReturnInterval:    periodDoc(3, Days),
	})
	l := newLoan(date(2024, 2, 1), date(2024, 2, 20))

	got, err := p.Recall(l, date(2024, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 4), got.DueDate)
}

func TestRecall_NoIntervalRecallsNow(t *testing.T) {
	p := recallPolicy(nil)
	l := newLoan(date(2024, 3, 1), date(2024, 3, 22))
	now := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)

	got, err := p.Recall(l, now)
	require.NoError(t, err)
	assert.Equal(t, now, got.DueDate)
}

func TestRecall_AggregatesBothFailuresRecallIntervalFirst(t *testing.T) {
	zero := 0
	p := recallPolicy(&Recalls{
		MinimumGuaranteedLoanPeriod: &PeriodDocument{Duration: &zero, IntervalID: string(Weeks)},
		RecallReturnInterval:        &PeriodDocument{IntervalID: "Fortnights"},
	})
	l := newLoan(date(2024, 3, 1), date(2024, 3, 22))

	_, err := p.Recall(l, date(2024, 3, 5))
	vf := requireValidation(t, err)
	assert.Equal(t, []string{
		`the interval "Fortnights" in "recallReturnInterval" is not recognized`,
		`the duration "0" in "minimumGuaranteedLoanPeriod" is invalid`,
	}, reasons(vf))
	assert.Equal(t, date(2024, 3, 22), l.DueDate)
	assert.False(t, l.DueDateChangedByRecall)
}

func TestRecall_MissingPartsOfPeriod(t *testing.T) {
	five := 5
	p := recallPolicy(&Recalls{RecallReturnInterval: &PeriodDocument{Duration: &five}})

	_, err := p.Recall(newLoan(date(2024, 3, 1), date(2024, 3, 22)), date(2024, 3, 5))
	vf := requireValidation(t, err)
	assert.Equal(t, []string{`the "recallReturnInterval" in the loan policy is not recognized`}, reasons(vf))
	id, _ := vf.Errors[0].Param(ParamLoanPolicyID)
	assert.Equal(t, "policy-rolling", id)
}

func TestRecall_AppliesOnlyOnce(t *testing.T) {
	p := recallPolicy(&Recalls{RecallReturnInterval: periodDoc(1, Weeks)})
	l := newLoan(date(2024, 3, 1), date(2024, 3, 30))

	first, err := p.Recall(l, date(2024, 3, 5))
	require.NoError(t, err)
	require.Equal(t, date(2024, 3, 12), first.DueDate)

	second, err := p.Recall(l, date(2024, 3, 6))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 12), second.DueDate)
}

func TestRecall_SecondRecallStillValidates(t *testing.T) {
	p := recallPolicy(&Recalls{RecallReturnInterval: &PeriodDocument{IntervalID: "Eons"}})
	l := newLoan(date(2024, 3, 1), date(2024, 3, 12))
	l.DueDateChangedByRecall = true

	_, err := p.Recall(l, date(2024, 3, 6))
	requireValidation(t, err)
}

func TestRecall_OverdueWithoutExtensionKeepsDueDateProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		loanDate := date(2024, 1, 1).AddDate(0, 0, rapid.IntRange(0, 300).Draw(t, "loanOffset"))
		dueDate := loanDate.AddDate(0, 0, rapid.IntRange(1, 60).Draw(t, "loanDays"))
		now := dueDate.Add(time.Duration(rapid.IntRange(1, 2000).Draw(t, "hoursOverdue")) * time.Hour)

		recalls := &Recalls{
			RecallReturnInterval:          periodDoc(rapid.IntRange(1, 30).Draw(t, "recallDays"), Days),
			AlternateRecallReturnInterval: periodDoc(rapid.IntRange(1, 30).Draw(t, "altDays"), Days),
		}
		if rapid.Bool().Draw(t, "withMinimum") {
			recalls.MinimumGuaranteedLoanPeriod = periodDoc(rapid.IntRange(1, 12).Draw(t, "minWeeks"), Weeks)
		}

		l := newLoan(loanDate, dueDate)
		got, err := recallPolicy(recalls).Recall(l, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.DueDate.Equal(dueDate) {
			t.Fatalf("overdue loan moved from %v to %v", dueDate, got.DueDate)
		}
	})
}

func TestRecall_AtMostOnceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := recallPolicy(&Recalls{
			RecallReturnInterval:             periodDoc(rapid.IntRange(1, 20).Draw(t, "days"), Days),
			AllowRecallsToExtendOverdueLoans: rapid.Bool().Draw(t, "extend"),
		})
		l := newLoan(date(2024, 1, 1), date(2024, 2, 1))

		first, err := p.Recall(l, date(2024, 1, 10))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		afterFirst := first.DueDate

		second, err := p.Recall(l, date(2024, 1, 10).AddDate(0, 0, rapid.IntRange(1, 40).Draw(t, "later")))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !second.DueDate.Equal(afterFirst) {
			t.Fatalf("second recall moved due date from %v to %v", afterFirst, second.DueDate)
		}
	})
}

func TestReconcileRecallDueDate(t *testing.T) {
	current := date(2024, 3, 20)

	tests := []struct {
		name       string
		recall     time.Time
		minimum    time.Time
		hasMinimum bool
		overdue    bool
		extend     bool
		want       time.Time
	}{
		{"overdue without extension", date(2024, 3, 5), time.Time{}, false, true, false, current},
		{"recall later than due without extension", date(2024, 3, 25), time.Time{}, false, false, false, current},
		{"recall earlier, no floor", date(2024, 3, 8), time.Time{}, false, false, false, date(2024, 3, 8)},
		{"recall after floor", date(2024, 3, 8), date(2024, 3, 6), true, false, false, date(2024, 3, 8)},
		{"recall before floor", date(2024, 3, 8), date(2024, 3, 12), true, false, false, date(2024, 3, 12)},
		{"recall equal to floor", date(2024, 3, 8), date(2024, 3, 8), true, false, false, date(2024, 3, 8)},
		{"extension allowed past due", date(2024, 3, 25), time.Time{}, false, true, true, date(2024, 3, 25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reconcileRecallDueDate(current, tt.recall, tt.minimum, tt.hasMinimum, tt.overdue, tt.extend)
			assert.Equal(t, tt.want, got)
		})
	}
}
