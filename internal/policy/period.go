// internal/policy/period.go
package policy

import (
	"fmt"
	"time"
)

// Interval is the unit of a Period.
type Interval string

const (
	Months  Interval = "Months"
	Weeks   Interval = "Weeks"
	Days    Interval = "Days"
	Hours   Interval = "Hours"
	Minutes Interval = "Minutes"
)

func (i Interval) recognised() bool {
	switch i {
	case Months, Weeks, Days, Hours, Minutes:
		return true
	}
	return false
}

// Period is a count of calendar units. Either part may be absent; AddTo checks them.
type Period struct {
	Duration *int
	Interval Interval
}

// NewPeriod builds a fully specified period.
func NewPeriod(duration int, interval Interval) Period {
	return Period{Duration: &duration, Interval: interval}
}

// IsConfigured reports whether either part of the period was supplied.
func (p Period) IsConfigured() bool {
	return p.Duration != nil || p.Interval != ""
}

func (p Period) String() string {
	if p.Duration == nil {
		return fmt.Sprintf("<none> %s", p.Interval)
	}
	return fmt.Sprintf("%d %s", *p.Duration, p.Interval)
}

// AddTo adds the period to t. The interval is checked before the duration so an
// unknown interval is reported even when the duration is also bad.
func (p Period) AddTo(
	t time.Time,
	onMissing func() error,
	onUnrecognisedInterval func(interval string) error,
	onInvalidDuration func(duration int) error,
) (time.Time, error) {
	if p.Interval == "" {
		return time.Time{}, onMissing()
	}
	if !p.Interval.recognised() {
		return time.Time{}, onUnrecognisedInterval(string(p.Interval))
	}
	if p.Duration == nil {
		return time.Time{}, onMissing()
	}
	n := *p.Duration
	if n <= 0 {
		return time.Time{}, onInvalidDuration(n)
	}

	switch p.Interval {
	case Months:
		return addMonths(t, n), nil
	case Weeks:
		return t.AddDate(0, 0, 7*n), nil
	case Days:
		return t.AddDate(0, 0, n), nil
	case Hours:
		return addClock(t, n, 24, time.Hour), nil
	default:
		return addClock(t, n, 24*60, time.Minute), nil
	}
}

// addClock adds n units of elapsed time. Whole days go through AddDate in UTC
// so counts whose Duration would overflow int64 still move t forward.
func addClock(t time.Time, n, perDay int, unit time.Duration) time.Time {
	days, rest := n/perDay, n%perDay
	return t.UTC().AddDate(0, 0, days).Add(time.Duration(rest) * unit).In(t.Location())
}

// addMonths keeps the day of month, clamped to the last day of the target month.
// time.AddDate would roll Jan 31 + 1 month over into March.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	total := int(m) - 1 + n
	year := y + total/12
	month := time.Month(total%12 + 1)

	if last := daysIn(year, month); d > last {
		d = last
	}
	return time.Date(year, month, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
