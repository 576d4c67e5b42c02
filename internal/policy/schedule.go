// internal/policy/schedule.go
package policy

import "time"

// ScheduleEntry maps loans made strictly between From and To to a fixed due date.
type ScheduleEntry struct {
	From time.Time
	To   time.Time
	Due  time.Time
}

// Contains reports whether t lies strictly inside the entry's range.
func (e ScheduleEntry) Contains(t time.Time) bool {
	return e.From.Before(t) && e.To.After(t)
}

// FixedDueDateSchedules is an ordered set of schedule entries.
// The zero value is the "no schedules" variant: nothing is ever found and
// truncation leaves due dates untouched.
type FixedDueDateSchedules struct {
	id         string
	name       string
	configured bool
	entries    []ScheduleEntry
}

// NoFixedDueDateSchedules returns the variant used when a policy references no schedule.
func NoFixedDueDateSchedules() FixedDueDateSchedules {
	return FixedDueDateSchedules{}
}

// NewFixedDueDateSchedules builds a configured schedule set. Entries keep their order.
func NewFixedDueDateSchedules(id, name string, entries []ScheduleEntry) FixedDueDateSchedules {
	return FixedDueDateSchedules{
		id:         id,
		name:       name,
		configured: true,
		entries:    append([]ScheduleEntry(nil), entries...),
	}
}

// ID returns the id of the schedule document.
func (s FixedDueDateSchedules) ID() string { return s.id }

// Name returns the name of the schedule document.
func (s FixedDueDateSchedules) Name() string { return s.name }

// IsConfigured is false only for the "no schedules" variant.
func (s FixedDueDateSchedules) IsConfigured() bool { return s.configured }

// Entries returns a copy of the entries in source order.
func (s FixedDueDateSchedules) Entries() []ScheduleEntry {
	return append([]ScheduleEntry(nil), s.entries...)
}

// FindDueDateFor returns the due date of the first entry containing t.
func (s FixedDueDateSchedules) FindDueDateFor(t time.Time) (time.Time, bool) {
	for _, e := range s.entries {
		if e.Contains(t) {
			return e.Due, true
		}
	}
	return time.Time{}, false
}

// FindEarliestDueDateFor returns the earliest due date among entries containing t.
// Ties keep the first entry in source order.
func (s FixedDueDateSchedules) FindEarliestDueDateFor(t time.Time) (time.Time, bool) {
	var (
		earliest time.Time
		found    bool
	)
	for _, e := range s.entries {
		if !e.Contains(t) {
			continue
		}
		if !found || e.Due.Before(earliest) {
			earliest = e.Due
			found = true
		}
	}
	return earliest, found
}

// TruncateDueDate caps computed at the due date of the entry containing reference.
func (s FixedDueDateSchedules) TruncateDueDate(
	computed, reference time.Time,
	onNoApplicableSchedule func() error,
) (time.Time, error) {
	if !s.configured {
		return computed, nil
	}
	due, ok := s.FindDueDateFor(reference)
	if !ok {
		return time.Time{}, onNoApplicableSchedule()
	}
	if due.Before(computed) {
		return due, nil
	}
	return computed, nil
}
