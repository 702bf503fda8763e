package models

import (
	"fmt"
	"time"
)

// Frequency is the cadence of a plan step's recurrence.
type Frequency string

const (
	// FrequencyDaily is the only supported cadence. The type is open so
	// weekly etc. can be added without changing the schedule shape.
	FrequencyDaily Frequency = "daily"
)

// Valid reports whether f is a recognized cadence.
func (f Frequency) Valid() bool {
	return f == FrequencyDaily
}

// Schedule is the recurrence window and occurrence history of a plan step.
// Start is immutable; End only ever moves forward. Both occurrence lists
// are append-only.
type Schedule struct {
	Frequency    Frequency   `json:"frequency"`
	DurationDays int         `json:"duration"`
	Start        time.Time   `json:"start_date"`
	End          time.Time   `json:"end_date"`
	Completed    []time.Time `json:"completed_dates"`
	Missed       []time.Time `json:"missed_dates"`

	// CreditedMisses counts the misses already converted into extension
	// days, so a repeat check-in cannot extend End for the same misses
	// twice.
	CreditedMisses int `json:"credited_misses"`
}

// NewSchedule creates a schedule starting now and ending duration days
// later. Invalid frequency or a non-positive duration is a contract
// violation and is rejected rather than producing a broken schedule.
func NewSchedule(frequency Frequency, durationDays int) (*Schedule, error) {
	return newScheduleAt(frequency, durationDays, time.Now().UTC())
}

func newScheduleAt(frequency Frequency, durationDays int, now time.Time) (*Schedule, error) {
	if !frequency.Valid() {
		return nil, fmt.Errorf("unrecognized frequency %q", frequency)
	}
	if durationDays <= 0 {
		return nil, fmt.Errorf("duration must be a positive number of days, got %d", durationDays)
	}
	return &Schedule{
		Frequency:    frequency,
		DurationDays: durationDays,
		Start:        now,
		End:          now.AddDate(0, 0, durationDays),
		Completed:    []time.Time{},
		Missed:       []time.Time{},
	}, nil
}

// RecordCheckIn returns a copy of the schedule with a check-in appended.
// Every miss earns one extra day at the tail, applied lazily here rather
// than at miss time; misses that already extended End are not counted
// again. The receiver is not mutated; callers persist the returned value.
func (s *Schedule) RecordCheckIn(at time.Time) *Schedule {
	next := s.clone()
	next.Completed = append(next.Completed, at)
	if uncredited := len(next.Missed) - next.CreditedMisses; uncredited > 0 {
		next.End = next.End.AddDate(0, 0, uncredited)
		next.CreditedMisses = len(next.Missed)
	}
	return next
}

// RecordMiss returns a copy of the schedule with a missed occurrence
// appended. The end date is not touched; the extension happens at the
// next check-in.
func (s *Schedule) RecordMiss(at time.Time) *Schedule {
	next := s.clone()
	next.Missed = append(next.Missed, at)
	return next
}

// Lapsed reports whether the recurrence window has elapsed as of now.
func (s *Schedule) Lapsed(now time.Time) bool {
	return now.After(s.End)
}

// CheckedInOn reports whether any completed occurrence falls on the same
// calendar day (UTC) as day.
func (s *Schedule) CheckedInOn(day time.Time) bool {
	for _, at := range s.Completed {
		if sameDay(at, day) {
			return true
		}
	}
	return false
}

// MissedOn reports whether a missed occurrence was already recorded on
// the same calendar day (UTC) as day. Keeps a re-run of the same check
// from double-counting a miss.
func (s *Schedule) MissedOn(day time.Time) bool {
	for _, at := range s.Missed {
		if sameDay(at, day) {
			return true
		}
	}
	return false
}

func (s *Schedule) clone() *Schedule {
	next := *s
	next.Completed = append([]time.Time(nil), s.Completed...)
	next.Missed = append([]time.Time(nil), s.Missed...)
	return &next
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
