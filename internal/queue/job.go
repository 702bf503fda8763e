package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeNoteIntake processes a newly created note: supersession,
	// extraction, and step materialization.
	JobTypeNoteIntake JobType = "note_intake"
	// JobTypeScheduleCheck evaluates one plan step's schedule and re-arms
	// itself for the next period.
	JobTypeScheduleCheck JobType = "schedule_check"
)

// Job represents a unit of work in the queue
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	NoteID     *uuid.UUID     `json:"note_id,omitempty"`   // set for note intake jobs
	StepID     *uuid.UUID     `json:"step_id,omitempty"`   // set for schedule check jobs
	NotBefore  *time.Time     `json:"not_before,omitempty"` // earliest time to process (nil = immediate)
	NotAfter   *time.Time     `json:"not_after,omitempty"`  // latest time to process (nil = no expiration)
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewNoteIntakeJob creates a job that processes a note immediately
func NewNoteIntakeJob(noteID uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeNoteIntake,
		NoteID:     &noteID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// NewScheduleCheckJob creates a job that evaluates a plan step's schedule
// no earlier than runAt. Delayed dispatch is how the recurrence chain
// re-arms itself.
func NewScheduleCheckJob(stepID uuid.UUID, runAt time.Time) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeScheduleCheck,
		StepID:     &stepID,
		NotBefore:  &runAt,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()

	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}

	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}

	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
