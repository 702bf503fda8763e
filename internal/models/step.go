package models

import (
	"time"

	"github.com/google/uuid"
)

// StepKind distinguishes one-time checklist items from recurring plan items
type StepKind string

const (
	StepKindChecklist StepKind = "checklist"
	StepKindPlan      StepKind = "plan"
)

// StepStatus represents the lifecycle status of an actionable step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusCompleted StepStatus = "completed"
	StepStatusCancelled StepStatus = "cancelled"
)

// ActionableStep is a follow-up obligation derived from a note. Checklist
// steps carry no schedule; plan steps always carry one. Steps are never
// deleted, only status-transitioned.
type ActionableStep struct {
	ID          uuid.UUID  `json:"id"`
	NoteID      uuid.UUID  `json:"note_id"`
	Kind        StepKind   `json:"kind"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
	Schedule    *Schedule  `json:"schedule,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsResolved reports whether the step has reached a terminal status.
func (s *ActionableStep) IsResolved() bool {
	return s.Status != StepStatusPending
}
