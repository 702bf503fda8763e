package database

import (
	"context"

	"github.com/caretrack/followup-api/internal/models"
	"github.com/google/uuid"
)

// StepRepositoryInterface defines the step repository operations the
// workers and handlers depend on. This interface enables better
// testability by allowing mock implementations.
type StepRepositoryInterface interface {
	CreateBatch(ctx context.Context, steps []*models.ActionableStep) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ActionableStep, error)
	ListPendingForPatient(ctx context.Context, patientID uuid.UUID) ([]*models.ActionableStep, error)
	CancelPendingForPatient(ctx context.Context, patientID, excludeNoteID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.StepStatus) error
	Mutate(ctx context.Context, id uuid.UUID, fn func(*models.ActionableStep) error) (*models.ActionableStep, error)
}

// NoteRepositoryInterface defines the note repository operations used by
// the intake worker and the handlers
type NoteRepositoryInterface interface {
	Create(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Note, error)
	ListByDoctorAndPatient(ctx context.Context, doctorID, patientID uuid.UUID) ([]*models.Note, error)
}

// UserRepositoryInterface defines the user repository operations used by
// the handlers
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]*models.User, error)
}

// AssignmentRepositoryInterface defines the doctor/patient assignment
// operations used by the handlers
type AssignmentRepositoryInterface interface {
	Assign(ctx context.Context, doctorID, patientID uuid.UUID) error
	Unassign(ctx context.Context, doctorID, patientID uuid.UUID) error
	Exists(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error)
	DoctorsForPatient(ctx context.Context, patientID uuid.UUID) ([]*models.User, error)
	PatientsForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*models.User, error)
}

// Ensure concrete types implement the interfaces
var (
	_ StepRepositoryInterface       = (*StepRepository)(nil)
	_ NoteRepositoryInterface       = (*NoteRepository)(nil)
	_ UserRepositoryInterface       = (*UserRepository)(nil)
	_ AssignmentRepositoryInterface = (*AssignmentRepository)(nil)
)
