package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/caretrack/followup-api/internal/database"
	"github.com/caretrack/followup-api/internal/models"
	"github.com/caretrack/followup-api/internal/queue"
	"github.com/google/uuid"
)

// mockNoteRepo is a mock implementation of NoteRepositoryInterface
type mockNoteRepo struct {
	createFunc                 func(ctx context.Context, note *models.Note) error
	getByIDFunc                func(ctx context.Context, id uuid.UUID) (*models.Note, error)
	listByDoctorAndPatientFunc func(ctx context.Context, doctorID, patientID uuid.UUID) ([]*models.Note, error)
}

func (m *mockNoteRepo) Create(ctx context.Context, note *models.Note) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, note)
	}
	note.CreatedAt = time.Now()
	return nil
}

func (m *mockNoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, fmt.Errorf("note not found: %w", sql.ErrNoRows)
}

func (m *mockNoteRepo) ListByDoctorAndPatient(ctx context.Context, doctorID, patientID uuid.UUID) ([]*models.Note, error) {
	if m.listByDoctorAndPatientFunc != nil {
		return m.listByDoctorAndPatientFunc(ctx, doctorID, patientID)
	}
	return []*models.Note{}, nil
}

var _ database.NoteRepositoryInterface = (*mockNoteRepo)(nil)

// mockStepRepo is a mock implementation of StepRepositoryInterface
type mockStepRepo struct {
	createBatchFunc             func(ctx context.Context, steps []*models.ActionableStep) error
	getByIDFunc                 func(ctx context.Context, id uuid.UUID) (*models.ActionableStep, error)
	listPendingForPatientFunc   func(ctx context.Context, patientID uuid.UUID) ([]*models.ActionableStep, error)
	cancelPendingForPatientFunc func(ctx context.Context, patientID, excludeNoteID uuid.UUID) (int64, error)
	updateStatusFunc            func(ctx context.Context, id uuid.UUID, status models.StepStatus) error
	mutateFunc                  func(ctx context.Context, id uuid.UUID, fn func(*models.ActionableStep) error) (*models.ActionableStep, error)
}

func (m *mockStepRepo) CreateBatch(ctx context.Context, steps []*models.ActionableStep) error {
	if m.createBatchFunc != nil {
		return m.createBatchFunc(ctx, steps)
	}
	return nil
}

func (m *mockStepRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ActionableStep, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, fmt.Errorf("step not found: %w", sql.ErrNoRows)
}

func (m *mockStepRepo) ListPendingForPatient(ctx context.Context, patientID uuid.UUID) ([]*models.ActionableStep, error) {
	if m.listPendingForPatientFunc != nil {
		return m.listPendingForPatientFunc(ctx, patientID)
	}
	return []*models.ActionableStep{}, nil
}

func (m *mockStepRepo) CancelPendingForPatient(ctx context.Context, patientID, excludeNoteID uuid.UUID) (int64, error) {
	if m.cancelPendingForPatientFunc != nil {
		return m.cancelPendingForPatientFunc(ctx, patientID, excludeNoteID)
	}
	return 0, nil
}

func (m *mockStepRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.StepStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockStepRepo) Mutate(ctx context.Context, id uuid.UUID, fn func(*models.ActionableStep) error) (*models.ActionableStep, error) {
	if m.mutateFunc != nil {
		return m.mutateFunc(ctx, id, fn)
	}
	return nil, fmt.Errorf("step not found: %w", sql.ErrNoRows)
}

var _ database.StepRepositoryInterface = (*mockStepRepo)(nil)

// mockUserRepo is a mock implementation of UserRepositoryInterface
type mockUserRepo struct {
	createFunc     func(ctx context.Context, user *models.User) error
	getByIDFunc    func(ctx context.Context, id uuid.UUID) (*models.User, error)
	getByEmailFunc func(ctx context.Context, email string) (*models.User, error)
	listByRoleFunc func(ctx context.Context, role models.Role) ([]*models.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.getByEmailFunc != nil {
		return m.getByEmailFunc(ctx, email)
	}
	return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

func (m *mockUserRepo) ListByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	if m.listByRoleFunc != nil {
		return m.listByRoleFunc(ctx, role)
	}
	return []*models.User{}, nil
}

var _ database.UserRepositoryInterface = (*mockUserRepo)(nil)

// mockAssignmentRepo is a mock implementation of AssignmentRepositoryInterface
type mockAssignmentRepo struct {
	assignFunc            func(ctx context.Context, doctorID, patientID uuid.UUID) error
	unassignFunc          func(ctx context.Context, doctorID, patientID uuid.UUID) error
	existsFunc            func(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error)
	doctorsForPatientFunc func(ctx context.Context, patientID uuid.UUID) ([]*models.User, error)
	patientsForDoctorFunc func(ctx context.Context, doctorID uuid.UUID) ([]*models.User, error)
}

func (m *mockAssignmentRepo) Assign(ctx context.Context, doctorID, patientID uuid.UUID) error {
	if m.assignFunc != nil {
		return m.assignFunc(ctx, doctorID, patientID)
	}
	return nil
}

func (m *mockAssignmentRepo) Unassign(ctx context.Context, doctorID, patientID uuid.UUID) error {
	if m.unassignFunc != nil {
		return m.unassignFunc(ctx, doctorID, patientID)
	}
	return nil
}

func (m *mockAssignmentRepo) Exists(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	if m.existsFunc != nil {
		return m.existsFunc(ctx, doctorID, patientID)
	}
	return false, nil
}

func (m *mockAssignmentRepo) DoctorsForPatient(ctx context.Context, patientID uuid.UUID) ([]*models.User, error) {
	if m.doctorsForPatientFunc != nil {
		return m.doctorsForPatientFunc(ctx, patientID)
	}
	return []*models.User{}, nil
}

func (m *mockAssignmentRepo) PatientsForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*models.User, error) {
	if m.patientsForDoctorFunc != nil {
		return m.patientsForDoctorFunc(ctx, doctorID)
	}
	return []*models.User{}, nil
}

var _ database.AssignmentRepositoryInterface = (*mockAssignmentRepo)(nil)

// mockJobQueue is a mock implementation of JobQueue
type mockJobQueue struct {
	enqueueFunc func(ctx context.Context, job *queue.Job) error
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueFunc != nil {
		return m.enqueueFunc(ctx, job)
	}
	return nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error {
	return nil
}

func (m *mockJobQueue) HealthCheck(ctx context.Context) error {
	return nil
}

var _ queue.JobQueue = (*mockJobQueue)(nil)
