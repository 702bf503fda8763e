package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/caretrack/followup-api/internal/models"
	"github.com/google/uuid"
)

// StepRepository handles actionable step database operations
type StepRepository struct {
	db *DB
}

// NewStepRepository creates a new step repository
func NewStepRepository(db *DB) *StepRepository {
	return &StepRepository{db: db}
}

// CreateBatch creates all steps in a single transaction: either every
// step for a note materializes or none do.
func (r *StepRepository) CreateBatch(ctx context.Context, steps []*models.ActionableStep) error {
	if len(steps) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			_ = rbErr
		}
	}()

	query := `
		INSERT INTO actionable_steps (id, note_id, kind, description, status, schedule, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	now := time.Now()
	for _, step := range steps {
		scheduleJSON, err := marshalSchedule(step.Schedule)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query,
			step.ID,
			step.NoteID,
			step.Kind,
			step.Description,
			step.Status,
			scheduleJSON,
			now,
			now,
		); err != nil {
			return fmt.Errorf("failed to create step %s: %w", step.ID, err)
		}
		step.CreatedAt = now
		step.UpdatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit step creation: %w", err)
	}

	return nil
}

// GetByID retrieves a step by ID
func (r *StepRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ActionableStep, error) {
	query := `
		SELECT id, note_id, kind, description, status, schedule, created_at, updated_at
		FROM actionable_steps
		WHERE id = $1
	`

	step, err := scanStep(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("step not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get step: %w", err)
	}

	return step, nil
}

// ListPendingForPatient retrieves a patient's pending steps, newest first
func (r *StepRepository) ListPendingForPatient(ctx context.Context, patientID uuid.UUID) ([]*models.ActionableStep, error) {
	query := `
		SELECT s.id, s.note_id, s.kind, s.description, s.status, s.schedule, s.created_at, s.updated_at
		FROM actionable_steps s
		JOIN notes n ON n.id = s.note_id
		WHERE n.patient_id = $1 AND s.status = $2
		ORDER BY s.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, patientID, models.StepStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	var steps []*models.ActionableStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}

	return steps, nil
}

// CancelPendingForPatient cancels every pending step belonging to any of
// the patient's notes other than excludeNoteID, in one statement. This is
// the supersession rule: only the latest note's guidance stays actionable.
func (r *StepRepository) CancelPendingForPatient(ctx context.Context, patientID, excludeNoteID uuid.UUID) (int64, error) {
	query := `
		UPDATE actionable_steps
		SET status = $1, updated_at = $2
		WHERE status = $3
		  AND note_id IN (SELECT id FROM notes WHERE patient_id = $4)
		  AND note_id <> $5
	`

	result, err := r.db.ExecContext(ctx, query,
		models.StepStatusCancelled,
		time.Now(),
		models.StepStatusPending,
		patientID,
		excludeNoteID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel pending steps: %w", err)
	}

	cancelled, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return cancelled, nil
}

// UpdateStatus sets the status of a step
func (r *StepRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.StepStatus) error {
	query := `
		UPDATE actionable_steps
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update step status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("step not found")
	}

	return nil
}

// Mutate runs fn against the step inside a transaction holding a row
// lock (SELECT ... FOR UPDATE), then persists the step's status and
// schedule. Concurrent mutations of the same step serialize here, so a
// check-in racing a schedule check cannot lose an occurrence append.
// Returns the step as persisted.
func (r *StepRepository) Mutate(ctx context.Context, id uuid.UUID, fn func(*models.ActionableStep) error) (*models.ActionableStep, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			_ = rbErr
		}
	}()

	query := `
		SELECT id, note_id, kind, description, status, schedule, created_at, updated_at
		FROM actionable_steps
		WHERE id = $1
		FOR UPDATE
	`

	step, err := scanStep(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("step not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get step for update: %w", err)
	}

	if err := fn(step); err != nil {
		return nil, err
	}

	scheduleJSON, err := marshalSchedule(step.Schedule)
	if err != nil {
		return nil, err
	}

	update := `
		UPDATE actionable_steps
		SET status = $2, schedule = $3, updated_at = $4
		WHERE id = $1
	`
	now := time.Now()
	if _, err := tx.ExecContext(ctx, update, step.ID, step.Status, scheduleJSON, now); err != nil {
		return nil, fmt.Errorf("failed to update step: %w", err)
	}
	step.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit step update: %w", err)
	}

	return step, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStep(row rowScanner) (*models.ActionableStep, error) {
	step := &models.ActionableStep{}
	var scheduleJSON []byte

	if err := row.Scan(
		&step.ID,
		&step.NoteID,
		&step.Kind,
		&step.Description,
		&step.Status,
		&scheduleJSON,
		&step.CreatedAt,
		&step.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(scheduleJSON) > 0 {
		step.Schedule = &models.Schedule{}
		if err := json.Unmarshal(scheduleJSON, step.Schedule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
		}
	}

	return step, nil
}

func marshalSchedule(schedule *models.Schedule) ([]byte, error) {
	if schedule == nil {
		return nil, nil
	}
	data, err := json.Marshal(schedule)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schedule: %w", err)
	}
	return data, nil
}
