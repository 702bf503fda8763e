package database

import (
	"context"
	"fmt"
	"time"

	"github.com/caretrack/followup-api/internal/models"
	"github.com/google/uuid"
)

// AssignmentRepository handles doctor/patient assignment operations
type AssignmentRepository struct {
	db *DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Assign links a patient to a doctor. Re-assigning an existing pair is a no-op.
func (r *AssignmentRepository) Assign(ctx context.Context, doctorID, patientID uuid.UUID) error {
	query := `
		INSERT INTO doctor_patient_assignments (id, doctor_id, patient_id, assigned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (doctor_id, patient_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, uuid.New(), doctorID, patientID, time.Now()); err != nil {
		return fmt.Errorf("failed to assign patient to doctor: %w", err)
	}

	return nil
}

// Unassign removes the link between a patient and a doctor
func (r *AssignmentRepository) Unassign(ctx context.Context, doctorID, patientID uuid.UUID) error {
	query := `DELETE FROM doctor_patient_assignments WHERE doctor_id = $1 AND patient_id = $2`

	if _, err := r.db.ExecContext(ctx, query, doctorID, patientID); err != nil {
		return fmt.Errorf("failed to unassign patient from doctor: %w", err)
	}

	return nil
}

// Exists reports whether the patient is assigned to the doctor
func (r *AssignmentRepository) Exists(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM doctor_patient_assignments WHERE doctor_id = $1 AND patient_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, doctorID, patientID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check assignment: %w", err)
	}

	return exists, nil
}

// DoctorsForPatient lists the doctors a patient has selected
func (r *AssignmentRepository) DoctorsForPatient(ctx context.Context, patientID uuid.UUID) ([]*models.User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.role, u.created_at, u.updated_at
		FROM doctor_patient_assignments a
		JOIN users u ON u.id = a.doctor_id
		WHERE a.patient_id = $1
		ORDER BY a.assigned_at DESC
	`

	return r.queryUsers(ctx, query, patientID)
}

// PatientsForDoctor lists the patients assigned to a doctor
func (r *AssignmentRepository) PatientsForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*models.User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.role, u.created_at, u.updated_at
		FROM doctor_patient_assignments a
		JOIN users u ON u.id = a.patient_id
		WHERE a.doctor_id = $1
		ORDER BY a.assigned_at DESC
	`

	return r.queryUsers(ctx, query, doctorID)
}

func (r *AssignmentRepository) queryUsers(ctx context.Context, query string, arg any) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Name,
			&user.Role,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return users, nil
}
