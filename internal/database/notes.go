package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/caretrack/followup-api/internal/crypto"
	"github.com/caretrack/followup-api/internal/models"
	"github.com/google/uuid"
)

// NoteRepository handles note database operations. Note text goes through
// the cipher on every write and read; the plaintext never hits the table.
type NoteRepository struct {
	db     *DB
	cipher *crypto.Cipher
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(db *DB, cipher *crypto.Cipher) *NoteRepository {
	return &NoteRepository{db: db, cipher: cipher}
}

// Create stores a new note with its text encrypted
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	sealed, err := r.cipher.Encrypt(note.Text)
	if err != nil {
		return fmt.Errorf("failed to encrypt note text: %w", err)
	}

	query := `
		INSERT INTO notes (id, doctor_id, patient_id, note_text, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err = r.db.QueryRowContext(ctx, query,
		note.ID,
		note.DoctorID,
		note.PatientID,
		sealed,
		time.Now(),
	).Scan(&note.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	return nil
}

// GetByID retrieves a note by ID with its text decrypted
func (r *NoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	note := &models.Note{}
	var sealed string

	query := `
		SELECT id, doctor_id, patient_id, note_text, created_at
		FROM notes
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&note.ID,
		&note.DoctorID,
		&note.PatientID,
		&sealed,
		&note.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("note not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	note.Text, err = r.cipher.Decrypt(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt note %s: %w", id, err)
	}

	return note, nil
}

// ListByDoctorAndPatient retrieves a doctor's notes for one patient,
// newest first, with text decrypted.
func (r *NoteRepository) ListByDoctorAndPatient(ctx context.Context, doctorID, patientID uuid.UUID) ([]*models.Note, error) {
	query := `
		SELECT id, doctor_id, patient_id, note_text, created_at
		FROM notes
		WHERE doctor_id = $1 AND patient_id = $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, doctorID, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		note := &models.Note{}
		var sealed string
		if err := rows.Scan(
			&note.ID,
			&note.DoctorID,
			&note.PatientID,
			&sealed,
			&note.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		if note.Text, err = r.cipher.Decrypt(sealed); err != nil {
			return nil, fmt.Errorf("failed to decrypt note %s: %w", note.ID, err)
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}

	return notes, nil
}
