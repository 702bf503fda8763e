package models

import (
	"time"

	"github.com/google/uuid"
)

// Note is a doctor's free-text note about a patient. Notes are immutable
// once created; the text is stored encrypted and only decrypted in memory.
type Note struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Text      string    `json:"note_text"`
	CreatedAt time.Time `json:"created_at"`
}
