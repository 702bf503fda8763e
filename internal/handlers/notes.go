package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/caretrack/followup-api/internal/database"
	"github.com/caretrack/followup-api/internal/middleware"
	"github.com/caretrack/followup-api/internal/models"
	"github.com/caretrack/followup-api/internal/queue"
	"github.com/caretrack/followup-api/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	// MaxNoteTextLength is the maximum length for note text
	MaxNoteTextLength = 10000
)

// NoteHandler handles note-related requests. Notes are doctor-only:
// routing must wrap these handlers with the doctor role gate.
type NoteHandler struct {
	noteRepo       database.NoteRepositoryInterface
	assignmentRepo database.AssignmentRepositoryInterface
	jobQueue       queue.JobQueue
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(
	noteRepo database.NoteRepositoryInterface,
	assignmentRepo database.AssignmentRepositoryInterface,
	jobQueue queue.JobQueue,
) *NoteHandler {
	return &NoteHandler{
		noteRepo:       noteRepo,
		assignmentRepo: assignmentRepo,
		jobQueue:       jobQueue,
	}
}

// RegisterRoutes registers note routes on the given router.
// The router should already have the /notes prefix.
func (h *NoteHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.CreateNote).Methods("POST")
	r.HandleFunc("", h.ListNotes).Methods("GET")
}

// CreateNoteRequest represents a create note request
type CreateNoteRequest struct {
	PatientID uuid.UUID `json:"patient_id" validate:"required"`
	NoteText  string    `json:"note_text" validate:"required,min=1,max=10000"`
}

// CreateNote stores a note and enqueues its intake job. The response
// returns as soon as the note is durable; extraction happens async.
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	req.NoteText = validation.SanitizeText(req.NoteText)
	if req.NoteText == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Note text is required and cannot be empty after sanitization")
		return
	}
	if len(req.NoteText) > MaxNoteTextLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Note text exceeds maximum length of %d characters", MaxNoteTextLength))
		return
	}

	ctx := r.Context()

	assigned, err := h.assignmentRepo.Exists(ctx, user.ID, req.PatientID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to verify assignment")
		return
	}
	if !assigned {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Patient is not assigned to this doctor")
		return
	}

	note := &models.Note{
		ID:        uuid.New(),
		DoctorID:  user.ID,
		PatientID: req.PatientID,
		Text:      req.NoteText,
	}

	if err := h.noteRepo.Create(ctx, note); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create note")
		return
	}

	// The note is durable; losing the enqueue only delays processing.
	// An admin can re-enqueue via cmd/admin.
	if err := h.jobQueue.Enqueue(ctx, queue.NewNoteIntakeJob(note.ID)); err != nil {
		log.Printf("Failed to enqueue intake for note %s: %v", note.ID, err)
	}

	respondJSON(w, http.StatusCreated, note)
}

// ListNotes lists the authenticated doctor's notes for one patient
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	patientID, err := uuid.Parse(r.URL.Query().Get("patient_id"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid or missing patient_id")
		return
	}

	ctx := r.Context()
	notes, err := h.noteRepo.ListByDoctorAndPatient(ctx, user.ID, patientID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve notes")
		return
	}
	if notes == nil {
		notes = []*models.Note{}
	}

	respondJSON(w, http.StatusOK, notes)
}
