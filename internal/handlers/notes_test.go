package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caretrack/followup-api/internal/models"
	"github.com/caretrack/followup-api/internal/queue"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func noteRouter(h *NoteHandler) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/notes").Subrouter())
	return r
}

func doctor() *models.User {
	return &models.User{ID: uuid.New(), Email: "doc@example.com", Role: models.RoleDoctor}
}

func TestCreateNote(t *testing.T) {
	t.Parallel()

	user := doctor()
	patientID := uuid.New()

	var createdNote *models.Note
	var enqueued *queue.Job

	noteRepo := &mockNoteRepo{
		createFunc: func(ctx context.Context, note *models.Note) error {
			createdNote = note
			return nil
		},
	}
	assignmentRepo := &mockAssignmentRepo{
		existsFunc: func(ctx context.Context, doctorID, pID uuid.UUID) (bool, error) {
			return doctorID == user.ID && pID == patientID, nil
		},
	}
	jobQueue := &mockJobQueue{
		enqueueFunc: func(ctx context.Context, job *queue.Job) error {
			enqueued = job
			return nil
		},
	}

	h := NewNoteHandler(noteRepo, assignmentRepo, jobQueue)
	router := noteRouter(h)

	body := `{"patient_id":"` + patientID.String() + `","note_text":"Take amoxicillin daily for 10 days."}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(body)), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if createdNote == nil {
		t.Fatal("note was not created")
	}
	if createdNote.DoctorID != user.ID || createdNote.PatientID != patientID {
		t.Error("note carries wrong doctor or patient")
	}
	if enqueued == nil {
		t.Fatal("intake job was not enqueued")
	}
	if enqueued.Type != queue.JobTypeNoteIntake {
		t.Errorf("job type = %s, want note_intake", enqueued.Type)
	}
	if enqueued.NoteID == nil || *enqueued.NoteID != createdNote.ID {
		t.Error("intake job should target the created note")
	}
}

func TestCreateNote_NotAssigned(t *testing.T) {
	t.Parallel()

	user := doctor()

	created := false
	noteRepo := &mockNoteRepo{
		createFunc: func(ctx context.Context, note *models.Note) error {
			created = true
			return nil
		},
	}
	assignmentRepo := &mockAssignmentRepo{
		existsFunc: func(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
			return false, nil
		},
	}

	h := NewNoteHandler(noteRepo, assignmentRepo, &mockJobQueue{})
	router := noteRouter(h)

	body := `{"patient_id":"` + uuid.NewString() + `","note_text":"some note"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(body)), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if created {
		t.Error("note must not be created for an unassigned patient")
	}
}

func TestCreateNote_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"patient_id":`},
		{"missing patient_id", `{"note_text":"hello"}`},
		{"missing note_text", `{"patient_id":"` + uuid.NewString() + `"}`},
		{"whitespace-only note_text", `{"patient_id":"` + uuid.NewString() + `","note_text":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewNoteHandler(&mockNoteRepo{}, &mockAssignmentRepo{}, &mockJobQueue{})
			router := noteRouter(h)

			req := asUser(httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(tt.body)), doctor())
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCreateNote_EnqueueFailureStillCreated(t *testing.T) {
	t.Parallel()

	user := doctor()
	patientID := uuid.New()

	assignmentRepo := &mockAssignmentRepo{
		existsFunc: func(ctx context.Context, doctorID, pID uuid.UUID) (bool, error) {
			return true, nil
		},
	}
	jobQueue := &mockJobQueue{
		enqueueFunc: func(ctx context.Context, job *queue.Job) error {
			return context.DeadlineExceeded
		},
	}

	h := NewNoteHandler(&mockNoteRepo{}, assignmentRepo, jobQueue)
	router := noteRouter(h)

	body := `{"patient_id":"` + patientID.String() + `","note_text":"check blood pressure"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(body)), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// The note is durable; a lost enqueue is recoverable out of band
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
}

func TestListNotes(t *testing.T) {
	t.Parallel()

	user := doctor()
	patientID := uuid.New()

	noteRepo := &mockNoteRepo{
		listByDoctorAndPatientFunc: func(ctx context.Context, doctorID, pID uuid.UUID) ([]*models.Note, error) {
			if doctorID != user.ID || pID != patientID {
				t.Errorf("listed wrong pair: doctor=%s patient=%s", doctorID, pID)
			}
			return []*models.Note{{ID: uuid.New(), DoctorID: doctorID, PatientID: pID, Text: "note"}}, nil
		},
	}

	h := NewNoteHandler(noteRepo, &mockAssignmentRepo{}, &mockJobQueue{})
	router := noteRouter(h)

	req := asUser(httptest.NewRequest(http.MethodGet, "/notes?patient_id="+patientID.String(), nil), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestListNotes_MissingPatientID(t *testing.T) {
	t.Parallel()

	h := NewNoteHandler(&mockNoteRepo{}, &mockAssignmentRepo{}, &mockJobQueue{})
	router := noteRouter(h)

	req := asUser(httptest.NewRequest(http.MethodGet, "/notes", nil), doctor())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
