package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/caretrack/followup-api/internal/models"
	"github.com/caretrack/followup-api/internal/request"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func reminderRouter(h *ReminderHandler) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/reminders").Subrouter())
	return r
}

func asUser(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(request.WithUser(req.Context(), user))
}

func patient() *models.User {
	return &models.User{ID: uuid.New(), Email: "pat@example.com", Role: models.RolePatient}
}

// ownedPlanStep wires a step and its note so the ownership check passes
// for the given patient.
func ownedPlanStep(t *testing.T, patientID uuid.UUID, durationDays int) (*models.ActionableStep, *mockStepRepo, *mockNoteRepo) {
	t.Helper()

	schedule, err := models.NewSchedule(models.FrequencyDaily, durationDays)
	if err != nil {
		t.Fatalf("failed to build schedule: %v", err)
	}
	step := &models.ActionableStep{
		ID:          uuid.New(),
		NoteID:      uuid.New(),
		Kind:        models.StepKindPlan,
		Description: "take amoxicillin",
		Status:      models.StepStatusPending,
		Schedule:    schedule,
	}

	stepRepo := &mockStepRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.ActionableStep, error) {
			return step, nil
		},
		mutateFunc: func(ctx context.Context, id uuid.UUID, fn func(*models.ActionableStep) error) (*models.ActionableStep, error) {
			if err := fn(step); err != nil {
				return nil, err
			}
			return step, nil
		},
	}
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return &models.Note{ID: id, PatientID: patientID}, nil
		},
	}
	return step, stepRepo, noteRepo
}

func TestListReminders(t *testing.T) {
	t.Parallel()

	user := patient()
	steps := []*models.ActionableStep{
		{ID: uuid.New(), Kind: models.StepKindChecklist, Status: models.StepStatusPending},
	}

	var queried uuid.UUID
	stepRepo := &mockStepRepo{
		listPendingForPatientFunc: func(ctx context.Context, patientID uuid.UUID) ([]*models.ActionableStep, error) {
			queried = patientID
			return steps, nil
		},
	}

	h := NewReminderHandler(stepRepo, &mockNoteRepo{})
	router := reminderRouter(h)

	req := asUser(httptest.NewRequest(http.MethodGet, "/reminders", nil), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if queried != user.ID {
		t.Errorf("queried patient %s, want %s", queried, user.ID)
	}

	var body struct {
		Success bool                     `json:"success"`
		Data    []*models.ActionableStep `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body.Success || len(body.Data) != 1 {
		t.Errorf("unexpected body: success=%v len=%d", body.Success, len(body.Data))
	}
}

func TestCompleteReminder(t *testing.T) {
	t.Parallel()

	user := patient()
	step, stepRepo, noteRepo := ownedPlanStep(t, user.ID, 7)

	h := NewReminderHandler(stepRepo, noteRepo)
	router := reminderRouter(h)

	req := asUser(httptest.NewRequest(http.MethodPost, "/reminders/"+step.ID.String()+"/complete", nil), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if step.Status != models.StepStatusCompleted {
		t.Errorf("step status = %s, want completed", step.Status)
	}
}

func TestCompleteReminder_AlreadyResolved(t *testing.T) {
	t.Parallel()

	user := patient()
	step, stepRepo, noteRepo := ownedPlanStep(t, user.ID, 7)
	step.Status = models.StepStatusCancelled

	h := NewReminderHandler(stepRepo, noteRepo)
	router := reminderRouter(h)

	req := asUser(httptest.NewRequest(http.MethodPost, "/reminders/"+step.ID.String()+"/complete", nil), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if step.Status != models.StepStatusCancelled {
		t.Errorf("resolved step must not change status, got %s", step.Status)
	}
}

func TestCompleteReminder_NotOwned(t *testing.T) {
	t.Parallel()

	user := patient()
	step, stepRepo, _ := ownedPlanStep(t, user.ID, 7)

	// The note belongs to someone else
	noteRepo := &mockNoteRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Note, error) {
			return &models.Note{ID: id, PatientID: uuid.New()}, nil
		},
	}

	h := NewReminderHandler(stepRepo, noteRepo)
	router := reminderRouter(h)

	req := asUser(httptest.NewRequest(http.MethodPost, "/reminders/"+step.ID.String()+"/complete", nil), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCompleteReminder_NotFound(t *testing.T) {
	t.Parallel()

	user := patient()
	h := NewReminderHandler(&mockStepRepo{}, &mockNoteRepo{})
	router := reminderRouter(h)

	req := asUser(httptest.NewRequest(http.MethodPost, "/reminders/"+uuid.NewString()+"/complete", nil), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCheckIn_AppliesExtensionLaw(t *testing.T) {
	t.Parallel()

	user := patient()
	step, stepRepo, noteRepo := ownedPlanStep(t, user.ID, 7)

	// Two misses on earlier days; the check-in must extend the end by two
	step.Schedule = step.Schedule.RecordMiss(time.Now().AddDate(0, 0, -2))
	step.Schedule = step.Schedule.RecordMiss(time.Now().AddDate(0, 0, -1))
	endBefore := step.Schedule.End

	h := NewReminderHandler(stepRepo, noteRepo)
	router := reminderRouter(h)

	req := asUser(httptest.NewRequest(http.MethodPost, "/reminders/"+step.ID.String()+"/check-in", nil), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(step.Schedule.Completed) != 1 {
		t.Fatalf("expected 1 completed occurrence, got %d", len(step.Schedule.Completed))
	}
	wantEnd := endBefore.AddDate(0, 0, 2)
	if !step.Schedule.End.Equal(wantEnd) {
		t.Errorf("end = %v, want %v (extended by 2 misses)", step.Schedule.End, wantEnd)
	}
}

func TestCheckIn_SameDayIdempotent(t *testing.T) {
	t.Parallel()

	user := patient()
	step, stepRepo, noteRepo := ownedPlanStep(t, user.ID, 7)
	step.Schedule = step.Schedule.RecordCheckIn(time.Now())
	endBefore := step.Schedule.End

	h := NewReminderHandler(stepRepo, noteRepo)
	router := reminderRouter(h)

	req := asUser(httptest.NewRequest(http.MethodPost, "/reminders/"+step.ID.String()+"/check-in", nil), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(step.Schedule.Completed) != 1 {
		t.Errorf("second same-day check-in must not append, got %d occurrences", len(step.Schedule.Completed))
	}
	if !step.Schedule.End.Equal(endBefore) {
		t.Errorf("second same-day check-in must not move the end date")
	}
}

func TestCheckIn_ChecklistRejected(t *testing.T) {
	t.Parallel()

	user := patient()
	step, stepRepo, noteRepo := ownedPlanStep(t, user.ID, 7)
	step.Kind = models.StepKindChecklist
	step.Schedule = nil

	h := NewReminderHandler(stepRepo, noteRepo)
	router := reminderRouter(h)

	req := asUser(httptest.NewRequest(http.MethodPost, "/reminders/"+step.ID.String()+"/check-in", nil), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCheckIn_InvalidID(t *testing.T) {
	t.Parallel()

	user := patient()
	h := NewReminderHandler(&mockStepRepo{}, &mockNoteRepo{})
	router := reminderRouter(h)

	req := asUser(httptest.NewRequest(http.MethodPost, "/reminders/not-a-uuid/check-in", nil), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
