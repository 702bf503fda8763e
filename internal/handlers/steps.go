package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/caretrack/followup-api/internal/database"
	"github.com/caretrack/followup-api/internal/middleware"
	"github.com/caretrack/followup-api/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// errStepResolved signals a mutation attempted on a step that already
// reached a terminal status.
var errStepResolved = errors.New("step already resolved")

// errNotPlanStep signals a check-in on a step with no schedule.
var errNotPlanStep = errors.New("step has no schedule")

// ReminderHandler handles a patient's view of their actionable steps.
// Routing must wrap these handlers with the patient role gate.
type ReminderHandler struct {
	stepRepo database.StepRepositoryInterface
	noteRepo database.NoteRepositoryInterface
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(stepRepo database.StepRepositoryInterface, noteRepo database.NoteRepositoryInterface) *ReminderHandler {
	return &ReminderHandler{stepRepo: stepRepo, noteRepo: noteRepo}
}

// RegisterRoutes registers reminder routes on the given router.
// The router should already have the /reminders prefix.
func (h *ReminderHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListReminders).Methods("GET")
	r.HandleFunc("/{id}/complete", h.CompleteReminder).Methods("POST")
	r.HandleFunc("/{id}/check-in", h.CheckIn).Methods("POST")
}

// ListReminders lists the authenticated patient's pending steps
func (h *ReminderHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	steps, err := h.stepRepo.ListPendingForPatient(ctx, user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve reminders")
		return
	}
	if steps == nil {
		steps = []*models.ActionableStep{}
	}

	respondJSON(w, http.StatusOK, steps)
}

// CompleteReminder marks a step completed, either kind. Completing a
// plan step ends its check chain: the next schedule check sees a
// resolved step and stops.
func (h *ReminderHandler) CompleteReminder(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	stepID, ok := h.ownedStep(w, r, user)
	if !ok {
		return
	}

	ctx := r.Context()
	step, err := h.stepRepo.Mutate(ctx, stepID, func(step *models.ActionableStep) error {
		if step.IsResolved() {
			return errStepResolved
		}
		step.Status = models.StepStatusCompleted
		return nil
	})
	if err != nil {
		if errors.Is(err, errStepResolved) {
			respondJSONError(w, http.StatusConflict, "Conflict", "Step is already completed or cancelled")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to complete step")
		return
	}

	respondJSON(w, http.StatusOK, step)
}

// CheckIn records today's occurrence on a plan step, applying the
// extension law: the end date moves out one day per miss recorded so
// far. A second check-in on the same day is a no-op.
func (h *ReminderHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	stepID, ok := h.ownedStep(w, r, user)
	if !ok {
		return
	}

	ctx := r.Context()
	now := time.Now()
	step, err := h.stepRepo.Mutate(ctx, stepID, func(step *models.ActionableStep) error {
		if step.IsResolved() {
			return errStepResolved
		}
		if step.Schedule == nil {
			return errNotPlanStep
		}
		if step.Schedule.CheckedInOn(now) {
			// Idempotent: the day's occurrence is already recorded
			return nil
		}
		step.Schedule = step.Schedule.RecordCheckIn(now)
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, errStepResolved):
			respondJSONError(w, http.StatusConflict, "Conflict", "Step is already completed or cancelled")
		case errors.Is(err, errNotPlanStep):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Check-in only applies to plan steps")
		default:
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to record check-in")
		}
		return
	}

	respondJSON(w, http.StatusOK, step)
}

// ownedStep parses the step id from the route and verifies the step
// belongs to the authenticated patient via its note. Writes the error
// response itself; callers bail out when ok is false.
func (h *ReminderHandler) ownedStep(w http.ResponseWriter, r *http.Request, user *models.User) (uuid.UUID, bool) {
	vars := mux.Vars(r)
	stepID, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid step ID")
		return uuid.Nil, false
	}

	ctx := r.Context()
	step, err := h.stepRepo.GetByID(ctx, stepID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Step not found")
		} else {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve step")
		}
		return uuid.Nil, false
	}

	note, err := h.noteRepo.GetByID(ctx, step.NoteID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve step")
		return uuid.Nil, false
	}
	if note.PatientID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Step does not belong to user")
		return uuid.Nil, false
	}

	return stepID, true
}
