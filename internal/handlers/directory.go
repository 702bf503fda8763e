package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/caretrack/followup-api/internal/database"
	"github.com/caretrack/followup-api/internal/middleware"
	"github.com/caretrack/followup-api/internal/models"
	"github.com/caretrack/followup-api/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// DirectoryHandler handles the doctor/patient directory: browsing
// doctors and managing which doctors a patient has selected.
type DirectoryHandler struct {
	userRepo       database.UserRepositoryInterface
	assignmentRepo database.AssignmentRepositoryInterface
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(userRepo database.UserRepositoryInterface, assignmentRepo database.AssignmentRepositoryInterface) *DirectoryHandler {
	return &DirectoryHandler{userRepo: userRepo, assignmentRepo: assignmentRepo}
}

// ListDoctors lists every doctor in the system, for patients to browse
func (h *DirectoryHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doctors, err := h.userRepo.ListByRole(ctx, models.RoleDoctor)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve doctors")
		return
	}
	if doctors == nil {
		doctors = []*models.User{}
	}

	respondJSON(w, http.StatusOK, doctors)
}

// SelectDoctorRequest represents a patient selecting or deselecting a doctor
type SelectDoctorRequest struct {
	DoctorID uuid.UUID `json:"doctor_id" validate:"required"`
	Action   string    `json:"action" validate:"required,oneof=select deselect"`
}

// SelectDoctor links or unlinks the authenticated patient and a doctor
func (h *DirectoryHandler) SelectDoctor(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req SelectDoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
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

	ctx := r.Context()

	doctor, err := h.userRepo.GetByID(ctx, req.DoctorID)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Doctor not found")
		return
	}
	if doctor.Role != models.RoleDoctor {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "User is not a doctor")
		return
	}

	switch req.Action {
	case "select":
		err = h.assignmentRepo.Assign(ctx, doctor.ID, user.ID)
	case "deselect":
		err = h.assignmentRepo.Unassign(ctx, doctor.ID, user.ID)
	}
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update assignment")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"doctor_id": doctor.ID,
		"action":    req.Action,
	})
}

// ListSelectedDoctors lists the doctors the authenticated patient selected
func (h *DirectoryHandler) ListSelectedDoctors(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	doctors, err := h.assignmentRepo.DoctorsForPatient(ctx, user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve doctors")
		return
	}
	if doctors == nil {
		doctors = []*models.User{}
	}

	respondJSON(w, http.StatusOK, doctors)
}

// ListPatients lists the patients assigned to the authenticated doctor
func (h *DirectoryHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	patients, err := h.assignmentRepo.PatientsForDoctor(ctx, user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve patients")
		return
	}
	if patients == nil {
		patients = []*models.User{}
	}

	respondJSON(w, http.StatusOK, patients)
}

// RegisterDirectoryRoutes wires the directory endpoints onto the API
// router, each guarded by the appropriate role.
func RegisterDirectoryRoutes(api *mux.Router, h *DirectoryHandler) {
	patientOnly := middleware.RequireRole(models.RolePatient)
	doctorOnly := middleware.RequireRole(models.RoleDoctor)

	api.Handle("/doctors", patientOnly(http.HandlerFunc(h.ListDoctors))).Methods("GET")
	api.Handle("/patients/doctors", patientOnly(http.HandlerFunc(h.SelectDoctor))).Methods("POST")
	api.Handle("/patients/doctors", patientOnly(http.HandlerFunc(h.ListSelectedDoctors))).Methods("GET")
	api.Handle("/doctors/patients", doctorOnly(http.HandlerFunc(h.ListPatients))).Methods("GET")
}
