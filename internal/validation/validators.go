package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/caretrack/followup-api/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("step_status", validateStepStatus); err != nil {
		panic(fmt.Sprintf("failed to register step_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("step_kind", validateStepKind); err != nil {
		panic(fmt.Sprintf("failed to register step_kind validator: %v", err))
	}
	if err := Validate.RegisterValidation("role", validateRole); err != nil {
		panic(fmt.Sprintf("failed to register role validator: %v", err))
	}
}

func validateStepStatus(fl validator.FieldLevel) bool {
	switch models.StepStatus(fl.Field().String()) {
	case models.StepStatusPending, models.StepStatusCompleted, models.StepStatusCancelled:
		return true
	default:
		return false
	}
}

func validateStepKind(fl validator.FieldLevel) bool {
	switch models.StepKind(fl.Field().String()) {
	case models.StepKindChecklist, models.StepKindPlan:
		return true
	default:
		return false
	}
}

func validateRole(fl validator.FieldLevel) bool {
	switch models.Role(fl.Field().String()) {
	case models.RoleDoctor, models.RolePatient, models.RoleAdmin:
		return true
	default:
		return false
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateStepStatus validates a StepStatus string value
func ValidateStepStatus(value string) error {
	switch models.StepStatus(value) {
	case models.StepStatusPending, models.StepStatusCompleted, models.StepStatusCancelled:
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'pending', 'completed', or 'cancelled')", value)
	}
}

// ValidateStepKind validates a StepKind string value
func ValidateStepKind(value string) error {
	switch models.StepKind(value) {
	case models.StepKindChecklist, models.StepKindPlan:
		return nil
	default:
		return fmt.Errorf("invalid kind: %s (must be 'checklist' or 'plan')", value)
	}
}

// ValidateRole validates a Role string value
func ValidateRole(value string) error {
	switch models.Role(value) {
	case models.RoleDoctor, models.RolePatient, models.RoleAdmin:
		return nil
	default:
		return fmt.Errorf("invalid role: %s (must be 'doctor', 'patient', or 'admin')", value)
	}
}
