package commands

import (
	"context"
	"fmt"

	"github.com/caretrack/followup-api/internal/config"
	"github.com/caretrack/followup-api/internal/database"
	"github.com/caretrack/followup-api/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewAssignCmd creates the assign command
func NewAssignCmd() *cobra.Command {
	var doctorFlag string
	var patientFlag string
	var remove bool

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign a patient to a doctor",
		Long:  "Link (or with --remove, unlink) a patient and a doctor so the doctor can submit notes for them",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, err := uuid.Parse(doctorFlag)
			if err != nil {
				return fmt.Errorf("invalid --doctor id: %w", err)
			}
			patientID, err := uuid.Parse(patientFlag)
			if err != nil {
				return fmt.Errorf("invalid --patient id: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer closeDB(db)

			ctx := context.Background()
			userRepo := database.NewUserRepository(db)

			doctor, err := userRepo.GetByID(ctx, doctorID)
			if err != nil {
				return fmt.Errorf("doctor not found: %w", err)
			}
			if doctor.Role != models.RoleDoctor {
				return fmt.Errorf("user %s is not a doctor", doctorID)
			}
			patient, err := userRepo.GetByID(ctx, patientID)
			if err != nil {
				return fmt.Errorf("patient not found: %w", err)
			}
			if patient.Role != models.RolePatient {
				return fmt.Errorf("user %s is not a patient", patientID)
			}

			assignmentRepo := database.NewAssignmentRepository(db)
			if remove {
				if err := assignmentRepo.Unassign(ctx, doctorID, patientID); err != nil {
					return fmt.Errorf("failed to remove assignment: %w", err)
				}
				fmt.Printf("Unassigned patient %s from doctor %s\n", patient.Email, doctor.Email)
				return nil
			}

			if err := assignmentRepo.Assign(ctx, doctorID, patientID); err != nil {
				return fmt.Errorf("failed to create assignment: %w", err)
			}
			fmt.Printf("Assigned patient %s to doctor %s\n", patient.Email, doctor.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&doctorFlag, "doctor", "", "Doctor user ID (required)")
	cmd.Flags().StringVar(&patientFlag, "patient", "", "Patient user ID (required)")
	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the assignment instead of creating it")

	return cmd
}
