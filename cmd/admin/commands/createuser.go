package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/caretrack/followup-api/internal/config"
	"github.com/caretrack/followup-api/internal/database"
	"github.com/caretrack/followup-api/internal/models"
	"github.com/caretrack/followup-api/internal/validation"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewCreateUserCmd creates the create-user command
func NewCreateUserCmd() *cobra.Command {
	var email string
	var role string
	var name string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user",
		Long:  "Create a doctor, patient, or admin user directly in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if err := validation.ValidateRole(role); err != nil {
				return err
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

			user := &models.User{
				ID:    uuid.New(),
				Email: email,
				Role:  models.Role(role),
			}
			if name != "" {
				user.Name = &name
			}

			userRepo := database.NewUserRepository(db)
			if err := userRepo.Create(context.Background(), user); err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}

			fmt.Printf("Created %s user %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "User email (required)")
	cmd.Flags().StringVar(&role, "role", "", "User role: doctor, patient, or admin (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")

	return cmd
}

func closeDB(db *database.DB) {
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
}
