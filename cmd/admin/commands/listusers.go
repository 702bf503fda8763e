package commands

import (
	"context"
	"fmt"

	"github.com/caretrack/followup-api/internal/config"
	"github.com/caretrack/followup-api/internal/database"
	"github.com/caretrack/followup-api/internal/models"
	"github.com/caretrack/followup-api/internal/validation"
	"github.com/spf13/cobra"
)

// NewListUsersCmd creates the list-users command
func NewListUsersCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "list-users",
		Short: "List users by role",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			userRepo := database.NewUserRepository(db)
			users, err := userRepo.ListByRole(context.Background(), models.Role(role))
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			if len(users) == 0 {
				fmt.Printf("No %s users found\n", role)
				return nil
			}

			for _, user := range users {
				name := "-"
				if user.Name != nil {
					name = *user.Name
				}
				fmt.Printf("%s  %s  %s\n", user.ID, user.Email, name)
			}
			fmt.Printf("\n%d user(s)\n", len(users))
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Role to list: doctor, patient, or admin (required)")

	return cmd
}
