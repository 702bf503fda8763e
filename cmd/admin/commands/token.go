package commands

import (
	"fmt"
	"time"

	"github.com/caretrack/followup-api/internal/config"
	"github.com/caretrack/followup-api/internal/validation"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/spf13/cobra"
)

// NewTokenCmd creates the token command
func NewTokenCmd() *cobra.Command {
	var email string
	var role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		Long:  "Sign a short-lived HS256 token carrying the email and role claims the API expects",
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
			if cfg.AuthJWTSecret == "" {
				return fmt.Errorf("AUTH_JWT_SECRET is not configured")
			}

			now := time.Now()
			token, err := jwt.NewBuilder().
				IssuedAt(now).
				Expiration(now.Add(ttl)).
				Claim("email", email).
				Claim("role", role).
				Build()
			if err != nil {
				return fmt.Errorf("failed to build token: %w", err)
			}

			signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, []byte(cfg.AuthJWTSecret)))
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}

			fmt.Println(string(signed))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email claim (required)")
	cmd.Flags().StringVar(&role, "role", "", "Role claim: doctor, patient, or admin (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")

	return cmd
}
