package middleware

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/caretrack/followup-api/internal/database"
	"github.com/caretrack/followup-api/internal/models"
	"github.com/caretrack/followup-api/internal/request"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}

// Auth creates authentication middleware that validates bearer tokens.
// Tokens are issued by an external identity provider and carry email,
// name, and role claims; the first request from a valid token creates
// the local user record.
func Auth(db *database.DB, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			token, err := jwt.Parse([]byte(parts[1]),
				jwt.WithKey(jwa.HS256, []byte(jwtSecret)),
				jwt.WithValidate(true),
			)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			email := stringClaim(token, "email")
			if email == "" {
				respondError(w, http.StatusUnauthorized, "Token missing email claim")
				return
			}
			role := models.Role(stringClaim(token, "role"))
			switch role {
			case models.RoleDoctor, models.RolePatient, models.RoleAdmin:
			default:
				respondError(w, http.StatusUnauthorized, "Token missing or invalid role claim")
				return
			}
			name := stringClaim(token, "name")

			ctx := r.Context()
			userRepo := database.NewUserRepository(db)
			user, err := userRepo.GetByEmail(ctx, email)
			if err != nil {
				// The repository wraps sql.ErrNoRows, so errors.Is unwraps it
				if errors.Is(err, sql.ErrNoRows) {
					user = &models.User{
						ID:    uuid.New(),
						Email: email,
						Role:  role,
					}
					if name != "" {
						user.Name = &name
					}
					if err := userRepo.Create(ctx, user); err != nil {
						respondError(w, http.StatusInternalServerError, "Failed to create user")
						return
					}
				} else {
					log.Printf("Database error while fetching user: %v", err)
					respondError(w, http.StatusInternalServerError, "Database error")
					return
				}
			} else if user.Role != role {
				// The stored record is authoritative; a token claiming a
				// different role does not get the stored one's access.
				respondError(w, http.StatusForbidden, "Role mismatch")
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

// RequireRole gates a route group to the given roles. Must run after Auth.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := request.UserFromContext(r)
			if user == nil {
				respondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, http.StatusForbidden, "Insufficient role")
		})
	}
}

func stringClaim(token jwt.Token, name string) string {
	v, ok := token.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
