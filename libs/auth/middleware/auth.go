package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/captainspark/backend/libs/auth/service"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	roleKey   contextKey = "role"
)

// AccessTokenCookie is the cookie the web client carries the access token in
const AccessTokenCookie = "access_token"

// TokenValidator validates access tokens
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (string, service.Role, error)
}

// AuthMiddleware validates JWT access token and extracts the learner ID
func AuthMiddleware(tokenValidator TokenValidator) func(http.Handler) http.Handler {
	return RoleMiddleware(tokenValidator, service.RoleLearner)
}

// GetUserID retrieves the user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// GetRole retrieves the caller role from context
func GetRole(ctx context.Context) (service.Role, bool) {
	role, ok := ctx.Value(roleKey).(service.Role)
	return role, ok
}

// WithUser stores the caller identity in the context
func WithUser(ctx context.Context, userID string, role service.Role) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

// extractToken reads a bearer token from the Authorization header, falling back to the cookie
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Fields(authHeader)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
