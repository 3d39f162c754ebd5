package middleware

import (
	"net/http"

	"github.com/captainspark/backend/libs/auth/service"
)

// RoleMiddleware validates JWT access token and checks the caller role covers requiredRole
func RoleMiddleware(tokenValidator TokenValidator, requiredRole service.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, `{"error":"authentication required"}`)
				return
			}

			userID, role, err := tokenValidator.ValidateAccessToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, `{"error":"invalid or expired token"}`)
				return
			}

			if !role.Covers(requiredRole) {
				writeError(w, http.StatusForbidden, `{"error":"insufficient permissions"}`)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID, role)))
		})
	}
}

// EditorMiddleware admits CMS callers holding either an editor token or, when
// apiKey is configured, a matching X-API-Key header.
func EditorMiddleware(tokenValidator TokenValidator, apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		byRole := RoleMiddleware(tokenValidator, service.RoleEditor)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey != "" && validAPIKey(r.Header.Get(apiKeyHeader), apiKey) {
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), "api-key", service.RoleEditor)))
				return
			}
			byRole.ServeHTTP(w, r)
		})
	}
}
