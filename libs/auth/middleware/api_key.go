package middleware

import (
	"crypto/subtle"
	"net/http"
)

const apiKeyHeader = "X-API-Key"

// APIKeyMiddleware validates API key from X-API-Key header.
// An empty configured key rejects every request.
func APIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" || !validAPIKey(r.Header.Get(apiKeyHeader), apiKey) {
				writeError(w, http.StatusUnauthorized, `{"error":"invalid or missing API key"}`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func validAPIKey(provided, expected string) bool {
	if provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
