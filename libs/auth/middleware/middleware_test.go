package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/captainspark/backend/libs/auth/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(t *testing.T, wantUser string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		assert.True(t, ok)
		assert.Equal(t, wantUser, userID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	tg := service.NewTokenGenerator("secret", time.Hour, time.Hour)
	learnerToken, err := tg.GenerateAccessToken("learner-1", service.RoleLearner)
	require.NoError(t, err)
	editorToken, err := tg.GenerateAccessToken("cms", service.RoleEditor)
	require.NoError(t, err)

	tests := []struct {
		name           string
		setup          func(r *http.Request)
		wantUser       string
		expectedStatus int
	}{
		{
			name:           "bearer header",
			setup:          func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+learnerToken) },
			wantUser:       "learner-1",
			expectedStatus: http.StatusOK,
		},
		{
			name: "cookie",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: learnerToken})
			},
			wantUser:       "learner-1",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "editor may use learner routes",
			setup:          func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+editorToken) },
			wantUser:       "cms",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing token",
			setup:          func(r *http.Request) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid token",
			setup:          func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AuthMiddleware(tg)(okHandler(t, tt.wantUser))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestEditorMiddleware(t *testing.T) {
	tg := service.NewTokenGenerator("secret", time.Hour, time.Hour)
	learnerToken, err := tg.GenerateAccessToken("learner-1", service.RoleLearner)
	require.NoError(t, err)
	editorToken, err := tg.GenerateAccessToken("cms", service.RoleEditor)
	require.NoError(t, err)

	tests := []struct {
		name           string
		apiKey         string
		setup          func(r *http.Request)
		wantUser       string
		expectedStatus int
	}{
		{
			name:           "editor token",
			setup:          func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+editorToken) },
			wantUser:       "cms",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "learner token is forbidden",
			setup:          func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+learnerToken) },
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "api key",
			apiKey:         "k3y",
			setup:          func(r *http.Request) { r.Header.Set("X-API-Key", "k3y") },
			wantUser:       "api-key",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wrong api key falls back to token check",
			apiKey:         "k3y",
			setup:          func(r *http.Request) { r.Header.Set("X-API-Key", "other") },
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := EditorMiddleware(tg, tt.apiKey)(okHandler(t, tt.wantUser))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name           string
		configured     string
		provided       string
		expectedStatus int
	}{
		{name: "valid", configured: "secret", provided: "secret", expectedStatus: http.StatusOK},
		{name: "invalid", configured: "secret", provided: "wrong", expectedStatus: http.StatusUnauthorized},
		{name: "missing", configured: "secret", provided: "", expectedStatus: http.StatusUnauthorized},
		{name: "not configured", configured: "", provided: "", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.provided != "" {
				req.Header.Set("X-API-Key", tt.provided)
			}
			w := httptest.NewRecorder()

			APIKeyMiddleware(tt.configured)(next).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}
