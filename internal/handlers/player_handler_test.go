package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/captainspark/backend/internal/player"
	"github.com/captainspark/backend/internal/quiz"
	"github.com/captainspark/backend/internal/resolver"
	"github.com/captainspark/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testLessonID  = "7f2c1c1e-4a8f-4bd8-9d1e-0c6c5a8f2b10"
	testSessionID = "0b8e7d4a-2f7e-4d1b-8a55-6f3c2e9d1a77"
)

// mockPlayerService is a mock implementation of PlayerService
type mockPlayerService struct {
	err        error
	calls      []string
	learnerID  string
	lessonID   string
	localIndex *int
	answer     int
}

func (m *mockPlayerService) snapshot(call, learnerID string) (*player.Snapshot, error) {
	m.calls = append(m.calls, call)
	m.learnerID = learnerID
	if m.err != nil {
		return nil, m.err
	}
	return &player.Snapshot{SessionID: testSessionID, LessonID: testLessonID, State: player.StateReady, Total: 3}, nil
}

func (m *mockPlayerService) Start(ctx context.Context, learnerID, lessonID string, localIndex *int) (*player.Snapshot, error) {
	m.lessonID = lessonID
	m.localIndex = localIndex
	return m.snapshot("start", learnerID)
}

func (m *mockPlayerService) Get(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error) {
	return m.snapshot("get", learnerID)
}

func (m *mockPlayerService) Advance(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error) {
	return m.snapshot("advance", learnerID)
}

func (m *mockPlayerService) Retreat(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error) {
	return m.snapshot("retreat", learnerID)
}

func (m *mockPlayerService) Rewind(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error) {
	return m.snapshot("rewind", learnerID)
}

func (m *mockPlayerService) VideoEnded(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error) {
	return m.snapshot("video-ended", learnerID)
}

func (m *mockPlayerService) Answer(ctx context.Context, learnerID, sessionID string, index int) (*player.Snapshot, error) {
	m.answer = index
	return m.snapshot("answer", learnerID)
}

func (m *mockPlayerService) TryAgain(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error) {
	return m.snapshot("try-again", learnerID)
}

func (m *mockPlayerService) Continue(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error) {
	return m.snapshot("continue", learnerID)
}

func TestPlayerHandler_Start(t *testing.T) {
	tests := []struct {
		name           string
		lessonID       string
		body           string
		err            error
		expectedStatus int
		expectedLocal  *int
	}{
		{name: "no body", lessonID: testLessonID, expectedStatus: http.StatusCreated},
		{name: "with local index", lessonID: testLessonID, body: `{"localIndex":2}`, expectedStatus: http.StatusCreated, expectedLocal: intPtr(2)},
		{name: "malformed lesson id", lessonID: "abc", expectedStatus: http.StatusBadRequest},
		{name: "malformed body", lessonID: testLessonID, body: `{"localIndex":`, expectedStatus: http.StatusBadRequest},
		{name: "lesson not found", lessonID: testLessonID, err: resolver.ErrLessonNotFound, expectedStatus: http.StatusNotFound},
		{name: "lesson duplicated", lessonID: testLessonID, err: resolver.ErrLessonDuplicated, expectedStatus: http.StatusConflict},
		{name: "lesson empty", lessonID: testLessonID, err: player.ErrNoSlides, expectedStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPlayerService{err: tt.err}
			h := NewPlayerHandler(svc, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/lessons/"+tt.lessonID+"/play", strings.NewReader(tt.body))
			w := serve(h.RegisterRoutes, asLearner(req, "u1"))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusCreated {
				assert.Equal(t, testLessonID, svc.lessonID)
				assert.Equal(t, tt.expectedLocal, svc.localIndex)
				assert.Equal(t, "u1", svc.learnerID)

				var snap player.Snapshot
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
				assert.Equal(t, testSessionID, snap.SessionID)
			}
		})
	}
}

func TestPlayerHandler_Transitions(t *testing.T) {
	for _, action := range []string{"advance", "retreat", "rewind", "video-ended", "try-again", "continue"} {
		t.Run(action, func(t *testing.T) {
			svc := &mockPlayerService{}
			h := NewPlayerHandler(svc, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/sessions/"+testSessionID+"/"+action, nil)
			w := serve(h.RegisterRoutes, asLearner(req, "u1"))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, []string{action}, svc.calls)
		})
	}
}

func TestPlayerHandler_Errors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "session not found", err: player.ErrSessionNotFound, expectedStatus: http.StatusNotFound},
		{name: "foreign session", err: services.ErrSessionForbidden, expectedStatus: http.StatusForbidden},
		{name: "next not ready", err: player.ErrNextNotReady, expectedStatus: http.StatusConflict},
		{name: "quiz not passed", err: player.ErrQuizNotPassed, expectedStatus: http.StatusConflict},
		{name: "not allowed", err: player.ErrInvalidTransition, expectedStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPlayerHandler(&mockPlayerService{err: tt.err}, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/sessions/"+testSessionID+"/advance", nil)
			w := serve(h.RegisterRoutes, asLearner(req, "u1"))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.err.Error(), errorBody(t, w))
		})
	}
}

func TestPlayerHandler_Get(t *testing.T) {
	svc := &mockPlayerService{}
	h := NewPlayerHandler(svc, zap.NewNop())

	w := serve(h.RegisterRoutes, asLearner(httptest.NewRequest(http.MethodGet, "/sessions/"+testSessionID, nil), "u1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"get"}, svc.calls)
}

func TestPlayerHandler_Answer(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		err            error
		expectedStatus int
	}{
		{name: "answered", body: `{"index":1}`, expectedStatus: http.StatusOK},
		{name: "first answer", body: `{"index":0}`, expectedStatus: http.StatusOK},
		{name: "missing index", body: `{}`, expectedStatus: http.StatusBadRequest},
		{name: "out of range", body: `{"index":9}`, err: quiz.ErrInvalidAnswer, expectedStatus: http.StatusBadRequest},
		{name: "already answered", body: `{"index":1}`, err: quiz.ErrAlreadyAnswered, expectedStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPlayerService{err: tt.err}
			h := NewPlayerHandler(svc, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/sessions/"+testSessionID+"/answer", strings.NewReader(tt.body))
			w := serve(h.RegisterRoutes, asLearner(req, "u1"))

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestPlayerHandler_RequiresLearner(t *testing.T) {
	h := NewPlayerHandler(&mockPlayerService{}, zap.NewNop())

	w := serve(h.RegisterRoutes, httptest.NewRequest(http.MethodPost, "/sessions/"+testSessionID+"/advance", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func intPtr(v int) *int {
	return &v
}
