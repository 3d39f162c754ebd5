package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/captainspark/backend/internal/models"
	"github.com/captainspark/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// mockCourseTrackService is a mock implementation of CourseTrackService
type mockCourseTrackService struct {
	lessonID string
	err      error
}

func (m *mockCourseTrackService) GetTrack(ctx context.Context, learnerID, lessonID string) (*models.CourseTrack, error) {
	m.lessonID = lessonID
	if m.err != nil {
		return nil, m.err
	}
	return &models.CourseTrack{Heading: "Welcome Back Sam!"}, nil
}

func TestCourseTrackHandler_GetTrack(t *testing.T) {
	tests := []struct {
		name             string
		query            string
		err              error
		expectedStatus   int
		expectedLessonID string
	}{
		{name: "latest course", expectedStatus: http.StatusOK},
		{name: "after a lesson", query: "?lessonId=" + testLessonID, expectedStatus: http.StatusOK, expectedLessonID: testLessonID},
		{name: "malformed lesson id", query: "?lessonId=l1", expectedStatus: http.StatusBadRequest},
		{name: "no courses yet", err: repositories.ErrLessonNotFound, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCourseTrackService{err: tt.err}
			h := NewCourseTrackHandler(svc, zap.NewNop())

			w := serve(h.RegisterRoutes, asLearner(httptest.NewRequest(http.MethodGet, "/courses/track"+tt.query, nil), "u1"))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedLessonID, svc.lessonID)
		})
	}
}
