package handlers

import (
	"context"
	"net/http"

	"github.com/captainspark/backend/internal/models"
	"github.com/captainspark/backend/libs/handlers"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CourseTrackService is the interface that wraps the course overview business logic.
type CourseTrackService interface {
	// Method GetTrack returns the course the learner is on with a status for each lesson.
	//
	// When "lessonID" is set the learner has just finished it and it is marked completed first.
	// Otherwise the course of the latest completed lesson is shown, or the first course for a new learner.
	GetTrack(ctx context.Context, learnerID, lessonID string) (*models.CourseTrack, error)
}

// CourseTrackHandler handles the course overview HTTP request
type CourseTrackHandler struct {
	handlers.BaseHandler
	trackService CourseTrackService
}

// NewCourseTrackHandler creates a new course track handler
func NewCourseTrackHandler(trackService CourseTrackService, logger *zap.Logger) *CourseTrackHandler {
	return &CourseTrackHandler{
		BaseHandler:  handlers.BaseHandler{Logger: logger},
		trackService: trackService,
	}
}

// RegisterRoutes registers the course track route
func (h *CourseTrackHandler) RegisterRoutes(r chi.Router) {
	r.Get("/courses/track", h.GetTrack)
}

// GetTrack handles GET /courses/track
// @Summary Get the course track
// @Description Get the learner's current course with done, current and upcoming lessons
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param lessonId query string false "Lesson the learner just finished"
// @Success 200 {object} models.CourseTrack
// @Failure 400 {object} map[string]string "Invalid lesson ID"
// @Failure 404 {object} map[string]string "Learner, lesson or course not found"
// @Router /courses/track [get]
func (h *CourseTrackHandler) GetTrack(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := currentLearner(&h.BaseHandler, w, r)
	if !ok {
		return
	}

	lessonID := r.URL.Query().Get("lessonId")
	if lessonID != "" {
		if _, err := uuid.Parse(lessonID); err != nil {
			h.RespondError(w, http.StatusBadRequest, "invalid lessonId")
			return
		}
	}

	track, err := h.trackService.GetTrack(r.Context(), learnerID, lessonID)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "get course track")
		return
	}

	h.RespondJSON(w, http.StatusOK, track)
}
