package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/captainspark/backend/internal/models"
	"github.com/captainspark/backend/internal/progress"
	"github.com/captainspark/backend/libs/handlers"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// timezoneHeader carries the learner's IANA time zone for streak days
const timezoneHeader = "X-Timezone"

// ProgressService is the interface that wraps methods for progress, XP and streak business logic.
type ProgressService interface {
	// Method GetProgress returns the learner's progress map keyed by lesson ID.
	GetProgress(ctx context.Context, learnerID string) (map[string]models.ProgressEntry, error)
	// Method AwardXP credits a completed lesson once. Repeated calls report Awarded=false.
	AwardXP(ctx context.Context, learnerID, lessonID string) (*models.XPAward, error)
	// Method CheckStreak applies the daily streak rule for the calendar day of "now".
	CheckStreak(ctx context.Context, learnerID string, now time.Time) (*models.StreakResult, error)
	// Method SaveFeedback stores the learner's rating of a lesson, replacing an earlier one.
	SaveFeedback(ctx context.Context, learnerID, lessonID string, enjoyment models.Enjoyment) error
}

// ProgressHandler handles progress-related HTTP requests
type ProgressHandler struct {
	handlers.BaseHandler
	progressService ProgressService
	now             func() time.Time
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService ProgressService, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     handlers.BaseHandler{Logger: logger},
		progressService: progressService,
		now:             time.Now,
	}
}

// RegisterRoutes registers all progress routes
func (h *ProgressHandler) RegisterRoutes(r chi.Router) {
	r.Get("/progress", h.GetProgress)
	r.Post("/lessons/{id}/complete", h.Complete)
	r.Post("/lessons/{id}/feedback", h.Feedback)
	r.Post("/streak/check", h.CheckStreak)
}

// GetProgress handles GET /progress
// @Summary Get progress
// @Description Get the learner's position in every started lesson
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]models.ProgressEntry
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /progress [get]
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := currentLearner(&h.BaseHandler, w, r)
	if !ok {
		return
	}

	entries, err := h.progressService.GetProgress(r.Context(), learnerID)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "get progress")
		return
	}

	h.RespondJSON(w, http.StatusOK, entries)
}

// Complete handles POST /lessons/{id}/complete
// @Summary Award lesson XP
// @Description Credit XP for a completed lesson. Idempotent: repeated calls return awarded=false with the unchanged total.
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Success 200 {object} models.XPAward
// @Failure 400 {object} map[string]string "Invalid lesson ID"
// @Failure 404 {object} map[string]string "Lesson not found"
// @Router /lessons/{id}/complete [post]
func (h *ProgressHandler) Complete(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := currentLearner(&h.BaseHandler, w, r)
	if !ok {
		return
	}
	lessonID, ok := h.UUIDParam(w, r, "id")
	if !ok {
		return
	}

	award, err := h.progressService.AwardXP(r.Context(), learnerID, lessonID)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "award XP")
		return
	}

	h.RespondJSON(w, http.StatusOK, award)
}

// CheckStreak handles POST /streak/check
// @Summary Check the daily streak
// @Description Extend or reset the learning streak for today in the learner's time zone and return the week view
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param X-Timezone header string false "IANA time zone, default UTC"
// @Success 200 {object} models.StreakResult
// @Failure 404 {object} map[string]string "Learner not found"
// @Router /streak/check [post]
func (h *ProgressHandler) CheckStreak(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := currentLearner(&h.BaseHandler, w, r)
	if !ok {
		return
	}

	loc := progress.LoadLocation(r.Header.Get(timezoneHeader))

	result, err := h.progressService.CheckStreak(r.Context(), learnerID, h.now().In(loc))
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "check streak")
		return
	}

	h.RespondJSON(w, http.StatusOK, result)
}

// Feedback handles POST /lessons/{id}/feedback
// @Summary Rate a lesson
// @Description Store how much the learner enjoyed a lesson
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Param request body models.FeedbackRequest true "Rating: boring, meh, fun or super_fun"
// @Success 204 "Feedback saved"
// @Failure 400 {object} map[string]string "Invalid rating"
// @Failure 404 {object} map[string]string "Lesson not found"
// @Router /lessons/{id}/feedback [post]
func (h *ProgressHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := currentLearner(&h.BaseHandler, w, r)
	if !ok {
		return
	}
	lessonID, ok := h.UUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req models.FeedbackRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.progressService.SaveFeedback(r.Context(), learnerID, lessonID, req.Enjoyment); err != nil {
		respondServiceError(&h.BaseHandler, w, err, "save feedback")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
