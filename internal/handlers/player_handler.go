package handlers

import (
	"context"
	"net/http"

	"github.com/captainspark/backend/internal/player"
	"github.com/captainspark/backend/libs/handlers"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PlayerService is the interface that wraps methods for lesson playback.
//
// Every method except Start loads the session by ID and fails with
// services.ErrSessionForbidden when it belongs to another learner.
type PlayerService interface {
	// Method Start resolves a lesson and opens a session on it.
	//
	// "localIndex" is the client's last known slide index, or nil. The furthest of it and the stored progress wins.
	Start(ctx context.Context, learnerID, lessonID string, localIndex *int) (*player.Snapshot, error)
	Get(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error)
	Advance(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error)
	Retreat(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error)
	Rewind(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error)
	VideoEnded(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error)
	Answer(ctx context.Context, learnerID, sessionID string, index int) (*player.Snapshot, error)
	TryAgain(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error)
	Continue(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error)
}

// StartRequest opens a session, optionally resuming from a client-side position
type StartRequest struct {
	LocalIndex *int `json:"localIndex,omitempty"`
}

// AnswerRequest selects an answer on the current quiz
type AnswerRequest struct {
	Index *int `json:"index"`
}

// PlayerHandler handles lesson playback HTTP requests
type PlayerHandler struct {
	handlers.BaseHandler
	playerService PlayerService
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(playerService PlayerService, logger *zap.Logger) *PlayerHandler {
	return &PlayerHandler{
		BaseHandler:   handlers.BaseHandler{Logger: logger},
		playerService: playerService,
	}
}

// RegisterRoutes registers all player routes
func (h *PlayerHandler) RegisterRoutes(r chi.Router) {
	r.Post("/lessons/{id}/play", h.Start)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/advance", h.transition("advance", h.playerService.Advance))
		r.Post("/retreat", h.transition("retreat", h.playerService.Retreat))
		r.Post("/rewind", h.transition("rewind", h.playerService.Rewind))
		r.Post("/video-ended", h.transition("end video", h.playerService.VideoEnded))
		r.Post("/answer", h.Answer)
		r.Post("/try-again", h.transition("try again", h.playerService.TryAgain))
		r.Post("/continue", h.transition("continue", h.playerService.Continue))
	})
}

// Start handles POST /lessons/{id}/play
// @Summary Start a lesson
// @Description Resolve the lesson's media and open a player session at the furthest known slide
// @Tags player
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Param request body StartRequest false "Client-side position"
// @Success 201 {object} player.Snapshot
// @Failure 400 {object} map[string]string "Invalid lesson ID"
// @Failure 404 {object} map[string]string "Lesson not found"
// @Failure 409 {object} map[string]string "Lesson is duplicated or empty"
// @Router /lessons/{id}/play [post]
func (h *PlayerHandler) Start(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := currentLearner(&h.BaseHandler, w, r)
	if !ok {
		return
	}
	lessonID, ok := h.UUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req StartRequest
	if !decodeOptionalJSON(&h.BaseHandler, w, r, &req) {
		return
	}

	snap, err := h.playerService.Start(r.Context(), learnerID, lessonID, req.LocalIndex)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "start lesson")
		return
	}

	h.RespondJSON(w, http.StatusCreated, snap)
}

// Get handles GET /sessions/{id}
// @Summary Get a player session
// @Description Get the current snapshot of a player session
// @Tags player
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} player.Snapshot
// @Failure 403 {object} map[string]string "Session belongs to another learner"
// @Failure 404 {object} map[string]string "Session not found"
// @Router /sessions/{id} [get]
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.transition("get session", h.playerService.Get)(w, r)
}

// transition builds a handler for a session operation without a request body.
//
// @Summary Player transition
// @Description advance, retreat, rewind, video-ended, try-again and continue all return the new snapshot.
// Moves that are not allowed in the current state return 409.
// @Tags player
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param action path string true "advance | retreat | rewind | video-ended | try-again | continue"
// @Success 200 {object} player.Snapshot
// @Failure 403 {object} map[string]string "Session belongs to another learner"
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 409 {object} map[string]string "Transition not allowed"
// @Router /sessions/{id}/{action} [post]
func (h *PlayerHandler) transition(action string, op func(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learnerID, ok := currentLearner(&h.BaseHandler, w, r)
		if !ok {
			return
		}
		sessionID, ok := h.UUIDParam(w, r, "id")
		if !ok {
			return
		}

		snap, err := op(r.Context(), learnerID, sessionID)
		if err != nil {
			respondServiceError(&h.BaseHandler, w, err, action)
			return
		}

		h.RespondJSON(w, http.StatusOK, snap)
	}
}

// Answer handles POST /sessions/{id}/answer
// @Summary Answer a quiz
// @Description Select an answer on the current quiz slide. The snapshot reveals whether it was correct.
// @Tags player
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param request body AnswerRequest true "Answer index"
// @Success 200 {object} player.Snapshot
// @Failure 400 {object} map[string]string "Invalid answer index"
// @Failure 409 {object} map[string]string "Already answered or not a quiz"
// @Router /sessions/{id}/answer [post]
func (h *PlayerHandler) Answer(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := currentLearner(&h.BaseHandler, w, r)
	if !ok {
		return
	}
	sessionID, ok := h.UUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req AnswerRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if req.Index == nil {
		h.RespondError(w, http.StatusBadRequest, "index is required")
		return
	}

	snap, err := h.playerService.Answer(r.Context(), learnerID, sessionID, *req.Index)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "answer quiz")
		return
	}

	h.RespondJSON(w, http.StatusOK, snap)
}
