package handlers

import (
	"errors"
	"net/http"

	"github.com/captainspark/backend/internal/player"
	"github.com/captainspark/backend/internal/quiz"
	"github.com/captainspark/backend/internal/repositories"
	"github.com/captainspark/backend/internal/services"
	"github.com/captainspark/backend/internal/storage"
	"github.com/captainspark/backend/libs/handlers"
	"go.uber.org/zap"
)

// conflicts are errors caused by the current state of a resource
var conflicts = []error{
	repositories.ErrEmailTaken,
	repositories.ErrLessonDuplicated,
	repositories.ErrNothingToMove,
	player.ErrNextNotReady,
	player.ErrInvalidTransition,
	player.ErrQuizNotPassed,
	player.ErrNotVideoSlide,
	player.ErrNotQuizSlide,
	player.ErrNoSlides,
	quiz.ErrAlreadyAnswered,
	quiz.ErrNotWrong,
	quiz.ErrNotCorrect,
}

// statusFor maps a service error to an HTTP status. known is false for
// unexpected errors whose message should not reach the client.
func statusFor(err error) (status int, known bool) {
	switch {
	case services.IsValidation(err), errors.Is(err, quiz.ErrInvalidAnswer):
		return http.StatusBadRequest, true
	case errors.Is(err, services.ErrInvalidMagicLink), errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, true
	case errors.Is(err, services.ErrSessionForbidden):
		return http.StatusForbidden, true
	case services.IsNotFound(err),
		errors.Is(err, services.ErrEmailNotFound),
		errors.Is(err, player.ErrSessionNotFound),
		errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, services.ErrMagicLinkDelivery):
		return http.StatusBadGateway, true
	}

	for _, target := range conflicts {
		if errors.Is(err, target) {
			return http.StatusConflict, true
		}
	}
	return http.StatusInternalServerError, false
}

// respondServiceError writes err with its mapped status. Unexpected errors
// are logged and answered with "failed to {action}".
func respondServiceError(h *handlers.BaseHandler, w http.ResponseWriter, err error, action string) {
	status, known := statusFor(err)
	if !known {
		h.Logger.Error("failed to "+action, zap.Error(err))
		h.RespondError(w, status, "failed to "+action)
		return
	}
	if status >= http.StatusInternalServerError {
		h.Logger.Error("failed to "+action, zap.Error(err))
	}
	h.RespondError(w, status, err.Error())
}
