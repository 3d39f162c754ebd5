package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/captainspark/backend/libs/auth/middleware"
	"github.com/captainspark/backend/libs/handlers"
)

// currentLearner returns the authenticated caller, answering 401 when there is none
func currentLearner(h *handlers.BaseHandler, w http.ResponseWriter, r *http.Request) (string, bool) {
	learnerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return learnerID, true
}

// decodeOptionalJSON decodes the request body into dst. An empty body is accepted.
func decodeOptionalJSON(h *handlers.BaseHandler, w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
