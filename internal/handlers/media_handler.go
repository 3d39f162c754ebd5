package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/captainspark/backend/internal/storage"
	"github.com/captainspark/backend/libs/handlers"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MediaTokenValidator validates signed media tokens
type MediaTokenValidator interface {
	// Method ValidateMediaToken returns the object path the token grants access to.
	ValidateMediaToken(tokenString string) (string, error)
}

// FileOpener opens stored objects for range-aware serving
type FileOpener interface {
	// Method OpenFile opens an object. storage.ErrObjectNotFound is returned for a missing object.
	OpenFile(objectPath string) (*os.File, error)
}

// MediaHandler serves media stored on the local disk through signed URLs
type MediaHandler struct {
	handlers.BaseHandler
	tokens MediaTokenValidator
	files  FileOpener
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(tokens MediaTokenValidator, files FileOpener, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		tokens:      tokens,
		files:       files,
	}
}

// RegisterRoutes registers the media download route
func (h *MediaHandler) RegisterRoutes(r chi.Router) {
	r.Get("/media/*", h.DownloadFile)
}

// DownloadFile handles GET /media/*
// @Summary Download media
// @Description Download a lesson video, narration or image through a signed URL. Range requests are supported.
// @Tags media
// @Produce application/octet-stream
// @Param path path string true "Object path"
// @Param token query string true "Signed media token"
// @Param Range header string false "Range"
// @Success 200 "File content"
// @Success 206 "Partial file content"
// @Failure 403 {object} map[string]string "Missing, expired or foreign token"
// @Failure 404 {object} map[string]string "File not found"
// @Router /media/{path} [get]
func (h *MediaHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	objectPath, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	objectPath = strings.TrimPrefix(path.Clean("/"+objectPath), "/")

	granted, err := h.tokens.ValidateMediaToken(r.URL.Query().Get("token"))
	if err != nil || granted != objectPath {
		h.RespondError(w, http.StatusForbidden, "invalid or expired media token")
		return
	}

	file, err := h.files.OpenFile(objectPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidPath) {
			h.RespondError(w, http.StatusNotFound, "file not found")
			return
		}
		h.Logger.Error("failed to open file", zap.String("path", objectPath), zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to open file")
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		h.Logger.Error("failed to get file info", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to get file info")
		return
	}

	w.Header().Set("Cache-Control", "private")
	http.ServeContent(w, r, path.Base(objectPath), info.ModTime(), file)
}
