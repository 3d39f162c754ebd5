package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/captainspark/backend/internal/models"
	"github.com/captainspark/backend/internal/repositories"
	"github.com/captainspark/backend/internal/services"
	"github.com/captainspark/backend/libs/handlers"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CMSService is the interface that wraps methods for content authoring.
type CMSService interface {
	// Method Login checks the editor password and returns an editor token.
	//
	// A wrong password returns services.ErrInvalidCredentials.
	Login(ctx context.Context, password string) (string, error)

	GetCourses(ctx context.Context) ([]models.Course, error)
	CreateCourse(ctx context.Context, req *models.CreateCourseRequest) (*models.Course, error)
	UpdateCourse(ctx context.Context, id string, req *models.UpdateCourseRequest) error
	// Method DeleteCourse removes a course together with its lessons and slides.
	DeleteCourse(ctx context.Context, id string) error
	MoveCourse(ctx context.Context, id string, direction repositories.Direction) error

	GetLessons(ctx context.Context, courseID string) ([]models.Lesson, error)
	CreateLesson(ctx context.Context, req *models.CreateLessonRequest) (*models.Lesson, error)
	UpdateLesson(ctx context.Context, id string, req *models.UpdateLessonRequest) error
	DeleteLesson(ctx context.Context, id string) error
	MoveLesson(ctx context.Context, id string, direction repositories.Direction) error

	GetSlides(ctx context.Context, lessonID string) ([]models.Slide, error)
	// Method CreateSlide validates and appends a slide.
	//
	// A quiz needs a question, at least two answers and exactly one correct answer; a video needs a path.
	CreateSlide(ctx context.Context, req *models.CreateSlideRequest) (*models.Slide, error)
	UpdateSlide(ctx context.Context, id string, req *models.UpdateSlideRequest) (*models.Slide, error)
	DeleteSlide(ctx context.Context, id string) error
	MoveSlide(ctx context.Context, id string, direction repositories.Direction) error

	// Method Upload stores a media file in the lesson folder and returns its object path.
	Upload(ctx context.Context, req *services.UploadRequest, r io.Reader) (string, error)
}

// CMSLoginRequest represents the editor login form
type CMSLoginRequest struct {
	Password string `json:"password"`
}

// MoveRequest moves an item one place up or down among its siblings
type MoveRequest struct {
	Direction repositories.Direction `json:"direction" example:"up"`
}

// CMSHandler handles content authoring HTTP requests
type CMSHandler struct {
	handlers.BaseHandler
	cmsService    CMSService
	editorMw      func(http.Handler) http.Handler
	maxUploadSize int64
}

// NewCMSHandler creates a new CMS handler.
// editorMw guards every route except login.
func NewCMSHandler(cmsService CMSService, editorMw func(http.Handler) http.Handler, maxUploadSize int64, logger *zap.Logger) *CMSHandler {
	return &CMSHandler{
		BaseHandler:   handlers.BaseHandler{Logger: logger},
		cmsService:    cmsService,
		editorMw:      editorMw,
		maxUploadSize: maxUploadSize,
	}
}

// RegisterRoutes registers all CMS routes
func (h *CMSHandler) RegisterRoutes(r chi.Router) {
	r.Route("/cms", func(r chi.Router) {
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.editorMw)

			r.Route("/courses", func(r chi.Router) {
				r.Get("/", h.GetCourses)
				r.Post("/", h.CreateCourse)
				r.Get("/{id}/lessons", h.GetLessons)
				r.Patch("/{id}", h.UpdateCourse)
				r.Delete("/{id}", h.DeleteCourse)
				r.Post("/{id}/move", h.move("move course", h.cmsService.MoveCourse))
			})
			r.Route("/lessons", func(r chi.Router) {
				r.Post("/", h.CreateLesson)
				r.Get("/{id}/slides", h.GetSlides)
				r.Patch("/{id}", h.UpdateLesson)
				r.Delete("/{id}", h.DeleteLesson)
				r.Post("/{id}/move", h.move("move lesson", h.cmsService.MoveLesson))
			})
			r.Route("/slides", func(r chi.Router) {
				r.Post("/", h.CreateSlide)
				r.Put("/{id}", h.UpdateSlide)
				r.Delete("/{id}", h.DeleteSlide)
				r.Post("/{id}/move", h.move("move slide", h.cmsService.MoveSlide))
			})
			r.Post("/uploads", h.Upload)
		})
	})
}

// Login handles POST /cms/login
// @Summary Editor login
// @Description Exchange the CMS password for an editor token
// @Tags cms
// @Accept json
// @Produce json
// @Param request body CMSLoginRequest true "Editor password"
// @Success 200 {object} map[string]string "Editor token"
// @Failure 400 {object} map[string]string "Password required"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /cms/login [post]
func (h *CMSHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CMSLoginRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	token, err := h.cmsService.Login(r.Context(), req.Password)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "login")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"accessToken": token})
}

// GetCourses handles GET /cms/courses
// @Summary List courses
// @Tags cms
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Course
// @Router /cms/courses [get]
func (h *CMSHandler) GetCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.cmsService.GetCourses(r.Context())
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "get courses")
		return
	}

	h.RespondJSON(w, http.StatusOK, courses)
}

// CreateCourse handles POST /cms/courses
// @Summary Create a course
// @Description Create a course at the end of the course list
// @Tags cms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateCourseRequest true "Course"
// @Success 201 {object} models.Course
// @Failure 400 {object} map[string]string "Invalid course"
// @Router /cms/courses [post]
func (h *CMSHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCourseRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	course, err := h.cmsService.CreateCourse(r.Context(), &req)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "create course")
		return
	}

	h.RespondJSON(w, http.StatusCreated, course)
}

// UpdateCourse handles PATCH /cms/courses/{id}
// @Summary Update a course
// @Tags cms
// @Accept json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param request body models.UpdateCourseRequest true "Fields to change"
// @Success 204 "Course updated"
// @Failure 400 {object} map[string]string "Invalid update"
// @Failure 404 {object} map[string]string "Course not found"
// @Router /cms/courses/{id} [patch]
func (h *CMSHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.UUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateCourseRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.cmsService.UpdateCourse(r.Context(), id, &req); err != nil {
		respondServiceError(&h.BaseHandler, w, err, "update course")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteCourse handles DELETE /cms/courses/{id}
// @Summary Delete a course
// @Description Delete a course with all its lessons and slides
// @Tags cms
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 204 "Course deleted"
// @Failure 404 {object} map[string]string "Course not found"
// @Router /cms/courses/{id} [delete]
func (h *CMSHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "delete course", h.cmsService.DeleteCourse)
}

// GetLessons handles GET /cms/courses/{id}/lessons
// @Summary List lessons of a course
// @Tags cms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {array} models.Lesson
// @Failure 404 {object} map[string]string "Course not found"
// @Router /cms/courses/{id}/lessons [get]
func (h *CMSHandler) GetLessons(w http.ResponseWriter, r *http.Request) {
	courseID, ok := h.UUIDParam(w, r, "id")
	if !ok {
		return
	}

	lessons, err := h.cmsService.GetLessons(r.Context(), courseID)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "get lessons")
		return
	}

	h.RespondJSON(w, http.StatusOK, lessons)
}

// CreateLesson handles POST /cms/lessons
// @Summary Create a lesson
// @Description Create a lesson at the end of its course
// @Tags cms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateLessonRequest true "Lesson"
// @Success 201 {object} models.Lesson
// @Failure 400 {object} map[string]string "Invalid lesson"
// @Failure 404 {object} map[string]string "Course not found"
// @Router /cms/lessons [post]
func (h *CMSHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLessonRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	lesson, err := h.cmsService.CreateLesson(r.Context(), &req)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "create lesson")
		return
	}

	h.RespondJSON(w, http.StatusCreated, lesson)
}

// UpdateLesson handles PATCH /cms/lessons/{id}
// @Summary Update a lesson
// @Description Change lesson fields or move it to another course
// @Tags cms
// @Accept json
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Param request body models.UpdateLessonRequest true "Fields to change"
// @Success 204 "Lesson updated"
// @Failure 400 {object} map[string]string "Invalid update"
// @Failure 404 {object} map[string]string "Lesson or course not found"
// @Router /cms/lessons/{id} [patch]
func (h *CMSHandler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.UUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateLessonRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.cmsService.UpdateLesson(r.Context(), id, &req); err != nil {
		respondServiceError(&h.BaseHandler, w, err, "update lesson")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteLesson handles DELETE /cms/lessons/{id}
// @Summary Delete a lesson
// @Tags cms
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Success 204 "Lesson deleted"
// @Failure 404 {object} map[string]string "Lesson not found"
// @Router /cms/lessons/{id} [delete]
func (h *CMSHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "delete lesson", h.cmsService.DeleteLesson)
}

// GetSlides handles GET /cms/lessons/{id}/slides
// @Summary List slides of a lesson
// @Description List slides in play order, with raw object paths and correctness flags
// @Tags cms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Success 200 {array} models.Slide
// @Failure 404 {object} map[string]string "Lesson not found"
// @Router /cms/lessons/{id}/slides [get]
func (h *CMSHandler) GetSlides(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := h.UUIDParam(w, r, "id")
	if !ok {
		return
	}

	slides, err := h.cmsService.GetSlides(r.Context(), lessonID)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "get slides")
		return
	}

	h.RespondJSON(w, http.StatusOK, slides)
}

// CreateSlide handles POST /cms/slides
// @Summary Create a slide
// @Description Append a video or quiz slide to a lesson
// @Tags cms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateSlideRequest true "Slide"
// @Success 201 {object} models.Slide
// @Failure 400 {object} map[string]string "Invalid slide"
// @Failure 404 {object} map[string]string "Lesson not found"
// @Router /cms/slides [post]
func (h *CMSHandler) CreateSlide(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSlideRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	slide, err := h.cmsService.CreateSlide(r.Context(), &req)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "create slide")
		return
	}

	h.RespondJSON(w, http.StatusCreated, slide)
}

// UpdateSlide handles PUT /cms/slides/{id}
// @Summary Replace a slide
// @Description Replace the content of a slide, possibly changing its kind
// @Tags cms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Slide ID"
// @Param request body models.UpdateSlideRequest true "Slide content"
// @Success 200 {object} models.Slide
// @Failure 400 {object} map[string]string "Invalid slide"
// @Failure 404 {object} map[string]string "Slide not found"
// @Router /cms/slides/{id} [put]
func (h *CMSHandler) UpdateSlide(w http.ResponseWriter, r *http.Request) {
	id, ok := h.UUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateSlideRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	slide, err := h.cmsService.UpdateSlide(r.Context(), id, &req)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "update slide")
		return
	}

	h.RespondJSON(w, http.StatusOK, slide)
}

// DeleteSlide handles DELETE /cms/slides/{id}
// @Summary Delete a slide
// @Tags cms
// @Security BearerAuth
// @Param id path string true "Slide ID"
// @Success 204 "Slide deleted"
// @Failure 404 {object} map[string]string "Slide not found"
// @Router /cms/slides/{id} [delete]
func (h *CMSHandler) DeleteSlide(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "delete slide", h.cmsService.DeleteSlide)
}

// Upload handles POST /cms/uploads
// @Summary Upload lesson media
// @Description Store a video, audio or image file in the lesson folder. Returns the object path to put on a slide.
// @Tags cms
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Media file"
// @Param courseTitle formData string true "Course title"
// @Param lessonTitle formData string true "Lesson title"
// @Param lessonId formData string true "Lesson ID"
// @Success 201 {object} map[string]string "Object path"
// @Failure 400 {object} map[string]string "Invalid upload"
// @Failure 413 {object} map[string]string "File too large"
// @Router /cms/uploads [post]
func (h *CMSHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUploadSize {
		h.RespondError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	// Keep at most 10MB in memory, the rest spills to temp files
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.RespondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		h.Logger.Error("failed to parse multipart form", zap.Error(err))
		h.RespondError(w, http.StatusBadRequest, "failed to parse request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	req := &services.UploadRequest{
		CourseTitle: r.FormValue("courseTitle"),
		LessonTitle: r.FormValue("lessonTitle"),
		LessonID:    r.FormValue("lessonId"),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}

	objectPath, err := h.cmsService.Upload(r.Context(), req, file)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "upload file")
		return
	}

	h.RespondJSON(w, http.StatusCreated, map[string]string{"path": objectPath})
}

// move builds a handler for POST /cms/{kind}/{id}/move.
// Siblings are renumbered 1..N after the swap.
//
// @Summary Reorder a course, lesson or slide
// @Tags cms
// @Accept json
// @Security BearerAuth
// @Param kind path string true "courses | lessons | slides"
// @Param id path string true "Item ID"
// @Param request body MoveRequest true "Direction: up or down"
// @Success 204 "Item moved"
// @Failure 400 {object} map[string]string "Invalid direction"
// @Failure 404 {object} map[string]string "Item not found"
// @Failure 409 {object} map[string]string "Item is already at the edge"
// @Router /cms/{kind}/{id}/move [post]
func (h *CMSHandler) move(action string, op func(ctx context.Context, id string, direction repositories.Direction) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.UUIDParam(w, r, "id")
		if !ok {
			return
		}

		var req MoveRequest
		if !h.DecodeJSON(w, r, &req) {
			return
		}

		if err := op(r.Context(), id, req.Direction); err != nil {
			respondServiceError(&h.BaseHandler, w, err, action)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *CMSHandler) remove(w http.ResponseWriter, r *http.Request, action string, op func(ctx context.Context, id string) error) {
	id, ok := h.UUIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := op(r.Context(), id); err != nil {
		respondServiceError(&h.BaseHandler, w, err, action)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
