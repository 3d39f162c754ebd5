package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/captainspark/backend/internal/models"
	"github.com/captainspark/backend/internal/repositories"
	"github.com/captainspark/backend/internal/storage"
	"github.com/captainspark/backend/libs/auth/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// editorSubject is the token subject of CMS sessions
const editorSubject = "cms-editor"

// CourseRepository is the interface that wraps methods for courses table data access
type CourseRepository interface {
	// Method GetAll retrieves every course sorted by order.
	GetAll(ctx context.Context) ([]models.Course, error)
	// Method GetByID retrieves a course by ID.
	//
	// If course with such ID does not exist, repositories.ErrCourseNotFound will be returned.
	GetByID(ctx context.Context, id string) (*models.Course, error)
	// Method Create inserts a course at the end of the list and sets its order.
	Create(ctx context.Context, course *models.Course) error
	// Method Update applies a partial update.
	Update(ctx context.Context, id string, req *models.UpdateCourseRequest) error
	// Method Delete removes a course with its lessons and slides.
	Delete(ctx context.Context, id string) error
	// Method Move swaps a course with its neighbour and renumbers the list.
	Move(ctx context.Context, id string, direction repositories.Direction) error
}

// LessonRepository is the interface that wraps methods for lessons table data access
type LessonRepository interface {
	GetByID(ctx context.Context, id string) (*models.Lesson, error)
	GetByCourseID(ctx context.Context, courseID string) ([]models.Lesson, error)
	GetFirst(ctx context.Context) (*models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, id string, req *models.UpdateLessonRequest) error
	Delete(ctx context.Context, id string) error
	Move(ctx context.Context, id string, direction repositories.Direction) error
}

// SlideRepository is the interface that wraps methods for slides table data access
type SlideRepository interface {
	GetByID(ctx context.Context, id string) (*models.Slide, error)
	GetByLessonID(ctx context.Context, lessonID string) ([]models.Slide, error)
	Create(ctx context.Context, slide *models.Slide) error
	Update(ctx context.Context, slide *models.Slide) error
	Delete(ctx context.Context, id string) error
	Move(ctx context.Context, id string, direction repositories.Direction) error
}

// ObjectWriter stores uploaded media
type ObjectWriter interface {
	Put(ctx context.Context, objectPath string, r io.Reader, contentType string) error
}

// UploadRequest describes a media upload
type UploadRequest struct {
	CourseTitle string
	LessonTitle string
	LessonID    string
	Filename    string
	ContentType string
}

// cmsService implements content authoring
type cmsService struct {
	courseRepo   CourseRepository
	lessonRepo   LessonRepository
	slideRepo    SlideRepository
	objects      ObjectWriter
	tokens       TokenIssuer
	passwordHash []byte
	logger       *zap.Logger
}

// NewCMSService creates a new CMS service. passwordHash is the bcrypt hash of the editor password.
func NewCMSService(
	courseRepo CourseRepository,
	lessonRepo LessonRepository,
	slideRepo SlideRepository,
	objects ObjectWriter,
	tokens TokenIssuer,
	passwordHash []byte,
	logger *zap.Logger,
) *cmsService {
	return &cmsService{
		courseRepo:   courseRepo,
		lessonRepo:   lessonRepo,
		slideRepo:    slideRepo,
		objects:      objects,
		tokens:       tokens,
		passwordHash: passwordHash,
		logger:       logger,
	}
}

// HashPassword returns the bcrypt hash used when only a plaintext CMS password is configured
func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// Login checks the editor password and issues an editor token
func (s *cmsService) Login(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", invalidf("password cannot be empty")
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateAccessToken(editorSubject, service.RoleEditor)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// GetCourses returns every course
func (s *cmsService) GetCourses(ctx context.Context) ([]models.Course, error) {
	return s.courseRepo.GetAll(ctx)
}

// CreateCourse creates a course at the end of the list
func (s *cmsService) CreateCourse(ctx context.Context, req *models.CreateCourseRequest) (*models.Course, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalidf("title cannot be empty")
	}

	course := &models.Course{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// UpdateCourse applies a partial course update
func (s *cmsService) UpdateCourse(ctx context.Context, id string, req *models.UpdateCourseRequest) error {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return invalidf("title cannot be empty")
	}
	if req.Title == nil && req.Description == nil {
		return invalidf("no fields to update")
	}
	return s.courseRepo.Update(ctx, id, req)
}

// DeleteCourse removes a course
func (s *cmsService) DeleteCourse(ctx context.Context, id string) error {
	return s.courseRepo.Delete(ctx, id)
}

// MoveCourse moves a course up or down
func (s *cmsService) MoveCourse(ctx context.Context, id string, direction repositories.Direction) error {
	if err := validateDirection(direction); err != nil {
		return err
	}
	return s.courseRepo.Move(ctx, id, direction)
}

// GetLessons returns the lessons of a course
func (s *cmsService) GetLessons(ctx context.Context, courseID string) ([]models.Lesson, error) {
	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.lessonRepo.GetByCourseID(ctx, courseID)
}

// CreateLesson creates a lesson at the end of its course
func (s *cmsService) CreateLesson(ctx context.Context, req *models.CreateLessonRequest) (*models.Lesson, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalidf("title cannot be empty")
	}
	if _, err := s.courseRepo.GetByID(ctx, req.CourseID); err != nil {
		return nil, err
	}

	lesson := &models.Lesson{
		ID:          uuid.NewString(),
		CourseID:    req.CourseID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Tag:         strings.TrimSpace(req.Tag),
	}
	if err := s.lessonRepo.Create(ctx, lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

// UpdateLesson applies a partial lesson update
func (s *cmsService) UpdateLesson(ctx context.Context, id string, req *models.UpdateLessonRequest) error {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return invalidf("title cannot be empty")
	}
	if req.CourseID != nil {
		if _, err := s.courseRepo.GetByID(ctx, *req.CourseID); err != nil {
			return err
		}
	}
	if req.CourseID == nil && req.Title == nil && req.Description == nil && req.Tag == nil {
		return invalidf("no fields to update")
	}
	return s.lessonRepo.Update(ctx, id, req)
}

// DeleteLesson removes a lesson with its slides
func (s *cmsService) DeleteLesson(ctx context.Context, id string) error {
	return s.lessonRepo.Delete(ctx, id)
}

// MoveLesson moves a lesson up or down within its course
func (s *cmsService) MoveLesson(ctx context.Context, id string, direction repositories.Direction) error {
	if err := validateDirection(direction); err != nil {
		return err
	}
	return s.lessonRepo.Move(ctx, id, direction)
}

// GetSlides returns the slides of a lesson
func (s *cmsService) GetSlides(ctx context.Context, lessonID string) ([]models.Slide, error) {
	if _, err := s.lessonRepo.GetByID(ctx, lessonID); err != nil {
		return nil, err
	}
	return s.slideRepo.GetByLessonID(ctx, lessonID)
}

// CreateSlide validates and appends a slide to its lesson
func (s *cmsService) CreateSlide(ctx context.Context, req *models.CreateSlideRequest) (*models.Slide, error) {
	slide := &models.Slide{
		ID:       uuid.NewString(),
		LessonID: req.LessonID,
		Kind:     req.Kind,
		Video:    req.Video,
		Quiz:     req.Quiz,
	}
	if err := slide.Validate(); err != nil {
		return nil, invalidf("%s", err.Error())
	}
	if _, err := s.lessonRepo.GetByID(ctx, req.LessonID); err != nil {
		return nil, err
	}

	if err := s.slideRepo.Create(ctx, slide); err != nil {
		return nil, err
	}
	return slide, nil
}

// UpdateSlide replaces the content of a slide, possibly changing its kind
func (s *cmsService) UpdateSlide(ctx context.Context, id string, req *models.UpdateSlideRequest) (*models.Slide, error) {
	slide, err := s.slideRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	slide.Kind = req.Kind
	slide.Video = req.Video
	slide.Quiz = req.Quiz
	if err := slide.Validate(); err != nil {
		return nil, invalidf("%s", err.Error())
	}

	if err := s.slideRepo.Update(ctx, slide); err != nil {
		return nil, err
	}
	return slide, nil
}

// DeleteSlide removes a slide
func (s *cmsService) DeleteSlide(ctx context.Context, id string) error {
	return s.slideRepo.Delete(ctx, id)
}

// MoveSlide moves a slide up or down within its lesson
func (s *cmsService) MoveSlide(ctx context.Context, id string, direction repositories.Direction) error {
	if err := validateDirection(direction); err != nil {
		return err
	}
	return s.slideRepo.Move(ctx, id, direction)
}

// Upload stores a media file under the lesson folder and returns its object path
func (s *cmsService) Upload(ctx context.Context, req *UploadRequest, r io.Reader) (string, error) {
	if !storage.IsAllowedContentType(req.ContentType) {
		return "", invalidf("unsupported content type: %s", req.ContentType)
	}
	if strings.TrimSpace(req.CourseTitle) == "" || strings.TrimSpace(req.LessonTitle) == "" || req.LessonID == "" {
		return "", invalidf("courseTitle, lessonTitle and lessonId are required")
	}

	ext := filepath.Ext(req.Filename)
	if ext == "" {
		return "", invalidf("file name has no extension")
	}

	objectPath := storage.UploadPath(req.CourseTitle, req.LessonTitle, req.LessonID, ext)
	if err := s.objects.Put(ctx, objectPath, r, req.ContentType); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}

	s.logger.Info("Media uploaded",
		zap.String("lesson_id", req.LessonID),
		zap.String("path", objectPath),
		zap.String("content_type", req.ContentType),
	)
	return objectPath, nil
}

func validateDirection(direction repositories.Direction) error {
	if direction != repositories.DirectionUp && direction != repositories.DirectionDown {
		return invalidf("direction must be %q or %q", repositories.DirectionUp, repositories.DirectionDown)
	}
	return nil
}
