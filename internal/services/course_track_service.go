package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/captainspark/backend/internal/models"
	"github.com/captainspark/backend/internal/repositories"
	"go.uber.org/zap"
)

// TrackProgressRepository is the interface that wraps lesson completion access
type TrackProgressRepository interface {
	// Method MarkCompleted flags a lesson completed, keeping the stored slide index.
	//
	// "seq" orders the write against queued position writes.
	MarkCompleted(ctx context.Context, learnerID, lessonID string, seq int64) error
	// Method LatestCompletedLessonID returns the most recently completed lesson of the learner.
	//
	// If nothing is completed, repositories.ErrProgressNotFound will be returned.
	LatestCompletedLessonID(ctx context.Context, learnerID string) (string, error)
	// Method GetByLearner retrieves every entry of the learner keyed by lesson ID.
	GetByLearner(ctx context.Context, learnerID string) (map[string]models.ProgressEntry, error)
}

// TrackLessonRepository is the interface that wraps lesson lookups for the course track
type TrackLessonRepository interface {
	GetByID(ctx context.Context, id string) (*models.Lesson, error)
	GetByCourseID(ctx context.Context, courseID string) ([]models.Lesson, error)
	GetFirst(ctx context.Context) (*models.Lesson, error)
}

// CourseReader retrieves a course by ID
type CourseReader interface {
	GetByID(ctx context.Context, id string) (*models.Course, error)
}

// LearnerReader retrieves a learner by ID
type LearnerReader interface {
	GetByID(ctx context.Context, id string) (*models.Learner, error)
}

// courseTrackService builds the course overview shown between lessons
type courseTrackService struct {
	progressRepo TrackProgressRepository
	lessonRepo   TrackLessonRepository
	courseRepo   CourseReader
	learnerRepo  LearnerReader
	logger       *zap.Logger
	now          func() time.Time
}

// NewCourseTrackService creates a new course track service
func NewCourseTrackService(
	progressRepo TrackProgressRepository,
	lessonRepo TrackLessonRepository,
	courseRepo CourseReader,
	learnerRepo LearnerReader,
	logger *zap.Logger,
) *courseTrackService {
	return &courseTrackService{
		progressRepo: progressRepo,
		lessonRepo:   lessonRepo,
		courseRepo:   courseRepo,
		learnerRepo:  learnerRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// GetTrack returns the learner's course track. A non-empty lessonID is the
// lesson just finished: it is marked completed and its course is shown.
func (s *courseTrackService) GetTrack(ctx context.Context, learnerID, lessonID string) (*models.CourseTrack, error) {
	learner, err := s.learnerRepo.GetByID(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	var anchor *models.Lesson
	if lessonID != "" {
		if anchor, err = s.lessonRepo.GetByID(ctx, lessonID); err != nil {
			return nil, err
		}
		if err := s.progressRepo.MarkCompleted(ctx, learnerID, lessonID, s.now().UnixNano()); err != nil {
			return nil, err
		}
	} else if anchor, err = s.latestLesson(ctx, learnerID); err != nil {
		return nil, err
	}

	course, err := s.courseRepo.GetByID(ctx, anchor.CourseID)
	if err != nil {
		return nil, err
	}
	lessons, err := s.lessonRepo.GetByCourseID(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	progress, err := s.progressRepo.GetByLearner(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	return &models.CourseTrack{
		Heading: "Welcome Back " + learner.KidName + "!",
		Course:  *course,
		Lessons: trackStatuses(lessons, progress),
	}, nil
}

// latestLesson returns the learner's latest completed lesson, or the very first lesson
func (s *courseTrackService) latestLesson(ctx context.Context, learnerID string) (*models.Lesson, error) {
	latest, err := s.progressRepo.LatestCompletedLessonID(ctx, learnerID)
	switch {
	case err == nil:
		lesson, err := s.lessonRepo.GetByID(ctx, latest)
		if err == nil {
			return lesson, nil
		}
		if !errors.Is(err, repositories.ErrLessonNotFound) {
			return nil, err
		}
		s.logger.Warn("Latest completed lesson no longer exists", zap.String("lesson_id", latest))
	case !errors.Is(err, repositories.ErrProgressNotFound):
		return nil, fmt.Errorf("failed to get latest lesson: %w", err)
	}

	return s.lessonRepo.GetFirst(ctx)
}

// trackStatuses marks completed lessons done, the first unfinished one current
// and the rest upcoming
func trackStatuses(lessons []models.Lesson, progress map[string]models.ProgressEntry) []models.TrackLesson {
	track := make([]models.TrackLesson, 0, len(lessons))
	currentSet := false
	for _, l := range lessons {
		status := models.LessonStatusUpcoming
		switch {
		case progress[l.ID].Completed:
			status = models.LessonStatusDone
		case !currentSet:
			status = models.LessonStatusCurrent
			currentSet = true
		}
		track = append(track, models.TrackLesson{
			ID:     l.ID,
			Title:  l.Title,
			Tag:    l.Tag,
			Order:  l.Order,
			Status: status,
		})
	}
	return track
}
