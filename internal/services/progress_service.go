package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/captainspark/backend/internal/models"
	"github.com/captainspark/backend/internal/progress"
	"github.com/captainspark/backend/internal/repositories"
	"github.com/captainspark/backend/internal/tasks"
	"go.uber.org/zap"
)

// ProgressRepository is the interface that wraps methods for lesson_progress table data access
type ProgressRepository interface {
	// Method Upsert replaces the learner's entry for a lesson.
	//
	// "progress" parameter carries the learner, the lesson and the new position.
	//
	// If some error occurs during the write, the error will be returned.
	Upsert(ctx context.Context, progress *models.LessonProgress) error
	// Method Get retrieves the learner's entry for a lesson.
	//
	// If there is no entry, repositories.ErrProgressNotFound will be returned together with "nil" value.
	Get(ctx context.Context, learnerID, lessonID string) (*models.LessonProgress, error)
	// Method GetByLearner retrieves every entry of the learner keyed by lesson ID.
	//
	// If some error occurs during data retrieve, the error will be returned together with "nil" value.
	GetByLearner(ctx context.Context, learnerID string) (map[string]models.ProgressEntry, error)
}

// XPRepository is the interface that wraps the XP award ledger
type XPRepository interface {
	// Method Award records a completion award and adds points to the learner's total.
	//
	// A repeated award for the same learner and lesson is a no-op and reports awarded=false.
	Award(ctx context.Context, learnerID, lessonID string, points int) (previous, current int, awarded bool, err error)
}

// StreakRepository is the interface that wraps learner streak access
type StreakRepository interface {
	// Method GetByID retrieves a learner by ID.
	//
	// If learner with such ID does not exist, repositories.ErrLearnerNotFound will be returned.
	GetByID(ctx context.Context, id string) (*models.Learner, error)
	// Method UpdateStreak writes the streak counter and its calendar date.
	UpdateStreak(ctx context.Context, id string, count int, date time.Time) error
}

// FeedbackRepository is the interface that wraps lesson_feedback table data access
type FeedbackRepository interface {
	// Method Upsert stores the learner's rating for a lesson.
	Upsert(ctx context.Context, learnerID, lessonID string, enjoyment models.Enjoyment) error
}

// ProgressSettings configures progress persistence
type ProgressSettings struct {
	XPReward    int
	XPAnimation time.Duration
	MaxRetry    int
}

// progressService records positions, XP, streaks and feedback
type progressService struct {
	progressRepo ProgressRepository
	xpRepo       XPRepository
	streakRepo   StreakRepository
	feedbackRepo FeedbackRepository
	queue        tasks.Enqueuer
	settings     ProgressSettings
	logger       *zap.Logger
	now          func() time.Time
}

// NewProgressService creates a new progress service. A nil queue makes position writes synchronous.
func NewProgressService(
	progressRepo ProgressRepository,
	xpRepo XPRepository,
	streakRepo StreakRepository,
	feedbackRepo FeedbackRepository,
	queue tasks.Enqueuer,
	settings ProgressSettings,
	logger *zap.Logger,
) *progressService {
	return &progressService{
		progressRepo: progressRepo,
		xpRepo:       xpRepo,
		streakRepo:   streakRepo,
		feedbackRepo: feedbackRepo,
		queue:        queue,
		settings:     settings,
		logger:       logger,
		now:          time.Now,
	}
}

// RecordPosition queues a position write, falling back to a direct write when
// no queue is configured or the enqueue fails. The write is stamped with the
// time it was issued so a late retry cannot overwrite a newer position.
func (s *progressService) RecordPosition(ctx context.Context, learnerID, lessonID string, index int, completed bool) error {
	seq := s.now().UnixNano()

	if s.queue != nil {
		task, err := tasks.NewProgressSaveTask(tasks.ProgressSavePayload{
			LearnerID: learnerID,
			LessonID:  lessonID,
			Index:     index,
			Completed: completed,
			Seq:       seq,
		}, s.settings.MaxRetry)
		if err == nil {
			_, err = s.queue.EnqueueContext(ctx, task)
		}
		if err == nil {
			return nil
		}
		s.logger.Warn("Failed to enqueue progress write, writing inline",
			zap.String("learner_id", learnerID),
			zap.String("lesson_id", lessonID),
			zap.Error(err),
		)
	}

	return s.progressRepo.Upsert(ctx, &models.LessonProgress{
		LearnerID:      learnerID,
		LessonID:       lessonID,
		LastSlideIndex: index,
		Completed:      completed,
		Seq:            seq,
	})
}

// Reconcile returns the slide index to resume from, within [0, slideCount-1].
// An unfinished server entry is resumed; a client position ahead of it wins
// and is written back. A completed lesson starts over.
func (s *progressService) Reconcile(ctx context.Context, learnerID, lessonID string, localIndex, slideCount int) (int, error) {
	if slideCount <= 0 {
		return 0, invalidf("lesson has no slides")
	}
	last := slideCount - 1
	localIndex = min(localIndex, last)

	stored, err := s.progressRepo.Get(ctx, learnerID, lessonID)
	if err != nil && !errors.Is(err, repositories.ErrProgressNotFound) {
		return max(localIndex, 0), fmt.Errorf("failed to get lesson progress: %w", err)
	}

	if stored != nil && stored.Completed {
		return 0, nil
	}

	server := 0
	if stored != nil {
		server = min(max(stored.LastSlideIndex, 0), last)
	}
	if localIndex <= server {
		return server, nil
	}

	if err := s.progressRepo.Upsert(ctx, &models.LessonProgress{
		LearnerID:      learnerID,
		LessonID:       lessonID,
		LastSlideIndex: localIndex,
		Seq:            s.now().UnixNano(),
	}); err != nil {
		s.logger.Warn("Failed to persist reconciled position",
			zap.String("learner_id", learnerID),
			zap.String("lesson_id", lessonID),
			zap.Error(err),
		)
	}
	return localIndex, nil
}

// AwardXP grants the completion reward once per learner and lesson
func (s *progressService) AwardXP(ctx context.Context, learnerID, lessonID string) (*models.XPAward, error) {
	previous, current, awarded, err := s.xpRepo.Award(ctx, learnerID, lessonID, s.settings.XPReward)
	if err != nil {
		return nil, err
	}

	if awarded {
		s.logger.Info("XP awarded",
			zap.String("learner_id", learnerID),
			zap.String("lesson_id", lessonID),
			zap.Int("xp", current),
		)
	}

	return &models.XPAward{
		PreviousXP:  previous,
		NewXP:       current,
		Awarded:     awarded,
		AnimationMS: int(s.settings.XPAnimation / time.Millisecond),
	}, nil
}

// CheckStreak applies a daily checkpoint at now, in now's location
func (s *progressService) CheckStreak(ctx context.Context, learnerID string, now time.Time) (*models.StreakResult, error) {
	learner, err := s.streakRepo.GetByID(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	next, changed := progress.ApplyStreak(progress.Streak{
		Count:    learner.StreakCount,
		LastDate: learner.LastStreakDate,
	}, now)

	if err := s.streakRepo.UpdateStreak(ctx, learnerID, next.Count, *next.LastDate); err != nil {
		return nil, err
	}

	return &models.StreakResult{
		StreakCount:    next.Count,
		LastStreakDate: next.LastDate.Format(time.DateOnly),
		Changed:        changed,
		Week:           progress.WeekDays(next.Count, now),
	}, nil
}

// SaveFeedback stores the learner's rating of a lesson
func (s *progressService) SaveFeedback(ctx context.Context, learnerID, lessonID string, enjoyment models.Enjoyment) error {
	if err := enjoyment.Validate(); err != nil {
		return invalidf("%s", err.Error())
	}
	return s.feedbackRepo.Upsert(ctx, learnerID, lessonID, enjoyment)
}

// GetProgress returns the learner's progress map
func (s *progressService) GetProgress(ctx context.Context, learnerID string) (map[string]models.ProgressEntry, error) {
	return s.progressRepo.GetByLearner(ctx, learnerID)
}
