package main

import (
	"context"
	"fmt"
	"time"

	"github.com/captainspark/backend/internal/mail"
	"github.com/captainspark/backend/internal/models"
	"github.com/captainspark/backend/internal/tasks"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ProgressRepository defines the interface for lesson progress writes
type ProgressRepository interface {
	// Upsert replaces the learner's entry for a lesson
	//
	// "progress" parameter is the entry to store.
	//
	// If some error occurs during data update, the error will be returned.
	Upsert(ctx context.Context, progress *models.LessonProgress) error
}

// Mailer sends rendered email
type Mailer interface {
	Send(to, subject, body string) error
}

// Worker handles task processing
type Worker struct {
	logger       *zap.Logger
	progressRepo ProgressRepository
	mailer       Mailer
	now          func() time.Time
}

// NewWorker creates a new worker instance
func NewWorker(logger *zap.Logger, progressRepo ProgressRepository, mailer Mailer) *Worker {
	return &Worker{
		logger:       logger,
		progressRepo: progressRepo,
		mailer:       mailer,
		now:          time.Now,
	}
}

// HandleProgressSave writes a learner's slide position
func (w *Worker) HandleProgressSave(ctx context.Context, t *asynq.Task) error {
	p, err := tasks.ParseProgressSave(t)
	if err != nil {
		// A malformed payload never succeeds on retry
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	err = w.progressRepo.Upsert(ctx, &models.LessonProgress{
		LearnerID:      p.LearnerID,
		LessonID:       p.LessonID,
		LastSlideIndex: p.Index,
		Completed:      p.Completed,
		Seq:            p.Seq,
	})
	if err != nil {
		w.logger.Warn("Failed to save progress",
			zap.String("learner_id", p.LearnerID),
			zap.String("lesson_id", p.LessonID),
			zap.Int("index", p.Index),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// HandleMagicLinkEmail renders and delivers a sign-in link
func (w *Worker) HandleMagicLinkEmail(ctx context.Context, t *asynq.Task) error {
	p, err := tasks.ParseMagicLinkEmail(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	remaining := p.ExpiresAt.Sub(w.now())
	if remaining <= 0 {
		w.logger.Info("Skipping expired magic link email", zap.String("email", p.Email))
		return nil
	}

	subject, body, err := mail.RenderMagicLink(mail.MagicLinkData{
		ParentName: p.ParentName,
		KidName:    p.KidName,
		Link:       p.Link,
		ExpiresIn:  formatExpiry(remaining),
	})
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := w.mailer.Send(p.Email, subject, body); err != nil {
		w.logger.Error("Failed to send magic link email", zap.String("email", p.Email), zap.Error(err))
		return err
	}

	w.logger.Info("Magic link email sent", zap.String("email", p.Email))
	return nil
}

// formatExpiry renders a remaining lifetime in whole minutes
func formatExpiry(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
