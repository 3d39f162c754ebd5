// Package resolver turns a stored lesson into a playable one by exchanging
// every media object path for a time-limited URL.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/captainspark/backend/internal/models"
	"github.com/captainspark/backend/internal/repositories"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Load-fatal errors. A lesson that fails with either is never retried.
var (
	ErrLessonNotFound   = repositories.ErrLessonNotFound
	ErrLessonDuplicated = repositories.ErrLessonDuplicated
)

const defaultWorkers = 8

// LessonRepository is the lesson lookup the resolver needs
type LessonRepository interface {
	GetByID(ctx context.Context, id string) (*models.Lesson, error)
}

// SlideRepository is the slide lookup the resolver needs
type SlideRepository interface {
	GetByLessonID(ctx context.Context, lessonID string) ([]models.Slide, error)
}

// URLSigner produces time-limited URLs for stored objects
type URLSigner interface {
	SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error)
}

// Resolver loads lessons and signs their media references
type Resolver struct {
	lessons LessonRepository
	slides  SlideRepository
	signer  URLSigner
	ttl     time.Duration
	workers int
	logger  *zap.Logger
	now     func() time.Time
}

// NewResolver creates a new resolver. workers caps concurrent slide resolutions.
func NewResolver(lessons LessonRepository, slides SlideRepository, signer URLSigner, ttl time.Duration, workers int, logger *zap.Logger) *Resolver {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Resolver{
		lessons: lessons,
		slides:  slides,
		signer:  signer,
		ttl:     ttl,
		workers: workers,
		logger:  logger,
		now:     time.Now,
	}
}

// ResolveLesson fetches a lesson with its ordered slides and signs every media
// reference. Signing is best-effort per field: a failure leaves that URL empty.
func (r *Resolver) ResolveLesson(ctx context.Context, lessonID string) (*models.ResolvedLesson, error) {
	lesson, err := r.lessons.GetByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, ErrLessonNotFound) || errors.Is(err, ErrLessonDuplicated) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load lesson: %w", err)
	}

	slides, err := r.slides.GetByLessonID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load slides: %w", err)
	}

	resolved := make([]models.ResolvedSlide, len(slides))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i := range slides {
		g.Go(func() error {
			resolved[i] = r.resolveSlide(ctx, &slides[i])
			return nil
		})
	}
	// Workers never fail, so Wait returns once every slide has settled
	_ = g.Wait()

	return &models.ResolvedLesson{
		Lesson:     *lesson,
		Slides:     resolved,
		ResolvedAt: r.now(),
	}, nil
}

func (r *Resolver) resolveSlide(ctx context.Context, slide *models.Slide) models.ResolvedSlide {
	out := models.ResolvedSlide{
		ID:    slide.ID,
		Order: slide.Order,
		Kind:  slide.Kind,
	}

	switch slide.Kind {
	case models.SlideKindVideo:
		out.Video = &models.ResolvedVideo{}
		if slide.Video != nil {
			out.Video.VideoURL = r.sign(ctx, slide.ID, slide.Video.VideoPath)
		}
	case models.SlideKindQuiz:
		out.Quiz = &models.ResolvedQuiz{}
		if q := slide.Quiz; q != nil {
			out.Quiz.Question = q.Question
			out.Quiz.Heading = q.Heading
			out.Quiz.CorrectQuote = q.CorrectQuote
			out.Quiz.WrongQuote = q.WrongQuote
			out.Quiz.AudioURL = r.sign(ctx, slide.ID, q.AudioPath)
			out.Quiz.CorrectAudioURL = r.sign(ctx, slide.ID, q.CorrectAudioPath)
			out.Quiz.WrongAudioURL = r.sign(ctx, slide.ID, q.WrongAudioPath)
			out.Quiz.Answers = make([]models.ResolvedAnswer, len(q.Answers))
			for i, a := range q.Answers {
				out.Quiz.Answers[i] = models.ResolvedAnswer{
					Text:      a.Text,
					ImageURL:  r.sign(ctx, slide.ID, a.ImagePath),
					IsCorrect: a.IsCorrect,
				}
			}
		}
	default:
		r.logger.Warn("Unknown slide kind",
			zap.String("slide_id", slide.ID),
			zap.String("kind", string(slide.Kind)),
		)
	}

	return out
}

// sign returns "" for empty paths without calling the signer
func (r *Resolver) sign(ctx context.Context, slideID, objectPath string) string {
	if objectPath == "" {
		return ""
	}

	url, err := r.signer.SignedURL(ctx, objectPath, r.ttl)
	if err != nil {
		r.logger.Warn("Failed to sign media URL",
			zap.String("slide_id", slideID),
			zap.String("path", objectPath),
			zap.Error(err),
		)
		return ""
	}
	return url
}
