package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/captainspark/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockLessonRepository struct {
	lesson *models.Lesson
	err    error
}

func (m *mockLessonRepository) GetByID(ctx context.Context, id string) (*models.Lesson, error) {
	return m.lesson, m.err
}

type mockSlideRepository struct {
	slides []models.Slide
	err    error
}

func (m *mockSlideRepository) GetByLessonID(ctx context.Context, lessonID string) ([]models.Slide, error) {
	return m.slides, m.err
}

type mockSigner struct {
	mu       sync.Mutex
	calls    []string
	failing  map[string]bool
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func (m *mockSigner) SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		seen := m.maxSeen.Load()
		if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	m.calls = append(m.calls, objectPath)
	m.mu.Unlock()

	if m.failing[objectPath] {
		return "", errors.New("signing failed")
	}
	return "https://cdn.test/" + objectPath + "?sig=1", nil
}

func quizSlide(id string, order int) models.Slide {
	return models.Slide{
		ID: id, LessonID: "l1", Order: order, Kind: models.SlideKindQuiz,
		Quiz: &models.QuizSlide{
			Question:         "Which one is a coin?",
			AudioPath:        "q.mp3",
			CorrectAudioPath: "yay.mp3",
			WrongQuote:       "Try again!",
			Answers: []models.QuizAnswer{
				{Text: "Coin", ImagePath: "coin.png", IsCorrect: true},
				{Text: "Leaf"},
			},
		},
	}
}

func TestResolver_ResolveLesson(t *testing.T) {
	lesson := &models.Lesson{ID: "l1", CourseID: "c1", Title: "Money"}

	t.Run("resolves every reference and keeps order", func(t *testing.T) {
		signer := &mockSigner{}
		slides := &mockSlideRepository{slides: []models.Slide{
			{ID: "s1", Order: 1, Kind: models.SlideKindVideo, Video: &models.VideoSlide{VideoPath: "intro.mp4"}},
			quizSlide("s2", 2),
			{ID: "s3", Order: 3, Kind: models.SlideKindVideo, Video: &models.VideoSlide{VideoPath: "outro.mp4"}},
		}}
		r := NewResolver(&mockLessonRepository{lesson: lesson}, slides, signer, time.Hour, 2, zap.NewNop())

		result, err := r.ResolveLesson(context.Background(), "l1")

		require.NoError(t, err)
		require.Len(t, result.Slides, 3)
		assert.Equal(t, "Money", result.Lesson.Title)
		assert.Equal(t, []string{"s1", "s2", "s3"}, []string{result.Slides[0].ID, result.Slides[1].ID, result.Slides[2].ID})
		assert.Equal(t, "https://cdn.test/intro.mp4?sig=1", result.Slides[0].Video.VideoURL)

		q := result.Slides[1].Quiz
		require.NotNil(t, q)
		assert.Equal(t, "https://cdn.test/q.mp3?sig=1", q.AudioURL)
		assert.Equal(t, "https://cdn.test/yay.mp3?sig=1", q.CorrectAudioURL)
		assert.Empty(t, q.WrongAudioURL)
		assert.Equal(t, "Try again!", q.WrongQuote)
		assert.Equal(t, "https://cdn.test/coin.png?sig=1", q.Answers[0].ImageURL)
		assert.Empty(t, q.Answers[1].ImageURL)
		assert.True(t, q.Answers[0].IsCorrect)

		// Empty references are skipped without a signer call
		assert.Len(t, signer.calls, 5)
	})

	t.Run("one failed signature leaves the others intact", func(t *testing.T) {
		signer := &mockSigner{failing: map[string]bool{"yay.mp3": true}}
		slides := &mockSlideRepository{slides: []models.Slide{quizSlide("s1", 1)}}
		r := NewResolver(&mockLessonRepository{lesson: lesson}, slides, signer, time.Hour, 8, zap.NewNop())

		result, err := r.ResolveLesson(context.Background(), "l1")

		require.NoError(t, err)
		q := result.Slides[0].Quiz
		assert.Empty(t, q.CorrectAudioURL)
		assert.NotEmpty(t, q.AudioURL)
		assert.NotEmpty(t, q.Answers[0].ImageURL)
	})

	t.Run("concurrency is bounded", func(t *testing.T) {
		signer := &mockSigner{delay: 5 * time.Millisecond}
		var many []models.Slide
		for i := 0; i < 12; i++ {
			many = append(many, models.Slide{ID: fmt.Sprintf("s%d", i), Order: i + 1, Kind: models.SlideKindVideo,
				Video: &models.VideoSlide{VideoPath: fmt.Sprintf("v%d.mp4", i)}})
		}
		r := NewResolver(&mockLessonRepository{lesson: lesson}, &mockSlideRepository{slides: many}, signer, time.Hour, 3, zap.NewNop())

		result, err := r.ResolveLesson(context.Background(), "l1")

		require.NoError(t, err)
		assert.Len(t, result.Slides, 12)
		assert.LessOrEqual(t, signer.maxSeen.Load(), int32(3))
		for i, s := range result.Slides {
			assert.Equal(t, fmt.Sprintf("https://cdn.test/v%d.mp4?sig=1", i), s.Video.VideoURL)
		}
	})

	t.Run("load-fatal errors", func(t *testing.T) {
		for _, fatal := range []error{ErrLessonNotFound, ErrLessonDuplicated} {
			r := NewResolver(&mockLessonRepository{err: fatal}, &mockSlideRepository{}, &mockSigner{}, time.Hour, 8, zap.NewNop())

			_, err := r.ResolveLesson(context.Background(), "l1")

			assert.ErrorIs(t, err, fatal)
		}
	})

	t.Run("slide query failure", func(t *testing.T) {
		r := NewResolver(&mockLessonRepository{lesson: lesson}, &mockSlideRepository{err: errors.New("db down")}, &mockSigner{}, time.Hour, 8, zap.NewNop())

		_, err := r.ResolveLesson(context.Background(), "l1")

		assert.ErrorContains(t, err, "failed to load slides")
	})
}
