// Package player implements the lesson slide sequencer. A Session walks a
// resolved lesson front to back, gates forward moves on asset readiness and
// records the learner's position as it goes.
package player

import (
	"context"
	"errors"
	"time"

	"github.com/captainspark/backend/internal/models"
	"github.com/captainspark/backend/internal/quiz"
	"go.uber.org/zap"
)

// State is the sequencer state
type State string

const (
	StateLoading          State = "loading"
	StateReady            State = "ready"
	StateTransitioning    State = "transitioning"
	StateComplete         State = "complete"
	StateExitedToOverview State = "exited_to_overview"
	StateFailed           State = "failed"
)

// DefaultFadeDuration is the cosmetic cross-fade between slides
const DefaultFadeDuration = 400 * time.Millisecond

var (
	ErrNextNotReady      = errors.New("next slide is not ready")
	ErrInvalidTransition = errors.New("transition not allowed in current state")
	ErrNotVideoSlide     = errors.New("current slide is not a video")
	ErrNotQuizSlide      = errors.New("current slide is not a quiz")
	ErrQuizNotPassed     = errors.New("quiz must be answered correctly before advancing")
	ErrNoSlides          = errors.New("lesson has no slides")
)

// LessonResolver loads a lesson with playable URLs
type LessonResolver interface {
	ResolveLesson(ctx context.Context, lessonID string) (*models.ResolvedLesson, error)
}

// Readiness reports whether the slide after the current one can be shown
type Readiness interface {
	Track(slides []models.ResolvedSlide, current int)
	Ready() bool
}

// ProgressRecorder persists the side effects of slide transitions
type ProgressRecorder interface {
	RecordPosition(ctx context.Context, learnerID, lessonID string, index int, completed bool) error
	Reconcile(ctx context.Context, learnerID, lessonID string, localIndex, slideCount int) (int, error)
	AwardXP(ctx context.Context, learnerID, lessonID string) (*models.XPAward, error)
}

// Deps are the collaborators of a session
type Deps struct {
	Resolver     LessonResolver
	Readiness    Readiness
	Progress     ProgressRecorder
	Logger       *zap.Logger
	Now          func() time.Time
	FadeDuration time.Duration
}

// Data is the serialisable form of a session
type Data struct {
	ID              string                 `json:"id"`
	LessonID        string                 `json:"lessonId"`
	LearnerID       string                 `json:"learnerId"`
	State           State                  `json:"state"`
	Index           int                    `json:"index"`
	TransitionUntil time.Time              `json:"transitionUntil"`
	RewindCount     int                    `json:"rewindCount"`
	Quiz            quiz.State             `json:"quiz"`
	Lesson          *models.ResolvedLesson `json:"lesson,omitempty"`
	XP              *models.XPAward        `json:"xp,omitempty"`
	Failure         string                 `json:"failure,omitempty"`
}

// Session is one learner's playback of one lesson
type Session struct {
	data Data
	deps Deps
}

// New creates a session in the loading state
func New(id, lessonID, learnerID string, deps Deps) *Session {
	return Restore(Data{
		ID:        id,
		LessonID:  lessonID,
		LearnerID: learnerID,
		State:     StateLoading,
		Quiz:      quiz.New(),
	}, deps)
}

// Restore rebuilds a session from its stored data
func Restore(data Data, deps Deps) *Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Session{data: data, deps: deps}
}

// Load resolves the lesson and moves to the reconciled start position.
// localIndex is the client's last known position, or nil.
func (s *Session) Load(ctx context.Context, localIndex *int) error {
	if s.data.State != StateLoading {
		return ErrInvalidTransition
	}

	lesson, err := s.deps.Resolver.ResolveLesson(ctx, s.data.LessonID)
	if err != nil {
		s.fail(err)
		return err
	}
	if len(lesson.Slides) == 0 {
		s.fail(ErrNoSlides)
		return ErrNoSlides
	}
	s.data.Lesson = lesson

	start := 0
	local := -1
	if localIndex != nil {
		local = min(*localIndex, len(lesson.Slides)-1)
	}
	if s.deps.Progress != nil {
		reconciled, err := s.deps.Progress.Reconcile(ctx, s.data.LearnerID, s.data.LessonID, local, len(lesson.Slides))
		if err != nil {
			s.deps.Logger.Warn("Failed to reconcile lesson progress",
				zap.String("lesson_id", s.data.LessonID),
				zap.String("learner_id", s.data.LearnerID),
				zap.Error(err),
			)
			reconciled = local
		}
		start = reconciled
	} else if local > 0 {
		start = local
	}
	s.data.Index = clamp(start, 0, len(lesson.Slides)-1)

	s.data.State = StateReady
	s.resetSlide()
	s.deps.Readiness.Track(lesson.Slides, s.data.Index)
	return nil
}

func (s *Session) fail(err error) {
	s.data.State = StateFailed
	s.data.Failure = err.Error()
	s.deps.Logger.Error("Failed to load lesson",
		zap.String("lesson_id", s.data.LessonID),
		zap.Error(err),
	)
}

// State returns the current state. A transition reads as ready once the fade has elapsed.
func (s *Session) State() State {
	if s.data.State == StateTransitioning && !s.deps.Now().Before(s.data.TransitionUntil) {
		return StateReady
	}
	return s.data.State
}

// Index returns the current slide index
func (s *Session) Index() int {
	return s.data.Index
}

// Data returns the serialisable form of the session
func (s *Session) Data() Data {
	d := s.data
	d.State = s.State()
	return d
}

func (s *Session) active() bool {
	st := s.State()
	return st == StateReady || st == StateTransitioning
}

func (s *Session) total() int {
	if s.data.Lesson == nil {
		return 0
	}
	return len(s.data.Lesson.Slides)
}

func (s *Session) current() *models.ResolvedSlide {
	if s.data.Lesson == nil || s.data.Index < 0 || s.data.Index >= len(s.data.Lesson.Slides) {
		return nil
	}
	return &s.data.Lesson.Slides[s.data.Index]
}

// Advance moves to the next slide, or completes the lesson from the last one.
// Quiz slides advance only through Continue.
func (s *Session) Advance(ctx context.Context) error {
	if !s.active() {
		return ErrInvalidTransition
	}
	if slide := s.current(); slide != nil && slide.Kind == models.SlideKindQuiz {
		return ErrQuizNotPassed
	}
	return s.advance(ctx)
}

func (s *Session) advance(ctx context.Context) error {
	last := s.total() - 1
	if s.data.Index >= last {
		s.complete(ctx)
		return nil
	}
	if !s.deps.Readiness.Ready() {
		return ErrNextNotReady
	}

	s.data.Index++
	s.startTransition()
	s.record(ctx, s.data.Index, false)
	return nil
}

func (s *Session) complete(ctx context.Context) {
	s.data.State = StateComplete
	s.data.Quiz = quiz.New()
	s.record(ctx, s.total()-1, true)

	if s.deps.Progress == nil {
		return
	}
	award, err := s.deps.Progress.AwardXP(ctx, s.data.LearnerID, s.data.LessonID)
	if err != nil {
		s.deps.Logger.Warn("Failed to award XP",
			zap.String("lesson_id", s.data.LessonID),
			zap.String("learner_id", s.data.LearnerID),
			zap.Error(err),
		)
		return
	}
	s.data.XP = award
}

// Retreat moves to the previous slide, or exits to the overview from the first one
func (s *Session) Retreat(ctx context.Context) error {
	if !s.active() {
		return ErrInvalidTransition
	}
	if s.data.Index == 0 {
		s.data.State = StateExitedToOverview
		return nil
	}

	s.data.Index--
	s.startTransition()
	s.record(ctx, s.data.Index, false)
	return nil
}

// Rewind restarts playback of the current video
func (s *Session) Rewind() error {
	if !s.active() {
		return ErrInvalidTransition
	}
	if slide := s.current(); slide == nil || slide.Kind != models.SlideKindVideo {
		return ErrNotVideoSlide
	}
	s.data.RewindCount++
	return nil
}

// VideoEnded is the natural end of video playback
func (s *Session) VideoEnded(ctx context.Context) error {
	if !s.active() {
		return ErrInvalidTransition
	}
	if slide := s.current(); slide == nil || slide.Kind != models.SlideKindVideo {
		return ErrNotVideoSlide
	}
	return s.advance(ctx)
}

func (s *Session) currentQuiz() (*models.ResolvedQuiz, error) {
	if !s.active() {
		return nil, ErrInvalidTransition
	}
	slide := s.current()
	if slide == nil || slide.Kind != models.SlideKindQuiz || slide.Quiz == nil {
		return nil, ErrNotQuizSlide
	}
	return slide.Quiz, nil
}

// Answer selects an answer on the current quiz slide
func (s *Session) Answer(idx int) error {
	q, err := s.currentQuiz()
	if err != nil {
		return err
	}
	return s.data.Quiz.Select(q, idx)
}

// TryAgain clears a wrong answer
func (s *Session) TryAgain() error {
	if _, err := s.currentQuiz(); err != nil {
		return err
	}
	return s.data.Quiz.TryAgain()
}

// Continue confirms a correct answer and advances. When the next slide is not
// ready the overlay stays so the learner can continue again.
func (s *Session) Continue(ctx context.Context) error {
	q, err := s.currentQuiz()
	if err != nil {
		return err
	}

	ok, err := s.data.Quiz.Continue()
	if err != nil || !ok {
		return err
	}

	if err := s.advance(ctx); err != nil {
		s.data.Quiz.Reopen(q)
		return err
	}
	return nil
}

func (s *Session) startTransition() {
	s.data.State = StateTransitioning
	fade := s.deps.FadeDuration
	if fade <= 0 {
		fade = DefaultFadeDuration
	}
	s.data.TransitionUntil = s.deps.Now().Add(fade)
	s.resetSlide()
	s.deps.Readiness.Track(s.data.Lesson.Slides, s.data.Index)
}

// resetSlide clears per-slide state on entering a slide
func (s *Session) resetSlide() {
	s.data.Quiz = quiz.New()
	s.data.RewindCount = 0

	slide := s.current()
	if slide == nil || slide.Kind != models.SlideKindQuiz || slide.Quiz == nil {
		return
	}
	correct := 0
	for _, a := range slide.Quiz.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		s.deps.Logger.Warn("Quiz slide does not have exactly one correct answer",
			zap.String("slide_id", slide.ID),
			zap.Int("correct_answers", correct),
		)
	}
}

// record persists the position. Failures are logged and never undo the move.
func (s *Session) record(ctx context.Context, index int, completed bool) {
	if s.deps.Progress == nil {
		return
	}
	if err := s.deps.Progress.RecordPosition(ctx, s.data.LearnerID, s.data.LessonID, index, completed); err != nil {
		s.deps.Logger.Warn("Failed to record lesson progress",
			zap.String("lesson_id", s.data.LessonID),
			zap.String("learner_id", s.data.LearnerID),
			zap.Int("index", index),
			zap.Bool("completed", completed),
			zap.Error(err),
		)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
