package player

import (
	"github.com/captainspark/backend/internal/models"
	"github.com/captainspark/backend/internal/quiz"
)

// Snapshot is the renderer's view of a session
type Snapshot struct {
	SessionID   string                `json:"sessionId"`
	LessonID    string                `json:"lessonId"`
	LessonTitle string                `json:"lessonTitle,omitempty"`
	State       State                 `json:"state"`
	Index       int                   `json:"index"`
	Total       int                   `json:"total"`
	Progress    float64               `json:"progress"`
	Slide       *models.ResolvedSlide `json:"slide,omitempty"`
	NextReady   bool                  `json:"nextReady"`
	Quiz        *quiz.State           `json:"quiz,omitempty"`
	RewindCount int                   `json:"rewindCount"`
	XP          *models.XPAward       `json:"xp,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// Snapshot returns the current view. Answer correctness flags are withheld
// until the learner has answered.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:   s.data.ID,
		LessonID:    s.data.LessonID,
		State:       s.State(),
		Index:       s.data.Index,
		Total:       s.total(),
		RewindCount: s.data.RewindCount,
		XP:          s.data.XP,
		Error:       s.data.Failure,
	}
	if s.data.Lesson != nil {
		snap.LessonTitle = s.data.Lesson.Lesson.Title
	}

	switch snap.State {
	case StateComplete:
		snap.Progress = 1
	case StateReady, StateTransitioning, StateExitedToOverview:
		if snap.Total > 0 {
			snap.Progress = float64(s.data.Index+1) / float64(snap.Total)
		}
	}

	if snap.State == StateReady || snap.State == StateTransitioning {
		snap.NextReady = s.data.Index >= snap.Total-1 || s.deps.Readiness.Ready()
		if slide := s.current(); slide != nil {
			view := redact(*slide, s.data.Quiz.Phase == quiz.PhaseFeedbackCorrect)
			snap.Slide = &view
			if slide.Kind == models.SlideKindQuiz {
				q := s.data.Quiz
				snap.Quiz = &q
			}
		}
	}

	return snap
}

// redact copies a slide, clearing answer correctness unless reveal is set.
// Correctness is revealed only once the right answer has been picked.
func redact(slide models.ResolvedSlide, reveal bool) models.ResolvedSlide {
	if slide.Kind != models.SlideKindQuiz || slide.Quiz == nil || reveal {
		return slide
	}
	q := *slide.Quiz
	q.Answers = make([]models.ResolvedAnswer, len(slide.Quiz.Answers))
	for i, a := range slide.Quiz.Answers {
		a.IsCorrect = false
		q.Answers[i] = a
	}
	slide.Quiz = &q
	return slide
}
