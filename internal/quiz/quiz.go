// Package quiz holds the answer/feedback state of a single quiz slide.
package quiz

import (
	"errors"

	"github.com/captainspark/backend/internal/models"
)

// Phase is the interaction phase of a quiz slide
type Phase string

const (
	PhaseUnanswered      Phase = "unanswered"
	PhaseFeedbackCorrect Phase = "feedback_correct"
	PhaseFeedbackWrong   Phase = "feedback_wrong"
)

var (
	ErrAlreadyAnswered = errors.New("answer already selected")
	ErrInvalidAnswer   = errors.New("invalid answer index")
	ErrNotWrong        = errors.New("try again is only available after a wrong answer")
	ErrNotCorrect      = errors.New("continue is only available after a correct answer")
)

// Overlay is the feedback shown after an answer
type Overlay struct {
	Correct  bool   `json:"correct"`
	Quote    string `json:"quote,omitempty"`
	AudioURL string `json:"audioUrl,omitempty"`
}

// State is the quiz sub-state of the current slide. The zero value is unanswered.
type State struct {
	Phase    Phase    `json:"phase"`
	Selected *int     `json:"selected,omitempty"`
	Overlay  *Overlay `json:"overlay,omitempty"`
}

// New returns an unanswered state
func New() State {
	return State{Phase: PhaseUnanswered}
}

// Select locks in answer idx and shows the matching feedback.
// Correctness comes from the selected answer's own flag.
func (s *State) Select(q *models.ResolvedQuiz, idx int) error {
	if s.Phase != "" && s.Phase != PhaseUnanswered {
		return ErrAlreadyAnswered
	}
	if q == nil || idx < 0 || idx >= len(q.Answers) {
		return ErrInvalidAnswer
	}

	selected := idx
	s.Selected = &selected

	if q.Answers[idx].IsCorrect {
		s.Phase = PhaseFeedbackCorrect
		s.Overlay = &Overlay{Correct: true, Quote: q.CorrectQuote, AudioURL: q.CorrectAudioURL}
	} else {
		s.Phase = PhaseFeedbackWrong
		s.Overlay = &Overlay{Correct: false, Quote: q.WrongQuote, AudioURL: q.WrongAudioURL}
	}
	return nil
}

// TryAgain clears a wrong answer so the learner can pick again
func (s *State) TryAgain() error {
	if s.Phase != PhaseFeedbackWrong {
		return ErrNotWrong
	}
	*s = New()
	return nil
}

// Continue dismisses the correct-answer overlay. It returns true when the
// player should advance.
func (s *State) Continue() (bool, error) {
	if s.Phase != PhaseFeedbackCorrect {
		return false, ErrNotCorrect
	}
	s.Overlay = nil
	return true, nil
}

// Reopen restores the correct-answer overlay after an advance was refused
func (s *State) Reopen(q *models.ResolvedQuiz) {
	if s.Phase != PhaseFeedbackCorrect || q == nil {
		return
	}
	s.Overlay = &Overlay{Correct: true, Quote: q.CorrectQuote, AudioURL: q.CorrectAudioURL}
}
