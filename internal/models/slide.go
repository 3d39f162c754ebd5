package models

import (
	"fmt"
	"strings"
)

// SlideKind discriminates the slide variants
type SlideKind string

const (
	SlideKindVideo SlideKind = "video"
	SlideKindQuiz  SlideKind = "quiz"
)

// Slide is one unit of lesson content. Exactly one of Video and Quiz is set, matching Kind.
type Slide struct {
	ID       string      `json:"id"`
	LessonID string      `json:"lessonId"`
	Order    int         `json:"order"`
	Kind     SlideKind   `json:"kind"`
	Video    *VideoSlide `json:"video,omitempty"`
	Quiz     *QuizSlide  `json:"quiz,omitempty"`
}

// VideoSlide references a stored video object
type VideoSlide struct {
	VideoPath string `json:"videoPath"`
}

// QuizAnswer is one option of a quiz slide
type QuizAnswer struct {
	Text      string `json:"text"`
	ImagePath string `json:"imagePath,omitempty"`
	IsCorrect bool   `json:"isCorrect"`
}

// QuizSlide is a single question with feedback for both outcomes
type QuizSlide struct {
	Question         string       `json:"question"`
	Heading          string       `json:"heading,omitempty"`
	AudioPath        string       `json:"audioPath,omitempty"`
	Answers          []QuizAnswer `json:"answers"`
	CorrectQuote     string       `json:"correctQuote,omitempty"`
	CorrectAudioPath string       `json:"correctAudioPath,omitempty"`
	WrongQuote       string       `json:"wrongQuote,omitempty"`
	WrongAudioPath   string       `json:"wrongAudioPath,omitempty"`
}

// CorrectCount returns how many answers are flagged correct
func (q *QuizSlide) CorrectCount() int {
	n := 0
	for _, a := range q.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

// Validate checks the slide is well formed for authoring
func (s *Slide) Validate() error {
	switch s.Kind {
	case SlideKindVideo:
		if s.Video == nil || strings.TrimSpace(s.Video.VideoPath) == "" {
			return fmt.Errorf("video slide requires a video path")
		}
		if s.Quiz != nil {
			return fmt.Errorf("video slide must not carry quiz data")
		}
	case SlideKindQuiz:
		if s.Quiz == nil {
			return fmt.Errorf("quiz slide requires quiz data")
		}
		if s.Video != nil {
			return fmt.Errorf("quiz slide must not carry video data")
		}
		if strings.TrimSpace(s.Quiz.Question) == "" {
			return fmt.Errorf("quiz question is required")
		}
		if len(s.Quiz.Answers) < 2 {
			return fmt.Errorf("quiz must have at least 2 answers")
		}
		for i, a := range s.Quiz.Answers {
			if strings.TrimSpace(a.Text) == "" {
				return fmt.Errorf("answer %d text is required", i+1)
			}
		}
		if s.Quiz.CorrectCount() != 1 {
			return fmt.Errorf("quiz must have exactly one correct answer")
		}
	default:
		return fmt.Errorf("unknown slide kind: %q", s.Kind)
	}
	return nil
}

// CreateSlideRequest represents a request to create a slide
type CreateSlideRequest struct {
	LessonID string      `json:"lessonId"`
	Kind     SlideKind   `json:"kind" example:"video"`
	Video    *VideoSlide `json:"video,omitempty"`
	Quiz     *QuizSlide  `json:"quiz,omitempty"`
}

// UpdateSlideRequest replaces the content of a slide; kind may change
type UpdateSlideRequest struct {
	Kind  SlideKind   `json:"kind" example:"quiz"`
	Video *VideoSlide `json:"video,omitempty"`
	Quiz  *QuizSlide  `json:"quiz,omitempty"`
}
