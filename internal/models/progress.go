package models

import (
	"fmt"
	"time"
)

// LessonProgress is a learner's position within one lesson
type LessonProgress struct {
	LearnerID      string    `json:"learnerId"`
	LessonID       string    `json:"lessonId"`
	LastSlideIndex int       `json:"lastSlideIndex"`
	Completed      bool      `json:"completed"`
	UpdatedAt      time.Time `json:"updatedAt"`
	// Seq orders writes; a write older than the stored one is ignored
	Seq            int64     `json:"-"`
}

// ProgressEntry is the value of the learner's progress map
type ProgressEntry struct {
	LastSlideIndex int  `json:"lastSlideIndex"`
	Completed      bool `json:"completed"`
}

// XPAward is the outcome of a lesson completion award
type XPAward struct {
	PreviousXP  int  `json:"previousXp"`
	NewXP       int  `json:"newXp"`
	Awarded     bool `json:"awarded"`
	AnimationMS int  `json:"animationMs"`
}

// WeekDay is one cell of the weekly streak display
type WeekDay struct {
	Label  string `json:"label"`
	Active bool   `json:"active"`
	Today  bool   `json:"today"`
}

// StreakResult is the streak checkpoint response
type StreakResult struct {
	StreakCount    int       `json:"streakCount"`
	LastStreakDate string    `json:"lastStreakDate"`
	Changed        bool      `json:"changed"`
	Week           []WeekDay `json:"week"`
}

// Enjoyment is the learner's rating of a lesson
type Enjoyment string

const (
	EnjoymentBoring   Enjoyment = "boring"
	EnjoymentMeh      Enjoyment = "meh"
	EnjoymentFun      Enjoyment = "fun"
	EnjoymentSuperFun Enjoyment = "super_fun"
)

// Validate checks e is a known rating
func (e Enjoyment) Validate() error {
	switch e {
	case EnjoymentBoring, EnjoymentMeh, EnjoymentFun, EnjoymentSuperFun:
		return nil
	default:
		return fmt.Errorf("invalid enjoyment: %q", e)
	}
}

// FeedbackRequest represents a lesson rating submission
type FeedbackRequest struct {
	Enjoyment Enjoyment `json:"enjoyment" example:"super_fun"`
}
