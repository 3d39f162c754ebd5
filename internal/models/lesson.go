package models

import "time"

// Lesson represents a lesson in a course
type Lesson struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"courseId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Tag         string    `json:"tag,omitempty"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateLessonRequest represents a request to create a lesson
type CreateLessonRequest struct {
	CourseID    string `json:"courseId"`
	Title       string `json:"title" example:"Lesson 1"`
	Description string `json:"description"`
	Tag         string `json:"tag" example:"money"`
}

// UpdateLessonRequest represents a request to update a lesson (partial update)
type UpdateLessonRequest struct {
	CourseID    *string `json:"courseId,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Tag         *string `json:"tag,omitempty"`
}

// LessonStatus is the position of a lesson on a learner's course track
type LessonStatus string

const (
	LessonStatusDone     LessonStatus = "done"
	LessonStatusCurrent  LessonStatus = "current"
	LessonStatusUpcoming LessonStatus = "upcoming"
)

// TrackLesson represents a lesson on the course track
type TrackLesson struct {
	ID     string       `json:"id"`
	Title  string       `json:"title"`
	Tag    string       `json:"tag,omitempty"`
	Order  int          `json:"order"`
	Status LessonStatus `json:"status"`
}

// CourseTrack is the course overview shown after a lesson
type CourseTrack struct {
	Heading string        `json:"heading"`
	Course  Course        `json:"course"`
	Lessons []TrackLesson `json:"lessons"`
}
