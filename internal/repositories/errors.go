package repositories

import "errors"

var (
	ErrCourseNotFound    = errors.New("course not found")
	ErrLessonNotFound    = errors.New("lesson not found")
	ErrLessonDuplicated  = errors.New("multiple lessons found for this id")
	ErrSlideNotFound     = errors.New("slide not found")
	ErrLearnerNotFound   = errors.New("learner not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrMagicLinkNotFound = errors.New("magic link not found")
	ErrMagicLinkUsed     = errors.New("magic link already used")
	ErrProgressNotFound  = errors.New("progress not found")
	ErrNothingToMove     = errors.New("item is already at the edge")
)
