package services

import (
	"errors"
	"fmt"

	"github.com/captainspark/backend/internal/repositories"
)

var (
	// ErrInvalidMagicLink is returned for unknown, used or expired links
	ErrInvalidMagicLink = errors.New("invalid or expired magic link")
	// ErrMagicLinkDelivery is returned when the sign-in email could not be queued
	ErrMagicLinkDelivery = errors.New("failed to send magic link")
	// ErrEmailNotFound is returned when a login is requested for an unknown address
	ErrEmailNotFound = errors.New("email not found")
	// ErrInvalidCredentials is returned for a wrong CMS password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionForbidden is returned when a learner touches another learner's session
	ErrSessionForbidden = errors.New("session belongs to another learner")
)

// ValidationError reports input rejected before anything was written
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func invalidf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err means a requested row is missing
func IsNotFound(err error) bool {
	return errors.Is(err, repositories.ErrCourseNotFound) ||
		errors.Is(err, repositories.ErrLessonNotFound) ||
		errors.Is(err, repositories.ErrSlideNotFound) ||
		errors.Is(err, repositories.ErrLearnerNotFound) ||
		errors.Is(err, repositories.ErrProgressNotFound)
}
