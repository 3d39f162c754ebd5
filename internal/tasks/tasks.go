// Package tasks defines the background tasks exchanged between the API and the worker.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeProgressSave   = "progress:save"
	TypeMagicLinkEmail = "email:magic_link"
)

// Queue names
const (
	QueueCritical = "critical"
	QueueProgress = "progress"
	QueueDefault  = "default"
)

const (
	maxRetryDelay     = time.Minute
	magicLinkMaxRetry = 3
)

// Queues returns the worker queue priorities
func Queues() map[string]int {
	return map[string]int{
		QueueCritical: 6,
		QueueProgress: 3,
		QueueDefault:  1,
	}
}

// Enqueuer is satisfied by *asynq.Client
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ProgressSavePayload is a learner's position write
type ProgressSavePayload struct {
	LearnerID string `json:"learnerId"`
	LessonID  string `json:"lessonId"`
	Index     int    `json:"index"`
	Completed bool   `json:"completed"`
	Seq       int64  `json:"seq"`
}

// MagicLinkEmailPayload is a sign-in email to deliver
type MagicLinkEmailPayload struct {
	Email      string    `json:"email"`
	ParentName string    `json:"parentName"`
	KidName    string    `json:"kidName"`
	Link       string    `json:"link"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// NewProgressSaveTask creates a progress write task retried up to maxRetry times
func NewProgressSaveTask(p ProgressSavePayload, maxRetry int) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal progress payload: %w", err)
	}
	return asynq.NewTask(TypeProgressSave, payload,
		asynq.Queue(QueueProgress),
		asynq.MaxRetry(maxRetry),
	), nil
}

// NewMagicLinkEmailTask creates a sign-in email task
func NewMagicLinkEmailTask(p MagicLinkEmailPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal magic link payload: %w", err)
	}
	return asynq.NewTask(TypeMagicLinkEmail, payload,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(magicLinkMaxRetry),
		asynq.Timeout(time.Minute),
		asynq.Deadline(p.ExpiresAt.Add(-time.Minute)),
	), nil
}

// ParseProgressSave decodes a progress:save payload
func ParseProgressSave(t *asynq.Task) (ProgressSavePayload, error) {
	var p ProgressSavePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal progress payload: %w", err)
	}
	if p.LearnerID == "" || p.LessonID == "" || p.Index < 0 {
		return p, fmt.Errorf("invalid progress payload")
	}
	return p, nil
}

// ParseMagicLinkEmail decodes an email:magic_link payload
func ParseMagicLinkEmail(t *asynq.Task) (MagicLinkEmailPayload, error) {
	var p MagicLinkEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal magic link payload: %w", err)
	}
	if p.Email == "" || p.Link == "" {
		return p, fmt.Errorf("invalid magic link payload")
	}
	return p, nil
}

// RetryDelay backs off 2^n seconds, capped at one minute
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	if n < 0 {
		n = 0
	}
	if n >= 6 {
		return maxRetryDelay
	}
	d := time.Duration(1<<uint(n)) * time.Second
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}
