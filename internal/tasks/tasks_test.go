package tasks

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		n        int
		expected time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{5, 32 * time.Second},
		{6, time.Minute},
		{20, time.Minute},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, RetryDelay(tt.n, nil, nil), "retry %d", tt.n)
	}
}

func TestProgressSaveTask(t *testing.T) {
	task, err := NewProgressSaveTask(ProgressSavePayload{LearnerID: "u1", LessonID: "l1", Index: 2, Completed: true}, 5)
	require.NoError(t, err)
	assert.Equal(t, TypeProgressSave, task.Type())

	p, err := ParseProgressSave(task)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Index)
	assert.True(t, p.Completed)

	_, err = ParseProgressSave(asynq.NewTask(TypeProgressSave, []byte(`{"learnerId":"u1"}`)))
	assert.Error(t, err)

	_, err = ParseProgressSave(asynq.NewTask(TypeProgressSave, []byte(`not json`)))
	assert.Error(t, err)
}

func TestMagicLinkEmailTask(t *testing.T) {
	task, err := NewMagicLinkEmailTask(MagicLinkEmailPayload{
		Email: "p@example.com", Link: "https://app.test/verify?token=t", ExpiresAt: time.Now().Add(15 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, TypeMagicLinkEmail, task.Type())

	p, err := ParseMagicLinkEmail(task)
	require.NoError(t, err)
	assert.Equal(t, "p@example.com", p.Email)

	_, err = ParseMagicLinkEmail(asynq.NewTask(TypeMagicLinkEmail, []byte(`{}`)))
	assert.Error(t, err)
}

func TestQueues(t *testing.T) {
	q := Queues()
	assert.Greater(t, q[QueueCritical], q[QueueProgress])
	assert.Greater(t, q[QueueProgress], q[QueueDefault])
}
