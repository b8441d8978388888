package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/kindle-enex/internal/tasks"
)

type recordingQueue struct {
	mu    sync.Mutex
	tasks []backlite.Task
	err   error
}

func (q *recordingQueue) Enqueue(ctx context.Context, task backlite.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.tasks = append(q.tasks, task)
	return "task-1", nil
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 3 * * *"))
	assert.NoError(t, ValidateSchedule("*/15 * * * *"))
	assert.Error(t, ValidateSchedule("every day"))
	assert.Error(t, ValidateSchedule("0 0 3 * * *"), "seconds field is not accepted")
}

func TestNextRunTime(t *testing.T) {
	from := time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)

	next, err := NextRunTime("0 3 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 0, 0, 0, time.Local), next)
}

func TestCleanupScheduler_RunNow(t *testing.T) {
	t.Run("enqueues cleanup with retention", func(t *testing.T) {
		queue := &recordingQueue{}
		s := NewCleanupScheduler(queue, "0 3 * * *", 14)

		id, err := s.RunNow(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "task-1", id)

		require.Len(t, queue.tasks, 1)
		assert.Equal(t, tasks.CleanupConversionsTask{RetentionDays: 14}, queue.tasks[0])
	})

	t.Run("wraps queue errors", func(t *testing.T) {
		queue := &recordingQueue{err: errors.New("queue closed")}
		s := NewCleanupScheduler(queue, "0 3 * * *", 14)

		_, err := s.RunNow(context.Background())
		assert.ErrorContains(t, err, "queue closed")
	})
}

func TestCleanupScheduler_StartStop(t *testing.T) {
	t.Run("rejects invalid schedule", func(t *testing.T) {
		s := NewCleanupScheduler(&recordingQueue{}, "not a schedule", 30)

		err := s.Start(context.Background())
		assert.Error(t, err)
		assert.False(t, s.IsRunning())
	})

	t.Run("reports next run while running", func(t *testing.T) {
		s := NewCleanupScheduler(&recordingQueue{}, "0 3 * * *", 30)

		require.NoError(t, s.Start(context.Background()))
		assert.True(t, s.IsRunning())
		require.NotNil(t, s.NextRun())
		assert.True(t, s.NextRun().After(time.Now()))

		s.Stop()
		assert.False(t, s.IsRunning())
		assert.Nil(t, s.NextRun())
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		s := NewCleanupScheduler(&recordingQueue{}, "0 3 * * *", 30)
		ctx, cancel := context.WithCancel(context.Background())

		require.NoError(t, s.Start(ctx))
		cancel()

		assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
	})
}
