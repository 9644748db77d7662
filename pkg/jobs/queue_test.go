package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		seen[job.ID] = true
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 2})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.NoError(t, q.Enqueue(Job{ID: "b"}))
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])
	assert.Equal(t, uint64(2), q.Stats().Processed)
}

func TestQueueRejectsWhenNotRunning(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "a"})
	assert.True(t, errors.Is(err, ErrQueueStopped))
}

func TestQueueRejectsWhenFull(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "running"}))
	require.Eventually(t, func() bool { return len(q.jobs) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(Job{ID: "buffered"}))

	err := q.Enqueue(Job{ID: "overflow"})
	assert.True(t, errors.Is(err, ErrQueueFull))
	assert.Equal(t, uint64(1), q.Stats().Dropped)

	close(release)
	q.Stop()
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts atomic.Int32
	done := make(chan struct{})
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "flaky"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	q.Stop()
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, uint64(1), q.Stats().Processed)
}
