package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRetriesTransientFailures(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 5, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried to success")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueDoesNotRetryPermanentFailures(t *testing.T) {
	var calls int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return Permanent(errors.New("bad input"))
	}, QueueConfig{Workers: 1, MaxRetries: 5, RetryDelay: time.Millisecond})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	time.Sleep(50 * time.Millisecond)
	q.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPermanentWrapsCause(t *testing.T) {
	cause := errors.New("cause")
	err := Permanent(cause)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsPermanent(cause))
	assert.Nil(t, Permanent(nil))
}

func TestTryEnqueueReportsFullBuffer(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})

	assert.Error(t, q.TryEnqueue(Job{ID: "early"}))

	q.Start(context.Background())
	defer q.Stop()
	defer close(block)

	require.NoError(t, q.TryEnqueue(Job{ID: "a"}))
	require.Eventually(t, func() bool { return len(q.jobs) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.TryEnqueue(Job{ID: "b"}))
	err := q.TryEnqueue(Job{ID: "c"})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestQueueReportsJobsItGivesUpOn(t *testing.T) {
	dropped := make(chan error, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		return errors.New("still failing")
	}, QueueConfig{Workers: 1, MaxRetries: 1, RetryDelay: time.Millisecond, OnDrop: func(job Job, err error) {
		dropped <- err
	}})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	select {
	case err := <-dropped:
		assert.EqualError(t, err, "still failing")
	case <-time.After(2 * time.Second):
		t.Fatal("exhausted job was not reported")
	}
}

func TestQueueReportsRetriesCutShortByStop(t *testing.T) {
	var drops int32
	attempted := make(chan struct{}, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		attempted <- struct{}{}
		return errors.New("transient")
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: time.Hour, OnDrop: func(job Job, err error) {
		if errors.Is(err, ErrQueueStopped) {
			atomic.AddInt32(&drops, 1)
		}
	}})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	<-attempted
	q.Stop()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&drops) == 1 }, time.Second, time.Millisecond)
}
