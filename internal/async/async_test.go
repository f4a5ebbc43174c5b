package async

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottlerLimitsConcurrency(t *testing.T) {
	th := NewThrottler(2)
	assert.True(t, th.TryAcquire())
	assert.True(t, th.TryAcquire())
	assert.False(t, th.TryAcquire(), "third slot should be unavailable")
	th.Release()
	assert.True(t, th.TryAcquire())
}

func TestThrottlerAcquireBlocksUntilRelease(t *testing.T) {
	th := NewThrottler(1)
	require.True(t, th.TryAcquire())

	released := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		th.Release()
		close(released)
	}()

	err := th.Acquire(context.Background())
	require.NoError(t, err)
	<-released
}

func TestThrottlerCancelAllUnblocksWaiters(t *testing.T) {
	th := NewThrottler(1)
	require.True(t, th.TryAcquire())

	errCh := make(chan error, 1)
	go func() {
		errCh <- th.Acquire(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	th.CancelAll()

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("CancelAll did not unblock the waiting Acquire")
	}
}

func TestTaskRunsJobExactlyOnce(t *testing.T) {
	var calls int32
	task := NewTask(func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 42, nil
	})

	v1, err1 := task.AwaitResult(context.Background())
	v2, err2 := task.AwaitResult(context.Background())

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, 42, v1)
	assert.Equal(t, 42, v2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTaskGetResultSyncBeforeStart(t *testing.T) {
	task := NewTask(func(ctx context.Context) (int, error) { return 1, nil })
	_, _, ready := task.GetResultSync()
	assert.False(t, ready)
	assert.False(t, task.IsStarted())
}

func TestTaskStatesProgress(t *testing.T) {
	release := make(chan struct{})
	task := NewTask(func(ctx context.Context) (int, error) {
		<-release
		return 7, nil
	})
	task.Start(context.Background())
	assert.True(t, task.IsStarted())
	assert.False(t, task.IsFinished())

	close(release)
	v, err := task.AwaitResult(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.True(t, task.IsFinished())
}

func TestTaskPropagatesJobError(t *testing.T) {
	boom := assert.AnError
	task := NewTask(func(ctx context.Context) (int, error) { return 0, boom })
	_, err := task.AwaitResult(context.Background())
	assert.ErrorIs(t, err, boom)
}
