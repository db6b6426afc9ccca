package tasks

import (
	"context"
	"ratemyreel/proj/internal/lib/logger"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRun(t *testing.T) {
	bgTasks := New(logger.Discard(), 3, 10)
	bgTasks.Run()
	var done atomic.Int32
	for i := 0; i < 5; i++ {
		bgTasks.Add("count", func() { done.Add(1) })
	}
	require.NoError(t, bgTasks.Shutdown(context.Background()))
	assert.Equal(t, int32(5), done.Load())
	assert.True(t, bgTasks.IsEmpty())
}

func TestPanicKeepsWorker(t *testing.T) {
	bgTasks := New(logger.Discard(), 1, 10)
	bgTasks.Run()
	var ran atomic.Bool
	bgTasks.Add("boom", func() { panic("boom") })
	bgTasks.Add("after", func() { ran.Store(true) })
	require.NoError(t, bgTasks.Shutdown(context.Background()))
	assert.True(t, ran.Load())
}

func TestTryAddQueueFull(t *testing.T) {
	bgTasks := New(logger.Discard(), 1, 1)
	require.NoError(t, bgTasks.TryAdd("queued", func() {}))
	assert.ErrorIs(t, bgTasks.TryAdd("dropped", func() {}), ErrQueueFull)
	bgTasks.Run()
	require.NoError(t, bgTasks.Shutdown(context.Background()))
}

func TestShutdownTimeout(t *testing.T) {
	bgTasks := New(logger.Discard(), 1, 1)
	bgTasks.Run()
	release := make(chan struct{})
	bgTasks.Add("slow", func() { <-release })
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bgTasks.Shutdown(ctx), context.DeadlineExceeded)
	close(release)
	require.NoError(t, bgTasks.Shutdown(context.Background()))
}
