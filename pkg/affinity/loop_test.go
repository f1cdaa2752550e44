package affinity

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuedBeforeStartRunInOrder(t *testing.T) {
	l := New(Config{Name: "test"})
	defer l.Stop()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, l.Post(func(context.Context) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Empty(t, order, "tasks must not run before Start")
	mu.Unlock()
	assert.Equal(t, 5, l.Pending())

	require.NoError(t, l.Start(context.Background()))
	require.NoError(t, l.Call(context.Background(), func(context.Context) {}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestOnStartRunsFirst(t *testing.T) {
	var order []string
	l := New(Config{OnStart: func(ctx context.Context) {
		order = append(order, "start")
	}})
	l.Post(func(context.Context) { order = append(order, "task") })

	require.NoError(t, l.Start(context.Background()))
	l.Stop()

	assert.Equal(t, []string{"start", "task"}, order)
}

func TestStartTwice(t *testing.T) {
	l := New(Config{})
	require.NoError(t, l.Start(context.Background()))
	assert.ErrorIs(t, l.Start(context.Background()), ErrAlreadyStarted)
	l.Stop()
	assert.ErrorIs(t, l.Start(context.Background()), ErrClosed)
}

func TestCallRunsOnLoop(t *testing.T) {
	l := New(Config{})
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	ctx := context.Background()
	assert.False(t, l.OnLoop(ctx))

	var onLoop bool
	require.NoError(t, l.Call(ctx, func(loopCtx context.Context) {
		onLoop = l.OnLoop(loopCtx)
	}))
	assert.True(t, onLoop)
}

func TestCallInlineFromLoop(t *testing.T) {
	l := New(Config{})
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	var inner bool
	err := l.Call(context.Background(), func(ctx context.Context) {
		// A nested Call with the loop's context must not deadlock.
		_ = l.Call(ctx, func(context.Context) { inner = true })
	})
	require.NoError(t, err)
	assert.True(t, inner)
}

func TestCallContextCancelled(t *testing.T) {
	l := New(Config{})
	defer l.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := make(chan struct{})
	err := l.Call(ctx, func(context.Context) { close(ran) })
	assert.ErrorIs(t, err, context.Canceled)

	// The task is not retracted.
	require.NoError(t, l.Start(context.Background()))
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("cancelled Call task never ran")
	}
}

func TestStopDrainsQueue(t *testing.T) {
	l := New(Config{})
	block := make(chan struct{})
	l.Post(func(context.Context) { <-block })

	var ran bool
	l.Post(func(context.Context) { ran = true })
	require.NoError(t, l.Start(context.Background()))

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		close(stopped)
	}()

	assert.Eventually(t, func() bool { return !l.Post(func(context.Context) {}) }, time.Second, 5*time.Millisecond)
	close(block)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	assert.True(t, ran)
	assert.ErrorIs(t, l.Call(context.Background(), func(context.Context) {}), ErrClosed)

	select {
	case <-l.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
}

func TestStopUnstarted(t *testing.T) {
	l := New(Config{})
	l.Post(func(context.Context) { t.Error("task ran on a never-started loop") })

	l.Stop()
	assert.Equal(t, 0, l.Pending())
	assert.False(t, l.Post(func(context.Context) {}))
}

func TestStartContextCancelStopsLoop(t *testing.T) {
	l := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Start(ctx))

	cancel()
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after context cancellation")
	}
}

func TestPostFromManyGoroutines(t *testing.T) {
	l := New(Config{})
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	// Only the loop goroutine touches count.
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Call(context.Background(), func(context.Context) { count++ })
		}()
	}
	wg.Wait()

	var got int
	require.NoError(t, l.Call(context.Background(), func(context.Context) { got = count }))
	assert.Equal(t, 50, got)
}

func TestPostNil(t *testing.T) {
	l := New(Config{})
	defer l.Stop()
	assert.False(t, l.Post(nil))
}

func TestNicePriorityLowersOwnThread(t *testing.T) {
	errCh := make(chan error, 1)
	go func() {
		// The locked thread exits with the goroutine, taking its priority along.
		runtime.LockOSThread()
		errCh <- NicePriority(19)()
	}()
	assert.NoError(t, <-errCh)
}
