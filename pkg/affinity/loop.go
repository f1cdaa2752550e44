package affinity

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
)

// Loop errors.
var (
	// ErrClosed is returned when a task is submitted to a stopped loop.
	ErrClosed = errors.New("affinity loop closed")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("affinity loop already started")
)

// Task is a unit of work executed on the loop. ctx identifies the loop.
type Task func(ctx context.Context)

// Config configures a Loop.
type Config struct {
	// Name labels the loop in debug output.
	Name string

	// OnStart runs on the loop goroutine before any queued task.
	OnStart Task

	// Logger is the optional logger for debug output.
	Logger *slog.Logger
}

type loopKey struct{}

// Loop is a single-consumer task queue bound to one goroutine.
type Loop struct {
	config Config

	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []Task
	started bool
	closed  bool

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a loop. Tasks may be posted immediately; none run until Start.
func New(config Config) *Loop {
	l := &Loop{
		config: config,
		done:   make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// debugLog logs a debug message if a logger is configured.
func (l *Loop) debugLog(msg string, args ...any) {
	if l.config.Logger != nil {
		l.config.Logger.Debug(msg, append([]any{"loop", l.config.Name}, args...)...)
	}
}

// Start launches the loop goroutine. Cancelling ctx stops the loop the same
// way Stop does, without waiting.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if l.started {
		l.mu.Unlock()
		return ErrAlreadyStarted
	}
	l.started = true
	l.mu.Unlock()

	loopCtx := context.WithValue(ctx, loopKey{}, l)
	context.AfterFunc(ctx, l.close)

	go l.run(loopCtx)
	return nil
}

// Post queues fn for execution on the loop and returns immediately.
// It returns false when the loop is closed.
func (l *Loop) Post(fn Task) bool {
	if fn == nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.tasks = append(l.tasks, fn)
	l.cond.Signal()
	return true
}

// Call runs fn on the loop and waits until it has executed. When ctx already
// belongs to this loop, fn runs inline. If ctx is cancelled first, Call
// returns ctx.Err() and fn still runs later.
func (l *Loop) Call(ctx context.Context, fn Task) error {
	if l.OnLoop(ctx) {
		fn(ctx)
		return nil
	}

	executed := make(chan struct{})
	if !l.Post(func(loopCtx context.Context) {
		defer close(executed)
		fn(loopCtx)
	}) {
		return ErrClosed
	}

	select {
	case <-executed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case <-executed:
			return nil
		default:
			return ErrClosed
		}
	}
}

// OnLoop reports whether ctx was handed out by this loop.
func (l *Loop) OnLoop(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(loopKey{}).(*Loop)
	return owner == l
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Done is closed once the loop has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Stop rejects new tasks, runs the tasks already queued and waits for the
// loop goroutine to exit. A loop that was never started drops its queue.
// Stop must not be called from a task running on the loop.
func (l *Loop) Stop() {
	l.close()

	l.mu.Lock()
	started := l.started
	l.mu.Unlock()

	if !started {
		l.mu.Lock()
		l.tasks = nil
		l.mu.Unlock()
		l.doneOnce.Do(func() { close(l.done) })
	}
	<-l.done
}

func (l *Loop) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.cond.Broadcast()
}

func (l *Loop) run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer l.doneOnce.Do(func() { close(l.done) })

	l.debugLog("loop started")
	if l.config.OnStart != nil {
		l.config.OnStart(ctx)
	}

	for {
		l.mu.Lock()
		for len(l.tasks) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			l.debugLog("loop stopped")
			return
		}
		batch := l.tasks
		l.tasks = nil
		l.mu.Unlock()

		for _, task := range batch {
			task(ctx)
		}
	}
}
