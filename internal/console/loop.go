package console

import (
	"context"
	"sync"
)

// Executor schedules session work. Post runs fn on the session loop, where
// all state and rendering happens. Go runs blocking work (backend calls)
// off the loop; such work hands its result back through Post.
type Executor interface {
	Post(fn func())
	Go(fn func())
}

// Loop is a single-goroutine Executor.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

// NewLoop creates a Loop with room for buffer queued tasks.
func NewLoop(buffer int) *Loop {
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run executes posted tasks in order until ctx is done or Close is called.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn. Tasks posted after Close are dropped.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
	case l.tasks <- fn:
	}
}

// Go runs fn on its own goroutine.
func (l *Loop) Go(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
}

// Close stops the loop and waits for outstanding Go calls.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
	l.wg.Wait()
}

// Inline runs everything synchronously on the caller's goroutine. Backend
// calls complete before Dispatch returns, which makes handler tests
// deterministic. Timers still fire on their own goroutines.
type Inline struct{}

func (Inline) Post(fn func()) { fn() }
func (Inline) Go(fn func())   { fn() }
