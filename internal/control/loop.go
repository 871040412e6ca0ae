// ABOUTME: Single-goroutine event loop for timer state
// ABOUTME: Serializes commands and scheduled ticks onto one control goroutine
package control

import (
	"context"
	"errors"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

const defaultQueueSize = 64

var (
	// ErrStopped is returned by TryPost once the loop is stopped
	ErrStopped = errors.New("control loop stopped")
	// ErrQueueFull is returned by TryPost when the queue has no free slot
	ErrQueueFull = errors.New("control queue full")
)

// Loop runs posted funcs one at a time, in order, on its own goroutine
type Loop struct {
	tasks  chan func()
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
}

// NewLoop creates a loop. Call Start before posting work.
func NewLoop() *Loop {
	ctx, cancel := context.WithCancel(context.Background())

	return &Loop{
		tasks:  make(chan func(), defaultQueueSize),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start runs the loop on a new goroutine
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		l.started.Store(true)
		go l.run()
	})
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		select {
		case <-l.ctx.Done():
			return
		case fn := <-l.tasks:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Control task panicked: %v\n%s", r, debug.Stack())
		}
	}()
	fn()
}

// Post queues fn, waiting for a free slot if the queue is full. It returns
// false once the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.ctx.Done():
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.ctx.Done():
		return false
	}
}

// TryPost queues fn if a slot is free and never blocks
func (l *Loop) TryPost(fn func()) error {
	select {
	case <-l.ctx.Done():
		return ErrStopped
	default:
	}

	select {
	case l.tasks <- fn:
		return nil
	default:
		return ErrQueueFull
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from a func already running on the loop.
func (l *Loop) Do(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}

	select {
	case <-finished:
		return true
	case <-l.done:
		// The loop stopped before getting to fn
		select {
		case <-finished:
			return true
		default:
			return false
		}
	}
}

// Schedule runs fn on the loop after d. Calling the returned func before fn
// has been posted prevents it from running.
func (l *Loop) Schedule(d time.Duration, fn func()) (cancel func()) {
	var cancelled atomic.Bool

	t := time.AfterFunc(d, func() {
		if cancelled.Load() {
			return
		}
		l.Post(func() {
			if cancelled.Load() {
				return
			}
			fn()
		})
	})

	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

// Stop stops the loop and waits for the running task to return. Queued
// tasks that have not started are dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.cancel()
		if l.started.Load() {
			<-l.done
		}
	})
}

// Done is closed when the loop goroutine exits
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
