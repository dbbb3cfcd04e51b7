// Package mainloop provides the single goroutine that owns view state.
// Work produced elsewhere is handed to it with Post and runs in FIFO order.
package mainloop

import (
	"context"
	"sync"
)

// Loop runs posted functions one at a time on the goroutine that called Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// New creates a Loop. Nothing runs until Run is called.
func New() *Loop {
	return &Loop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Post queues fn to run on the loop. It never blocks.
// Functions posted after Stop are dropped.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.stopped:
		return
	default:
	}

	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Stop makes Run return after the function currently running, if any.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.stopped) })
}

// Run drains posted functions until Stop is called or ctx is done.
// It returns ctx.Err() when the context ended the loop, nil otherwise.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			select {
			case <-l.stopped:
				return nil
			default:
			}
			fn()
		}

		select {
		case <-l.stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}
