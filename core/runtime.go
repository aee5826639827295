package orchestration

import (
	"sync"
	"sync/atomic"

	"github.com/koscakluka/vox-core/core/events"
)

const sessionQueueCapacity = 32

// sessionRuntime serializes every session event through a single dispatch
// goroutine. Device callbacks, the reply stream, and public control methods
// all enqueue; only the dispatch goroutine mutates session state.
type sessionRuntime struct {
	queue   chan events.Event
	closing chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once
	started   atomic.Bool
}

func newSessionRuntime() *sessionRuntime {
	return &sessionRuntime{
		queue:   make(chan events.Event, sessionQueueCapacity),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start spins up the dispatch goroutine. It reports false when the runtime
// already ended or was started before.
func (r *sessionRuntime) start(handle func(events.Event)) (ok bool) {
	if r == nil || r.isClosed() {
		return false
	}

	r.startOnce.Do(func() {
		if r.isClosed() {
			return
		}
		ok = true
		r.started.Store(true)

		go func() {
			defer close(r.done)
			for {
				select {
				case <-r.closing:
					return
				case event := <-r.queue:
					if r.isClosed() {
						return
					}
					handle(event)
				}
			}
		}()
	})

	return ok
}

func (r *sessionRuntime) end() {
	if r == nil {
		return
	}
	r.endOnce.Do(func() { close(r.closing) })
}

// awaitCompletion blocks until the dispatch goroutine exits. Safe to call on
// a runtime that never started.
func (r *sessionRuntime) awaitCompletion() {
	if r == nil || !r.started.Load() {
		return
	}
	<-r.done
}

func (r *sessionRuntime) enqueue(event events.Event) bool {
	if r == nil || r.isClosed() {
		return false
	}

	select {
	case <-r.closing:
		return false
	case r.queue <- event:
		return true
	}
}

func (r *sessionRuntime) isClosed() bool {
	if r == nil {
		return false
	}

	select {
	case <-r.closing:
		return true
	default:
		return false
	}
}
