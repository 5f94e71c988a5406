package logger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrAuditorClosed is returned by Close when called twice.
var ErrAuditorClosed = errors.New("auditor closed")

// DefaultQueueSize bounds the number of events waiting for the sink.
const DefaultQueueSize = 1024

// AsyncAuditor is the default Auditor. Emission is a non-blocking channel
// send; a single goroutine drains the queue into the sink. Overflow drops the
// event, never the caller's decision.
type AsyncAuditor struct {
	sink   Sink
	queue  chan Event
	done   chan struct{}
	log    *zap.Logger
	now    func() time.Time
	onDrop func(eventType string)

	mu      sync.RWMutex // guards closed against concurrent sends
	closed  bool
	dropped atomic.Int64
	written atomic.Int64
}

// AsyncOption configures an AsyncAuditor.
type AsyncOption func(*AsyncAuditor)

// WithQueueSize overrides DefaultQueueSize.
func WithQueueSize(n int) AsyncOption {
	return func(a *AsyncAuditor) {
		if n > 0 {
			a.queue = make(chan Event, n)
		}
	}
}

// WithLogger sets the operational logger used to report sink failures.
func WithLogger(log *zap.Logger) AsyncOption {
	return func(a *AsyncAuditor) {
		if log != nil {
			a.log = log
		}
	}
}

// WithDropHook is called (on the emitting goroutine) for every dropped event.
func WithDropHook(fn func(eventType string)) AsyncOption {
	return func(a *AsyncAuditor) { a.onDrop = fn }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) AsyncOption {
	return func(a *AsyncAuditor) { a.now = now }
}

// NewAsyncAuditor starts the drain goroutine. Close must be called to flush.
func NewAsyncAuditor(sink Sink, opts ...AsyncOption) *AsyncAuditor {
	a := &AsyncAuditor{
		sink:  sink,
		queue: make(chan Event, DefaultQueueSize),
		done:  make(chan struct{}),
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With(zap.String("component", "audit"))
	go a.drain()
	return a
}

func (a *AsyncAuditor) drain() {
	defer close(a.done)
	for e := range a.queue {
		if err := a.sink.Write(e); err != nil {
			a.log.Warn("audit sink write failed",
				zap.String("event_type", e.Type),
				zap.Error(err))
			continue
		}
		a.written.Add(1)
	}
}

func (a *AsyncAuditor) enqueue(e Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		a.drop(e.Type)
		return
	}
	select {
	case a.queue <- e:
	default:
		a.drop(e.Type)
	}
}

func (a *AsyncAuditor) drop(eventType string) {
	a.dropped.Add(1)
	if a.onDrop != nil {
		a.onDrop(eventType)
	}
}

// LogSecurityEvent queues a security event.
func (a *AsyncAuditor) LogSecurityEvent(eventType string, details map[string]any) {
	a.enqueue(newSecurityEvent(a.now(), eventType, details))
}

// LogRequest queues a request record after masking the user id and
// truncating the resource summary.
func (a *AsyncAuditor) LogRequest(rec RequestRecord) {
	a.enqueue(newRequestEvent(a.now(), rec))
}

// Dropped returns the number of events lost to overflow or late emission.
func (a *AsyncAuditor) Dropped() int64 { return a.dropped.Load() }

// Written returns the number of events the sink accepted.
func (a *AsyncAuditor) Written() int64 { return a.written.Load() }

// Close stops accepting events, drains the queue and closes the sink. If ctx
// expires first, Close returns ctx.Err and the sink is closed in the
// background once the drain goroutine has finished.
func (a *AsyncAuditor) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrAuditorClosed
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-ctx.Done():
		go a.closeSinkWhenDrained()
		return ctx.Err()
	}
	return a.sink.Close()
}

func (a *AsyncAuditor) closeSinkWhenDrained() {
	<-a.done
	if err := a.sink.Close(); err != nil {
		a.log.Warn("audit sink close failed", zap.Error(err))
	}
}
