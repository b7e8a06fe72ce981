package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/wardwatch/pkg/activity"
)

// Drop reasons reported on wardwatch_audit_events_dropped_total.
const (
	dropInvalid   = "invalid"
	dropQueueFull = "queue_full"
	dropStopped   = "stopped"
)

// request is one unit of work for the writer: an event to persist, or a
// flush barrier that is closed once everything queued ahead of it is done.
type request struct {
	event   *activity.Event
	flushed chan struct{}
}

// Logger is the best-effort activity recorder. Record never blocks on the
// store and never reports failure to its caller; a single writer goroutine
// persists events in the order they were recorded.
type Logger struct {
	store        *Store
	logger       *zap.Logger
	writeTimeout time.Duration
	now          func() time.Time

	queue chan request

	// mu guards closed and started. Record holds the read lock across its
	// non-blocking send so that Stop, once it holds the write lock, knows no
	// further events will be queued.
	mu      sync.RWMutex
	closed  bool
	started bool
	stop    chan struct{}
	done    chan struct{}

	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewLogger returns a stopped Logger writing to store through a queue of
// queueSize events.
func NewLogger(store *Store, queueSize int, writeTimeout time.Duration, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = DefaultConfig().QueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultConfig().FlushTimeout
	}
	return &Logger{
		store:        store,
		logger:       logger,
		writeTimeout: writeTimeout,
		now:          time.Now,
		queue:        make(chan request, queueSize),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Record validates e, stamps it with an id and creation time, and queues it
// for writing. Invalid events and events that do not fit in the queue are
// logged and dropped.
func (l *Logger) Record(_ context.Context, e activity.Event) {
	if err := e.Validate(); err != nil {
		l.drop(dropInvalid, &e, err)
		return
	}
	e.ID = uuid.NewString()
	e.CreatedAt = l.now().UTC()
	if e.Severity == "" {
		e.Severity = activity.SeverityLow
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.drop(dropStopped, &e, nil)
		return
	}
	select {
	case l.queue <- request{event: &e}:
		queueDepth.Set(float64(len(l.queue)))
	default:
		l.drop(dropQueueFull, &e, nil)
	}
}

func (l *Logger) drop(reason string, e *activity.Event, err error) {
	l.dropped.Add(1)
	eventsDroppedTotal.WithLabelValues(reason).Inc()
	fields := []zap.Field{
		zap.String("reason", reason),
		zap.String("activity_type", string(e.Category)),
		zap.String("user_id", e.ActorUserID),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.logger.Error("activity event dropped", fields...)
}

// Start launches the writer. Calling it twice does nothing.
func (l *Logger) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.closed {
		return
	}
	l.started = true
	go l.run()
}

// Stop refuses further events, waits for the queued ones to be written,
// and stops the writer.
func (l *Logger) Stop() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	started := l.started
	close(l.stop)
	l.mu.Unlock()

	if started {
		<-l.done
	}
}

// Flush waits until every event recorded before the call has been written
// or has failed. It returns ctx's error if that takes too long. A Stop that
// begins while Flush waits for queue space ends the wait once the queue has
// drained.
func (l *Logger) Flush(ctx context.Context) error {
	l.mu.RLock()
	idle := l.closed || !l.started
	l.mu.RUnlock()
	if idle {
		return nil
	}

	var barrier chan struct{}
	b := make(chan struct{})
	select {
	case l.queue <- request{flushed: b}:
		barrier = b
	case <-l.stop:
	case <-ctx.Done():
		return fmt.Errorf("flush activity log: %w", ctx.Err())
	}

	select {
	case <-barrier:
	case <-l.done:
	case <-ctx.Done():
		return fmt.Errorf("flush activity log: %w", ctx.Err())
	}
	return nil
}

// Query flushes pending writes, bounded by the write timeout, and then
// reads from the store. A flush that times out is logged and the query
// still runs.
func (l *Logger) Query(ctx context.Context, f activity.Filter, limit int) ([]activity.Record, error) {
	flushCtx, cancel := context.WithTimeout(ctx, l.writeTimeout)
	err := l.Flush(flushCtx)
	cancel()
	if err != nil {
		l.logger.Warn("querying activity log with writes still pending", zap.Error(err))
	}
	return l.store.Query(ctx, f, limit)
}

// Pending is the number of queued requests.
func (l *Logger) Pending() int { return len(l.queue) }

// Dropped is the number of events dropped before reaching the store.
func (l *Logger) Dropped() uint64 { return l.dropped.Load() }

// Failed is the number of events the store rejected.
func (l *Logger) Failed() uint64 { return l.failed.Load() }

func (l *Logger) run() {
	defer close(l.done)
	for {
		select {
		case req := <-l.queue:
			l.handle(req)
		case <-l.stop:
			for {
				select {
				case req := <-l.queue:
					l.handle(req)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) handle(req request) {
	defer queueDepth.Set(float64(len(l.queue)))
	if req.flushed != nil {
		close(req.flushed)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.writeTimeout)
	defer cancel()
	if err := l.store.Insert(ctx, req.event); err != nil {
		l.failed.Add(1)
		writeFailuresTotal.Inc()
		l.logger.Error("failed to persist activity event",
			zap.String("id", req.event.ID),
			zap.String("activity_type", string(req.event.Category)),
			zap.String("user_id", req.event.ActorUserID),
			zap.Error(err),
		)
		return
	}
	eventsPersistedTotal.Inc()
}
