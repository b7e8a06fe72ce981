// Package event provides the in-memory plugin.EventBus that carries
// monitoring updates between WardWatch modules.
package event

import (
	"context"
	"sync"

	"github.com/HerbHall/wardwatch/pkg/plugin"
	"go.uber.org/zap"
)

var _ plugin.EventBus = (*Bus)(nil)

// Bus dispatches events to topic and wildcard subscribers. Publish runs
// handlers on the caller's goroutine; PublishAsync runs each handler on its
// own goroutine, tracked so Wait can drain them at shutdown. A panicking
// handler is logged and does not affect other handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	wildcard []subscription
	nextID   uint64
	inflight sync.WaitGroup
	logger   *zap.Logger
}

type subscription struct {
	id      uint64
	handler plugin.EventHandler
}

// NewBus returns an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[string][]subscription),
		logger:   logger,
	}
}

// Publish delivers event to every matching handler before returning.
func (b *Bus) Publish(ctx context.Context, event plugin.Event) error {
	for _, s := range b.matching(event.Topic) {
		b.deliver(ctx, s.handler, event)
	}
	return nil
}

// PublishAsync delivers event without waiting for handlers.
func (b *Bus) PublishAsync(ctx context.Context, event plugin.Event) {
	subs := b.matching(event.Topic)
	b.inflight.Add(len(subs))
	for _, s := range subs {
		go func(h plugin.EventHandler) {
			defer b.inflight.Done()
			b.deliver(ctx, h, event)
		}(s.handler)
	}
}

// Wait blocks until all asynchronously dispatched handlers have returned.
func (b *Bus) Wait() {
	b.inflight.Wait()
}

// Subscribe registers handler for topic.
func (b *Bus) Subscribe(topic string, handler plugin.EventHandler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[topic] = append(b.handlers[topic], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.handlers[topic] = without(b.handlers[topic], id)
		if len(b.handlers[topic]) == 0 {
			delete(b.handlers, topic)
		}
	}
}

// SubscribeAll registers handler for every topic.
func (b *Bus) SubscribeAll(handler plugin.EventHandler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.wildcard = append(b.wildcard, subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.wildcard = without(b.wildcard, id)
	}
}

// matching snapshots the handlers for topic so delivery runs unlocked.
func (b *Bus) matching(topic string) []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]subscription, 0, len(b.handlers[topic])+len(b.wildcard))
	out = append(out, b.handlers[topic]...)
	return append(out, b.wildcard...)
}

func without(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

func (b *Bus) deliver(ctx context.Context, handler plugin.EventHandler, event plugin.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", event.Topic),
				zap.String("source", event.Source),
				zap.Any("panic", r),
			)
		}
	}()
	handler(ctx, event)
}
