package event

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/HerbHall/wardwatch/pkg/plugin"
	"go.uber.org/zap"
)

func TestBus_PublishDeliversToTopicAndWildcard(t *testing.T) {
	bus := NewBus(zap.NewNop())
	var topicHits, allHits int

	bus.Subscribe("monitor.vitals.refreshed", func(context.Context, plugin.Event) { topicHits++ })
	bus.Subscribe("monitor.bed.added", func(context.Context, plugin.Event) { t.Error("wrong topic delivered") })
	bus.SubscribeAll(func(context.Context, plugin.Event) { allHits++ })

	if err := bus.Publish(context.Background(), plugin.Event{Topic: "monitor.vitals.refreshed"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if topicHits != 1 || allHits != 1 {
		t.Errorf("hits topic=%d all=%d, want 1 and 1", topicHits, allHits)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop())
	var hits int
	unsub := bus.Subscribe("t", func(context.Context, plugin.Event) { hits++ })
	unsubAll := bus.SubscribeAll(func(context.Context, plugin.Event) { hits++ })

	unsub()
	unsubAll()
	_ = bus.Publish(context.Background(), plugin.Event{Topic: "t"})
	if hits != 0 {
		t.Errorf("hits = %d after unsubscribe, want 0", hits)
	}
}

func TestBus_PanickingHandlerIsolated(t *testing.T) {
	bus := NewBus(zap.NewNop())
	var delivered bool
	bus.Subscribe("t", func(context.Context, plugin.Event) { panic("boom") })
	bus.Subscribe("t", func(context.Context, plugin.Event) { delivered = true })

	_ = bus.Publish(context.Background(), plugin.Event{Topic: "t"})
	if !delivered {
		t.Error("second handler not called after first panicked")
	}
}

func TestBus_PublishAsyncWait(t *testing.T) {
	bus := NewBus(nil)
	var hits atomic.Int32
	for i := 0; i < 5; i++ {
		bus.Subscribe("t", func(context.Context, plugin.Event) { hits.Add(1) })
	}

	bus.PublishAsync(context.Background(), plugin.Event{Topic: "t"})
	bus.Wait()
	if got := hits.Load(); got != 5 {
		t.Errorf("hits = %d, want 5", got)
	}
}
