// Package event provides the in-process event bus shared by LabTrack modules.
package event

import (
	"context"
	"sync"

	"github.com/HerbHall/labtrack/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guard.
var _ plugin.EventBus = (*Bus)(nil)

type subscription struct {
	id      uint64
	handler plugin.EventHandler
}

// Bus is a synchronous publish/subscribe bus with per-topic and wildcard
// subscribers. Handler panics are recovered and logged.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	topics   map[string][]subscription
	wildcard []subscription
	logger   *zap.Logger
}

// NewBus creates an empty Bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		topics: make(map[string][]subscription),
		logger: logger,
	}
}

// Subscribe registers handler for events on topic.
func (b *Bus) Subscribe(topic string, handler plugin.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], subscription{id: id, handler: handler})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.topics[topic] = remove(b.topics[topic], id)
	}
}

// SubscribeAll registers handler for every event.
func (b *Bus) SubscribeAll(handler plugin.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.wildcard = append(b.wildcard, subscription{id: id, handler: handler})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.wildcard = remove(b.wildcard, id)
	}
}

// Publish delivers event to all matching handlers before returning.
func (b *Bus) Publish(ctx context.Context, event plugin.Event) error {
	for _, h := range b.handlers(event.Topic) {
		b.invoke(ctx, h, event)
	}
	return nil
}

// PublishAsync delivers event to each matching handler on its own goroutine.
func (b *Bus) PublishAsync(ctx context.Context, event plugin.Event) {
	for _, h := range b.handlers(event.Topic) {
		go b.invoke(ctx, h, event)
	}
}

func (b *Bus) handlers(topic string) []plugin.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]plugin.EventHandler, 0, len(b.topics[topic])+len(b.wildcard))
	for _, s := range b.topics[topic] {
		out = append(out, s.handler)
	}
	for _, s := range b.wildcard {
		out = append(out, s.handler)
	}
	return out
}

func (b *Bus) invoke(ctx context.Context, h plugin.EventHandler, event plugin.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", event.Topic),
				zap.Any("panic", r),
			)
		}
	}()
	h(ctx, event)
}

func remove(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
