package testutil

import (
	"context"
	"sync"

	"github.com/HerbHall/labtrack/pkg/plugin"
)

var _ plugin.EventBus = (*MockBus)(nil)

type mockSub struct {
	id      int
	topic   string // empty matches every topic
	handler plugin.EventHandler
}

// MockBus records every published event and delivers it synchronously to
// subscribers, including PublishAsync, so assertions never race delivery.
type MockBus struct {
	mu     sync.Mutex
	events []plugin.Event
	subs   []mockSub
	nextID int
}

// NewMockBus returns an empty MockBus.
func NewMockBus() *MockBus {
	return &MockBus{}
}

func (b *MockBus) Publish(ctx context.Context, event plugin.Event) error {
	b.mu.Lock()
	b.events = append(b.events, event)
	var targets []plugin.EventHandler
	for _, s := range b.subs {
		if s.topic == "" || s.topic == event.Topic {
			targets = append(targets, s.handler)
		}
	}
	b.mu.Unlock()

	for _, h := range targets {
		h(ctx, event)
	}
	return nil
}

func (b *MockBus) PublishAsync(ctx context.Context, event plugin.Event) {
	_ = b.Publish(ctx, event)
}

func (b *MockBus) Subscribe(topic string, handler plugin.EventHandler) func() {
	return b.add(topic, handler)
}

func (b *MockBus) SubscribeAll(handler plugin.EventHandler) func() {
	return b.add("", handler)
}

func (b *MockBus) add(topic string, handler plugin.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, mockSub{id: id, topic: topic, handler: handler})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Events returns a copy of all recorded events in publish order.
func (b *MockBus) Events() []plugin.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]plugin.Event(nil), b.events...)
}

// Topics returns the topic of each recorded event in publish order.
func (b *MockBus) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.Topic
	}
	return out
}

// Reset forgets recorded events. Subscriptions stay.
func (b *MockBus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}
