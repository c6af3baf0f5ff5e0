package events

import (
	"context"
	"sync"
)

// Subscription receives the events broadcast after it was created.
type Subscription struct {
	ch chan TradeEvent
}

// Events returns the channel of delivered events. It is closed by
// Hub.Unsubscribe.
func (s *Subscription) Events() <-chan TradeEvent {
	return s.ch
}

// Hub is an in-process broadcaster. Slow subscribers whose buffer is full
// miss events instead of blocking the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewHub creates a Hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

func (h *Hub) Subscribe(buffer int) *Subscription {
	sub := &Subscription{ch: make(chan TradeEvent, buffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	_, ok := h.subs[sub]
	delete(h.subs, sub)
	h.mu.Unlock()
	if ok {
		close(sub.ch)
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) broadcast(ev TradeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Publish broadcasts events in order. It never fails.
func (h *Hub) Publish(_ context.Context, events []TradeEvent) error {
	for _, ev := range events {
		h.broadcast(ev)
	}
	return nil
}
