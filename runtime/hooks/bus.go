// Package hooks implements the two-topic publish/subscribe core the agent
// actor uses to broadcast lifecycle and debug events (SPEC_FULL.md §4.1).
// Each Agent actor owns two independent Bus instances — Lifecycle and Debug
// — so a subscriber interested only in status changes never pays for the
// finer-grained debug stream, and vice versa.
package hooks

import (
	"context"
	"errors"
	"sync"
)

type (
	// Bus publishes events to registered subscribers in a synchronous
	// fan-out. Events are delivered in the publisher's goroutine and in
	// subscriber registration order; iteration stops at the first
	// subscriber error, the same fail-fast contract a critical subscriber
	// (for example, memory persistence) relies on to halt delivery.
	Bus interface {
		// Publish delivers event to every currently registered subscriber.
		Publish(ctx context.Context, event Event) error
		// Register adds a subscriber and returns a Subscription that can be
		// closed to unregister it.
		Register(sub Subscriber) (Subscription, error)
	}

	// Subscriber reacts to published events.
	Subscriber interface {
		HandleEvent(ctx context.Context, event Event) error
	}

	// SubscriberFunc adapts a plain function to the Subscriber interface.
	SubscriberFunc func(ctx context.Context, event Event) error

	// Subscription represents an active registration on a Bus.
	Subscription interface {
		// Close removes the subscriber. Idempotent and safe to call more
		// than once.
		Close() error
	}

	bus struct {
		mu      sync.RWMutex
		entries []*subscription
	}

	subscription struct {
		bus  *bus
		sub  Subscriber
		once sync.Once
	}
)

// HandleEvent calls f.
func (f SubscriberFunc) HandleEvent(ctx context.Context, event Event) error { return f(ctx, event) }

// NewBus constructs an in-memory, thread-safe event bus.
func NewBus() Bus {
	return &bus{}
}

// Publish fans event out to a snapshot of the currently registered
// subscribers in registration order, so registrations or unregistrations
// during Publish do not affect the delivery already in progress.
func (b *bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.entries))
	for _, s := range b.entries {
		subs = append(subs, s.sub)
	}
	b.mu.RUnlock()
	for _, s := range subs {
		if err := s.HandleEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Register adds sub to the bus.
func (b *bus) Register(sub Subscriber) (Subscription, error) {
	if sub == nil {
		return nil, errors.New("hooks: subscriber is required")
	}
	s := &subscription{bus: b, sub: sub}
	b.mu.Lock()
	b.entries = append(b.entries, s)
	b.mu.Unlock()
	return s, nil
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		for i, entry := range s.bus.entries {
			if entry == s {
				s.bus.entries = append(s.bus.entries[:i], s.bus.entries[i+1:]...)
				break
			}
		}
		s.bus.mu.Unlock()
	})
	return nil
}
