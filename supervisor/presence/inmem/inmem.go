// Package inmem provides an in-memory implementation of agent.Presence.
//
// It is intended for tests and single-node deployments. Multi-node
// deployments should use a shared backend (see supervisor/presence/redis)
// so every node observes the same viewer set.
package inmem

import (
	"context"
	"sync"

	"github.com/agentruntime/core/runtime/agent"
)

// Presence is an in-memory, process-local implementation of agent.Presence,
// grounded on the same map+mutex registry idiom as runtime/hooks.bus.
type Presence struct {
	mu     sync.RWMutex
	topics map[string]map[string]agent.PresenceMeta
}

// New returns an empty Presence.
func New() *Presence {
	return &Presence{topics: make(map[string]map[string]agent.PresenceMeta)}
}

// Track implements agent.Presence. pid is accepted for interface
// conformance but otherwise unused: a single process has exactly one view
// of its own in-memory state.
func (p *Presence) Track(_ context.Context, _, topic, id string, meta agent.PresenceMeta) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries, ok := p.topics[topic]
	if !ok {
		entries = make(map[string]agent.PresenceMeta)
		p.topics[topic] = entries
	}
	entries[id] = meta
	return nil
}

// Untrack implements agent.Presence.
func (p *Presence) Untrack(_ context.Context, _, topic, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entries, ok := p.topics[topic]; ok {
		delete(entries, id)
	}
	return nil
}

// List implements agent.Presence.
func (p *Presence) List(_ context.Context, topic string) (map[string][]agent.PresenceMeta, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries := p.topics[topic]
	out := make(map[string][]agent.PresenceMeta, len(entries))
	for id, meta := range entries {
		out[id] = []agent.PresenceMeta{meta}
	}
	return out, nil
}
