// Package redis provides a Redis-backed implementation of agent.Presence
// for multi-node deployments, grounded on the teacher registry package's
// direct *redis.Client wiring (registry/result_stream.go): plain
// HSet/HDel/HGetAll/Expire calls on one hash per topic and a redis.Nil
// sentinel check, rather than a replicated-map abstraction.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentruntime/core/runtime/agent"
)

// defaultTTL bounds how long a tracked entry survives without a refreshing
// Track call, so a node that crashes without calling Untrack does not leave
// a permanent phantom viewer.
const defaultTTL = 2 * time.Minute

// Presence is a cluster-shared implementation of agent.Presence backed by
// one Redis hash per topic (field = agent id, value = JSON-encoded
// agent.PresenceMeta).
type Presence struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a Presence backed by rdb. ttl defaults to 2 minutes if zero;
// it bounds how long an entry survives between Track refreshes.
func New(rdb *redis.Client, ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Presence{rdb: rdb, ttl: ttl}
}

func hashKey(topic string) string { return "presence:" + topic }

// Track implements agent.Presence. pid is recorded in the stored metadata
// only implicitly (via the caller-supplied meta); the hash field key is the
// tracked id itself, so multiple nodes tracking the same id overwrite each
// other's view, matching a single logical agent having one home node.
func (p *Presence) Track(ctx context.Context, _, topic, id string, meta agent.PresenceMeta) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("presence: marshal meta: %w", err)
	}
	key := hashKey(topic)
	if err := p.rdb.HSet(ctx, key, id, payload).Err(); err != nil {
		return fmt.Errorf("presence: track %s/%s: %w", topic, id, err)
	}
	if err := p.rdb.Expire(ctx, key, p.ttl).Err(); err != nil {
		return fmt.Errorf("presence: refresh ttl for %s: %w", topic, err)
	}
	return nil
}

// Untrack implements agent.Presence.
func (p *Presence) Untrack(ctx context.Context, _, topic, id string) error {
	if err := p.rdb.HDel(ctx, hashKey(topic), id).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("presence: untrack %s/%s: %w", topic, id, err)
	}
	return nil
}

// List implements agent.Presence.
func (p *Presence) List(ctx context.Context, topic string) (map[string][]agent.PresenceMeta, error) {
	raw, err := p.rdb.HGetAll(ctx, hashKey(topic)).Result()
	if err != nil {
		return nil, fmt.Errorf("presence: list %s: %w", topic, err)
	}
	out := make(map[string][]agent.PresenceMeta, len(raw))
	for id, payload := range raw {
		var meta agent.PresenceMeta
		if err := json.Unmarshal([]byte(payload), &meta); err != nil {
			continue
		}
		out[id] = []agent.PresenceMeta{meta}
	}
	return out, nil
}
