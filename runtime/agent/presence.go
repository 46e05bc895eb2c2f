package agent

import "context"

// PresenceTopic is the well-known topic the Agent actor tracks itself
// under, read by the supervisor to decide when idle agents may be shut
// down (SPEC_FULL.md §4.1/§4.7).
const PresenceTopic = "agent_server:presence"

// PresenceMeta is the metadata payload tracked per agent_id.
type PresenceMeta struct {
	Status         Status `json:"status"`
	StartedAt      int64  `json:"started_at"`
	LastActivityAt int64  `json:"last_activity_at"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Presence is the three-operation tracking interface (spec.md §6), backed
// by an in-memory implementation for single-process deployments or a
// Redis-backed one for multi-node deployments (supervisor/presence).
type Presence interface {
	// Track registers pid under topic/id with metadata, replacing any
	// previous entry for the same (topic, id, pid).
	Track(ctx context.Context, pid, topic, id string, meta PresenceMeta) error
	// Untrack removes the (topic, id, pid) entry. Removing an entry that is
	// not present is not an error.
	Untrack(ctx context.Context, pid, topic, id string) error
	// List returns every id currently tracked under topic, each mapped to
	// the metas registered for it (normally one per pid).
	List(ctx context.Context, topic string) (map[string][]PresenceMeta, error)
}
