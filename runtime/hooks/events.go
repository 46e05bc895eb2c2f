package hooks

import "time"

// EventType identifies the concrete shape of an Event without a type
// switch, so subscribers can filter cheaply.
type EventType string

const (
	// Lifecycle topic event types (SPEC_FULL.md §6).
	StatusChanged      EventType = "status_changed"
	MessageReceived    EventType = "message_received"
	ToolResponseCreated EventType = "tool_response_created"
	RetriesExceeded    EventType = "retries_exceeded"

	// Debug topic event types.
	SubagentStarted       EventType = "subagent_started"
	SubagentStatusChanged EventType = "subagent_status_changed"
	SubagentCompleted     EventType = "subagent_completed"
	SubagentError         EventType = "subagent_error"
	MiddlewareHookFired   EventType = "middleware_hook_fired"
	DeltaMerged           EventType = "delta_merged"
)

// Event is the interface every hook event implements. Concrete event types
// carry typed payloads; subscribers use a type switch to read them.
type Event interface {
	Type() EventType
	AgentID() string
	Timestamp() int64
}

type baseEvent struct {
	agentID   string
	timestamp int64
}

func newBaseEvent(agentID string) baseEvent {
	return baseEvent{agentID: agentID, timestamp: time.Now().UnixMilli()}
}

func (e baseEvent) AgentID() string  { return e.agentID }
func (e baseEvent) Timestamp() int64 { return e.timestamp }

type (
	// StatusChangedEvent fires on every agent status transition.
	StatusChangedEvent struct {
		baseEvent
		From, To string
	}

	// MessageReceivedEvent fires when a message is appended to State.
	MessageReceivedEvent struct {
		baseEvent
		Role string
	}

	// ToolResponseCreatedEvent fires once a tool-result message is
	// assembled and appended to State.
	ToolResponseCreatedEvent struct {
		baseEvent
		ToolCallIDs []string
	}

	// RetriesExceededEvent fires when the execution mode engine gives up
	// after exceeding the max-failure-count budget. Exceeding max-runs ends
	// the run with an error but does not publish this event.
	RetriesExceededEvent struct {
		baseEvent
		Reason string
	}

	// SubagentStartedEvent fires on the PARENT's debug topic when a
	// sub-agent begins a scoped task, tagged with the sub-agent's id so a
	// single subscriber can reconstruct the whole tree.
	SubagentStartedEvent struct {
		baseEvent
		SubAgentID string
		ParentID   string
		StartedAt  int64
	}

	// SubagentStatusChangedEvent mirrors a sub-agent's status transition
	// onto the parent's debug topic.
	SubagentStatusChangedEvent struct {
		baseEvent
		SubAgentID string
		Status     string
	}

	// SubagentCompletedEvent fires when a sub-agent's run finishes.
	SubagentCompletedEvent struct {
		baseEvent
		SubAgentID string
		DurationMS int64
	}

	// SubagentErrorEvent fires when a sub-agent's run fails.
	SubagentErrorEvent struct {
		baseEvent
		SubAgentID string
		Reason     string
	}

	// MiddlewareHookFiredEvent fires whenever a before_model or
	// after_model hook executes, for fine-grained tracing.
	MiddlewareHookFiredEvent struct {
		baseEvent
		Middleware string
		Hook       string
	}

	// DeltaMergedEvent fires each time a streaming delta is merged into the
	// in-flight accumulator.
	DeltaMergedEvent struct {
		baseEvent
		Index int
	}
)

func (e *StatusChangedEvent) Type() EventType       { return StatusChanged }
func (e *MessageReceivedEvent) Type() EventType     { return MessageReceived }
func (e *ToolResponseCreatedEvent) Type() EventType { return ToolResponseCreated }
func (e *RetriesExceededEvent) Type() EventType     { return RetriesExceeded }

func (e *SubagentStartedEvent) Type() EventType       { return SubagentStarted }
func (e *SubagentStatusChangedEvent) Type() EventType { return SubagentStatusChanged }
func (e *SubagentCompletedEvent) Type() EventType     { return SubagentCompleted }
func (e *SubagentErrorEvent) Type() EventType         { return SubagentError }
func (e *MiddlewareHookFiredEvent) Type() EventType   { return MiddlewareHookFired }
func (e *DeltaMergedEvent) Type() EventType           { return DeltaMerged }

// NewStatusChangedEvent constructs a StatusChangedEvent.
func NewStatusChangedEvent(agentID, from, to string) *StatusChangedEvent {
	return &StatusChangedEvent{baseEvent: newBaseEvent(agentID), From: from, To: to}
}

// NewMessageReceivedEvent constructs a MessageReceivedEvent.
func NewMessageReceivedEvent(agentID, role string) *MessageReceivedEvent {
	return &MessageReceivedEvent{baseEvent: newBaseEvent(agentID), Role: role}
}

// NewToolResponseCreatedEvent constructs a ToolResponseCreatedEvent.
func NewToolResponseCreatedEvent(agentID string, toolCallIDs []string) *ToolResponseCreatedEvent {
	return &ToolResponseCreatedEvent{baseEvent: newBaseEvent(agentID), ToolCallIDs: toolCallIDs}
}

// NewRetriesExceededEvent constructs a RetriesExceededEvent.
func NewRetriesExceededEvent(agentID, reason string) *RetriesExceededEvent {
	return &RetriesExceededEvent{baseEvent: newBaseEvent(agentID), Reason: reason}
}

// NewSubagentStartedEvent constructs a SubagentStartedEvent.
func NewSubagentStartedEvent(parentAgentID, subAgentID, parentID string) *SubagentStartedEvent {
	e := &SubagentStartedEvent{baseEvent: newBaseEvent(parentAgentID), SubAgentID: subAgentID, ParentID: parentID}
	e.StartedAt = e.Timestamp()
	return e
}

// NewSubagentStatusChangedEvent constructs a SubagentStatusChangedEvent.
func NewSubagentStatusChangedEvent(parentAgentID, subAgentID, status string) *SubagentStatusChangedEvent {
	return &SubagentStatusChangedEvent{baseEvent: newBaseEvent(parentAgentID), SubAgentID: subAgentID, Status: status}
}

// NewSubagentCompletedEvent constructs a SubagentCompletedEvent.
func NewSubagentCompletedEvent(parentAgentID, subAgentID string, duration time.Duration) *SubagentCompletedEvent {
	return &SubagentCompletedEvent{baseEvent: newBaseEvent(parentAgentID), SubAgentID: subAgentID, DurationMS: duration.Milliseconds()}
}

// NewSubagentErrorEvent constructs a SubagentErrorEvent.
func NewSubagentErrorEvent(parentAgentID, subAgentID, reason string) *SubagentErrorEvent {
	return &SubagentErrorEvent{baseEvent: newBaseEvent(parentAgentID), SubAgentID: subAgentID, Reason: reason}
}

// NewMiddlewareHookFiredEvent constructs a MiddlewareHookFiredEvent.
func NewMiddlewareHookFiredEvent(agentID, middleware, hook string) *MiddlewareHookFiredEvent {
	return &MiddlewareHookFiredEvent{baseEvent: newBaseEvent(agentID), Middleware: middleware, Hook: hook}
}

// NewDeltaMergedEvent constructs a DeltaMergedEvent.
func NewDeltaMergedEvent(agentID string, index int) *DeltaMergedEvent {
	return &DeltaMergedEvent{baseEvent: newBaseEvent(agentID), Index: index}
}
