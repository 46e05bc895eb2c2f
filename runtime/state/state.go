// Package state defines an agent's mutable conversation state: the message
// list, the todo list and free-form metadata. The virtual filesystem is not
// part of State; it lives in a vfs.Server. The Agent actor is the
// exclusive owner and mutator of a State value (SPEC_FULL.md §3
// Ownership); every other subsystem only ever sees a State through the
// actor's commands and queries.
package state

import (
	"github.com/agentruntime/core/runtime/message"
)

// TodoStatus tracks the lifecycle of a single Todo entry.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
	TodoCancelled  TodoStatus = "cancelled"
)

// Todo is a single entry written by the built-in write_todos tool.
type Todo struct {
	ID      string     `json:"id"`
	Content string     `json:"content"`
	Status  TodoStatus `json:"status"`
}

// State is the per-agent conversation state. Zero value is a valid, empty
// state.
type State struct {
	Messages []message.Message `json:"messages"`
	Todos    []Todo            `json:"todos"`
	Metadata map[string]any    `json:"metadata"`
}

// Clone returns a deep-enough copy of s so tools and middleware can compute
// a modified view without mutating the actor's canonical State until the
// actor applies it (see Delta in SPEC_FULL.md §4.5).
func (s State) Clone() State {
	out := State{
		Messages: append([]message.Message(nil), s.Messages...),
		Todos:    append([]Todo(nil), s.Todos...),
	}
	if len(s.Metadata) > 0 {
		out.Metadata = make(map[string]any, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// LastMessage returns the last message and true, or the zero Message and
// false if the conversation is empty.
func (s State) LastMessage() (message.Message, bool) {
	if len(s.Messages) == 0 {
		return message.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// NeedsResponse reports whether the last message is an assistant message
// that issued tool calls with no corresponding tool message yet, which is
// the while_needs_response mode's stop condition (SPEC_FULL.md §4.2).
func (s State) NeedsResponse() bool {
	last, ok := s.LastMessage()
	if !ok {
		return false
	}
	return last.Role == message.RoleAssistant && last.HasToolCalls()
}

// Delta is a partial State produced by a tool, merged into the canonical
// State by the agent actor before the tool-result message is built. A nil
// field is left untouched; a non-nil Todos replaces State.Todos wholesale,
// while a non-nil Metadata is merged key by key into State.Metadata
// (existing keys not in the Delta are kept).
type Delta struct {
	Todos    []Todo
	Metadata map[string]any
}

// Apply merges d into s, returning the updated State.
func (s State) Apply(d Delta) State {
	out := s
	if d.Todos != nil {
		out.Todos = d.Todos
	}
	if d.Metadata != nil {
		if out.Metadata == nil {
			out.Metadata = make(map[string]any, len(d.Metadata))
		}
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
