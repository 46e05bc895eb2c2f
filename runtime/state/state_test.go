package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentruntime/core/runtime/message"
)

func TestCloneIsIndependentOfOriginal(t *testing.T) {
	s := State{Messages: []message.Message{{Role: message.RoleUser, Text: "hi"}}, Metadata: map[string]any{"k": "v"}}
	clone := s.Clone()
	clone.Messages[0].Text = "changed"
	clone.Metadata["k"] = "changed"

	require.Equal(t, "hi", s.Messages[0].Text)
	require.Equal(t, "v", s.Metadata["k"])
}

func TestNeedsResponseTrueOnlyForAssistantWithPendingToolCalls(t *testing.T) {
	s := State{Messages: []message.Message{
		{Role: message.RoleAssistant, ToolCalls: []message.ToolCall{{CallID: "c1"}}},
	}}
	require.True(t, s.NeedsResponse())

	s2 := State{Messages: []message.Message{{Role: message.RoleAssistant, Text: "done"}}}
	require.False(t, s2.NeedsResponse())

	require.False(t, State{}.NeedsResponse())
}

func TestApplyDeltaReplacesWholesale(t *testing.T) {
	s := State{Todos: []Todo{{ID: "1", Content: "old", Status: TodoPending}}}
	out := s.Apply(Delta{Todos: []Todo{{ID: "2", Content: "new", Status: TodoInProgress}}})
	require.Len(t, out.Todos, 1)
	require.Equal(t, "2", out.Todos[0].ID)
}

func TestApplyNilDeltaFieldsLeaveStateUntouched(t *testing.T) {
	s := State{Todos: []Todo{{ID: "1"}}, Metadata: map[string]any{"k": "v"}}
	out := s.Apply(Delta{})
	require.Equal(t, s.Todos, out.Todos)
	require.Equal(t, s.Metadata, out.Metadata)
}

func TestApplyMergesMetadataKeys(t *testing.T) {
	s := State{Metadata: map[string]any{"a": 1}}
	out := s.Apply(Delta{Metadata: map[string]any{"b": 2}})
	require.Equal(t, 1, out.Metadata["a"])
	require.Equal(t, 2, out.Metadata["b"])
}

func TestLastMessageEmpty(t *testing.T) {
	_, ok := State{}.LastMessage()
	require.False(t, ok)
}
