package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPatchDanglingToolCallsInsertsCancellation(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Text: "go"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{CallID: "c1", Name: "search"}}},
	}
	out := PatchDanglingToolCalls(msgs)
	require.Len(t, out, 3)
	require.Equal(t, RoleTool, out[2].Role)
	require.True(t, out[2].ToolResults[0].IsError)
	require.Equal(t, "c1", out[2].ToolResults[0].ToolCallID)
}

func TestPatchDanglingToolCallsLeavesMatchedCallsAlone(t *testing.T) {
	msgs := []Message{
		{Role: RoleAssistant, ToolCalls: []ToolCall{{CallID: "c1", Name: "search"}}},
		{Role: RoleTool, ToolResults: []ToolResult{{ToolCallID: "c1", Name: "search", Content: "ok"}}},
	}
	out := PatchDanglingToolCalls(msgs)
	require.Equal(t, msgs, out)
}

func TestPatchDanglingToolCallsIdempotent(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Text: "go"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{CallID: "c1", Name: "search"}, {CallID: "c2", Name: "fetch"}}},
	}
	once := PatchDanglingToolCalls(msgs)
	twice := PatchDanglingToolCalls(once)
	require.Equal(t, once, twice)
}
