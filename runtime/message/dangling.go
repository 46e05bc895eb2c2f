package message

// PatchDanglingToolCalls scans messages for assistant tool calls lacking a
// matching tool result anywhere later in the list, and inserts a synthetic
// role=tool message carrying a cancellation ToolResult for each one,
// immediately after the assistant message that issued it.
//
// The function is idempotent (invariant 4 in SPEC_FULL.md §8): calling it
// again on its own output returns an equal list, since every tool call by
// then has a matching result.
func PatchDanglingToolCalls(messages []Message) []Message {
	matched := make(map[string]bool)
	for _, m := range messages {
		for _, r := range m.ToolResults {
			matched[r.ToolCallID] = true
		}
	}

	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, m)
		if m.Role != RoleAssistant || !m.HasToolCalls() {
			continue
		}
		var pending []ToolResult
		for _, tc := range m.ToolCalls {
			if matched[tc.CallID] {
				continue
			}
			pending = append(pending, ToolResult{
				ToolCallID: tc.CallID,
				Name:       tc.Name,
				Content:    "Tool call cancelled: no result was produced before the next turn.",
				IsError:    true,
			})
			matched[tc.CallID] = true
		}
		if len(pending) > 0 {
			out = append(out, Message{
				Role:        RoleTool,
				ToolResults: pending,
				Status:      StatusComplete,
			})
		}
	}
	return out
}
