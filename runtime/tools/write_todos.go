package tools

import (
	"encoding/json"
	"fmt"

	"github.com/agentruntime/core/runtime/state"
)

// WriteTodosName is the Ident every agent registers the built-in todo-list
// tool under. Middleware and tests key off this constant rather than a
// string literal (SPEC_FULL.md §3 default middleware).
const WriteTodosName Ident = "write_todos"

type writeTodosTool struct{}

// NewWriteTodosTool returns the built-in tool that lets the model replace
// the agent's todo list wholesale. It never touches Metadata; its Result.Delta
// always carries a non-nil Todos slice, even if empty, so state.State.Apply
// always replaces rather than appends (SPEC_FULL.md §4.5).
func NewWriteTodosTool() Tool { return writeTodosTool{} }

func (writeTodosTool) Name() Ident { return WriteTodosName }

func (writeTodosTool) Description() string {
	return "Replace the agent's todo list with the given set of items. Use this to plan and track multi-step work."
}

func (writeTodosTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"todos": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":      map[string]any{"type": "string"},
						"content": map[string]any{"type": "string"},
						"status": map[string]any{
							"type": "string",
							"enum": []any{"pending", "in_progress", "completed", "cancelled"},
						},
					},
					"required": []any{"id", "content", "status"},
				},
			},
		},
		"required": []any{"todos"},
	}
}

func (writeTodosTool) Call(_ Context, arguments map[string]any) (Result, error) {
	raw, err := json.Marshal(arguments["todos"])
	if err != nil {
		return Result{}, fmt.Errorf("write_todos: marshal arguments: %w", err)
	}
	var todos []state.Todo
	if err := json.Unmarshal(raw, &todos); err != nil {
		return Result{}, fmt.Errorf("write_todos: decode todos: %w", err)
	}
	if todos == nil {
		todos = []state.Todo{}
	}
	return Result{
		Content: map[string]any{"todos": todos},
		Delta:   &state.Delta{Todos: todos},
	}, nil
}
