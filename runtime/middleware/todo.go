package middleware

import (
	"github.com/agentruntime/core/runtime/tools"
)

// todoMiddleware contributes the write_todos tool and a short system prompt
// note describing its purpose. It owns no before/after hook: the todo list
// itself is written via the tool's Result.Delta, merged by execute_tools.
type todoMiddleware struct{ Base }

// NewTodoList returns the todo-list default middleware.
func NewTodoList() Middleware { return todoMiddleware{} }

func (todoMiddleware) Name() string { return "todo-list" }

func (todoMiddleware) SystemPrompt() []string {
	return []string{"You have access to a write_todos tool for tracking multi-step plans. Use it to record and update your progress."}
}

func (todoMiddleware) Tools() []tools.Tool {
	return []tools.Tool{tools.NewWriteTodosTool()}
}

func (todoMiddleware) StateSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":      map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
				"status":  map[string]any{"type": "string"},
			},
		},
	}
}

var _ Middleware = todoMiddleware{}
