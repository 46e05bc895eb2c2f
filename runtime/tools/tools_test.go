package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentruntime/core/runtime/state"
)

type echoTool struct{}

func (echoTool) Name() Ident           { return "echo" }
func (echoTool) Description() string   { return "echoes input" }
func (echoTool) InputSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"text": map[string]any{"type": "string"}},
		"required":   []any{"text"},
	}
}
func (echoTool) Call(_ Context, arguments map[string]any) (Result, error) {
	return Result{Content: arguments["text"]}, nil
}

func TestRegisterAndCall(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool{}))

	res, err := r.Call(Context{Context: context.Background()}, "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	require.Equal(t, "hi", res.Content)
}

func TestRegisterDuplicateNameFails(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool{}))
	require.Error(t, r.Register(echoTool{}))
}

func TestCallUnknownToolFails(t *testing.T) {
	r := NewRegistry()
	_, err := r.Call(Context{Context: context.Background()}, "missing", nil)
	require.Error(t, err)
}

func TestCallInvalidArgumentsFailsValidation(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool{}))
	_, err := r.Call(Context{Context: context.Background()}, "echo", map[string]any{})
	require.Error(t, err)
}

func TestWriteTodosToolProducesStateDelta(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewWriteTodosTool()))

	args := map[string]any{"todos": []any{
		map[string]any{"id": "1", "content": "do it", "status": "pending"},
	}}
	res, err := r.Call(Context{Context: context.Background(), State: state.State{}}, WriteTodosName, args)
	require.NoError(t, err)
	require.NotNil(t, res.Delta)
	require.Len(t, res.Delta.Todos, 1)
	require.Equal(t, "do it", res.Delta.Todos[0].Content)
}

func TestNamesReturnsRegisteredTools(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool{}))
	require.Equal(t, []Ident{"echo"}, r.Names())
}
