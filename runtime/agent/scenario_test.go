package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentruntime/core/runtime/message"
	"github.com/agentruntime/core/runtime/middleware"
	"github.com/agentruntime/core/runtime/mode"
	"github.com/agentruntime/core/runtime/tools"
	"github.com/agentruntime/core/runtime/vfs"
	"github.com/agentruntime/core/runtime/vfs/memstore"
)

// TestScenarioS1SimpleChat is scenario S1 (SPEC_FULL.md §8): an agent with
// replace_default_middleware=true and no tools, given user:"Hi", with the
// model scripted to reply assistant:"Hello", ends with exactly two messages
// and status completed.
func TestScenarioS1SimpleChat(t *testing.T) {
	model := &stubModel{replies: []message.Message{assistantText("Hello")}}
	a := newTestAgent(t, model, nil, []middleware.Middleware{})

	require.NoError(t, a.AddMessage(message.Message{Role: message.RoleUser, Text: "Hi"}))

	require.Equal(t, StatusCompleted, a.GetStatus())
	require.Len(t, a.GetState().Messages, 2)
	last, ok := a.GetState().LastMessage()
	require.True(t, ok)
	require.Equal(t, "Hello", last.Text)
}

type addTool struct{}

func (addTool) Name() tools.Ident           { return "add" }
func (addTool) Description() string         { return "adds two numbers" }
func (addTool) InputSchema() map[string]any { return nil }
func (addTool) Call(_ tools.Context, arguments map[string]any) (tools.Result, error) {
	a, _ := arguments["a"].(float64)
	b, _ := arguments["b"].(float64)
	sum := int(a) + int(b)
	return tools.Result{Content: intToString(sum)}, nil
}

func intToString(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

// TestScenarioS2ToolLoop is scenario S2: a tool add(a,b) returning a+b as a
// string, mode=while_needs_response, user:"What is 2+3?" with the model
// scripted to call add(2,3) then reply "5". Expects the final message
// sequence user, assistant(tool_call), tool("5"), assistant("5").
func TestScenarioS2ToolLoop(t *testing.T) {
	model := &stubModel{replies: []message.Message{
		assistantCalls(message.ToolCall{CallID: "c1", Name: "add", Status: message.StatusComplete, Type: "function", Arguments: map[string]any{"a": 2.0, "b": 3.0}}),
		assistantText("5"),
	}}
	a := newTestAgent(t, model, []tools.Tool{addTool{}}, []middleware.Middleware{})

	require.NoError(t, a.AddMessage(message.Message{Role: message.RoleUser, Text: "What is 2+3?"}))

	msgs := a.GetState().Messages
	require.Len(t, msgs, 4)
	require.Equal(t, message.RoleUser, msgs[0].Role)
	require.Equal(t, message.RoleAssistant, msgs[1].Role)
	require.True(t, msgs[1].HasToolCalls())
	require.Equal(t, message.RoleTool, msgs[2].Role)
	require.Equal(t, "5", msgs[2].ToolResults[0].Content)
	require.Equal(t, message.RoleAssistant, msgs[3].Role)
	require.Equal(t, "5", msgs[3].Text)
}

// TestScenarioS3DanglingToolCallRepair is scenario S3: starting from
// [user:"A", assistant{tool_call id="c1" name="search"}, user:"Never mind"],
// patching dangling tool calls inserts a synthetic tool message between the
// assistant and the second user message, carrying a result for c1 whose
// content mentions "cancelled".
func TestScenarioS3DanglingToolCallRepair(t *testing.T) {
	messages := []message.Message{
		{Role: message.RoleUser, Text: "A"},
		assistantCalls(message.ToolCall{CallID: "c1", Name: "search", Status: message.StatusComplete, Type: "function"}),
		{Role: message.RoleUser, Text: "Never mind"},
	}

	patched := message.PatchDanglingToolCalls(messages)

	require.Len(t, patched, 4)
	require.Equal(t, message.RoleTool, patched[2].Role)
	require.Equal(t, "c1", patched[2].ToolResults[0].ToolCallID)
	require.Contains(t, patched[2].ToolResults[0].Content, "cancelled")
	require.Equal(t, message.RoleUser, patched[3].Role)
}

// TestScenarioS4DebouncedPersistence is scenario S4: register a persistence
// config for base "data" (with a 20ms debounce to keep the test short),
// write /data/a.txt="one" at t=0 and /data/a.txt="two" shortly after. Once
// the debounce window elapses with no further writes, the backend holds
// exactly one file, a.txt="two".
func TestScenarioS4DebouncedPersistence(t *testing.T) {
	backend := memstore.New()
	s := vfs.NewServer()
	ctx := context.Background()
	require.NoError(t, s.RegisterPersistence(ctx, vfs.PersistenceConfig{
		BaseDirectory: "data",
		Backend:       backend,
		DebounceMS:    20,
	}))

	require.NoError(t, s.WriteFile(ctx, "/data/a.txt", []byte("one")))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.WriteFile(ctx, "/data/a.txt", []byte("two")))

	require.Eventually(t, func() bool {
		content, err := backend.ReadFile(ctx, "a.txt")
		return err == nil && string(content) == "two"
	}, time.Second, 5*time.Millisecond)

	files, err := backend.ListFiles(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt"}, files)
}

// TestScenarioS5LazyLoad is scenario S5: a backend pre-seeded with
// /data/existing.txt="lazy" is registered with a filesystem server. The
// file is reachable via ListFiles immediately, before any read has loaded
// its content from the backend, and the first read_file returns the
// pre-seeded content.
func TestScenarioS5LazyLoad(t *testing.T) {
	backend := memstore.New()
	ctx := context.Background()
	_, err := backend.WriteFile(ctx, "existing.txt", []byte("lazy"))
	require.NoError(t, err)

	s := vfs.NewServer()
	require.NoError(t, s.RegisterPersistence(ctx, vfs.PersistenceConfig{BaseDirectory: "data", Backend: backend}))

	require.Contains(t, s.ListFiles(""), "/data/existing.txt")

	content, err := s.ReadFile(ctx, "/data/existing.txt")
	require.NoError(t, err)
	require.Equal(t, "lazy", string(content))

	content, err = s.ReadFile(ctx, "/data/existing.txt")
	require.NoError(t, err)
	require.Equal(t, "lazy", string(content))
}

// TestScenarioS6HumanInTheLoop is scenario S6: a write_file call gated by
// review is interrupted with an action request naming the pending
// arguments; resuming with an edit actually writes the edited content and
// the run completes.
func TestScenarioS6HumanInTheLoop(t *testing.T) {
	model := &stubModel{replies: []message.Message{
		assistantCalls(message.ToolCall{CallID: "wf1", Name: "write_file", Status: message.StatusComplete, Type: "function", Arguments: map[string]any{
			"path": "x", "content": "y",
		}}),
		assistantText("done"),
	}}
	server := vfs.NewServer()
	hitl := middleware.NewHumanInTheLoop(middleware.ReviewConfig{
		ToolName: "write_file",
		Allowed:  []middleware.ReviewDecision{middleware.DecisionApprove, middleware.DecisionReject, middleware.DecisionEdit},
	})
	a := newTestAgent(t, model, nil, []middleware.Middleware{middleware.NewFilesystem(server), hitl})

	out := a.Run(RunOptions{})
	require.Equal(t, mode.Interrupt, out.Kind)
	payload, ok := out.InterruptData.(middleware.InterruptPayload)
	require.True(t, ok)
	require.Len(t, payload.ActionRequests, 1)
	require.Equal(t, "wf1", payload.ActionRequests[0].ToolCallID)
	require.Equal(t, "write_file", payload.ActionRequests[0].ToolName)
	require.Equal(t, "x", payload.ActionRequests[0].Arguments["path"])

	resumed := a.ResumeFromInterrupt([]Resolution{
		{ToolCallID: "wf1", Decision: middleware.DecisionEdit, EditedArguments: map[string]any{"path": "x", "content": "z"}},
	}, RunOptions{})

	require.Equal(t, mode.Ok, resumed.Kind)
	var toolMsg *message.Message
	for i := range resumed.State.Messages {
		if resumed.State.Messages[i].Role == message.RoleTool {
			toolMsg = &resumed.State.Messages[i]
		}
	}
	require.NotNil(t, toolMsg)
	require.False(t, toolMsg.ToolResults[0].IsError)

	written, err := server.ReadFile(context.Background(), "/x")
	require.NoError(t, err)
	require.Equal(t, "z", string(written))
}
