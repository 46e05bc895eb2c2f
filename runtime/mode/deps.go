package mode

import (
	"context"

	"github.com/agentruntime/core/runtime/message"
	"github.com/agentruntime/core/runtime/middleware"
	"github.com/agentruntime/core/runtime/tools"
)

// ChatModel is the provider-agnostic model abstraction call_llm invokes.
// Implementations translate State's message history into a provider request
// and return the assistant's reply as a single complete Message (streaming
// accumulation, if the concrete implementation streams, happens behind this
// call via message.Accumulator before it returns).
type ChatModel interface {
	Complete(ctx context.Context, messages []message.Message) (message.Message, error)
}

// ShouldPause is the caller-injected zero-arity predicate check_pause polls.
type ShouldPause func() bool

// Deps bundles everything the pipeline steps need but pipeline_result
// itself does not carry, so step functions stay pure with respect to
// Result/State and only read Deps.
type Deps struct {
	Model ChatModel
	Tools *tools.Registry

	// AgentID is threaded into tools.Context for every execute_tools call.
	AgentID string

	// MaxRuns bounds check_max_runs. Nil uses the spec default of 25; a
	// non-nil value of 0 is a real budget of zero (check_max_runs fails on
	// the first turn, per spec.md §8's boundary behaviour).
	MaxRuns *int
	// MaxRetryCount bounds the retry logic; zero uses the spec default of 3.
	MaxRetryCount int

	// ShouldPause backs check_pause. A nil value never pauses.
	ShouldPause ShouldPause
	// WatchTools backs check_until_tool: a result naming one of these tools
	// ends the pipeline with Kind=Ok and a populated MatchedTool.
	WatchTools map[string]bool

	// Hooks wraps before_model/after_model around every call_llm
	// invocation (SPEC_FULL.md §4.3). Nil runs no hooks.
	Hooks *middleware.Pipeline

	// PreResolvedResults supplies tool results for call IDs execute_tools
	// should not invoke the registry for, keyed by ToolCall.CallID. The
	// Agent actor's resume_from_interrupt handler populates this from
	// middleware.Resume's rejected decisions for exactly one run. A nil map
	// means every pending call is executed normally.
	PreResolvedResults map[string]message.ToolResult
}

func (d *Deps) maxRuns() int {
	if d.MaxRuns != nil {
		return *d.MaxRuns
	}
	return 25
}

func (d *Deps) maxRetryCount() int {
	if d.MaxRetryCount > 0 {
		return d.MaxRetryCount
	}
	return 3
}
