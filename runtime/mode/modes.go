package mode

import (
	"context"

	"github.com/agentruntime/core/runtime/message"
	"github.com/agentruntime/core/runtime/state"
)

// Mode runs a complete pipeline to a terminal Result, given the agent's
// current State. It is what the Agent actor invokes once per Run command
// (SPEC_FULL.md §4.1/§4.2).
type Mode func(ctx context.Context, initial state.State, d *Deps) *Result

// run drives step repeatedly against a fresh Continue Result seeded from
// initial, stopping at the first terminal Result. This is the "recurse via
// the mode's own run" behavior spec.md §4.2 describes for continue_or_done
// and the until_* modes. Between iterations — the "safe boundary" between
// one full call_llm/execute_tools pass and the next — it checks ctx for
// cancellation, so an Agent actor cancelling a run's context aborts the
// loop promptly instead of running it to completion.
func run(ctx context.Context, initial state.State, d *Deps, step Step) *Result {
	r := &Result{Kind: Continue, State: initial}
	for {
		if err := ctx.Err(); err != nil {
			return &Result{Kind: Error, State: r.State, RunCount: r.RunCount, FailureCount: r.FailureCount, Err: err}
		}
		r = step(ctx, r, d)
		if r.Terminal() {
			return r
		}
	}
}

// WhileNeedsResponse implements the while_needs_response built-in mode:
// execute_tools → before_model → call_llm → after_model → continue_or_done,
// recursing until the assistant produces a message with no pending tool
// calls. before_model/after_model wrap call_llm so a middleware such as
// human-in-the-loop sees (and can interrupt on) a freshly produced tool
// call before it is executed on the next iteration's execute_tools.
func WhileNeedsResponse(ctx context.Context, initial state.State, d *Deps) *Result {
	return run(ctx, initial, d, Compose(ExecuteTools, BeforeModel, CallLLM, AfterModel, ContinueOrDone))
}

// UntilSuccess implements the until_success built-in mode: before_model →
// call_llm → after_model → execute_tools → recurse, stopping once the last
// message is an assistant message, or a tool message with no tool-level
// errors, or once the failure count exceeds the retry budget.
func UntilSuccess(ctx context.Context, initial state.State, d *Deps) *Result {
	return run(ctx, initial, d, Compose(BeforeModel, CallLLM, AfterModel, ExecuteTools, checkUntilSuccessStop))
}

// UntilToolUsed implements the until_tool_used built-in mode: before_model →
// call_llm → after_model → check_max_runs → execute_tools →
// check_until_tool → continue_or_done, stopping once a tool result names a
// tool in the watch list.
func UntilToolUsed(ctx context.Context, initial state.State, d *Deps) *Result {
	return run(ctx, initial, d, Compose(BeforeModel, CallLLM, AfterModel, CheckMaxRuns, ExecuteTools, CheckUntilTool, ContinueOrDone))
}

// Step_ implements the step built-in mode: a single before_model + call_llm
// + after_model + execute_tools pass with no recursion. Named with a
// trailing underscore to avoid colliding with the Step type in this
// package.
func Step_(ctx context.Context, initial state.State, d *Deps) *Result {
	r := &Result{Kind: Continue, State: initial}
	r = Compose(BeforeModel, CallLLM, AfterModel, ExecuteTools)(ctx, r, d)
	if r.Kind == Continue {
		r = &Result{Kind: Ok, State: r.State, RunCount: r.RunCount, FailureCount: r.FailureCount}
	}
	return r
}

func checkUntilSuccessStop(_ context.Context, r *Result, d *Deps) *Result {
	if r.Terminal() {
		return r
	}
	if r.FailureCount > d.maxRetryCount() {
		return &Result{Kind: Error, State: r.State, RunCount: r.RunCount, FailureCount: r.FailureCount, Err: ErrExceededFailureCount}
	}
	last, ok := r.State.LastMessage()
	if !ok {
		return r
	}
	switch last.Role {
	case message.RoleAssistant:
		return &Result{Kind: Ok, State: r.State, RunCount: r.RunCount, FailureCount: r.FailureCount}
	case message.RoleTool:
		for _, tr := range last.ToolResults {
			if tr.IsError {
				return r
			}
		}
		return &Result{Kind: Ok, State: r.State, RunCount: r.RunCount, FailureCount: r.FailureCount}
	default:
		return r
	}
}
