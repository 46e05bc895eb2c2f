package mode

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/agentruntime/core/runtime/message"
	"github.com/agentruntime/core/runtime/middleware"
	"github.com/agentruntime/core/runtime/state"
	"github.com/agentruntime/core/runtime/tools"
)

// Step is the pipeline-step contract: pipeline_result → pipeline_result. A
// Step must pass a terminal Result through unchanged (SPEC_FULL.md §4.2);
// every Step below begins with that check.
type Step func(ctx context.Context, r *Result, d *Deps) *Result

// Compose chains steps left to right, stopping at the first terminal
// Result. An empty steps list returns r unchanged.
func Compose(steps ...Step) Step {
	return func(ctx context.Context, r *Result, d *Deps) *Result {
		cur := r
		for _, step := range steps {
			if cur.Terminal() {
				return cur
			}
			cur = step(ctx, cur, d)
		}
		return cur
	}
}

// BeforeModel runs d.Hooks' before_model chain ahead of every call_llm
// invocation (SPEC_FULL.md §4.3). A nil Hooks is a no-op.
func BeforeModel(ctx context.Context, r *Result, d *Deps) *Result {
	if r.Terminal() || d.Hooks == nil {
		return r
	}
	return fromDecision(r, d.Hooks.BeforeModel(ctx, r.State))
}

// AfterModel runs d.Hooks' after_model chain immediately after call_llm
// produces the assistant's reply, before any of its tool calls are
// executed, so human-in-the-loop middleware can interrupt the turn before
// a sensitive tool runs (SPEC_FULL.md §4.3). A nil Hooks is a no-op.
func AfterModel(ctx context.Context, r *Result, d *Deps) *Result {
	if r.Terminal() || d.Hooks == nil {
		return r
	}
	return fromDecision(r, d.Hooks.AfterModel(ctx, r.State))
}

func fromDecision(r *Result, dec middleware.Decision) *Result {
	switch dec.Kind {
	case middleware.DecisionOK:
		return r.continueWith(dec.State)
	case middleware.DecisionInterrupt:
		return &Result{Kind: Interrupt, State: dec.State, RunCount: r.RunCount, FailureCount: r.FailureCount, InterruptData: dec.InterruptData}
	default:
		return &Result{Kind: Error, State: dec.State, RunCount: r.RunCount, FailureCount: r.FailureCount, Err: dec.Err}
	}
}

// CallLLM invokes d.Model once via the ChatModel abstraction. On success it
// appends the reply to State and increments RunCount, resetting
// FailureCount to zero. On a provider error it increments FailureCount;
// once that exceeds Deps.maxRetryCount the pipeline terminates with Error,
// otherwise the error is appended as a new user message so the next
// call_llm attempt can self-correct, and the pipeline continues.
func CallLLM(ctx context.Context, r *Result, d *Deps) *Result {
	if r.Terminal() {
		return r
	}
	reply, err := d.Model.Complete(ctx, r.State.Messages)
	if err != nil {
		return retryOrFail(r, d, fmt.Errorf("call_llm: %w", err))
	}
	st := r.State
	st.Messages = append(append([]message.Message(nil), st.Messages...), reply)
	return &Result{Kind: Continue, State: st, RunCount: r.RunCount + 1, FailureCount: 0}
}

// ExecuteTools runs every pending tool call in the current last message
// concurrently through d.Tools — each call sees the same pre-call State
// snapshot, since calls within one turn are independent by construction —
// then applies their deltas sequentially in original call order so the
// final State is deterministic regardless of completion order. All results
// land on a single new role=tool message, in original call order. A no-op
// (Continue, unchanged) if the last message carries no tool calls.
func ExecuteTools(ctx context.Context, r *Result, d *Deps) *Result {
	if r.Terminal() {
		return r
	}
	last, ok := r.State.LastMessage()
	if !ok || last.Role != message.RoleAssistant || !last.HasToolCalls() {
		return r.continueWith(r.State)
	}

	snapshot := r.State
	outcomes := make([]toolOutcome, len(last.ToolCalls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range last.ToolCalls {
		i, call := i, call
		if pre, ok := d.PreResolvedResults[call.CallID]; ok {
			outcomes[i] = toolOutcome{result: pre}
			continue
		}
		g.Go(func() error {
			tc := tools.Context{Context: gctx, State: snapshot, AgentID: d.AgentID}
			res, err := d.Tools.Call(tc, tools.Ident(call.Name), call.Arguments)
			if err != nil {
				outcomes[i] = toolOutcome{result: message.ToolResult{
					ToolCallID: call.CallID,
					Name:       call.Name,
					Content:    err.Error(),
					IsError:    true,
				}}
				return nil
			}
			outcomes[i] = toolOutcome{
				delta: res.Delta,
				result: message.ToolResult{
					ToolCallID: call.CallID,
					Name:       call.Name,
					Content:    res.Content,
				},
			}
			return nil
		})
	}
	_ = g.Wait()

	st := snapshot
	results := make([]message.ToolResult, 0, len(outcomes))
	anyError := false
	for _, o := range outcomes {
		if o.delta != nil {
			st = st.Apply(*o.delta)
		}
		if o.result.IsError {
			anyError = true
		}
		results = append(results, o.result)
	}
	st.Messages = append(append([]message.Message(nil), st.Messages...), message.Message{
		Role:        message.RoleTool,
		ToolResults: results,
		Status:      message.StatusComplete,
	})

	if anyError {
		failures := r.FailureCount + 1
		if failures > d.maxRetryCount() {
			return &Result{Kind: Error, State: st, RunCount: r.RunCount, FailureCount: failures, Err: ErrExceededFailureCount}
		}
		return &Result{Kind: Continue, State: st, RunCount: r.RunCount, FailureCount: failures}
	}
	return &Result{Kind: Continue, State: st, RunCount: r.RunCount, FailureCount: 0}
}

// CheckMaxRuns terminates the pipeline with Error (ErrExceededMaxRuns) once
// RunCount reaches Deps.maxRuns (default 25).
func CheckMaxRuns(_ context.Context, r *Result, d *Deps) *Result {
	if r.Terminal() {
		return r
	}
	if r.RunCount >= d.maxRuns() {
		return &Result{Kind: Error, State: r.State, RunCount: r.RunCount, FailureCount: r.FailureCount, Err: ErrExceededMaxRuns}
	}
	return r
}

// CheckPause terminates the pipeline with Pause — a resumable checkpoint,
// not an error — when Deps.ShouldPause is set and reports true. A nil
// ShouldPause never pauses.
func CheckPause(_ context.Context, r *Result, d *Deps) *Result {
	if r.Terminal() {
		return r
	}
	if d.ShouldPause != nil && d.ShouldPause() {
		return &Result{Kind: Pause, State: r.State, RunCount: r.RunCount, FailureCount: r.FailureCount}
	}
	return r
}

// CheckUntilTool terminates the pipeline with Ok, populating MatchedTool,
// when the last message is a tool message containing a result whose name is
// in Deps.WatchTools.
func CheckUntilTool(_ context.Context, r *Result, d *Deps) *Result {
	if r.Terminal() {
		return r
	}
	if len(d.WatchTools) == 0 {
		return r
	}
	last, ok := r.State.LastMessage()
	if !ok || last.Role != message.RoleTool {
		return r
	}
	for _, tr := range last.ToolResults {
		if d.WatchTools[tr.Name] {
			matched := ToolResult{Name: tr.Name, Content: tr.Content, IsError: tr.IsError}
			return &Result{Kind: Ok, State: r.State, RunCount: r.RunCount, FailureCount: r.FailureCount, MatchedTool: &matched}
		}
	}
	return r
}

// ContinueOrDone terminates the pipeline with Ok unless State.NeedsResponse
// reports true, in which case it remains Continue so the owning mode
// recurses for another iteration.
func ContinueOrDone(_ context.Context, r *Result, _ *Deps) *Result {
	if r.Terminal() {
		return r
	}
	if r.State.NeedsResponse() {
		return r
	}
	return &Result{Kind: Ok, State: r.State, RunCount: r.RunCount, FailureCount: r.FailureCount}
}

// toolOutcome is one tool call's completed result plus the state delta it
// produced, collected by index so ExecuteTools can apply deltas in original
// call order after every concurrent call has finished.
type toolOutcome struct {
	delta  *state.Delta
	result message.ToolResult
}

func retryOrFail(r *Result, d *Deps, cause error) *Result {
	failures := r.FailureCount + 1
	if failures > d.maxRetryCount() {
		return &Result{Kind: Error, State: r.State, RunCount: r.RunCount, FailureCount: failures, Err: ErrExceededFailureCount}
	}
	st := r.State
	st.Messages = append(append([]message.Message(nil), st.Messages...), message.Message{
		Role: message.RoleUser,
		Text: cause.Error(),
	})
	return &Result{Kind: Continue, State: st, RunCount: r.RunCount, FailureCount: failures}
}
