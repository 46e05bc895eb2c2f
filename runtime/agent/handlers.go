package agent

import (
	"context"
	"fmt"

	"github.com/agentruntime/core/runtime/message"
	"github.com/agentruntime/core/runtime/middleware"
	"github.com/agentruntime/core/runtime/mode"
)

// handleAddMessage appends msg to state, applying the run-terminal → idle
// reset (SPEC_FULL.md §4.1), then triggers a default run if the agent is
// idle and msg is a user message.
func (a *Agent) handleAddMessage(msg message.Message) error {
	if a.status.resetsToIdle() {
		a.setStatus(StatusIdle)
	}
	if a.status == StatusRunning {
		return fmt.Errorf("agent: cannot add message while running")
	}

	a.state.Messages = append(a.state.Messages, msg)
	a.touchLocked()
	a.publishMessageReceived(msg.Role)

	if a.status == StatusIdle && msg.Role == message.RoleUser {
		a.runLocked(RunOptions{})
	}
	return nil
}

// handleRun is the public run command's handler, invoked synchronously
// within the actor (spec.md §4.1).
func (a *Agent) handleRun(opts RunOptions) RunOutcome {
	return a.runLocked(opts)
}

// handleResume applies middleware.Resume's edits to the interrupted state,
// feeds the rejected decisions into the resumed mode run as pre-resolved
// tool results, and re-enters the run.
//
// Before touching any state it validates resolutions against the pending
// interrupt payload (spec.md §4.1's resume_from_interrupt row, §7's
// decision_mismatch): the submitted resolutions must match the pending
// action requests one-to-one, and each Decision must be in that tool's
// allowed set. A failing validation returns ErrDecisionMismatch and leaves
// status, state and pendingInterrupt untouched, so the caller can retry
// resume_from_interrupt with a corrected resolution list.
func (a *Agent) handleResume(resolutions []middleware.Resolution, opts RunOptions) RunOutcome {
	if !a.status.canResume() {
		return RunOutcome{Kind: mode.Error, State: a.state, Err: fmt.Errorf("agent: resume_from_interrupt: not interrupted")}
	}
	if err := validateResolutions(a.pendingInterrupt, resolutions); err != nil {
		return RunOutcome{Kind: mode.Error, State: a.state, Err: err}
	}
	newState, preResolved := middleware.Resume(a.state, resolutions)
	a.state = newState
	a.pendingInterrupt = nil

	return a.runLocked(opts, withPreResolved(preResolved))
}

// validateResolutions checks resolutions against pending, the
// middleware.InterruptPayload captured when the run interrupted. It
// returns ErrDecisionMismatch if the resolutions don't cover the pending
// action requests exactly once each, or if any resolution's Decision is
// not in the matching tool's ReviewConfig.Allowed set. A tool with no
// ReviewConfig entry (or an empty Allowed list) places no restriction on
// the decision type, since nothing configured it as gated in the first
// place.
func validateResolutions(pending any, resolutions []middleware.Resolution) error {
	payload, ok := pending.(middleware.InterruptPayload)
	if !ok {
		return nil
	}

	allowedByTool := make(map[string][]middleware.ReviewDecision, len(payload.ReviewConfigs))
	for _, rc := range payload.ReviewConfigs {
		allowedByTool[rc.ToolName] = rc.Allowed
	}
	toolByCallID := make(map[string]string, len(payload.ActionRequests))
	for _, ar := range payload.ActionRequests {
		toolByCallID[ar.ToolCallID] = ar.ToolName
	}

	if len(resolutions) != len(payload.ActionRequests) {
		return ErrDecisionMismatch
	}
	seen := make(map[string]bool, len(resolutions))
	for _, res := range resolutions {
		toolName, isPending := toolByCallID[res.ToolCallID]
		if !isPending || seen[res.ToolCallID] {
			return ErrDecisionMismatch
		}
		seen[res.ToolCallID] = true

		if allowed := allowedByTool[toolName]; len(allowed) > 0 && !decisionAllowed(allowed, res.Decision) {
			return ErrDecisionMismatch
		}
	}
	return nil
}

func decisionAllowed(allowed []middleware.ReviewDecision, decision middleware.ReviewDecision) bool {
	for _, d := range allowed {
		if d == decision {
			return true
		}
	}
	return false
}

func (a *Agent) handleCancel() {
	a.cancelMu.Lock()
	if a.runCancel != nil {
		a.runCancel()
	}
	a.cancelMu.Unlock()
	a.setStatus(StatusCancelled)
}

type runOption func(*mode.Deps)

func withPreResolved(pre map[string]message.ToolResult) runOption {
	return func(d *mode.Deps) { d.PreResolvedResults = pre }
}

// runLocked executes one run command synchronously, inside the actor's own
// goroutine, exactly as spec.md §4.1 describes. It installs a cancellable
// per-run context so Cancel (called from another goroutine) can abort the
// loop at its next safe boundary (mode.run checks ctx between iterations).
func (a *Agent) runLocked(opts RunOptions, extra ...runOption) RunOutcome {
	a.setStatus(StatusRunning)

	runCtx, cancel := context.WithCancel(a.ctx)
	a.cancelMu.Lock()
	a.runCancel = cancel
	a.cancelMu.Unlock()
	defer func() {
		a.cancelMu.Lock()
		a.runCancel = nil
		a.cancelMu.Unlock()
		cancel()
	}()

	watch := make(map[string]bool, len(opts.ToolNames))
	for _, n := range opts.ToolNames {
		watch[n] = true
	}
	deps := &mode.Deps{
		Model:         a.cfg.Model,
		Tools:         a.registry,
		AgentID:       a.cfg.ID,
		MaxRuns:       opts.MaxRuns,
		MaxRetryCount: a.cfg.MaxRetryCount,
		ShouldPause:   opts.ShouldPause,
		WatchTools:    watch,
		Hooks:         a.pipeline,
	}
	for _, ext := range extra {
		ext(deps)
	}
	if deps.MaxRuns == nil {
		deps.MaxRuns = a.cfg.MaxRuns
	}

	selected := selectMode(opts)

	result := selected(runCtx, a.state, deps)
	for opts.ForceRecurse && result.Kind == mode.Ok && result.State.NeedsResponse() {
		result = selected(runCtx, result.State, deps)
	}

	a.state = result.State
	a.runCount = result.RunCount
	a.failureCount = result.FailureCount

	switch result.Kind {
	case mode.Ok:
		a.setStatus(StatusCompleted)
		if last, ok := a.state.LastMessage(); ok && last.Role == message.RoleTool {
			ids := make([]string, 0, len(last.ToolResults))
			for _, tr := range last.ToolResults {
				ids = append(ids, tr.ToolCallID)
			}
			a.publishToolResponse(ids)
		}
	case mode.Pause:
		a.setStatus(StatusIdle)
	case mode.Interrupt:
		a.pendingInterrupt = result.InterruptData
		a.setStatus(StatusInterrupted)
	case mode.Error:
		a.setStatus(StatusError)
		if result.Err == mode.ErrExceededFailureCount {
			a.publishRetriesExceeded(result.Err.Error())
		}
	}

	return RunOutcome{
		Kind:          result.Kind,
		State:         a.state,
		MatchedTool:   result.MatchedTool,
		InterruptData: result.InterruptData,
		Err:           result.Err,
	}
}

func selectMode(opts RunOptions) mode.Mode {
	if opts.CustomMode != nil {
		return opts.CustomMode
	}
	switch opts.Mode {
	case "until_success":
		return mode.UntilSuccess
	case "until_tool_used":
		return mode.UntilToolUsed
	case "step":
		return mode.Step_
	case "", "while_needs_response":
		return mode.WhileNeedsResponse
	default:
		return mode.WhileNeedsResponse
	}
}
