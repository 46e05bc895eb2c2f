// Package mode implements the execution mode engine: a small set of pure
// pipeline steps, composed into the built-in modes while_needs_response,
// until_success, until_tool_used, and step (SPEC_FULL.md §4.2). Modes are
// the unit the Agent actor invokes once per Run command; they recurse
// internally and return only when the run reaches a terminal Result.
package mode

import (
	"errors"

	"github.com/agentruntime/core/runtime/state"
)

// Kind discriminates the closed Result sum type.
type Kind int

const (
	// Continue drives the next step in the pipeline. It is the only Kind a
	// step composition function keeps chaining on; every other Kind is
	// terminal and is returned unchanged by every later step.
	Continue Kind = iota
	// Ok is a successful terminal result.
	Ok
	// Pause is a resumable checkpoint, not an error: check_pause produces
	// this when the caller's should-pause predicate fires.
	Pause
	// Interrupt carries out-of-band data back to the caller (human-in-the-loop
	// approval requests raised by middleware.AfterModel, for instance).
	Interrupt
	// Error is a terminal failure.
	Error
)

func (k Kind) String() string {
	switch k {
	case Continue:
		return "continue"
	case Ok:
		return "ok"
	case Pause:
		return "pause"
	case Interrupt:
		return "interrupt"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

var (
	// ErrExceededMaxRuns is returned when check_max_runs observes
	// run_count >= the configured MaxRuns budget.
	ErrExceededMaxRuns = errors.New("mode: exceeded max runs")
	// ErrExceededFailureCount is returned when the retry counter exceeds
	// MaxRetryCount.
	ErrExceededFailureCount = errors.New("mode: exceeded failure count")
)

// ToolResult is the subset of a tool-call outcome check_until_tool inspects
// to match against a mode's watch list.
type ToolResult struct {
	Name    string
	Content any
	IsError bool
}

// Result is the closed pipeline_result sum type from spec.md §4.2. Only a
// Result with Kind==Continue is fed into the next step; every other Kind is
// terminal and steps downstream of a terminal result pass it through
// unchanged (SPEC_FULL.md §4.2 expansion).
type Result struct {
	Kind Kind

	State state.State

	// RunCount counts completed call_llm invocations within this run,
	// checked by check_max_runs.
	RunCount int
	// FailureCount counts consecutive call_llm/execute_tools errors,
	// checked by the retry logic and reset to zero on a successful step.
	FailureCount int

	// MatchedTool is set by check_until_tool when the last tool message
	// contains a result whose name is in the mode's watch list.
	MatchedTool *ToolResult

	// InterruptData carries the Interrupt Kind's payload.
	InterruptData any

	// Err carries the Error Kind's cause.
	Err error
}

// Terminal reports whether r is a stopping point for the pipeline (every
// Kind except Continue).
func (r *Result) Terminal() bool { return r.Kind != Continue }

// continueWith returns a Continue Result carrying st, reusing the receiver's
// run/failure counters.
func (r *Result) continueWith(st state.State) *Result {
	return &Result{Kind: Continue, State: st, RunCount: r.RunCount, FailureCount: r.FailureCount}
}
