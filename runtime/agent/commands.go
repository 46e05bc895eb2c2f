package agent

import (
	"errors"

	"github.com/agentruntime/core/runtime/message"
	"github.com/agentruntime/core/runtime/middleware"
	"github.com/agentruntime/core/runtime/mode"
	"github.com/agentruntime/core/runtime/state"
	"github.com/agentruntime/core/runtime/tools"
)

// ErrDecisionMismatch is resume_from_interrupt's validation error
// (spec.md §4.1/§7): the submitted resolutions don't line up one-to-one
// with the pending action requests, or a resolution's Decision isn't in
// the matching tool's ReviewConfig.Allowed set.
var ErrDecisionMismatch = errors.New("agent: resume_from_interrupt: decision mismatch")

// RunOptions configures one run command (spec.md §4.1).
type RunOptions struct {
	// Mode selects a built-in mode by name (while_needs_response,
	// until_success, until_tool_used, step). Defaults to
	// while_needs_response. Ignored if CustomMode is set.
	Mode string
	// CustomMode overrides Mode with a caller-supplied mode function,
	// matching spec.md's "custom mode module" option.
	CustomMode mode.Mode
	// MaxRuns overrides the agent's configured max_runs for this run only.
	// Nil defers to the agent's Config.MaxRuns; a non-nil 0 is a real
	// budget of zero.
	MaxRuns *int
	// ToolNames is the until_tool_used watch list.
	ToolNames []string
	// ShouldPause backs check_pause for this run only.
	ShouldPause mode.ShouldPause
	// ForceRecurse keeps invoking the selected mode again whenever it
	// returns Ok but the resulting state still needs a response (for
	// example, a custom or non-recursive mode that stopped after a single
	// step but left pending tool calls), instead of returning that Ok
	// straight back to the caller.
	ForceRecurse bool
}

// RunOutcome is the run command's reply payload, mirroring pipeline_result
// (spec.md §4.1/§4.2).
type RunOutcome struct {
	Kind          mode.Kind
	State         state.State
	MatchedTool   *mode.ToolResult
	InterruptData any
	Err           error
}

// Resolution re-exports middleware.Resolution so callers of
// resume_from_interrupt need only import this package.
type Resolution = middleware.Resolution

type (
	addMessageCmd struct {
		message message.Message
		reply   chan error
	}

	runCmd struct {
		opts  RunOptions
		reply chan RunOutcome
	}

	cancelCmd struct {
		reply chan struct{}
	}

	resumeCmd struct {
		resolutions []Resolution
		runOpts     RunOptions
		reply       chan RunOutcome
	}

	touchCmd struct {
		reply chan struct{}
	}

	getStateCmd struct {
		reply chan state.State
	}

	getStatusCmd struct {
		reply chan Status
	}

	exportStateCmd struct {
		reply chan exportResult
	}

	importStateCmd struct {
		serialized  SerializedState
		toolsByName map[string]tools.Tool
		reply       chan error
	}

	// stopCmd shuts the actor's mailbox loop down. Not part of the public
	// spec contract; used by Agent.Close for deterministic teardown.
	stopCmd struct {
		reply chan struct{}
	}
)

type exportResult struct {
	state SerializedState
	err   error
}
