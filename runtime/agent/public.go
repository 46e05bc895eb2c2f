package agent

import (
	"context"

	"github.com/agentruntime/core/runtime/message"
	"github.com/agentruntime/core/runtime/state"
	"github.com/agentruntime/core/runtime/tools"
)

// AddMessage appends msg to the conversation, triggering a default run if
// the agent is idle and msg is a user message (spec.md §4.1).
func (a *Agent) AddMessage(msg message.Message) error {
	reply := make(chan error, 1)
	a.mailbox <- addMessageCmd{message: msg, reply: reply}
	return <-reply
}

// Run executes one run command synchronously within the actor and returns
// its terminal outcome.
func (a *Agent) Run(opts RunOptions) RunOutcome {
	reply := make(chan RunOutcome, 1)
	a.mailbox <- runCmd{opts: opts, reply: reply}
	return <-reply
}

// Cancel transitions the agent to cancelled from any status, aborting an
// in-flight run at its next safe boundary. Unlike every other command,
// Cancel reaches into the actor directly instead of only going through the
// mailbox: a run command occupies the actor's single goroutine for its
// entire synchronous execution (spec.md §4.1), so a cancelCmd sitting in
// the mailbox would not be read until the run already finished on its own.
// Cancelling the in-flight run's context first, the same way the teacher's
// in-memory workflow engine signals a running workflow over a channel
// rather than waiting for it to poll, lets mode.run's per-iteration ctx
// check abort promptly; the mailbox send afterwards finalises status once
// the loop goroutine is free again.
func (a *Agent) Cancel() {
	a.cancelMu.Lock()
	if a.runCancel != nil {
		a.runCancel()
	}
	a.cancelMu.Unlock()

	reply := make(chan struct{})
	select {
	case a.mailbox <- cancelCmd{reply: reply}:
		<-reply
	case <-a.done:
	}
}

// ResumeFromInterrupt applies one decision per pending action request and
// resumes the run.
func (a *Agent) ResumeFromInterrupt(resolutions []Resolution, opts RunOptions) RunOutcome {
	reply := make(chan RunOutcome, 1)
	a.mailbox <- resumeCmd{resolutions: resolutions, runOpts: opts, reply: reply}
	return <-reply
}

// Touch refreshes last-activity-at, used by presence-aware shutdown.
func (a *Agent) Touch() {
	reply := make(chan struct{})
	a.mailbox <- touchCmd{reply: reply}
	<-reply
}

// GetState returns a snapshot of the agent's current state.
func (a *Agent) GetState() state.State {
	reply := make(chan state.State, 1)
	a.mailbox <- getStateCmd{reply: reply}
	return <-reply
}

// GetStatus returns the agent's current status.
func (a *Agent) GetStatus() Status {
	reply := make(chan Status, 1)
	a.mailbox <- getStatusCmd{reply: reply}
	return <-reply
}

// ExportState serialises the agent's configuration and conversation state
// (spec.md §6).
func (a *Agent) ExportState() (SerializedState, error) {
	reply := make(chan exportResult, 1)
	a.mailbox <- exportStateCmd{reply: reply}
	res := <-reply
	return res.state, res.err
}

// ImportState restores a previously exported state, resolving
// custom_tool_names against toolsByName; a name with no entry is logged as
// a warning and skipped rather than failing the restore.
func (a *Agent) ImportState(ctx context.Context, serialized SerializedState, toolsByName map[string]tools.Tool) error {
	reply := make(chan error, 1)
	a.mailbox <- importStateCmd{serialized: serialized, toolsByName: toolsByName, reply: reply}
	return <-reply
}
