package middleware

import (
	"context"

	"github.com/agentruntime/core/runtime/message"
	"github.com/agentruntime/core/runtime/state"
)

// ReviewDecision is the verb a human reviewer applies to a pending tool
// call (spec.md §4.3).
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionEdit    ReviewDecision = "edit"
	DecisionReject  ReviewDecision = "reject"
)

// ReviewConfig configures which decisions are allowed for one tool name.
type ReviewConfig struct {
	ToolName string
	Allowed  []ReviewDecision
}

// ActionRequest describes one tool call awaiting a human decision.
type ActionRequest struct {
	ToolCallID string
	ToolName   string
	Arguments  map[string]any
}

// InterruptPayload is the after_model interrupt's InterruptData when
// human-in-the-loop fires (spec.md §4.3).
type InterruptPayload struct {
	ActionRequests []ActionRequest
	ReviewConfigs  []ReviewConfig
}

// Resolution supplies the human's decision for one ActionRequest. For
// DecisionEdit, EditedArguments replaces the original arguments before
// execution continues.
type Resolution struct {
	ToolCallID      string
	Decision        ReviewDecision
	EditedArguments map[string]any
	RejectReason    string
}

// hitlMiddleware pauses the turn with an interrupt whenever the last
// assistant message requests a configured tool, so a human can approve,
// edit, or reject the call before it executes.
type hitlMiddleware struct {
	Base
	configured map[string]ReviewConfig
}

// NewHumanInTheLoop returns the human-in-the-loop default middleware,
// configured with one ReviewConfig per gated tool name.
func NewHumanInTheLoop(configs ...ReviewConfig) Middleware {
	m := &hitlMiddleware{configured: make(map[string]ReviewConfig, len(configs))}
	for _, c := range configs {
		m.configured[c.ToolName] = c
	}
	return m
}

func (*hitlMiddleware) Name() string { return "human-in-the-loop" }

func (m *hitlMiddleware) AfterModel(_ context.Context, st state.State) Decision {
	if len(m.configured) == 0 {
		return Decision{Kind: DecisionOK, State: st}
	}
	last, ok := st.LastMessage()
	if !ok || last.Role != message.RoleAssistant || !last.HasToolCalls() {
		return Decision{Kind: DecisionOK, State: st}
	}

	var requests []ActionRequest
	var configs []ReviewConfig
	seen := make(map[string]bool)
	for _, call := range last.ToolCalls {
		cfg, gated := m.configured[call.Name]
		if !gated {
			continue
		}
		requests = append(requests, ActionRequest{ToolCallID: call.CallID, ToolName: call.Name, Arguments: call.Arguments})
		if !seen[call.Name] {
			configs = append(configs, cfg)
			seen[call.Name] = true
		}
	}
	if len(requests) == 0 {
		return Decision{Kind: DecisionOK, State: st}
	}
	return Decision{
		Kind:  DecisionInterrupt,
		State: st,
		InterruptData: InterruptPayload{
			ActionRequests: requests,
			ReviewConfigs:  configs,
		},
	}
}

// Resume applies resolutions to the interrupted State's last assistant
// message: DecisionEdit replaces a call's arguments in place, DecisionReject
// produces a pre-resolved tool result keyed by call ID that the caller must
// feed back into the mode run (mode.Deps.PreResolvedResults) so
// execute_tools attaches it to the turn's tool message without invoking the
// tool, and DecisionApprove leaves the call untouched for execute_tools to
// run normally. The last message stays role=assistant with every original
// tool call present (rejected included), so the resumed mode's
// execute_tools step — which requires an assistant message with pending
// tool calls — fires for approved and edited calls alongside the
// pre-resolved rejections. Resume is invoked by the agent actor's
// resume_from_interrupt command handler, not by the pipeline itself.
func Resume(st state.State, resolutions []Resolution) (state.State, map[string]message.ToolResult) {
	byID := make(map[string]Resolution, len(resolutions))
	for _, r := range resolutions {
		byID[r.ToolCallID] = r
	}
	last, ok := st.LastMessage()
	if !ok {
		return st, nil
	}
	preResolved := make(map[string]message.ToolResult)
	editedCalls := make([]message.ToolCall, 0, len(last.ToolCalls))
	for _, call := range last.ToolCalls {
		res, has := byID[call.CallID]
		if !has {
			editedCalls = append(editedCalls, call)
			continue
		}
		switch res.Decision {
		case DecisionReject:
			reason := res.RejectReason
			if reason == "" {
				reason = "rejected by reviewer"
			}
			preResolved[call.CallID] = message.ToolResult{
				ToolCallID: call.CallID,
				Name:       call.Name,
				Content:    reason,
				IsError:    true,
			}
			editedCalls = append(editedCalls, call)
		case DecisionEdit:
			if res.EditedArguments != nil {
				call.Arguments = res.EditedArguments
			}
			editedCalls = append(editedCalls, call)
		default:
			editedCalls = append(editedCalls, call)
		}
	}
	messages := append([]message.Message(nil), st.Messages...)
	messages[len(messages)-1].ToolCalls = editedCalls
	st.Messages = messages
	return st, preResolved
}

var _ Middleware = (*hitlMiddleware)(nil)
