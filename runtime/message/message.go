// Package message defines the provider-agnostic message and streaming types
// shared by the agent actor, the middleware pipeline, and the filesystem
// server. It models conversation content as typed parts (text, image,
// document, thinking, tool call/result) plus conversation roles, and
// specifies the merge rules streaming providers must satisfy when
// accumulating deltas into a complete Message.
package message

import (
	"encoding/json"
	"fmt"
)

// Role identifies the speaker for a Message.
type Role string

const (
	// RoleSystem is the role for the leading system message, if any.
	RoleSystem Role = "system"
	// RoleUser is the role for user-authored messages.
	RoleUser Role = "user"
	// RoleAssistant is the role for model-authored messages.
	RoleAssistant Role = "assistant"
	// RoleTool is the role for messages carrying tool results.
	RoleTool Role = "tool"
)

// Status tracks whether a Message (or a ToolCall within one) is still being
// accumulated from streaming deltas.
type Status string

const (
	// StatusIncomplete means the message is still being streamed.
	StatusIncomplete Status = "incomplete"
	// StatusComplete means streaming finished normally.
	StatusComplete Status = "complete"
	// StatusLength means streaming stopped because an output limit was hit.
	StatusLength Status = "length"
)

// PartType discriminates the kind of content carried by a ContentPart. This
// is the superset of part types observed across the source material (see
// SPEC_FULL.md §3): file_url is included alongside the narrower set some
// provider adapters support, so a part of any kind ever produced upstream
// round-trips intact even if a given adapter never emits it.
type PartType string

const (
	PartText       PartType = "text"
	PartImageURL   PartType = "image_url"
	PartImage      PartType = "image"
	PartFile       PartType = "file"
	PartFileURL    PartType = "file_url"
	PartThinking   PartType = "thinking"
	PartUnsupported PartType = "unsupported"
)

// ContentPart is a single-type fragment of a multi-modal message's content.
//
// Options is a provider-opaque key/value bag (media type, cache hints,
// provider signatures, ...). The merge rule for two parts sharing the same
// Type and Index is: Content concatenates; for Options, string values
// concatenate and all other values overwrite.
type ContentPart struct {
	Type    PartType       `json:"type"`
	Index   int            `json:"index"`
	Content string         `json:"content,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// Merge combines other into p following the ContentPart merge rule. If p and
// other have different Type or Index, Merge returns p unchanged; callers
// group parts by (Type, Index) before calling Merge.
func (p ContentPart) Merge(other ContentPart) ContentPart {
	if p.Type != other.Type || p.Index != other.Index {
		return p
	}
	out := p
	out.Content += other.Content
	if len(other.Options) == 0 {
		return out
	}
	if out.Options == nil {
		out.Options = make(map[string]any, len(other.Options))
	}
	for k, v := range other.Options {
		if sv, ok := v.(string); ok {
			if existing, ok := out.Options[k].(string); ok {
				out.Options[k] = existing + sv
				continue
			}
		}
		out.Options[k] = v
	}
	return out
}

// ToolCall is an assistant-requested tool invocation, accumulated by Index
// across streaming deltas. Arguments remain the raw streamed text until
// Status becomes StatusComplete, at which point they are parsed as JSON;
// invalid JSON at that point is a validation failure (see toolerrors).
type ToolCall struct {
	// CallID is the provider-issued call identifier, used to correlate the
	// eventual ToolResult.
	CallID string `json:"call_id"`
	// Index is the stream position used to accumulate deltas.
	Index int `json:"index"`
	// Status tracks accumulation progress.
	Status Status `json:"status"`
	// Type is always "function" per the data model.
	Type string `json:"type"`
	// Name is the tool identifier requested by the model.
	Name string `json:"name"`
	// argumentsText accumulates the raw streamed JSON text until Status is
	// StatusComplete.
	argumentsText string
	// Arguments is populated by parsing argumentsText once Status becomes
	// StatusComplete. Nil until then.
	Arguments map[string]any `json:"arguments,omitempty"`
}

// AppendArguments appends a streamed JSON text fragment to the tool call's
// argument buffer. It is a no-op once the call is already StatusComplete.
func (tc *ToolCall) AppendArguments(fragment string) {
	if tc.Status == StatusComplete {
		return
	}
	tc.argumentsText += fragment
}

// Finalize marks the tool call complete and parses the buffered argument
// text as JSON. An empty buffer parses as an empty object. Returns an error
// if the buffered text is not valid JSON; callers surface this as a
// tool_error ToolResult per SPEC_FULL.md §7.
func (tc *ToolCall) Finalize() error {
	tc.Status = StatusComplete
	text := tc.argumentsText
	if text == "" {
		text = "{}"
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(text), &args); err != nil {
		return fmt.Errorf("parse tool call %q arguments: %w", tc.Name, err)
	}
	tc.Arguments = args
	return nil
}

// ToolResult carries the outcome of executing a ToolCall, attached to a
// single role=tool Message whose ToolResults slice may hold multiple
// entries (one per tool call in the preceding assistant turn).
type ToolResult struct {
	// ToolCallID matches the originating ToolCall.CallID.
	ToolCallID string `json:"tool_call_id"`
	// Name is the tool identifier that produced this result.
	Name string `json:"name"`
	// Content is the result payload: a string or a []ContentPart.
	Content any `json:"content"`
	// ProcessedContent is an opaque, application-defined transformation of
	// Content (for example, a summarized or redacted view).
	ProcessedContent any `json:"processed_content,omitempty"`
	// IsError reports whether Content describes a tool failure.
	IsError bool `json:"is_error,omitempty"`
}

// Message is a single ordered entry in an agent's conversation.
//
// Content is represented either as Parts (ordered ContentPart sequence) or
// as plain Text; exactly one should be populated by constructors, but both
// fields are exposed so callers dealing with pre-multimodal transcripts can
// keep using Text directly.
type Message struct {
	Role        Role         `json:"role"`
	Text        string       `json:"text,omitempty"`
	Parts       []ContentPart `json:"parts,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
	Status      Status       `json:"status,omitempty"`
	// Index is the position of this message in a larger stream context, when
	// meaningful (for example, sub-agent transcript offsets).
	Index int `json:"index,omitempty"`
	// Name optionally identifies the originating tool for role=tool messages
	// with a single result, matching the data model's optional Name field.
	Name string `json:"name,omitempty"`
}

// HasToolCalls reports whether the message contains at least one tool call.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// IsEmpty reports whether the message has neither content nor tool calls.
// Delta merging rejects a final assistant message satisfying IsEmpty (see
// SPEC_FULL.md §4.6).
func (m Message) IsEmpty() bool {
	return m.Text == "" && len(m.Parts) == 0 && !m.HasToolCalls()
}
