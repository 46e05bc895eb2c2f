package middleware

import (
	"context"
	"fmt"

	"github.com/agentruntime/core/runtime/message"
	"github.com/agentruntime/core/runtime/state"
)

// Summarizer condenses a run of older messages into a single replacement
// message. Implementations typically call an LLM out-of-band; the default
// Summarizer used when none is configured instead replaces them with a short
// notice counting the dropped messages by role (their text is not kept), so
// the middleware never depends on a ChatModel of its own.
type Summarizer func(dropped []message.Message) message.Message

// summarizeMiddleware keeps State.Messages under a configured window by
// collapsing the oldest messages (beyond the last KeepRecent entries) into a
// single summary message once the list exceeds Threshold.
type summarizeMiddleware struct {
	Base
	threshold  int
	keepRecent int
	summarize  Summarizer
}

// NewSummarization returns the summarisation default middleware. threshold
// and keepRecent fall back to 40 and 10 respectively when zero; a nil
// summarize uses defaultSummarizer.
func NewSummarization(threshold, keepRecent int, summarize Summarizer) Middleware {
	if threshold <= 0 {
		threshold = 40
	}
	if keepRecent <= 0 {
		keepRecent = 10
	}
	if summarize == nil {
		summarize = defaultSummarizer
	}
	return &summarizeMiddleware{threshold: threshold, keepRecent: keepRecent, summarize: summarize}
}

func (*summarizeMiddleware) Name() string { return "summarisation" }

func (m *summarizeMiddleware) BeforeModel(_ context.Context, st state.State) Decision {
	if len(st.Messages) <= m.threshold {
		return Decision{Kind: DecisionOK, State: st}
	}
	cut := len(st.Messages) - m.keepRecent
	dropped := st.Messages[:cut]
	kept := append([]message.Message(nil), st.Messages[cut:]...)

	st.Messages = append([]message.Message{m.summarize(dropped)}, kept...)
	return Decision{Kind: DecisionOK, State: st}
}

func defaultSummarizer(dropped []message.Message) message.Message {
	var userTurns, assistantTurns, toolTurns int
	for _, m := range dropped {
		switch m.Role {
		case message.RoleUser:
			userTurns++
		case message.RoleAssistant:
			assistantTurns++
		case message.RoleTool:
			toolTurns++
		}
	}
	return message.Message{
		Role: message.RoleSystem,
		Text: fmt.Sprintf(
			"[%d earlier messages summarized: %d user, %d assistant, %d tool turns omitted for brevity]",
			len(dropped), userTurns, assistantTurns, toolTurns,
		),
		Status: message.StatusComplete,
	}
}

var _ Middleware = (*summarizeMiddleware)(nil)
