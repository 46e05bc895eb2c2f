package message

import "fmt"

// TokenUsage tracks token counts accumulated across one or more streaming
// deltas for a single model call.
type TokenUsage struct {
	InputTokens      int `json:"input_tokens,omitempty"`
	OutputTokens     int `json:"output_tokens,omitempty"`
	CacheReadTokens  int `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens int `json:"cache_write_tokens,omitempty"`
}

// Add accumulates other into u by summing every field, following the
// "accumulated by summing input and output token counts" rule in
// SPEC_FULL.md §4.6.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:      u.InputTokens + other.InputTokens,
		OutputTokens:     u.OutputTokens + other.OutputTokens,
		CacheReadTokens:  u.CacheReadTokens + other.CacheReadTokens,
		CacheWriteTokens: u.CacheWriteTokens + other.CacheWriteTokens,
	}
}

// Delta is a transient streaming fragment that must be merged in order into
// an Accumulator to eventually produce a complete Message.
type Delta struct {
	Role      Role
	Content   *ContentPart
	ToolCalls []ToolCall
	Status    Status
	Index     int
	Usage     *TokenUsage
}

// Accumulator merges an ordered sequence of Deltas into a single Message,
// implementing the rules in SPEC_FULL.md §4.6:
//   - same-index same-type content parts concatenate; a mismatched type at
//     an already-used index is dropped (with a warning left for the caller
//     to log) so the accumulator stays stable.
//   - tool calls are keyed by Index; name/argument text concatenate within a
//     key, CallID is updated from the first non-empty value seen, Type is
//     updated on any non-empty value.
//   - Status moves monotonically from StatusIncomplete to StatusComplete or
//     StatusLength, never backwards.
//   - Usage sums via TokenUsage.Add.
//
// Per the resolved Open Question in SPEC_FULL.md §3, Content is cleared
// into MergedContent after each successful merge: the accumulator never
// exposes a partially-merged Content slice alongside the authoritative
// merged view.
type Accumulator struct {
	role          Role
	mergedContent []ContentPart
	byIndex       map[int]int // content part Index -> position in mergedContent
	toolCalls     map[int]*ToolCall
	toolOrder     []int
	status        Status
	usage         TokenUsage
	// Dropped counts content parts rejected due to a type mismatch at an
	// already-occupied index, so callers can surface a warning.
	Dropped int
}

// NewAccumulator returns an empty Accumulator ready to merge deltas.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		byIndex:   make(map[int]int),
		toolCalls: make(map[int]*ToolCall),
		status:    StatusIncomplete,
	}
}

// Merge folds one Delta into the accumulator. Merge never returns an error:
// malformed input (a status transition backwards, for instance) is ignored
// rather than failing the stream, since a single bad delta should not
// abort an otherwise-recoverable turn.
func (a *Accumulator) Merge(d Delta) {
	if d.Role != "" {
		a.role = d.Role
	}
	if d.Content != nil {
		a.mergeContent(*d.Content)
	}
	for _, tc := range d.ToolCalls {
		a.mergeToolCall(tc)
	}
	if d.Usage != nil {
		a.usage = a.usage.Add(*d.Usage)
	}
	a.advanceStatus(d.Status)
}

func (a *Accumulator) mergeContent(part ContentPart) {
	pos, ok := a.byIndex[part.Index]
	if !ok {
		a.byIndex[part.Index] = len(a.mergedContent)
		a.mergedContent = append(a.mergedContent, part)
		return
	}
	existing := a.mergedContent[pos]
	if existing.Type != part.Type {
		a.Dropped++
		return
	}
	a.mergedContent[pos] = existing.Merge(part)
}

func (a *Accumulator) mergeToolCall(tc ToolCall) {
	existing, ok := a.toolCalls[tc.Index]
	if !ok {
		cp := tc
		a.toolCalls[tc.Index] = &cp
		a.toolOrder = append(a.toolOrder, tc.Index)
		return
	}
	if existing.Status == StatusComplete {
		// A ToolCall moves through exactly one complete transition; once
		// complete it stays complete across further merges.
		return
	}
	existing.Name += tc.Name
	existing.argumentsText += tc.argumentsText
	if existing.CallID == "" && tc.CallID != "" {
		existing.CallID = tc.CallID
	}
	if tc.Type != "" {
		existing.Type = tc.Type
	}
	if tc.Status == StatusComplete {
		_ = existing.Finalize()
	}
}

func (a *Accumulator) advanceStatus(s Status) {
	if s == "" {
		return
	}
	switch a.status {
	case StatusComplete, StatusLength:
		return // monotonic: never move backwards out of a terminal status
	default:
		a.status = s
	}
}

// Done reports whether the accumulated status is terminal (complete or
// length), per invariant 1 in SPEC_FULL.md §8.
func (a *Accumulator) Done() bool {
	return a.status == StatusComplete || a.status == StatusLength
}

// Message materializes the accumulated state into a complete Message. It
// returns an error if the result would be an empty assistant message (no
// content and no tool calls), per SPEC_FULL.md §4.6.
func (a *Accumulator) Message() (Message, error) {
	msg := Message{
		Role:   a.role,
		Parts:  append([]ContentPart(nil), a.mergedContent...),
		Status: a.status,
	}
	for _, idx := range a.toolOrder {
		msg.ToolCalls = append(msg.ToolCalls, *a.toolCalls[idx])
	}
	if msg.Role == RoleAssistant && msg.IsEmpty() {
		return Message{}, fmt.Errorf("merge deltas: empty assistant message")
	}
	return msg, nil
}

// Usage returns the accumulated token usage.
func (a *Accumulator) Usage() TokenUsage { return a.usage }

// MergeDeltas is a convenience wrapper around Accumulator for callers that
// have the full delta sequence in hand already.
func MergeDeltas(deltas []Delta) (Message, TokenUsage, error) {
	acc := NewAccumulator()
	for _, d := range deltas {
		acc.Merge(d)
	}
	msg, err := acc.Message()
	return msg, acc.Usage(), err
}
