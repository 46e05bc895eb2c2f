package middleware

import (
	"context"

	"github.com/agentruntime/core/runtime/message"
	"github.com/agentruntime/core/runtime/state"
)

// patchDanglingMiddleware wraps message.PatchDanglingToolCalls as a
// before_model default (spec.md §4.3): any assistant tool_call lacking a
// matching tool_result later in the message list gets a synthetic
// cancelled tool-result inserted. Idempotent.
type patchDanglingMiddleware struct{ Base }

// NewPatchDanglingToolCalls returns the patch-dangling-tool-calls default
// middleware.
func NewPatchDanglingToolCalls() Middleware { return patchDanglingMiddleware{} }

func (patchDanglingMiddleware) Name() string { return "patch-dangling-tool-calls" }

func (patchDanglingMiddleware) BeforeModel(_ context.Context, st state.State) Decision {
	st.Messages = message.PatchDanglingToolCalls(st.Messages)
	return Decision{Kind: DecisionOK, State: st}
}

var _ Middleware = patchDanglingMiddleware{}
