// Package middleware implements the ordered middleware pipeline the Agent
// actor runs around every LLM turn (SPEC_FULL.md §4.3): init/system_prompt/
// tools at construction time, before_model/after_model around each mode
// invocation. Capabilities are a vtable-style optional set — a Middleware
// missing a hook embeds Base, whose methods are identity no-ops, rather than
// the runtime doing duck-typed interface assertions per call.
package middleware

import (
	"context"
	"fmt"

	"github.com/agentruntime/core/runtime/state"
	"github.com/agentruntime/core/runtime/tools"
)

type (
	// Decision is the outcome of a before_model or after_model hook.
	Decision struct {
		Kind  DecisionKind
		State state.State
		// InterruptData carries the after_model interrupt payload (human-in-
		// the-loop action requests, for example).
		InterruptData any
		// Err carries the error for DecisionError.
		Err error
	}

	// DecisionKind discriminates a Decision.
	DecisionKind int
)

const (
	// DecisionOK means the hook ran to completion and State may have been
	// modified.
	DecisionOK DecisionKind = iota
	// DecisionError short-circuits the turn.
	DecisionError
	// DecisionInterrupt suspends the agent (after_model only).
	DecisionInterrupt
)

// Middleware is the full capability set an entry may implement. Every
// Middleware embeds Base to pick up identity defaults for the hooks it does
// not override.
type Middleware interface {
	// Name identifies the middleware for tool-uniqueness diagnostics and
	// tracing.
	Name() string
	// Init normalises the entry's options at agent construction time.
	Init(options map[string]any) error
	// SystemPrompt contributes additional system prompt text, appended after
	// the user-supplied base prompt in registration order.
	SystemPrompt() []string
	// Tools contributes additional tools the assembled Registry should carry.
	Tools() []tools.Tool
	// BeforeModel runs in forward registration order before every LLM call.
	BeforeModel(ctx context.Context, st state.State) Decision
	// AfterModel runs in reverse registration order after every LLM call.
	AfterModel(ctx context.Context, st state.State) Decision
	// StateSchema optionally describes the shape of state this middleware
	// owns, for export/import validation. Nil means no schema.
	StateSchema() map[string]any
}

// Base gives every hook an identity default. Embed it and override only the
// hooks a concrete middleware needs.
type Base struct{}

func (Base) Init(map[string]any) error                         { return nil }
func (Base) SystemPrompt() []string                             { return nil }
func (Base) Tools() []tools.Tool                                { return nil }
func (Base) BeforeModel(_ context.Context, st state.State) Decision { return Decision{Kind: DecisionOK, State: st} }
func (Base) AfterModel(_ context.Context, st state.State) Decision  { return Decision{Kind: DecisionOK, State: st} }
func (Base) StateSchema() map[string]any                       { return nil }

// Pipeline is the ordered, initialised middleware list an Agent runs.
type Pipeline struct {
	entries []Middleware
}

// New builds a Pipeline from entries. Unless replaceDefaults is true, the
// default middlewares (todo-list, filesystem, summarisation,
// patch-dangling-tool-calls, human-in-the-loop) are prepended, matching spec.md §4.3 step 2.
// Every entry's Init is invoked once, in order.
func New(entries []Middleware, replaceDefaults bool) (*Pipeline, error) {
	all := entries
	if !replaceDefaults {
		all = append(Defaults(), entries...)
	}
	for _, m := range all {
		if err := m.Init(nil); err != nil {
			return nil, fmt.Errorf("middleware: init %q: %w", m.Name(), err)
		}
	}
	return &Pipeline{entries: all}, nil
}

// SystemPrompt concatenates every entry's SystemPrompt, joined by blank
// lines, in registration order.
func (p *Pipeline) SystemPrompt() string {
	var parts []string
	for _, m := range p.entries {
		parts = append(parts, m.SystemPrompt()...)
	}
	out := ""
	for i, s := range parts {
		if s == "" {
			continue
		}
		if i > 0 && out != "" {
			out += "\n\n"
		}
		out += s
	}
	return out
}

// Tools concatenates every entry's Tools, rejecting duplicate tool names
// across entries (spec.md §4.3 step 5).
func (p *Pipeline) Tools() ([]tools.Tool, error) {
	seen := make(map[tools.Ident]string)
	var out []tools.Tool
	for _, m := range p.entries {
		for _, t := range m.Tools() {
			if owner, dup := seen[t.Name()]; dup {
				return nil, fmt.Errorf("middleware: duplicate tool %q contributed by %q and %q", t.Name(), owner, m.Name())
			}
			seen[t.Name()] = m.Name()
			out = append(out, t)
		}
	}
	return out, nil
}

// BeforeModel runs every entry's BeforeModel in forward order, short-
// circuiting at the first error.
func (p *Pipeline) BeforeModel(ctx context.Context, st state.State) Decision {
	cur := st
	for _, m := range p.entries {
		d := m.BeforeModel(ctx, cur)
		if d.Kind != DecisionOK {
			return d
		}
		cur = d.State
	}
	return Decision{Kind: DecisionOK, State: cur}
}

// AfterModel runs every entry's AfterModel in reverse registration order, so
// the outermost middleware that set up context is the last to see the
// response, short-circuiting at the first interrupt or error.
func (p *Pipeline) AfterModel(ctx context.Context, st state.State) Decision {
	cur := st
	for i := len(p.entries) - 1; i >= 0; i-- {
		d := p.entries[i].AfterModel(ctx, cur)
		if d.Kind != DecisionOK {
			return d
		}
		cur = d.State
	}
	return Decision{Kind: DecisionOK, State: cur}
}

// StateSchemas returns every entry's non-nil StateSchema, keyed by
// middleware name. The returned map carries no ordering.
func (p *Pipeline) StateSchemas() map[string]map[string]any {
	out := make(map[string]map[string]any)
	for _, m := range p.entries {
		if s := m.StateSchema(); s != nil {
			out[m.Name()] = s
		}
	}
	return out
}

// Names returns the registered middleware names in pipeline order.
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.entries))
	for i, m := range p.entries {
		out[i] = m.Name()
	}
	return out
}
