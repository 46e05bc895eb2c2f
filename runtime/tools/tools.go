// Package tools defines the Tool contract, a schema-validating registry
// assembled from user-supplied and middleware-contributed tools, and the
// write_todos built-in tool. Every tool is keyed by a unique Ident; the
// registry rejects a duplicate registration (SPEC_FULL.md §3 invariants).
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/agentruntime/core/runtime/state"
	"github.com/agentruntime/core/runtime/toolerrors"
)

type (
	// Context is passed to every Tool invocation. It carries the current
	// State (read-only: tools influence State only via the returned
	// Delta) and the owning agent's identifier.
	Context struct {
		context.Context
		State   state.State
		AgentID string
	}

	// Result is returned by a successful Tool invocation.
	Result struct {
		// Content becomes the ToolResult.Content seen by the model.
		Content any
		// Delta is merged into State by the agent actor before the
		// tool-result message is built.
		Delta *state.Delta
	}

	// Tool is the contract every built-in and user-supplied tool
	// implements.
	Tool interface {
		// Name returns the tool's globally unique identifier.
		Name() Ident
		// Description is shown to the model to decide when to call the
		// tool.
		Description() string
		// InputSchema is a JSON Schema object describing the tool's
		// argument payload. A nil schema disables validation for this
		// tool.
		InputSchema() map[string]any
		// Call executes the tool against the parsed JSON arguments.
		Call(ctx Context, arguments map[string]any) (Result, error)
	}

	// Registry holds the assembled, validated tool map for one agent.
	Registry struct {
		mu      sync.RWMutex
		tools   map[Ident]Tool
		schemas map[Ident]*jsonschema.Schema
	}
)

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[Ident]Tool), schemas: make(map[Ident]*jsonschema.Schema)}
}

// Register adds t to the registry. It fails if a tool with the same Name is
// already registered, or if InputSchema does not compile.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tools: nil tool")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tools: tool name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tools: duplicate tool name %q", name)
	}
	if schemaDoc := t.InputSchema(); schemaDoc != nil {
		schema, err := compileSchema(string(name), schemaDoc)
		if err != nil {
			return fmt.Errorf("tools: compile schema for %q: %w", name, err)
		}
		r.schemas[name] = schema
	}
	r.tools[name] = t
	return nil
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name Ident) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool identifier.
func (r *Registry) Names() []Ident {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Ident, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	return out
}

// Validate checks arguments against the tool's compiled InputSchema, if one
// was registered. Tools without a schema always validate successfully.
func (r *Registry) Validate(name Ident, arguments map[string]any) error {
	r.mu.RLock()
	schema, ok := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return schema.Validate(arguments)
}

// Call validates and executes the named tool. A missing tool or a schema
// validation failure is returned as a *toolerrors.ToolError so it can be
// attached to a ToolResult with IsError=true (SPEC_FULL.md §4.5/§7).
func (r *Registry) Call(ctx Context, name Ident, arguments map[string]any) (Result, error) {
	t, ok := r.Get(name)
	if !ok {
		return Result{}, toolerrors.Errorf("unknown tool %q", name)
	}
	if err := r.Validate(name, arguments); err != nil {
		return Result{}, toolerrors.NewWithCause(fmt.Sprintf("invalid arguments for tool %q", name), err)
	}
	res, err := t.Call(ctx, arguments)
	if err != nil {
		return Result{}, toolerrors.FromError(err)
	}
	return res, nil
}

func compileSchema(name string, doc map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	unmarshalled, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	res := "tool://" + name + ".schema.json"
	if err := c.AddResource(res, unmarshalled); err != nil {
		return nil, err
	}
	return c.Compile(res)
}
