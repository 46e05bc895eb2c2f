package agent

import (
	"fmt"
	"time"

	"github.com/agentruntime/core/runtime/message"
	"github.com/agentruntime/core/runtime/state"
	"github.com/agentruntime/core/runtime/tools"
)

// SerializedVersion is the current export_state schema version
// (SPEC_FULL.md §6). A missing "version" field on import is treated as 1.
const SerializedVersion = 1

// ModelDescriptor is an optional interface a mode.ChatModel implementation
// may satisfy to contribute its {module, model} identity to export_state.
// A model that does not implement it serializes as an empty descriptor;
// API keys are never serialized regardless (spec.md §6).
type ModelDescriptor interface {
	ModelDescriptor() ModelInfo
}

// ModelInfo is the serialized model identity, with no secrets.
type ModelInfo struct {
	Module string `json:"module"`
	Model  string `json:"model"`
}

// MiddlewareOptions is an optional interface a middleware.Middleware may
// satisfy to report the options it was initialised with, so export_state
// can round-trip them.
type MiddlewareOptions interface {
	Options() map[string]any
}

// SerializedAgentConfig is the "agent_config" section of the export_state
// document (SPEC_FULL.md §6).
type SerializedAgentConfig struct {
	Model            ModelInfo                  `json:"model"`
	BaseSystemPrompt string                     `json:"base_system_prompt"`
	CustomToolNames  []string                   `json:"custom_tool_names"`
	Middleware       []SerializedMiddlewareSpec `json:"middleware"`
	Name             string                     `json:"name,omitempty"`
}

// SerializedMiddlewareSpec names one configured middleware and the options
// it was constructed with.
type SerializedMiddlewareSpec struct {
	Module string         `json:"module"`
	Opts   map[string]any `json:"opts,omitempty"`
}

// SerializedConversationState is the "state" section of export_state.
type SerializedConversationState struct {
	Messages []message.Message `json:"messages"`
	Todos    []state.Todo      `json:"todos"`
	Metadata map[string]any    `json:"metadata"`
}

// SerializedState is the complete export_state/import_state document
// (SPEC_FULL.md §6). All keys are strings, suitable for JSON storage.
type SerializedState struct {
	Version      int                          `json:"version"`
	AgentID      string                       `json:"agent_id"`
	SerializedAt string                       `json:"serialized_at"`
	AgentConfig  SerializedAgentConfig         `json:"agent_config"`
	State        SerializedConversationState  `json:"state"`
}

// buildSerializedState captures a into the export_state document, omitting
// any API keys or secrets (the ChatModel/tool wiring itself never carries
// them through this path).
func (a *Agent) buildSerializedState(now time.Time) SerializedState {
	var modelInfo ModelInfo
	if md, ok := a.cfg.Model.(ModelDescriptor); ok {
		modelInfo = md.ModelDescriptor()
	}

	specs := make([]SerializedMiddlewareSpec, 0, len(a.cfg.Middleware))
	for _, m := range a.cfg.Middleware {
		spec := SerializedMiddlewareSpec{Module: m.Name()}
		if op, ok := m.(MiddlewareOptions); ok {
			spec.Opts = op.Options()
		}
		specs = append(specs, spec)
	}

	customNames := make([]string, 0, len(a.cfg.Tools))
	for _, t := range a.cfg.Tools {
		customNames = append(customNames, string(t.Name()))
	}

	return SerializedState{
		Version:      SerializedVersion,
		AgentID:      a.cfg.ID,
		SerializedAt: now.UTC().Format(time.RFC3339),
		AgentConfig: SerializedAgentConfig{
			Model:            modelInfo,
			BaseSystemPrompt: a.cfg.BaseSystemPrompt,
			CustomToolNames:  customNames,
			Middleware:       specs,
			Name:             a.cfg.Name,
		},
		State: SerializedConversationState{
			Messages: append([]message.Message(nil), a.state.Messages...),
			Todos:    append([]state.Todo(nil), a.state.Todos...),
			Metadata: a.state.Metadata,
		},
	}
}

// applySerializedState restores st into a, resolving CustomToolNames
// against toolsByName. A tool name with no entry in toolsByName is logged
// as a warning (via telemetry, if configured) and skipped rather than
// failing the restore (spec.md §6).
func (a *Agent) applySerializedState(st SerializedState, toolsByName map[string]tools.Tool) error {
	version := st.Version
	if version == 0 {
		version = 1
	}
	if version != SerializedVersion {
		return fmt.Errorf("agent: import_state: unsupported version %d", version)
	}

	for _, name := range st.AgentConfig.CustomToolNames {
		t, ok := toolsByName[name]
		if !ok {
			a.logger.Warn(a.ctx, "import_state: tool not provided, skipping", "tool", name)
			continue
		}
		_ = a.tools.Register(t)
	}

	a.state = state.State{
		Messages: append([]message.Message(nil), st.State.Messages...),
		Todos:    append([]state.Todo(nil), st.State.Todos...),
		Metadata: st.State.Metadata,
	}
	a.runCount = 0
	a.failureCount = 0
	return nil
}
