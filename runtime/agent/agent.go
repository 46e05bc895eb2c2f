// Package agent implements the Agent actor (SPEC_FULL.md §4.1): a single
// goroutine owning one agent's state.State, serialising every mutation
// through its own mailbox channel the same way the teacher's in-memory
// workflow engine (runtime/agent/engine/inmem/engine.go) drives a workflow
// on its own goroutine and answers queries over channels rather than a
// shared mutex.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentruntime/core/runtime/hooks"
	"github.com/agentruntime/core/runtime/message"
	"github.com/agentruntime/core/runtime/middleware"
	"github.com/agentruntime/core/runtime/mode"
	"github.com/agentruntime/core/runtime/state"
	"github.com/agentruntime/core/runtime/telemetry"
	"github.com/agentruntime/core/runtime/tools"
)

// Config constructs an Agent. Zero-value Lifecycle/Debug/Logger/Metrics
// default to no-ops; MaxRuns/MaxRetryCount default to the mode package's
// spec defaults (25/3).
type Config struct {
	// ID uniquely identifies the agent. Defaults to a generated uuid if
	// empty.
	ID   string
	Name string

	Model            mode.ChatModel
	BaseSystemPrompt string

	// Tools are user-supplied tools, merged with every middleware's
	// contributed tools at construction (duplicates are a configuration
	// error, SPEC_FULL.md §4.3 step 5).
	Tools []tools.Tool

	// Middleware is the caller-supplied entry list. Unless
	// ReplaceDefaultMiddleware is set, the runtime defaults (todo-list,
	// filesystem, summarisation, patch-dangling-tool-calls,
	// human-in-the-loop) are prepended.
	Middleware               []middleware.Middleware
	ReplaceDefaultMiddleware bool

	// MaxRuns bounds check_max_runs for every run using this config, unless
	// a run's RunOptions.MaxRuns overrides it. Nil defers to the mode
	// package's spec default of 25; a non-nil 0 is a real budget of zero.
	MaxRuns       *int
	MaxRetryCount int

	Lifecycle hooks.Bus
	Debug     hooks.Bus

	Presence Presence
	// PID identifies this process/node in Presence.Track calls. Defaults
	// to the agent's own ID when empty, which is sufficient for a single
	// in-memory deployment; multi-node deployments should pass a stable
	// per-node identifier.
	PID string

	Logger  telemetry.Logger
	Metrics telemetry.Metrics
}

// Agent is a single agent's actor: one goroutine, one mailbox, exclusive
// ownership of state.State (SPEC_FULL.md §3 Ownership).
type Agent struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc

	pipeline *middleware.Pipeline
	registry *tools.Registry
	tools    *tools.Registry // alias kept for export.go readability

	mailbox chan any
	done    chan struct{}

	logger  telemetry.Logger
	metrics telemetry.Metrics

	// Actor-owned state, touched only inside run().
	state        state.State
	status       Status
	runCount     int
	failureCount int
	startedAt    time.Time
	lastActivity time.Time
	conversationID string

	// pendingInterrupt holds the data from the last after_model interrupt;
	// resume_from_interrupt validates its resolutions against it and then
	// clears it.
	pendingInterrupt any

	// cancelMu guards runCancel, the only actor field touched from outside
	// the mailbox goroutine: Cancel calls it directly (rather than going
	// through the mailbox) so an in-flight run aborts promptly instead of
	// waiting behind its own synchronous execution.
	cancelMu  sync.Mutex
	runCancel context.CancelFunc
}

// New builds and starts an Agent's mailbox goroutine.
func New(cfg Config) (*Agent, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("agent: Model is required")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.PID == "" {
		cfg.PID = cfg.ID
	}
	if cfg.Lifecycle == nil {
		cfg.Lifecycle = hooks.NewBus()
	}
	if cfg.Debug == nil {
		cfg.Debug = hooks.NewBus()
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.NewNoopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NewNoopMetrics()
	}

	pipeline, err := middleware.New(cfg.Middleware, cfg.ReplaceDefaultMiddleware)
	if err != nil {
		return nil, fmt.Errorf("agent: assemble middleware: %w", err)
	}
	mwTools, err := pipeline.Tools()
	if err != nil {
		return nil, fmt.Errorf("agent: assemble tools: %w", err)
	}

	registry := tools.NewRegistry()
	for _, t := range cfg.Tools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("agent: register tool: %w", err)
		}
	}
	for _, t := range mwTools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("agent: register middleware tool: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	a := &Agent{
		cfg:          cfg,
		ctx:          ctx,
		cancel:       cancel,
		pipeline:     pipeline,
		registry:     registry,
		tools:        registry,
		mailbox:      make(chan any, 16),
		done:         make(chan struct{}),
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		status:       StatusIdle,
		startedAt:    now,
		lastActivity: now,
	}

	go a.loop()
	if cfg.Presence != nil {
		if err := a.trackPresence(ctx); err != nil {
			a.logger.Warn(ctx, "agent: presence track failed", "error", err)
		}
	}
	return a, nil
}

// loop is the actor's single goroutine: every command is processed here,
// one at a time, so state.State is never touched concurrently.
func (a *Agent) loop() {
	defer close(a.done)
	for cmd := range a.mailbox {
		switch c := cmd.(type) {
		case addMessageCmd:
			c.reply <- a.handleAddMessage(c.message)
		case runCmd:
			c.reply <- a.handleRun(c.opts)
		case cancelCmd:
			a.handleCancel()
			close(c.reply)
		case resumeCmd:
			c.reply <- a.handleResume(c.resolutions, c.runOpts)
		case touchCmd:
			a.touchLocked()
			close(c.reply)
		case getStateCmd:
			c.reply <- a.state.Clone()
		case getStatusCmd:
			c.reply <- a.status
		case exportStateCmd:
			c.reply <- exportResult{state: a.buildSerializedState(time.Now())}
		case importStateCmd:
			c.reply <- a.applySerializedState(c.serialized, c.toolsByName)
		case stopCmd:
			close(c.reply)
			return
		}
	}
}

// Close stops the actor's mailbox goroutine and untracks its presence
// entry. Safe to call once; a second call is a no-op beyond the channel
// send protection a stopped mailbox already provides.
func (a *Agent) Close() {
	reply := make(chan struct{})
	select {
	case a.mailbox <- stopCmd{reply: reply}:
		select {
		case <-reply:
		case <-a.done:
		}
	case <-a.done:
	}
	if a.cfg.Presence != nil {
		_ = a.cfg.Presence.Untrack(context.Background(), a.cfg.PID, PresenceTopic, a.cfg.ID)
	}
	a.cancel()
}

// ID returns the agent's identifier.
func (a *Agent) ID() string { return a.cfg.ID }

func (a *Agent) touchLocked() {
	a.lastActivity = time.Now()
	a.refreshPresence()
}

func (a *Agent) refreshPresence() {
	if a.cfg.Presence == nil {
		return
	}
	if err := a.trackPresence(a.ctx); err != nil {
		a.logger.Warn(a.ctx, "agent: presence refresh failed", "error", err)
	}
}

func (a *Agent) trackPresence(ctx context.Context) error {
	meta := PresenceMeta{
		Status:         a.status,
		StartedAt:      a.startedAt.UnixMilli(),
		LastActivityAt: a.lastActivity.UnixMilli(),
		ConversationID: a.conversationID,
	}
	return a.cfg.Presence.Track(ctx, a.cfg.PID, PresenceTopic, a.cfg.ID, meta)
}

// setStatus transitions status and emits the lifecycle/debug events and
// presence refresh SPEC_FULL.md §4.1 requires on every change.
func (a *Agent) setStatus(next Status) {
	if a.status == next {
		return
	}
	prev := a.status
	a.status = next
	_ = a.cfg.Lifecycle.Publish(a.ctx, hooks.NewStatusChangedEvent(a.cfg.ID, string(prev), string(next)))
	_ = a.cfg.Debug.Publish(a.ctx, hooks.NewStatusChangedEvent(a.cfg.ID, string(prev), string(next)))
	a.refreshPresence()
}

func (a *Agent) publishMessageReceived(role message.Role) {
	_ = a.cfg.Lifecycle.Publish(a.ctx, hooks.NewMessageReceivedEvent(a.cfg.ID, string(role)))
}

func (a *Agent) publishToolResponse(ids []string) {
	_ = a.cfg.Lifecycle.Publish(a.ctx, hooks.NewToolResponseCreatedEvent(a.cfg.ID, ids))
}

func (a *Agent) publishRetriesExceeded(reason string) {
	_ = a.cfg.Lifecycle.Publish(a.ctx, hooks.NewRetriesExceededEvent(a.cfg.ID, reason))
}
