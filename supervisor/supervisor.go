package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agentruntime/core/runtime/agent"
)

// ErrAlreadyStarted is returned by Start when scope already has a running
// actor; the existing Handle is returned alongside it so the caller can use
// it exactly as spec.md §4.7's "{already_started, existing}" describes.
var ErrAlreadyStarted = errors.New("supervisor: already started")

// AgentFactory builds the agent.Config from which Start creates a new Agent
// for scope. Called at most once per scope between a Start and the matching
// Stop.
type AgentFactory func(scope ScopeKey) (agent.Config, error)

// Config configures a Supervisor.
type Config struct {
	// Presence is consulted by presence-aware shutdown, if set. A nil
	// Presence falls back to a plain InactivityTimeout. This is a separate
	// viewer registry from the one an Agent uses to announce its own
	// existence under agent.PresenceTopic (agent.Config.Presence): here,
	// external viewers (UI clients watching one scope) track themselves
	// under their own topic so the supervisor can tell "nobody is watching"
	// apart from "the agent exists".
	Presence agent.Presence
	// ViewerTopicPrefix namespaces the per-scope viewer topic queried by
	// presence-aware shutdown; the full topic is ViewerTopicPrefix +
	// Scope.String().
	// Defaults to "viewers:".
	ViewerTopicPrefix string

	// PresenceCheckDelay is how long after an execution the supervisor
	// waits before consulting presence.List. Defaults to 5s.
	PresenceCheckDelay time.Duration
	// ShutdownDelay is the grace period after an empty presence
	// observation before the actor is actually stopped. Defaults to 30s.
	ShutdownDelay time.Duration
	// InactivityTimeout is used instead of presence checks when Presence
	// is nil. Defaults to ShutdownDelay.
	InactivityTimeout time.Duration
}

// Handle is one supervised actor: its scope, its Agent, and the shutdown
// scheduling state the supervisor tracks on its behalf.
type Handle struct {
	Scope ScopeKey
	Agent *agent.Agent

	sv *Supervisor

	mu           sync.Mutex
	shutdownTime *time.Timer
}

// Run delegates to the underlying Agent and, per spec.md §4.7, re-evaluates
// presence-aware shutdown scheduling after the execution completes.
func (h *Handle) Run(opts agent.RunOptions) agent.RunOutcome {
	out := h.Agent.Run(opts)
	h.sv.scheduleCheck(h)
	return out
}

// Touch refreshes the actor's activity and cancels any scheduled
// termination, per spec.md §4.7 ("any touch ... cancels the scheduled
// termination").
func (h *Handle) Touch() {
	h.Agent.Touch()
	h.cancelShutdown()
}

func (h *Handle) cancelShutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.shutdownTime != nil {
		h.shutdownTime.Stop()
		h.shutdownTime = nil
	}
}

// Supervisor is the dynamic supervisor of spec.md §4.7: start(scope_key,
// configs), stop(scope_key), get(scope_key), list().
type Supervisor struct {
	cfg     Config
	factory AgentFactory

	mu      sync.Mutex
	handles map[ScopeKey]*Handle
}

// New returns a Supervisor that builds actors via factory.
func New(factory AgentFactory, cfg Config) *Supervisor {
	if cfg.ViewerTopicPrefix == "" {
		cfg.ViewerTopicPrefix = "viewers:"
	}
	if cfg.PresenceCheckDelay <= 0 {
		cfg.PresenceCheckDelay = 5 * time.Second
	}
	if cfg.ShutdownDelay <= 0 {
		cfg.ShutdownDelay = 30 * time.Second
	}
	if cfg.InactivityTimeout <= 0 {
		cfg.InactivityTimeout = cfg.ShutdownDelay
	}
	return &Supervisor{
		cfg:     cfg,
		factory: factory,
		handles: make(map[ScopeKey]*Handle),
	}
}

// Start builds and registers an actor for scope, unless one is already
// running, in which case it returns the existing Handle and
// ErrAlreadyStarted (spec.md §4.7's idempotent start).
func (s *Supervisor) Start(scope ScopeKey) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.handles[scope]; ok {
		return existing, ErrAlreadyStarted
	}

	cfg, err := s.factory(scope)
	if err != nil {
		return nil, fmt.Errorf("supervisor: build agent config for %s: %w", scope, err)
	}
	if cfg.Presence == nil {
		cfg.Presence = s.cfg.Presence
	}

	a, err := agent.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("supervisor: start %s: %w", scope, err)
	}
	h := &Handle{Scope: scope, Agent: a, sv: s}
	s.handles[scope] = h
	return h, nil
}

// Stop terminates and unregisters the actor for scope, if any.
func (s *Supervisor) Stop(scope ScopeKey) error {
	s.mu.Lock()
	h, ok := s.handles[scope]
	if ok {
		delete(s.handles, scope)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	h.cancelShutdown()
	h.Agent.Close()
	return nil
}

// Get returns the running actor for scope, if any.
func (s *Supervisor) Get(scope ScopeKey) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[scope]
	return h, ok
}

// List returns every currently running actor.
func (s *Supervisor) List() []*Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		out = append(out, h)
	}
	return out
}

// WaitForReady polls Get(scope) until it finds a running Handle or deadline
// elapses. The first failed poll shrinks the remaining deadline to 100ms
// (spec.md §9's "fast-fail" heuristic): a scope with no actor at the first
// poll is unlikely to get one imminently, so further waiting is capped
// short rather than spent on the original timeout.
func (s *Supervisor) WaitForReady(ctx context.Context, scope ScopeKey, deadline time.Duration) (*Handle, error) {
	const fastFailDeadline = 100 * time.Millisecond
	const pollInterval = 5 * time.Millisecond

	deadlineAt := time.Now().Add(deadline)
	shrunk := false
	for {
		if h, ok := s.Get(scope); ok {
			return h, nil
		}
		if !shrunk {
			shrunk = true
			if fastFail := time.Now().Add(fastFailDeadline); fastFail.Before(deadlineAt) {
				deadlineAt = fastFail
			}
		}
		if time.Now().After(deadlineAt) {
			return nil, fmt.Errorf("supervisor: %s not ready within deadline", scope)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// scheduleCheck implements presence-aware shutdown. With no Presence
// configured it schedules termination after InactivityTimeout, without
// checking status. Otherwise, after PresenceCheckDelay, if the actor is
// neither running nor interrupted and the viewer map is empty, it
// schedules termination after ShutdownDelay.
func (s *Supervisor) scheduleCheck(h *Handle) {
	if s.cfg.Presence == nil {
		h.mu.Lock()
		if h.shutdownTime != nil {
			h.shutdownTime.Stop()
		}
		h.shutdownTime = time.AfterFunc(s.cfg.InactivityTimeout, func() { s.Stop(h.Scope) })
		h.mu.Unlock()
		return
	}

	time.AfterFunc(s.cfg.PresenceCheckDelay, func() {
		switch h.Agent.GetStatus() {
		case agent.StatusRunning, agent.StatusInterrupted:
			return
		}
		viewers, err := s.cfg.Presence.List(context.Background(), s.cfg.ViewerTopicPrefix+h.Scope.String())
		if err != nil || len(viewers) > 0 {
			return
		}
		h.mu.Lock()
		if h.shutdownTime != nil {
			h.shutdownTime.Stop()
		}
		h.shutdownTime = time.AfterFunc(s.cfg.ShutdownDelay, func() { s.Stop(h.Scope) })
		h.mu.Unlock()
	})
}
