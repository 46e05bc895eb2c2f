package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentruntime/core/runtime/agent"
	"github.com/agentruntime/core/runtime/message"
	"github.com/agentruntime/core/supervisor/presence/inmem"
)

type stubModel struct{}

func (stubModel) Complete(_ context.Context, _ []message.Message) (message.Message, error) {
	return message.Message{Role: message.RoleAssistant, Text: "done"}, nil
}

func stubFactory(ScopeKey) (agent.Config, error) {
	return agent.Config{Model: stubModel{}}, nil
}

func TestStartIsIdempotent(t *testing.T) {
	sv := New(stubFactory, Config{})
	scope := ScopeKey{Kind: ScopeUser, ID: "alice"}

	h1, err := sv.Start(scope)
	require.NoError(t, err)
	require.NotNil(t, h1)

	h2, err := sv.Start(scope)
	require.ErrorIs(t, err, ErrAlreadyStarted)
	require.Same(t, h1, h2)

	require.NoError(t, sv.Stop(scope))
}

func TestStopRemovesHandle(t *testing.T) {
	sv := New(stubFactory, Config{})
	scope := ScopeKey{Kind: ScopeAgent, ID: "a1"}

	_, err := sv.Start(scope)
	require.NoError(t, err)
	_, ok := sv.Get(scope)
	require.True(t, ok)

	require.NoError(t, sv.Stop(scope))
	_, ok = sv.Get(scope)
	require.False(t, ok)

	// Stopping a scope that was never started is a no-op.
	require.NoError(t, sv.Stop(scope))
}

func TestListReturnsAllHandles(t *testing.T) {
	sv := New(stubFactory, Config{})
	scopes := []ScopeKey{
		{Kind: ScopeUser, ID: "u1"},
		{Kind: ScopeProject, ID: "p1"},
	}
	for _, s := range scopes {
		_, err := sv.Start(s)
		require.NoError(t, err)
	}
	require.Len(t, sv.List(), 2)
}

func TestPresenceAwareShutdownStopsIdleAgent(t *testing.T) {
	pres := inmem.New()
	sv := New(stubFactory, Config{
		Presence:           pres,
		PresenceCheckDelay: 5 * time.Millisecond,
		ShutdownDelay:      5 * time.Millisecond,
	})
	scope := ScopeKey{Kind: ScopeAgent, ID: "idle-one"}

	h, err := sv.Start(scope)
	require.NoError(t, err)

	h.Run(agent.RunOptions{})

	require.Eventually(t, func() bool {
		_, ok := sv.Get(scope)
		return !ok
	}, time.Second, 2*time.Millisecond)
}

func TestWaitForReadyReturnsStartedHandle(t *testing.T) {
	sv := New(stubFactory, Config{})
	scope := ScopeKey{Kind: ScopeUser, ID: "waiter"}
	h, err := sv.Start(scope)
	require.NoError(t, err)

	got, err := sv.WaitForReady(context.Background(), scope, time.Second)
	require.NoError(t, err)
	require.Same(t, h, got)
}

func TestWaitForReadyFailsFastOnUnknownScope(t *testing.T) {
	sv := New(stubFactory, Config{})
	start := time.Now()
	_, err := sv.WaitForReady(context.Background(), ScopeKey{Kind: ScopeUser, ID: "ghost"}, 2*time.Second)
	require.Error(t, err)
	require.Less(t, time.Since(start), 500*time.Millisecond, "fast-fail heuristic should shrink the deadline to ~100ms")
}

func TestTouchCancelsScheduledShutdown(t *testing.T) {
	pres := inmem.New()
	sv := New(stubFactory, Config{
		Presence:           pres,
		PresenceCheckDelay: 2 * time.Millisecond,
		ShutdownDelay:      20 * time.Millisecond,
	})
	scope := ScopeKey{Kind: ScopeAgent, ID: "touched"}

	h, err := sv.Start(scope)
	require.NoError(t, err)

	h.Run(agent.RunOptions{})
	time.Sleep(8 * time.Millisecond) // let the shutdown timer get scheduled
	h.Touch()

	time.Sleep(40 * time.Millisecond)
	_, ok := sv.Get(scope)
	require.True(t, ok, "Touch should have cancelled the scheduled termination")

	require.NoError(t, sv.Stop(scope))
}
