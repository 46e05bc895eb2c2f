package mode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentruntime/core/runtime/message"
)

type recordingModel struct {
	err   error
	calls int
}

func (m *recordingModel) Complete(_ context.Context, _ []message.Message) (message.Message, error) {
	m.calls++
	return message.Message{Role: message.RoleAssistant, Text: "ok"}, m.err
}

func TestAdaptiveRateLimiterPassesCallsThrough(t *testing.T) {
	inner := &recordingModel{}
	l := NewAdaptiveRateLimiter(600000, 600000)
	wrapped := l.Wrap(inner)

	reply, err := wrapped.Complete(context.Background(), []message.Message{{Role: message.RoleUser, Text: "hi"}})
	require.NoError(t, err)
	require.Equal(t, "ok", reply.Text)
	require.Equal(t, 1, inner.calls)
}

func TestAdaptiveRateLimiterBacksOffOnRateLimitSignal(t *testing.T) {
	inner := &recordingModel{err: ErrRateLimited}
	l := NewAdaptiveRateLimiter(1000, 1000)
	before := l.currentTPM

	wrapped := l.Wrap(inner)
	_, err := wrapped.Complete(context.Background(), nil)
	require.ErrorIs(t, err, ErrRateLimited)

	require.Less(t, l.currentTPM, before)
}

func TestAdaptiveRateLimiterProbesUpOnSuccess(t *testing.T) {
	inner := &recordingModel{}
	l := NewAdaptiveRateLimiter(1000, 2000)
	l.currentTPM = 1000

	wrapped := l.Wrap(inner)
	_, err := wrapped.Complete(context.Background(), nil)
	require.NoError(t, err)

	require.Greater(t, l.currentTPM, 1000.0)
	require.LessOrEqual(t, l.currentTPM, 2000.0)
}
