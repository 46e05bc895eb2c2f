package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishFansOutInRegistrationOrder(t *testing.T) {
	b := NewBus()
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		_, err := b.Register(SubscriberFunc(func(context.Context, Event) error {
			order = append(order, i)
			return nil
		}))
		require.NoError(t, err)
	}
	require.NoError(t, b.Publish(context.Background(), NewStatusChangedEvent("a1", "idle", "running")))
	require.Equal(t, []int{0, 1, 2}, order)
}

func TestPublishFailsFastOnSubscriberError(t *testing.T) {
	b := NewBus()
	var secondCalled bool
	boom := errors.New("boom")
	_, err := b.Register(SubscriberFunc(func(context.Context, Event) error { return boom }))
	require.NoError(t, err)
	_, err = b.Register(SubscriberFunc(func(context.Context, Event) error { secondCalled = true; return nil }))
	require.NoError(t, err)

	err = b.Publish(context.Background(), NewStatusChangedEvent("a1", "idle", "running"))
	require.ErrorIs(t, err, boom)
	require.False(t, secondCalled)
}

func TestSubscriptionCloseIsIdempotentAndUnregisters(t *testing.T) {
	b := NewBus()
	var calls int
	sub, err := b.Register(SubscriberFunc(func(context.Context, Event) error { calls++; return nil }))
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), NewStatusChangedEvent("a1", "a", "b")))
	require.Equal(t, 1, calls)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	require.NoError(t, b.Publish(context.Background(), NewStatusChangedEvent("a1", "a", "b")))
	require.Equal(t, 1, calls)
}

func TestRegisterNilSubscriberErrors(t *testing.T) {
	b := NewBus()
	_, err := b.Register(nil)
	require.Error(t, err)
}
