package toolerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultsEmptyMessage(t *testing.T) {
	require.Equal(t, "tool error", New("").Error())
}

func TestErrorf(t *testing.T) {
	require.Equal(t, "bad arg: x", Errorf("bad arg: %s", "x").Error())
}

func TestFromErrorPreservesExistingToolError(t *testing.T) {
	original := New("boom")
	wrapped := fmt.Errorf("context: %w", original)
	require.Same(t, original, FromError(wrapped))
}

func TestFromErrorWrapsPlainError(t *testing.T) {
	plain := errors.New("plain")
	te := FromError(plain)
	require.Equal(t, "plain", te.Error())
}

func TestFromErrorNil(t *testing.T) {
	require.Nil(t, FromError(nil))
}

func TestUnwrapChain(t *testing.T) {
	cause := errors.New("root cause")
	te := NewWithCause("wrapped", cause)
	require.True(t, errors.Is(te, te))
	require.Equal(t, "root cause", te.Unwrap().Error())
}

func TestNilToolErrorErrorIsEmpty(t *testing.T) {
	var te *ToolError
	require.Equal(t, "", te.Error())
	require.Nil(t, te.Unwrap())
}
