package diskstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.WriteFile(ctx, "sub/a.txt", []byte("hello"))
	require.NoError(t, err)

	got, err := s.ReadFile(ctx, "sub/a.txt")
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	names, err := s.ListFiles(ctx)
	require.NoError(t, err)
	require.Contains(t, names, "sub/a.txt")

	require.NoError(t, s.DeleteFile(ctx, "sub/a.txt"))
	_, err = s.ReadFile(ctx, "sub/a.txt")
	require.Error(t, err)
}

func TestPathEscapeIsContainedWithinRoot(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	_, err = s.WriteFile(context.Background(), "../escape.txt", []byte("x"))
	require.NoError(t, err)

	got, err := s.ReadFile(context.Background(), "escape.txt")
	require.NoError(t, err)
	require.Equal(t, "x", string(got))
}

func TestNewRejectsMissingRoot(t *testing.T) {
	_, err := New("/nonexistent/path/for/diskstore/test")
	require.Error(t, err)
}
