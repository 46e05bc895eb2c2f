package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	meta, err := s.WriteFile(ctx, "a.txt", []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, int64(5), meta.Size)

	got, err := s.ReadFile(ctx, "a.txt")
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	require.NoError(t, s.DeleteFile(ctx, "a.txt"))
	_, err = s.ReadFile(ctx, "a.txt")
	require.Error(t, err)
}

func TestListFiles(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.WriteFile(ctx, "a.txt", []byte("1"))
	require.NoError(t, err)
	_, err = s.WriteFile(ctx, "b.txt", []byte("2"))
	require.NoError(t, err)

	names, err := s.ListFiles(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)
}
