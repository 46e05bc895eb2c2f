package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentruntime/core/runtime/vfs/memstore"
)

func TestWriteThenReadWithoutIntervening(t *testing.T) {
	s := NewServer()
	ctx := context.Background()
	require.NoError(t, s.WriteFile(ctx, "/scratch.txt", []byte("hello")))

	got, err := s.ReadFile(ctx, "/scratch.txt")
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestReadMissingFileFails(t *testing.T) {
	s := NewServer()
	_, err := s.ReadFile(context.Background(), "/nope.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMissingFileIsSuccess(t *testing.T) {
	s := NewServer()
	require.NoError(t, s.DeleteFile(context.Background(), "/nope.txt"))
}

func TestReadOnlyEnforcement(t *testing.T) {
	s := NewServer()
	ctx := context.Background()
	require.NoError(t, s.RegisterPersistence(ctx, PersistenceConfig{
		BaseDirectory: "readonly_dir",
		Backend:       memstore.New(),
		ReadOnly:      true,
	}))

	err := s.WriteFile(ctx, "/readonly_dir/a.txt", []byte("x"))
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestDuplicateBaseDirectoryRejected(t *testing.T) {
	s := NewServer()
	ctx := context.Background()
	cfg := PersistenceConfig{BaseDirectory: "docs", Backend: memstore.New()}
	require.NoError(t, s.RegisterPersistence(ctx, cfg))
	err := s.RegisterPersistence(ctx, cfg)
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestLazyLoadFromPersistedBackend(t *testing.T) {
	backend := memstore.New()
	_, err := backend.WriteFile(context.Background(), "notes.txt", []byte("preexisting"))
	require.NoError(t, err)

	s := NewServer()
	ctx := context.Background()
	require.NoError(t, s.RegisterPersistence(ctx, PersistenceConfig{BaseDirectory: "user_files", Backend: backend}))

	paths := s.ListFiles("")
	require.Contains(t, paths, "/user_files/notes.txt")

	content, err := s.ReadFile(ctx, "/user_files/notes.txt")
	require.NoError(t, err)
	require.Equal(t, "preexisting", string(content))
}

func TestDebouncedWriteFlushesToBackend(t *testing.T) {
	backend := memstore.New()
	s := NewServer()
	ctx := context.Background()
	require.NoError(t, s.RegisterPersistence(ctx, PersistenceConfig{
		BaseDirectory: "saved",
		Backend:       backend,
		DebounceMS:    0,
	}))

	require.NoError(t, s.WriteFile(ctx, "/saved/a.txt", []byte("v1")))

	got, err := backend.ReadFile(ctx, "a.txt")
	require.NoError(t, err)
	require.Equal(t, "v1", string(got))
}

func TestListFilesPrefix(t *testing.T) {
	s := NewServer()
	ctx := context.Background()
	require.NoError(t, s.WriteFile(ctx, "/a/1.txt", []byte("x")))
	require.NoError(t, s.WriteFile(ctx, "/b/2.txt", []byte("y")))

	require.ElementsMatch(t, []string{"/a/1.txt"}, s.ListFiles("/a"))
}
