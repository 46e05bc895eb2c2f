// Package memstore implements vfs.Backend entirely in process memory. It is
// the default/test backend named in SPEC_FULL.md §4.4: persistence
// registered against it behaves exactly like any other backend, but nothing
// survives process restart.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentruntime/core/runtime/vfs"
)

type entry struct {
	content []byte
	modTime time.Time
}

// Store is an in-memory vfs.Backend.
type Store struct {
	mu    sync.Mutex
	files map[string]entry

	now func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{files: make(map[string]entry), now: time.Now}
}

func (s *Store) WriteFile(_ context.Context, relPath string, content []byte) (vfs.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.files[relPath] = entry{content: append([]byte(nil), content...), modTime: now}
	return vfs.Metadata{Size: int64(len(content)), ModTime: now}, nil
}

func (s *Store) ReadFile(_ context.Context, relPath string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.files[relPath]
	if !ok {
		return nil, fmt.Errorf("memstore: %q: %w", relPath, vfs.ErrNotFound)
	}
	return append([]byte(nil), e.content...), nil
}

func (s *Store) DeleteFile(_ context.Context, relPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, relPath)
	return nil
}

func (s *Store) ListFiles(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	return out, nil
}

var _ vfs.Backend = (*Store)(nil)
