// Package diskstore implements vfs.Backend against a directory on local
// disk, optionally watching it with fsnotify so external writes (an editor,
// a sibling process) surface as change notifications rather than going
// unnoticed until the next read (SPEC_FULL.md §4.4 expansion).
package diskstore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/agentruntime/core/runtime/vfs"
)

// Store is a disk-backed vfs.Backend rooted at Root. Root must be an
// explicit, existing directory — there is no temp-dir fallback
// (SPEC_FULL.md §4.4 expansion).
type Store struct {
	root string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	changes chan string
	closed  chan struct{}
}

// New returns a Store rooted at root. root must already exist.
func New(root string) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("diskstore: root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("diskstore: root %q is not a directory", root)
	}
	return &Store{root: root}, nil
}

// Watch starts an fsnotify watch on the store's root, returning a channel
// of relative paths that changed externally. Calling Watch twice returns
// the same channel. The caller must call Close to release the watcher.
func (s *Store) Watch() (<-chan string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return s.changes, nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("diskstore: new watcher: %w", err)
	}
	if err := w.Add(s.root); err != nil {
		w.Close()
		return nil, fmt.Errorf("diskstore: watch %q: %w", s.root, err)
	}
	s.watcher = w
	s.changes = make(chan string, 32)
	s.closed = make(chan struct{})
	go s.pump()
	return s.changes, nil
}

func (s *Store) pump() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			rel, err := filepath.Rel(s.root, ev.Name)
			if err != nil {
				continue
			}
			select {
			case s.changes <- filepath.ToSlash(rel):
			default:
			}
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		case <-s.closed:
			return
		}
	}
}

// Close stops the fsnotify watch, if one was started.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	close(s.closed)
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

// abs resolves relPath to an absolute path under s.root. Cleaning relPath
// with a leading "/" first means any ".." component collapses at the root
// rather than escaping it.
func (s *Store) abs(relPath string) (string, error) {
	cleaned := filepath.Clean("/" + relPath)
	return filepath.Join(s.root, cleaned), nil
}

func (s *Store) WriteFile(_ context.Context, relPath string, content []byte) (vfs.Metadata, error) {
	abs, err := s.abs(relPath)
	if err != nil {
		return vfs.Metadata{}, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return vfs.Metadata{}, fmt.Errorf("diskstore: mkdir for %q: %w", relPath, err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		return vfs.Metadata{}, fmt.Errorf("diskstore: write %q: %w", relPath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return vfs.Metadata{}, fmt.Errorf("diskstore: stat %q: %w", relPath, err)
	}
	return vfs.Metadata{Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (s *Store) ReadFile(_ context.Context, relPath string) ([]byte, error) {
	abs, err := s.abs(relPath)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("diskstore: %q: %w", relPath, vfs.ErrNotFound)
		}
		return nil, fmt.Errorf("diskstore: read %q: %w", relPath, err)
	}
	return content, nil
}

func (s *Store) DeleteFile(_ context.Context, relPath string) error {
	abs, err := s.abs(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("diskstore: delete %q: %w", relPath, err)
	}
	return nil
}

func (s *Store) ListFiles(_ context.Context) ([]string, error) {
	var out []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("diskstore: list %q: %w", s.root, err)
	}
	return out, nil
}

var _ vfs.Backend = (*Store)(nil)
