// Package vfs implements the filesystem server: one actor per scope key
// owning a virtual path space backed by zero or more registered storage
// locations (SPEC_FULL.md §4.4). A Server is safe for concurrent use; every
// operation is serialized through an internal mutex the same way the
// teacher's hooks.bus serializes subscriber registration.
package vfs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
)

var (
	// ErrReadOnly is returned when a mutation targets a path owned by a
	// readonly PersistenceConfig.
	ErrReadOnly = errors.New("vfs: path is read-only")
	// ErrNotFound is returned by read_file for a missing path; delete_file
	// treats a missing path as a successful no-op.
	ErrNotFound = errors.New("vfs: file not found")
	// ErrAlreadyRegistered is returned by register_persistence when
	// base_directory is already registered.
	ErrAlreadyRegistered = errors.New("vfs: base directory already registered")
)

// Backend is the storage abstraction a PersistenceConfig delegates to.
// Paths passed to Backend methods are already relative to the owning
// config's base_directory (SPEC_FULL.md §4.4 virtual-to-storage mapping).
type Backend interface {
	// WriteFile persists content at relPath and returns updated metadata.
	WriteFile(ctx context.Context, relPath string, content []byte) (Metadata, error)
	// ReadFile loads content from relPath.
	ReadFile(ctx context.Context, relPath string) ([]byte, error)
	// DeleteFile removes relPath from storage.
	DeleteFile(ctx context.Context, relPath string) error
	// ListFiles enumerates every relative path currently in storage.
	ListFiles(ctx context.Context) ([]string, error)
}

// Metadata is what a Backend reports back after a successful write.
type Metadata struct {
	Size      int64
	ModTime   time.Time
	Checksum  string
}

// PersistenceConfig describes one registered storage root. BaseDirectory is
// the unique key: every virtual path beginning with "/"+BaseDirectory+"/"
// is owned by this config.
type PersistenceConfig struct {
	BaseDirectory string
	Backend       Backend
	DebounceMS    int
	ReadOnly      bool
	// Options carries backend-specific construction parameters (decoded via
	// mapstructure by the concrete Backend constructor, not by Server
	// itself — Server only ever uses BaseDirectory/DebounceMS/ReadOnly).
	Options map[string]any
}

func (c PersistenceConfig) debounce() time.Duration {
	if c.DebounceMS <= 0 {
		return 0
	}
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// fileState records whether a file was indexed from storage (as opposed to
// written first in memory).
type fileState int

const (
	stateMemoryOnly fileState = iota
	statePersisted
)

// FileEntry is the server's in-memory record for one virtual path.
type FileEntry struct {
	Path     string
	Content  []byte
	Dirty    bool
	Loaded   bool
	State    fileState
	Metadata Metadata
}

// Server is the per-scope-key filesystem actor.
type Server struct {
	mu      sync.Mutex
	files   map[string]*FileEntry
	configs []PersistenceConfig // ordered by BaseDirectory length, longest first
	timers  map[string]*time.Timer

	clock func() time.Time
}

// NewServer returns an empty Server with no registered persistence.
func NewServer() *Server {
	return &Server{
		files:  make(map[string]*FileEntry),
		timers: make(map[string]*time.Timer),
		clock:  time.Now,
	}
}

// RegisterPersistence adds config. It fails with ErrAlreadyRegistered if
// BaseDirectory is already registered, and otherwise indexes every path
// ListFiles reports as persisted-but-unloaded (SPEC_FULL.md §4.4 lazy
// loading).
func (s *Server) RegisterPersistence(ctx context.Context, config PersistenceConfig) error {
	s.mu.Lock()
	for _, c := range s.configs {
		if c.BaseDirectory == config.BaseDirectory {
			s.mu.Unlock()
			return fmt.Errorf("%w: %q", ErrAlreadyRegistered, config.BaseDirectory)
		}
	}
	s.mu.Unlock()

	var relPaths []string
	if config.Backend != nil {
		var err error
		relPaths, err = config.Backend.ListFiles(ctx)
		if err != nil {
			return fmt.Errorf("vfs: list_persisted_files %q: %w", config.BaseDirectory, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs = append(s.configs, config)
	sortConfigsByDepth(s.configs)

	for _, rel := range relPaths {
		vp := toVirtualPath(config.BaseDirectory, rel)
		if _, exists := s.files[vp]; exists {
			continue
		}
		s.files[vp] = &FileEntry{Path: vp, State: statePersisted, Loaded: false}
	}
	return nil
}

// WriteFile creates or updates the file at path, marking it dirty and
// resetting the owning config's debounce timer.
func (s *Server) WriteFile(ctx context.Context, vpath string, content []byte) error {
	vpath = normalize(vpath)
	s.mu.Lock()
	cfg, _ := s.ownerLocked(vpath)
	if cfg != nil && cfg.ReadOnly {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrReadOnly, vpath)
	}
	entry, ok := s.files[vpath]
	if !ok {
		entry = &FileEntry{Path: vpath}
		s.files[vpath] = entry
	}
	entry.Content = content
	entry.Dirty = true
	entry.Loaded = true
	s.mu.Unlock()

	if cfg != nil {
		s.resetDebounce(ctx, *cfg)
	}
	return nil
}

// ReadFile returns the content at path, lazily loading it from the owning
// backend on first access if it was only indexed from storage.
func (s *Server) ReadFile(ctx context.Context, vpath string) ([]byte, error) {
	vpath = normalize(vpath)
	s.mu.Lock()
	entry, ok := s.files[vpath]
	cfg, _ := s.ownerLocked(vpath)
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, vpath)
	}
	if entry.Loaded {
		return entry.Content, nil
	}
	if entry.State != statePersisted || cfg == nil || cfg.Backend == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, vpath)
	}
	rel := toRelativePath(cfg.BaseDirectory, vpath)
	content, err := cfg.Backend.ReadFile(ctx, rel)
	if err != nil {
		return nil, fmt.Errorf("vfs: load %s: %w", vpath, err)
	}
	s.mu.Lock()
	entry.Content = content
	entry.Loaded = true
	s.mu.Unlock()
	return content, nil
}

// DeleteFile removes path from the server and schedules a backend delete.
// A missing path is treated as a successful no-op delete, not an error
// (SPEC_FULL.md §7 error table: not_found is surfaced for read but not for
// delete).
func (s *Server) DeleteFile(ctx context.Context, vpath string) error {
	vpath = normalize(vpath)
	s.mu.Lock()
	cfg, _ := s.ownerLocked(vpath)
	if cfg != nil && cfg.ReadOnly {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrReadOnly, vpath)
	}
	_, ok := s.files[vpath]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.files, vpath)
	s.mu.Unlock()

	if cfg != nil && cfg.Backend != nil {
		rel := toRelativePath(cfg.BaseDirectory, vpath)
		if err := cfg.Backend.DeleteFile(ctx, rel); err != nil {
			return fmt.Errorf("vfs: delete %s: %w", vpath, err)
		}
	}
	return nil
}

// ListFiles enumerates virtual paths starting with prefix (all files if
// prefix is empty).
func (s *Server) ListFiles(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		if prefix == "" || strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out
}

// resetDebounce (re)starts the per-base_directory debounce timer for cfg.
// On fire, every dirty file under cfg.BaseDirectory is flushed via
// cfg.Backend.WriteFile; concurrent writes to the same file before the
// timer fires collapse into the last write (last write wins, per
// SPEC_FULL.md §4.4).
func (s *Server) resetDebounce(ctx context.Context, cfg PersistenceConfig) {
	if cfg.Backend == nil {
		return
	}
	s.mu.Lock()
	if t, ok := s.timers[cfg.BaseDirectory]; ok {
		t.Stop()
	}
	d := cfg.debounce()
	fire := func() { s.flush(ctx, cfg) }
	if d <= 0 {
		s.mu.Unlock()
		fire()
		return
	}
	s.timers[cfg.BaseDirectory] = time.AfterFunc(d, fire)
	s.mu.Unlock()
}

func (s *Server) flush(ctx context.Context, cfg PersistenceConfig) {
	prefix := "/" + strings.Trim(cfg.BaseDirectory, "/") + "/"
	s.mu.Lock()
	var dirty []*FileEntry
	for p, e := range s.files {
		if strings.HasPrefix(p, prefix) && e.Dirty {
			dirty = append(dirty, e)
		}
	}
	s.mu.Unlock()

	for _, e := range dirty {
		rel := toRelativePath(cfg.BaseDirectory, e.Path)
		meta, err := cfg.Backend.WriteFile(ctx, rel, e.Content)
		if err != nil {
			continue
		}
		s.mu.Lock()
		e.Dirty = false
		e.Loaded = true
		e.Metadata = meta
		s.mu.Unlock()
	}
}

// ownerLocked returns the longest-matching-prefix PersistenceConfig owning
// vpath, or nil if no config matches (memory-only path, always mutable).
// Callers must hold s.mu.
func (s *Server) ownerLocked(vpath string) (*PersistenceConfig, bool) {
	for i := range s.configs {
		prefix := "/" + strings.Trim(s.configs[i].BaseDirectory, "/") + "/"
		if strings.HasPrefix(vpath, prefix) {
			return &s.configs[i], true
		}
	}
	return nil, false
}

func sortConfigsByDepth(configs []PersistenceConfig) {
	for i := 1; i < len(configs); i++ {
		for j := i; j > 0 && len(configs[j].BaseDirectory) > len(configs[j-1].BaseDirectory); j-- {
			configs[j], configs[j-1] = configs[j-1], configs[j]
		}
	}
}

func normalize(vpath string) string {
	if !strings.HasPrefix(vpath, "/") {
		vpath = "/" + vpath
	}
	return path.Clean(vpath)
}

func toVirtualPath(baseDirectory, relPath string) string {
	return "/" + strings.Trim(baseDirectory, "/") + "/" + strings.TrimPrefix(relPath, "/")
}

func toRelativePath(baseDirectory, vpath string) string {
	prefix := "/" + strings.Trim(baseDirectory, "/") + "/"
	return strings.TrimPrefix(vpath, prefix)
}
