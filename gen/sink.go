package gen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Sink receives generated files. WriteFile reports whether it changed
// anything; content equal to what the sink holds is not rewritten.
type Sink interface {
	WriteFile(ctx context.Context, name string, content []byte) (bool, error)
}

// FileSink writes into a directory.
type FileSink struct {
	Root string
	Mode os.FileMode // default 0644
}

// NewFileSink returns a sink writing into root.
func NewFileSink(root string) *FileSink {
	return &FileSink{Root: root, Mode: 0644}
}

// WriteFile replaces name atomically via a temp file and rename, so readers
// never observe a partial file.
func (s *FileSink) WriteFile(ctx context.Context, name string, content []byte) (bool, error) {
	if err := validateName(name); err != nil {
		return false, fmt.Errorf("invalid output name %q: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	path := filepath.Join(s.Root, name)
	old, err := os.ReadFile(path)
	switch {
	case err == nil && bytes.Equal(old, content):
		return false, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return false, err
	}

	mode := s.Mode
	if mode == 0 {
		mode = 0644
	}
	tmp, err := os.CreateTemp(s.Root, ".reskit-*.tmp")
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	_, writeErr := tmp.Write(content)
	closeErr := tmp.Close()
	if writeErr != nil {
		cleanup()
		return false, fmt.Errorf("write temp file: %w", writeErr)
	}
	if closeErr != nil {
		cleanup()
		return false, fmt.Errorf("close temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		cleanup()
		return false, fmt.Errorf("set file mode: %w", err)
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return false, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return false, fmt.Errorf("rename temp file: %w", err)
	}
	return true, nil
}

// MemorySink keeps generated files in memory.
type MemorySink struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

func (s *MemorySink) WriteFile(ctx context.Context, name string, content []byte) (bool, error) {
	if err := validateName(name); err != nil {
		return false, fmt.Errorf("invalid output name %q: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.files[name]; ok && bytes.Equal(old, content) {
		return false, nil
	}
	s.files[name] = bytes.Clone(content)
	return true, nil
}

// Get returns a copy of a file, or nil.
func (s *MemorySink) Get(name string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bytes.Clone(s.files[name])
}

// validateName accepts plain file names only; outputs live next to the
// resource files.
func validateName(name string) error {
	switch {
	case name == "":
		return errors.New("name is empty")
	case strings.ContainsAny(name, `/\`):
		return errors.New("name has a path separator")
	case name == "." || name == "..":
		return errors.New("name is a directory reference")
	}
	return nil
}
