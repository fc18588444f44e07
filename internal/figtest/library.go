// Package figtest compares rendered figures against recorded references.
//
// References are kept two ways: a hash library mapping figure names to the
// sha256 of their PNG encoding, and optional baseline PNGs. A figure passes
// when its hash matches; otherwise a baseline, when present, is compared
// pixel by pixel and the figure passes if the RMS difference is within
// tolerance.
package figtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Library maps figure names to PNG hashes. It is safe for concurrent use.
type Library struct {
	path string

	mu     sync.RWMutex
	hashes map[string]string
}

// NewLibrary returns an empty library that saves to path.
func NewLibrary(path string) *Library {
	return &Library{path: path, hashes: make(map[string]string)}
}

// LoadLibrary reads the JSON hash library at path. A missing file yields an
// empty library.
func LoadLibrary(path string) (*Library, error) {
	lib := NewLibrary(path)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return lib, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hash library: %w", err)
	}
	if err := json.Unmarshal(data, &lib.hashes); err != nil {
		return nil, fmt.Errorf("failed to parse hash library %s: %w", path, err)
	}
	return lib, nil
}

// Path returns the file the library saves to.
func (l *Library) Path() string { return l.path }

// Get returns the recorded hash for name.
func (l *Library) Get(name string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.hashes[name]
	return h, ok
}

// Set records hash for name.
func (l *Library) Set(name, hash string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hashes[name] = hash
}

// Names returns the recorded figure names in order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.hashes))
	for n := range l.hashes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of recorded figures.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.hashes)
}

// Save writes the library as indented JSON with sorted keys.
func (l *Library) Save() error {
	l.mu.RLock()
	data, err := json.MarshalIndent(l.hashes, "", "  ")
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode hash library: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(l.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write hash library: %w", err)
	}
	return nil
}
