// Package file provides file-based persistence for dashboard tab
// configurations and display formats.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/veergo/motorbff/pkg/dashboard"
)

const (
	tabsFile    = "tabs.json"
	formatsFile = "formats.json"
)

// Store implements dashboard.Store on two JSON documents under a root
// directory, each keyed by tab name.
type Store struct {
	root string
	mu   sync.Mutex
}

func NewStore(root string) *Store {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Store{root: cleanRoot}
}

func (s *Store) Tabs(_ context.Context) (map[string]*dashboard.TabConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tabs := make(map[string]*dashboard.TabConfig)
	if err := s.read(tabsFile, &tabs); err != nil {
		return nil, err
	}

	for name, tab := range tabs {
		tab.Name = name
	}

	return tabs, nil
}

// Tab returns the named configuration, or nil when it does not exist.
func (s *Store) Tab(ctx context.Context, name string) (*dashboard.TabConfig, error) {
	tabs, err := s.Tabs(ctx)
	if err != nil {
		return nil, err
	}

	return tabs[name], nil
}

func (s *Store) SaveTab(_ context.Context, tab *dashboard.TabConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tabs := make(map[string]*dashboard.TabConfig)
	if err := s.read(tabsFile, &tabs); err != nil {
		return err
	}

	tabs[tab.Name] = tab

	return s.write(tabsFile, tabs)
}

// Format returns the named display format, or nil when it does not exist.
func (s *Store) Format(_ context.Context, name string) (*dashboard.TabFormat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	formats := make(map[string]*dashboard.TabFormat)
	if err := s.read(formatsFile, &formats); err != nil {
		return nil, err
	}

	return formats[name], nil
}

func (s *Store) SaveFormat(_ context.Context, name string, format *dashboard.TabFormat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	formats := make(map[string]*dashboard.TabFormat)
	if err := s.read(formatsFile, &formats); err != nil {
		return err
	}

	formats[name] = format

	return s.write(formatsFile, formats)
}

func (s *Store) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (s *Store) Close(_ context.Context) error {
	return nil
}

// read decodes the named document into target. A missing file is an
// empty store, not an error.
func (s *Store) read(name string, target any) error {
	raw, err := os.ReadFile(filepath.Join(s.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}

	return nil
}

func (s *Store) write(name string, value any) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	encoded, err := json.MarshalIndent(value, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	if err := os.WriteFile(filepath.Join(s.root, name), encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	return nil
}
