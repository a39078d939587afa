// Package session gates access to the chat view behind a persisted login flag.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/diogo/insightchat/internal/config"
)

// The persisted flag is a single string value under a fixed key.
const (
	FlagKey   = "loggedIn"
	FlagTrue  = "true"
	FlagFalse = "false"
)

// Store persists the login flag between runs
type Store interface {
	// Load returns the stored flag, or "" when nothing was stored yet.
	Load() (string, error)
	Save(value string) error
}

// FileStore keeps the flag in a small JSON file
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFileStore returns the store at the standard location in the config directory
func DefaultFileStore() (*FileStore, error) {
	path, err := config.GetSessionPath()
	if err != nil {
		return nil, err
	}
	return NewFileStore(path), nil
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the flag from disk
func (s *FileStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read session file: %w", err)
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return "", fmt.Errorf("failed to parse session file: %w", err)
	}

	return values[FlagKey], nil
}

// Save writes the flag to disk with owner-only permissions
func (s *FileStore) Save(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(map[string]string{FlagKey: value}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// MemoryStore keeps the flag in memory, for tests and ephemeral runs
type MemoryStore struct {
	mu    sync.Mutex
	value string
	// Err, when set, is returned by Load and Save.
	Err error
}

// NewMemoryStore creates a store holding the given initial value
func NewMemoryStore(initial string) *MemoryStore {
	return &MemoryStore{value: initial}
}

func (s *MemoryStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return s.value, nil
}

func (s *MemoryStore) Save(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.value = value
	return nil
}

// Value returns the current flag without error handling
func (s *MemoryStore) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}
