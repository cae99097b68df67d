// Package client provides a server-independent chat session: local state, a
// realtime connection, durable session storage and keyboard shortcuts.
package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"multiuser-chat/internal/domain"
	"multiuser-chat/internal/dto"
)

// SessionState is the part of a Session mirrored to durable storage so a
// restarted client resumes where it left off.
type SessionState struct {
	User     *domain.User     `json:"user,omitempty"`
	Room     *domain.Room     `json:"room,omitempty"`
	Messages []dto.NewMessage `json:"messages"`
	Members  []domain.Member  `json:"members"`
}

// Storage persists session state between runs.
type Storage interface {
	// Load returns the stored state, or nil when nothing is stored.
	Load() (*SessionState, error)
	Save(state *SessionState) error
	Clear() error
}

// FileStorage stores session state as a JSON file.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

// NewFileStorage creates a FileStorage at the given path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (s *FileStorage) Load() (*SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: failed to read %s: %w", s.path, err)
	}
	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("storage: corrupt state file %s: %w", s.path, err)
	}
	return &state, nil
}

func (s *FileStorage) Save(state *SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: failed to marshal state: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("storage: failed to create %s: %w", dir, err)
		}
	}
	// Write-then-rename so a crash mid-write cannot corrupt the state file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("storage: failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("storage: failed to replace %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: failed to remove %s: %w", s.path, err)
	}
	return nil
}
