package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// SessionFlag persists the "was authenticated" marker of shared mode.
// It only restores UI state across restarts; it is not an access check.
type SessionFlag interface {
	Load() (bool, error)
	Save(authenticated bool) error
}

// FileFlag stores the marker as a small JSON file.
// Saving false removes the file.
type FileFlag struct {
	Path string
}

type flagFile struct {
	Authenticated bool `json:"authenticated"`
}

// Load implements SessionFlag. A missing file means false.
func (f FileFlag) Load() (bool, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read session flag: %w", err)
	}
	var ff flagFile
	if err := json.Unmarshal(data, &ff); err != nil {
		// A corrupt marker just means the user logs in again.
		return false, nil
	}
	return ff.Authenticated, nil
}

// Save implements SessionFlag.
func (f FileFlag) Save(authenticated bool) error {
	if !authenticated {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove session flag: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(flagFile{Authenticated: true})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session flag: %w", err)
	}
	return nil
}

// MemoryFlag keeps the marker in memory. Web sessions seed it from their cookie.
type MemoryFlag struct {
	mu sync.Mutex
	v  bool
}

// NewMemoryFlag returns a MemoryFlag holding v.
func NewMemoryFlag(v bool) *MemoryFlag {
	return &MemoryFlag{v: v}
}

// Load implements SessionFlag.
func (m *MemoryFlag) Load() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v, nil
}

// Save implements SessionFlag.
func (m *MemoryFlag) Save(authenticated bool) error {
	m.mu.Lock()
	m.v = authenticated
	m.mu.Unlock()
	return nil
}
