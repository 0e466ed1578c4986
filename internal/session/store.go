// Package session persists the signed-in identity of the terminal client.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Identity is the signed-in user and their bearer token.
type Identity struct {
	UserID string `yaml:"user_id"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Avatar string `yaml:"avatar,omitempty"`
	Token  string `yaml:"token"`
}

// Store keeps the current Identity in memory and mirrors it to a YAML file.
type Store struct {
	path string

	mu       sync.RWMutex
	identity *Identity
}

// NewStore returns a store backed by path. Nothing is read until Load.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the session file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the session file. A missing file means signed out and is not an error.
func (s *Store) Load() (*Identity, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.set(nil)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var id Identity
	if err := yaml.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", s.path, err)
	}
	if id.Token == "" || id.UserID == "" {
		s.set(nil)
		return nil, nil
	}
	s.set(&id)
	return s.Current(), nil
}

// Save replaces the identity and writes it to disk with owner-only permissions.
func (s *Store) Save(id Identity) error {
	raw, err := yaml.Marshal(&id)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	s.set(&id)
	return nil
}

// Clear forgets the identity and removes the session file.
func (s *Store) Clear() error {
	s.set(nil)
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Current returns a copy of the identity, or nil when signed out.
func (s *Store) Current() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// UserID returns the signed-in user's ID, or "".
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.UserID
}

// Token returns the bearer token, or "". It satisfies api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.Token
}

func (s *Store) set(id *Identity) {
	s.mu.Lock()
	s.identity = id
	s.mu.Unlock()
}
