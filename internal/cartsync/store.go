package cartsync

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LocalStore persists the client state between runs.
type LocalStore interface {
	Load() (State, error)
	Save(State) error
}

// FileStore keeps the state as a JSON document on disk.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns an empty state when the file does not exist yet.
func (f *FileStore) Load() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read local cart: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("decode local cart: %w", err)
	}
	return s, nil
}

// Save replaces the file atomically.
func (f *FileStore) Save(s State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode local cart: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".cart-*.json")
	if err != nil {
		return fmt.Errorf("write local cart: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write local cart: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write local cart: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}
