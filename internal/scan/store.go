package scan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mikey/mail-triage/internal/utils"
)

var (
	// ErrNoState is returned when no scan state has been persisted yet
	ErrNoState = errors.New("no scan state")
	// ErrStateCorrupt is returned when the persisted state cannot be read back.
	// The operator has to reset or restore the previous checkpoint explicitly.
	ErrStateCorrupt = errors.New("scan state corrupt")
)

// StateStore persists scan state between batches
type StateStore interface {
	Load() (*State, error)
	Save(state *State) error
}

// FileStateStore keeps the scan state in a JSON file.
// Each save replaces the file atomically and keeps the prior checkpoint
// next to it with a .prev suffix.
type FileStateStore struct {
	path string
}

// NewFileStateStore creates a store writing to path
func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

// Path returns the state file location
func (s *FileStateStore) Path() string {
	return s.path
}

// Load reads the current state
func (s *FileStateStore) Load() (*State, error) {
	return load(s.path)
}

func load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scan state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStateCorrupt, path, err)
	}
	if err := state.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStateCorrupt, path, err)
	}
	return &state, nil
}

// Save atomically replaces the state file
func (s *FileStateStore) Save(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode scan state: %w", err)
	}

	if prev, err := os.ReadFile(s.path); err == nil {
		if err := utils.WriteFileAtomic(s.path+".prev", prev); err != nil {
			return err
		}
	}
	return utils.WriteFileAtomic(s.path, data)
}

// Reset removes the current state so the next scan starts from scratch
func (s *FileStateStore) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to reset scan state: %w", err)
	}
	return nil
}

// RestorePrevious replaces the current state with the prior checkpoint
func (s *FileStateStore) RestorePrevious() (*State, error) {
	state, err := load(s.path + ".prev")
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode scan state: %w", err)
	}
	if err := utils.WriteFileAtomic(s.path, data); err != nil {
		return nil, err
	}
	return state, nil
}
