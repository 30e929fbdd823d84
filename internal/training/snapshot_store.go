package training

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mikey/mail-triage/internal/ensemble"
	"github.com/mikey/mail-triage/internal/utils"
)

// ErrNoSnapshot is returned when no snapshot has been promoted yet
var ErrNoSnapshot = errors.New("no model snapshot")

const (
	currentPointer  = "CURRENT"
	previousPointer = "PREVIOUS"
)

// SnapshotStore keeps versioned snapshots in a directory. CURRENT names the
// active version and PREVIOUS the one it replaced; both pointers are
// replaced atomically.
type SnapshotStore struct {
	dir string
	mu  sync.Mutex
}

// NewSnapshotStore creates a store rooted at dir
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{dir: dir}
}

// Dir returns the store directory
func (s *SnapshotStore) Dir() string {
	return s.dir
}

func (s *SnapshotStore) path(version string) string {
	return filepath.Join(s.dir, "snapshot-"+version+".json")
}

// Save writes a snapshot without activating it
func (s *SnapshotStore) Save(snap *ensemble.Snapshot) error {
	if snap.Version == "" {
		return fmt.Errorf("snapshot has no version")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return utils.WriteFileAtomic(s.path(snap.Version), data)
}

// Load reads one snapshot version
func (s *SnapshotStore) Load(version string) (*ensemble.Snapshot, error) {
	data, err := os.ReadFile(s.path(version))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: version %s", ErrNoSnapshot, version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", version, err)
	}
	var snap ensemble.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", version, err)
	}
	return &snap, nil
}

// Current returns the active snapshot
func (s *SnapshotStore) Current() (*ensemble.Snapshot, error) {
	return s.loadPointer(currentPointer)
}

// Previous returns the snapshot retained for rollback
func (s *SnapshotStore) Previous() (*ensemble.Snapshot, error) {
	return s.loadPointer(previousPointer)
}

// Promote saves snap and makes it the active snapshot; the active one
// becomes the rollback target
func (s *SnapshotStore) Promote(snap *ensemble.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Save(snap); err != nil {
		return err
	}
	current, err := s.readPointer(currentPointer)
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		return err
	}
	if current != "" && current != snap.Version {
		if err := s.writePointer(previousPointer, current); err != nil {
			return err
		}
	}
	return s.writePointer(currentPointer, snap.Version)
}

// Rollback reactivates the previous snapshot and returns it
func (s *SnapshotStore) Rollback() (*ensemble.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, err := s.readPointer(previousPointer)
	if err != nil {
		return nil, err
	}
	snap, err := s.Load(previous)
	if err != nil {
		return nil, err
	}
	if err := s.writePointer(currentPointer, previous); err != nil {
		return nil, err
	}
	if err := os.Remove(filepath.Join(s.dir, previousPointer)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to clear rollback pointer: %w", err)
	}
	return snap, nil
}

// Versions lists the stored snapshot versions in lexical order
func (s *SnapshotStore) Versions() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "snapshot-*.json"))
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		versions = append(versions, strings.TrimSuffix(strings.TrimPrefix(name, "snapshot-"), ".json"))
	}
	sort.Strings(versions)
	return versions, nil
}

func (s *SnapshotStore) loadPointer(name string) (*ensemble.Snapshot, error) {
	version, err := s.readPointer(name)
	if err != nil {
		return nil, err
	}
	return s.Load(version)
}

func (s *SnapshotStore) readPointer(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoSnapshot
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s pointer: %w", name, err)
	}
	version := strings.TrimSpace(string(data))
	if version == "" {
		return "", ErrNoSnapshot
	}
	return version, nil
}

func (s *SnapshotStore) writePointer(name, version string) error {
	return utils.WriteFileAtomic(filepath.Join(s.dir, name), []byte(version+"\n"))
}
