// Package state persists the set of tracked targets between invocations.
//
// The firewall itself has no memory of why a rule exists; this store is
// what lets remove and status operate per-IP after the process that
// applied the rules has exited.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v2"

	"grimm.is/netleash/internal/clock"
)

// Mode describes what kind of rules a target has.
type Mode string

const (
	ModeMonitor Mode = "monitor"
	ModeLimit   Mode = "limit"
)

// Target is one tracked IP address and the rules applied to it.
type Target struct {
	ID         string    `yaml:"id"`
	IP         string    `yaml:"ip"`
	Mode       Mode      `yaml:"mode"`
	UploadKBps uint      `yaml:"upload_kbps,omitempty"`
	DownKBps   uint      `yaml:"download_kbps,omitempty"`
	Persistent bool      `yaml:"persistent"`
	AddedAt    time.Time `yaml:"added_at"`
}

type fileFormat struct {
	Targets []Target `yaml:"targets"`
}

// Store reads and writes the target list.
type Store struct {
	path  string
	clock clock.Clock
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path, clock: &clock.RealClock{}}
}

// NewStoreWithClock creates a store with an injected clock for tests.
func NewStoreWithClock(path string, c clock.Clock) *Store {
	return &Store{path: path, clock: c}
}

// Load reads all targets. A missing file yields an empty list.
func (s *Store) Load() ([]Target, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	return f.Targets, nil
}

// Save writes the target list atomically with 0600 permissions.
func (s *Store) Save(targets []Target) error {
	sort.Slice(targets, func(i, j int) bool { return targets[i].IP < targets[j].IP })

	data, err := yaml.Marshal(&fileFormat{Targets: targets})
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Upsert adds a target, replacing any existing entry for the same IP.
// Re-running monitor or limit for an IP updates it in place.
func (s *Store) Upsert(t Target) ([]Target, error) {
	targets, err := s.Load()
	if err != nil {
		return nil, err
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.AddedAt.IsZero() {
		t.AddedAt = s.clock.Now().UTC()
	}

	replaced := false
	for i := range targets {
		if targets[i].IP == t.IP {
			t.ID = targets[i].ID
			targets[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		targets = append(targets, t)
	}

	if err := s.Save(targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// Remove drops the target for ip and returns the remaining list.
func (s *Store) Remove(ip string) ([]Target, error) {
	targets, err := s.Load()
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range targets {
		if targets[i].IP == ip {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%s is not tracked", ip)
	}

	targets = append(targets[:idx], targets[idx+1:]...)
	if err := s.Save(targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// Get returns the target for ip, or nil when untracked.
func (s *Store) Get(ip string) (*Target, error) {
	targets, err := s.Load()
	if err != nil {
		return nil, err
	}
	for i := range targets {
		if targets[i].IP == ip {
			return &targets[i], nil
		}
	}
	return nil, nil
}

// HasPersistent reports whether any tracked target is persistent.
func HasPersistent(targets []Target) bool {
	for _, t := range targets {
		if t.Persistent {
			return true
		}
	}
	return false
}
