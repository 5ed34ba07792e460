// Package profile persists lightweight per-user state: the display name the
// user introduced themselves with and a usage count per executed action kind.
//
// The store is a single JSON file rewritten on every mutation. Profiles are
// tiny and mutations are human-paced, so durability wins over write
// batching.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// Profile is the persisted user state.
type Profile struct {
	// DisplayName is the name the user asked to be called. Empty until a
	// self-introduction is heard.
	DisplayName string `json:"display_name"`

	// ActionCounts maps action kind to the number of times it was executed.
	ActionCounts map[string]int `json:"action_counts"`
}

// Store owns the profile file. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	path    string
	current Profile
}

// Open loads the profile at path, creating an empty profile when the file
// does not exist yet. Parent directories are created as needed.
func Open(path string) (*Store, error) {
	s := &Store{path: path, current: Profile{ActionCounts: map[string]int{}}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile: read %q: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.current); err != nil {
		return nil, fmt.Errorf("profile: parse %q: %w", path, err)
	}
	if s.current.ActionCounts == nil {
		s.current.ActionCounts = map[string]int{}
	}
	return s, nil
}

// Current returns a copy of the profile.
func (s *Store) Current() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyProfile(s.current)
}

// DisplayName returns the stored display name, or "" when none is set.
func (s *Store) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.DisplayName
}

// SetDisplayName stores name and persists the profile.
func (s *Store) SetDisplayName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.DisplayName = name
	return s.save()
}

// RecordAction increments the counter for kind and persists the profile.
func (s *Store) RecordAction(kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.ActionCounts[kind]++
	return s.save()
}

// save writes the profile atomically: marshal to a sibling temp file, then
// rename over the target. Callers hold s.mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		return fmt.Errorf("profile: marshal: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("profile: create dir %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".profile-*.json")
	if err != nil {
		return fmt.Errorf("profile: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("profile: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("profile: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("profile: rename %q: %w", s.path, err)
	}
	return nil
}

func copyProfile(p Profile) Profile {
	out := Profile{DisplayName: p.DisplayName, ActionCounts: make(map[string]int, len(p.ActionCounts))}
	for k, v := range p.ActionCounts {
		out.ActionCounts[k] = v
	}
	return out
}

// nameRe matches a spoken self-introduction and captures the name. The
// capture insists on a leading capital so that mid-sentence phrases like
// "i am sure" do not rename the user.
var nameRe = regexp.MustCompile(`\b(?:my name is|i am|i'm|call me)\s+([A-Z][a-zA-Z'-]{1,30})\b`)

// ExtractName returns the display name found in a self-introduction, or
// ("", false) when text contains none.
func ExtractName(text string) (string, bool) {
	m := nameRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
