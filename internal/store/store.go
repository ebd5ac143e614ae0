// Package store holds the user-editable thresholds and journal, persisted
// as a single JSON document.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"IndexWatch/internal/model"
)

const (
	// DefaultSupport and DefaultCeiling seed every index until the user
	// edits it.
	DefaultSupport = 3000
	DefaultCeiling = 4000
)

// ErrPersist marks a failed durable write. The mutation itself took effect
// in memory and may be retried.
var ErrPersist = errors.New("persist state")

// state is the persisted document. Key names match the on-disk format the
// dashboard has always used.
type state struct {
	Supports    map[string]float64              `json:"supports"`
	Atmospheres map[string]float64              `json:"atmospheres"`
	Notes       map[string][]model.JournalEntry `json:"notes"`
}

// Store manages threshold and journal state with write-through persistence.
// Every mutation is saved immediately; a failed save keeps the in-memory
// state authoritative and reports the error to the caller.
type Store struct {
	mu       sync.Mutex
	filePath string
	data     state
}

// Load reads the state file, merging whatever it finds over defaults for the
// given index names. A missing file, or a partial/older document, is normal.
func Load(filePath string, names []string) (*Store, error) {
	s := &Store{
		filePath: filePath,
		data: state{
			Supports:    make(map[string]float64, len(names)),
			Atmospheres: make(map[string]float64, len(names)),
			Notes:       make(map[string][]model.JournalEntry, len(names)),
		},
	}
	for _, name := range names {
		s.data.Supports[name] = DefaultSupport
		s.data.Atmospheres[name] = DefaultCeiling
		s.data.Notes[name] = nil
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var saved state
	if err := json.Unmarshal(raw, &saved); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	for name, v := range saved.Supports {
		s.data.Supports[name] = v
	}
	for name, v := range saved.Atmospheres {
		s.data.Atmospheres[name] = v
	}
	for name, notes := range saved.Notes {
		s.data.Notes[name] = notes
	}
	return s, nil
}

// Threshold returns the support/ceiling pair for an index, defaults if the
// index has never been edited.
func (s *Store) Threshold(name string) model.Threshold {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := model.Threshold{Support: DefaultSupport, Ceiling: DefaultCeiling}
	if v, ok := s.data.Supports[name]; ok {
		t.Support = v
	}
	if v, ok := s.data.Atmospheres[name]; ok {
		t.Ceiling = v
	}
	return t
}

// SetThreshold overwrites both levels and persists.
func (s *Store) SetThreshold(name string, support, ceiling float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Supports[name] = support
	s.data.Atmospheres[name] = ceiling
	return s.save()
}

// Notes returns a copy of the journal for an index, newest first.
func (s *Store) Notes(name string) []model.JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := s.data.Notes[name]
	out := make([]model.JournalEntry, len(notes))
	copy(out, notes)
	return out
}

// AddNote appends an entry and re-sorts the journal newest-first. Entries
// sharing a date keep their insertion order.
func (s *Store) AddNote(name string, entry model.JournalEntry) error {
	entry.Content = strings.TrimSpace(entry.Content)
	if entry.Content == "" {
		return fmt.Errorf("note content must not be empty")
	}
	if _, err := time.Parse("2006-01-02", entry.Date); err != nil {
		return fmt.Errorf("note date %q: %w", entry.Date, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	notes := append(s.data.Notes[name], entry)
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Date > notes[j].Date })
	s.data.Notes[name] = notes
	return s.save()
}

// UpdateNote replaces the content of the idx-th entry in place.
func (s *Store) UpdateNote(name string, idx int, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("note content must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	notes := s.data.Notes[name]
	if idx < 0 || idx >= len(notes) {
		return fmt.Errorf("note index %d out of range", idx)
	}
	notes[idx].Content = content
	return s.save()
}

// DeleteNote removes the idx-th entry.
func (s *Store) DeleteNote(name string, idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := s.data.Notes[name]
	if idx < 0 || idx >= len(notes) {
		return fmt.Errorf("note index %d out of range", idx)
	}
	s.data.Notes[name] = append(notes[:idx], notes[idx+1:]...)
	return s.save()
}

// save writes the document to a temp file and atomically replaces the state
// file, so a failed write never corrupts the previous on-disk state.
func (s *Store) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}
