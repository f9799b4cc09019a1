// Package store holds received reports in memory.
//
// Store is an insertion-ordered, duplicate-suppressing collection shared by
// the listener goroutines (writers) and the console (reader, clearer). Every
// operation takes the same mutex, so inserts are linearizable and snapshots
// never observe a partial insert.
package store

import (
	"sync"

	"brd/internal/report"
)

// Store is safe for concurrent use. The zero value is not usable; call New.
type Store struct {
	mu      sync.Mutex
	reports []report.Report
	keys    map[string]struct{}
}

// New returns an empty store.
func New() *Store {
	return &Store{keys: make(map[string]struct{})}
}

// Insert adds r unless an equal report is already held. It reports whether
// r was added.
func (s *Store) Insert(r report.Report) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[r.Key()]; ok {
		return false
	}
	s.keys[r.Key()] = struct{}{}
	s.reports = append(s.reports, r)
	return true
}

// Contains reports whether a report equal to r is held.
func (s *Store) Contains(r report.Report) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[r.Key()]
	return ok
}

// Len returns the number of reports held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

// Clear drops every report and returns how many were removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.reports)
	s.reports = nil
	s.keys = make(map[string]struct{})
	return n
}

// Snapshot returns the held reports in insertion order. The slice is a copy.
func (s *Store) Snapshot() []report.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]report.Report, len(s.reports))
	copy(out, s.reports)
	return out
}
