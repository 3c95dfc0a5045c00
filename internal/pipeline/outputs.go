package pipeline

import "sync"

// OutputSet records every destination path this process has written. It
// is append-only for the life of the process: entries are never removed,
// not even by Clean. The watch callback consults it to classify a change
// notification as self-inflicted (member, ignore) versus external
// (non-member, rebuild).
//
// Writes happen on whichever goroutine is executing a pipeline run and
// membership checks on the notification goroutine, so access is guarded.
type OutputSet struct {
	mu    sync.RWMutex
	paths map[string]struct{}
}

// NewOutputSet returns an empty OutputSet.
func NewOutputSet() *OutputSet {
	return &OutputSet{paths: make(map[string]struct{})}
}

// Add records an absolute destination path.
func (s *OutputSet) Add(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[path] = struct{}{}
}

// Contains reports whether path was written by this process.
func (s *OutputSet) Contains(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.paths[path]
	return ok
}

// Len returns the number of recorded destinations.
func (s *OutputSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.paths)
}
