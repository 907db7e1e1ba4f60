// ABOUTME: Process-local app state shared between write paths and the feed
// ABOUTME: Carries the refresh counter bumped after writes and a one-shot highlight id

package appstate

import "sync"

// State is safe for concurrent use.
type State struct {
	mu        sync.Mutex
	counter   uint64
	highlight string
	changes   chan uint64
}

// New returns an empty State.
func New() *State {
	return &State{changes: make(chan uint64, 1)}
}

// Bump increments the refresh counter and returns the new value.
func (s *State) Bump() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	// Keep only the latest value in the channel.
	select {
	case <-s.changes:
	default:
	}
	s.changes <- s.counter
	return s.counter
}

// Counter returns the current refresh counter.
func (s *State) Counter() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// Changes delivers the latest counter after each Bump. Values coalesce when
// the reader falls behind.
func (s *State) Changes() <-chan uint64 {
	return s.changes
}

// SetHighlight records the id of a request that was just created.
func (s *State) SetHighlight(id string) {
	s.mu.Lock()
	s.highlight = id
	s.mu.Unlock()
}

// TakeHighlight returns the pending highlight id and clears it.
func (s *State) TakeHighlight() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.highlight
	s.highlight = ""
	return id
}
