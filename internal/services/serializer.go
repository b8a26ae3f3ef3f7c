package services

import "sync"

// Serializer keeps at most one in-flight command per user. The marker set
// is process-local and cleared by a restart, which is enough: it only has
// to stop same-instant races inside one running process.
type Serializer struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func NewSerializer() *Serializer {
	return &Serializer{
		pending: make(map[string]struct{}),
	}
}

// Acquire marks the user as having a command in flight. It returns false
// when a marker already exists; the caller must then answer "busy" without
// touching storage.
func (s *Serializer) Acquire(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pending[userID]; exists {
		return false
	}
	s.pending[userID] = struct{}{}
	return true
}

// Release drops the marker. Releasing a user with no marker is a no-op.
func (s *Serializer) Release(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, userID)
}

// PendingCount returns the number of users with a command in flight.
func (s *Serializer) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
