// internal/room/registry.go
package room

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps room identifiers to their coordination records. Rooms are
// created lazily on first reference and live for the process lifetime;
// nothing evicts them.
type Registry struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*Room
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[uuid.UUID]*Room),
	}
}

// GetOrCreate returns the room for the given identifier, allocating a fresh
// record on first reference. Idempotent: the same identifier always yields
// the same instance.
func (s *Registry) GetOrCreate(id uuid.UUID) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.rooms[id]
	if !exists {
		r = newRoom(id)
		s.rooms[id] = r
	}
	return r
}

// Get returns the room for the identifier without creating one.
func (s *Registry) Get(id uuid.UUID) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.rooms[id]
	return r, exists
}

// Len returns the number of rooms ever referenced.
func (s *Registry) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
