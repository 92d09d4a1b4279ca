package groups

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryEntry struct {
	mu   sync.Mutex
	room *Room
}

// MemoryStore keeps rooms in process memory with one lock per room.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

func (s *MemoryStore) Create(_ context.Context, room *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[room.Code]; ok {
		return ErrCodeTaken
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	if room.Version == 0 {
		room.Version = 1
	}
	s.entries[room.Code] = &memoryEntry{room: room.clone()}
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, code string) (bool, error) {
	_, ok := s.entry(code)
	return ok, nil
}

func (s *MemoryStore) entry(code string) (*memoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[code]
	return e, ok
}

func (s *MemoryStore) Get(_ context.Context, code string) (*Room, error) {
	e, ok := s.entry(code)
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.room.clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, code string, mutate Mutation) (*Room, error) {
	e, ok := s.entry(code)
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := applyMutation(e.room, mutate)
	if errors.Is(err, errUnchanged) {
		return e.room.clone(), nil
	}
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()
	e.room = next
	return next.clone(), nil
}
