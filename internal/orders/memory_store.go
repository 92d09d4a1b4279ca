package orders

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	mu    sync.Mutex
	order *Order
}

// MemoryStore keeps orders in process memory. Each code has its own lock so
// transitions on different orders never wait on each other.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, order *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[order.Code]; exists {
		return ErrDuplicateCode
	}
	now := s.now().UTC()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	if order.Version == 0 {
		order.Version = 1
	}
	s.entries[order.Code] = &memoryEntry{order: order.clone()}
	return nil
}

func (s *MemoryStore) entry(code string) (*memoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[code]
	return e, ok
}

func (s *MemoryStore) Get(_ context.Context, code string) (*Order, error) {
	e, ok := s.entry(code)
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.order.clone(), nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Order, error) {
	s.mu.RLock()
	entries := make([]*memoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]Order, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if filter.matches(e.order) {
			out = append(out, *e.order.clone())
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Transition(_ context.Context, code string, mutate Mutation) (*Order, error) {
	e, ok := s.entry(code)
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := applyMutation(e.order, mutate)
	if errors.Is(err, errUnchanged) {
		return e.order.clone(), nil
	}
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now().UTC()
	e.order = next
	return next.clone(), nil
}
