package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps views in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	views map[string]View
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{views: make(map[string]View)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*View, error) {
	s.mu.RLock()
	v, ok := s.views[id]
	s.mu.RUnlock()
	if !ok || v.IsExpired() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &v, nil
}

func (s *MemoryStore) Set(ctx context.Context, view *View) error {
	if err := ValidateID(view.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v := *view
	v.Conditions = append([]string(nil), view.Conditions...)
	s.views[view.ID] = v
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, id)
	return nil
}

func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, v := range s.views {
		if now.After(v.ExpiresAt) {
			delete(s.views, id)
		}
	}
	return nil
}

// Len returns the number of stored views, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
