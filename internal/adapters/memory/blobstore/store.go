package blobstore

import (
	"context"
	"sync"

	"github.com/umbral-esperanza/choir-console-api/internal/ports/out/blobstore"
)

// Store is an in-memory implementation of blobstore.Store.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  map[string][]byte

	// CapacityBytes, when > 0, caps the total stored size so tests can drive
	// the quota-exceeded path.
	CapacityBytes int
}

func NewStore() *Store {
	return &Store{m: make(map[string][]byte)}
}

func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CapacityBytes > 0 {
		total := len(data)
		for k, v := range s.m {
			if k == key {
				continue
			}
			total += len(v)
		}
		if total > s.CapacityBytes {
			return blobstore.ErrCapacityExceeded
		}
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	s.m[key] = cp
	return nil
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
