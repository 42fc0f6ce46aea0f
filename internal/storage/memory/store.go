// Package memory provides an in-process storage.Store for tests and
// single-instance development runs.
package memory

import (
	"context"
	"sync"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Store keeps blobs in a map.
type Store struct {
	mu    sync.RWMutex
	blobs map[string]map[string][]byte
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{blobs: make(map[string]map[string][]byte)}
}

func (s *Store) Get(_ context.Context, visitorID, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[visitorID][key]
	if !ok {
		return nil, apperrors.NotFound("blob", key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *Store) Set(_ context.Context, visitorID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.blobs[visitorID]
	if !ok {
		ns = make(map[string][]byte)
		s.blobs[visitorID] = ns
	}
	data := make([]byte, len(value))
	copy(data, value)
	ns[key] = data
	return nil
}

func (s *Store) Delete(_ context.Context, visitorID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ns, ok := s.blobs[visitorID]; ok {
		delete(ns, key)
		if len(ns) == 0 {
			delete(s.blobs, visitorID)
		}
	}
	return nil
}

// Has reports whether a blob exists.
func (s *Store) Has(visitorID, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[visitorID][key]
	return ok
}
