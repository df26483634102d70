// Package memory stores snapshots in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jobharvest/jobharvester/internal/scrape"
	"github.com/jobharvest/jobharvester/internal/snapshot"
)

// Store keeps encoded snapshots in a map and returns pseudo URIs.
type Store struct {
	mu    sync.RWMutex
	clock scrape.Clock
	data  map[string][]byte
}

// New creates an in-memory snapshot store.
func New(clock scrape.Clock) *Store {
	return &Store{
		clock: clock,
		data:  make(map[string][]byte),
	}
}

// Save encodes the result and retains it under a date-scoped key.
func (s *Store) Save(_ context.Context, result scrape.QueryResult) (string, error) {
	data, err := snapshot.Encode(result)
	if err != nil {
		return "", err
	}
	name := snapshot.ObjectName(result, s.now())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = data
	return fmt.Sprintf("memory://%s", name), nil
}

// Load decodes a previously saved snapshot by key.
func (s *Store) Load(name string) (scrape.QueryResult, error) {
	s.mu.RLock()
	data, ok := s.data[name]
	s.mu.RUnlock()
	if !ok {
		return scrape.QueryResult{}, fmt.Errorf("no snapshot %q", name)
	}
	return snapshot.Decode(data)
}

func (s *Store) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now().UTC()
}
