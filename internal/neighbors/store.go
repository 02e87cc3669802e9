// Package neighbors persists the neighbor map consumed by the proof generator.
package neighbors

import (
	"context"
	"errors"
	"sync"

	"github.com/zkplatoon/platoon/pkg/core"
)

// DefaultKey is the well-known name the neighbor map is stored under.
const DefaultKey = "neighbours"

var (
	// ErrNotFound is returned when nothing is stored under the key.
	ErrNotFound = errors.New("neighbor snapshot not found")
	// ErrMalformed is returned when a stored snapshot cannot be decoded.
	ErrMalformed = errors.New("malformed neighbor snapshot")
)

// Store is a key-value store for neighbor maps.
type Store interface {
	Load(ctx context.Context, key string) (core.NeighborMap, error)
	Save(ctx context.Context, key string, m core.NeighborMap) error
}

// MemoryStore keeps neighbor maps for the lifetime of the process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Load decodes the map stored under key.
func (s *MemoryStore) Load(_ context.Context, key string) (core.NeighborMap, error) {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return Decode(raw)
}

// Save encodes m under key, replacing what was there.
func (s *MemoryStore) Save(_ context.Context, key string, m core.NeighborMap) error {
	raw, err := Encode(m)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return nil
}

// SetRaw stores undecoded bytes, the way an external writer would.
func (s *MemoryStore) SetRaw(key string, raw []byte) {
	s.mu.Lock()
	s.data[key] = append([]byte(nil), raw...)
	s.mu.Unlock()
}
