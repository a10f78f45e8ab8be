package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// MemoryStore is a thread-safe, bounded in-memory implementation of Store.
//
// Entries live in an LRU list capped at MaxEntries. A successful check
// touches the entry's recency; Peek does not. When a new identifier is
// inserted at capacity, the least recently used entry is evicted even if its
// window is still live.
//
// A single mutex guards the whole list, so every operation is linearizable.
type MemoryStore struct {
	mu      sync.Mutex
	entries  *simplelru.LRU[string, *Entry]
	capacity int
	onEvict  func(count int)
}

// MemoryStoreConfig holds configuration for MemoryStore.
type MemoryStoreConfig struct {
	// MaxEntries is the maximum number of identifiers kept in memory.
	// Default: DefaultMaxEntries
	MaxEntries int

	// OnEvict is called (with the lock held) whenever inserting a new
	// identifier pushed the least recently used entry out. Optional.
	OnEvict func(count int)
}

// NewMemoryStore creates a new in-memory store with the given configuration.
func NewMemoryStore(config MemoryStoreConfig) *MemoryStore {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultMaxEntries
	}

	// simplelru only fails for a non-positive size, which is handled above.
	entries, err := simplelru.NewLRU[string, *Entry](config.MaxEntries, nil)
	if err != nil {
		panic(err)
	}

	return &MemoryStore{
		entries:  entries,
		capacity: config.MaxEntries,
		onEvict:  config.OnEvict,
	}
}

// Capacity returns the maximum number of entries held before eviction.
func (s *MemoryStore) Capacity() int {
	return s.capacity
}

// CheckAndIncrement implements Store.
func (s *MemoryStore) CheckAndIncrement(ctx context.Context, identifier string, now time.Time, window time.Duration, limit int) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries.Get(identifier)
	if !ok || entry.Expired(now) {
		fresh := &Entry{
			Identifier: identifier,
			Count:      1,
			ResetAt:    now.Add(window),
		}
		// Add replaces an expired entry in place and moves it to the front.
		// For a new key at capacity it evicts the oldest entry first.
		if evicted := s.entries.Add(identifier, fresh); evicted && s.onEvict != nil {
			s.onEvict(1)
		}
		return *fresh, true, nil
	}

	if entry.Count >= limit {
		return *entry, false, nil
	}

	entry.Count++
	return *entry, true, nil
}

// Peek implements Store. It does not refresh the entry's recency.
func (s *MemoryStore) Peek(ctx context.Context, identifier string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries.Peek(identifier)
	if !ok {
		return Entry{}, false, nil
	}
	return *entry, true, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries.Remove(identifier)
	return nil
}

// Len implements Store.
func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.entries.Len(), nil
}

// Sweep implements Store.
//
// Sweeping only reclaims memory early; expired entries are already treated
// as absent by CheckAndIncrement.
func (s *MemoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, key := range s.entries.Keys() {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		entry, ok := s.entries.Peek(key)
		if ok && entry.Expired(now) {
			s.entries.Remove(key)
			removed++
		}
	}
	return removed, nil
}

// Compile-time interface check
var _ BoundedStore = (*MemoryStore)(nil)
