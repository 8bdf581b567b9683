package report

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// LRUStore is an in-memory LRU cache that delegates to a backing Store on
// miss. The backing store is optional.
type LRUStore struct {
	cache *lru.Cache
	back  Store
}

// NewLRUStore creates an LRU cache with the given capacity. Capacity below 1
// is raised to 1. back may be nil.
func NewLRUStore(capacity int, back Store) *LRUStore {
	if capacity < 1 {
		capacity = 1
	}
	cache, err := lru.New(capacity)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(fmt.Sprintf("report: %v", err))
	}
	return &LRUStore{cache: cache, back: back}
}

// Save adds result to the cache and to the backing store, if any.
func (s *LRUStore) Save(result *RunResult) error {
	s.cache.Add(result.ID, result)
	if s.back == nil {
		return nil
	}
	return s.back.Save(result)
}

// Load checks the cache first. On miss it loads from the backing store and
// promotes the result into the cache.
func (s *LRUStore) Load(runID string) (*RunResult, error) {
	if v, ok := s.cache.Get(runID); ok {
		return v.(*RunResult), nil
	}
	if s.back == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	result, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}
	s.cache.Add(runID, result)
	return result, nil
}

// Recent returns the cached runs, most recent first.
func (s *LRUStore) Recent() []*RunResult {
	keys := s.cache.Keys()
	out := make([]*RunResult, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if v, ok := s.cache.Peek(keys[i]); ok {
			out = append(out, v.(*RunResult))
		}
	}
	return out
}
