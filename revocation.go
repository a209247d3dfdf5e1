package auth

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryRevocationStore is a process local RevocationStore.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

var (
	_ RevocationStore  = (*MemoryRevocationStore)(nil)
	_ RevocationPurger = (*MemoryRevocationStore)(nil)
)

// NewMemoryRevocationStore returns an empty store
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time)}
}

// Revoke implements RevocationStore.
func (s *MemoryRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tokenID == "" {
		return errors.New("token id is required", errors.CategoryBadInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.revoked[tokenID]; ok {
		return nil
	}
	s.revoked[tokenID] = expiresAt.UTC()
	return nil
}

// IsRevoked implements RevocationStore.
func (s *MemoryRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.revoked[tokenID]
	return ok, nil
}

// PurgeExpired implements RevocationPurger.
func (s *MemoryRevocationStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of records
func (s *MemoryRevocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.revoked)
}

// DefaultRevocationCacheSize is the LRU size used when none is configured.
const DefaultRevocationCacheSize = 4096

// CachedRevocationStore remembers positive answers from the wrapped store
// in a bounded LRU. Revocation is permanent, so only "revoked" is cached;
// a negative answer always goes to the backing store.
type CachedRevocationStore struct {
	next  RevocationStore
	cache *lru.Cache[string, time.Time]
}

var (
	_ RevocationStore  = (*CachedRevocationStore)(nil)
	_ RevocationPurger = (*CachedRevocationStore)(nil)
)

// NewCachedRevocationStore wraps next with an LRU of size entries.
func NewCachedRevocationStore(next RevocationStore, size int) (*CachedRevocationStore, error) {
	if next == nil {
		return nil, errors.New("revocation store is required", errors.CategoryInternal)
	}
	if size <= 0 {
		size = DefaultRevocationCacheSize
	}

	cache, err := lru.New[string, time.Time](size)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create revocation cache")
	}

	return &CachedRevocationStore{next: next, cache: cache}, nil
}

// Revoke implements RevocationStore.
func (s *CachedRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if err := s.next.Revoke(ctx, tokenID, expiresAt); err != nil {
		return err
	}
	s.cache.Add(tokenID, expiresAt)
	return nil
}

// IsRevoked implements RevocationStore.
func (s *CachedRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if _, ok := s.cache.Get(tokenID); ok {
		return true, nil
	}

	revoked, err := s.next.IsRevoked(ctx, tokenID)
	if err != nil {
		return false, err
	}

	if revoked {
		s.cache.Add(tokenID, time.Time{})
	}
	return revoked, nil
}

// PurgeExpired delegates to the wrapped store when it supports purging.
func (s *CachedRevocationStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	purger, ok := s.next.(RevocationPurger)
	if !ok {
		return 0, nil
	}
	return purger.PurgeExpired(ctx, now)
}

// Cached returns the number of cached identifiers
func (s *CachedRevocationStore) Cached() int {
	return s.cache.Len()
}
