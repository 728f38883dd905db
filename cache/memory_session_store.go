package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	sessiongate "go.pilab.hu/sessiongate"
	"go.pilab.hu/sessiongate/domain"
)

// MemorySessionStore implements SessionStore using ttlcache. Suitable for a
// single-process deployment and for tests; multi-instance deployments use
// the Redis store.
type MemorySessionStore struct {
	cache *ttlcache.Cache[string, *domain.SessionRecord]
}

// NewMemorySessionStore creates an in-memory session store with automatic
// expiry. defaultTTL bounds entries written without an explicit TTL.
func NewMemorySessionStore(defaultTTL time.Duration) *MemorySessionStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.SessionRecord](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, *domain.SessionRecord](),
	)

	// Start the expiry process
	go cache.Start()

	return &MemorySessionStore{cache: cache}
}

// Put implements SessionStore.Put. An existing record for the same key is
// fully overwritten.
func (s *MemorySessionStore) Put(ctx context.Context, userID int64, platform domain.Platform, record *domain.SessionRecord, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", sessiongate.ErrStoreUnavailable, err)
	}
	s.cache.Set(SessionKey(userID, platform), record, ttl)
	return nil
}

// Get implements SessionStore.Get.
func (s *MemorySessionStore) Get(ctx context.Context, userID int64, platform domain.Platform) (*domain.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", sessiongate.ErrStoreUnavailable, err)
	}
	item := s.cache.Get(SessionKey(userID, platform))
	if item == nil || item.IsExpired() {
		return nil, sessiongate.ErrSessionNotFound
	}
	return item.Value(), nil
}

// Delete implements SessionStore.Delete. Deleting an absent key is a no-op.
func (s *MemorySessionStore) Delete(ctx context.Context, userID int64, platform domain.Platform) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", sessiongate.ErrStoreUnavailable, err)
	}
	s.cache.Delete(SessionKey(userID, platform))
	return nil
}

// Close stops the expiry goroutine.
func (s *MemorySessionStore) Close() error {
	s.cache.Stop()
	return nil
}
