package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	sessiongate "go.pilab.hu/sessiongate"
	"go.pilab.hu/sessiongate/cache"
	"go.pilab.hu/sessiongate/domain"
)

// SessionStore implements cache.SessionStore backed by Redis. Records are
// stored as a single JSON value per key with the key's own expiry carrying
// the TTL, so revocation and natural expiry share one mechanism.
type SessionStore struct {
	client *redis.Client
	prefix string // optional key namespace
}

// NewSessionStore creates a new [SessionStore] instance.
func NewSessionStore(client *redis.Client, prefix string) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: prefix,
	}
}

func (r *SessionStore) redisKey(userID int64, platform domain.Platform) string {
	key := cache.SessionKey(userID, platform)
	if r.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

// Put stores a session record, overwriting any previous record for the key.
func (r *SessionStore) Put(ctx context.Context, userID int64, platform domain.Platform, record *domain.SessionRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	if err := r.client.Set(ctx, r.redisKey(userID, platform), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", sessiongate.ErrStoreUnavailable, err)
	}
	return nil
}

// Get retrieves a session record. Absence and transport failure are kept
// distinct so the gate can fail closed on the latter.
func (r *SessionStore) Get(ctx context.Context, userID int64, platform domain.Platform) (*domain.SessionRecord, error) {
	payload, err := r.client.Get(ctx, r.redisKey(userID, platform)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sessiongate.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sessiongate.ErrStoreUnavailable, err)
	}

	var record domain.SessionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).
			Str("platform", platform.String()).Msg("corrupt session record, treating as absent")
		return nil, sessiongate.ErrSessionNotFound
	}
	return &record, nil
}

// Delete removes a session record. Deleting an absent key is a no-op.
func (r *SessionStore) Delete(ctx context.Context, userID int64, platform domain.Platform) error {
	if err := r.client.Del(ctx, r.redisKey(userID, platform)).Err(); err != nil {
		return fmt.Errorf("%w: %w", sessiongate.ErrStoreUnavailable, err)
	}
	return nil
}

var _ cache.SessionStore = (*SessionStore)(nil)
