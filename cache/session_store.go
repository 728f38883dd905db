package cache

import (
	"context"
	"fmt"
	"time"

	"go.pilab.hu/sessiongate/domain"
)

// SessionStore is the single revocation point for issued tokens. One record
// is kept per (user, platform); Put always fully overwrites, so concurrent
// logins resolve last-write-wins with no merge semantics.
//
// Get returns sessiongate.ErrSessionNotFound when no record exists. Every
// call honors its context; callers on the request path are expected to pass
// a deadline-bound context and treat expiry as a failure, not as absence.
type SessionStore interface {
	Put(ctx context.Context, userID int64, platform domain.Platform, record *domain.SessionRecord, ttl time.Duration) error
	Get(ctx context.Context, userID int64, platform domain.Platform) (*domain.SessionRecord, error)
	Delete(ctx context.Context, userID int64, platform domain.Platform) error
}

// SessionKey builds the store key for a (user, platform) pair.
func SessionKey(userID int64, platform domain.Platform) string {
	return fmt.Sprintf("login_user:%d:%s", userID, platform)
}
