package domain

import "context"

type contextKey int

const (
	identityContextKey contextKey = iota
	authInfoContextKey
)

// Identity is the per-request client identity resolved from transport
// metadata. It is passed explicitly through the request context, never read
// from ambient state.
type Identity struct {
	IP       string
	Platform Platform
}

// AuthInfo is the result of a successful gate evaluation, made available to
// downstream request handling.
type AuthInfo struct {
	UserID  int64
	Session *SessionRecord
}

// WithIdentity returns a context carrying the resolved client identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext retrieves the client identity, if present.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// WithAuthInfo returns a context carrying the authenticated session.
func WithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authInfoContextKey, info)
}

// AuthInfoFromContext retrieves the authenticated session, if present.
func AuthInfoFromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authInfoContextKey).(*AuthInfo)
	return info, ok
}
