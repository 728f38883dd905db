package sessiongate

import "errors"

var (
	// ErrTokenEncoding reports a mint-time serialization or signing failure.
	// It indicates a programming or configuration error and must surface as a
	// server error, never as an empty token.
	ErrTokenEncoding = errors.New("token encoding failed")

	// ErrTokenInvalid covers every decode-time failure: bad signature, wrong
	// issuer, malformed token, expired, or not yet valid.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionNotFound is returned by a session store when no record exists
	// for the requested (user, platform) key.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionInvalid is the gate-level rejection: the token may be well
	// signed but the server-side session no longer vouches for it.
	ErrSessionInvalid = errors.New("session invalid")

	// ErrAccessTokenActive rejects a refresh attempt while the presented
	// access token is still valid.
	ErrAccessTokenActive = errors.New("access token still active, refresh not needed")

	// ErrStoreUnavailable is the fail-closed escalation of a session store
	// timeout or transport failure.
	ErrStoreUnavailable = errors.New("session store unavailable")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)
