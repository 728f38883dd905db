package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	sessiongate "go.pilab.hu/sessiongate"
	"go.pilab.hu/sessiongate/cache"
	"go.pilab.hu/sessiongate/domain"
	"go.pilab.hu/sessiongate/internal/metrics"
	"go.pilab.hu/sessiongate/services"
	"go.pilab.hu/sessiongate/token"
)

// DenyReason labels why the gate rejected a request. Reasons are logged and
// counted but never leaked to the client: every denial maps to the same
// re-authenticate response so callers cannot probe which check failed.
type DenyReason string

const (
	DenyNoToken          DenyReason = "no_token"
	DenyInvalidToken     DenyReason = "invalid_token"
	DenySessionExpired   DenyReason = "session_expired"
	DenySuperseded       DenyReason = "superseded"
	DenyIPMismatch       DenyReason = "ip_mismatch"
	DenyStoreUnavailable DenyReason = "store_unavailable"
)

// Echo context keys populated by the gate on ALLOW.
const (
	ContextKeyUserID  = "auth_user_id"
	ContextKeySession = "auth_session"
)

// IdentityResolver supplies the per-request client identity.
type IdentityResolver interface {
	ClientIP(req *http.Request) string
	Platform(req *http.Request) domain.Platform
}

// CredentialReader extracts a named credential from the request transport.
type CredentialReader interface {
	Credential(c echo.Context, name string) (string, bool)
}

// Gate is the per-request authentication decision procedure. For every
// request it extracts the access token, decodes it, cross-checks it against
// the session store, verifies the IP binding, and admits or rejects.
type Gate struct {
	codec        *token.Codec
	store        cache.SessionStore
	ids          IdentityResolver
	creds        CredentialReader
	tokenName    string
	storeTimeout time.Duration
	skip         SkipTable
}

// NewGate creates a Gate. tokenName is the transport slot holding the
// access token; storeTimeout bounds every session store call on the request
// path.
func NewGate(
	codec *token.Codec,
	store cache.SessionStore,
	ids IdentityResolver,
	creds CredentialReader,
	tokenName string,
	storeTimeout time.Duration,
	skip SkipTable,
) *Gate {
	return &Gate{
		codec:        codec,
		store:        store,
		ids:          ids,
		creds:        creds,
		tokenName:    tokenName,
		storeTimeout: storeTimeout,
		skip:         skip,
	}
}

// Middleware returns the echo middleware implementing the gate.
func (g *Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if g.skip.Skip(c.Request().Method, c.Path()) {
				return next(c)
			}

			tokenValue, ok := g.creds.Credential(c, g.tokenName)
			if !ok || tokenValue == "" {
				return g.deny(c, DenyNoToken, nil)
			}

			claims, err := g.codec.Decode(tokenValue)
			if err != nil {
				return g.deny(c, DenyInvalidToken, err)
			}
			userID, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				return g.deny(c, DenyInvalidToken, err)
			}

			req := c.Request()
			clientIP := g.ids.ClientIP(req)
			platform := g.ids.Platform(req)

			storeCtx, cancel := context.WithTimeout(req.Context(), g.storeTimeout)
			defer cancel()

			record, err := g.store.Get(storeCtx, userID, platform)
			switch {
			case errors.Is(err, sessiongate.ErrSessionNotFound):
				return g.deny(c, DenySessionExpired, err)
			case err != nil:
				// Fail closed: an unreachable store is never "no prior
				// session, therefore allow".
				return g.deny(c, DenyStoreUnavailable, err)
			}

			if record.CurrentAccessToken != tokenValue {
				return g.deny(c, DenySuperseded, nil)
			}
			if claims.Custom[services.IPClaim] != clientIP {
				return g.deny(c, DenyIPMismatch, nil)
			}

			c.Set(ContextKeyUserID, userID)
			c.Set(ContextKeySession, record)
			ctx := domain.WithIdentity(req.Context(), domain.Identity{IP: clientIP, Platform: platform})
			ctx = domain.WithAuthInfo(ctx, &domain.AuthInfo{UserID: userID, Session: record})
			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}

func (g *Gate) deny(c echo.Context, reason DenyReason, err error) error {
	log.Ctx(c.Request().Context()).Warn().
		Str("reason", string(reason)).
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("request denied by authentication gate")
	metrics.GateDenialsTotal.WithLabelValues(string(reason)).Inc()

	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "re-authentication required"})
}

// UserIDFrom retrieves the authenticated user id stashed by the gate.
func UserIDFrom(c echo.Context) (int64, bool) {
	userID, ok := c.Get(ContextKeyUserID).(int64)
	return userID, ok
}

// SessionFrom retrieves the session record stashed by the gate.
func SessionFrom(c echo.Context) (*domain.SessionRecord, bool) {
	record, ok := c.Get(ContextKeySession).(*domain.SessionRecord)
	return record, ok
}
