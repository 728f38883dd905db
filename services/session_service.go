package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	sessiongate "go.pilab.hu/sessiongate"
	"go.pilab.hu/sessiongate/cache"
	"go.pilab.hu/sessiongate/domain"
	"go.pilab.hu/sessiongate/internal/metrics"
	"go.pilab.hu/sessiongate/token"
)

// IPClaim is the custom claim carrying the address a session was created
// from. The gate rejects requests whose resolved client IP differs from it.
const IPClaim = "ip"

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithSessionClock overrides the service clock for tests.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// SessionService orchestrates the token codec and the session store: it
// mints the access/refresh pair for a login, persists the session record
// that makes the pair revocable, and re-issues pairs on refresh.
type SessionService struct {
	codec     *token.Codec
	store     cache.SessionStore
	users     domain.UserRepository
	accessTTL time.Duration
	now       func() time.Time
}

// NewSessionService creates a new SessionService. accessTTL is the access
// token lifetime; refresh tokens live twice as long and the stored session
// expires together with the access token.
func NewSessionService(
	codec *token.Codec,
	store cache.SessionStore,
	users domain.UserRepository,
	accessTTL time.Duration,
	opts ...SessionOption,
) *SessionService {
	s := &SessionService{
		codec:     codec,
		store:     store,
		users:     users,
		accessTTL: accessTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AccessTTL returns the configured access token lifetime.
func (s *SessionService) AccessTTL() time.Duration {
	return s.accessTTL
}

// IssueSession mints an access/refresh token pair for a verified user and
// persists the session record under (user, platform). A previous session on
// the same platform is silently superseded.
func (s *SessionService) IssueSession(ctx context.Context, user *domain.User, platform domain.Platform, clientIP string) (*domain.LoginUser, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	refreshExpiresAt := now.Add(2 * s.accessTTL)

	subject := strconv.FormatInt(user.ID, 10)
	audience := []string{user.UserName}
	custom := map[string]string{IPClaim: clientIP}

	accessToken, err := s.codec.Mint(subject, audience, custom, now, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	refreshToken, err := s.codec.Mint(subject, audience, custom, now, now, refreshExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("mint refresh token: %w", err)
	}

	record := &domain.SessionRecord{
		UserID:             user.ID,
		UserName:           user.UserName,
		Mobile:             user.Mobile,
		CurrentAccessToken: accessToken,
	}
	if err := s.store.Put(ctx, user.ID, platform, record, s.accessTTL); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	metrics.TokensIssuedTotal.Inc()
	metrics.ActiveSessionsGauge.Inc()
	log.Ctx(ctx).Info().
		Int64("user_id", user.ID).
		Str("platform", platform.String()).
		Time("expires_at", expiresAt).
		Msg("session issued")

	return &domain.LoginUser{
		UserID:               user.ID,
		Mobile:               user.Mobile,
		AccessToken:          accessToken,
		RefreshToken:         refreshToken,
		AccessTokenExpiresAt: expiresAt,
	}, nil
}

// RefreshSession re-issues a token pair from a refresh token. Refreshing is
// permitted only while the presented access token is absent or no longer
// valid; an active access token means no refresh is needed. The refresh
// token must carry the current client IP in its ip claim.
func (s *SessionService) RefreshSession(ctx context.Context, accessToken, refreshToken, clientIP string, platform domain.Platform) (*domain.LoginUser, error) {
	if accessToken != "" {
		if _, err := s.codec.Decode(accessToken); err == nil {
			return nil, sessiongate.ErrAccessTokenActive
		}
	}

	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sessiongate.ErrSessionInvalid, err)
	}

	if claims.Custom[IPClaim] != clientIP {
		log.Ctx(ctx).Warn().
			Str("token_ip", claims.Custom[IPClaim]).
			Str("client_ip", clientIP).
			Msg("refresh token presented from a different address")
		return nil, sessiongate.ErrSessionInvalid
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject %q", sessiongate.ErrSessionInvalid, claims.Subject)
	}
	if len(claims.Audience) == 0 {
		return nil, fmt.Errorf("%w: missing audience", sessiongate.ErrSessionInvalid)
	}

	user := &domain.User{ID: userID, UserName: claims.Audience[0]}
	// Display data is refetched rather than trusted from the old token; a
	// lookup failure downgrades to claim data only.
	if s.users != nil {
		if fresh, lookupErr := s.users.GetUserByID(ctx, userID); lookupErr == nil {
			user = fresh
		} else {
			log.Ctx(ctx).Warn().Err(lookupErr).Int64("user_id", userID).
				Msg("user refetch failed during refresh, reusing claim data")
		}
	}

	loginUser, err := s.IssueSession(ctx, user, platform, clientIP)
	if err != nil {
		return nil, err
	}
	metrics.SessionsRefreshedTotal.Inc()
	return loginUser, nil
}

// RevokeSession deletes the session record for (user, platform), which
// immediately invalidates its access token at the gate. Logging out on one
// platform leaves other platforms untouched.
func (s *SessionService) RevokeSession(ctx context.Context, userID int64, platform domain.Platform) error {
	if err := s.store.Delete(ctx, userID, platform); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	metrics.ActiveSessionsGauge.Dec()
	log.Ctx(ctx).Info().
		Int64("user_id", userID).
		Str("platform", platform.String()).
		Msg("session revoked")
	return nil
}
