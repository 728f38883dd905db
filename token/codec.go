package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	sessiongate "go.pilab.hu/sessiongate"
)

// registeredClaimKeys are the claim names owned by the codec itself. Custom
// claims never overwrite them and are never reported as custom on decode.
var registeredClaimKeys = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "iat": {}, "nbf": {}, "jti": {},
}

// ClaimSet is the decoded, verified payload of a token.
type ClaimSet struct {
	Issuer    string
	Subject   string
	Audience  []string
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
	ID        string
	Custom    map[string]string
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the codec clock. Tests use this to pin verification
// time on both sides of the expiry boundary.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// Codec mints and verifies HMAC-SHA256 signed tokens. Minting and decoding
// share the same symmetric secret and the same configured issuer; the issuer
// is always set on mint and always enforced on decode.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewCodec creates a Codec for the given signing secret and issuer.
func NewCodec(secret, issuer string, opts ...Option) *Codec {
	c := &Codec{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mint builds and signs a token. The issuer comes from configuration and a
// fresh jti is generated on every call; tokens are immutable once minted.
// Requires notBefore <= issuedAt < expiresAt.
func (c *Codec) Mint(
	subject string,
	audience []string,
	custom map[string]string,
	notBefore, issuedAt, expiresAt time.Time,
) (string, error) {
	if notBefore.After(issuedAt) || !issuedAt.Before(expiresAt) {
		return "", fmt.Errorf("%w: temporal bounds violated (nbf=%s iat=%s exp=%s)",
			sessiongate.ErrTokenEncoding, notBefore, issuedAt, expiresAt)
	}

	claims := jwt.MapClaims{
		"iss": c.issuer,
		"sub": subject,
		"aud": jwt.ClaimStrings(audience),
		"exp": jwt.NewNumericDate(expiresAt).Unix(),
		"iat": jwt.NewNumericDate(issuedAt).Unix(),
		"nbf": jwt.NewNumericDate(notBefore).Unix(),
		"jti": uuid.NewString(),
	}
	for k, v := range custom {
		if _, reserved := registeredClaimKeys[k]; reserved {
			continue
		}
		claims[k] = v
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", sessiongate.ErrTokenEncoding, err)
	}
	return signed, nil
}

// Decode verifies the signature, issuer and temporal bounds of a token and
// returns its claim set. A token whose expiry equals the current instant is
// already expired. Audience and custom claims are returned unchecked; those
// checks belong to the gate.
func (c *Codec) Decode(tokenString string) (*ClaimSet, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	parsed, err := parser.ParseWithClaims(tokenString, jwt.MapClaims{}, func(_ *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sessiongate.ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: unexpected claims type", sessiongate.ErrTokenInvalid)
	}
	return claimSetFrom(claims)
}

func claimSetFrom(claims jwt.MapClaims) (*ClaimSet, error) {
	cs := &ClaimSet{Custom: map[string]string{}}

	var err error
	if cs.Issuer, err = claims.GetIssuer(); err != nil {
		return nil, fmt.Errorf("%w: %w", sessiongate.ErrTokenInvalid, err)
	}
	if cs.Subject, err = claims.GetSubject(); err != nil {
		return nil, fmt.Errorf("%w: %w", sessiongate.ErrTokenInvalid, err)
	}
	aud, err := claims.GetAudience()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sessiongate.ErrTokenInvalid, err)
	}
	cs.Audience = aud

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing exp claim", sessiongate.ErrTokenInvalid)
	}
	cs.ExpiresAt = exp.Time
	if iat, _ := claims.GetIssuedAt(); iat != nil {
		cs.IssuedAt = iat.Time
	}
	if nbf, _ := claims.GetNotBefore(); nbf != nil {
		cs.NotBefore = nbf.Time
	}
	if jti, ok := claims["jti"].(string); ok {
		cs.ID = jti
	}

	for k, v := range claims {
		if _, reserved := registeredClaimKeys[k]; reserved {
			continue
		}
		if s, ok := v.(string); ok {
			cs.Custom[k] = s
		}
	}
	return cs, nil
}
