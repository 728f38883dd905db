package echo

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// CookieStore transports credentials as cookies. Tokens always travel
// httpOnly; Secure is configurable so local development over plain HTTP
// stays possible.
type CookieStore struct {
	Secure bool
}

// NewCookieStore creates a CookieStore.
func NewCookieStore(secure bool) *CookieStore {
	return &CookieStore{Secure: secure}
}

// Credential reads a named credential from the request cookies.
func (s *CookieStore) Credential(c echo.Context, name string) (string, bool) {
	cookie, err := c.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// SetCredential writes a credential cookie with the given lifetime.
func (s *CookieStore) SetCredential(c echo.Context, name, value string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCredential expires a credential cookie.
func (s *CookieStore) ClearCredential(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
