package echo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessiongate "go.pilab.hu/sessiongate"
	sessionapi "go.pilab.hu/sessiongate/api/echo"
	"go.pilab.hu/sessiongate/cache"
	"go.pilab.hu/sessiongate/domain"
	"go.pilab.hu/sessiongate/internal/auth"
	"go.pilab.hu/sessiongate/internal/request"
	"go.pilab.hu/sessiongate/middleware"
	"go.pilab.hu/sessiongate/services"
	"go.pilab.hu/sessiongate/token"
)

const (
	apiTokenName        = "token"
	apiRefreshTokenName = "refresh_token"
	apiAccessTTL        = 30 * time.Minute
)

type memoryUserRepo struct {
	users map[int64]*domain.User
}

func (r *memoryUserRepo) GetUserByName(_ context.Context, name string) (*domain.User, error) {
	for _, u := range r.users {
		if u.UserName == name {
			return u, nil
		}
	}
	return nil, sessiongate.ErrUserNotFound
}

func (r *memoryUserRepo) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, sessiongate.ErrUserNotFound
	}
	return u, nil
}

func (r *memoryUserRepo) CreateUser(_ context.Context, u *domain.User) error {
	r.users[u.ID] = u
	return nil
}

// apiFixture stands up the full request path: cookie transport, identity
// resolver, gate middleware and session API, over an in-memory store.
type apiFixture struct {
	e   *echo.Echo
	now time.Time
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	hasher := auth.NewBcryptPasswordHasher(4)
	passwordHash, err := hasher.Hash("123456")
	require.NoError(t, err)

	repo := &memoryUserRepo{users: map[int64]*domain.User{
		1: {ID: 1, UserName: "admin", Mobile: "13888888888", PasswordHash: passwordHash},
	}}

	f := &apiFixture{now: time.Now().Truncate(time.Second)}
	clock := func() time.Time { return f.now }

	codec := token.NewCodec("api-test-secret", "sessiongate-test", token.WithClock(clock))
	store := cache.NewMemorySessionStore(apiAccessTTL)
	t.Cleanup(func() { store.Close() })

	userService := services.NewUserService(repo, hasher)
	sessionService := services.NewSessionService(
		codec, store, repo, apiAccessTTL,
		services.WithSessionClock(clock),
	)

	resolver := request.NewResolver(nil)
	cookies := sessionapi.NewCookieStore(false)
	api := sessionapi.NewSessionAPI(userService, sessionService, cookies, resolver, apiTokenName, apiRefreshTokenName)

	gate := middleware.NewGate(
		codec, store, resolver, cookies,
		apiTokenName, 50*time.Millisecond,
		middleware.NewSkipTable(api.SkipRoutes()...),
	)

	f.e = echo.New()
	f.e.Use(gate.Middleware())
	api.RegisterRoutes(f.e)
	return f
}

func (f *apiFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) login(t *testing.T, userName, password, ip string) *httptest.ResponseRecorder {
	t.Helper()

	body := `{"user_name": "` + userName + `", "password": "` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Forwarded-For", ip)
	return f.do(req)
}

func cookieValue(t *testing.T, rec *httptest.ResponseRecorder, name string) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	t.Fatalf("cookie %q not set", name)
	return ""
}

func TestLoginSetsSessionCookies(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.login(t, "admin", "123456", "1.2.3.4")
	require.Equal(t, http.StatusOK, rec.Code)

	access := cookieValue(t, rec, apiTokenName)
	refresh := cookieValue(t, rec, apiRefreshTokenName)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	for _, c := range rec.Result().Cookies() {
		assert.True(t, c.HttpOnly, "cookie %s must be httpOnly", c.Name)
	}

	assert.Contains(t, rec.Body.String(), `"access_token"`)
	assert.Contains(t, rec.Body.String(), `"13888888888"`)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.login(t, "admin", "wrong", "1.2.3.4")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.login(t, "nobody", "123456", "1.2.3.4")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsMissingFields(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.login(t, "admin", "", "1.2.3.4")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeRequiresMatchingIP(t *testing.T) {
	f := newAPIFixture(t)

	loginRec := f.login(t, "admin", "123456", "1.2.3.4")
	require.Equal(t, http.StatusOK, loginRec.Code)
	access := cookieValue(t, loginRec, apiTokenName)

	// same address: allowed
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: apiTokenName, Value: access})
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"admin"`)

	// replay from another address: uniform denial
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: apiTokenName, Value: access})
	req.Header.Set("X-Forwarded-For", "9.9.9.9")
	rec = f.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error": "re-authentication required"}`, rec.Body.String())
}

func TestMeWithoutTokenDenied(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := f.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error": "re-authentication required"}`, rec.Body.String())
}

func TestRefreshWhileAccessTokenActive(t *testing.T) {
	f := newAPIFixture(t)

	loginRec := f.login(t, "admin", "123456", "1.2.3.4")
	require.Equal(t, http.StatusOK, loginRec.Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: apiTokenName, Value: cookieValue(t, loginRec, apiTokenName)})
	req.AddCookie(&http.Cookie{Name: apiRefreshTokenName, Value: cookieValue(t, loginRec, apiRefreshTokenName)})
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	rec := f.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error": "re-authentication required"}`, rec.Body.String())
}

func TestRefreshAfterExpiryRotatesTokens(t *testing.T) {
	f := newAPIFixture(t)

	loginRec := f.login(t, "admin", "123456", "1.2.3.4")
	require.Equal(t, http.StatusOK, loginRec.Code)
	oldAccess := cookieValue(t, loginRec, apiTokenName)

	f.now = f.now.Add(apiAccessTTL + time.Minute)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: apiTokenName, Value: oldAccess})
	req.AddCookie(&http.Cookie{Name: apiRefreshTokenName, Value: cookieValue(t, loginRec, apiRefreshTokenName)})
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	newAccess := cookieValue(t, rec, apiTokenName)
	require.NotEqual(t, oldAccess, newAccess)

	// the rotated token works, the old one is gone from the store record
	meReq := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	meReq.AddCookie(&http.Cookie{Name: apiTokenName, Value: newAccess})
	meReq.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, http.StatusOK, f.do(meReq).Code)

	oldReq := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	oldReq.AddCookie(&http.Cookie{Name: apiTokenName, Value: oldAccess})
	oldReq.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, http.StatusUnauthorized, f.do(oldReq).Code)
}

func TestRefreshFromDifferentAddressDenied(t *testing.T) {
	f := newAPIFixture(t)

	loginRec := f.login(t, "admin", "123456", "1.2.3.4")
	require.Equal(t, http.StatusOK, loginRec.Code)

	f.now = f.now.Add(apiAccessTTL + time.Minute)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: apiRefreshTokenName, Value: cookieValue(t, loginRec, apiRefreshTokenName)})
	req.Header.Set("X-Forwarded-For", "9.9.9.9")

	rec := f.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error": "re-authentication required"}`, rec.Body.String())
}

func TestRefreshWithoutCookieDenied(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	rec := f.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAPIFixture(t)

	loginRec := f.login(t, "admin", "123456", "1.2.3.4")
	require.Equal(t, http.StatusOK, loginRec.Code)
	access := cookieValue(t, loginRec, apiTokenName)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: apiTokenName, Value: access})
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		assert.Less(t, c.MaxAge, 0, "cookie %s must be expired", c.Name)
	}

	meReq := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	meReq.AddCookie(&http.Cookie{Name: apiTokenName, Value: access})
	meReq.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, http.StatusUnauthorized, f.do(meReq).Code)
}

func TestLogoutOnOnePlatformLeavesOthers(t *testing.T) {
	f := newAPIFixture(t)

	// PC session
	pcLogin := f.login(t, "admin", "123456", "1.2.3.4")
	require.Equal(t, http.StatusOK, pcLogin.Code)
	pcAccess := cookieValue(t, pcLogin, apiTokenName)

	// Android session for the same user
	f.now = f.now.Add(time.Second)
	body := `{"user_name": "admin", "password": "123456"}`
	androidLoginReq := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	androidLoginReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	androidLoginReq.Header.Set("X-Forwarded-For", "1.2.3.4")
	androidLoginReq.Header.Set("User-Agent", "Mozilla/5.0 (Linux; Android 13) Mobile")
	androidLogin := f.do(androidLoginReq)
	require.Equal(t, http.StatusOK, androidLogin.Code)
	androidAccess := cookieValue(t, androidLogin, apiTokenName)

	// logging out the Android session
	logoutReq := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	logoutReq.AddCookie(&http.Cookie{Name: apiTokenName, Value: androidAccess})
	logoutReq.Header.Set("X-Forwarded-For", "1.2.3.4")
	logoutReq.Header.Set("User-Agent", "Mozilla/5.0 (Linux; Android 13) Mobile")
	require.Equal(t, http.StatusOK, f.do(logoutReq).Code)

	// the PC session still works
	meReq := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	meReq.AddCookie(&http.Cookie{Name: apiTokenName, Value: pcAccess})
	meReq.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, http.StatusOK, f.do(meReq).Code)
}
