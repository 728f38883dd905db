package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	sessiongate "go.pilab.hu/sessiongate"
	"go.pilab.hu/sessiongate/middleware"
	"go.pilab.hu/sessiongate/services"
)

// SessionAPI exposes the login/refresh/logout surface over HTTP.
type SessionAPI struct {
	users            *services.UserService
	sessions         *services.SessionService
	cookies          *CookieStore
	ids              middleware.IdentityResolver
	tokenName        string
	refreshTokenName string
}

// NewSessionAPI initializes the session API.
func NewSessionAPI(
	users *services.UserService,
	sessions *services.SessionService,
	cookies *CookieStore,
	ids middleware.IdentityResolver,
	tokenName, refreshTokenName string,
) *SessionAPI {
	return &SessionAPI{
		users:            users,
		sessions:         sessions,
		cookies:          cookies,
		ids:              ids,
		tokenName:        tokenName,
		refreshTokenName: refreshTokenName,
	}
}

// RegisterRoutes registers the session routes.
func (a *SessionAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/login", a.LoginHandler)
	e.POST("/auth/refresh", a.RefreshHandler)
	e.POST("/auth/logout", a.LogoutHandler)
	e.GET("/auth/me", a.MeHandler)
}

// SkipRoutes lists the routes the gate passes through unauthenticated.
// Refresh is gate-lite by design: it validates the refresh token itself.
func (a *SessionAPI) SkipRoutes() []string {
	return []string{
		"POST /auth/login",
		"POST /auth/refresh",
	}
}

type loginRequest struct {
	UserName string `json:"user_name" form:"user_name"`
	Password string `json:"password" form:"password"`
}

// LoginHandler verifies credentials, issues a session for the calling
// platform and sets both token cookies.
func (a *SessionAPI) LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed request"})
	}
	if req.UserName == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_name and password are required"})
	}

	ctx := c.Request().Context()
	user, err := a.users.VerifyCredentials(ctx, req.UserName, req.Password)
	if err != nil {
		if errors.Is(err, sessiongate.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		log.Ctx(ctx).Error().Err(err).Msg("credential verification failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	clientIP := a.ids.ClientIP(c.Request())
	platform := a.ids.Platform(c.Request())

	loginUser, err := a.sessions.IssueSession(ctx, user, platform, clientIP)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("user_id", user.ID).Msg("failed to issue session")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	a.setTokenCookies(c, loginUser.AccessToken, loginUser.RefreshToken)
	return c.JSON(http.StatusOK, loginUser)
}

// RefreshHandler re-issues a token pair from a refresh token. Every failure
// collapses into the same 401 so the endpoint is not a token oracle.
func (a *SessionAPI) RefreshHandler(c echo.Context) error {
	accessToken, _ := a.cookies.Credential(c, a.tokenName)
	refreshToken, ok := a.cookies.Credential(c, a.refreshTokenName)
	if !ok || refreshToken == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "re-authentication required"})
	}

	ctx := c.Request().Context()
	clientIP := a.ids.ClientIP(c.Request())
	platform := a.ids.Platform(c.Request())

	loginUser, err := a.sessions.RefreshSession(ctx, accessToken, refreshToken, clientIP, platform)
	if err != nil {
		if errors.Is(err, sessiongate.ErrAccessTokenActive) || errors.Is(err, sessiongate.ErrSessionInvalid) {
			log.Ctx(ctx).Warn().Err(err).Msg("refresh rejected")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "re-authentication required"})
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to refresh session")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	a.setTokenCookies(c, loginUser.AccessToken, loginUser.RefreshToken)
	return c.JSON(http.StatusOK, loginUser)
}

// LogoutHandler revokes the caller's session on the current platform and
// clears both cookies. It sits behind the gate, so the identity comes from
// the validated session, not from the request body.
func (a *SessionAPI) LogoutHandler(c echo.Context) error {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "re-authentication required"})
	}

	ctx := c.Request().Context()
	platform := a.ids.Platform(c.Request())
	if err := a.sessions.RevokeSession(ctx, userID, platform); err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("failed to revoke session")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	a.cookies.ClearCredential(c, a.tokenName)
	a.cookies.ClearCredential(c, a.refreshTokenName)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// MeHandler echoes the authenticated session identity.
func (a *SessionAPI) MeHandler(c echo.Context) error {
	record, ok := middleware.SessionFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "re-authentication required"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":   record.UserID,
		"user_name": record.UserName,
		"mobile":    record.Mobile,
	})
}

func (a *SessionAPI) setTokenCookies(c echo.Context, accessToken, refreshToken string) {
	ttl := a.sessions.AccessTTL()
	a.cookies.SetCredential(c, a.tokenName, accessToken, ttl)
	a.cookies.SetCredential(c, a.refreshTokenName, refreshToken, 2*ttl)
}
