package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

const (
	userKey   = "user"
	userIDKey = "user_id"
)

// Authenticator resolves an access token to the user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// Refresher rotates a refresh token into a new session.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*service.AuthResult, error)
}

type Middleware struct {
	Auth Authenticator
	// Refresh is optional. When set, a cookie session whose access token
	// has stopped working is renewed from the refresh cookie.
	Refresh Refresher
}

// RequireAuth accepts a bearer token or the access cookie.
func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.require(false, next)
}

// RequireWS additionally accepts ?token= since browsers cannot set headers
// on a websocket handshake.
func (m *Middleware) RequireWS(next echo.HandlerFunc) echo.HandlerFunc {
	return m.require(true, next)
}

// RequireAdmin must run after RequireAuth.
func (m *Middleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u := UserFromContext(c)
		if u == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		if !u.IsAdmin {
			logging.FromContext(c.Request().Context()).Warn("admin_required",
				"status", http.StatusForbidden,
				"user_id", u.ID,
			)
			return echo.NewHTTPError(http.StatusForbidden, "admin only")
		}
		return next(c)
	}
}

func (m *Middleware) require(allowQuery bool, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "auth")

		raw, fromCookie := tokenFromRequest(c, allowQuery)
		if raw == "" {
			l.Warn("auth_error", "status", http.StatusUnauthorized, "reason", "missing token")
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}

		user, err := m.Auth.Authenticate(ctx, raw)
		if err != nil && fromCookie && m.Refresh != nil {
			user, err = m.refreshSession(c)
		}
		if err != nil {
			l.Warn("auth_error", "status", http.StatusUnauthorized, "reason", "invalid token", "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}

		c.Set(userKey, user)
		c.Set(userIDKey, user.ID)
		return next(c)
	}
}

func (m *Middleware) refreshSession(c echo.Context) (*models.User, error) {
	cookie, err := c.Cookie(tokens.RefreshCookie)
	if err != nil || cookie.Value == "" {
		clearAuthCookies(c)
		return nil, errors.New("refresh token missing")
	}

	res, err := m.Refresh.Refresh(c.Request().Context(), cookie.Value)
	if err != nil {
		clearAuthCookies(c)
		return nil, err
	}

	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, res.AccessToken, "/", res.AccessExp))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, res.RefreshToken, "/", res.RefreshExp))
	return res.User, nil
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/"))
}

func tokenFromRequest(c echo.Context, allowQuery bool) (raw string, fromCookie bool) {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(after), false
		}
	}
	if cookie, err := c.Cookie(tokens.AccessCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	if allowQuery {
		return c.QueryParam("token"), false
	}
	return "", false
}

func UserFromContext(c echo.Context) *models.User {
	u, _ := c.Get(userKey).(*models.User)
	return u
}

func UserID(c echo.Context) uint {
	id, _ := c.Get(userIDKey).(uint)
	return id
}
