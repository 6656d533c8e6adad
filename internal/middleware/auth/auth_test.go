package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

type fakeAuth map[string]*models.User

func (f fakeAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, errors.New("bad token")
}

func newEcho() (*echo.Echo, *Middleware) {
	m := &Middleware{Auth: fakeAuth{
		"user-token":  {ID: 1, Email: "u@x.io"},
		"admin-token": {ID: 2, Email: "a@x.io", IsAdmin: true},
	}}
	e := echo.New()
	who := func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"id": UserID(c), "email": UserFromContext(c).Email})
	}
	e.GET("/me", who, m.RequireAuth)
	e.GET("/admin", who, m.RequireAuth, m.RequireAdmin)
	e.GET("/ws", who, m.RequireWS)
	return e, m
}

func TestRequireAuth(t *testing.T) {
	e, _ := newEcho()

	tests := []struct {
		name   string
		path   string
		setup  func(r *http.Request)
		status int
	}{
		{"no token", "/me", func(*http.Request) {}, http.StatusUnauthorized},
		{"bad bearer", "/me", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"bearer", "/me", func(r *http.Request) { r.Header.Set("Authorization", "Bearer user-token") }, http.StatusOK},
		{"cookie", "/me", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: "user-token"})
		}, http.StatusOK},
		{"query not accepted on rest", "/me?token=user-token", func(*http.Request) {}, http.StatusUnauthorized},
		{"query accepted on ws", "/ws?token=user-token", func(*http.Request) {}, http.StatusOK},
		{"admin as user", "/admin", func(r *http.Request) { r.Header.Set("Authorization", "Bearer user-token") }, http.StatusForbidden},
		{"admin as admin", "/admin", func(r *http.Request) { r.Header.Set("Authorization", "Bearer admin-token") }, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRequireAuth_SetsUser(t *testing.T) {
	e, _ := newEcho()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.JSONEq(t, `{"id":1,"email":"u@x.io"}`, rec.Body.String())
}

type fakeRefresher struct{ calls int }

func (f *fakeRefresher) Refresh(_ context.Context, token string) (*service.AuthResult, error) {
	f.calls++
	if token != "good-refresh" {
		return nil, errors.New("refresh rejected")
	}
	return &service.AuthResult{
		AccessToken:  "user-token",
		RefreshToken: "next-refresh",
		AccessExp:    time.Now().Add(time.Minute),
		RefreshExp:   time.Now().Add(time.Hour),
		User:         &models.User{ID: 1, Email: "u@x.io"},
	}, nil
}

func TestRequireAuth_RenewsCookieSession(t *testing.T) {
	e, m := newEcho()
	ref := &fakeRefresher{}
	m.Refresh = ref

	call := func(access, refresh string, bearer bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if bearer {
			req.Header.Set("Authorization", "Bearer "+access)
		} else {
			req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: access})
		}
		if refresh != "" {
			req.AddCookie(&http.Cookie{Name: tokens.RefreshCookie, Value: refresh})
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := call("expired", "good-refresh", false)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := map[string]string{}
	for _, ck := range rec.Result().Cookies() {
		cookies[ck.Name] = ck.Value
	}
	assert.Equal(t, "user-token", cookies[tokens.AccessCookie])
	assert.Equal(t, "next-refresh", cookies[tokens.RefreshCookie])

	rec = call("expired", "stolen", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call("expired", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// bearer clients refresh explicitly
	before := ref.calls
	rec = call("expired", "good-refresh", true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, before, ref.calls)
}
