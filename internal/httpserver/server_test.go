package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/cache"
	"github.com/Skotchmaster/storefront/internal/chat"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

var testSecret = []byte("test-jwt-secret")

type testServer struct {
	*httptest.Server
	DB       *gorm.DB
	Sessions *chat.SessionManager
}

func newServer(t *testing.T) *testServer {
	t.Helper()

	gdb := testutil.NewDB(t)
	r := repo.New(gdb)
	var pub events.Publisher = events.Nop{}
	sessions := chat.NewSessionManager(16)

	cartSvc := &service.CartService{Repo: r, Cache: cache.Nop{}, Events: pub}
	deps := &Deps{
		DB: gdb,
		Auth: &service.AuthService{
			Repo:          r,
			JWTSecret:     testSecret,
			RefreshSecret: []byte("test-refresh-secret"),
			Events:        pub,
		},
		Catalog:     &service.CatalogService{Repo: r, Events: pub, Carts: cache.Nop{}},
		Cart:        cartSvc,
		Orders:      &service.OrderService{Repo: r, Carts: cartSvc, Events: pub},
		Chat:        &service.ChatRelay{Repo: r, Sessions: sessions, Events: pub},
		Admin:       &service.AdminService{Repo: r},
		Sessions:    sessions,
		CORSOrigins: []string{"*"},
	}

	e := echo.New()
	Register(e, deps)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	t.Cleanup(sessions.CloseAll)

	return &testServer{Server: srv, DB: gdb, Sessions: sessions}
}

// userToken creates a user directly in the store and signs an access token
// for it.
func (s *testServer) userToken(t *testing.T, email string, admin bool) (models.User, string) {
	t.Helper()
	u := testutil.CreateUser(t, s.DB, email, admin)
	tok, err := tokens.SignAccess(u.ID, testSecret, time.Now())
	require.NoError(t, err)
	return u, tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decodeJSON[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
