package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/cache"
	"github.com/Skotchmaster/storefront/internal/chat"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

type testEnv struct {
	DB       *gorm.DB
	Repo     *repo.GormRepo
	Events   *testutil.EventRecorder
	Redis    *miniredis.Miniredis
	Sessions *chat.SessionManager

	Auth    *AuthService
	Catalog *CatalogService
	Cart    *CartService
	Orders  *OrderService
	Chat    *ChatRelay
	Admin   *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb := testutil.NewDB(t)
	r := repo.New(gdb)
	rec := &testutil.EventRecorder{}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	carts := cache.NewRedisCache(client)

	sessions := chat.NewSessionManager(8)
	t.Cleanup(sessions.CloseAll)

	cartSvc := &CartService{Repo: r, Cache: carts, Events: rec}
	return &testEnv{
		DB:       gdb,
		Repo:     r,
		Events:   rec,
		Redis:    mr,
		Sessions: sessions,
		Auth: &AuthService{
			Repo:          r,
			JWTSecret:     []byte("test-jwt-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
			Events:        rec,
		},
		Catalog: &CatalogService{Repo: r, Events: rec, Carts: carts},
		Cart:    cartSvc,
		Orders:  &OrderService{Repo: r, Carts: cartSvc, Events: rec},
		Chat:    &ChatRelay{Repo: r, Sessions: sessions, Events: rec},
		Admin:   &AdminService{Repo: r},
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

// recordingConn collects text frames written by a session's WritePump.
type recordingConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if data != nil {
		c.frames = append(c.frames, data)
	}
	return nil
}

func (c *recordingConn) SetWriteDeadline(time.Time) error { return nil }
func (c *recordingConn) Close() error                     { return nil }

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *recordingConn) last() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

func connect(t *testing.T, env *testEnv, userID uint) *recordingConn {
	t.Helper()
	conn := &recordingConn{}
	s := env.Sessions.Add(userID, conn)
	require.NoError(t, env.Sessions.Join(s, userID))
	go s.WritePump()
	return conn
}

var bg = context.Background()
