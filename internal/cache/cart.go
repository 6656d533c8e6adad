package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/storefront/internal/models"
)

var ErrCacheMiss = errors.New("cache miss")

// CartCache stores cart views tagged with the per-user version that was
// current when the view was read from the database. Delete bumps the
// version, so a view computed before an invalidation is never served.
type CartCache interface {
	Version(ctx context.Context, userID uint) (int64, error)
	Get(ctx context.Context, userID uint) (*models.CartView, error)
	Set(ctx context.Context, view *models.CartView, version int64) error
	Delete(ctx context.Context, userIDs ...uint) error
}

type RedisCache struct {
	client     *redis.Client
	baseTTL    time.Duration
	maxJitter  time.Duration
	versionTTL time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:     client,
		baseTTL:    5 * time.Minute,
		maxJitter:  time.Minute,
		versionTTL: 24 * time.Hour,
	}
}

type entry struct {
	Version int64            `json:"v"`
	View    *models.CartView `json:"view"`
}

func (r *RedisCache) Version(ctx context.Context, userID uint) (int64, error) {
	v, err := r.client.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version failed: %w", err)
	}
	return v, nil
}

func (r *RedisCache) Get(ctx context.Context, userID uint) (*models.CartView, error) {
	vals, err := r.client.MGet(ctx, cacheKey(userID), versionKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, ErrCacheMiss
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if e.View == nil {
		return nil, errors.New("unmarshal cart failed: empty view")
	}

	var current int64
	if s, ok := vals[1].(string); ok {
		if current, err = strconv.ParseInt(s, 10, 64); err != nil {
			return nil, fmt.Errorf("parse cart version failed: %w", err)
		}
	}
	if e.Version != current {
		return nil, ErrCacheMiss
	}
	return e.View, nil
}

func (r *RedisCache) Set(ctx context.Context, view *models.CartView, version int64) error {
	data, err := json.Marshal(entry{Version: version, View: view})
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	jitter := time.Duration(rand.Int63n(int64(r.maxJitter)))
	if err := r.client.Set(ctx, cacheKey(view.UserID), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, userIDs ...uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range userIDs {
			p.Incr(ctx, versionKey(id))
			p.Expire(ctx, versionKey(id), r.versionTTL)
			p.Del(ctx, cacheKey(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(userID uint) string {
	return fmt.Sprintf("cart:%d", userID)
}

func versionKey(userID uint) string {
	return fmt.Sprintf("cart:ver:%d", userID)
}

// Nop never stores anything; every Get is a miss.
type Nop struct{}

func (Nop) Version(context.Context, uint) (int64, error)        { return 0, nil }
func (Nop) Get(context.Context, uint) (*models.CartView, error) { return nil, ErrCacheMiss }
func (Nop) Set(context.Context, *models.CartView, int64) error  { return nil }
func (Nop) Delete(context.Context, ...uint) error               { return nil }
