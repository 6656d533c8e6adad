package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/cache"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type CartService struct {
	Repo   *repo.GormRepo
	Cache  cache.CartCache
	Events events.Publisher
}

func userKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// GetCart returns the cart view, served from cache when possible.
func (s *CartService) GetCart(ctx context.Context, userID uint) (*models.CartView, error) {
	l := logging.FromContext(ctx).With("svc", "cart.get")

	cacheable := false
	var version int64
	if s.Cache != nil {
		view, err := s.Cache.Get(ctx, userID)
		if err == nil {
			return view, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l.Warn("cart_cache_get_failed", "user_id", userID, "error", err)
		}
		// read before the db so an invalidation racing this call makes the stored view stale
		if version, err = s.Cache.Version(ctx, userID); err != nil {
			l.Warn("cart_cache_version_failed", "user_id", userID, "error", err)
		} else {
			cacheable = true
		}
	}

	items, err := s.Repo.GetCartItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := models.NewCartView(userID, items)

	if cacheable {
		if err := s.Cache.Set(ctx, &view, version); err != nil {
			l.Warn("cart_cache_set_failed", "user_id", userID, "error", err)
		}
	}
	return &view, nil
}

func (s *CartService) AddToCart(ctx context.Context, userID uint, req transport.AddToCartRequest) (*models.CartView, error) {
	if req.ProductID == 0 {
		return nil, fmt.Errorf("product_id is required: %w", ErrValidation)
	}
	qty := int64(1)
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	if qty <= 0 {
		return nil, fmt.Errorf("quantity must be more than zero: %w", ErrValidation)
	}

	if err := s.Repo.AddToCart(ctx, userID, req.ProductID, uint(qty)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", req.ProductID, ErrNotFound)
		}
		return nil, err
	}

	s.Invalidate(ctx, userID)
	events.Emit(ctx, s.Events, events.TopicCart, userKey(userID), map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": req.ProductID,
		"quantity":  qty,
	})
	return s.GetCart(ctx, userID)
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID, productID uint) (*models.CartView, error) {
	if err := s.Repo.RemoveFromCart(ctx, userID, productID); err != nil {
		return nil, err
	}

	s.Invalidate(ctx, userID)
	events.Emit(ctx, s.Events, events.TopicCart, userKey(userID), map[string]any{
		"type":      "cart_item_removed",
		"userID":    userID,
		"productID": productID,
	})
	return s.GetCart(ctx, userID)
}

func (s *CartService) ClearCart(ctx context.Context, userID uint) (*models.CartView, error) {
	if err := s.Repo.ClearCart(ctx, userID); err != nil {
		return nil, err
	}

	s.Invalidate(ctx, userID)
	events.Emit(ctx, s.Events, events.TopicCart, userKey(userID), map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})
	return s.GetCart(ctx, userID)
}

func (s *CartService) Invalidate(ctx context.Context, userIDs ...uint) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, userIDs...); err != nil {
		logging.FromContext(ctx).Error("cart_cache_invalidate_failed", "error", err)
	}
}
