package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type OrderService struct {
	Repo   *repo.GormRepo
	Carts  *CartService
	Events events.Publisher
}

func (s *OrderService) CreateOrder(ctx context.Context, userID uint) (*models.Order, error) {
	order, err := s.Repo.CreateOrderFromCart(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrEmptyCart) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}

	if s.Carts != nil {
		s.Carts.Invalidate(ctx, userID)
	}
	events.Emit(ctx, s.Events, events.TopicOrder, userKey(userID), map[string]any{
		"type":    "order_created",
		"userID":  userID,
		"orderID": order.ID,
		"total":   order.Total.String(),
		"items":   len(order.Items),
	})
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.Repo.ListOrders(ctx, userID)
}

func (s *OrderService) GetOrder(ctx context.Context, userID, id uint) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return order, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status string) (*models.Order, error) {
	st := models.OrderStatus(status)
	if !st.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, ErrValidation)
	}

	order, err := s.Repo.UpdateOrderStatus(ctx, id, st)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
		}
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicOrder, strconv.FormatUint(uint64(order.UserID), 10), map[string]any{
		"type":    "order_status_changed",
		"orderID": order.ID,
		"userID":  order.UserID,
		"status":  string(order.Status),
	})
	return order, nil
}
