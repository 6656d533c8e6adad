package repo

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

// CreateOrderFromCart turns the user's cart into an order with frozen names
// and prices and empties the cart, all in one transaction.
func (r *GormRepo) CreateOrderFromCart(ctx context.Context, userID uint) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := cartItemsQuery(tx, userID).
			Preload("Product").
			Order("cart_items.id ASC").
			Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		cartID := items[0].CartID
		res := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{})
		if res.Error != nil {
			return res.Error
		}
		// a concurrent checkout already consumed (part of) this cart
		if res.RowsAffected != int64(len(items)) {
			return ErrEmptyCart
		}

		order = models.Order{
			UserID: userID,
			Status: models.OrderPending,
			Total:  decimal.Zero,
			Items:  make([]models.OrderItem, 0, len(items)),
		}
		for _, it := range items {
			order.Items = append(order.Items, models.OrderItem{
				ProductID: it.ProductID,
				Name:      it.Product.Name,
				Price:     it.Product.Price,
				Quantity:  it.Quantity,
			})
			order.Total = order.Total.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}

		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	orders := make([]models.Order, 0)
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder returns gorm.ErrRecordNotFound for orders owned by someone else.
func (r *GormRepo) GetOrder(ctx context.Context, userID, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	orders := make([]models.Order, 0)
	if err := r.DB.WithContext(ctx).
		Preload("User").
		Preload("Items").
		Order("created_at DESC, id DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) UpdateOrderStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).Where("id = ?", id).Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Preload("User").Preload("Items").First(&order, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}
