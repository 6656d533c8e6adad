package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func cartItemsQuery(db *gorm.DB, userID uint) *gorm.DB {
	return db.Model(&models.CartItem{}).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts.user_id = ?", userID)
}

func userCartIDs(db *gorm.DB, userID uint) *gorm.DB {
	return db.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)
}

// GetCartItems returns the user's cart lines with their products loaded.
// A user without a cart has no lines.
func (r *GormRepo) GetCartItems(ctx context.Context, userID uint) ([]models.CartItem, error) {
	items := make([]models.CartItem, 0)
	if err := cartItemsQuery(r.DB.WithContext(ctx), userID).
		Preload("Product").
		Order("cart_items.id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) getOrCreateCart(tx *gorm.DB, userID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := tx.Where(models.Cart{UserID: userID}).FirstOrCreate(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddToCart merges qty into the user's line for the product, creating the
// cart and the line when needed. Returns gorm.ErrRecordNotFound when the
// product does not exist.
func (r *GormRepo) AddToCart(ctx context.Context, userID, productID, qty uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Select("id").First(&product, productID).Error; err != nil {
			return err
		}

		cart, err := r.getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		res := tx.Model(&models.CartItem{}).
			Where("cart_id = ? AND product_id = ?", cart.ID, productID).
			Update("quantity", gorm.Expr("quantity + ?", qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}

		item := models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: qty}
		if err := tx.Omit("Product").Create(&item).Error; err != nil {
			return err
		}
		return nil
	})
}

// RemoveFromCart deletes the line for the product; a missing line is not an error.
func (r *GormRepo) RemoveFromCart(ctx context.Context, userID, productID uint) error {
	db := r.DB.WithContext(ctx)
	return db.Where("product_id = ? AND cart_id IN (?)", productID, userCartIDs(db, userID)).
		Delete(&models.CartItem{}).Error
}

func (r *GormRepo) ClearCart(ctx context.Context, userID uint) error {
	db := r.DB.WithContext(ctx)
	return db.Where("cart_id IN (?)", userCartIDs(db, userID)).
		Delete(&models.CartItem{}).Error
}
