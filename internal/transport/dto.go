package transport

import "github.com/shopspring/decimal"

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type CreateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       *int64          `json:"stock"`
}

type PatchProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int64           `json:"stock"`
}

type AddToCartRequest struct {
	ProductID uint   `json:"product_id"`
	Quantity  *int64 `json:"quantity"`
}

type PostMessageRequest struct {
	Content     string `json:"content"`
	RecipientID *uint  `json:"recipient_id"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}
