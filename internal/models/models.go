package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         string    `gorm:"size:255"                 json:"name"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false"   json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"            json:"id"`
	UserID    uint   `gorm:"index;not null"        json:"user_id"`
	Token     string `gorm:"uniqueIndex;not null"  json:"-"`
	JTI       string `gorm:"uniqueIndex;not null"  json:"jti"`
	ExpiresAt int64  `gorm:"not null"              json:"expires_at"`
	Revoked   bool   `gorm:"not null;default:false" json:"revoked"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string          `gorm:"size:255;not null"         json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock       uint            `gorm:"not null;default:0"        json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Cart struct {
	ID     uint       `gorm:"primaryKey"          json:"id"`
	UserID uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Items  []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

type CartItem struct {
	ID        uint    `gorm:"primaryKey"                                    json:"id"`
	CartID    uint    `gorm:"not null;uniqueIndex:idx_cart_product"         json:"cart_id"`
	ProductID uint    `gorm:"not null;uniqueIndex:idx_cart_product"         json:"product_id"`
	Product   Product `gorm:"constraint:OnDelete:CASCADE"                   json:"-"`
	Quantity  uint    `gorm:"not null;check:quantity > 0"                   json:"quantity"`
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Order struct {
	ID        uint            `gorm:"primaryKey"                 json:"id"`
	UserID    uint            `gorm:"index;not null"             json:"user_id"`
	User      *User           `json:"user,omitempty"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Status    OrderStatus     `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	Items     []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time       `gorm:"index"                      json:"created_at"`
}

// OrderItem is a snapshot of a product at ordering time; it has no foreign
// key to products so deleting a product keeps historical orders intact.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey"                 json:"id"`
	OrderID   uint            `gorm:"index;not null"             json:"order_id"`
	ProductID uint            `gorm:"not null"                   json:"product_id"`
	Name      string          `gorm:"size:255;not null"          json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Quantity  uint            `gorm:"not null"                   json:"quantity"`
}

type Message struct {
	ID          uint      `gorm:"primaryKey"                json:"id"`
	UserID      uint      `gorm:"index;not null"            json:"user_id"`
	User        *User     `json:"user,omitempty"`
	RecipientID *uint     `gorm:"index"                     json:"recipient_id,omitempty"`
	Content     string    `gorm:"type:text;not null"        json:"content"`
	CreatedAt   time.Time `gorm:"index"                     json:"created_at"`
}

type CartLine struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  uint            `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartView is the computed read model of a cart. Totals always reflect
// current product prices.
type CartView struct {
	UserID uint            `json:"user_id"`
	Items  []CartLine      `json:"items"`
	Total  decimal.Decimal `json:"total"`
}

func NewCartView(userID uint, items []CartItem) CartView {
	view := CartView{UserID: userID, Items: make([]CartLine, 0, len(items)), Total: decimal.Zero}
	for _, it := range items {
		line := CartLine{
			ProductID: it.ProductID,
			Name:      it.Product.Name,
			Price:     it.Product.Price,
			Quantity:  it.Quantity,
			LineTotal: it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		}
		view.Items = append(view.Items, line)
		view.Total = view.Total.Add(line.LineTotal)
	}
	return view
}
