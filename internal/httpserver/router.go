package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/chat"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
)

type Deps struct {
	DB          *gorm.DB
	Auth        *service.AuthService
	Catalog     *service.CatalogService
	Cart        *service.CartService
	Orders      *service.OrderService
	Chat        *service.ChatRelay
	Admin       *service.AdminService
	Sessions    *chat.SessionManager
	CORSOrigins []string
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", ready(d.DB))

	mw := &auth.Middleware{Auth: d.Auth, Refresh: d.Auth}
	authH := &AuthHTTP{Svc: d.Auth}
	catalogH := &CatalogHTTP{Svc: d.Catalog}
	cartH := &CartHTTP{Svc: d.Cart}
	orderH := &OrderHTTP{Svc: d.Orders}
	messageH := &MessageHTTP{Relay: d.Chat}
	adminH := &AdminHTTP{Svc: d.Admin}
	wsH := &ChatWS{
		Relay:    d.Chat,
		Sessions: d.Sessions,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(d.CORSOrigins),
		},
	}

	a := e.Group("/auth")
	a.POST("/register", authH.Register)
	a.POST("/login", authH.Login)
	a.POST("/refresh", authH.Refresh)
	a.POST("/logout", authH.LogOut)
	a.GET("/me", authH.Me, mw.RequireAuth)

	products := e.Group("/products")
	products.GET("", catalogH.GetProducts)
	products.GET("/search", catalogH.SearchProducts)
	products.GET("/:id", catalogH.GetProduct)
	products.POST("", catalogH.CreateProduct, mw.RequireAuth, mw.RequireAdmin)

	cart := e.Group("/cart", mw.RequireAuth)
	cart.GET("", cartH.GetCart)
	cart.POST("", cartH.AddToCart)
	cart.DELETE("", cartH.ClearCart)
	cart.DELETE("/:productId", cartH.RemoveFromCart)

	orders := e.Group("/orders", mw.RequireAuth)
	orders.GET("", orderH.ListOrders)
	orders.POST("", orderH.CreateOrder)
	orders.GET("/:id", orderH.GetOrder)

	messages := e.Group("/messages", mw.RequireAuth)
	messages.GET("", messageH.ListMessages)
	messages.POST("", messageH.PostMessage)

	admin := e.Group("/admin", mw.RequireAuth, mw.RequireAdmin)
	admin.GET("/users", adminH.ListUsers)
	admin.GET("/orders", adminH.ListOrders)
	admin.PUT("/orders/:id/status", orderH.UpdateStatus)
	admin.PUT("/products/:id", catalogH.PatchProduct)
	admin.DELETE("/products/:id", catalogH.DeleteProduct)
	admin.GET("/products/export", catalogH.ExportProducts)
	admin.GET("/stats", adminH.Stats)

	e.GET("/ws", wsH.Serve, mw.RequireWS)
}

func ready(db *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	}
}
