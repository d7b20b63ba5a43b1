package routes

import (
	"net/http"
	"storefront-service/controllers"
	"storefront-service/middleware"

	"github.com/gin-gonic/gin"
)

// Dependencies are the handlers and guards the router is assembled from.
type Dependencies struct {
	Cart        *controllers.CartController
	Orders      *controllers.OrderController
	Packages    *controllers.PackageController
	JWTSecret   string
	RateLimiter *middleware.RateLimiter
	Health      func() error
}

func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	r.GET("/health", func(c *gin.Context) {
		if deps.Health != nil {
			if err := deps.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/")
	api.Use(middleware.AuthMiddleware(deps.JWTSecret))
	if deps.RateLimiter != nil {
		api.Use(middleware.RateLimitMiddleware(deps.RateLimiter))
	}

	cart := api.Group("/cart")
	{
		cart.GET("", deps.Cart.GetCart)
		cart.DELETE("", deps.Cart.ClearCart)
		cart.POST("/items", deps.Cart.AddItem)
		cart.PATCH("/items/:line_id", deps.Cart.UpdateItem)
		cart.DELETE("/items/:line_id", deps.Cart.RemoveItem)
		cart.PUT("/delivery", deps.Cart.SetDelivery)
	}

	orders := api.Group("/orders")
	{
		orders.POST("/checkout", deps.Orders.Checkout)
		orders.GET("", deps.Orders.ListOrders)
		orders.GET("/:order_id", deps.Orders.GetOrder)
	}

	packages := api.Group("/packages")
	{
		packages.POST("/estimate", deps.Packages.Estimate)
		packages.POST("/orders", deps.Packages.CreateOrder)
		packages.GET("/orders", deps.Packages.ListOrders)
	}
}
