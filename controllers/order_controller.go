package controllers

import (
	"net/http"
	"storefront-service/apperrors"
	"storefront-service/logger"
	"storefront-service/middleware"
	"storefront-service/models"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderController handles checkout and order history.
type OrderController struct {
	orders   services.OrderService
	sessions *services.SessionRegistry
	logger   *zap.Logger
}

// NewOrderController creates a new OrderController. sessions may be nil.
func NewOrderController(orders services.OrderService, sessions *services.SessionRegistry, logger *zap.Logger) *OrderController {
	return &OrderController{orders: orders, sessions: sessions, logger: logger}
}

// Checkout handles POST /orders/checkout
func (oc *OrderController) Checkout(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.Unauthenticated())
		return
	}
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid request", err.Error()))
		return
	}
	if key := c.GetHeader("Idempotency-Key"); key != "" && req.IdempotencyKey == "" {
		req.IdempotencyKey = key
	}

	order, err := oc.orders.Checkout(c.Request.Context(), userID, req.VendorID, req.OrderMeta)
	if err != nil {
		logger.For(c, oc.logger).Warn("Checkout failed", zap.String("user_id", userID), zap.Error(err))
		apperrors.Respond(c, err)
		return
	}

	// the session still shows the converted cart until it re-reads the store
	if oc.sessions != nil {
		if manager, err := oc.sessions.Session(c.Request.Context(), userID); err == nil {
			if err := manager.Refresh(c.Request.Context()); err != nil {
				logger.For(c, oc.logger).Warn("Cart refresh after checkout failed", zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "order": order})
}

// ListOrders handles GET /orders
func (oc *OrderController) ListOrders(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.Unauthenticated())
		return
	}
	orders, err := oc.orders.ListOrders(c.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrder handles GET /orders/:order_id
func (oc *OrderController) GetOrder(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.Unauthenticated())
		return
	}
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid order id"))
		return
	}
	order, err := oc.orders.GetOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
