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

// CartController exposes the caller's cart session over HTTP.
type CartController struct {
	sessions *services.SessionRegistry
	logger   *zap.Logger
}

// NewCartController creates a new CartController.
func NewCartController(sessions *services.SessionRegistry, logger *zap.Logger) *CartController {
	return &CartController{sessions: sessions, logger: logger}
}

// session resolves the caller's cart state manager, writing the error response on failure.
func (cc *CartController) session(c *gin.Context) (*services.CartStateManager, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.Unauthenticated())
		return nil, false
	}
	manager, err := cc.sessions.Session(c.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(c, err)
		return nil, false
	}
	return manager, true
}

// GetCart handles GET /cart
func (cc *CartController) GetCart(c *gin.Context) {
	manager, ok := cc.session(c)
	if !ok {
		return
	}
	if err := manager.Refresh(c.Request.Context()); err != nil {
		logger.For(c, cc.logger).Warn("Cart refresh failed, serving last known state", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{
		"carts":     manager.Carts(),
		"global":    manager.Global(),
		"synced_at": manager.SyncedAt(),
	})
}

// AddItem handles POST /cart/items
func (cc *CartController) AddItem(c *gin.Context) {
	var req models.NewCartLine
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid request", err.Error()))
		return
	}
	manager, ok := cc.session(c)
	if !ok {
		return
	}
	cc.respond(c, manager, manager.AddToCart(c.Request.Context(), req))
}

// UpdateItem handles PATCH /cart/items/:line_id
func (cc *CartController) UpdateItem(c *gin.Context) {
	lineID, ok := lineParam(c)
	if !ok {
		return
	}
	var req models.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid request", err.Error()))
		return
	}
	manager, ok := cc.session(c)
	if !ok {
		return
	}
	cc.respond(c, manager, manager.UpdateQuantity(c.Request.Context(), lineID, req.Quantity))
}

// RemoveItem handles DELETE /cart/items/:line_id
func (cc *CartController) RemoveItem(c *gin.Context) {
	lineID, ok := lineParam(c)
	if !ok {
		return
	}
	manager, ok := cc.session(c)
	if !ok {
		return
	}
	cc.respond(c, manager, manager.RemoveFromCart(c.Request.Context(), lineID))
}

// ClearCart handles DELETE /cart
func (cc *CartController) ClearCart(c *gin.Context) {
	manager, ok := cc.session(c)
	if !ok {
		return
	}
	cc.respond(c, manager, manager.ClearCart(c.Request.Context()))
}

// SetDelivery handles PUT /cart/delivery
func (cc *CartController) SetDelivery(c *gin.Context) {
	var req models.DeliveryInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid request", err.Error()))
		return
	}
	manager, ok := cc.session(c)
	if !ok {
		return
	}
	cc.respond(c, manager, manager.SetDeliveryInfo(c.Request.Context(), req))
}

// respond always returns 200 with the mutation outcome and the reconciled view;
// callers branch on success.
func (cc *CartController) respond(c *gin.Context, manager *services.CartStateManager, result models.MutationResult) {
	body := gin.H{
		"success": result.Success,
		"global":  manager.Global(),
		"carts":   manager.Carts(),
	}
	if !result.Success {
		body["error"] = result.Error
	}
	c.JSON(http.StatusOK, body)
}

func lineParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("line_id"))
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid line id"))
		return uuid.Nil, false
	}
	return id, true
}
