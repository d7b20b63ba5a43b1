package controllers

import (
	"net/http"
	"storefront-service/apperrors"
	"storefront-service/logger"
	"storefront-service/middleware"
	"storefront-service/models"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PackageController handles multi-package parcel requests.
type PackageController struct {
	packages services.PackageOrderService
}

func NewPackageController(packages services.PackageOrderService) *PackageController {
	return &PackageController{packages: packages}
}

// Estimate handles POST /packages/estimate. It prices a request that may
// still be incomplete and lists what is missing before it can be placed.
func (pc *PackageController) Estimate(c *gin.Context) {
	var req models.MultiPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid request", err.Error()))
		return
	}
	draft := pc.packages.Draft(req)
	submitted := draft.Request()

	problems := []string{}
	if err := pc.packages.Validate(&submitted); err != nil {
		problems = apperrors.From(err).Details
	}
	c.JSON(http.StatusOK, gin.H{
		"estimate": draft.Estimate(),
		"valid":    len(problems) == 0,
		"problems": problems,
	})
}

// CreateOrder handles POST /packages/orders
func (pc *PackageController) CreateOrder(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.Unauthenticated())
		return
	}
	var req models.MultiPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid request", err.Error()))
		return
	}

	result, err := pc.packages.CreatePackageOrder(c.Request.Context(), userID, &req)
	if err != nil {
		switch apperrors.From(err).Kind {
		case apperrors.KindPersistence, apperrors.KindPartialFailure, apperrors.KindInternal:
			logger.Error(c, "Package order failed", err, zap.String("user_id", userID))
		default:
			logger.Warn(c, "Package order rejected", zap.String("user_id", userID), zap.Error(err))
		}
		apperrors.Respond(c, err)
		return
	}
	logger.Info(c, "Package order placed",
		zap.String("order_id", result.Order.ID.String()),
		zap.Int("packages", len(result.Packages)))
	c.JSON(http.StatusCreated, gin.H{"success": true, "order": result.Order, "packages": result.Packages})
}

// ListOrders handles GET /packages/orders
func (pc *PackageController) ListOrders(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.Unauthenticated())
		return
	}
	shipments, err := pc.packages.GetUserPackageOrders(c.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shipments": shipments})
}
