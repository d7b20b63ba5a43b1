package services

import (
	"context"
	"errors"
	"storefront-service/apperrors"
	"storefront-service/models"
	"storefront-service/repository"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartRepository manages the per-vendor cart aggregates of a customer on top
// of the cart and line-item stores. A cart with no lines does not exist.
type CartRepository interface {
	GetCart(ctx context.Context, userID, vendorID string) (*models.Cart, error)
	GetAllCarts(ctx context.Context, userID string) ([]models.Cart, error)
	CreateCart(ctx context.Context, userID, vendorID, vendorName string) (uuid.UUID, error)
	AddLine(ctx context.Context, cartID uuid.UUID, item models.CartItem) error
	SetLineQuantity(ctx context.Context, userID string, lineID uuid.UUID, quantity int) error
	RemoveLine(ctx context.Context, userID string, lineID uuid.UUID) error
	ClearCart(ctx context.Context, userID string) error
	ClearVendorCart(ctx context.Context, userID, vendorID string) error
	SetDeliveryInfo(ctx context.Context, userID, mode string, address, instructions *string) error
}

type cartRepositoryImpl struct {
	carts  repository.CartStore
	lines  repository.LineItemStore
	logger *zap.Logger
}

// NewCartRepository creates a new CartRepository.
func NewCartRepository(carts repository.CartStore, lines repository.LineItemStore, logger *zap.Logger) CartRepository {
	return &cartRepositoryImpl{carts: carts, lines: lines, logger: logger}
}

// GetCart returns nil without error when the customer has no cart for vendorID.
func (r *cartRepositoryImpl) GetCart(ctx context.Context, userID, vendorID string) (*models.Cart, error) {
	cart, err := r.carts.FindByUserVendor(ctx, userID, vendorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to load cart", zap.String("user_id", userID), zap.String("vendor_id", vendorID), zap.Error(err))
		return nil, apperrors.Persistence("failed to load cart", err)
	}
	if cart.IsEmpty() {
		r.prune(ctx, cart.ID)
		return nil, nil
	}
	return cart, nil
}

func (r *cartRepositoryImpl) GetAllCarts(ctx context.Context, userID string) ([]models.Cart, error) {
	carts, err := r.carts.FindByUser(ctx, userID)
	if err != nil {
		r.logger.Error("Failed to load carts", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.Persistence("failed to load carts", err)
	}

	live := carts[:0]
	for _, cart := range carts {
		if cart.IsEmpty() {
			r.prune(ctx, cart.ID)
			continue
		}
		live = append(live, cart)
	}
	return live, nil
}

func (r *cartRepositoryImpl) CreateCart(ctx context.Context, userID, vendorID, vendorName string) (uuid.UUID, error) {
	if strings.TrimSpace(vendorID) == "" {
		return uuid.Nil, apperrors.Validation("vendor is required")
	}
	cart := &models.Cart{
		UserID:       userID,
		VendorID:     vendorID,
		VendorName:   vendorName,
		DeliveryMode: models.DeliveryModeDelivery,
	}
	if err := r.carts.Create(ctx, cart); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return uuid.Nil, apperrors.Conflict("cart already exists for this vendor")
		}
		r.logger.Error("Failed to create cart", zap.String("user_id", userID), zap.String("vendor_id", vendorID), zap.Error(err))
		return uuid.Nil, apperrors.Persistence("failed to create cart", err)
	}
	return cart.ID, nil
}

// AddLine merges item into an existing line with the same product reference
// and name, or inserts a new line.
func (r *cartRepositoryImpl) AddLine(ctx context.Context, cartID uuid.UUID, item models.CartItem) error {
	if err := validateLine(item); err != nil {
		return err
	}

	existing, err := r.lines.FindByCart(ctx, cartID)
	if err != nil {
		r.logger.Error("Failed to load cart lines", zap.String("cart_id", cartID.String()), zap.Error(err))
		return apperrors.Persistence("failed to add item to cart", err)
	}
	for _, line := range existing {
		if line.SameProduct(item) {
			if err := r.lines.UpdateQuantity(ctx, line.ID, line.Quantity+item.Quantity); err != nil {
				r.logger.Error("Failed to merge cart line", zap.String("line_id", line.ID.String()), zap.Error(err))
				return apperrors.Persistence("failed to add item to cart", err)
			}
			return nil
		}
	}

	item.ID = uuid.Nil
	item.CartID = cartID
	if err := r.lines.Create(ctx, &item); err != nil {
		r.logger.Error("Failed to insert cart line", zap.String("cart_id", cartID.String()), zap.Error(err))
		return apperrors.Persistence("failed to add item to cart", err)
	}
	return nil
}

// SetLineQuantity treats quantity <= 0 as removal. A line in another
// customer's cart is reported as not found.
func (r *cartRepositoryImpl) SetLineQuantity(ctx context.Context, userID string, lineID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return r.RemoveLine(ctx, userID, lineID)
	}
	line, err := r.ownedLine(ctx, userID, lineID)
	if err != nil {
		return err
	}
	if line == nil {
		return apperrors.NotFound("cart item not found")
	}
	if err := r.lines.UpdateQuantity(ctx, lineID, quantity); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("cart item not found")
		}
		r.logger.Error("Failed to update cart line", zap.String("line_id", lineID.String()), zap.Error(err))
		return apperrors.Persistence("failed to update quantity", err)
	}
	return nil
}

// RemoveLine deletes the line and, when it was the last one, its cart.
// Removing an unknown line, or one owned by another customer, is a no-op.
func (r *cartRepositoryImpl) RemoveLine(ctx context.Context, userID string, lineID uuid.UUID) error {
	line, err := r.ownedLine(ctx, userID, lineID)
	if err != nil {
		return err
	}
	if line == nil {
		return nil
	}

	if err := r.lines.Delete(ctx, lineID); err != nil {
		r.logger.Error("Failed to delete cart line", zap.String("line_id", lineID.String()), zap.Error(err))
		return apperrors.Persistence("failed to remove item", err)
	}

	remaining, err := r.lines.FindByCart(ctx, line.CartID)
	if err != nil {
		// the next read prunes the cart if it is empty
		r.logger.Warn("Failed to check remaining cart lines", zap.String("cart_id", line.CartID.String()), zap.Error(err))
		return nil
	}
	if len(remaining) == 0 {
		if err := r.carts.Delete(ctx, line.CartID); err != nil {
			r.logger.Warn("Failed to delete emptied cart", zap.String("cart_id", line.CartID.String()), zap.Error(err))
		}
	}
	return nil
}

// ownedLine returns nil without error when the line does not exist or its
// cart belongs to someone other than userID.
func (r *cartRepositoryImpl) ownedLine(ctx context.Context, userID string, lineID uuid.UUID) (*models.CartItem, error) {
	if userID == "" {
		return nil, apperrors.Unauthenticated()
	}
	line, err := r.lines.FindByID(ctx, lineID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to load cart line", zap.String("line_id", lineID.String()), zap.Error(err))
		return nil, apperrors.Persistence("failed to load cart item", err)
	}

	cart, err := r.carts.FindByID(ctx, line.CartID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to load cart", zap.String("cart_id", line.CartID.String()), zap.Error(err))
		return nil, apperrors.Persistence("failed to load cart", err)
	}
	if cart.UserID != userID {
		r.logger.Warn("Cart line belongs to another customer",
			zap.String("line_id", lineID.String()),
			zap.String("user_id", userID))
		return nil, nil
	}
	return line, nil
}

// ClearCart deletes every cart of the customer, lines first.
func (r *cartRepositoryImpl) ClearCart(ctx context.Context, userID string) error {
	carts, err := r.carts.FindByUser(ctx, userID)
	if err != nil {
		r.logger.Error("Failed to load carts for clearing", zap.String("user_id", userID), zap.Error(err))
		return apperrors.Persistence("failed to clear cart", err)
	}
	for _, cart := range carts {
		if err := r.deleteCart(ctx, cart.ID); err != nil {
			return err
		}
	}
	return nil
}

// ClearVendorCart deletes one vendor cart. Clearing an absent cart is a no-op.
func (r *cartRepositoryImpl) ClearVendorCart(ctx context.Context, userID, vendorID string) error {
	cart, err := r.carts.FindByUserVendor(ctx, userID, vendorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		r.logger.Error("Failed to load cart for clearing", zap.String("user_id", userID), zap.String("vendor_id", vendorID), zap.Error(err))
		return apperrors.Persistence("failed to clear cart", err)
	}
	return r.deleteCart(ctx, cart.ID)
}

func (r *cartRepositoryImpl) SetDeliveryInfo(ctx context.Context, userID, mode string, address, instructions *string) error {
	if mode != models.DeliveryModeDelivery && mode != models.DeliveryModePickup {
		return apperrors.Validation("delivery mode must be delivery or pickup")
	}
	if err := r.carts.UpdateDelivery(ctx, userID, mode, address, instructions); err != nil {
		r.logger.Error("Failed to update delivery info", zap.String("user_id", userID), zap.Error(err))
		return apperrors.Persistence("failed to update delivery info", err)
	}
	return nil
}

func (r *cartRepositoryImpl) deleteCart(ctx context.Context, cartID uuid.UUID) error {
	if err := r.lines.DeleteByCart(ctx, cartID); err != nil {
		r.logger.Error("Failed to delete cart lines", zap.String("cart_id", cartID.String()), zap.Error(err))
		return apperrors.Persistence("failed to clear cart", err)
	}
	if err := r.carts.Delete(ctx, cartID); err != nil {
		r.logger.Error("Failed to delete cart", zap.String("cart_id", cartID.String()), zap.Error(err))
		return apperrors.Persistence("failed to clear cart", err)
	}
	return nil
}

// prune removes a cart left empty by an earlier partial failure.
func (r *cartRepositoryImpl) prune(ctx context.Context, cartID uuid.UUID) {
	if err := r.carts.Delete(ctx, cartID); err != nil {
		r.logger.Warn("Failed to prune empty cart", zap.String("cart_id", cartID.String()), zap.Error(err))
		return
	}
	r.logger.Debug("Pruned empty cart", zap.String("cart_id", cartID.String()))
}

func validateLine(item models.CartItem) error {
	var details []string
	if strings.TrimSpace(item.Name) == "" {
		details = append(details, "name is required")
	}
	if item.Quantity < 1 {
		details = append(details, "quantity must be at least 1")
	}
	if item.Price < 0 {
		details = append(details, "price must not be negative")
	}
	if len(details) > 0 {
		return apperrors.Validation("invalid cart item", details...)
	}
	return nil
}
