package repository

import (
	"context"
	"storefront-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCartStore implements CartStore using GORM.
type GormCartStore struct {
	db *gorm.DB
}

// NewGormCartStore creates a new GormCartStore.
func NewGormCartStore(db *gorm.DB) CartStore {
	return &GormCartStore{db: db}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

func (r *GormCartStore) FindByID(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		First(&cart, "id = ?", cartID).Error; err != nil {
		return nil, translate(err)
	}
	cart.Recalculate()
	return &cart, nil
}

func (r *GormCartStore) FindByUserVendor(ctx context.Context, userID, vendorID string) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("user_id = ? AND vendor_id = ?", userID, vendorID).
		First(&cart).Error; err != nil {
		return nil, translate(err)
	}
	cart.Recalculate()
	return &cart, nil
}

func (r *GormCartStore) FindByUser(ctx context.Context, userID string) ([]models.Cart, error) {
	var carts []models.Cart
	if err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&carts).Error; err != nil {
		return nil, err
	}
	for i := range carts {
		carts[i].Recalculate()
	}
	return carts, nil
}

func (r *GormCartStore) Create(ctx context.Context, cart *models.Cart) error {
	return translate(r.db.WithContext(ctx).Omit("Items").Create(cart).Error)
}

func (r *GormCartStore) UpdateDelivery(ctx context.Context, userID, mode string, address, instructions *string) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"delivery_mode":         mode,
			"delivery_address":      address,
			"delivery_instructions": instructions,
		}).Error
}

func (r *GormCartStore) Delete(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", cartID).Delete(&models.Cart{}).Error
}
