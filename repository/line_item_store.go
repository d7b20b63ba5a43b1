package repository

import (
	"context"
	"storefront-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLineItemStore implements LineItemStore using GORM.
type GormLineItemStore struct {
	db *gorm.DB
}

// NewGormLineItemStore creates a new GormLineItemStore.
func NewGormLineItemStore(db *gorm.DB) LineItemStore {
	return &GormLineItemStore{db: db}
}

func (r *GormLineItemStore) FindByID(ctx context.Context, lineID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", lineID).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *GormLineItemStore) FindByCart(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormLineItemStore) Create(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *GormLineItemStore) UpdateQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", lineID).
		Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormLineItemStore) Delete(ctx context.Context, lineID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", lineID).Delete(&models.CartItem{}).Error
}

func (r *GormLineItemStore) DeleteByCart(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}
