package repository

import (
	"context"
	"storefront-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderStore implements OrderStore using GORM.
type GormOrderStore struct {
	db *gorm.DB
}

// NewGormOrderStore creates a new GormOrderStore.
func NewGormOrderStore(db *gorm.DB) OrderStore {
	return &GormOrderStore{db: db}
}

func (r *GormOrderStore) Create(ctx context.Context, order *models.Order) error {
	return translate(r.db.WithContext(ctx).Omit("Items").Create(order).Error)
}

// orderedOrderItems breaks created_at ties from one batch insert by line number.
func orderedOrderItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, line_no ASC")
}

func (r *GormOrderStore) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *GormOrderStore) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", orderedOrderItems).
		First(&order, "id = ?", orderID).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *GormOrderStore) FindByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", orderedOrderItems).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *GormOrderStore) FindByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormOrderStore) DeleteItems(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error
}

func (r *GormOrderStore) Delete(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", orderID).Delete(&models.Order{}).Error
}
