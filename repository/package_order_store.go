package repository

import (
	"context"
	"storefront-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPackageOrderStore implements PackageOrderStore using GORM.
type GormPackageOrderStore struct {
	db *gorm.DB
}

// NewGormPackageOrderStore creates a new GormPackageOrderStore.
func NewGormPackageOrderStore(db *gorm.DB) PackageOrderStore {
	return &GormPackageOrderStore{db: db}
}

func (r *GormPackageOrderStore) CreateBatch(ctx context.Context, packages []models.PackageOrder) error {
	if len(packages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&packages).Error
}

func (r *GormPackageOrderStore) FindByUser(ctx context.Context, userID string) ([]models.PackageOrder, error) {
	var packages []models.PackageOrder
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("package_index ASC").
		Find(&packages).Error; err != nil {
		return nil, err
	}
	return packages, nil
}

func (r *GormPackageOrderStore) DeleteByOrder(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.PackageOrder{}).Error
}
