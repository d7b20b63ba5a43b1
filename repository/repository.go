package repository

import (
	"context"
	"errors"
	"storefront-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a row addressed by id or key does not exist.
// Callers treat it as a normal empty result.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique key (customer+vendor cart, idempotency
// key) already exists.
var ErrDuplicate = errors.New("duplicate record")

// CartStore persists the "cart" relation.
type CartStore interface {
	FindByID(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
	FindByUserVendor(ctx context.Context, userID, vendorID string) (*models.Cart, error)
	FindByUser(ctx context.Context, userID string) ([]models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	UpdateDelivery(ctx context.Context, userID, mode string, address, instructions *string) error
	Delete(ctx context.Context, cartID uuid.UUID) error
}

// LineItemStore persists the "cart_items" relation, addressed by opaque line ids.
type LineItemStore interface {
	FindByID(ctx context.Context, lineID uuid.UUID) (*models.CartItem, error)
	FindByCart(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	UpdateQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error
	Delete(ctx context.Context, lineID uuid.UUID) error
	DeleteByCart(ctx context.Context, cartID uuid.UUID) error
}

// OrderStore persists the "orders" and "order_items" relations.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error)
	FindByUser(ctx context.Context, userID string) ([]models.Order, error)
	DeleteItems(ctx context.Context, orderID uuid.UUID) error
	Delete(ctx context.Context, orderID uuid.UUID) error
}

// PackageOrderStore persists the "package_orders" relation.
type PackageOrderStore interface {
	CreateBatch(ctx context.Context, packages []models.PackageOrder) error
	FindByUser(ctx context.Context, userID string) ([]models.PackageOrder, error)
	DeleteByOrder(ctx context.Context, orderID uuid.UUID) error
}

// Stores bundles every relation store used by the services.
type Stores struct {
	Carts    CartStore
	Lines    LineItemStore
	Orders   OrderStore
	Packages PackageOrderStore
}

// NewGormStores wires every store against one gorm connection.
func NewGormStores(db *gorm.DB) Stores {
	return Stores{
		Carts:    NewGormCartStore(db),
		Lines:    NewGormLineItemStore(db),
		Orders:   NewGormOrderStore(db),
		Packages: NewGormPackageOrderStore(db),
	}
}

// Models lists every persisted model, for AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.PackageOrder{},
	}
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
