package repository_test

import (
	"context"
	"regexp"
	"storefront-service/models"
	"storefront-service/repository"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

var cartColumns = []string{"id", "user_id", "vendor_id", "vendor_name", "delivery_mode", "created_at", "updated_at"}
var itemColumns = []string{"id", "cart_id", "product_id", "name", "price", "quantity", "created_at", "updated_at"}

func TestGormCartStore_FindByUserVendor_LoadsItemsAndTotals(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormCartStore(gormDB)

	cartID := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "cart"`)).
		WillReturnRows(sqlmock.NewRows(cartColumns).
			AddRow(cartID.String(), "user-1", "vendor-1", "Pizza Place", models.DeliveryModeDelivery, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "cart_items"`)).
		WithArgs(cartID).
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow(uuid.NewString(), cartID.String(), "p-1", "Margherita", 1000, 2, now, now).
			AddRow(uuid.NewString(), cartID.String(), "p-2", "Cola", 500, 3, now, now))

	cart, err := store.FindByUserVendor(context.Background(), "user-1", "vendor-1")
	require.NoError(t, err)
	assert.Equal(t, cartID, cart.ID)
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, int64(3500), cart.Total)
	assert.Equal(t, 5, cart.ItemCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCartStore_FindByUserVendor_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormCartStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "cart"`)).
		WillReturnRows(sqlmock.NewRows(cartColumns))

	cart, err := store.FindByUserVendor(context.Background(), "user-1", "vendor-9")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Nil(t, cart)
}

func TestGormCartStore_FindByUser_Empty(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormCartStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "cart" WHERE user_id = $1 ORDER BY created_at ASC`)).
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows(cartColumns))

	carts, err := store.FindByUser(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Empty(t, carts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCartStore_Create(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormCartStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "cart"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	cart := &models.Cart{UserID: "user-1", VendorID: "vendor-1", VendorName: "Pizza Place", DeliveryMode: models.DeliveryModeDelivery}
	require.NoError(t, store.Create(context.Background(), cart))
	assert.NotEqual(t, uuid.Nil, cart.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCartStore_Delete(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormCartStore(gormDB)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "cart" WHERE id = $1`)).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, store.Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLineItemStore_UpdateQuantity_MissingLine(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormLineItemStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "cart_items" SET "quantity"=$1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.UpdateQuantity(context.Background(), uuid.New(), 4)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGormLineItemStore_Create(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormLineItemStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "cart_items"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	item := &models.CartItem{CartID: uuid.New(), ProductID: "p-1", Name: "Margherita", Price: 1000, Quantity: 1}
	require.NoError(t, store.Create(context.Background(), item))
	assert.NotEqual(t, uuid.Nil, item.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLineItemStore_DeleteByCart(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormLineItemStore(gormDB)

	cartID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "cart_items" WHERE cart_id = $1`)).
		WithArgs(cartID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	assert.NoError(t, store.DeleteByCart(context.Background(), cartID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOrderStore_CreateItems_WritesMetadata(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormOrderStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "order_items"`)).
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectCommit()

	orderID := uuid.New()
	items := []models.OrderItem{
		{OrderID: orderID, Name: "Package 1", Price: 30000, Quantity: 1, Metadata: &models.PackageLineMetadata{PackageOrderID: "a", PackageIndex: 0}},
		{OrderID: orderID, Name: "Package 2", Price: 30000, Quantity: 1, Metadata: &models.PackageLineMetadata{PackageOrderID: "b", PackageIndex: 1}},
	}
	require.NoError(t, store.CreateItems(context.Background(), items))
	assert.NotEqual(t, uuid.Nil, items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOrderStore_CreateItems_NoopOnEmpty(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormOrderStore(gormDB)

	assert.NoError(t, store.CreateItems(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOrderStore_FindByID_OrdersLinesByNumber(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormOrderStore(gormDB)

	orderID := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "vendor_id", "status", "total", "grand_total", "created_at"}).
			AddRow(orderID.String(), "user-1", "parcel", "pending", 90000, 90000, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items" WHERE "order_items"."order_id" = $1 ORDER BY created_at ASC, line_no ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "line_no", "name", "price", "quantity", "created_at"}).
			AddRow(uuid.NewString(), orderID.String(), 0, "Package 1 (small)", 30000, 1, now).
			AddRow(uuid.NewString(), orderID.String(), 1, "Package 2 (small)", 30000, 1, now).
			AddRow(uuid.NewString(), orderID.String(), 2, "Package 3 (small)", 30000, 1, now))

	order, err := store.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, order.Items, 3)
	for i, item := range order.Items {
		assert.Equal(t, i, item.LineNo)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOrderStore_FindByUser_NewestFirst(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormOrderStore(gormDB)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "vendor_id", "status", "total", "grand_total", "created_at"}).
		AddRow(uuid.NewString(), "user-1", "vendor-1", "pending", 3500, 3500, now).
		AddRow(uuid.NewString(), "user-1", "vendor-2", "pending", 900, 900, now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE user_id = $1 ORDER BY created_at DESC`)).
		WithArgs("user-1").
		WillReturnRows(rows)

	orders, err := store.FindByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, "vendor-1", orders[0].VendorID)
}

func TestGormPackageOrderStore_DeleteByOrder(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormPackageOrderStore(gormDB)

	orderID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "package_orders" WHERE order_id = $1`)).
		WithArgs(orderID).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	assert.NoError(t, store.DeleteByOrder(context.Background(), orderID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPackageOrderStore_FindByUser(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormPackageOrderStore(gormDB)

	orderID := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "order_id", "user_id", "package_index", "delivery_address", "price", "created_at"}).
		AddRow(uuid.NewString(), orderID.String(), "user-1", 0, "1 Main St", 30000, now).
		AddRow(uuid.NewString(), orderID.String(), "user-1", 1, "2 Side St", 30000, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "package_orders" WHERE user_id = $1 ORDER BY created_at DESC,package_index ASC`)).
		WithArgs("user-1").
		WillReturnRows(rows)

	packages, err := store.FindByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, packages, 2)
	assert.Equal(t, 1, packages[1].PackageIndex)
}
