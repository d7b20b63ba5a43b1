package repository_test

import (
	"context"
	"storefront-service/models"
	"storefront-service/repository"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CartLifecycle(t *testing.T) {
	ctx := context.Background()
	stores := repository.NewMemoryStore().Stores()

	cart := &models.Cart{UserID: "user-1", VendorID: "vendor-1", VendorName: "Pizza Place"}
	require.NoError(t, stores.Carts.Create(ctx, cart))
	assert.Equal(t, models.DeliveryModeDelivery, cart.DeliveryMode)

	err := stores.Carts.Create(ctx, &models.Cart{UserID: "user-1", VendorID: "vendor-1"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	require.NoError(t, stores.Lines.Create(ctx, &models.CartItem{CartID: cart.ID, ProductID: "p-1", Name: "Margherita", Price: 1000, Quantity: 2}))
	require.NoError(t, stores.Lines.Create(ctx, &models.CartItem{CartID: cart.ID, ProductID: "p-2", Name: "Cola", Price: 500, Quantity: 3}))

	got, err := stores.Carts.FindByUserVendor(ctx, "user-1", "vendor-1")
	require.NoError(t, err)
	assert.Equal(t, "Margherita", got.Items[0].Name)
	assert.Equal(t, int64(3500), got.Total)
	assert.Equal(t, 5, got.ItemCount)

	require.NoError(t, stores.Carts.Delete(ctx, cart.ID))
	_, err = stores.Carts.FindByID(ctx, cart.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	lines, err := stores.Lines.FindByCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestMemoryStore_LineRequiresCart(t *testing.T) {
	stores := repository.NewMemoryStore().Stores()
	err := stores.Lines.Create(context.Background(), &models.CartItem{CartID: uuid.New(), Name: "orphan", Quantity: 1})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMemoryStore_UpdateDeliveryAppliesToAllCarts(t *testing.T) {
	ctx := context.Background()
	stores := repository.NewMemoryStore().Stores()
	require.NoError(t, stores.Carts.Create(ctx, &models.Cart{UserID: "user-1", VendorID: "a"}))
	require.NoError(t, stores.Carts.Create(ctx, &models.Cart{UserID: "user-1", VendorID: "b"}))
	require.NoError(t, stores.Carts.Create(ctx, &models.Cart{UserID: "user-2", VendorID: "a"}))

	addr := "12 Harbour Rd"
	require.NoError(t, stores.Carts.UpdateDelivery(ctx, "user-1", models.DeliveryModePickup, &addr, nil))

	carts, err := stores.Carts.FindByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, carts, 2)
	for _, c := range carts {
		assert.Equal(t, models.DeliveryModePickup, c.DeliveryMode)
		assert.Equal(t, addr, *c.DeliveryAddress)
	}
	other, err := stores.Carts.FindByUserVendor(ctx, "user-2", "a")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryModeDelivery, other.DeliveryMode)
}

func TestMemoryStore_OrdersAndIdempotency(t *testing.T) {
	ctx := context.Background()
	stores := repository.NewMemoryStore().Stores()

	key := "checkout-1"
	first := &models.Order{UserID: "user-1", VendorID: "v", Total: 100, GrandTotal: 100, IdempotencyKey: &key}
	require.NoError(t, stores.Orders.Create(ctx, first))
	assert.Equal(t, models.OrderStatusPending, first.Status)

	err := stores.Orders.Create(ctx, &models.Order{UserID: "user-1", VendorID: "v", IdempotencyKey: &key})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	require.NoError(t, stores.Orders.CreateItems(ctx, []models.OrderItem{{OrderID: first.ID, Name: "x", Price: 100, Quantity: 1}}))
	found, err := stores.Orders.FindByIdempotencyKey(ctx, "user-1", key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.Len(t, found.Items, 1)

	second := &models.Order{UserID: "user-1", VendorID: "w"}
	require.NoError(t, stores.Orders.Create(ctx, second))
	orders, err := stores.Orders.FindByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, orders[0].ID)

	require.NoError(t, stores.Orders.Delete(ctx, first.ID))
	_, err = stores.Orders.FindByID(ctx, first.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stores := repository.NewMemoryStore().Stores()

	_, err := stores.Carts.FindByUser(ctx, "user-1")
	assert.ErrorIs(t, err, context.Canceled)
}
