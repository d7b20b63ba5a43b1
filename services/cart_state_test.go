package services

import (
	"context"
	"storefront-service/models"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func burger(qty int) models.NewCartLine {
	return models.NewCartLine{VendorID: "vendor-a", VendorName: "Grill", ProductID: "p1", Name: "Burger", Price: 1000, Quantity: qty}
}

func newManager(t *testing.T, f *fixture, userID string) *CartStateManager {
	t.Helper()
	m := NewCartStateManager(userID, f.repo, zap.NewNop())
	require.NoError(t, m.Refresh(context.Background()))
	return m
}

func TestCartState_AddToCart(t *testing.T) {
	f := newFixture(t)
	m := newManager(t, f, "user-1")
	ctx := context.Background()

	res := m.AddToCart(ctx, burger(2))
	require.True(t, res.Success, res.Error)
	res = m.AddToCart(ctx, models.NewCartLine{VendorID: "vendor-a", ProductID: "p2", Name: "Fries", Price: 500, Quantity: 3})
	require.True(t, res.Success, res.Error)

	cart := m.Cart("vendor-a")
	require.NotNil(t, cart)
	assert.Equal(t, int64(3500), cart.Total)
	assert.Equal(t, 5, cart.ItemCount)

	global := m.Global()
	assert.Equal(t, models.GlobalCartID, global.ID)
	assert.Equal(t, []string{"vendor-a"}, global.VendorIDs)
	assert.Equal(t, 5, global.TotalItems)
	assert.Equal(t, int64(3500), global.TotalAmount)
	assert.False(t, m.SyncedAt().IsZero())
}

func TestCartState_DuplicateAddMerges(t *testing.T) {
	f := newFixture(t)
	m := newManager(t, f, "user-1")
	ctx := context.Background()

	require.True(t, m.AddToCart(ctx, burger(1)).Success)
	require.True(t, m.AddToCart(ctx, burger(2)).Success)

	cart := m.Cart("vendor-a")
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestCartState_ZeroQuantityRemovesLineAndEmptyCart(t *testing.T) {
	f := newFixture(t)
	m := newManager(t, f, "user-1")
	ctx := context.Background()
	require.True(t, m.AddToCart(ctx, burger(2)).Success)
	lineID := m.Cart("vendor-a").Items[0].ID

	res := m.UpdateQuantity(ctx, lineID, 0)
	require.True(t, res.Success, res.Error)

	assert.Nil(t, m.Cart("vendor-a"))
	assert.Empty(t, m.Carts())
	assert.Empty(t, m.Global().VendorIDs)

	stored, err := f.repo.GetAllCarts(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestCartState_RemoveFromCart(t *testing.T) {
	f := newFixture(t)
	m := newManager(t, f, "user-1")
	ctx := context.Background()
	require.True(t, m.AddToCart(ctx, burger(1)).Success)
	require.True(t, m.AddToCart(ctx, models.NewCartLine{VendorID: "vendor-b", ProductID: "t1", Name: "Tea", Price: 300, Quantity: 1}).Success)

	lineID := m.Cart("vendor-a").Items[0].ID
	require.True(t, m.RemoveFromCart(ctx, lineID).Success)

	assert.Nil(t, m.Cart("vendor-a"))
	assert.NotNil(t, m.Cart("vendor-b"))
	assert.Equal(t, int64(300), m.Global().TotalAmount)
}

func TestCartState_FailedPersistReconcilesToStore(t *testing.T) {
	f := newFixture(t)
	m := newManager(t, f, "user-1")
	ctx := context.Background()
	require.True(t, m.AddToCart(ctx, burger(1)).Success)

	f.lines.failCreate = true
	res := m.AddToCart(ctx, models.NewCartLine{VendorID: "vendor-a", ProductID: "p2", Name: "Fries", Price: 500, Quantity: 1})

	assert.False(t, res.Success)
	assert.Equal(t, "failed to add item to cart", res.Error)
	cart := m.Cart("vendor-a")
	require.NotNil(t, cart)
	assert.Len(t, cart.Items, 1, "optimistic line is dropped after reconcile")
}

func TestCartState_FailedPersistAndReconcileRestoresConfirmed(t *testing.T) {
	f := newFixture(t)
	m := newManager(t, f, "user-1")
	ctx := context.Background()
	require.True(t, m.AddToCart(ctx, burger(1)).Success)

	f.lines.failCreate = true
	f.carts.failFindByUser = true
	res := m.AddToCart(ctx, models.NewCartLine{VendorID: "vendor-b", ProductID: "t1", Name: "Tea", Price: 300, Quantity: 1})

	assert.False(t, res.Success)
	assert.Nil(t, m.Cart("vendor-b"))
	assert.Equal(t, []string{"vendor-a"}, m.Global().VendorIDs)
}

func TestCartState_WriteLandsButReadFailsMarksStale(t *testing.T) {
	f := newFixture(t)
	m := newManager(t, f, "user-1")
	ctx := context.Background()

	f.carts.failFindByUser = true
	res := m.AddToCart(ctx, burger(2))

	assert.False(t, res.Success)
	assert.Equal(t, "cart may be out of date", res.Error)
	assert.True(t, m.Stale())
	assert.Nil(t, m.Cart("vendor-a"), "no locally minted line ids survive")

	f.carts.failFindByUser = false
	require.True(t, m.AddToCart(ctx, burger(1)).Success)
	assert.False(t, m.Stale())
	cart := m.Cart("vendor-a")
	require.NotNil(t, cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestCartState_ReadRetriedAfterWrite(t *testing.T) {
	f := newFixture(t)
	m := newManager(t, f, "user-1")
	ctx := context.Background()

	f.carts.findByUserFailures = 1
	require.True(t, m.AddToCart(ctx, burger(2)).Success)
	assert.False(t, m.Stale())

	cart := m.Cart("vendor-a")
	require.NotNil(t, cart)
	stored, err := f.repo.GetCart(ctx, "user-1", "vendor-a")
	require.NoError(t, err)
	assert.Equal(t, stored.Items[0].ID, cart.Items[0].ID, "view carries the stored line id")

	require.True(t, m.UpdateQuantity(ctx, cart.Items[0].ID, 5).Success)
	assert.Equal(t, 5, m.Cart("vendor-a").Items[0].Quantity)
}

func TestCartState_CannotTouchAnotherCustomersLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newManager(t, f, "user-1")
	require.True(t, owner.AddToCart(ctx, burger(2)).Success)
	lineID := owner.Cart("vendor-a").Items[0].ID

	other := newManager(t, f, "user-2")
	res := other.UpdateQuantity(ctx, lineID, 7)
	assert.False(t, res.Success)
	assert.Equal(t, "cart item not found", res.Error)

	assert.True(t, other.UpdateQuantity(ctx, lineID, 0).Success)
	assert.True(t, other.RemoveFromCart(ctx, lineID).Success)
	assert.Empty(t, other.Carts())

	require.NoError(t, owner.Refresh(ctx))
	cart := owner.Cart("vendor-a")
	require.NotNil(t, cart, "owner's cart survives")
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestCartState_UpdateUnknownLine(t *testing.T) {
	f := newFixture(t)
	m := newManager(t, f, "user-1")

	res := m.UpdateQuantity(context.Background(), uuid.New(), 3)
	assert.False(t, res.Success)
	assert.Equal(t, "cart item not found", res.Error)
}

func TestCartState_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	m := NewCartStateManager("", f.repo, zap.NewNop())

	res := m.AddToCart(context.Background(), burger(1))
	assert.False(t, res.Success)
	assert.Equal(t, "unauthenticated", res.Error)
	assert.Error(t, m.Refresh(context.Background()))
}

func TestCartState_ClearCartAndDelivery(t *testing.T) {
	f := newFixture(t)
	m := newManager(t, f, "user-1")
	ctx := context.Background()
	require.True(t, m.AddToCart(ctx, burger(1)).Success)
	require.True(t, m.AddToCart(ctx, models.NewCartLine{VendorID: "vendor-b", ProductID: "t1", Name: "Tea", Price: 300, Quantity: 1}).Success)

	addr := "4 Mill Lane"
	res := m.SetDeliveryInfo(ctx, models.DeliveryInfoRequest{Mode: models.DeliveryModePickup, Address: &addr})
	require.True(t, res.Success, res.Error)
	for _, c := range m.Carts() {
		assert.Equal(t, models.DeliveryModePickup, c.DeliveryMode)
	}

	require.True(t, m.ClearCart(ctx).Success)
	assert.Empty(t, m.Carts())
	assert.Zero(t, m.Global().TotalAmount)
}

func TestCartState_ConcurrentMutationsAreSerialized(t *testing.T) {
	f := newFixture(t)
	m := newManager(t, f, "user-1")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddToCart(ctx, burger(1))
		}()
	}
	wg.Wait()

	cart := m.Cart("vendor-a")
	require.NotNil(t, cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 10, cart.Items[0].Quantity)
}

func TestBuildGlobalView_SkipsEmptyCarts(t *testing.T) {
	carts := []models.Cart{
		{VendorID: "a", Items: []models.CartItem{{Name: "x", Price: 200, Quantity: 2}}},
		{VendorID: "b"},
		{VendorID: "c", Items: []models.CartItem{{Name: "y", Price: 100, Quantity: 1}}},
	}

	view := BuildGlobalView(carts)
	assert.Equal(t, []string{"a", "c"}, view.VendorIDs)
	assert.Equal(t, 3, view.TotalItems)
	assert.Equal(t, int64(500), view.TotalAmount)
	assert.Len(t, view.Items, 2)

	empty := BuildGlobalView(nil)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, models.GlobalCartID, empty.ID)
}
