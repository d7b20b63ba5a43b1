package services

import (
	"context"
	"errors"
	"storefront-service/models"
	"storefront-service/repository"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errStoreDown = errors.New("store unavailable")

// ---- failure-injecting store wrappers ----

type flakyCarts struct {
	repository.CartStore
	failFindByUser bool
	// findByUserFailures fails that many FindByUser calls, then recovers
	findByUserFailures int
	failDelete         bool
}

func (f *flakyCarts) FindByUser(ctx context.Context, userID string) ([]models.Cart, error) {
	if f.failFindByUser {
		return nil, errStoreDown
	}
	if f.findByUserFailures > 0 {
		f.findByUserFailures--
		return nil, errStoreDown
	}
	return f.CartStore.FindByUser(ctx, userID)
}

func (f *flakyCarts) Delete(ctx context.Context, cartID uuid.UUID) error {
	if f.failDelete {
		return errStoreDown
	}
	return f.CartStore.Delete(ctx, cartID)
}

type flakyLines struct {
	repository.LineItemStore
	failCreate       bool
	failDeleteByCart bool
}

func (f *flakyLines) Create(ctx context.Context, item *models.CartItem) error {
	if f.failCreate {
		return errStoreDown
	}
	return f.LineItemStore.Create(ctx, item)
}

func (f *flakyLines) DeleteByCart(ctx context.Context, cartID uuid.UUID) error {
	if f.failDeleteByCart {
		return errStoreDown
	}
	return f.LineItemStore.DeleteByCart(ctx, cartID)
}

type flakyOrders struct {
	repository.OrderStore
	failCreate      bool
	failCreateItems bool
	failDelete      bool
	deleted         []uuid.UUID
}

func (f *flakyOrders) Create(ctx context.Context, order *models.Order) error {
	if f.failCreate {
		return errStoreDown
	}
	return f.OrderStore.Create(ctx, order)
}

func (f *flakyOrders) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if f.failCreateItems {
		return errStoreDown
	}
	return f.OrderStore.CreateItems(ctx, items)
}

func (f *flakyOrders) Delete(ctx context.Context, orderID uuid.UUID) error {
	f.deleted = append(f.deleted, orderID)
	if f.failDelete {
		return errStoreDown
	}
	return f.OrderStore.Delete(ctx, orderID)
}

type flakyPackages struct {
	repository.PackageOrderStore
	failCreateBatch bool
	deletedOrders   []uuid.UUID
}

func (f *flakyPackages) CreateBatch(ctx context.Context, packages []models.PackageOrder) error {
	if f.failCreateBatch {
		return errStoreDown
	}
	return f.PackageOrderStore.CreateBatch(ctx, packages)
}

func (f *flakyPackages) DeleteByOrder(ctx context.Context, orderID uuid.UUID) error {
	f.deletedOrders = append(f.deletedOrders, orderID)
	return f.PackageOrderStore.DeleteByOrder(ctx, orderID)
}

// ---- recording publisher ----

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.OrderCreatedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := event.(models.OrderCreatedEvent); ok {
		p.events = append(p.events, e)
	}
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// ---- fixtures ----

type fixture struct {
	stores repository.Stores
	carts  *flakyCarts
	lines  *flakyLines
	orders *flakyOrders
	pkgs   *flakyPackages
	repo   CartRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := repository.NewMemoryStore().Stores()
	f := &fixture{
		stores: stores,
		carts:  &flakyCarts{CartStore: stores.Carts},
		lines:  &flakyLines{LineItemStore: stores.Lines},
		orders: &flakyOrders{OrderStore: stores.Orders},
		pkgs:   &flakyPackages{PackageOrderStore: stores.Packages},
	}
	f.repo = NewCartRepository(f.carts, f.lines, zap.NewNop())
	return f
}

// seedCart creates a vendor cart with the given lines straight through the repository.
func (f *fixture) seedCart(t *testing.T, userID, vendorID string, lines ...models.CartItem) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id, err := f.repo.CreateCart(ctx, userID, vendorID, vendorID+" store")
	require.NoError(t, err)
	for _, l := range lines {
		require.NoError(t, f.repo.AddLine(ctx, id, l))
	}
	return id
}

func line(productID, name string, price int64, qty int) models.CartItem {
	return models.CartItem{ProductID: productID, Name: name, Price: price, Quantity: qty}
}
