package services

import (
	"context"
	"net/http"
	"storefront-service/apperrors"
	"storefront-service/models"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartStateManager holds one customer's open carts in memory. Every mutation
// is applied locally first, then persisted, then the whole state is replaced
// by a fresh read from the repository whether the write succeeded or not.
type CartStateManager struct {
	userID string
	repo   CartRepository
	logger *zap.Logger

	// opMu applies mutations from this session in invocation order.
	opMu sync.Mutex

	mu        sync.RWMutex
	carts     []models.Cart
	confirmed []models.Cart
	global    models.GlobalCartView
	syncedAt  time.Time
	// stale is set when a write landed but the follow-up read did not
	stale bool
}

// errOutOfDate reports a write that succeeded while the local view could not be re-read.
var errOutOfDate = apperrors.New(apperrors.KindPersistence, http.StatusServiceUnavailable, "cart may be out of date", nil)

// NewCartStateManager creates an empty manager for userID. Call Refresh to load state.
func NewCartStateManager(userID string, repo CartRepository, logger *zap.Logger) *CartStateManager {
	return &CartStateManager{
		userID: userID,
		repo:   repo,
		logger: logger.With(zap.String("user_id", userID)),
		global: BuildGlobalView(nil),
	}
}

// Carts returns a copy of the current per-vendor carts.
func (m *CartStateManager) Carts() []models.Cart {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneCarts(m.carts)
}

// Cart returns the current cart for vendorID, or nil.
func (m *CartStateManager) Cart(vendorID string) *models.Cart {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.carts {
		if c.VendorID == vendorID {
			cp := cloneCarts([]models.Cart{c})[0]
			return &cp
		}
	}
	return nil
}

// Global returns the merged view across all vendor carts.
func (m *CartStateManager) Global() models.GlobalCartView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.global
}

// Stale reports whether the local view may lag the repository.
func (m *CartStateManager) Stale() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stale
}

// SyncedAt is the time of the last successful read from the repository.
func (m *CartStateManager) SyncedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.syncedAt
}

// Refresh replaces local state with the repository's.
func (m *CartStateManager) Refresh(ctx context.Context) error {
	if m.userID == "" {
		return apperrors.Unauthenticated()
	}
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.reconcile(ctx)
}

func (m *CartStateManager) AddToCart(ctx context.Context, line models.NewCartLine) models.MutationResult {
	return m.mutate(ctx, "add_to_cart",
		func(carts []models.Cart) []models.Cart { return applyAdd(carts, m.userID, line) },
		func(ctx context.Context) error { return m.persistAdd(ctx, line) },
	)
}

func (m *CartStateManager) UpdateQuantity(ctx context.Context, lineID uuid.UUID, quantity int) models.MutationResult {
	return m.mutate(ctx, "update_quantity",
		func(carts []models.Cart) []models.Cart { return applyQuantity(carts, lineID, quantity) },
		func(ctx context.Context) error { return m.repo.SetLineQuantity(ctx, m.userID, lineID, quantity) },
	)
}

func (m *CartStateManager) RemoveFromCart(ctx context.Context, lineID uuid.UUID) models.MutationResult {
	return m.mutate(ctx, "remove_from_cart",
		func(carts []models.Cart) []models.Cart { return applyQuantity(carts, lineID, 0) },
		func(ctx context.Context) error { return m.repo.RemoveLine(ctx, m.userID, lineID) },
	)
}

func (m *CartStateManager) ClearCart(ctx context.Context) models.MutationResult {
	return m.mutate(ctx, "clear_cart",
		func([]models.Cart) []models.Cart { return nil },
		func(ctx context.Context) error { return m.repo.ClearCart(ctx, m.userID) },
	)
}

func (m *CartStateManager) SetDeliveryInfo(ctx context.Context, req models.DeliveryInfoRequest) models.MutationResult {
	return m.mutate(ctx, "set_delivery_info",
		func(carts []models.Cart) []models.Cart {
			return applyDelivery(carts, req.Mode, req.Address, req.Instructions)
		},
		func(ctx context.Context) error {
			return m.repo.SetDeliveryInfo(ctx, m.userID, req.Mode, req.Address, req.Instructions)
		},
	)
}

func (m *CartStateManager) mutate(
	ctx context.Context,
	op string,
	optimistic func([]models.Cart) []models.Cart,
	persist func(context.Context) error,
) models.MutationResult {
	if m.userID == "" {
		return failed(apperrors.Unauthenticated())
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.Stale() {
		if err := m.reconcile(ctx); err != nil {
			m.logger.Warn("Stale cart could not be refreshed", zap.String("op", op), zap.Error(err))
		}
	}

	m.mu.Lock()
	m.carts = optimistic(m.carts)
	m.global = BuildGlobalView(m.carts)
	m.mu.Unlock()

	persistErr := persist(ctx)
	if persistErr != nil {
		m.logger.Warn("Cart mutation failed", zap.String("op", op), zap.Error(persistErr))
	}

	reconcileErr := m.reconcile(ctx)
	if reconcileErr != nil && persistErr == nil {
		reconcileErr = m.reconcile(ctx)
	}
	if reconcileErr != nil {
		// never keep optimistic lines: their ids exist only locally
		m.restoreConfirmed()
		m.logger.Warn("Cart reconcile failed", zap.String("op", op), zap.Error(reconcileErr))
	}

	switch {
	case persistErr != nil:
		return failed(persistErr)
	case reconcileErr != nil:
		m.mu.Lock()
		m.stale = true
		m.mu.Unlock()
		return failed(errOutOfDate)
	}
	return models.MutationResult{Success: true}
}

// persistAdd creates the vendor cart on first use, then adds the line.
func (m *CartStateManager) persistAdd(ctx context.Context, line models.NewCartLine) error {
	cart, err := m.repo.GetCart(ctx, m.userID, line.VendorID)
	if err != nil {
		return err
	}

	if cart == nil {
		id, err := m.repo.CreateCart(ctx, m.userID, line.VendorID, line.VendorName)
		switch {
		case err == nil:
			cart = &models.Cart{ID: id}
		case apperrors.IsKind(err, apperrors.KindConflict):
			// another session created it first
			if cart, err = m.repo.GetCart(ctx, m.userID, line.VendorID); err != nil {
				return err
			}
			if cart == nil {
				if id, err = m.repo.CreateCart(ctx, m.userID, line.VendorID, line.VendorName); err != nil {
					return err
				}
				cart = &models.Cart{ID: id}
			}
		default:
			return err
		}
	}

	return m.repo.AddLine(ctx, cart.ID, models.CartItem{
		ProductID:           line.ProductID,
		Name:                line.Name,
		Price:               line.Price,
		Quantity:            line.Quantity,
		Image:               line.Image,
		SpecialInstructions: line.SpecialInstructions,
	})
}

func (m *CartStateManager) reconcile(ctx context.Context) error {
	carts, err := m.repo.GetAllCarts(ctx, m.userID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts = withoutEmpty(cloneCarts(carts))
	m.global = BuildGlobalView(m.carts)
	m.confirmed = cloneCarts(m.carts)
	m.syncedAt = time.Now()
	m.stale = false
	return nil
}

func (m *CartStateManager) restoreConfirmed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts = cloneCarts(m.confirmed)
	m.global = BuildGlobalView(m.carts)
}

func failed(err error) models.MutationResult {
	return models.MutationResult{Success: false, Error: apperrors.From(err).Message}
}
