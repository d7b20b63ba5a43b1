package services

import (
	"context"
	"errors"
	"storefront-service/apperrors"
	"storefront-service/cache"
	"storefront-service/events"
	"storefront-service/models"
	"storefront-service/repository"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const EventOrderCreated = "order.created"

// OrderService converts carts into persisted orders and reads them back.
type OrderService interface {
	Convert(ctx context.Context, userID string, cart *models.Cart, meta models.OrderMeta) (*models.Order, error)
	Checkout(ctx context.Context, userID, vendorID string, meta models.OrderMeta) (*models.Order, error)
	GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, userID string) ([]models.Order, error)
}

type orderServiceImpl struct {
	orders      repository.OrderStore
	carts       CartRepository
	idempotency cache.IdempotencyStore
	publisher   events.Publisher
	defaultETA  time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orders repository.OrderStore,
	carts CartRepository,
	idempotency cache.IdempotencyStore,
	publisher events.Publisher,
	defaultETA time.Duration,
	logger *zap.Logger,
) OrderService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if idempotency == nil {
		idempotency = cache.NewMemoryIdempotencyStore(24 * time.Hour)
	}
	return &orderServiceImpl{
		orders:      orders,
		carts:       carts,
		idempotency: idempotency,
		publisher:   publisher,
		defaultETA:  defaultETA,
		now:         time.Now,
		logger:      logger,
	}
}

// Checkout loads the customer's cart for vendorID and converts it.
func (s *orderServiceImpl) Checkout(ctx context.Context, userID, vendorID string, meta models.OrderMeta) (*models.Order, error) {
	if userID == "" {
		return nil, apperrors.Unauthenticated()
	}
	// a retried key must resolve before the cart lookup: the cart is gone after the first success
	if order, err := s.lookupIdempotent(ctx, userID, meta.IdempotencyKey); order != nil || err != nil {
		return order, err
	}
	cart, err := s.carts.GetCart(ctx, userID, vendorID)
	if err != nil {
		return nil, err
	}
	return s.Convert(ctx, userID, cart, meta)
}

// Convert persists the order, then its lines, then clears the source cart.
// The cart must belong to userID.
// A failure to clear the cart is logged and does not fail the conversion.
func (s *orderServiceImpl) Convert(ctx context.Context, userID string, cart *models.Cart, meta models.OrderMeta) (*models.Order, error) {
	if userID == "" {
		return nil, apperrors.Unauthenticated()
	}
	if order, err := s.lookupIdempotent(ctx, userID, meta.IdempotencyKey); order != nil || err != nil {
		return order, err
	}
	if cart.IsEmpty() {
		return nil, apperrors.ErrEmptyCart
	}
	if cart.UserID != userID {
		s.logger.Warn("Refusing to convert a cart owned by another customer",
			zap.String("user_id", userID),
			zap.String("cart_id", cart.ID.String()))
		return nil, apperrors.NotFound("cart not found")
	}

	key := idempotencyKey(userID, meta.IdempotencyKey)
	if key != "" {
		acquired, err := s.idempotency.Reserve(ctx, key)
		if err != nil {
			s.logger.Warn("Idempotency reserve failed, continuing", zap.Error(err))
		} else if !acquired {
			return s.resolveHeldKey(ctx, userID, key)
		}
	}

	order := s.buildOrder(userID, cart, meta)
	items := orderItemsFromCart(order.ID, cart.Items)

	err := newSaga("convert_cart", s.logger).
		Step("create_order",
			func(ctx context.Context) error { return s.orders.Create(ctx, order) },
			func(ctx context.Context) error { return removeOrder(ctx, s.orders, order.ID) },
		).
		Step("create_order_items",
			func(ctx context.Context) error { return s.orders.CreateItems(ctx, items) },
			nil,
		).
		Execute(ctx, "failed to create order")
	if err != nil {
		if key != "" {
			_ = s.idempotency.Release(context.WithoutCancel(ctx), key)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			if existing, lookupErr := s.lookupIdempotent(ctx, userID, meta.IdempotencyKey); existing != nil || lookupErr != nil {
				return existing, lookupErr
			}
			return nil, apperrors.Conflict("checkout already in progress")
		}
		return nil, err
	}
	order.Items = items

	if key != "" {
		if err := s.idempotency.Complete(ctx, key, order.ID.String()); err != nil {
			s.logger.Warn("Failed to record idempotency key", zap.String("order_id", order.ID.String()), zap.Error(err))
		}
	}

	if err := s.carts.ClearVendorCart(ctx, userID, cart.VendorID); err != nil {
		s.logger.Error("Order created but cart was not cleared",
			zap.String("order_id", order.ID.String()),
			zap.String("user_id", userID),
			zap.String("vendor_id", cart.VendorID),
			zap.Error(err),
		)
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID),
		zap.Int64("grand_total", order.GrandTotal),
	)
	publishOrderCreated(ctx, s.publisher, s.logger, order, 0)

	return order, nil
}

func (s *orderServiceImpl) GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*models.Order, error) {
	if userID == "" {
		return nil, apperrors.Unauthenticated()
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && order.UserID != userID) {
		return nil, apperrors.NotFound("order not found")
	}
	if err != nil {
		s.logger.Error("Failed to load order", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, apperrors.Persistence("failed to load order", err)
	}
	return order, nil
}

func (s *orderServiceImpl) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	if userID == "" {
		return nil, apperrors.Unauthenticated()
	}
	orders, err := s.orders.FindByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.Persistence("failed to load orders", err)
	}
	return orders, nil
}

func (s *orderServiceImpl) buildOrder(userID string, cart *models.Cart, meta models.OrderMeta) *models.Order {
	cart.Recalculate()

	fee := int64(0)
	switch {
	case meta.DeliveryFee != nil:
		fee = *meta.DeliveryFee
	case cart.DeliveryFee != nil:
		fee = *cart.DeliveryFee
	}
	tax := int64(0)
	if meta.Tax != nil {
		tax = *meta.Tax
	}
	grandTotal := cart.Total + fee + tax
	if meta.GrandTotal != nil {
		grandTotal = *meta.GrandTotal
	}
	eta := s.now().Add(s.defaultETA)
	if meta.EstimatedDelivery != nil {
		eta = *meta.EstimatedDelivery
	}

	method := meta.DeliveryMethod
	if method == "" {
		method = cart.DeliveryMode
	}
	address := meta.DeliveryAddress
	if address == "" && cart.DeliveryAddress != nil {
		address = *cart.DeliveryAddress
	}
	instructions := meta.DeliveryInstructions
	if instructions == "" && cart.DeliveryInstructions != nil {
		instructions = *cart.DeliveryInstructions
	}

	order := &models.Order{
		ID:                   uuid.New(),
		UserID:               userID,
		VendorID:             cart.VendorID,
		VendorName:           cart.VendorName,
		Status:               models.OrderStatusPending,
		Total:                cart.Total,
		DeliveryFee:          fee,
		Tax:                  tax,
		GrandTotal:           grandTotal,
		DeliveryMethod:       method,
		DeliveryAddress:      address,
		DeliveryInstructions: instructions,
		PaymentMethod:        meta.PaymentMethod,
		PaymentStatus:        models.PaymentStatusPending,
		EstimatedDelivery:    eta,
	}
	if meta.IdempotencyKey != "" {
		k := meta.IdempotencyKey
		order.IdempotencyKey = &k
	}
	return order
}

func orderItemsFromCart(orderID uuid.UUID, lines []models.CartItem) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for i, line := range lines {
		var productID *string
		if line.ProductID != "" {
			p := line.ProductID
			productID = &p
		}
		items = append(items, models.OrderItem{
			ID:                  uuid.New(),
			OrderID:             orderID,
			LineNo:              i,
			ProductID:           productID,
			Name:                line.Name,
			Price:               line.Price,
			Quantity:            line.Quantity,
			SpecialInstructions: line.SpecialInstructions,
		})
	}
	return items
}

// lookupIdempotent returns the order an earlier request with the same key created.
func (s *orderServiceImpl) lookupIdempotent(ctx context.Context, userID, key string) (*models.Order, error) {
	if key == "" {
		return nil, nil
	}
	order, err := s.orders.FindByIdempotencyKey(ctx, userID, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Idempotency lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.Persistence("failed to create order", err)
	}
	s.logger.Info("Returning existing order for idempotency key", zap.String("order_id", order.ID.String()))
	return order, nil
}

func (s *orderServiceImpl) resolveHeldKey(ctx context.Context, userID, key string) (*models.Order, error) {
	val, err := s.idempotency.Lookup(ctx, key)
	if err != nil || val == "" || val == cache.PendingMarker {
		return nil, apperrors.Conflict("checkout already in progress")
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return nil, apperrors.Conflict("checkout already in progress")
	}
	return s.GetOrder(ctx, userID, id)
}

// removeOrder deletes any lines written for the order before the order itself.
func removeOrder(ctx context.Context, orders repository.OrderStore, orderID uuid.UUID) error {
	if err := orders.DeleteItems(ctx, orderID); err != nil {
		return err
	}
	return orders.Delete(ctx, orderID)
}

func publishOrderCreated(ctx context.Context, publisher events.Publisher, logger *zap.Logger, order *models.Order, packages int) {
	event := models.OrderCreatedEvent{
		EventType:  EventOrderCreated,
		OrderID:    order.ID.String(),
		UserID:     order.UserID,
		VendorID:   order.VendorID,
		GrandTotal: order.GrandTotal,
		ItemCount:  len(order.Items),
		Packages:   packages,
		Timestamp:  time.Now(),
	}
	if err := publisher.Publish(ctx, order.UserID, event); err != nil {
		logger.Warn("Failed to publish order event", zap.String("order_id", event.OrderID), zap.Error(err))
	}
}

func idempotencyKey(userID, key string) string {
	if key == "" {
		return ""
	}
	return userID + ":" + key
}
