package repository

import (
	"context"
	"sort"
	"storefront-service/models"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps every relation in process memory. It backs STORE_DRIVER=memory
// and the service tests.
type MemoryStore struct {
	mu         sync.RWMutex
	seq        int64
	carts      map[uuid.UUID]memRow[models.Cart]
	lines      map[uuid.UUID]memRow[models.CartItem]
	orders     map[uuid.UUID]memRow[models.Order]
	orderItems map[uuid.UUID]memRow[models.OrderItem]
	packages   map[uuid.UUID]memRow[models.PackageOrder]
}

type memRow[T any] struct {
	seq int64
	val T
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:      make(map[uuid.UUID]memRow[models.Cart]),
		lines:      make(map[uuid.UUID]memRow[models.CartItem]),
		orders:     make(map[uuid.UUID]memRow[models.Order]),
		orderItems: make(map[uuid.UUID]memRow[models.OrderItem]),
		packages:   make(map[uuid.UUID]memRow[models.PackageOrder]),
	}
}

// Stores exposes the memory store through the relation interfaces.
func (m *MemoryStore) Stores() Stores {
	return Stores{
		Carts:    &memoryCartStore{m},
		Lines:    &memoryLineItemStore{m},
		Orders:   &memoryOrderStore{m},
		Packages: &memoryPackageOrderStore{m},
	}
}

func (m *MemoryStore) next() int64 {
	m.seq++
	return m.seq
}

// sortedValues returns the rows matching keep, in insertion order.
func sortedValues[T any](rows map[uuid.UUID]memRow[T], keep func(T) bool) []T {
	matched := make([]memRow[T], 0)
	for _, r := range rows {
		if keep(r.val) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })
	out := make([]T, len(matched))
	for i, r := range matched {
		out[i] = r.val
	}
	return out
}

// cartWithItems must be called with at least a read lock held.
func (m *MemoryStore) cartWithItems(cart models.Cart) models.Cart {
	cart.Items = sortedValues(m.lines, func(i models.CartItem) bool { return i.CartID == cart.ID })
	cart.Recalculate()
	return cart
}

type memoryCartStore struct{ m *MemoryStore }

func (s *memoryCartStore) FindByID(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	row, ok := s.m.carts[cartID]
	if !ok {
		return nil, ErrNotFound
	}
	cart := s.m.cartWithItems(row.val)
	return &cart, nil
}

func (s *memoryCartStore) FindByUserVendor(ctx context.Context, userID, vendorID string) (*models.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, row := range s.m.carts {
		if row.val.UserID == userID && row.val.VendorID == vendorID {
			cart := s.m.cartWithItems(row.val)
			return &cart, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryCartStore) FindByUser(ctx context.Context, userID string) ([]models.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	carts := sortedValues(s.m.carts, func(c models.Cart) bool { return c.UserID == userID })
	for i := range carts {
		carts[i] = s.m.cartWithItems(carts[i])
	}
	return carts, nil
}

func (s *memoryCartStore) Create(ctx context.Context, cart *models.Cart) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, row := range s.m.carts {
		if row.val.UserID == cart.UserID && row.val.VendorID == cart.VendorID {
			return ErrDuplicate
		}
	}
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	if cart.DeliveryMode == "" {
		cart.DeliveryMode = models.DeliveryModeDelivery
	}
	now := time.Now()
	cart.CreatedAt, cart.UpdatedAt = now, now
	stored := *cart
	stored.Items = nil
	s.m.carts[cart.ID] = memRow[models.Cart]{seq: s.m.next(), val: stored}
	return nil
}

func (s *memoryCartStore) UpdateDelivery(ctx context.Context, userID, mode string, address, instructions *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for id, row := range s.m.carts {
		if row.val.UserID != userID {
			continue
		}
		row.val.DeliveryMode = mode
		row.val.DeliveryAddress = address
		row.val.DeliveryInstructions = instructions
		row.val.UpdatedAt = time.Now()
		s.m.carts[id] = row
	}
	return nil
}

func (s *memoryCartStore) Delete(ctx context.Context, cartID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.carts, cartID)
	for id, row := range s.m.lines {
		if row.val.CartID == cartID {
			delete(s.m.lines, id)
		}
	}
	return nil
}

type memoryLineItemStore struct{ m *MemoryStore }

func (s *memoryLineItemStore) FindByID(ctx context.Context, lineID uuid.UUID) (*models.CartItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	row, ok := s.m.lines[lineID]
	if !ok {
		return nil, ErrNotFound
	}
	item := row.val
	return &item, nil
}

func (s *memoryLineItemStore) FindByCart(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	return sortedValues(s.m.lines, func(i models.CartItem) bool { return i.CartID == cartID }), nil
}

func (s *memoryLineItemStore) Create(ctx context.Context, item *models.CartItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.carts[item.CartID]; !ok {
		return ErrNotFound
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	now := time.Now()
	item.CreatedAt, item.UpdatedAt = now, now
	s.m.lines[item.ID] = memRow[models.CartItem]{seq: s.m.next(), val: *item}
	return nil
}

func (s *memoryLineItemStore) UpdateQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	row, ok := s.m.lines[lineID]
	if !ok {
		return ErrNotFound
	}
	row.val.Quantity = quantity
	row.val.UpdatedAt = time.Now()
	s.m.lines[lineID] = row
	return nil
}

func (s *memoryLineItemStore) Delete(ctx context.Context, lineID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.lines, lineID)
	return nil
}

func (s *memoryLineItemStore) DeleteByCart(ctx context.Context, cartID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for id, row := range s.m.lines {
		if row.val.CartID == cartID {
			delete(s.m.lines, id)
		}
	}
	return nil
}

type memoryOrderStore struct{ m *MemoryStore }

func (s *memoryOrderStore) Create(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if order.IdempotencyKey != nil {
		for _, row := range s.m.orders {
			o := row.val
			if o.UserID == order.UserID && o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
				return ErrDuplicate
			}
		}
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentStatusPending
	}
	now := time.Now()
	order.CreatedAt, order.UpdatedAt = now, now
	stored := *order
	stored.Items = nil
	s.m.orders[order.ID] = memRow[models.Order]{seq: s.m.next(), val: stored}
	return nil
}

func (s *memoryOrderStore) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for i := range items {
		if _, ok := s.m.orders[items[i].OrderID]; !ok {
			return ErrNotFound
		}
	}
	now := time.Now()
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].CreatedAt = now
		s.m.orderItems[items[i].ID] = memRow[models.OrderItem]{seq: s.m.next(), val: items[i]}
	}
	return nil
}

func (s *memoryOrderStore) withItems(order models.Order) *models.Order {
	order.Items = sortedValues(s.m.orderItems, func(i models.OrderItem) bool { return i.OrderID == order.ID })
	return &order
}

func (s *memoryOrderStore) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	row, ok := s.m.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.withItems(row.val), nil
}

func (s *memoryOrderStore) FindByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, row := range s.m.orders {
		o := row.val
		if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return s.withItems(o), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryOrderStore) FindByUser(ctx context.Context, userID string) ([]models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	orders := sortedValues(s.m.orders, func(o models.Order) bool { return o.UserID == userID })
	// newest first
	for i, j := 0, len(orders)-1; i < j; i, j = i+1, j-1 {
		orders[i], orders[j] = orders[j], orders[i]
	}
	return orders, nil
}

func (s *memoryOrderStore) DeleteItems(ctx context.Context, orderID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for id, row := range s.m.orderItems {
		if row.val.OrderID == orderID {
			delete(s.m.orderItems, id)
		}
	}
	return nil
}

func (s *memoryOrderStore) Delete(ctx context.Context, orderID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.orders, orderID)
	for id, row := range s.m.orderItems {
		if row.val.OrderID == orderID {
			delete(s.m.orderItems, id)
		}
	}
	return nil
}

type memoryPackageOrderStore struct{ m *MemoryStore }

func (s *memoryPackageOrderStore) CreateBatch(ctx context.Context, packages []models.PackageOrder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for i := range packages {
		if _, ok := s.m.orders[packages[i].OrderID]; !ok {
			return ErrNotFound
		}
	}
	now := time.Now()
	for i := range packages {
		if packages[i].ID == uuid.Nil {
			packages[i].ID = uuid.New()
		}
		if packages[i].Status == "" {
			packages[i].Status = models.OrderStatusPending
		}
		packages[i].CreatedAt, packages[i].UpdatedAt = now, now
		s.m.packages[packages[i].ID] = memRow[models.PackageOrder]{seq: s.m.next(), val: packages[i]}
	}
	return nil
}

func (s *memoryPackageOrderStore) FindByUser(ctx context.Context, userID string) ([]models.PackageOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	packages := sortedValues(s.m.packages, func(p models.PackageOrder) bool { return p.UserID == userID })
	sort.SliceStable(packages, func(i, j int) bool {
		if !packages[i].CreatedAt.Equal(packages[j].CreatedAt) {
			return packages[i].CreatedAt.After(packages[j].CreatedAt)
		}
		return packages[i].PackageIndex < packages[j].PackageIndex
	})
	return packages, nil
}

func (s *memoryPackageOrderStore) DeleteByOrder(ctx context.Context, orderID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for id, row := range s.m.packages {
		if row.val.OrderID == orderID {
			delete(s.m.packages, id)
		}
	}
	return nil
}
