package services

import (
	"context"
	"encoding/json"
	"fmt"
	"storefront-service/apperrors"
	"storefront-service/events"
	"storefront-service/models"
	"storefront-service/repository"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultPaymentMethod = "cash"

// PackageOrderService turns a multi-destination parcel request into one parent
// order, one package row per destination and one priced line per package.
type PackageOrderService interface {
	Validate(req *models.MultiPackageRequest) error
	Estimate(req *models.MultiPackageRequest) models.PackageEstimate
	Draft(req models.MultiPackageRequest) *PackageRequestDraft
	CreatePackageOrder(ctx context.Context, userID string, req *models.MultiPackageRequest) (*models.PackageOrderResult, error)
	GetUserPackageOrders(ctx context.Context, userID string) ([]models.PackageShipment, error)
}

// PackageConfig holds the pricing and routing settings of the parcel service.
type PackageConfig struct {
	BasePrice  int64
	VendorID   string
	VendorName string
	DefaultETA time.Duration
}

type packageOrderServiceImpl struct {
	orders    repository.OrderStore
	packages  repository.PackageOrderStore
	validator *PackageValidator
	publisher events.Publisher
	cfg       PackageConfig
	now       func() time.Time
	logger    *zap.Logger
}

// NewPackageOrderService creates a new PackageOrderService.
func NewPackageOrderService(
	orders repository.OrderStore,
	packages repository.PackageOrderStore,
	publisher events.Publisher,
	cfg PackageConfig,
	logger *zap.Logger,
) PackageOrderService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if cfg.VendorName == "" {
		cfg.VendorName = "Parcel delivery"
	}
	return &packageOrderServiceImpl{
		orders:    orders,
		packages:  packages,
		validator: NewPackageValidator(),
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *packageOrderServiceImpl) Validate(req *models.MultiPackageRequest) error {
	if problems := s.validator.Validate(req); len(problems) > 0 {
		return apperrors.Validation("invalid package request", problems...)
	}
	return nil
}

func (s *packageOrderServiceImpl) Estimate(req *models.MultiPackageRequest) models.PackageEstimate {
	return EstimatePrice(s.cfg.BasePrice, req.Packages)
}

func (s *packageOrderServiceImpl) Draft(req models.MultiPackageRequest) *PackageRequestDraft {
	return NewPackageRequestDraftFrom(s.cfg.BasePrice, req)
}

// CreatePackageOrder validates before any write. Writes run as a saga: a
// failure removes the package rows first, then the parent order.
func (s *packageOrderServiceImpl) CreatePackageOrder(ctx context.Context, userID string, req *models.MultiPackageRequest) (*models.PackageOrderResult, error) {
	if userID == "" {
		return nil, apperrors.Unauthenticated()
	}
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	estimate := s.Estimate(req)
	n := len(req.Packages)
	linePrice := SplitPrice(estimate.EstimatedPrice, n)

	order := s.buildParentOrder(userID, req, estimate)
	packages := make([]models.PackageOrder, n)
	items := make([]models.OrderItem, n)
	for i, spec := range req.Packages {
		packages[i] = buildPackageRow(order.ID, userID, i, req, spec, linePrice)
		items[i] = buildPackageLine(order.ID, packages[i], spec)
	}

	err := newSaga("create_package_order", s.logger).
		Step("create_order",
			func(ctx context.Context) error { return s.orders.Create(ctx, order) },
			func(ctx context.Context) error { return removeOrder(ctx, s.orders, order.ID) },
		).
		Step("create_packages",
			func(ctx context.Context) error { return s.packages.CreateBatch(ctx, packages) },
			func(ctx context.Context) error { return s.packages.DeleteByOrder(ctx, order.ID) },
		).
		Step("create_order_items",
			func(ctx context.Context) error { return s.orders.CreateItems(ctx, items) },
			nil,
		).
		Execute(ctx, "failed to create package order")
	if err != nil {
		return nil, err
	}
	order.Items = items

	s.logger.Info("Package order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID),
		zap.Int("packages", n),
		zap.Int64("estimated_price", estimate.EstimatedPrice),
	)
	publishOrderCreated(ctx, s.publisher, s.logger, order, n)

	return &models.PackageOrderResult{Order: order, Packages: packages}, nil
}

// GetUserPackageOrders groups package rows by parent order, newest order first.
func (s *packageOrderServiceImpl) GetUserPackageOrders(ctx context.Context, userID string) ([]models.PackageShipment, error) {
	if userID == "" {
		return nil, apperrors.Unauthenticated()
	}
	rows, err := s.packages.FindByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load package orders", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.Persistence("failed to load package orders", err)
	}
	return GroupPackageOrders(rows), nil
}

// GroupPackageOrders keeps the order in which parent orders first appear.
func GroupPackageOrders(rows []models.PackageOrder) []models.PackageShipment {
	index := make(map[uuid.UUID]int)
	shipments := make([]models.PackageShipment, 0)
	for _, row := range rows {
		i, ok := index[row.OrderID]
		if !ok {
			i = len(shipments)
			index[row.OrderID] = i
			shipments = append(shipments, models.PackageShipment{OrderID: row.OrderID, CreatedAt: row.CreatedAt})
		}
		shipments[i].Packages = append(shipments[i].Packages, row)
	}
	for i := range shipments {
		shipments[i].IsMultiPackage = len(shipments[i].Packages) > 1
	}
	return shipments
}

func (s *packageOrderServiceImpl) buildParentOrder(userID string, req *models.MultiPackageRequest, estimate models.PackageEstimate) *models.Order {
	address := req.Packages[0].DeliveryAddress
	if len(req.Packages) > 1 {
		address = fmt.Sprintf("Multiple destinations (%d)", len(req.Packages))
	}
	payment := req.PaymentMethod
	if payment == "" {
		payment = defaultPaymentMethod
	}
	return &models.Order{
		ID:                   uuid.New(),
		UserID:               userID,
		VendorID:             s.cfg.VendorID,
		VendorName:           s.cfg.VendorName,
		Status:               models.OrderStatusPending,
		Total:                estimate.EstimatedPrice,
		GrandTotal:           estimate.EstimatedPrice,
		DeliveryMethod:       models.DeliveryModeDelivery,
		DeliveryAddress:      address,
		DeliveryInstructions: req.PickupInstructions,
		PaymentMethod:        payment,
		PaymentStatus:        models.PaymentStatusPending,
		EstimatedDelivery:    s.now().Add(s.cfg.DefaultETA),
	}
}

func buildPackageRow(orderID uuid.UUID, userID string, index int, req *models.MultiPackageRequest, spec models.PackageSpec, price int64) models.PackageOrder {
	packageType := spec.PackageType
	if packageType == "" {
		packageType = models.PackageTypeSmall
	}
	return models.PackageOrder{
		ID:                   uuid.New(),
		OrderID:              orderID,
		UserID:               userID,
		PackageIndex:         index,
		PackageType:          packageType,
		Weight:               spec.Weight,
		Length:               spec.Length,
		Width:                spec.Width,
		Height:               spec.Height,
		PickupAddress:        req.PickupAddress,
		PickupInstructions:   req.PickupInstructions,
		DeliveryAddress:      spec.DeliveryAddress,
		DeliveryInstructions: spec.DeliveryInstructions,
		RecipientName:        spec.RecipientName,
		RecipientPhone:       spec.RecipientPhone,
		RecipientEmail:       spec.RecipientEmail,
		Insurance:            spec.Insurance,
		Express:              spec.Express,
		Signature:            spec.Signature,
		PickupDate:           req.PickupDate,
		PickupTime:           req.PickupTime,
		DropDate:             req.DropDate,
		DropTime:             req.DropTime,
		Status:               models.OrderStatusPending,
		Price:                price,
	}
}

// buildPackageLine carries the package back-reference both as typed metadata
// and, for readers that only see the instructions column, as JSON there.
func buildPackageLine(orderID uuid.UUID, pkg models.PackageOrder, spec models.PackageSpec) models.OrderItem {
	meta := &models.PackageLineMetadata{
		PackageOrderID:  pkg.ID.String(),
		PackageIndex:    pkg.PackageIndex,
		DeliveryAddress: spec.DeliveryAddress,
	}
	encoded, _ := json.Marshal(meta)
	instructions := string(encoded)

	return models.OrderItem{
		ID:                  uuid.New(),
		OrderID:             orderID,
		LineNo:              pkg.PackageIndex,
		Name:                fmt.Sprintf("Package %d (%s)", pkg.PackageIndex+1, pkg.PackageType),
		Price:               pkg.Price,
		Quantity:            1,
		SpecialInstructions: &instructions,
		Metadata:            meta,
	}
}
