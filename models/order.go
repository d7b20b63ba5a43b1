package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order statuses.
const (
	OrderStatusPending   = "pending"
	PaymentStatusPending = "pending"
)

type Order struct {
	ID                   uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               string      `gorm:"type:varchar(128);not null;index;uniqueIndex:idx_orders_user_idempotency" json:"user_id"`
	VendorID             string      `gorm:"type:varchar(128);not null;index" json:"vendor_id"`
	VendorName           string      `gorm:"type:varchar(256)" json:"vendor_name"`
	Status               string      `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Total                int64       `gorm:"not null" json:"total"`
	DeliveryFee          int64       `gorm:"not null;default:0" json:"delivery_fee"`
	Tax                  int64       `gorm:"not null;default:0" json:"tax"`
	GrandTotal           int64       `gorm:"not null" json:"grand_total"`
	DeliveryMethod       string      `gorm:"type:varchar(16)" json:"delivery_method"`
	DeliveryAddress      string      `gorm:"type:text" json:"delivery_address"`
	DeliveryInstructions string      `gorm:"type:text" json:"delivery_instructions,omitempty"`
	PaymentMethod        string      `gorm:"type:varchar(32)" json:"payment_method"`
	PaymentStatus        string      `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	EstimatedDelivery    time.Time   `json:"estimated_delivery"`
	IdempotencyKey       *string     `gorm:"type:varchar(128);uniqueIndex:idx_orders_user_idempotency" json:"-"`
	CreatedAt            time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
	Items                []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// PackageLineMetadata links an order line back to the package it pays for.
type PackageLineMetadata struct {
	PackageOrderID  string `json:"package_order_id"`
	PackageIndex    int    `json:"package_index"`
	DeliveryAddress string `json:"delivery_address"`
}

type OrderItem struct {
	ID                  uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID             uuid.UUID            `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID           *string              `gorm:"type:varchar(128)" json:"product_id"`
	LineNo              int                  `gorm:"not null;default:0" json:"line_no"`
	Name                string               `gorm:"type:varchar(256);not null" json:"name"`
	Price               int64                `gorm:"not null" json:"price"`
	Quantity            int                  `gorm:"not null" json:"quantity"`
	SpecialInstructions *string              `gorm:"type:text" json:"special_instructions,omitempty"`
	Metadata            *PackageLineMetadata `gorm:"type:jsonb;serializer:json" json:"metadata,omitempty"`
	CreatedAt           time.Time            `gorm:"autoCreateTime" json:"created_at"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i *OrderItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// PackageMetadata returns the package back-reference of a line. Rows written
// before the metadata column existed only carry it JSON-encoded in the
// instructions field.
func (i OrderItem) PackageMetadata() (*PackageLineMetadata, bool) {
	if i.Metadata != nil {
		return i.Metadata, true
	}
	if i.SpecialInstructions == nil || *i.SpecialInstructions == "" {
		return nil, false
	}
	var meta PackageLineMetadata
	if err := json.Unmarshal([]byte(*i.SpecialInstructions), &meta); err != nil || meta.PackageOrderID == "" {
		return nil, false
	}
	return &meta, true
}

// OrderMeta is what checkout supplies alongside the cart being converted.
type OrderMeta struct {
	DeliveryMethod       string     `json:"delivery_method"`
	DeliveryAddress      string     `json:"delivery_address"`
	DeliveryInstructions string     `json:"delivery_instructions"`
	PaymentMethod        string     `json:"payment_method"`
	DeliveryFee          *int64     `json:"delivery_fee,omitempty"`
	Tax                  *int64     `json:"tax,omitempty"`
	GrandTotal           *int64     `json:"grand_total,omitempty"`
	EstimatedDelivery    *time.Time `json:"estimated_delivery,omitempty"`
	IdempotencyKey       string     `json:"idempotency_key,omitempty"`
}

// CheckoutRequest is the payload for POST /orders/checkout.
type CheckoutRequest struct {
	VendorID string `json:"vendor_id" binding:"required"`
	OrderMeta
}

// OrderCreatedEvent is published after an order and its lines are persisted.
type OrderCreatedEvent struct {
	EventType  string    `json:"event_type"`
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	VendorID   string    `json:"vendor_id"`
	GrandTotal int64     `json:"grand_total"`
	ItemCount  int       `json:"item_count"`
	Packages   int       `json:"packages,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
