package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Package classifications.
const (
	PackageTypeDocument = "document"
	PackageTypeSmall    = "small"
	PackageTypeMedium   = "medium"
	PackageTypeLarge    = "large"
	PackageTypeFragile  = "fragile"
)

// PackageSpec describes one parcel in a multi-package request.
type PackageSpec struct {
	PackageType          string  `json:"package_type" validate:"omitempty,oneof=document small medium large fragile"`
	Weight               float64 `json:"weight" validate:"gt=0"`
	Length               float64 `json:"length" validate:"gt=0"`
	Width                float64 `json:"width" validate:"gt=0"`
	Height               float64 `json:"height" validate:"gt=0"`
	DeliveryAddress      string  `json:"delivery_address" validate:"notblank"`
	DeliveryInstructions string  `json:"delivery_instructions"`
	RecipientName        string  `json:"recipient_name" validate:"notblank"`
	RecipientPhone       string  `json:"recipient_phone" validate:"notblank"`
	RecipientEmail       string  `json:"recipient_email,omitempty" validate:"omitempty,email"`
	Insurance            bool    `json:"insurance"`
	Express              bool    `json:"express"`
	Signature            bool    `json:"signature"`
}

// MultiPackageRequest is one shared pickup leg fanning out to several destinations.
type MultiPackageRequest struct {
	PickupAddress      string        `json:"pickup_address" validate:"notblank"`
	PickupInstructions string        `json:"pickup_instructions"`
	PickupDate         string        `json:"pickup_date" validate:"notblank"`
	PickupTime         string        `json:"pickup_time" validate:"notblank"`
	DropDate           string        `json:"drop_date" validate:"notblank"`
	DropTime           string        `json:"drop_time" validate:"notblank"`
	PaymentMethod      string        `json:"payment_method"`
	Packages           []PackageSpec `json:"packages"`
}

// PackageOrder is the persisted detail of one package, referencing its parent order.
type PackageOrder struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID              uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	UserID               string    `gorm:"type:varchar(128);not null;index" json:"user_id"`
	PackageIndex         int       `gorm:"not null" json:"package_index"`
	PackageType          string    `gorm:"type:varchar(32)" json:"package_type"`
	Weight               float64   `gorm:"not null" json:"weight"`
	Length               float64   `json:"length"`
	Width                float64   `json:"width"`
	Height               float64   `json:"height"`
	PickupAddress        string    `gorm:"type:text;not null" json:"pickup_address"`
	PickupInstructions   string    `gorm:"type:text" json:"pickup_instructions,omitempty"`
	DeliveryAddress      string    `gorm:"type:text;not null" json:"delivery_address"`
	DeliveryInstructions string    `gorm:"type:text" json:"delivery_instructions,omitempty"`
	RecipientName        string    `gorm:"type:varchar(256);not null" json:"recipient_name"`
	RecipientPhone       string    `gorm:"type:varchar(64);not null" json:"recipient_phone"`
	RecipientEmail       string    `gorm:"type:varchar(256)" json:"recipient_email,omitempty"`
	Insurance            bool      `json:"insurance"`
	Express              bool      `json:"express"`
	Signature            bool      `json:"signature"`
	PickupDate           string    `gorm:"type:varchar(32)" json:"pickup_date"`
	PickupTime           string    `gorm:"type:varchar(32)" json:"pickup_time"`
	DropDate             string    `gorm:"type:varchar(32)" json:"drop_date"`
	DropTime             string    `gorm:"type:varchar(32)" json:"drop_time"`
	Status               string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Price                int64     `gorm:"not null" json:"price"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PackageOrder) TableName() string { return "package_orders" }

func (p *PackageOrder) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PackageShipment groups the package rows created by one multi-package order.
type PackageShipment struct {
	OrderID        uuid.UUID      `json:"order_id"`
	Packages       []PackageOrder `json:"packages"`
	IsMultiPackage bool           `json:"is_multi_package"`
	CreatedAt      time.Time      `json:"created_at"`
}

// PackageOrderResult is returned after a multi-package order is placed.
type PackageOrderResult struct {
	Order    *Order         `json:"order"`
	Packages []PackageOrder `json:"packages"`
}

// PackageEstimate is the derived price of a draft request.
type PackageEstimate struct {
	BasePrice      int64   `json:"base_price"`
	Surcharges     int64   `json:"surcharges"`
	EstimatedPrice int64   `json:"estimated_price"`
	PerPackage     []int64 `json:"per_package"`
}
