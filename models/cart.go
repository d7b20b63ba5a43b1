package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Delivery modes for a cart.
const (
	DeliveryModeDelivery = "delivery"
	DeliveryModePickup   = "pickup"
)

// GlobalCartID tags the merged view across all vendor carts.
const GlobalCartID = "global"

// Cart is one customer's open basket for a single vendor.
type Cart struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               string     `gorm:"type:varchar(128);not null;uniqueIndex:idx_cart_user_vendor" json:"user_id"`
	VendorID             string     `gorm:"type:varchar(128);not null;uniqueIndex:idx_cart_user_vendor" json:"vendor_id"`
	VendorName           string     `gorm:"type:varchar(256)" json:"vendor_name"`
	DeliveryMode         string     `gorm:"type:varchar(16);not null;default:'delivery'" json:"delivery_mode"`
	DeliveryAddress      *string    `gorm:"type:text" json:"delivery_address,omitempty"`
	DeliveryInstructions *string    `gorm:"type:text" json:"delivery_instructions,omitempty"`
	DeliveryFee          *int64     `json:"delivery_fee,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Items                []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`

	Total     int64 `gorm:"-" json:"total"`
	ItemCount int   `gorm:"-" json:"item_count"`
}

func (Cart) TableName() string { return "cart" }

func (c *Cart) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Recalculate derives Total and ItemCount from the lines.
func (c *Cart) Recalculate() {
	c.Total, c.ItemCount = 0, 0
	for _, item := range c.Items {
		c.Total += item.LineTotal()
		c.ItemCount += item.Quantity
	}
}

// IsEmpty reports whether the cart has no lines and therefore should not exist.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// CartItem is a single line in a vendor cart.
type CartItem struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CartID              uuid.UUID `gorm:"type:uuid;not null;index" json:"cart_id"`
	ProductID           string    `gorm:"type:varchar(128);index" json:"product_id"`
	Name                string    `gorm:"type:varchar(256);not null" json:"name"`
	Price               int64     `gorm:"not null" json:"price"`
	Quantity            int       `gorm:"not null" json:"quantity"`
	Image               *string   `gorm:"type:text" json:"image,omitempty"`
	SpecialInstructions *string   `gorm:"type:text" json:"special_instructions,omitempty"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CartItem) TableName() string { return "cart_items" }

func (i *CartItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (i CartItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// SameProduct reports whether two lines describe the same purchasable item.
func (i CartItem) SameProduct(other CartItem) bool {
	return i.ProductID == other.ProductID && i.Name == other.Name
}

// GlobalCartView merges every vendor cart of a customer. It is never persisted.
type GlobalCartView struct {
	ID          string     `json:"id"`
	Items       []CartItem `json:"items"`
	VendorIDs   []string   `json:"vendor_ids"`
	TotalItems  int        `json:"total_items"`
	TotalAmount int64      `json:"total_amount"`
}

// NewCartLine is the input to add a line to a vendor cart.
type NewCartLine struct {
	VendorID            string  `json:"vendor_id" binding:"required"`
	VendorName          string  `json:"vendor_name"`
	ProductID           string  `json:"product_id"`
	Name                string  `json:"name" binding:"required"`
	Price               int64   `json:"price" binding:"gte=0"`
	Quantity            int     `json:"quantity" binding:"required,min=1"`
	Image               *string `json:"image,omitempty"`
	SpecialInstructions *string `json:"special_instructions,omitempty"`
}

// UpdateQuantityRequest is the payload for PATCH /cart/items/:line_id.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// DeliveryInfoRequest is the payload for PUT /cart/delivery.
type DeliveryInfoRequest struct {
	Mode         string  `json:"mode" binding:"required,oneof=delivery pickup"`
	Address      *string `json:"address,omitempty"`
	Instructions *string `json:"instructions,omitempty"`
}

// MutationResult is returned by every cart mutation.
type MutationResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
