package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	CartID    uint       `gorm:"primaryKey" json:"cart_id"`
	UserID    string     `gorm:"uniqueIndex" json:"user_id"` // one cart per user
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CartItem struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	CartID uint `gorm:"index" json:"cart_id"`

	ProductID uint `json:"product_id"`
	// VariationID distinguishes size/frame combinations of the same mirror.
	// When set it is the line's merge identity; otherwise ProductID is.
	VariationID string `gorm:"index" json:"variation_id,omitempty"`
	SizeName    string `json:"size_name,omitempty"`
	FrameName   string `json:"frame_name,omitempty"`

	// Denormalized product snapshot, refreshed on read.
	ProductName  string  `json:"product_name"`
	ProductImage string  `json:"product_image"`
	ProductPrice float64 `json:"product_price"`
	Weight       float64 `json:"weight"`

	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
}

// IdentityKey is the merge key for cart lines: variation id when present,
// otherwise the product id.
func (i CartItem) IdentityKey() string {
	if i.VariationID != "" {
		return i.VariationID
	}
	return "p:" + strconv.FormatUint(uint64(i.ProductID), 10)
}

// CartSubtotal sums price × quantity over the lines using the denormalized
// snapshot prices.
func CartSubtotal(items []CartItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, it := range items {
		price := decimal.NewFromFloat(it.ProductPrice)
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return subtotal
}
