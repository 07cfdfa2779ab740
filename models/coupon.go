package models

import "time"

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`
	// Code is stored uppercase; lookups normalize the same way, so matching
	// is case-insensitive.
	Code          string       `gorm:"uniqueIndex;not null" json:"code"`
	DiscountType  DiscountType `gorm:"type:VARCHAR(20);not null" json:"discount_type"`
	DiscountValue float64      `gorm:"not null" json:"discount_value"`
	MinPurchase   float64      `json:"min_purchase"`
	StartsAt      time.Time    `json:"starts_at"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	MaxUses       *int         `json:"max_uses,omitempty"`
	CurrentUses   int          `json:"current_uses"`
	IsActive      bool         `gorm:"default:true" json:"is_active"`

	// A coupon incompatible with free shipping is rejected while the order
	// already qualifies for free shipping.
	CompatibleWithFreeShipping bool `gorm:"default:true" json:"compatible_with_free_shipping"`

	// Optional restrictions: when set, the cart must contain the product or
	// at least one product in the category.
	CategoryID *uint `json:"category_id,omitempty"`
	ProductID  *uint `json:"product_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
