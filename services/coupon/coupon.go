// Package coupon validates promo codes against an order and computes the
// resulting discount. Validation is a short-circuiting pipeline: lookup,
// active/expiry, usage limit, minimum purchase, free-shipping compatibility,
// product/category restriction, then discount computation.
package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
)

type Validator struct {
	db  *gorm.DB
	now func() time.Time
}

func NewValidator(db *gorm.DB) *Validator {
	return &Validator{db: db, now: time.Now}
}

// Result carries the validation outcome. Coupon is populated once the code
// resolves, even when a later check fails, so callers can display its terms.
type Result struct {
	Valid    bool            `json:"is_valid"`
	Error    string          `json:"error,omitempty"`
	Coupon   *models.Coupon  `json:"coupon,omitempty"`
	Discount decimal.Decimal `json:"discount"`
}

func invalid(c *models.Coupon, msg string) Result {
	return Result{Valid: false, Error: msg, Coupon: c, Discount: decimal.Zero}
}

// Validate runs the full pipeline for a code against the order subtotal and
// cart contents. freeShippingApplies tells the validator whether the order
// already qualifies for free shipping, which some coupons are incompatible
// with.
func (v *Validator) Validate(code string, subtotal decimal.Decimal, items []models.CartItem, freeShippingApplies bool) Result {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return invalid(nil, "Please enter a coupon code")
	}

	var c models.Coupon
	if err := v.db.First(&c, "code = ?", normalized).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid(nil, "Coupon code not found")
		}
		return invalid(nil, "Unable to validate coupon, please try again")
	}

	now := v.now()
	if !c.IsActive {
		return invalid(&c, "This coupon is no longer active")
	}
	if now.Before(c.StartsAt) {
		return invalid(&c, "This coupon is not active yet")
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return invalid(&c, "This coupon has expired")
	}
	if c.MaxUses != nil && c.CurrentUses >= *c.MaxUses {
		return invalid(&c, "This coupon has reached its usage limit")
	}
	if min := decimal.NewFromFloat(c.MinPurchase); min.IsPositive() && subtotal.LessThan(min) {
		return invalid(&c, fmt.Sprintf("A minimum purchase of %s is required for this coupon", min.StringFixed(2)))
	}
	if freeShippingApplies && !c.CompatibleWithFreeShipping {
		return invalid(&c, "This coupon cannot be combined with free shipping")
	}
	if ok, err := v.matchesRestriction(&c, items); err != nil {
		return invalid(&c, "Unable to validate coupon, please try again")
	} else if !ok {
		return invalid(&c, "This coupon does not apply to the items in your cart")
	}

	return Result{Valid: true, Coupon: &c, Discount: ComputeDiscount(&c, subtotal)}
}

// ComputeDiscount applies the coupon's formula: percentage discounts take a
// share of the subtotal, fixed discounts are capped at the subtotal so the
// remainder never goes negative.
func ComputeDiscount(c *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	value := decimal.NewFromFloat(c.DiscountValue)
	switch c.DiscountType {
	case models.DiscountPercentage:
		return subtotal.Mul(value).Div(decimal.NewFromInt(100)).Round(2)
	case models.DiscountFixed:
		if value.GreaterThan(subtotal) {
			return subtotal.Round(2)
		}
		return value.Round(2)
	default:
		return decimal.Zero
	}
}

// Apply consumes a coupon for an order: the usage counter is incremented and
// the coupon attached to the order inside one transaction, so a failure on
// either side leaves nothing half-applied. The increment is guarded against
// the usage limit to hold current_uses <= max_uses under concurrent orders.
// Callers inside a transaction pass their tx so the apply joins it.
func (v *Validator) Apply(db *gorm.DB, couponID, orderID uint) error {
	if db == nil {
		db = v.db
	}
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Coupon{}).
			Where("id = ? AND (max_uses IS NULL OR current_uses < max_uses)", couponID).
			UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
		if res.Error != nil {
			return fmt.Errorf("increment coupon usage: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errors.New("coupon usage limit reached")
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", orderID).
			Update("coupon_id", couponID).Error; err != nil {
			return fmt.Errorf("attach coupon to order: %w", err)
		}
		return nil
	})
}

// matchesRestriction enforces optional product/category scoping. A coupon
// without restrictions matches any cart.
func (v *Validator) matchesRestriction(c *models.Coupon, items []models.CartItem) (bool, error) {
	if c.ProductID == nil && c.CategoryID == nil {
		return true, nil
	}
	if c.ProductID != nil {
		for _, it := range items {
			if it.ProductID == *c.ProductID {
				return true, nil
			}
		}
	}
	if c.CategoryID != nil {
		ids := make([]uint, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		var count int64
		err := v.db.Table("product_categories").
			Where("product_id IN ? AND category_id = ?", ids, *c.CategoryID).
			Count(&count).Error
		if err != nil {
			return false, fmt.Errorf("check category restriction: %w", err)
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}
