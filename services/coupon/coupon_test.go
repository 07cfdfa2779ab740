package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{}, &models.Category{},
		&models.Coupon{}, &models.Order{}, &models.OrderItem{},
	))
	return db
}

func intp(n int) *int { return &n }

func timep(ts time.Time) *time.Time { return &ts }

func fixedValidator(t *testing.T, db *gorm.DB) *Validator {
	t.Helper()
	v := NewValidator(db)
	v.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	return v
}

func seedCoupon(t *testing.T, db *gorm.DB, c models.Coupon) models.Coupon {
	t.Helper()
	if c.StartsAt.IsZero() {
		c.StartsAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func TestValidate_PercentageCoupon(t *testing.T) {
	db := testDB(t)
	v := fixedValidator(t, db)
	seedCoupon(t, db, models.Coupon{
		Code: "BIGSALE20", DiscountType: models.DiscountPercentage,
		DiscountValue: 20, MinPurchase: 50, IsActive: true, CompatibleWithFreeShipping: true,
	})

	res := v.Validate("bigsale20", decimal.NewFromInt(100), nil, false)
	require.True(t, res.Valid)
	require.True(t, res.Discount.Equal(decimal.NewFromInt(20)), "got %s", res.Discount)
}

func TestValidate_BelowMinimumPurchase(t *testing.T) {
	db := testDB(t)
	v := fixedValidator(t, db)
	seedCoupon(t, db, models.Coupon{
		Code: "BIGSALE20", DiscountType: models.DiscountPercentage,
		DiscountValue: 20, MinPurchase: 50, IsActive: true, CompatibleWithFreeShipping: true,
	})

	res := v.Validate("BIGSALE20", decimal.NewFromInt(40), nil, false)
	require.False(t, res.Valid)
	require.Contains(t, res.Error, "minimum purchase")
	// The coupon is still returned so the storefront can show its terms.
	require.NotNil(t, res.Coupon)
	require.True(t, res.Discount.IsZero())
}

func TestValidate_FixedCouponCappedAtSubtotal(t *testing.T) {
	db := testDB(t)
	v := fixedValidator(t, db)
	seedCoupon(t, db, models.Coupon{
		Code: "SAVE10", DiscountType: models.DiscountFixed,
		DiscountValue: 10, IsActive: true, CompatibleWithFreeShipping: true,
	})

	res := v.Validate("SAVE10", decimal.NewFromInt(5), nil, false)
	require.True(t, res.Valid)
	require.True(t, res.Discount.Equal(decimal.NewFromInt(5)), "got %s", res.Discount)
}

func TestValidate_UnknownCode(t *testing.T) {
	v := fixedValidator(t, testDB(t))
	res := v.Validate("NOPE", decimal.NewFromInt(100), nil, false)
	require.False(t, res.Valid)
	require.Nil(t, res.Coupon)
}

func TestValidate_Expired(t *testing.T) {
	db := testDB(t)
	v := fixedValidator(t, db)
	seedCoupon(t, db, models.Coupon{
		Code: "OLD", DiscountType: models.DiscountFixed, DiscountValue: 5,
		IsActive: true, CompatibleWithFreeShipping: true,
		ExpiresAt: timep(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)),
	})

	res := v.Validate("OLD", decimal.NewFromInt(100), nil, false)
	require.False(t, res.Valid)
	require.Contains(t, res.Error, "expired")
}

func TestValidate_NotStartedYet(t *testing.T) {
	db := testDB(t)
	v := fixedValidator(t, db)
	seedCoupon(t, db, models.Coupon{
		Code: "SOON", DiscountType: models.DiscountFixed, DiscountValue: 5,
		IsActive: true, CompatibleWithFreeShipping: true,
		StartsAt: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	})

	res := v.Validate("SOON", decimal.NewFromInt(100), nil, false)
	require.False(t, res.Valid)
	require.Contains(t, res.Error, "not active yet")
}

func TestValidate_UsageLimitReached(t *testing.T) {
	db := testDB(t)
	v := fixedValidator(t, db)
	seedCoupon(t, db, models.Coupon{
		Code: "LIMITED", DiscountType: models.DiscountFixed, DiscountValue: 5,
		IsActive: true, CompatibleWithFreeShipping: true,
		MaxUses: intp(2), CurrentUses: 2,
	})

	res := v.Validate("LIMITED", decimal.NewFromInt(100), nil, false)
	require.False(t, res.Valid)
	require.Contains(t, res.Error, "usage limit")
}

func TestValidate_FreeShippingIncompatible(t *testing.T) {
	db := testDB(t)
	v := fixedValidator(t, db)
	seedCoupon(t, db, models.Coupon{
		Code: "NOFREESHIP", DiscountType: models.DiscountFixed, DiscountValue: 5,
		IsActive: true, CompatibleWithFreeShipping: false,
	})

	res := v.Validate("NOFREESHIP", decimal.NewFromInt(200), nil, true)
	require.False(t, res.Valid)
	require.Contains(t, res.Error, "free shipping")

	res = v.Validate("NOFREESHIP", decimal.NewFromInt(200), nil, false)
	require.True(t, res.Valid)
}

func TestValidate_ProductRestriction(t *testing.T) {
	db := testDB(t)
	v := fixedValidator(t, db)
	p := models.Product{Name: "restricted", SKU: "restricted", Price: 50}
	require.NoError(t, db.Create(&p).Error)
	seedCoupon(t, db, models.Coupon{
		Code: "ONLYONE", DiscountType: models.DiscountFixed, DiscountValue: 5,
		IsActive: true, CompatibleWithFreeShipping: true, ProductID: &p.ID,
	})

	matching := []models.CartItem{{ProductID: p.ID, Quantity: 1}}
	res := v.Validate("ONLYONE", decimal.NewFromInt(50), matching, false)
	require.True(t, res.Valid)

	other := []models.CartItem{{ProductID: p.ID + 1, Quantity: 1}}
	res = v.Validate("ONLYONE", decimal.NewFromInt(50), other, false)
	require.False(t, res.Valid)
	require.Contains(t, res.Error, "does not apply")
}

func TestApply_IncrementsUsageAndAttachesOrder(t *testing.T) {
	db := testDB(t)
	v := fixedValidator(t, db)
	c := seedCoupon(t, db, models.Coupon{
		Code: "ONCE", DiscountType: models.DiscountFixed, DiscountValue: 5,
		IsActive: true, CompatibleWithFreeShipping: true, MaxUses: intp(1),
	})
	order := models.Order{OrderRef: "test-ref", CustomerEmail: "a@b.c"}
	require.NoError(t, db.Create(&order).Error)

	require.NoError(t, v.Apply(nil, c.ID, order.ID))

	var reloaded models.Coupon
	require.NoError(t, db.First(&reloaded, c.ID).Error)
	require.Equal(t, 1, reloaded.CurrentUses)

	var reloadedOrder models.Order
	require.NoError(t, db.First(&reloadedOrder, order.ID).Error)
	require.NotNil(t, reloadedOrder.CouponID)
	require.Equal(t, c.ID, *reloadedOrder.CouponID)

	// Second apply exceeds max_uses and must fail without touching the counter.
	require.Error(t, v.Apply(nil, c.ID, order.ID))
	require.NoError(t, db.First(&reloaded, c.ID).Error)
	require.Equal(t, 1, reloaded.CurrentUses)
}
