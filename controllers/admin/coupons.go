package adminControllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
)

type CouponInput struct {
	Code                       string     `json:"code" binding:"required"`
	DiscountType               string     `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DiscountValue              float64    `json:"discount_value" binding:"required,gt=0"`
	MinPurchase                float64    `json:"min_purchase"`
	StartsAt                   *time.Time `json:"starts_at"`
	ExpiresAt                  *time.Time `json:"expires_at"`
	MaxUses                    *int       `json:"max_uses"`
	IsActive                   *bool      `json:"is_active"`
	CompatibleWithFreeShipping *bool      `json:"compatible_with_free_shipping"`
	CategoryID                 *uint      `json:"category_id"`
	ProductID                  *uint      `json:"product_id"`
}

// POST /admin/coupons
func CreateCoupon(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CouponInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		coupon := models.Coupon{
			Code:                       strings.ToUpper(strings.TrimSpace(input.Code)),
			DiscountType:               models.DiscountType(input.DiscountType),
			DiscountValue:              input.DiscountValue,
			MinPurchase:                input.MinPurchase,
			StartsAt:                   time.Now(),
			ExpiresAt:                  input.ExpiresAt,
			MaxUses:                    input.MaxUses,
			IsActive:                   true,
			CompatibleWithFreeShipping: true,
			CategoryID:                 input.CategoryID,
			ProductID:                  input.ProductID,
		}
		if input.StartsAt != nil {
			coupon.StartsAt = *input.StartsAt
		}
		if input.IsActive != nil {
			coupon.IsActive = *input.IsActive
		}
		if input.CompatibleWithFreeShipping != nil {
			coupon.CompatibleWithFreeShipping = *input.CompatibleWithFreeShipping
		}

		if err := db.Create(&coupon).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create coupon"})
			return
		}
		c.JSON(http.StatusCreated, coupon)
	}
}

// GET /admin/coupons
func ListCoupons(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var coupons []models.Coupon
		if err := db.Order("created_at DESC").Find(&coupons).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch coupons"})
			return
		}
		c.JSON(http.StatusOK, coupons)
	}
}

// PUT /admin/coupons/:couponID
func UpdateCoupon(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var coupon models.Coupon
		if err := db.First(&coupon, "id = ?", c.Param("couponID")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Coupon not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch coupon"})
			return
		}

		var input CouponInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		coupon.Code = strings.ToUpper(strings.TrimSpace(input.Code))
		coupon.DiscountType = models.DiscountType(input.DiscountType)
		coupon.DiscountValue = input.DiscountValue
		coupon.MinPurchase = input.MinPurchase
		coupon.ExpiresAt = input.ExpiresAt
		coupon.MaxUses = input.MaxUses
		coupon.CategoryID = input.CategoryID
		coupon.ProductID = input.ProductID
		if input.StartsAt != nil {
			coupon.StartsAt = *input.StartsAt
		}
		if input.IsActive != nil {
			coupon.IsActive = *input.IsActive
		}
		if input.CompatibleWithFreeShipping != nil {
			coupon.CompatibleWithFreeShipping = *input.CompatibleWithFreeShipping
		}

		if err := db.Save(&coupon).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update coupon"})
			return
		}
		c.JSON(http.StatusOK, coupon)
	}
}

// DELETE /admin/coupons/:couponID
func DeleteCoupon(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := db.Delete(&models.Coupon{}, "id = ?", c.Param("couponID"))
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete coupon"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Coupon not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Coupon deleted"})
	}
}
