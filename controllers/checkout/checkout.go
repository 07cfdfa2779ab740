package checkoutControllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
	"github.com/jayb967/mirror-exhibit-api/services/cart"
	"github.com/jayb967/mirror-exhibit-api/services/coupon"
	"github.com/jayb967/mirror-exhibit-api/services/shipping"
	"github.com/jayb967/mirror-exhibit-api/services/stock"
	"github.com/jayb967/mirror-exhibit-api/services/tax"
)

// Deps bundles the pricing pipeline for the checkout handlers.
type Deps struct {
	DB       *gorm.DB
	Store    *cart.Store
	Stock    *stock.Validator
	Coupons  *coupon.Validator
	Shipping *shipping.Provider
	Notifier cart.Broadcaster
}

type PlaceOrderRequest struct {
	Email            string         `json:"email" binding:"required,email"`
	Address          models.Address `json:"address" binding:"required"`
	ShippingOptionID string         `json:"shipping_option_id" binding:"required"`
	CouponCode       string         `json:"coupon_code"`
}

func sessionFrom(c *gin.Context) cart.Session {
	sess := cart.Session{}
	if v, ok := c.Get("user_id"); ok {
		sess.UserID, _ = v.(string)
	}
	if v, ok := c.Get("guest_token"); ok {
		sess.GuestToken, _ = v.(string)
	}
	var body struct {
		LocalCart *cart.LocalCart `json:"local_cart"`
	}
	if err := c.ShouldBindBodyWithJSON(&body); err == nil && body.LocalCart != nil && len(body.LocalCart.Items) > 0 {
		sess.Local = body.LocalCart
	}
	return sess
}

// PlaceOrder assembles the final chargeable total — subtotal, tax, shipping
// cost and coupon discount — and creates the order the payment session will
// charge. The cart is cleared once the order exists.
//
// POST /api/orders
func PlaceOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PlaceOrderRequest
		if err := c.ShouldBindBodyWithJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		sess := sessionFrom(c)
		items, err := d.Store.GetCart(sess)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
			return
		}
		if len(items) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Your cart is empty"})
			return
		}

		validation, err := d.Stock.ValidateCart(items)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate stock"})
			return
		}
		if !validation.IsValid {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":         "Some items in your cart are no longer available",
				"invalid_items": validation.InvalidItems,
			})
			return
		}

		subtotal := models.CartSubtotal(items)
		shippingCost := decimal.NewFromFloat(
			d.Shipping.CalculateShippingCost(items, req.ShippingOptionID, &req.Address))
		taxAmount := tax.CalculateTax(items, &req.Address)

		freeShippingApplies := shippingCost.IsZero() && req.ShippingOptionID == "standard"
		discount := decimal.Zero
		var appliedCoupon *models.Coupon
		if req.CouponCode != "" {
			result := d.Coupons.Validate(req.CouponCode, subtotal, items, freeShippingApplies)
			if !result.Valid {
				c.JSON(http.StatusBadRequest, gin.H{"error": result.Error, "coupon": result.Coupon})
				return
			}
			discount = result.Discount
			appliedCoupon = result.Coupon
		}

		total := subtotal.Sub(discount).Add(taxAmount).Add(shippingCost).Round(2)
		if total.IsNegative() {
			total = decimal.Zero
		}

		order := models.Order{
			UserID:           sess.UserID,
			GuestToken:       sess.GuestToken,
			Subtotal:         subtotal.Round(2).InexactFloat64(),
			TaxAmount:        taxAmount.InexactFloat64(),
			ShippingCost:     shippingCost.InexactFloat64(),
			DiscountAmount:   discount.InexactFloat64(),
			TotalAmount:      total.InexactFloat64(),
			ShippingOptionID: req.ShippingOptionID,
			CustomerEmail:    req.Email,
			ShippingAddress:  req.Address,
			Status:           models.OrderStatusPending,
			PaymentStatus:    models.PaymentStatusPending,
			OrderRef:         generateOrderRef(),
		}
		for _, it := range items {
			order.Items = append(order.Items, models.OrderItem{
				ProductID:    it.ProductID,
				VariationID:  it.VariationID,
				SizeName:     it.SizeName,
				FrameName:    it.FrameName,
				ProductName:  it.ProductName,
				ProductImage: it.ProductImage,
				ProductPrice: it.ProductPrice,
				Weight:       it.Weight,
				Quantity:     it.Quantity,
			})
		}

		err = d.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&order).Error; err != nil {
				return fmt.Errorf("create order: %w", err)
			}
			if appliedCoupon != nil {
				if err := d.Coupons.Apply(tx, appliedCoupon.ID, order.ID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to place order"})
			return
		}

		if _, err := d.Store.ClearCart(sess); err == nil {
			// Reflect the cleared device snapshot back to the client.
			if sess.Local != nil {
				c.Header("X-Cart-Cleared", "1")
			}
		}

		if d.Notifier != nil {
			d.Notifier.Broadcast(gin.H{
				"event":     "order.placed",
				"order_ref": order.OrderRef,
				"total":     order.TotalAmount,
			})
		}

		c.JSON(http.StatusCreated, gin.H{
			"order_id":  order.ID,
			"order_ref": order.OrderRef,
			"subtotal":  order.Subtotal,
			"tax":       order.TaxAmount,
			"shipping":  order.ShippingCost,
			"discount":  order.DiscountAmount,
			"total":     order.TotalAmount,
		})
	}
}

func generateOrderRef() string {
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()
}

type ValidateCouponInput struct {
	Code                string            `json:"code" binding:"required"`
	Items               []models.CartItem `json:"items"`
	FreeShippingApplies bool              `json:"free_shipping_applies"`
}

// POST /api/coupons/validate
func ValidateCoupon(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ValidateCouponInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		items := input.Items
		if len(items) == 0 {
			items, _ = d.Store.GetCart(cart.Session{
				UserID:     c.GetString("user_id"),
				GuestToken: c.GetString("guest_token"),
			})
		}

		result := d.Coupons.Validate(input.Code, models.CartSubtotal(items), items, input.FreeShippingApplies)
		c.JSON(http.StatusOK, result)
	}
}

type TaxQuoteInput struct {
	Address models.Address    `json:"address" binding:"required"`
	Items   []models.CartItem `json:"items"`
}

// POST /api/tax/quote
func TaxQuote(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input TaxQuoteInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		items := input.Items
		if len(items) == 0 {
			items, _ = d.Store.GetCart(cart.Session{
				UserID:     c.GetString("user_id"),
				GuestToken: c.GetString("guest_token"),
			})
		}

		breakdown := tax.GetTaxBreakdown(items, &input.Address)
		c.JSON(http.StatusOK, gin.H{
			"rate":       breakdown.Rate,
			"amount":     breakdown.Amount,
			"label":      breakdown.Label,
			"tax_exempt": tax.IsTaxExempt(&input.Address),
		})
	}
}
