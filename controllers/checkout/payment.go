package checkoutControllers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jayb967/mirror-exhibit-api/models"
)

type CheckoutSessionInput struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// CreateCheckoutSession hands the order total to the hosted payment page and
// returns the redirect URL. The order itself was priced by PlaceOrder; the
// session charges exactly that total.
//
// POST /api/create-checkout-session
func CreateCheckoutSession(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CheckoutSessionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		var order models.Order
		if err := d.DB.Preload("Items").First(&order, "id = ?", input.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
			return
		}
		if order.PaymentStatus == models.PaymentStatusPaid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Order is already paid"})
			return
		}

		stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
		if stripe.Key == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payments are not configured"})
			return
		}

		amountCents := int64(order.TotalAmount*100 + 0.5)
		params := &stripe.CheckoutSessionParams{
			Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
			SuccessURL:        stripe.String(os.Getenv("CHECKOUT_SUCCESS_URL")),
			CancelURL:         stripe.String(os.Getenv("CHECKOUT_CANCEL_URL")),
			CustomerEmail:     stripe.String(order.CustomerEmail),
			ClientReferenceID: stripe.String(order.OrderRef),
			LineItems: []*stripe.CheckoutSessionLineItemParams{
				{
					PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
						Currency:   stripe.String("usd"),
						UnitAmount: stripe.Int64(amountCents),
						ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
							Name: stripe.String("Order " + order.OrderRef),
						},
					},
					Quantity: stripe.Int64(1),
				},
			},
		}

		s, err := session.New(params)
		if err != nil {
			slog.Error("checkout session creation failed", "order_ref", order.OrderRef, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create payment session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"url": s.URL, "session_id": s.ID})
	}
}

// Webhook confirms payment: the event signature is checked against the
// endpoint secret, then on a completed checkout session the order is marked
// paid and confirmed and stock is deducted under row locks.
//
// POST /api/checkout/webhook
func Webhook(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		if secret == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payments are not configured"})
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 65536))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read payload"})
			return
		}

		event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), secret)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook signature"})
			return
		}

		if event.Type != "checkout.session.completed" {
			c.JSON(http.StatusOK, gin.H{"message": "ignored"})
			return
		}

		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if s.ClientReferenceID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing order reference"})
			return
		}

		if err := confirmOrderPaid(d.DB, s.ClientReferenceID, s.ID); err != nil {
			slog.Error("failed to confirm order", "order_ref", s.ClientReferenceID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to confirm order"})
			return
		}

		if d.Notifier != nil {
			d.Notifier.Broadcast(gin.H{"event": "order.paid", "order_ref": s.ClientReferenceID})
		}
		c.JSON(http.StatusOK, gin.H{"message": "order confirmed"})
	}
}

// confirmOrderPaid marks the order paid and deducts stock for counted
// products. Made-to-order lines (nil stock) have nothing to deduct.
func confirmOrderPaid(db *gorm.DB, orderRef, paymentRef string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Items").Where("order_ref = ?", orderRef).First(&order).Error; err != nil {
			return err
		}
		if order.PaymentStatus == models.PaymentStatusPaid {
			return nil // webhook retries are expected
		}

		for _, item := range order.Items {
			var product models.Product
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&product, "id = ?", item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return err
			}
			if product.Stock == nil {
				continue
			}
			remaining := *product.Stock - item.Quantity
			if remaining < 0 {
				remaining = 0
			}
			if err := tx.Model(&product).Update("stock", remaining).Error; err != nil {
				return err
			}
		}

		return tx.Model(&order).Updates(map[string]any{
			"payment_status": models.PaymentStatusPaid,
			"status":         models.OrderStatusConfirmed,
			"payment_ref":    paymentRef,
		}).Error
	})
}
