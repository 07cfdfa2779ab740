package routes

import (
	"github.com/gin-gonic/gin"

	checkoutControllers "github.com/jayb967/mirror-exhibit-api/controllers/checkout"
	"github.com/jayb967/mirror-exhibit-api/middleware"
)

// SetupCheckoutRoutes registers order placement, coupon/tax quoting, and the
// hosted-payment endpoints.
func SetupCheckoutRoutes(r *gin.Engine, d Deps) {
	deps := checkoutControllers.Deps{
		DB:       d.DB,
		Store:    d.Store,
		Stock:    d.Stock,
		Coupons:  d.Coupons,
		Shipping: d.Shipping,
		Notifier: d.Hub,
	}

	api := r.Group("/api")
	api.Use(middleware.Identify)
	{
		api.POST("/orders", checkoutControllers.PlaceOrder(deps))
		api.POST("/coupons/validate", checkoutControllers.ValidateCoupon(deps))
		api.POST("/tax/quote", checkoutControllers.TaxQuote(deps))
		api.POST("/create-checkout-session", checkoutControllers.CreateCheckoutSession(deps))
	}

	// Payment provider callback, no auth middleware.
	r.POST("/api/checkout/webhook", checkoutControllers.Webhook(deps))
}
