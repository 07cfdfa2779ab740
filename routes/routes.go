package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/services/cart"
	"github.com/jayb967/mirror-exhibit-api/services/coupon"
	"github.com/jayb967/mirror-exhibit-api/services/notify"
	"github.com/jayb967/mirror-exhibit-api/services/shipping"
	"github.com/jayb967/mirror-exhibit-api/services/stock"
)

// Deps carries the shared service instances the route groups wire into their
// handlers.
type Deps struct {
	DB       *gorm.DB
	Store    *cart.Store
	Stock    *stock.Validator
	Coupons  *coupon.Validator
	Shipping *shipping.Provider
	Hub      *notify.Hub
}

// SetupRoutes is the single entry point that wires up the public, cart,
// checkout, and admin route groups.
func SetupRoutes(r *gin.Engine, d Deps) {
	// Public catalog, quoting, and guest-token routes (no middleware)
	SetupPublicRoutes(r, d)

	// Cart routes (user JWT, guest token, or device snapshot)
	SetupCartRoutes(r, d)

	// Checkout and payment routes
	SetupCheckoutRoutes(r, d)

	// Admin routes (API-key protected)
	SetupAdminRoutes(r, d)
}
