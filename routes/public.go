package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/jayb967/mirror-exhibit-api/auth"
	productControllers "github.com/jayb967/mirror-exhibit-api/controllers/product"
	shippingControllers "github.com/jayb967/mirror-exhibit-api/controllers/shipping"
	"github.com/jayb967/mirror-exhibit-api/middleware"
)

// SetupPublicRoutes registers the unauthenticated storefront endpoints.
func SetupPublicRoutes(r *gin.Engine, d Deps) {
	// Catalog
	r.GET("/products", productControllers.GetProducts(d.DB))
	r.GET("/products/:id", productControllers.GetProductByID(d.DB))
	r.GET("/categories", productControllers.GetCategories(d.DB))

	// Guest identity
	r.POST("/auth/guest", auth.CreateGuestUser(d.DB))

	// Shipping quotes and address checks. Identify is optional here: rates
	// can be quoted for an anonymous device cart sent in the body.
	shippingGroup := r.Group("/api/shipping")
	shippingGroup.Use(middleware.Identify)
	{
		shippingGroup.POST("/rates", shippingControllers.GetRates(d.Shipping, d.Store))
		shippingGroup.POST("/cost", shippingControllers.CalculateCost(d.Shipping))
		shippingGroup.POST("/validate-address", shippingControllers.ValidateAddress(d.Shipping))
		shippingGroup.GET("/track/:number", shippingControllers.TrackShipment(d.Shipping))
	}

	// Cart mutation events for storefront tabs
	r.GET("/ws/notifications", d.Hub.Handler())
}
