package routes

import (
	"github.com/gin-gonic/gin"

	cartControllers "github.com/jayb967/mirror-exhibit-api/controllers/cart"
	"github.com/jayb967/mirror-exhibit-api/middleware"
)

// SetupCartRoutes registers the "/cart" endpoints. Identify resolves the
// caller to a user or guest when a token is present; anonymous requests fall
// through to the device cart carried in the cookie.
func SetupCartRoutes(r *gin.Engine, d Deps) {
	cartGroup := r.Group("/cart")
	cartGroup.Use(middleware.Identify)
	{
		cartGroup.GET("", cartControllers.GetCart(d.Store))
		cartGroup.POST("", cartControllers.AddToCart(d.Store))
		cartGroup.DELETE("", cartControllers.ClearCart(d.Store))
		cartGroup.PUT("/items/:item_id", cartControllers.UpdateQuantity(d.Store))
		cartGroup.DELETE("/items/:item_id", cartControllers.RemoveFromCart(d.Store))
	}

	// Post-login merge: requires a real user token, not a guest one.
	r.POST("/cart/sync", middleware.ValidateToken, cartControllers.SyncAfterLogin(d.Store))
}
