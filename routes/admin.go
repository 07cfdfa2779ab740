package routes

import (
	"github.com/gin-gonic/gin"

	adminControllers "github.com/jayb967/mirror-exhibit-api/controllers/admin"
	"github.com/jayb967/mirror-exhibit-api/middleware"
)

// SetupAdminRoutes registers all "/admin/*" endpoints. Requires API-key
// middleware.
func SetupAdminRoutes(r *gin.Engine, d Deps) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.ValidateAPIKey)
	{
		// Coupon management
		couponAdmin := adminGroup.Group("/coupons")
		{
			couponAdmin.POST("", adminControllers.CreateCoupon(d.DB))
			couponAdmin.GET("", adminControllers.ListCoupons(d.DB))
			couponAdmin.PUT("/:couponID", adminControllers.UpdateCoupon(d.DB))
			couponAdmin.DELETE("/:couponID", adminControllers.DeleteCoupon(d.DB))
		}

		// Store settings and free-shipping rules
		adminGroup.GET("/settings", adminControllers.GetSettings(d.DB))
		adminGroup.PUT("/settings", adminControllers.UpsertSettings(d.DB))
		ruleAdmin := adminGroup.Group("/free-shipping-rules")
		{
			ruleAdmin.POST("", adminControllers.CreateFreeShippingRule(d.DB))
			ruleAdmin.GET("", adminControllers.ListFreeShippingRules(d.DB))
			ruleAdmin.DELETE("/:ruleID", adminControllers.DeleteFreeShippingRule(d.DB))
		}

		// Order management
		orderAdmin := adminGroup.Group("/orders")
		{
			orderAdmin.GET("", adminControllers.ListOrders(d.DB))
			orderAdmin.GET("/export", adminControllers.ExportOrdersToExcel(d.DB))
			orderAdmin.GET("/:orderID", adminControllers.GetOrder(d.DB))
			orderAdmin.PATCH("/:orderID/status", adminControllers.UpdateOrderStatus(d.DB))
			orderAdmin.POST("/:orderID/shipment", adminControllers.CreateShipment(d.DB, d.Shipping))
		}
	}
}
