package adminControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
	"github.com/jayb967/mirror-exhibit-api/services/shipping"
)

// GET /admin/orders?status=&payment_status=
func ListOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Preload("Items").Preload("Coupon").Order("created_at DESC")
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if payment := c.Query("payment_status"); payment != "" {
			query = query.Where("payment_status = ?", payment)
		}

		var orders []models.Order
		if err := query.Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /admin/orders/:orderID
func GetOrder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var order models.Order
		err := db.Preload("Items").Preload("Coupon").First(&order, "id = ?", c.Param("orderID")).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

type OrderStatusInput struct {
	Status        string `json:"status" binding:"omitempty,oneof=pending confirmed ready_to_ship shipped delivered returned cancelled"`
	PaymentStatus string `json:"payment_status" binding:"omitempty,oneof=pending paid failed refunded"`
}

// PATCH /admin/orders/:orderID/status
func UpdateOrderStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input OrderStatusInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		if input.Status == "" && input.PaymentStatus == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
			return
		}

		updates := map[string]any{}
		if input.Status != "" {
			updates["status"] = input.Status
		}
		if input.PaymentStatus != "" {
			updates["payment_status"] = input.PaymentStatus
		}

		result := db.Model(&models.Order{}).Where("id = ?", c.Param("orderID")).Updates(updates)
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order updated"})
	}
}

// POST /admin/orders/:orderID/shipment
//
// Books a label for a paid order and stores the tracking number.
func CreateShipment(db *gorm.DB, provider *shipping.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			CourierID   string `json:"courier_id"`
			ContactName string `json:"contact_name"`
			Phone       string `json:"phone"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		var order models.Order
		if err := db.Preload("Items").First(&order, "id = ?", c.Param("orderID")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
			return
		}
		if order.PaymentStatus != models.PaymentStatusPaid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Order is not paid yet"})
			return
		}

		items := make([]models.CartItem, 0, len(order.Items))
		for _, it := range order.Items {
			items = append(items, models.CartItem{
				ProductID: it.ProductID,
				Weight:    it.Weight,
				Quantity:  it.Quantity,
			})
		}

		shipment, err := provider.CreateShipment(shipping.ShipmentRequest{
			OrderRef:    order.OrderRef,
			Destination: order.ShippingAddress,
			ContactName: input.ContactName,
			Email:       order.CustomerEmail,
			Phone:       input.Phone,
			Package:     shipping.EstimatePackage(items),
			CourierID:   input.CourierID,
		})
		if err != nil {
			if errors.Is(err, shipping.ErrDisabled) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Shipping integration is not configured"})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create shipment"})
			return
		}

		err = db.Model(&order).Updates(map[string]any{
			"tracking_number": shipment.TrackingNumber,
			"status":          models.OrderStatusReadyToShip,
		}).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save tracking number"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"shipment": shipment,
			"order_id": order.ID,
			"status":   models.OrderStatusReadyToShip,
		})
	}
}

// GET /admin/orders/export
func ExportOrdersToExcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var orders []models.Order
		if err := db.Preload("Items").Order("created_at DESC").Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Orders")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel sheet"})
			return
		}

		headers := []string{
			"ID", "OrderRef", "Email", "Status", "PaymentStatus",
			"Subtotal", "Tax", "Shipping", "Discount", "Total",
			"Items", "Country", "City", "TrackingNumber", "CreatedAt",
		}
		headerRow := sheet.AddRow()
		for _, h := range headers {
			headerRow.AddCell().SetValue(h)
		}

		for _, o := range orders {
			row := sheet.AddRow()

			row.AddCell().SetValue(o.ID)
			row.AddCell().SetValue(o.OrderRef)
			row.AddCell().SetValue(o.CustomerEmail)
			row.AddCell().SetValue(string(o.Status))
			row.AddCell().SetValue(string(o.PaymentStatus))
			row.AddCell().SetValue(o.Subtotal)
			row.AddCell().SetValue(o.TaxAmount)
			row.AddCell().SetValue(o.ShippingCost)
			row.AddCell().SetValue(o.DiscountAmount)
			row.AddCell().SetValue(o.TotalAmount)

			units := 0
			for _, it := range o.Items {
				units += it.Quantity
			}
			row.AddCell().SetValue(units)

			row.AddCell().SetValue(o.ShippingAddress.Country)
			row.AddCell().SetValue(o.ShippingAddress.City)
			row.AddCell().SetValue(o.TrackingNumber)
			row.AddCell().SetValue(o.CreatedAt.Format("2006-01-02 15:04:05"))
		}

		c.Header("Content-Disposition", "attachment; filename=orders.xlsx")
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Transfer-Encoding", "binary")
		c.Header("Expires", "0")

		if err := file.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
			return
		}
	}
}
