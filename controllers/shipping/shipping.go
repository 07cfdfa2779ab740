package shippingControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jayb967/mirror-exhibit-api/models"
	"github.com/jayb967/mirror-exhibit-api/services/cart"
	"github.com/jayb967/mirror-exhibit-api/services/shipping"
)

type RatesInput struct {
	Address models.Address    `json:"address"`
	Items   []models.CartItem `json:"items"`
}

// POST /api/shipping/rates
//
// Quotes shipping options for an address and cart. Items may be posted
// directly (device-local carts) or resolved from the caller's session.
func GetRates(provider *shipping.Provider, store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RatesInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		items := input.Items
		if len(items) == 0 {
			sess := cart.Session{}
			if v, ok := c.Get("user_id"); ok {
				sess.UserID, _ = v.(string)
			}
			if v, ok := c.Get("guest_token"); ok {
				sess.GuestToken, _ = v.(string)
			}
			items, _ = store.GetCart(sess)
		}

		options := provider.GetShippingOptions(&input.Address, items)
		c.JSON(http.StatusOK, gin.H{"options": options})
	}
}

type CostInput struct {
	OptionID string            `json:"option_id" binding:"required"`
	Address  *models.Address   `json:"address"`
	Items    []models.CartItem `json:"items"`
}

// POST /api/shipping/cost
func CalculateCost(provider *shipping.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CostInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		cost := provider.CalculateShippingCost(input.Items, input.OptionID, input.Address)
		c.JSON(http.StatusOK, gin.H{"option_id": input.OptionID, "cost": cost})
	}
}

// POST /api/shipping/validate-address
func ValidateAddress(provider *shipping.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var addr models.Address
		if err := c.ShouldBindJSON(&addr); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		result, err := provider.ValidateAddress(addr)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, shipping.ErrDisabled) {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// GET /api/shipping/track/:number
func TrackShipment(provider *shipping.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := provider.TrackShipment(c.Param("number"))
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, shipping.ErrDisabled) {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}
