package adminControllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
)

// GET /admin/settings
func GetSettings(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var settings models.StoreSettings
		if err := db.First(&settings).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Settings not configured"})
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

// PUT /admin/settings
//
// Upserts the single settings row read at quote time.
func UpsertSettings(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.StoreSettings
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		input.ID = 1

		if err := db.Save(&input).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
			return
		}
		c.JSON(http.StatusOK, input)
	}
}

// POST /admin/free-shipping-rules
func CreateFreeShippingRule(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Scope     string  `json:"scope" binding:"required,oneof=country category product"`
			Match     string  `json:"match" binding:"required"`
			Threshold float64 `json:"threshold" binding:"gte=0"`
			Active    *bool   `json:"active"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		rule := models.FreeShippingRule{
			Scope:     models.FreeShippingRuleScope(input.Scope),
			Match:     input.Match,
			Threshold: input.Threshold,
			Active:    true,
		}
		if input.Active != nil {
			rule.Active = *input.Active
		}

		if err := db.Create(&rule).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create rule"})
			return
		}
		c.JSON(http.StatusCreated, rule)
	}
}

// GET /admin/free-shipping-rules
func ListFreeShippingRules(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rules []models.FreeShippingRule
		if err := db.Find(&rules).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rules"})
			return
		}
		c.JSON(http.StatusOK, rules)
	}
}

// DELETE /admin/free-shipping-rules/:ruleID
func DeleteFreeShippingRule(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := db.Delete(&models.FreeShippingRule{}, "id = ?", c.Param("ruleID"))
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete rule"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Rule deleted"})
	}
}
