package productControllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
)

// GET /products?category=<slug>
func GetProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Preload("Categories")
		if slug := c.Query("category"); slug != "" {
			query = query.
				Joins("JOIN product_categories pc ON pc.product_id = products.id").
				Joins("JOIN categories cat ON cat.id = pc.category_id").
				Where("cat.slug = ?", slug)
		}

		var products []models.Product
		if err := query.Find(&products).Error; err != nil {
			// Catalog reads are non-critical: degrade to an empty list.
			c.JSON(http.StatusOK, []models.Product{})
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

// GET /products/:id
func GetProductByID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var product models.Product
		if err := db.Preload("Categories").First(&product, "id = ?", c.Param("id")).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// GET /categories
func GetCategories(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var categories []models.Category
		if err := db.Find(&categories).Error; err != nil {
			c.JSON(http.StatusOK, []models.Category{})
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}
