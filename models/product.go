package models

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID             uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string  `gorm:"not null" json:"name"`
	SKU            string  `gorm:"uniqueIndex" json:"sku"`
	Description    string  `json:"description"`
	Price          float64 `gorm:"not null" json:"price"`
	CompareAtPrice float64 `json:"compare_at_price"`
	Image          string  `json:"image"`
	Weight         float64 `json:"weight"` // kg, used for shipping estimation
	WidthCm        float64 `json:"width_cm"`
	HeightCm       float64 `json:"height_cm"`
	DepthCm        float64 `json:"depth_cm"`
	// Stock is nil for made-to-order mirrors: those are never out of stock.
	Stock      *int           `json:"stock"`
	Categories []Category     `gorm:"many2many:product_categories;" json:"categories,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
