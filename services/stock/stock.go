package stock

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
)

// MadeToOrderStock is the availability reported for products without a stock
// count. Made-to-order mirrors are never out of stock.
const MadeToOrderStock = 999999

type Validator struct {
	db *gorm.DB
}

func NewValidator(db *gorm.DB) *Validator {
	return &Validator{db: db}
}

// Result is the outcome of a single-product stock check.
type Result struct {
	HasStock       bool   `json:"has_stock"`
	AvailableStock int    `json:"available_stock"`
	Message        string `json:"message,omitempty"`
}

// ItemResult extends Result with the quantity the cart is allowed to hold,
// so callers can clamp instead of rejecting when partial stock exists.
type ItemResult struct {
	Result
	AllowedQuantity int `json:"allowed_quantity"`
}

// InvalidItem describes a cart line that failed batch validation.
type InvalidItem struct {
	ProductID      uint   `json:"product_id"`
	ProductName    string `json:"product_name"`
	Requested      int    `json:"requested"`
	AvailableStock int    `json:"available_stock"`
}

// CartValidation is the outcome of validating a whole cart in one query.
type CartValidation struct {
	IsValid      bool          `json:"is_valid"`
	InvalidItems []InvalidItem `json:"invalid_items,omitempty"`
}

// CheckProductStock verifies that requested units of a product are available.
// Query failures fail closed: the stock is denied rather than assumed.
func (v *Validator) CheckProductStock(productID uint, requested int) Result {
	var product models.Product
	if err := v.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Result{HasStock: false, AvailableStock: 0, Message: "Product not found"}
		}
		slog.Error("stock check failed", "product_id", productID, "error", err)
		return Result{HasStock: false, AvailableStock: 0, Message: "Unable to verify stock, please try again"}
	}
	return checkAgainst(product, requested)
}

// CheckCartItemStock checks the combined quantity (what the cart already
// holds plus what is being added) and reports how many units the cart may
// hold in total.
func (v *Validator) CheckCartItemStock(productID uint, current, additional int) ItemResult {
	res := v.CheckProductStock(productID, current+additional)
	allowed := current + additional
	if res.AvailableStock < allowed {
		allowed = res.AvailableStock
	}
	return ItemResult{Result: res, AllowedQuantity: allowed}
}

// ValidateCart batch-checks every line in a single query. Lines whose product
// no longer exists are reported with zero availability.
func (v *Validator) ValidateCart(items []models.CartItem) (CartValidation, error) {
	if len(items) == 0 {
		return CartValidation{IsValid: true}, nil
	}

	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	var products []models.Product
	if err := v.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return CartValidation{IsValid: false}, fmt.Errorf("validate cart: %w", err)
	}

	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	validation := CartValidation{IsValid: true}
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			validation.IsValid = false
			validation.InvalidItems = append(validation.InvalidItems, InvalidItem{
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Requested:   it.Quantity,
			})
			continue
		}
		if res := checkAgainst(p, it.Quantity); !res.HasStock {
			validation.IsValid = false
			validation.InvalidItems = append(validation.InvalidItems, InvalidItem{
				ProductID:      it.ProductID,
				ProductName:    p.Name,
				Requested:      it.Quantity,
				AvailableStock: res.AvailableStock,
			})
		}
	}
	return validation, nil
}

func checkAgainst(product models.Product, requested int) Result {
	if product.Stock == nil {
		// Made to order: always available.
		return Result{HasStock: true, AvailableStock: MadeToOrderStock}
	}
	available := *product.Stock
	if available < requested {
		return Result{
			HasStock:       false,
			AvailableStock: available,
			Message:        fmt.Sprintf("Only %d of %s in stock", available, product.Name),
		}
	}
	return Result{HasStock: true, AvailableStock: available}
}
