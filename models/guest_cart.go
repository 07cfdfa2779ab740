package models

import "time"

// GuestCart mirrors Cart for devices identified only by a guest token.
type GuestCart struct {
	CartID     uint            `gorm:"primaryKey" json:"cart_id"`
	GuestToken string          `gorm:"uniqueIndex" json:"guest_token"` // one cart per guest
	Items      []GuestCartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type GuestCartItem struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	CartID uint `gorm:"index" json:"cart_id"`

	ProductID   uint   `json:"product_id"`
	VariationID string `gorm:"index" json:"variation_id,omitempty"`
	SizeName    string `json:"size_name,omitempty"`
	FrameName   string `json:"frame_name,omitempty"`

	ProductName  string  `json:"product_name"`
	ProductImage string  `json:"product_image"`
	ProductPrice float64 `json:"product_price"`
	Weight       float64 `json:"weight"`

	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
}

// AsCartItem converts a guest line to the common cart line shape used by the
// pricing services.
func (i GuestCartItem) AsCartItem() CartItem {
	return CartItem{
		ID:           i.ID,
		ProductID:    i.ProductID,
		VariationID:  i.VariationID,
		SizeName:     i.SizeName,
		FrameName:    i.FrameName,
		ProductName:  i.ProductName,
		ProductImage: i.ProductImage,
		ProductPrice: i.ProductPrice,
		Weight:       i.Weight,
		Quantity:     i.Quantity,
		AddedAt:      i.AddedAt,
	}
}
