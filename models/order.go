package models

import "time"

type OrderStatus string
type PaymentStatus string

const (
	OrderStatusPending     OrderStatus = "pending"
	OrderStatusConfirmed   OrderStatus = "confirmed"
	OrderStatusReadyToShip OrderStatus = "ready_to_ship"
	OrderStatusShipped     OrderStatus = "shipped"
	OrderStatusDelivered   OrderStatus = "delivered"
	OrderStatusReturned    OrderStatus = "returned"
	OrderStatusCancelled   OrderStatus = "cancelled"

	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type Order struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Exactly one of UserID / GuestToken identifies the buyer.
	UserID     string `gorm:"index" json:"user_id,omitempty"`
	GuestToken string `gorm:"index" json:"guest_token,omitempty"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`

	Subtotal       float64 `json:"subtotal"`
	TaxAmount      float64 `json:"tax_amount"`
	ShippingCost   float64 `json:"shipping_cost"`
	DiscountAmount float64 `json:"discount_amount"`
	TotalAmount    float64 `json:"total_amount"`

	ShippingOptionID string  `json:"shipping_option_id"`
	CouponID         *uint   `json:"coupon_id,omitempty"`
	Coupon           *Coupon `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`

	CustomerEmail   string  `json:"customer_email"`
	ShippingAddress Address `gorm:"embedded;embeddedPrefix:ship_" json:"shipping_address"`

	Status        OrderStatus   `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:VARCHAR(20);default:'pending'" json:"payment_status"`
	PaymentRef    string        `json:"payment_ref,omitempty"`
	OrderRef      string        `gorm:"uniqueIndex" json:"order_ref"`

	TrackingNumber string    `json:"tracking_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type OrderItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OrderID uint `gorm:"index" json:"order_id"`

	ProductID   uint   `json:"product_id"`
	VariationID string `json:"variation_id,omitempty"`
	SizeName    string `json:"size_name,omitempty"`
	FrameName   string `json:"frame_name,omitempty"`

	ProductName  string  `json:"product_name"`
	ProductImage string  `json:"product_image"`
	ProductPrice float64 `json:"product_price"`
	Weight       float64 `json:"weight"`
	Quantity     int     `json:"quantity"`
}
