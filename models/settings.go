package models

import "time"

// StoreSettings is a single-row table read at quote time. When the row is
// missing the shipping provider falls back to hardcoded defaults.
type StoreSettings struct {
	ID                    uint    `gorm:"primaryKey" json:"id"`
	FreeShippingThreshold float64 `json:"free_shipping_threshold"`

	OriginName       string `json:"origin_name"`
	OriginStreet     string `json:"origin_street"`
	OriginCity       string `json:"origin_city"`
	OriginState      string `json:"origin_state"`
	OriginPostalCode string `json:"origin_postal_code"`
	OriginCountry    string `json:"origin_country"`
	OriginPhone      string `json:"origin_phone"`

	UpdatedAt time.Time `json:"updated_at"`
}

// OriginAddress returns the settings row's origin in the common address shape.
func (s StoreSettings) OriginAddress() Address {
	return Address{
		Country:    s.OriginCountry,
		State:      s.OriginState,
		City:       s.OriginCity,
		Street:     s.OriginStreet,
		PostalCode: s.OriginPostalCode,
	}
}

type FreeShippingRuleScope string

const (
	RuleScopeCountry  FreeShippingRuleScope = "country"
	RuleScopeCategory FreeShippingRuleScope = "category"
	RuleScopeProduct  FreeShippingRuleScope = "product"
)

// FreeShippingRule overrides the flat threshold for a matching country,
// category or product. The lowest matching threshold wins.
type FreeShippingRule struct {
	ID        uint                  `gorm:"primaryKey;autoIncrement" json:"id"`
	Scope     FreeShippingRuleScope `gorm:"type:VARCHAR(20);not null" json:"scope"`
	Match     string                `gorm:"not null" json:"match"` // country code, category id or product id
	Threshold float64               `json:"threshold"`
	Active    bool                  `gorm:"default:true" json:"active"`
	CreatedAt time.Time             `json:"created_at"`
}
