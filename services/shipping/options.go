package shipping

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jayb967/mirror-exhibit-api/models"
)

// defaultFreeShippingThreshold applies when no settings row and no rule
// matches.
const defaultFreeShippingThreshold = 150.0

// staticOptionPrices resolves a selected option's cost when no usable
// address is available to quote against.
var staticOptionPrices = map[string]float64{
	"standard": 9.90,
	"express":  24.90,
	"pickup":   0,
}

// GetShippingOptions resolves quotable options for a destination and cart.
//
// Destination rule: without a country and postal code no quote is possible
// and an empty slice is returned — callers fall back to their own static UI
// options. With a destination, live rates are used when the integration is
// configured and reachable; otherwise the built-in fallback table, so a
// priced quote always exists once an address does. The free-shipping policy
// is applied to whichever set is returned.
func (p *Provider) GetShippingOptions(addr *models.Address, items []models.CartItem) []Option {
	if addr == nil || strings.TrimSpace(addr.Country) == "" || strings.TrimSpace(addr.PostalCode) == "" {
		return []Option{}
	}

	origin := p.originAddress()
	var options []Option
	if !p.Enabled() {
		options = fallbackOptions(origin.Country, addr.Country)
	} else {
		fetched, err := p.fetchRates(origin, *addr, EstimatePackage(items))
		if err != nil || len(fetched) == 0 {
			if err != nil {
				slog.Warn("live rates unavailable, using fallback table", "error", err)
			}
			options = fallbackOptions(origin.Country, addr.Country)
		} else {
			options = fetched
		}
	}

	subtotal := models.CartSubtotal(items)
	threshold := p.freeShippingThreshold(addr, items)
	return applyFreeShipping(options, subtotal, threshold)
}

// CalculateShippingCost re-derives free-shipping eligibility and resolves the
// selected option's price. Standard-tier selections ship free when the order
// qualifies; without a usable address the static per-ID table answers.
func (p *Provider) CalculateShippingCost(items []models.CartItem, optionID string, addr *models.Address) float64 {
	subtotal := models.CartSubtotal(items)
	threshold := p.freeShippingThreshold(addr, items)
	if qualifiesForFreeShipping(subtotal, threshold) && optionID == "standard" {
		return 0
	}

	options := p.GetShippingOptions(addr, items)
	for _, o := range options {
		if o.ID == optionID {
			return o.Price
		}
	}

	if price, ok := staticOptionPrices[optionID]; ok {
		return price
	}
	return staticOptionPrices["standard"]
}

// originAddress reads the store origin from settings, falling back to the
// hardcoded warehouse address.
func (p *Provider) originAddress() models.Address {
	var settings models.StoreSettings
	if err := p.db.First(&settings).Error; err != nil {
		return storeOrigin
	}
	origin := settings.OriginAddress()
	if origin.Country == "" || origin.PostalCode == "" {
		return storeOrigin
	}
	return origin
}

// freeShippingThreshold resolves the effective threshold: the lowest active
// matching rule wins, then the settings row, then the built-in default.
func (p *Provider) freeShippingThreshold(addr *models.Address, items []models.CartItem) decimal.Decimal {
	var rules []models.FreeShippingRule
	if err := p.db.Where("active = ?", true).Find(&rules).Error; err == nil && len(rules) > 0 {
		if t, ok := p.lowestMatchingThreshold(rules, addr, items); ok {
			return t
		}
	}

	var settings models.StoreSettings
	if err := p.db.First(&settings).Error; err == nil && settings.FreeShippingThreshold > 0 {
		return decimal.NewFromFloat(settings.FreeShippingThreshold)
	}
	return decimal.NewFromFloat(defaultFreeShippingThreshold)
}

func (p *Provider) lowestMatchingThreshold(rules []models.FreeShippingRule, addr *models.Address, items []models.CartItem) (decimal.Decimal, bool) {
	productIDs := make(map[string]bool, len(items))
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		productIDs[strconv.FormatUint(uint64(it.ProductID), 10)] = true
		ids = append(ids, it.ProductID)
	}

	var categoryIDs map[string]bool
	lowest := decimal.Zero
	found := false
	for _, rule := range rules {
		matched := false
		switch rule.Scope {
		case models.RuleScopeCountry:
			matched = addr != nil && strings.EqualFold(rule.Match, addr.Country)
		case models.RuleScopeProduct:
			matched = productIDs[rule.Match]
		case models.RuleScopeCategory:
			if categoryIDs == nil {
				categoryIDs = p.cartCategoryIDs(ids)
			}
			matched = categoryIDs[rule.Match]
		}
		if !matched {
			continue
		}
		t := decimal.NewFromFloat(rule.Threshold)
		if !found || t.LessThan(lowest) {
			lowest = t
			found = true
		}
	}
	return lowest, found
}

// cartCategoryIDs collects the category ids the cart's products belong to.
func (p *Provider) cartCategoryIDs(productIDs []uint) map[string]bool {
	out := make(map[string]bool)
	if len(productIDs) == 0 {
		return out
	}
	var catIDs []uint
	err := p.db.Table("product_categories").
		Where("product_id IN ?", productIDs).
		Pluck("category_id", &catIDs).Error
	if err != nil {
		slog.Warn("category rule lookup failed", "error", err)
		return out
	}
	for _, id := range catIDs {
		out[strconv.FormatUint(uint64(id), 10)] = true
	}
	return out
}

// A zero threshold comes only from a matched rule and means shipping is
// always free for that match.
func qualifiesForFreeShipping(subtotal, threshold decimal.Decimal) bool {
	return !threshold.IsNegative() && subtotal.GreaterThanOrEqual(threshold)
}

// applyFreeShipping zeroes the standard-tier option when the order
// qualifies, preserving the pre-discount price for display.
func applyFreeShipping(options []Option, subtotal, threshold decimal.Decimal) []Option {
	if !qualifiesForFreeShipping(subtotal, threshold) {
		return options
	}
	for i := range options {
		if options[i].ServiceType == "standard" {
			options[i].OriginalPrice = options[i].Price
			options[i].Price = 0
			options[i].IsFreeShipping = true
			break
		}
	}
	return options
}
