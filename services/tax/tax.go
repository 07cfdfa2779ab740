// Package tax maps a tax jurisdiction and a taxable subtotal to a tax amount
// and a display label. Pure lookups against static rate tables; malformed
// input defaults to the zero rate.
package tax

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jayb967/mirror-exhibit-api/models"
)

// defaultRate applies when no address, no country or an unknown jurisdiction
// is given.
var defaultRate = decimal.Zero

// usStateRates holds the base sales-tax rate for the 50 states plus DC.
var usStateRates = map[string]float64{
	"AL": 0.04, "AK": 0, "AZ": 0.056, "AR": 0.065, "CA": 0.0725,
	"CO": 0.029, "CT": 0.0635, "DE": 0, "DC": 0.06, "FL": 0.06,
	"GA": 0.04, "HI": 0.04, "ID": 0.06, "IL": 0.0625, "IN": 0.07,
	"IA": 0.06, "KS": 0.065, "KY": 0.06, "LA": 0.0445, "ME": 0.055,
	"MD": 0.06, "MA": 0.0625, "MI": 0.06, "MN": 0.06875, "MS": 0.07,
	"MO": 0.04225, "MT": 0, "NE": 0.055, "NV": 0.0685, "NH": 0,
	"NJ": 0.06625, "NM": 0.05125, "NY": 0.04, "NC": 0.0475, "ND": 0.05,
	"OH": 0.0575, "OK": 0.045, "OR": 0, "PA": 0.06, "RI": 0.07,
	"SC": 0.06, "SD": 0.045, "TN": 0.07, "TX": 0.0625, "UT": 0.0485,
	"VT": 0.06, "VA": 0.053, "WA": 0.065, "WV": 0.06, "WI": 0.05,
	"WY": 0.04,
}

// countryRates covers the non-US countries the store ships to.
var countryRates = map[string]float64{
	"GB": 0.20, "DE": 0.19, "FR": 0.20, "IT": 0.22, "ES": 0.21,
	"NL": 0.21, "IE": 0.23, "BE": 0.21, "AT": 0.20, "PT": 0.23,
	"SE": 0.25, "DK": 0.25, "NO": 0.25, "FI": 0.24, "CH": 0.081,
	"CA": 0.05, "AU": 0.10, "NZ": 0.15, "JP": 0.10, "SG": 0.09,
	"AE": 0.05, "SA": 0.15,
}

// GetTaxRate resolves the rate for an address. US addresses resolve through
// the state table, other supported countries through the country table, and
// everything else (including a nil address) through the default rate.
func GetTaxRate(addr *models.Address) decimal.Decimal {
	if addr == nil || addr.Country == "" {
		return defaultRate
	}
	country := strings.ToUpper(strings.TrimSpace(addr.Country))
	if country == "US" {
		state := strings.ToUpper(strings.TrimSpace(addr.State))
		if rate, ok := usStateRates[state]; ok {
			return decimal.NewFromFloat(rate)
		}
		return defaultRate
	}
	if rate, ok := countryRates[country]; ok {
		return decimal.NewFromFloat(rate)
	}
	return defaultRate
}

// TaxableSubtotal sums price × quantity over the cart using each line's
// denormalized price; a missing price counts as zero.
func TaxableSubtotal(items []models.CartItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, it := range items {
		price := decimal.NewFromFloat(it.ProductPrice)
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return subtotal
}

// CalculateTax returns the tax amount for the cart at the address's rate,
// rounded to two decimal places.
func CalculateTax(items []models.CartItem, addr *models.Address) decimal.Decimal {
	return TaxableSubtotal(items).Mul(GetTaxRate(addr)).Round(2)
}

// Breakdown is a display-ready description of the applied tax.
type Breakdown struct {
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
	Label  string          `json:"label"`
}

// GetTaxBreakdown produces a locale-appropriate label such as
// "CA Sales Tax (7.25%)" or "VAT (20%)". Display only, no side effects.
func GetTaxBreakdown(items []models.CartItem, addr *models.Address) Breakdown {
	rate := GetTaxRate(addr)
	b := Breakdown{
		Rate:   rate,
		Amount: TaxableSubtotal(items).Mul(rate).Round(2),
	}
	percent := rate.Mul(decimal.NewFromInt(100))
	switch {
	case addr == nil || addr.Country == "":
		b.Label = "No Tax"
	case strings.EqualFold(addr.Country, "US"):
		state := strings.ToUpper(strings.TrimSpace(addr.State))
		if _, ok := usStateRates[state]; ok {
			b.Label = fmt.Sprintf("%s Sales Tax (%s%%)", state, percent.String())
		} else {
			b.Label = fmt.Sprintf("Sales Tax (%s%%)", percent.String())
		}
	case strings.EqualFold(addr.Country, "CA"):
		b.Label = fmt.Sprintf("GST (%s%%)", percent.String())
	case strings.EqualFold(addr.Country, "AU"), strings.EqualFold(addr.Country, "NZ"), strings.EqualFold(addr.Country, "SG"):
		b.Label = fmt.Sprintf("GST (%s%%)", percent.String())
	default:
		if rate.IsZero() {
			b.Label = "No Tax"
		} else {
			b.Label = fmt.Sprintf("VAT (%s%%)", percent.String())
		}
	}
	return b
}

// IsTaxExempt reports whether the resolved rate for the jurisdiction is
// exactly zero (e.g. states without a sales tax).
func IsTaxExempt(addr *models.Address) bool {
	return GetTaxRate(addr).IsZero()
}
