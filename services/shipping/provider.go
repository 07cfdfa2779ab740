// Package shipping resolves shipping options and costs for a destination and
// package manifest via the Easyship rate API, with in-process response
// caching and static fallback rates when live rates cannot be obtained.
package shipping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/jayb967/mirror-exhibit-api/models"
)

const rateCacheTTL = 5 * time.Minute

// storeOrigin is the hardcoded warehouse address used when the settings row
// is missing or unreadable.
var storeOrigin = models.Address{
	Country:    "US",
	State:      "CA",
	City:       "Los Angeles",
	Street:     "2049 Pacific Ave",
	PostalCode: "90021",
}

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ConfigFromEnv reads the rate-provider configuration. An absent API key
// disables the integration entirely; quoting then uses fallback rates.
func ConfigFromEnv() Config {
	base := os.Getenv("EASYSHIP_API_URL")
	if base == "" {
		base = "https://api.easyship.com/v2"
	}
	return Config{
		APIKey:  os.Getenv("EASYSHIP_API_KEY"),
		BaseURL: strings.TrimRight(base, "/"),
		Timeout: 15 * time.Second,
	}
}

type Provider struct {
	cfg    Config
	db     *gorm.DB
	client *http.Client

	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time
}

type cacheEntry struct {
	options []Option
	at      time.Time
}

func NewProvider(db *gorm.DB, cfg Config) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Provider{
		cfg:    cfg,
		db:     db,
		client: &http.Client{Timeout: timeout},
		cache:  make(map[string]cacheEntry),
		now:    time.Now,
	}
}

// Enabled reports whether the external rate integration is configured.
func (p *Provider) Enabled() bool {
	return p.cfg.APIKey != ""
}

// Option is a quotable shipping choice. When the free-shipping policy
// applies, the standard option's price is zeroed and OriginalPrice keeps the
// pre-discount value for display.
type Option struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	Price          float64 `json:"price"`
	EstimatedDays  int     `json:"estimated_days"`
	CourierID      string  `json:"courier_id,omitempty"`
	ServiceType    string  `json:"service_type,omitempty"` // "standard" or "express"
	IsFreeShipping bool    `json:"is_free_shipping,omitempty"`
	OriginalPrice  float64 `json:"original_price,omitempty"`
}

// PackageDetails describes one shipment manifest entry. The whole cart is
// collapsed into a single package with estimated weight.
type PackageDetails struct {
	Weight        float64 `json:"weight"`
	WeightUnit    string  `json:"weight_unit"`
	Length        float64 `json:"length"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	DimensionUnit string  `json:"dimension_unit"`
}

// EstimatePackage builds the single aggregate package for a cart: one weight
// unit per item, never below 0.1.
func EstimatePackage(items []models.CartItem) PackageDetails {
	units := 0
	for _, it := range items {
		units += it.Quantity
	}
	weight := float64(units)
	if weight < 0.1 {
		weight = 0.1
	}
	return PackageDetails{
		Weight:        weight,
		WeightUnit:    "kg",
		Length:        90,
		Width:         15,
		Height:        70,
		DimensionUnit: "cm",
	}
}

type wireAddress struct {
	Line1       string `json:"line_1"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_alpha2"`
	ContactName string `json:"contact_name,omitempty"`
}

func toWireAddress(a models.Address) wireAddress {
	return wireAddress{
		Line1:       a.Street,
		City:        a.City,
		State:       a.State,
		PostalCode:  a.PostalCode,
		CountryCode: strings.ToUpper(a.Country),
	}
}

type rateRequest struct {
	OriginAddress      wireAddress      `json:"origin_address"`
	DestinationAddress wireAddress      `json:"destination_address"`
	Packages           []PackageDetails `json:"packages"`
}

type rateResponse struct {
	Rates []struct {
		CourierID       string  `json:"courier_id"`
		CourierName     string  `json:"courier_name"`
		ServiceType     string  `json:"service_type"`
		TotalCharge     float64 `json:"total_charge"`
		MinDeliveryTime int     `json:"min_delivery_time"`
		MaxDeliveryTime int     `json:"max_delivery_time"`
	} `json:"rates"`
}

// fetchRates requests live rates for an identical-quote window of 5 minutes.
// Responses are cached per normalized (origin, destination, package) tuple.
func (p *Provider) fetchRates(origin, dest models.Address, pkg PackageDetails) ([]Option, error) {
	key := cacheKey(origin, dest, pkg)

	p.mu.Lock()
	if entry, ok := p.cache[key]; ok && p.now().Sub(entry.at) < rateCacheTTL {
		opts := append([]Option(nil), entry.options...)
		p.mu.Unlock()
		return opts, nil
	}
	p.mu.Unlock()

	var resp rateResponse
	req := rateRequest{
		OriginAddress:      toWireAddress(origin),
		DestinationAddress: toWireAddress(dest),
		Packages:           []PackageDetails{pkg},
	}
	if err := p.doJSON(http.MethodPost, "/rates", req, &resp); err != nil {
		return nil, err
	}

	options := make([]Option, 0, len(resp.Rates))
	for _, r := range resp.Rates {
		serviceType := strings.ToLower(r.ServiceType)
		if serviceType == "" {
			serviceType = "standard"
		}
		days := r.MaxDeliveryTime
		if days == 0 {
			days = r.MinDeliveryTime
		}
		options = append(options, Option{
			ID:            r.CourierID,
			Name:          r.CourierName,
			Description:   fmt.Sprintf("%d-%d business days", r.MinDeliveryTime, r.MaxDeliveryTime),
			Price:         r.TotalCharge,
			EstimatedDays: days,
			CourierID:     r.CourierID,
			ServiceType:   serviceType,
		})
	}

	p.mu.Lock()
	p.cache[key] = cacheEntry{options: append([]Option(nil), options...), at: p.now()}
	p.mu.Unlock()

	return options, nil
}

// cacheKey normalizes the parts of a quote that affect pricing.
func cacheKey(origin, dest models.Address, pkg PackageDetails) string {
	norm := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	}
	return fmt.Sprintf("%s-%s|%s-%s|%.1f%s-%.0fx%.0fx%.0f%s",
		norm(origin.PostalCode), norm(origin.Country),
		norm(dest.PostalCode), norm(dest.Country),
		pkg.Weight, pkg.WeightUnit,
		pkg.Length, pkg.Width, pkg.Height, pkg.DimensionUnit,
	)
}

// fallbackOptions is the built-in two-tier rate table used when live rates
// are unavailable; price and lead time depend on whether the shipment
// crosses a border.
func fallbackOptions(originCountry, destCountry string) []Option {
	international := !strings.EqualFold(strings.TrimSpace(originCountry), strings.TrimSpace(destCountry))
	if international {
		return []Option{
			{ID: "standard", Name: "Standard International", Price: 29.90, EstimatedDays: 14, ServiceType: "standard"},
			{ID: "express", Name: "Express International", Price: 59.90, EstimatedDays: 5, ServiceType: "express"},
		}
	}
	return []Option{
		{ID: "standard", Name: "Standard Shipping", Price: 9.90, EstimatedDays: 7, ServiceType: "standard"},
		{ID: "express", Name: "Express Shipping", Price: 24.90, EstimatedDays: 2, ServiceType: "express"},
	}
}

// doJSON performs an authenticated round-trip against the rate API.
func (p *Provider) doJSON(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, p.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("shipping API unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("shipping API error (%d): %s", resp.StatusCode, string(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
