package shipping

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jayb967/mirror-exhibit-api/models"
)

// ErrDisabled is returned by shipment operations when the integration is not
// configured. Unlike rate quoting these have no safe fallback.
var ErrDisabled = errors.New("shipping integration is not configured")

type ShipmentRequest struct {
	OrderRef    string         `json:"order_ref"`
	Destination models.Address `json:"destination"`
	ContactName string         `json:"contact_name"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	Package     PackageDetails `json:"package"`
	CourierID   string         `json:"courier_id"`
}

type Shipment struct {
	ID             string `json:"id"`
	TrackingNumber string `json:"tracking_number"`
	LabelURL       string `json:"label_url"`
	Status         string `json:"status"`
}

type TrackingEvent struct {
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

type TrackingInfo struct {
	TrackingNumber    string          `json:"tracking_number"`
	Status            string          `json:"status"`
	EstimatedDelivery string          `json:"estimated_delivery,omitempty"`
	Events            []TrackingEvent `json:"events,omitempty"`
}

type AddressValidation struct {
	Valid    bool     `json:"valid"`
	Messages []string `json:"messages,omitempty"`
}

// CreateShipment books a label with the external provider. Errors propagate
// to the caller rather than being swallowed into a fallback.
func (p *Provider) CreateShipment(req ShipmentRequest) (*Shipment, error) {
	if !p.Enabled() {
		return nil, ErrDisabled
	}

	payload := struct {
		OrderRef    string           `json:"order_ref"`
		Destination wireAddress      `json:"destination_address"`
		Packages    []PackageDetails `json:"packages"`
		CourierID   string           `json:"courier_id"`
		Contact     struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Phone string `json:"phone"`
		} `json:"contact"`
	}{
		OrderRef:    req.OrderRef,
		Destination: toWireAddress(req.Destination),
		Packages:    []PackageDetails{req.Package},
		CourierID:   req.CourierID,
	}
	payload.Contact.Name = req.ContactName
	payload.Contact.Email = req.Email
	payload.Contact.Phone = req.Phone
	payload.Destination.ContactName = req.ContactName

	var shipment Shipment
	if err := p.doJSON(http.MethodPost, "/shipments", payload, &shipment); err != nil {
		return nil, fmt.Errorf("create shipment: %w", err)
	}
	return &shipment, nil
}

// TrackShipment fetches the provider's tracking state for a number.
func (p *Provider) TrackShipment(trackingNumber string) (*TrackingInfo, error) {
	if !p.Enabled() {
		return nil, ErrDisabled
	}
	var info TrackingInfo
	path := "/tracking/" + url.PathEscape(trackingNumber)
	if err := p.doJSON(http.MethodGet, path, nil, &info); err != nil {
		return nil, fmt.Errorf("track shipment %s: %w", trackingNumber, err)
	}
	return &info, nil
}

// ValidateAddress asks the provider whether an address is deliverable.
func (p *Provider) ValidateAddress(addr models.Address) (*AddressValidation, error) {
	if !p.Enabled() {
		return nil, ErrDisabled
	}
	var result AddressValidation
	payload := struct {
		Address wireAddress `json:"address"`
	}{Address: toWireAddress(addr)}
	if err := p.doJSON(http.MethodPost, "/addresses/validate", payload, &result); err != nil {
		return nil, fmt.Errorf("validate address: %w", err)
	}
	return &result, nil
}
