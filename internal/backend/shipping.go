package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/utafrali/storefront/internal/domain"
)

// ServiceabilityInput is the body of POST /shipping/serviceability.
type ServiceabilityInput struct {
	PickupPostcode   string  `json:"pickup_postcode"`
	DeliveryPostcode string  `json:"delivery_postcode"`
	WeightKg         float64 `json:"weight"`
	COD              bool    `json:"cod"`
	DeclaredValue    int64   `json:"declared_value,omitempty"`
}

type serviceabilityResponse struct {
	AvailableCouriers []domain.CourierOption `json:"available_couriers"`
}

// CheckServiceability lists couriers able to deliver the package.
func (c *Client) CheckServiceability(ctx context.Context, in ServiceabilityInput) ([]domain.CourierOption, error) {
	var resp serviceabilityResponse
	err := c.send(ctx, call{
		method:   http.MethodPost,
		path:     "/shipping/serviceability",
		resource: "shipping",
		body:     in,
		out:      &resp,
	})
	if err != nil {
		return nil, err
	}
	if resp.AvailableCouriers == nil {
		resp.AvailableCouriers = []domain.CourierOption{}
	}
	return resp.AvailableCouriers, nil
}

type shipmentResponse struct {
	ID              string                 `json:"id"`
	AWBCode         string                 `json:"awb_code"`
	CourierName     string                 `json:"courier_name"`
	Status          string                 `json:"status"`
	TrackingHistory []domain.TrackingEvent `json:"tracking_history"`
}

func (r shipmentResponse) shipment() *domain.Shipment {
	history := r.TrackingHistory
	if history == nil {
		history = []domain.TrackingEvent{}
	}
	return &domain.Shipment{
		ID:              r.ID,
		AWBCode:         r.AWBCode,
		CourierName:     r.CourierName,
		Status:          domain.ParseShipmentStatus(r.Status),
		TrackingHistory: history,
	}
}

// TrackShipment fetches tracking by shipment id.
func (c *Client) TrackShipment(ctx context.Context, shipmentID string) (*domain.Shipment, error) {
	return c.track(ctx, "/shipping/track/shipment/"+url.PathEscape(shipmentID))
}

// TrackAWB fetches tracking by AWB code.
func (c *Client) TrackAWB(ctx context.Context, awb string) (*domain.Shipment, error) {
	return c.track(ctx, "/shipping/track/awb/"+url.PathEscape(awb))
}

func (c *Client) track(ctx context.Context, path string) (*domain.Shipment, error) {
	var resp shipmentResponse
	if err := c.send(ctx, call{method: http.MethodGet, path: path, resource: "shipment", out: &resp}); err != nil {
		return nil, err
	}
	return resp.shipment(), nil
}
