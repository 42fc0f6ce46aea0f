package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/internal/shipping"
	"github.com/utafrali/storefront/pkg/httputil"
)

// QuoteRequest is the JSON request body for a serviceability check. Blank
// fields are filled from the visitor's selected address and cart.
type QuoteRequest struct {
	DestinationPostalCode string  `json:"destination_postal_code"`
	WeightKg              float64 `json:"weight_kg"`
	IsCOD                 bool    `json:"is_cod"`
	DeclaredValue         int64   `json:"declared_value"`
}

// SelectCourierRequest is the JSON request body for choosing a courier.
type SelectCourierRequest struct {
	CourierID string `json:"courier_id" validate:"required"`
}

// GetShipping handles GET /api/v1/shipping
func (h *Handler) GetShipping(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		httputil.WriteData(w, http.StatusOK, v.Shipping.State())
	})
}

// QuoteShipping handles POST /api/v1/shipping/quote
func (h *Handler) QuoteShipping(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withVisitor(w, r, func(v *session.Visitor) {
		if req.DestinationPostalCode == "" {
			if addr := v.Addresses.Selected(); addr != nil {
				req.DestinationPostalCode = addr.PostalCode
			}
		}
		current := v.Cart.Cart()
		if req.WeightKg == 0 && current != nil {
			req.WeightKg = shipping.PackageWeight(current.Items, shipping.DefaultItemWeightKg)
		}
		if req.DeclaredValue == 0 && current != nil {
			req.DeclaredValue = current.Subtotal()
		}

		res := v.Shipping.Check(r.Context(), shipping.Request{
			DestinationPostalCode: req.DestinationPostalCode,
			WeightKg:              req.WeightKg,
			IsCOD:                 req.IsCOD,
			DeclaredValue:         req.DeclaredValue,
		})
		httputil.WriteOutcome(w, res, v.Shipping.State())
	})
}

// SelectCourier handles POST /api/v1/shipping/select
func (h *Handler) SelectCourier(w http.ResponseWriter, r *http.Request) {
	var req SelectCourierRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Shipping.Select(req.CourierID)
		httputil.WriteOutcome(w, res, v.Shipping.State())
	})
}

// TrackAWB handles GET /api/v1/shipping/track/awb/{awb}
func (h *Handler) TrackAWB(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		tracking, err := v.Tracker.ByAWB(r.Context(), chi.URLParam(r, "awb"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		httputil.WriteData(w, http.StatusOK, tracking)
	})
}

// TrackShipment handles GET /api/v1/shipping/track/shipment/{id}
func (h *Handler) TrackShipment(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		tracking, err := v.Tracker.ByShipment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		httputil.WriteData(w, http.StatusOK, tracking)
	})
}
