package http

import (
	"net/http"

	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/pkg/httputil"
)

// PromoRequest is the JSON request body for applying a promo code.
type PromoRequest struct {
	Code string `json:"code"`
}

// GetCheckout handles GET /api/v1/checkout
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		// A failed load is reported on the cart state.
		v.Cart.EnsureLoaded(r.Context())
		httputil.WriteData(w, http.StatusOK, v.Checkout.State())
	})
}

// NextStep handles POST /api/v1/checkout/next
func (h *Handler) NextStep(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Checkout.Next(r.Context())
		httputil.WriteOutcome(w, res, v.Checkout.State())
	})
}

// PreviousStep handles POST /api/v1/checkout/back
func (h *Handler) PreviousStep(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Checkout.Back(r.Context())
		httputil.WriteOutcome(w, res, v.Checkout.State())
	})
}

// RestartCheckout handles POST /api/v1/checkout/restart
func (h *Handler) RestartCheckout(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		v.Checkout.Restart(r.Context())
		v.Shipping.Reset()
		httputil.WriteData(w, http.StatusOK, v.Checkout.State())
	})
}

// ApplyPromo handles POST /api/v1/checkout/promo
func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	var req PromoRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Checkout.ApplyPromo(r.Context(), req.Code)
		httputil.WriteOutcome(w, res, v.Checkout.State())
	})
}

// RemovePromo handles DELETE /api/v1/checkout/promo
func (h *Handler) RemovePromo(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		v.Checkout.RemovePromo()
		httputil.WriteData(w, http.StatusOK, v.Checkout.State())
	})
}
