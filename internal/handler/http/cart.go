package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/pkg/httputil"
)

// AddCartItemRequest is the JSON request body for adding a product.
type AddCartItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateCartItemRequest is the JSON request body for changing a quantity.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart handles GET /api/v1/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Cart.Load(r.Context())
		httputil.WriteOutcome(w, res, v.Cart.State())
	})
}

// AddCartItem handles POST /api/v1/cart/items
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Cart.Add(r.Context(), cart.AddItemInput{
			ProductID: req.ProductID,
			VariantID: req.VariantID,
			Quantity:  req.Quantity,
		})
		httputil.WriteOutcome(w, res, v.Cart.State())
	})
}

// UpdateCartItem handles PUT /api/v1/cart/items/{id}
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateCartItemRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Cart.Update(r.Context(), chi.URLParam(r, "id"), cart.UpdateItemInput{Quantity: req.Quantity})
		httputil.WriteOutcome(w, res, v.Cart.State())
	})
}

// RemoveCartItem handles DELETE /api/v1/cart/items/{id}
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Cart.Remove(r.Context(), chi.URLParam(r, "id"))
		httputil.WriteOutcome(w, res, v.Cart.State())
	})
}

// ClearCart handles DELETE /api/v1/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Cart.Clear(r.Context())
		httputil.WriteOutcome(w, res, v.Cart.State())
	})
}
