package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/pkg/httputil"
)

// ListAddresses handles GET /api/v1/addresses?type=shipping
func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addressType := domain.AddressType(r.URL.Query().Get("type"))
	if addressType == "" {
		addressType = domain.AddressTypeShipping
	}
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Addresses.List(r.Context(), addressType)
		httputil.WriteOutcome(w, res, v.Addresses.State())
	})
}

// CreateAddress handles POST /api/v1/addresses
func (h *Handler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var req domain.AddressInput
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Addresses.Create(r.Context(), req)
		httputil.WriteOutcome(w, res, v.Addresses.State())
	})
}

// UpdateAddress handles PUT /api/v1/addresses/{id}
func (h *Handler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	var req domain.AddressInput
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Addresses.Update(r.Context(), chi.URLParam(r, "id"), req)
		httputil.WriteOutcome(w, res, v.Addresses.State())
	})
}

// DeleteAddress handles DELETE /api/v1/addresses/{id}
func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Addresses.Delete(r.Context(), chi.URLParam(r, "id"))
		httputil.WriteOutcome(w, res, v.Addresses.State())
	})
}

// SetDefaultAddress handles POST /api/v1/addresses/{id}/default
func (h *Handler) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Addresses.SetDefault(r.Context(), chi.URLParam(r, "id"))
		httputil.WriteOutcome(w, res, v.Addresses.State())
	})
}

// SelectAddress handles POST /api/v1/addresses/{id}/select. Choosing a
// different address drops the courier quote made for the previous one.
func (h *Handler) SelectAddress(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		previous := v.Addresses.SelectedID()
		res := v.Addresses.Select(chi.URLParam(r, "id"))
		if res.Success && v.Addresses.SelectedID() != previous {
			v.Shipping.Reset()
		}
		httputil.WriteOutcome(w, res, v.Addresses.State())
	})
}
