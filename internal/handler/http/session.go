package http

import (
	"net/http"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/pkg/httputil"
)

type sessionState struct {
	VisitorID     string     `json:"visitor_id"`
	Authenticated bool       `json:"authenticated"`
	Subject       string     `json:"subject,omitempty"`
	Cart          cart.State `json:"cart"`
}

func describeSession(r *http.Request, v *session.Visitor) sessionState {
	return sessionState{
		VisitorID:     v.ID,
		Authenticated: v.Auth.Authenticated(r.Context()),
		Subject:       v.Auth.Subject(r.Context()),
		Cart:          v.Cart.State(),
	}
}

// GetSession handles GET /api/v1/session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		httputil.WriteData(w, http.StatusOK, describeSession(r, v))
	})
}

// SaveTokens handles POST /api/v1/session/tokens. The UI posts the tokens
// it received from the login endpoint; the guest cart is synced here.
func (h *Handler) SaveTokens(w http.ResponseWriter, r *http.Request) {
	var req auth.SaveTokensInput
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Login(r.Context(), req)
		httputil.WriteOutcome(w, res, describeSession(r, v))
	})
}

// Logout handles DELETE /api/v1/session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Logout(r.Context())
		httputil.WriteOutcome(w, res, nil)
	})
}
