package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/payment"
	"github.com/utafrali/storefront/internal/payment/provider"
	"github.com/utafrali/storefront/internal/session"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// PaymentCallbackRequest is what the UI forwards when the hosted checkout
// closes.
type PaymentCallbackRequest struct {
	Outcome           string `json:"outcome" validate:"required,oneof=succeeded failed cancelled"`
	ProviderOrderID   string `json:"razorpay_order_id"`
	ProviderPaymentID string `json:"razorpay_payment_id"`
	Signature         string `json:"razorpay_signature"`
	Reason            string `json:"reason"`
}

// paymentView is the payment state plus what the UI needs to open the
// hosted checkout.
type paymentView struct {
	payment.State
	Checkout *provider.CheckoutOptions `json:"checkout,omitempty"`
}

// GetPayment handles GET /api/v1/payment. A checkout left open past its
// session time box is cancelled here.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		v.Payments.ExpireIfStale(r.Context())
		httputil.WriteData(w, http.StatusOK, paymentView{State: v.Payments.State()})
	})
}

// StartPayment handles POST /api/v1/payment/start: it creates the order,
// mints the provider session and returns the checkout options.
func (h *Handler) StartPayment(w http.ResponseWriter, r *http.Request) {
	var req payment.MethodInput
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Checkout.StartPayment(r.Context(), req)
		if !res.Success {
			httputil.WriteOutcome(w, res, paymentView{State: v.Payments.State()})
			return
		}
		opts, res := v.Payments.Open(r.Context())
		httputil.WriteOutcome(w, res, paymentView{State: v.Payments.State(), Checkout: opts})
	})
}

// PaymentCallback handles POST /api/v1/payment/callback
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req PaymentCallbackRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withVisitor(w, r, func(v *session.Visitor) {
		ctx := r.Context()
		var res apperrors.Result
		switch provider.OutcomeKind(req.Outcome) {
		case provider.OutcomeSucceeded:
			res = v.Payments.HandleSuccess(ctx, domain.ProviderResult{
				ProviderOrderID:   req.ProviderOrderID,
				ProviderPaymentID: req.ProviderPaymentID,
				Signature:         req.Signature,
			})
		case provider.OutcomeFailed:
			res = v.Payments.HandleFailure(ctx, req.Reason)
		default:
			res = v.Payments.HandleCancel(ctx, req.Reason)
		}
		httputil.WriteOutcome(w, res, paymentView{State: v.Payments.State()})
	})
}

// RetryPayment handles POST /api/v1/payment/retry
func (h *Handler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	var req payment.MethodInput
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Payments.Retry(r.Context(), req)
		if !res.Success {
			httputil.WriteOutcome(w, res, paymentView{State: v.Payments.State()})
			return
		}
		opts, res := v.Payments.Open(r.Context())
		httputil.WriteOutcome(w, res, paymentView{State: v.Payments.State(), Checkout: opts})
	})
}

// AbandonPayment handles POST /api/v1/payment/abandon
func (h *Handler) AbandonPayment(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		res := v.Payments.Abandon(r.Context())
		httputil.WriteOutcome(w, res, paymentView{State: v.Payments.State()})
	})
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	h.withVisitor(w, r, func(v *session.Visitor) {
		order, err := v.Orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		httputil.WriteData(w, http.StatusOK, order)
	})
}
