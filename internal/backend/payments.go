package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/utafrali/storefront/internal/domain"
)

// paymentOrderResponse is what create-order and retry return.
type paymentOrderResponse struct {
	ProviderOrderID string `json:"razorpay_order_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	KeyID           string `json:"key_id"`
	OrderID         string `json:"order_id"`
}

func (r paymentOrderResponse) session(orderID string) *domain.PaymentSession {
	if r.OrderID != "" {
		orderID = r.OrderID
	}
	return &domain.PaymentSession{
		ProviderOrderID: r.ProviderOrderID,
		Amount:          r.Amount,
		Currency:        r.Currency,
		KeyID:           r.KeyID,
		OrderID:         orderID,
	}
}

// CreatePaymentOrder asks the backend to mint a provider payment order for
// an existing order.
func (c *Client) CreatePaymentOrder(ctx context.Context, orderID, method string) (*domain.PaymentSession, error) {
	var resp paymentOrderResponse
	err := c.send(ctx, call{
		method:   http.MethodPost,
		path:     "/payments/create-order",
		resource: "payment",
		body:     map[string]string{"order_id": orderID, "payment_method": method},
		out:      &resp,
	})
	if err != nil {
		return nil, err
	}
	return resp.session(orderID), nil
}

// VerifyPayment has the backend check the provider's signature and mark
// the order paid.
func (c *Client) VerifyPayment(ctx context.Context, orderID string, result domain.ProviderResult) error {
	return c.send(ctx, call{
		method:   http.MethodPost,
		path:     "/payments/verify",
		resource: "payment",
		body: map[string]string{
			"razorpay_order_id":   result.ProviderOrderID,
			"razorpay_payment_id": result.ProviderPaymentID,
			"razorpay_signature":  result.Signature,
			"order_id":            orderID,
		},
	})
}

// RecordPaymentFailure reports a failed or cancelled provider checkout.
func (c *Client) RecordPaymentFailure(ctx context.Context, orderID, reason string) error {
	return c.send(ctx, call{
		method:   http.MethodPost,
		path:     "/payments/failure",
		resource: "payment",
		body:     map[string]string{"order_id": orderID, "reason": reason},
	})
}

// RetryPayment mints a fresh provider payment order for the same order.
func (c *Client) RetryPayment(ctx context.Context, orderID, method string) (*domain.PaymentSession, error) {
	var resp paymentOrderResponse
	err := c.send(ctx, call{
		method:   http.MethodPost,
		path:     "/payments/retry/" + url.PathEscape(orderID),
		resource: "payment",
		body:     map[string]string{"payment_method": method},
		out:      &resp,
	})
	if err != nil {
		return nil, err
	}
	return resp.session(orderID), nil
}
