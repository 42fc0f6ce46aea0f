package domain

import "time"

// PaymentState is a state of one checkout payment attempt.
type PaymentState string

const (
	PaymentIdle                   PaymentState = "idle"
	PaymentOrderCreated           PaymentState = "order_created"
	PaymentProviderOrderCreated   PaymentState = "payment_order_created"
	PaymentAwaitingProviderResult PaymentState = "awaiting_provider_result"
	PaymentVerified               PaymentState = "verified"
	PaymentFailed                 PaymentState = "failed"
	PaymentCancelled              PaymentState = "cancelled"
)

// PaymentEvent drives the payment state machine.
type PaymentEvent string

const (
	EventOrderCreated           PaymentEvent = "OrderCreated"
	EventProviderSessionCreated PaymentEvent = "ProviderSessionCreated"
	EventProviderOpened         PaymentEvent = "ProviderOpened"
	EventProviderSucceeded      PaymentEvent = "ProviderSucceeded"
	EventProviderFailed         PaymentEvent = "ProviderFailed"
	EventProviderCancelled      PaymentEvent = "ProviderCancelled"
	EventRetryRequested         PaymentEvent = "RetryRequested"
)

// PaymentTransitions lists, per state, the events it accepts and the state
// each leads to. Verified is terminal; failed and cancelled only accept a
// retry, which mints a new provider session for the same order.
func PaymentTransitions() map[PaymentState]map[PaymentEvent]PaymentState {
	return map[PaymentState]map[PaymentEvent]PaymentState{
		PaymentIdle: {
			EventOrderCreated: PaymentOrderCreated,
		},
		PaymentOrderCreated: {
			EventProviderSessionCreated: PaymentProviderOrderCreated,
		},
		PaymentProviderOrderCreated: {
			EventProviderOpened: PaymentAwaitingProviderResult,
		},
		PaymentAwaitingProviderResult: {
			EventProviderSucceeded: PaymentVerified,
			EventProviderFailed:    PaymentFailed,
			EventProviderCancelled: PaymentCancelled,
		},
		PaymentVerified: {},
		PaymentFailed: {
			EventRetryRequested: PaymentProviderOrderCreated,
		},
		PaymentCancelled: {
			EventRetryRequested: PaymentProviderOrderCreated,
		},
	}
}

var paymentTransitions = PaymentTransitions()

// Next returns the state that event leads to from s, and false when the
// event is not accepted in s.
func (s PaymentState) Next(event PaymentEvent) (PaymentState, bool) {
	next, ok := paymentTransitions[s][event]
	return next, ok
}

// CanRetry reports whether a retry may be requested from s.
func (s PaymentState) CanRetry() bool {
	_, ok := s.Next(EventRetryRequested)
	return ok
}

// PaymentSession is the provider-side payment order minted by the backend
// for one order. It lives only for the active checkout.
type PaymentSession struct {
	ProviderOrderID string    `json:"provider_order_id"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	KeyID           string    `json:"key_id,omitempty"`
	OrderID         string    `json:"order_id"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Expired reports whether the session's time box has elapsed at now.
func (s *PaymentSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// ProviderResult is the signed callback payload of a successful provider
// checkout.
type ProviderResult struct {
	ProviderOrderID   string `json:"provider_order_id" validate:"required"`
	ProviderPaymentID string `json:"provider_payment_id" validate:"required"`
	Signature         string `json:"signature" validate:"required"`
}

// Payment methods accepted by the backend.
const (
	PaymentMethodCard       = "card"
	PaymentMethodUPI        = "upi"
	PaymentMethodNetBanking = "netbanking"
	PaymentMethodWallet     = "wallet"
)
