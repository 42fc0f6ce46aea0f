// Package provider describes the hosted checkout of a payment gateway.
package provider

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// OutcomeKind is how a hosted checkout ended.
type OutcomeKind string

const (
	OutcomeSucceeded OutcomeKind = "succeeded"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeCancelled OutcomeKind = "cancelled"
)

// CheckoutOptions is what the hosted checkout is opened with.
type CheckoutOptions struct {
	Session domain.PaymentSession `json:"session"`
	Method  string                `json:"method"`
	// MaxRetries caps the attempts the checkout makes on its own before it
	// reports a failure.
	MaxRetries int `json:"max_retries"`
}

// Outcome is the result of one hosted checkout.
type Outcome struct {
	Kind   OutcomeKind
	Result domain.ProviderResult
	Reason string
}

// Provider runs a hosted checkout. Open blocks until the visitor finishes,
// dismisses the checkout, or the session expires; an expired session is
// reported as cancelled.
type Provider interface {
	Name() string
	Open(ctx context.Context, opts CheckoutOptions) (*Outcome, error)
}
