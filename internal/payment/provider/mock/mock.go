package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/payment/provider"
)

// Behaviour selects how the mock checkout ends.
type Behaviour int

const (
	// Succeed completes the payment with a signed result.
	Succeed Behaviour = iota
	// Decline fails every attempt.
	Decline
	// Dismiss is the visitor closing the checkout.
	Dismiss
	// Abandon never finishes; the session time box ends it.
	Abandon
)

// Signer produces the callback signature for a payment.
type Signer func(providerOrderID, providerPaymentID string) string

// Provider is a scripted hosted checkout for development and tests.
type Provider struct {
	Behaviour Behaviour
	// FailedAttempts is how many attempts fail before Succeed takes
	// effect. Past the retry cap the checkout reports a failure.
	FailedAttempts int
	Signer         Signer

	now func() time.Time

	mu     sync.Mutex
	opened []provider.CheckoutOptions
}

// NewProvider creates a mock provider.
func NewProvider(b Behaviour, signer Signer) *Provider {
	if signer == nil {
		signer = func(string, string) string { return "mock_signature" }
	}
	return &Provider{Behaviour: b, Signer: signer, now: time.Now}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mock"
}

// Opened returns the options of every checkout opened so far.
func (p *Provider) Opened() []provider.CheckoutOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]provider.CheckoutOptions(nil), p.opened...)
}

// Open runs the scripted checkout.
func (p *Provider) Open(ctx context.Context, opts provider.CheckoutOptions) (*provider.Outcome, error) {
	p.mu.Lock()
	p.opened = append(p.opened, opts)
	p.mu.Unlock()

	if opts.Session.ProviderOrderID == "" {
		return nil, fmt.Errorf("mock provider: session has no provider order id")
	}
	if opts.Session.Expired(p.now()) {
		return &provider.Outcome{Kind: provider.OutcomeCancelled, Reason: "payment session expired"}, nil
	}

	switch p.Behaviour {
	case Dismiss:
		return &provider.Outcome{Kind: provider.OutcomeCancelled, Reason: "checkout dismissed"}, nil
	case Decline:
		return &provider.Outcome{Kind: provider.OutcomeFailed, Reason: "payment declined by bank"}, nil
	case Abandon:
		return p.waitForExpiry(ctx, opts.Session)
	}

	attempts := opts.MaxRetries + 1
	if p.FailedAttempts >= attempts {
		return &provider.Outcome{
			Kind:   provider.OutcomeFailed,
			Reason: fmt.Sprintf("payment failed after %d attempts", attempts),
		}, nil
	}

	paymentID := "pay_" + uuid.New().String()
	return &provider.Outcome{
		Kind: provider.OutcomeSucceeded,
		Result: domain.ProviderResult{
			ProviderOrderID:   opts.Session.ProviderOrderID,
			ProviderPaymentID: paymentID,
			Signature:         p.Signer(opts.Session.ProviderOrderID, paymentID),
		},
	}, nil
}

func (p *Provider) waitForExpiry(ctx context.Context, session domain.PaymentSession) (*provider.Outcome, error) {
	if session.ExpiresAt.IsZero() {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	timer := time.NewTimer(session.ExpiresAt.Sub(p.now()))
	defer timer.Stop()
	select {
	case <-timer.C:
		return &provider.Outcome{Kind: provider.OutcomeCancelled, Reason: "payment session expired"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
