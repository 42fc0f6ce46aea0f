// Package payment drives one checkout attempt from order creation through
// the provider's hosted checkout to backend verification.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/payment/provider"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/tracing"
	"github.com/utafrali/storefront/pkg/validator"
)

// Backend is the slice of the REST backend the orchestrator needs.
type Backend interface {
	CreateOrder(ctx context.Context, in backend.CreateOrderInput) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	CreatePaymentOrder(ctx context.Context, orderID, method string) (*domain.PaymentSession, error)
	VerifyPayment(ctx context.Context, orderID string, result domain.ProviderResult) error
	RecordPaymentFailure(ctx context.Context, orderID, reason string) error
	RetryPayment(ctx context.Context, orderID, method string) (*domain.PaymentSession, error)
}

// CartClearer empties the visitor's cart once a payment is verified.
type CartClearer interface {
	Clear(ctx context.Context) apperrors.Result
}

// Config holds orchestrator settings.
type Config struct {
	// SessionTTL is the time box of a provider session.
	SessionTTL time.Duration
	// ProviderMaxRetries caps the hosted checkout's own retries.
	ProviderMaxRetries int
	// FailureReportTimeout bounds the background failure report.
	FailureReportTimeout time.Duration
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		SessionTTL:           5 * time.Minute,
		ProviderMaxRetries:   3,
		FailureReportTimeout: 10 * time.Second,
	}
}

// CreateOrderInput is what CreateOrder needs.
type CreateOrderInput struct {
	ShippingAddressID string             `json:"shipping_address_id" validate:"required"`
	Items             []domain.OrderItem `json:"items" validate:"required,min=1,dive"`
}

// MethodInput selects a payment method.
type MethodInput struct {
	Method string `json:"method" validate:"required,oneof=card upi netbanking wallet"`
}

// State is what the UI renders for the payment step.
type State struct {
	State    domain.PaymentState    `json:"state"`
	Order    *domain.Order          `json:"order,omitempty"`
	Session  *domain.PaymentSession `json:"session,omitempty"`
	Method   string                 `json:"method,omitempty"`
	Attempts int                    `json:"attempts"`
	CanRetry bool                   `json:"can_retry"`
	Error    string                 `json:"error,omitempty"`
}

// Orchestrator is the payment state machine of one visitor.
type Orchestrator struct {
	visitorID string
	backend   Backend
	cart      CartClearer
	producer  *event.Producer
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time

	mu       sync.Mutex
	state    domain.PaymentState
	order    *domain.Order
	session  *domain.PaymentSession
	method   string
	attempts int
	err      string

	background sync.WaitGroup
}

// Deps groups the collaborators of an Orchestrator.
type Deps struct {
	VisitorID string
	Backend   Backend
	Cart      CartClearer
	Producer  *event.Producer
	Logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator in the idle state.
func NewOrchestrator(deps Deps, cfg Config) *Orchestrator {
	return &Orchestrator{
		visitorID: deps.VisitorID,
		backend:   deps.Backend,
		cart:      deps.Cart,
		producer:  deps.Producer,
		logger:    deps.Logger,
		cfg:       cfg,
		now:       time.Now,
		state:     domain.PaymentIdle,
	}
}

// State returns a snapshot.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := State{
		State:    o.state,
		Method:   o.method,
		Attempts: o.attempts,
		CanRetry: o.state.CanRetry(),
		Error:    o.err,
	}
	if o.order != nil {
		order := *o.order
		s.Order = &order
	}
	if o.session != nil {
		session := *o.session
		s.Session = &session
	}
	return s
}

// Current returns the current state.
func (o *Orchestrator) Current() domain.PaymentState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Verified reports whether the payment has been verified.
func (o *Orchestrator) Verified() bool {
	return o.Current() == domain.PaymentVerified
}

// Wait blocks until background failure reports have finished.
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

// guard checks that the current state accepts evt. Caller holds o.mu.
func (o *Orchestrator) guard(evt domain.PaymentEvent) error {
	if _, ok := o.state.Next(evt); !ok {
		return apperrors.Conflict(fmt.Sprintf("payment is %s and cannot accept %s", o.state, evt))
	}
	return nil
}

// fire applies evt. Caller holds o.mu and has guarded evt.
func (o *Orchestrator) fire(ctx context.Context, evt domain.PaymentEvent) {
	next, _ := o.state.Next(evt)
	o.logger.DebugContext(ctx, "payment transition",
		slog.String("from", string(o.state)),
		slog.String("event", string(evt)),
		slog.String("to", string(next)),
	)
	o.state = next
}

func (o *Orchestrator) fail(ctx context.Context, op string, err error) apperrors.Result {
	o.mu.Lock()
	o.err = apperrors.Message(err)
	o.mu.Unlock()
	o.logger.WarnContext(ctx, "payment operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return apperrors.ResultOf(err)
}

func (o *Orchestrator) check(evt domain.PaymentEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.guard(evt)
}

// CreateOrder creates the backend order for this attempt. A failure leaves
// the orchestrator idle; no partial order exists.
func (o *Orchestrator) CreateOrder(ctx context.Context, in CreateOrderInput) apperrors.Result {
	if err := validator.Validate(in); err != nil {
		return o.fail(ctx, "create_order", err)
	}
	if err := o.check(domain.EventOrderCreated); err != nil {
		return o.fail(ctx, "create_order", err)
	}

	ctx, span := tracing.Tracer("payment").Start(ctx, "payment.CreateOrder")
	defer span.End()

	order, err := o.backend.CreateOrder(ctx, backend.CreateOrderInput{
		ShippingAddressID: in.ShippingAddressID,
		Items:             in.Items,
	})
	if err != nil {
		tracing.RecordError(span, err)
		return o.fail(ctx, "create_order", err)
	}
	span.SetAttributes(attribute.String("order.id", order.ID))

	o.mu.Lock()
	o.order = order
	o.err = ""
	o.fire(ctx, domain.EventOrderCreated)
	o.mu.Unlock()

	o.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
	)

	// Publish event; log but do not fail on error.
	if err := o.producer.PublishOrderCreated(ctx, o.visitorID, order); err != nil {
		o.logger.ErrorContext(ctx, "failed to publish order created event", slog.String("error", err.Error()))
	}
	return apperrors.ResultOf(nil)
}

// CreatePaymentOrder mints the provider session for the order.
func (o *Orchestrator) CreatePaymentOrder(ctx context.Context, in MethodInput) apperrors.Result {
	if err := validator.Validate(in); err != nil {
		return o.fail(ctx, "create_payment_order", err)
	}
	if err := o.check(domain.EventProviderSessionCreated); err != nil {
		return o.fail(ctx, "create_payment_order", err)
	}
	orderID := o.orderID()

	ctx, span := tracing.Tracer("payment").Start(ctx, "payment.CreatePaymentOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("payment.method", in.Method))

	session, err := o.backend.CreatePaymentOrder(ctx, orderID, in.Method)
	if err != nil {
		tracing.RecordError(span, err)
		return o.fail(ctx, "create_payment_order", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.setSession(session, in.Method)
	o.fire(ctx, domain.EventProviderSessionCreated)
	return apperrors.ResultOf(nil)
}

// setSession stores a fresh session. Caller holds o.mu.
func (o *Orchestrator) setSession(session *domain.PaymentSession, method string) {
	session.ExpiresAt = o.now().Add(o.cfg.SessionTTL)
	o.session = session
	o.method = method
	o.attempts++
	o.err = ""
}

func (o *Orchestrator) orderID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.order == nil {
		return ""
	}
	return o.order.ID
}

// Open marks the hosted checkout as opened and returns what to open it
// with.
func (o *Orchestrator) Open(ctx context.Context) (*provider.CheckoutOptions, apperrors.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.guard(domain.EventProviderOpened); err != nil {
		o.err = apperrors.Message(err)
		return nil, apperrors.ResultOf(err)
	}
	o.fire(ctx, domain.EventProviderOpened)
	return &provider.CheckoutOptions{
		Session:    *o.session,
		Method:     o.method,
		MaxRetries: o.cfg.ProviderMaxRetries,
	}, apperrors.ResultOf(nil)
}

// Pay opens the hosted checkout of p and dispatches its outcome.
func (o *Orchestrator) Pay(ctx context.Context, p provider.Provider) apperrors.Result {
	opts, res := o.Open(ctx)
	if !res.Success {
		return res
	}

	outcome, err := p.Open(ctx, *opts)
	if err != nil {
		return o.HandleFailure(ctx, "payment provider error: "+err.Error())
	}
	switch outcome.Kind {
	case provider.OutcomeSucceeded:
		return o.HandleSuccess(ctx, outcome.Result)
	case provider.OutcomeCancelled:
		return o.HandleCancel(ctx, outcome.Reason)
	default:
		return o.HandleFailure(ctx, outcome.Reason)
	}
}

// HandleSuccess verifies the provider's callback with the backend. Only a
// verified payment clears the cart; a rejected one moves to failed and
// leaves the cart as it was.
func (o *Orchestrator) HandleSuccess(ctx context.Context, result domain.ProviderResult) apperrors.Result {
	if err := o.check(domain.EventProviderSucceeded); err != nil {
		return o.fail(ctx, "verify", err)
	}

	o.mu.Lock()
	orderID := o.order.ID
	expected := o.session.ProviderOrderID
	attempt := o.attempts
	o.mu.Unlock()

	ctx, span := tracing.Tracer("payment").Start(ctx, "payment.Verify")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	err := validator.Validate(result)
	if err == nil && result.ProviderOrderID != expected {
		err = apperrors.InvalidInput("payment does not belong to this checkout")
	}
	if err == nil {
		err = o.backend.VerifyPayment(ctx, orderID, result)
	}
	if err != nil {
		tracing.RecordError(span, err)
		outcomesTotal.WithLabelValues("verification_failed").Inc()
		o.logger.WarnContext(ctx, "payment verification failed",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
		o.toFailure(ctx, domain.EventProviderFailed, orderID, "verification failed", attempt)
		if apperrors.KindOf(err) == apperrors.KindBackend {
			return o.fail(ctx, "verify", apperrors.PaymentFailed("we could not confirm your payment, please retry"))
		}
		return o.fail(ctx, "verify", apperrors.PaymentFailed("payment verification failed, please retry"))
	}

	o.mu.Lock()
	o.fire(ctx, domain.EventProviderSucceeded)
	o.err = ""
	o.mu.Unlock()
	outcomesTotal.WithLabelValues("verified").Inc()

	o.logger.InfoContext(ctx, "payment verified",
		slog.String("order_id", orderID),
		slog.String("provider_payment_id", result.ProviderPaymentID),
	)

	if res := o.cart.Clear(ctx); !res.Success {
		o.logger.ErrorContext(ctx, "failed to clear cart after payment",
			slog.String("order_id", orderID),
			slog.String("error", res.Error),
		)
	}

	// Publish event; log but do not fail on error.
	if err := o.producer.PublishPaymentVerified(ctx, o.visitorID, event.PaymentVerifiedData{
		OrderID:           orderID,
		ProviderOrderID:   result.ProviderOrderID,
		ProviderPaymentID: result.ProviderPaymentID,
		Attempt:           attempt,
	}); err != nil {
		o.logger.ErrorContext(ctx, "failed to publish payment verified event", slog.String("error", err.Error()))
	}
	return apperrors.ResultOf(nil)
}

// HandleFailure records a provider-reported failure and offers a retry.
func (o *Orchestrator) HandleFailure(ctx context.Context, reason string) apperrors.Result {
	if reason == "" {
		reason = "payment failed"
	}
	return o.handleUnpaid(ctx, domain.EventProviderFailed, reason,
		apperrors.PaymentFailed(reason+", you can retry the payment"))
}

// HandleCancel records that the visitor dismissed the checkout or the
// session expired, and offers a retry.
func (o *Orchestrator) HandleCancel(ctx context.Context, reason string) apperrors.Result {
	if reason == "" {
		reason = "payment cancelled"
	}
	return o.handleUnpaid(ctx, domain.EventProviderCancelled, reason,
		apperrors.PaymentCancelled("payment was not completed, you can retry the payment"))
}

func (o *Orchestrator) handleUnpaid(ctx context.Context, evt domain.PaymentEvent, reason string, userErr error) apperrors.Result {
	if err := o.check(evt); err != nil {
		return o.fail(ctx, string(evt), err)
	}
	o.mu.Lock()
	orderID := o.order.ID
	attempt := o.attempts
	o.mu.Unlock()

	if evt == domain.EventProviderCancelled {
		outcomesTotal.WithLabelValues("cancelled").Inc()
	} else {
		outcomesTotal.WithLabelValues("failed").Inc()
	}
	o.toFailure(ctx, evt, orderID, reason, attempt)
	return o.fail(ctx, string(evt), userErr)
}

// toFailure moves to failed or cancelled and reports it in the background.
func (o *Orchestrator) toFailure(ctx context.Context, evt domain.PaymentEvent, orderID, reason string, attempt int) {
	o.mu.Lock()
	o.fire(ctx, evt)
	o.mu.Unlock()

	o.recordFailureAsync(ctx, orderID, reason)

	// Publish event; log but do not fail on error.
	if err := o.producer.PublishPaymentFailed(ctx, o.visitorID, event.PaymentFailedData{
		OrderID:   orderID,
		Reason:    reason,
		Cancelled: evt == domain.EventProviderCancelled,
		Attempt:   attempt,
	}); err != nil {
		o.logger.ErrorContext(ctx, "failed to publish payment failed event", slog.String("error", err.Error()))
	}
}

// recordFailureAsync reports a failure without blocking the caller. Its
// own failure is logged and never surfaced.
func (o *Orchestrator) recordFailureAsync(ctx context.Context, orderID, reason string) {
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.FailureReportTimeout)
	o.background.Add(1)
	go func() {
		defer o.background.Done()
		defer cancel()
		if err := o.backend.RecordPaymentFailure(bctx, orderID, reason); err != nil {
			failureReportsTotal.WithLabelValues("error").Inc()
			o.logger.WarnContext(bctx, "failed to record payment failure",
				slog.String("order_id", orderID),
				slog.String("kind", string(apperrors.KindBackground)),
				slog.String("error", err.Error()),
			)
			return
		}
		failureReportsTotal.WithLabelValues("recorded").Inc()
	}()
}

// Retry mints a fresh provider session for the same order.
func (o *Orchestrator) Retry(ctx context.Context, in MethodInput) apperrors.Result {
	if err := validator.Validate(in); err != nil {
		return o.fail(ctx, "retry", err)
	}
	if err := o.check(domain.EventRetryRequested); err != nil {
		return o.fail(ctx, "retry", err)
	}
	orderID := o.orderID()

	session, err := o.backend.RetryPayment(ctx, orderID, in.Method)
	if err != nil {
		return o.fail(ctx, "retry", err)
	}
	retriesTotal.Inc()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.setSession(session, in.Method)
	o.fire(ctx, domain.EventRetryRequested)
	o.logger.InfoContext(ctx, "payment retry session created",
		slog.String("order_id", orderID),
		slog.Int("attempt", o.attempts),
	)
	return apperrors.ResultOf(nil)
}

// ExpireIfStale cancels a checkout whose session time box has passed
// without a provider result. It reports whether it did.
func (o *Orchestrator) ExpireIfStale(ctx context.Context) bool {
	o.mu.Lock()
	stale := o.state == domain.PaymentAwaitingProviderResult && o.session != nil && o.session.Expired(o.now())
	o.mu.Unlock()
	if !stale {
		return false
	}
	o.HandleCancel(ctx, "payment session expired")
	return true
}

// Abandon gives up on the attempt. An unpaid backend order is cancelled
// best-effort, and the orchestrator returns to idle.
func (o *Orchestrator) Abandon(ctx context.Context) apperrors.Result {
	o.mu.Lock()
	state := o.state
	var orderID string
	if o.order != nil {
		orderID = o.order.ID
	}
	o.mu.Unlock()

	if orderID != "" && state != domain.PaymentVerified {
		if err := o.backend.CancelOrder(ctx, orderID); err != nil {
			o.logger.WarnContext(ctx, "failed to cancel abandoned order",
				slog.String("order_id", orderID),
				slog.String("error", err.Error()),
			)
		}
	}
	o.Reset()
	return apperrors.ResultOf(nil)
}

// Reset returns to idle for a new checkout attempt.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = domain.PaymentIdle
	o.order = nil
	o.session = nil
	o.method = ""
	o.attempts = 0
	o.err = ""
}
