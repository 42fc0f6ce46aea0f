// Package checkout implements the linear checkout wizard and its order
// summary.
package checkout

import (
	"context"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/payment"
	"github.com/utafrali/storefront/internal/shipping"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// CartView exposes the visitor's current cart. EnsureLoaded fetches it
// when the visitor has not touched it since the session was rebuilt.
type CartView interface {
	Cart() *domain.Cart
	EnsureLoaded(ctx context.Context) apperrors.Result
}

// AddressSelection exposes the address chosen for delivery.
type AddressSelection interface {
	SelectedID() string
	Selected() *domain.Address
}

// ShippingQuote exposes the latest courier quote, if any.
type ShippingQuote interface {
	Quote() *shipping.Quote
}

// Payments is the part of the payment orchestrator the wizard drives.
type Payments interface {
	Current() domain.PaymentState
	Verified() bool
	CreateOrder(ctx context.Context, in payment.CreateOrderInput) apperrors.Result
	CreatePaymentOrder(ctx context.Context, in payment.MethodInput) apperrors.Result
	Abandon(ctx context.Context) apperrors.Result
	Reset()
}

// Deps groups the collaborators of a Controller.
type Deps struct {
	VisitorID string
	Cart      CartView
	Addresses AddressSelection
	Shipping  ShippingQuote
	Payments  Payments
	Producer  *event.Producer
	Logger    *slog.Logger
}

// State is what the UI renders for the wizard.
type State struct {
	Step         domain.CheckoutStep   `json:"step"`
	Steps        []domain.CheckoutStep `json:"steps"`
	CanAdvance   bool                  `json:"can_advance"`
	PaymentState domain.PaymentState   `json:"payment_state"`
	Pricing      Pricing               `json:"pricing"`
	Error        string                `json:"error,omitempty"`
}

// Controller gates progress through cart, address, payment and
// confirmation.
type Controller struct {
	deps    Deps
	pricing PricingConfig

	mu    sync.Mutex
	step  domain.CheckoutStep
	promo string
	err   string
}

// NewController creates a wizard positioned on the cart step.
func NewController(deps Deps, pricing PricingConfig) *Controller {
	return &Controller{deps: deps, pricing: pricing, step: domain.StepCart}
}

// Step returns the current step.
func (c *Controller) Step() domain.CheckoutStep {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// State returns a snapshot including the order summary.
func (c *Controller) State() State {
	c.mu.Lock()
	step, errMsg := c.step, c.err
	c.mu.Unlock()

	return State{
		Step:         step,
		Steps:        append([]domain.CheckoutStep(nil), domain.CheckoutSteps...),
		CanAdvance:   c.guard(step) == nil,
		PaymentState: c.deps.Payments.Current(),
		Pricing:      c.Pricing(),
		Error:        errMsg,
	}
}

// Pricing returns the order summary for the current cart, courier and
// promo code.
func (c *Controller) Pricing() Pricing {
	c.mu.Lock()
	promo := c.promo
	c.mu.Unlock()

	var subtotal, cost int64
	if cart := c.deps.Cart.Cart(); cart != nil {
		subtotal = cart.Subtotal()
	}
	if q, _ := c.quote(); q != nil {
		cost = q.ShippingCost()
	}
	return c.pricing.Price(subtotal, cost, promo)
}

// quote returns the courier quote when it was priced for the selected
// address and the current package weight. stale is true when a quote
// exists but no longer matches.
func (c *Controller) quote() (q *shipping.Quote, stale bool) {
	q = c.deps.Shipping.Quote()
	if q == nil {
		return nil, false
	}
	var weight float64
	if cart := c.deps.Cart.Cart(); cart != nil {
		weight = shipping.PackageWeight(cart.Items, shipping.DefaultItemWeightKg)
	}
	addr := c.deps.Addresses.Selected()
	if addr == nil || !q.Covers(addr.PostalCode, weight) {
		return nil, true
	}
	return q, false
}

// guard reports why the wizard cannot leave step, or nil.
func (c *Controller) guard(step domain.CheckoutStep) error {
	switch step {
	case domain.StepCart:
		if c.deps.Cart.Cart().IsEmpty() {
			return apperrors.InvalidInput("your cart is empty")
		}
	case domain.StepAddress:
		if c.deps.Addresses.SelectedID() == "" {
			return apperrors.InvalidInput("select a delivery address to continue")
		}
	case domain.StepPayment:
		if !c.deps.Payments.Verified() {
			return apperrors.InvalidInput("complete the payment to continue")
		}
	default:
		return apperrors.Conflict("checkout is already complete")
	}
	return nil
}

// Next advances one step when the current step's guard allows it.
func (c *Controller) Next(ctx context.Context) apperrors.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.step
	if from == domain.StepCart {
		if res := c.deps.Cart.EnsureLoaded(ctx); !res.Success {
			c.err = res.Error
			return res
		}
	}
	if err := c.guard(from); err != nil {
		guardRejectionsTotal.WithLabelValues(string(from)).Inc()
		return c.fail(ctx, "next", err)
	}
	c.move(ctx, from, domain.CheckoutSteps[from.Index()+1])
	return apperrors.ResultOf(nil)
}

// Back returns to the previous step. Leaving the payment step abandons an
// unpaid attempt so a fresh order is created on return.
func (c *Controller) Back(ctx context.Context) apperrors.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.step
	switch from {
	case domain.StepCart:
		return c.fail(ctx, "back", apperrors.InvalidInput("already at the first step"))
	case domain.StepConfirmation:
		return c.fail(ctx, "back", apperrors.Conflict("checkout is already complete"))
	case domain.StepPayment:
		if c.deps.Payments.Current() != domain.PaymentIdle {
			c.deps.Payments.Abandon(ctx)
		}
	}
	c.move(ctx, from, domain.CheckoutSteps[from.Index()-1])
	return apperrors.ResultOf(nil)
}

// move changes step. Caller holds c.mu.
func (c *Controller) move(ctx context.Context, from, to domain.CheckoutStep) {
	c.step = to
	c.err = ""
	stepTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	c.deps.Logger.InfoContext(ctx, "checkout step changed",
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)

	// Publish event; log but do not fail on error.
	if err := c.deps.Producer.PublishCheckoutAdvanced(ctx, c.deps.VisitorID, event.CheckoutAdvancedData{From: from, To: to}); err != nil {
		c.deps.Logger.ErrorContext(ctx, "failed to publish checkout advanced event", slog.String("error", err.Error()))
	}
}

// fail records err for the UI. Caller holds c.mu.
func (c *Controller) fail(ctx context.Context, op string, err error) apperrors.Result {
	c.err = apperrors.Message(err)
	c.deps.Logger.DebugContext(ctx, "checkout operation refused",
		slog.String("op", op),
		slog.String("step", string(c.step)),
		slog.String("error", err.Error()),
	)
	return apperrors.ResultOf(err)
}

// StartPayment creates the backend order for the cart and selected
// address, then mints a provider session for it. It is only available on
// the payment step and requires a courier chosen for the selected address
// and current cart. An order that already exists for this attempt is
// reused.
func (c *Controller) StartPayment(ctx context.Context, in payment.MethodInput) apperrors.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != domain.StepPayment {
		return c.fail(ctx, "start_payment", apperrors.Conflict("payment is not available at the "+string(c.step)+" step"))
	}
	if err := validator.Validate(in); err != nil {
		return c.fail(ctx, "start_payment", err)
	}
	if res := c.deps.Cart.EnsureLoaded(ctx); !res.Success {
		c.err = res.Error
		return res
	}
	q, stale := c.quote()
	if stale {
		return c.fail(ctx, "start_payment", apperrors.InvalidInput("your address or cart changed, check shipping options again"))
	}
	if q.Selected() == nil {
		return c.fail(ctx, "start_payment", apperrors.InvalidInput("select a shipping option to continue"))
	}

	if c.deps.Payments.Current() == domain.PaymentIdle {
		res := c.deps.Payments.CreateOrder(ctx, payment.CreateOrderInput{
			ShippingAddressID: c.deps.Addresses.SelectedID(),
			Items:             domain.OrderItemsFromCart(c.deps.Cart.Cart()),
		})
		if !res.Success {
			c.err = res.Error
			return res
		}
	}
	res := c.deps.Payments.CreatePaymentOrder(ctx, in)
	if !res.Success {
		c.err = res.Error
		return res
	}
	c.err = ""
	return res
}

// ApplyPromo applies a promo code to the order summary.
func (c *Controller) ApplyPromo(ctx context.Context, code string) apperrors.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	normalized, err := c.pricing.NormalizePromo(code)
	if err != nil {
		return c.fail(ctx, "apply_promo", err)
	}
	c.promo = normalized
	c.err = ""
	return apperrors.ResultOf(nil)
}

// RemovePromo drops the applied promo code.
func (c *Controller) RemovePromo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.promo = ""
}

// Restart returns to the cart step for a new checkout. A verified payment
// is kept on record by the backend; the local attempt is discarded.
func (c *Controller) Restart(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == domain.StepPayment && c.deps.Payments.Current() != domain.PaymentIdle && !c.deps.Payments.Verified() {
		c.deps.Payments.Abandon(ctx)
	}
	c.deps.Payments.Reset()
	c.step = domain.StepCart
	c.promo = ""
	c.err = ""
}
