// Package shipping finds couriers for a package and tracks shipments.
package shipping

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// DefaultItemWeightKg is used for lines whose product has no weight.
const DefaultItemWeightKg = 0.5

const weightToleranceKg = 1e-6

// Backend is the slice of the REST backend shipping needs.
type Backend interface {
	CheckServiceability(ctx context.Context, in backend.ServiceabilityInput) ([]domain.CourierOption, error)
	TrackShipment(ctx context.Context, shipmentID string) (*domain.Shipment, error)
	TrackAWB(ctx context.Context, awb string) (*domain.Shipment, error)
}

// Request asks which couriers can deliver a package.
type Request struct {
	OriginPostalCode      string  `json:"origin_postal_code"`
	DestinationPostalCode string  `json:"destination_postal_code" validate:"required"`
	WeightKg              float64 `json:"weight_kg" validate:"gt=0"`
	IsCOD                 bool    `json:"is_cod"`
	DeclaredValue         int64   `json:"declared_value" validate:"gte=0"`
}

// Quote is the answer to a Request plus the visitor's courier choice. It
// remembers the destination and weight it was priced for.
type Quote struct {
	Options               []domain.CourierOption `json:"options"`
	SelectedID            string                 `json:"selected_courier_id,omitempty"`
	NoService             bool                   `json:"no_service"`
	IsCOD                 bool                   `json:"is_cod"`
	DestinationPostalCode string                 `json:"destination_postal_code"`
	WeightKg              float64                `json:"weight_kg"`
}

// Covers reports whether the quote was priced for a package of weightKg
// going to postalCode.
func (q *Quote) Covers(postalCode string, weightKg float64) bool {
	if q == nil || postalCode == "" {
		return false
	}
	return q.DestinationPostalCode == postalCode && math.Abs(q.WeightKg-weightKg) < weightToleranceKg
}

// Select picks a courier from the options.
func (q *Quote) Select(courierID string) error {
	for _, o := range q.Options {
		if o.CourierID == courierID {
			q.SelectedID = courierID
			return nil
		}
	}
	return apperrors.NotFound("courier", courierID)
}

// Selected returns the chosen courier, or nil.
func (q *Quote) Selected() *domain.CourierOption {
	if q == nil {
		return nil
	}
	for i := range q.Options {
		if q.Options[i].CourierID == q.SelectedID {
			o := q.Options[i]
			return &o
		}
	}
	return nil
}

// ShippingCost is the freight charge of the chosen courier plus its COD
// surcharge when paying on delivery. It is zero until a courier is chosen.
func (q *Quote) ShippingCost() int64 {
	o := q.Selected()
	if o == nil {
		return 0
	}
	if q.IsCOD {
		return o.FreightCharge + o.CODCharge
	}
	return o.FreightCharge
}

// Resolver queries courier serviceability.
type Resolver struct {
	backend Backend
	origin  string
	logger  *slog.Logger
}

// NewResolver creates a resolver. origin is the pickup postal code used
// when a request does not carry one.
func NewResolver(b Backend, origin string, logger *slog.Logger) *Resolver {
	return &Resolver{backend: b, origin: origin, logger: logger}
}

// CheckServiceability validates req and asks the backend for couriers. A
// single option is chosen automatically. No options is reported as
// NoService, not as an error.
func (r *Resolver) CheckServiceability(ctx context.Context, req Request) (*Quote, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	origin := req.OriginPostalCode
	if origin == "" {
		origin = r.origin
	}

	options, err := r.backend.CheckServiceability(ctx, backend.ServiceabilityInput{
		PickupPostcode:   origin,
		DeliveryPostcode: req.DestinationPostalCode,
		WeightKg:         req.WeightKg,
		COD:              req.IsCOD,
		DeclaredValue:    req.DeclaredValue,
	})
	if err != nil {
		return nil, err
	}

	quote := &Quote{
		Options:               options,
		IsCOD:                 req.IsCOD,
		NoService:             len(options) == 0,
		DestinationPostalCode: req.DestinationPostalCode,
		WeightKg:              req.WeightKg,
	}
	if len(options) == 1 {
		quote.SelectedID = options[0].CourierID
	}

	r.logger.DebugContext(ctx, "serviceability checked",
		slog.String("destination", req.DestinationPostalCode),
		slog.Int("options", len(options)),
	)
	return quote, nil
}

// PackageWeight sums line weights, using defaultKg per unit where the
// product has none.
func PackageWeight(items []domain.CartItem, defaultKg float64) float64 {
	var total float64
	for _, item := range items {
		w := item.Product.WeightKg
		if w <= 0 {
			w = defaultKg
		}
		total += w * float64(item.Quantity)
	}
	return total
}

// Chooser holds one visitor's current quote.
type Chooser struct {
	resolver *Resolver

	mu    sync.Mutex
	quote *Quote
	err   string
}

// NewChooser creates a chooser over resolver.
func NewChooser(resolver *Resolver) *Chooser {
	return &Chooser{resolver: resolver}
}

// ChooserState is what the UI renders for shipping.
type ChooserState struct {
	Quote        *Quote `json:"quote,omitempty"`
	ShippingCost int64  `json:"shipping_cost"`
	Error        string `json:"error,omitempty"`
}

// Check replaces the quote. On failure the previous quote is kept.
func (c *Chooser) Check(ctx context.Context, req Request) apperrors.Result {
	quote, err := c.resolver.CheckServiceability(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.err = apperrors.Message(err)
		return apperrors.ResultOf(err)
	}
	c.quote = quote
	c.err = ""
	return apperrors.ResultOf(nil)
}

// Select chooses a courier from the current quote.
func (c *Chooser) Select(courierID string) apperrors.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quote == nil {
		err := apperrors.InvalidInput("check delivery options first")
		c.err = apperrors.Message(err)
		return apperrors.ResultOf(err)
	}
	if err := c.quote.Select(courierID); err != nil {
		c.err = apperrors.Message(err)
		return apperrors.ResultOf(err)
	}
	c.err = ""
	return apperrors.ResultOf(nil)
}

// Quote returns a copy of the current quote, or nil.
func (c *Chooser) Quote() *Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quote == nil {
		return nil
	}
	q := *c.quote
	q.Options = append([]domain.CourierOption(nil), c.quote.Options...)
	return &q
}

// State returns a snapshot.
func (c *Chooser) State() ChooserState {
	q := c.Quote()
	c.mu.Lock()
	defer c.mu.Unlock()
	var cost int64
	if q != nil {
		cost = q.ShippingCost()
	}
	return ChooserState{Quote: q, ShippingCost: cost, Error: c.err}
}

// Reset forgets the quote, for when the destination changes.
func (c *Chooser) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quote = nil
	c.err = ""
}
