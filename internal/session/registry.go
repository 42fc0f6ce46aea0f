// Package session keeps the in-memory workflow components of each
// storefront visitor.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront/internal/address"
	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/checkout"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/payment"
	"github.com/utafrali/storefront/internal/shipping"
	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var activeVisitors = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "storefront_active_visitor_sessions",
	Help: "Visitors with workflow state held in memory",
})

// Config holds per-visitor component settings.
type Config struct {
	IdleTTL          time.Duration
	SweepInterval    time.Duration
	OriginPostalCode string
	Address          address.Config
	Payment          payment.Config
	Pricing          checkout.PricingConfig
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	return Config{
		IdleTTL:          30 * time.Minute,
		SweepInterval:    time.Minute,
		OriginPostalCode: "400001",
		Address:          address.DefaultConfig(),
		Payment:          payment.DefaultConfig(),
		Pricing:          checkout.DefaultPricingConfig(),
	}
}

// Visitor bundles the components of one visitor. Callers get it from
// Registry.Acquire and must Release it; calls for one visitor are
// serialized in between.
type Visitor struct {
	ID        string
	Auth      *auth.Session
	Cart      *cart.Manager
	Addresses *address.Directory
	Shipping  *shipping.Chooser
	Tracker   *shipping.Tracker
	Orders    *backend.Client
	Payments  *payment.Orchestrator
	Checkout  *checkout.Controller

	mu        sync.Mutex
	lastSeen  time.Time
	discarded bool
}

// Login stores the visitor's tokens and reconciles the cart. A failed sync
// does not fail the login; it stays in the cart state and is retried on
// the next request.
func (v *Visitor) Login(ctx context.Context, in auth.SaveTokensInput) apperrors.Result {
	if err := v.Auth.Save(ctx, in); err != nil {
		return apperrors.ResultOf(err)
	}
	v.Cart.ObserveAuth(ctx)
	return apperrors.ResultOf(nil)
}

// Logout drops the visitor's tokens. The in-memory components are
// discarded on Release so the next request starts from client storage.
func (v *Visitor) Logout(ctx context.Context) apperrors.Result {
	if err := v.Auth.Clear(ctx); err != nil {
		return apperrors.ResultOf(err)
	}
	v.Checkout.Restart(ctx)
	v.discarded = true
	return apperrors.ResultOf(nil)
}

// Deps groups the collaborators shared by every visitor.
type Deps struct {
	Store    storage.Store
	Backend  *backend.Client
	Producer *event.Producer
	Logger   *slog.Logger
}

// Registry creates visitors on first use and forgets idle ones.
type Registry struct {
	deps Deps
	cfg  Config
	now  func() time.Time

	mu       sync.Mutex
	visitors map[string]*Visitor
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Deps, cfg Config) *Registry {
	return &Registry{
		deps:     deps,
		cfg:      cfg,
		now:      time.Now,
		visitors: make(map[string]*Visitor),
	}
}

func (r *Registry) newVisitor(id string) *Visitor {
	l := r.deps.Logger.With(slog.String("visitor_id", id))
	bucket := storage.ForVisitor(r.deps.Store, id)
	session := auth.NewSession(bucket)
	client := r.deps.Backend.ForSession(session)

	cartManager := cart.NewManager(cart.ManagerDeps{
		VisitorID: id,
		Auth:      session,
		Local:     cart.NewLocalStore(bucket, l),
		Backend:   client,
		Products:  client,
		Producer:  r.deps.Producer,
		Logger:    l,
	})
	directory := address.NewDirectory(client, r.cfg.Address, l)
	chooser := shipping.NewChooser(shipping.NewResolver(client, r.cfg.OriginPostalCode, l))
	orchestrator := payment.NewOrchestrator(payment.Deps{
		VisitorID: id,
		Backend:   client,
		Cart:      cartManager,
		Producer:  r.deps.Producer,
		Logger:    l,
	}, r.cfg.Payment)

	return &Visitor{
		ID:        id,
		Auth:      session,
		Cart:      cartManager,
		Addresses: directory,
		Shipping:  chooser,
		Tracker:   shipping.NewTracker(client),
		Orders:    client,
		Payments:  orchestrator,
		Checkout: checkout.NewController(checkout.Deps{
			VisitorID: id,
			Cart:      cartManager,
			Addresses: directory,
			Shipping:  chooser,
			Payments:  orchestrator,
			Producer:  r.deps.Producer,
			Logger:    l,
		}, r.cfg.Pricing),
	}
}

func (r *Registry) lookup(id string) *Visitor {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visitors[id]
	if !ok {
		v = r.newVisitor(id)
		r.visitors[id] = v
		activeVisitors.Set(float64(len(r.visitors)))
	}
	return v
}

// Acquire returns the visitor's components, locked for the caller. The
// cart observes the current auth state first, so a login made by another
// process still triggers the cart sync.
func (r *Registry) Acquire(ctx context.Context, visitorID string) (*Visitor, error) {
	if visitorID == "" {
		return nil, apperrors.InvalidInput("visitor id is required")
	}
	for {
		v := r.lookup(visitorID)
		v.mu.Lock()
		if !v.discarded {
			v.lastSeen = r.now()
			v.Cart.ObserveAuth(ctx)
			return v, nil
		}
		v.mu.Unlock()
	}
}

// Release unlocks v, forgetting it if it was logged out.
func (r *Registry) Release(v *Visitor) {
	if v.discarded {
		r.forget(v)
	}
	v.mu.Unlock()
}

// forget removes v from the map. Caller holds v.mu.
func (r *Registry) forget(v *Visitor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.visitors[v.ID] == v {
		delete(r.visitors, v.ID)
	}
	activeVisitors.Set(float64(len(r.visitors)))
}

// Len returns the number of visitors held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

// Sweep forgets visitors idle for longer than the TTL and returns how many
// it dropped. Busy visitors are skipped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	candidates := make([]*Visitor, 0, len(r.visitors))
	for _, v := range r.visitors {
		candidates = append(candidates, v)
	}
	r.mu.Unlock()

	cutoff := r.now().Add(-r.cfg.IdleTTL)
	dropped := 0
	for _, v := range candidates {
		if !v.mu.TryLock() {
			continue
		}
		if !v.discarded && v.lastSeen.Before(cutoff) {
			v.discarded = true
			r.forget(v)
			dropped++
		}
		v.mu.Unlock()
	}
	return dropped
}

// Run sweeps idle visitors until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.deps.Logger.DebugContext(ctx, "swept idle visitors", slog.Int("count", n))
			}
		}
	}
}

// Wait blocks until every visitor's background payment reports finish.
func (r *Registry) Wait() {
	r.mu.Lock()
	visitors := make([]*Visitor, 0, len(r.visitors))
	for _, v := range r.visitors {
		visitors = append(visitors, v)
	}
	r.mu.Unlock()
	for _, v := range visitors {
		v.Payments.Wait()
	}
}
