package cart

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// AuthState reports whether the visitor currently holds a credential.
type AuthState interface {
	Authenticated(ctx context.Context) bool
}

// State is what the UI renders for the cart.
type State struct {
	Mode      domain.CartMode `json:"mode"`
	Cart      *domain.Cart    `json:"cart"`
	ItemCount int             `json:"item_count"`
	Subtotal  int64           `json:"subtotal"`
	Error     string          `json:"error,omitempty"`
}

// Manager owns one visitor's cart. It picks the local or remote strategy
// from the auth state, keeps the last cart it read successfully, and turns
// every failure into a Result plus an error string, leaving that cart
// untouched.
type Manager struct {
	visitorID  string
	auth       AuthState
	local      *LocalStore
	remote     *RemoteStore
	reconciler *Reconciler
	products   ProductSource
	producer   *event.Producer
	logger     *slog.Logger
	syncGroup  singleflight.Group

	mu    sync.Mutex
	mode  domain.CartMode
	cart  *domain.Cart
	err   string
	ready bool
}

// ManagerDeps groups the collaborators of a Manager.
type ManagerDeps struct {
	VisitorID string
	Auth      AuthState
	Local     *LocalStore
	Backend   Backend
	Products  ProductSource
	Producer  *event.Producer
	Logger    *slog.Logger
}

// NewManager creates a cart manager. It starts in local mode; the first
// operation observes the auth state.
func NewManager(deps ManagerDeps) *Manager {
	return &Manager{
		visitorID:  deps.VisitorID,
		auth:       deps.Auth,
		local:      deps.Local,
		remote:     NewRemoteStore(deps.Backend),
		reconciler: NewReconciler(deps.Local, deps.Backend, deps.Logger),
		products:   deps.Products,
		producer:   deps.Producer,
		logger:     deps.Logger,
		mode:       domain.CartModeLocal,
		cart:       domain.NewCart(domain.CartModeLocal),
	}
}

// State returns a snapshot of the cart state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.cart.Clone()
	return State{
		Mode:      m.mode,
		Cart:      cart,
		ItemCount: cart.ItemCount(),
		Subtotal:  cart.Subtotal(),
		Error:     m.err,
	}
}

// Cart returns a copy of the last good cart.
func (m *Manager) Cart() *domain.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cart.Clone()
}

// Mode returns the active strategy.
func (m *Manager) Mode() domain.CartMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *Manager) store() Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == domain.CartModeRemote {
		return m.remote
	}
	return m.local
}

// apply records the outcome of an operation. On failure the cart is left
// as it was.
func (m *Manager) apply(ctx context.Context, op string, cart *domain.Cart, err error) apperrors.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.err = apperrors.Message(err)
		if apperrors.KindOf(err) == apperrors.KindValidation {
			m.logger.DebugContext(ctx, "cart operation rejected", slog.String("op", op), slog.String("error", err.Error()))
		} else {
			m.logger.WarnContext(ctx, "cart operation failed", slog.String("op", op), slog.String("error", err.Error()))
		}
		return apperrors.ResultOf(err)
	}
	m.err = ""
	if cart != nil {
		m.cart = cart
	}
	return apperrors.ResultOf(nil)
}

// ObserveAuth reacts to a change of auth state. On an anonymous to
// authenticated transition it runs the reconciler once; concurrent callers
// share that run. On logout it falls back to the local cart.
func (m *Manager) ObserveAuth(ctx context.Context) apperrors.Result {
	authed := m.auth.Authenticated(ctx)
	mode := m.Mode()

	switch {
	case authed && mode == domain.CartModeLocal:
		_, err, _ := m.syncGroup.Do("sync", func() (any, error) {
			return nil, m.reconcile(ctx)
		})
		return apperrors.ResultOf(err)
	case !authed && mode == domain.CartModeRemote:
		m.mu.Lock()
		m.mode = domain.CartModeLocal
		m.cart = domain.NewCart(domain.CartModeLocal)
		m.ready = false
		m.mu.Unlock()
		return m.load(ctx)
	}
	return apperrors.ResultOf(nil)
}

func (m *Manager) reconcile(ctx context.Context) error {
	// Another caller may have finished the switch while this one waited.
	if m.Mode() == domain.CartModeRemote {
		return nil
	}

	report, err := m.reconciler.Sync(ctx)
	if report.Switched() {
		m.mu.Lock()
		m.mode = domain.CartModeRemote
		m.ready = false
		m.mu.Unlock()

		if pubErr := m.producer.PublishCartSynced(ctx, m.visitorID, event.CartSyncedData{
			Submitted: report.Submitted,
			Failed:    report.Failed,
		}); pubErr != nil {
			m.logger.ErrorContext(ctx, "failed to publish cart synced event", slog.String("error", pubErr.Error()))
		}
	}
	if err != nil {
		m.apply(ctx, "sync", nil, err)
		return err
	}

	if report.Cart != nil {
		m.mu.Lock()
		m.ready = true
		m.mu.Unlock()
		m.apply(ctx, "sync", report.Cart, nil)
		return nil
	}
	cart, err := m.fetch(ctx)
	m.apply(ctx, "sync", cart, err)
	if err == nil {
		m.mu.Lock()
		m.ready = true
		m.mu.Unlock()
	}
	return err
}

// Load refreshes the cart from the active strategy. Local carts are
// enriched with catalog prices on the way.
func (m *Manager) Load(ctx context.Context) apperrors.Result {
	if res := m.ObserveAuth(ctx); !res.Success {
		return res
	}
	return m.load(ctx)
}

func (m *Manager) fetch(ctx context.Context) (*domain.Cart, error) {
	store := m.store()
	if local, ok := store.(*LocalStore); ok && m.products != nil {
		return local.Enrich(ctx, m.products)
	}
	return store.Get(ctx)
}

func (m *Manager) load(ctx context.Context) apperrors.Result {
	cart, err := m.fetch(ctx)
	res := m.apply(ctx, "load", cart, err)
	if res.Success {
		m.mu.Lock()
		m.ready = true
		m.mu.Unlock()
	}
	return res
}

// EnsureLoaded observes auth and loads the cart once per mode. Reads of
// Cart after it succeed reflect the stored cart even when the visitor has
// not touched it since the session was rebuilt.
func (m *Manager) EnsureLoaded(ctx context.Context) apperrors.Result {
	if res := m.ObserveAuth(ctx); !res.Success {
		return res
	}
	m.mu.Lock()
	ready := m.ready
	m.mu.Unlock()
	if ready {
		return apperrors.ResultOf(nil)
	}
	return m.load(ctx)
}

// Add adds quantity of a product.
func (m *Manager) Add(ctx context.Context, in AddItemInput) apperrors.Result {
	if err := validator.Validate(in); err != nil {
		return m.apply(ctx, "add", nil, err)
	}
	if res := m.EnsureLoaded(ctx); !res.Success {
		return res
	}
	cart, err := m.store().AddItem(ctx, in)
	return m.apply(ctx, "add", cart, err)
}

// Update sets the quantity of a line. Quantities below one are rejected.
func (m *Manager) Update(ctx context.Context, itemID string, in UpdateItemInput) apperrors.Result {
	if err := validator.Validate(in); err != nil {
		return m.apply(ctx, "update", nil, err)
	}
	if itemID == "" {
		return m.apply(ctx, "update", nil, apperrors.InvalidInput("item id is required"))
	}
	if res := m.EnsureLoaded(ctx); !res.Success {
		return res
	}
	cart, err := m.store().UpdateItem(ctx, itemID, in.Quantity)
	return m.apply(ctx, "update", cart, err)
}

// Remove deletes a line.
func (m *Manager) Remove(ctx context.Context, itemID string) apperrors.Result {
	if itemID == "" {
		return m.apply(ctx, "remove", nil, apperrors.InvalidInput("item id is required"))
	}
	if res := m.EnsureLoaded(ctx); !res.Success {
		return res
	}
	cart, err := m.store().RemoveItem(ctx, itemID)
	return m.apply(ctx, "remove", cart, err)
}

// Clear empties the cart.
func (m *Manager) Clear(ctx context.Context) apperrors.Result {
	if res := m.ObserveAuth(ctx); !res.Success {
		return res
	}
	cart, err := m.store().Clear(ctx)
	return m.apply(ctx, "clear", cart, err)
}
