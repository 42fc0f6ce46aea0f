// Package backendtest runs an in-memory REST backend for tests.
package backendtest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httpclient"
)

// Token is a fixed bearer token source.
type Token string

// Bearer implements auth.TokenSource.
func (t Token) Bearer(context.Context) (string, error) { return string(t), nil }

// DefaultToken is the bearer token the fake accepts unless changed.
const DefaultToken = "test-access-token"

const signingSecret = "fake-provider-secret"

// Fake is a single-user backend. Exported maps may be seeded directly
// before the first request.
type Fake struct {
	Server *httptest.Server

	mu            sync.Mutex
	token         string
	nextID        int
	calls         []string
	failures      map[string]int
	rejected      map[string]bool
	products      map[string]domain.ProductSnapshot
	cart          []domain.CartItem
	addresses     []domain.Address
	orders        map[string]*domain.Order
	paymentOrders map[string][]string
	couriers      map[string][]domain.CourierOption
	shipments     map[string]shipment
	lastQuote     *backend.ServiceabilityInput
	failureLog    []string
}

type shipment struct {
	ID              string                 `json:"id"`
	AWBCode         string                 `json:"awb_code"`
	CourierName     string                 `json:"courier_name"`
	Status          string                 `json:"status"`
	TrackingHistory []domain.TrackingEvent `json:"tracking_history"`
}

// NewServer starts a fake backend that is closed when the test ends.
func NewServer(t *testing.T) *Fake {
	t.Helper()
	f := &Fake{
		token:         DefaultToken,
		failures:      make(map[string]int),
		rejected:      make(map[string]bool),
		products:      make(map[string]domain.ProductSnapshot),
		orders:        make(map[string]*domain.Order),
		paymentOrders: make(map[string][]string),
		couriers:      make(map[string][]domain.CourierOption),
		shipments:     make(map[string]shipment),
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Server.Close)
	return f
}

// Client returns a backend client authenticated with DefaultToken and no
// retries, so call counts are exact.
func (f *Fake) Client() *backend.Client {
	return f.AnonymousClient().ForSession(Token(DefaultToken))
}

// AnonymousClient returns a client with no credential.
func (f *Fake) AnonymousClient() *backend.Client {
	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	cfg.Timeout = 5 * time.Second
	return backend.NewClient(httpclient.New(cfg), f.Server.URL)
}

// Sign returns the signature the fake accepts for a provider payment.
func Sign(providerOrderID, providerPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(signingSecret))
	mac.Write([]byte(providerOrderID + "|" + providerPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// AddProduct seeds the catalog.
func (f *Fake) AddProduct(p domain.ProductSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
}

// SetCart replaces the server-side cart.
func (f *Fake) SetCart(items ...domain.CartItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cart = append([]domain.CartItem(nil), items...)
}

// Cart returns a copy of the server-side cart lines.
func (f *Fake) Cart() []domain.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CartItem(nil), f.cart...)
}

// AddAddress seeds an address and returns it with its id.
func (f *Fake) AddAddress(a domain.Address) domain.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == "" {
		a.ID = f.newID("addr")
	}
	f.addresses = append(f.addresses, a)
	return a
}

// Addresses returns a copy of the stored addresses.
func (f *Fake) Addresses() []domain.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Address(nil), f.addresses...)
}

// SetCouriers configures the serviceability answer for a delivery postcode.
func (f *Fake) SetCouriers(postcode string, options ...domain.CourierOption) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.couriers[postcode] = options
}

// LastServiceability returns the last serviceability request body.
func (f *Fake) LastServiceability() *backend.ServiceabilityInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuote
}

// AddShipment seeds a shipment reachable by id and AWB code.
func (f *Fake) AddShipment(id, awb, courier, status string, history ...domain.TrackingEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shipments[id] = shipment{ID: id, AWBCode: awb, CourierName: courier, Status: status, TrackingHistory: history}
}

// Orders returns every order created.
func (f *Fake) Orders() []domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out
}

// Order returns one order, or nil.
func (f *Fake) Order(id string) *domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[id]; ok {
		clone := *o
		return &clone
	}
	return nil
}

// PaymentOrders returns the provider order ids minted for an order.
func (f *Fake) PaymentOrders(orderID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paymentOrders[orderID]...)
}

// FailureReports returns "orderID:reason" for each recorded failure.
func (f *Fake) FailureReports() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.failureLog...)
}

// Fail makes every request matching "METHOD /path-pattern" answer status.
// Patterns are chi route patterns, e.g. "POST /cart/items".
func (f *Fake) Fail(route string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = status
}

// Recover undoes Fail.
func (f *Fake) Recover(route string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, route)
}

// RejectProduct makes POST /cart/items fail for one product.
func (f *Fake) RejectProduct(productID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected[productID] = true
}

// Calls returns "METHOD /path" for every request received, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount counts requests matching "METHOD /path-pattern".
func (f *Fake) CallCount(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == route {
			n++
		}
	}
	return n
}

func (f *Fake) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decode(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// record logs the call and applies auth and injected failures. It returns
// false when the request has already been answered.
func (f *Fake) record(w http.ResponseWriter, r *http.Request) bool {
	route := r.Method + " " + chi.RouteContext(r.Context()).RoutePattern()

	f.mu.Lock()
	f.calls = append(f.calls, route)
	status, failing := f.failures[route]
	token := f.token
	f.mu.Unlock()

	if !strings.HasPrefix(route, "GET /products/") {
		if r.Header.Get("Authorization") != "Bearer "+token {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return false
		}
	}
	if failing {
		writeDetail(w, status, fmt.Sprintf("injected failure for %s", route))
		return false
	}
	return true
}

func (f *Fake) routes() http.Handler {
	r := chi.NewRouter()
	// The route pattern is only known once chi has matched, so recording
	// wraps each handler rather than running as middleware.
	h := func(fn http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			if f.record(w, req) {
				fn(w, req)
			}
		}
	}

	r.Get("/products/{id}", h(f.getProduct))

	r.Get("/cart", h(f.getCart))
	r.Delete("/cart", h(f.clearCart))
	r.Post("/cart/items", h(f.addCartItem))
	r.Put("/cart/items/{id}", h(f.updateCartItem))
	r.Delete("/cart/items/{id}", h(f.removeCartItem))

	r.Get("/users/me/addresses", h(f.listAddresses))
	r.Post("/users/me/addresses", h(f.createAddress))
	r.Put("/users/me/addresses/{id}", h(f.updateAddress))
	r.Delete("/users/me/addresses/{id}", h(f.deleteAddress))
	r.Post("/users/me/addresses/{id}/set-default", h(f.setDefaultAddress))

	r.Post("/orders", h(f.createOrder))
	r.Get("/orders/{id}", h(f.getOrder))
	r.Put("/orders/{id}/cancel", h(f.cancelOrder))

	r.Post("/payments/create-order", h(f.createPaymentOrder))
	r.Post("/payments/verify", h(f.verifyPayment))
	r.Post("/payments/failure", h(f.recordFailure))
	r.Post("/payments/retry/{orderId}", h(f.retryPayment))

	r.Post("/shipping/serviceability", h(f.serviceability))
	r.Get("/shipping/track/shipment/{id}", h(f.trackShipment))
	r.Get("/shipping/track/awb/{awb}", h(f.trackAWB))

	return r
}
