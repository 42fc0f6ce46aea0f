package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/backend/backendtest"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/internal/storage/memory"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/logger"
)

const visitorID = "5b0f8f9e-9d44-4c55-9b2c-6f1f3f0e8a11"

type apiEnv struct {
	fake   *backendtest.Fake
	router http.Handler
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	fake := backendtest.NewServer(t)
	cfg := session.DefaultConfig()
	cfg.Address.RefetchDelay = 0
	registry := session.NewRegistry(session.Deps{
		Store:    memory.NewStore(),
		Backend:  fake.AnonymousClient(),
		Producer: event.NewProducer(nil, logger.Discard()),
		Logger:   logger.Discard(),
	}, cfg)

	routerCfg := DefaultRouterConfig()
	routerCfg.RateLimitBurst = 1000
	routerCfg.RateLimitRPS = 1000
	return &apiEnv{
		fake:   fake,
		router: NewRouter(registry, health.NewHandler("test"), routerCfg, logger.Discard()),
	}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Visitor-ID", visitorID)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

type outcome[T any] struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	State   T      `json:"state"`
}

type envelope[T any] struct {
	Data  T `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeAs[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type cartView struct {
	Mode      string `json:"mode"`
	ItemCount int    `json:"item_count"`
	Error     string `json:"error"`
	Cart      struct {
		Items []domain.CartItem `json:"items"`
	} `json:"cart"`
}

func (e *apiEnv) login(t *testing.T) {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/v1/session/tokens", map[string]string{"access_token": backendtest.DefaultToken})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	e := newAPI(t)

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	e.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestVisitorCookieIssued(t *testing.T) {
	e := newAPI(t)

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Visitor-ID"))
	assert.NotEmpty(t, rr.Result().Cookies())
	assert.Equal(t, "no-store, private", rr.Header().Get("Cache-Control"))
}

func TestContentTypeEnforced(t *testing.T) {
	e := newAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader("product_id=sku-1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestGuestCartThenLoginSync(t *testing.T) {
	e := newAPI(t)

	rr := e.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "sku-1", "quantity": 2})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	guest := decodeAs[outcome[cartView]](t, rr)
	assert.True(t, guest.Success)
	assert.Equal(t, "local", guest.State.Mode)
	assert.Equal(t, 2, guest.State.ItemCount)

	rr = e.do(t, http.MethodPost, "/api/v1/session/tokens", map[string]string{"access_token": backendtest.DefaultToken})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	sess := decodeAs[outcome[struct {
		Authenticated bool     `json:"authenticated"`
		Cart          cartView `json:"cart"`
	}]](t, rr)
	assert.True(t, sess.State.Authenticated)
	assert.Equal(t, "remote", sess.State.Cart.Mode)

	rr = e.do(t, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	remote := decodeAs[outcome[cartView]](t, rr)
	require.Len(t, remote.State.Cart.Items, 1)
	assert.Equal(t, "sku-1", remote.State.Cart.Items[0].ProductID)
	assert.Equal(t, 2, remote.State.Cart.Items[0].Quantity)
}

func TestCartValidation(t *testing.T) {
	e := newAPI(t)

	rr := e.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "sku-1", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	res := decodeAs[outcome[cartView]](t, rr)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	rr = e.do(t, http.MethodPost, "/api/v1/cart/items", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddressesRequireLogin(t *testing.T) {
	e := newAPI(t)

	rr := e.do(t, http.MethodGet, "/api/v1/addresses", nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	res := decodeAs[outcome[map[string]any]](t, rr)
	assert.Equal(t, "please sign in to continue", res.Error)
	assert.Empty(t, e.fake.Calls())
}

func TestCheckoutGuardWithoutAddress(t *testing.T) {
	e := newAPI(t)
	e.login(t)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "sku-1", "quantity": 1}).Code)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/v1/checkout/next", nil).Code)

	rr := e.do(t, http.MethodPost, "/api/v1/checkout/next", nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	res := decodeAs[outcome[struct {
		Step string `json:"step"`
	}]](t, rr)
	assert.Equal(t, "address", res.State.Step)
}

type paymentState struct {
	State    string `json:"state"`
	Checkout *struct {
		Session domain.PaymentSession `json:"session"`
	} `json:"checkout"`
	Order *domain.Order `json:"order"`
}

func (e *apiEnv) toPaymentStep(t *testing.T) {
	t.Helper()
	e.login(t)
	e.fake.AddAddress(domain.Address{
		StreetAddress: "12 Marine Drive", City: "Mumbai", State: "MH", PostalCode: "400001",
		Country: "IN", AddressType: domain.AddressTypeShipping, IsDefault: true,
	})
	e.fake.SetCouriers("400001", domain.CourierOption{CourierID: "c1", CourierName: "Swift", FreightCharge: 6000})

	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "sku-1", "quantity": 2}).Code)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/v1/checkout/next", nil).Code)

	rr := e.do(t, http.MethodGet, "/api/v1/addresses?type=shipping", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	addrs := decodeAs[outcome[struct {
		SelectedID string `json:"selected_address_id"`
	}]](t, rr)
	require.NotEmpty(t, addrs.State.SelectedID)

	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/v1/checkout/next", nil).Code)

	rr = e.do(t, http.MethodPost, "/api/v1/shipping/quote", map[string]any{})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	quote := decodeAs[outcome[struct {
		ShippingCost int64 `json:"shipping_cost"`
	}]](t, rr)
	assert.Equal(t, int64(6000), quote.State.ShippingCost)
}

func (e *apiEnv) startPayment(t *testing.T) paymentState {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/v1/payment/start", map[string]string{"method": "card"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decodeAs[outcome[paymentState]](t, rr)
	require.NotNil(t, res.State.Checkout)
	assert.Equal(t, string(domain.PaymentAwaitingProviderResult), res.State.State)
	return res.State
}

func TestFullCheckoutOverAPI(t *testing.T) {
	e := newAPI(t)
	e.toPaymentStep(t)
	started := e.startPayment(t)
	providerOrderID := started.Checkout.Session.ProviderOrderID

	rr := e.do(t, http.MethodPost, "/api/v1/payment/callback", map[string]string{
		"outcome":             "succeeded",
		"razorpay_order_id":   providerOrderID,
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  backendtest.Sign(providerOrderID, "pay_1"),
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = e.do(t, http.MethodPost, "/api/v1/checkout/next", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decodeAs[outcome[struct {
		Step string `json:"step"`
	}]](t, rr)
	assert.Equal(t, "confirmation", res.State.Step)
	assert.Empty(t, e.fake.Cart())

	rr = e.do(t, http.MethodGet, "/api/v1/orders/"+started.Order.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	order := decodeAs[envelope[domain.Order]](t, rr)
	assert.Equal(t, domain.OrderStatusPaid, order.Data.Status)
}

type checkoutView struct {
	Step    string `json:"step"`
	Pricing struct {
		Shipping int64 `json:"shipping"`
	} `json:"pricing"`
}

func TestSwitchingAddressInvalidatesQuote(t *testing.T) {
	e := newAPI(t)
	e.toPaymentStep(t)
	remote := e.fake.AddAddress(domain.Address{
		StreetAddress: "1 Harbour Road", City: "Port Blair", State: "AN", PostalCode: "999999",
		Country: "IN", AddressType: domain.AddressTypeShipping,
	})
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/v1/addresses?type=shipping", nil).Code)

	rr := e.do(t, http.MethodPost, "/api/v1/addresses/"+remote.ID+"/select", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = e.do(t, http.MethodPost, "/api/v1/payment/start", map[string]string{"method": "card"})
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	assert.Empty(t, e.fake.Orders())
	assert.Zero(t, e.fake.CallCount("POST /orders"))

	rr = e.do(t, http.MethodGet, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	view := decodeAs[envelope[checkoutView]](t, rr)
	assert.Equal(t, "payment", view.Data.Step)
	assert.Zero(t, view.Data.Pricing.Shipping)
}

func TestCartChangeInvalidatesQuote(t *testing.T) {
	e := newAPI(t)
	e.toPaymentStep(t)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "sku-2", "quantity": 4}).Code)

	rr := e.do(t, http.MethodPost, "/api/v1/payment/start", map[string]string{"method": "card"})
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	res := decodeAs[outcome[paymentState]](t, rr)
	assert.Equal(t, "your address or cart changed, check shipping options again", res.Error)
	assert.Empty(t, e.fake.Orders())

	rr = e.do(t, http.MethodPost, "/api/v1/shipping/quote", map[string]any{})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	started := e.startPayment(t)
	require.NotNil(t, started.Order)
	assert.Len(t, started.Order.Items, 2)
}

func TestTamperedCallbackOverAPI(t *testing.T) {
	e := newAPI(t)
	e.toPaymentStep(t)
	started := e.startPayment(t)

	rr := e.do(t, http.MethodPost, "/api/v1/payment/callback", map[string]string{
		"outcome":             "succeeded",
		"razorpay_order_id":   started.Checkout.Session.ProviderOrderID,
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "forged",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	res := decodeAs[outcome[paymentState]](t, rr)
	assert.Equal(t, string(domain.PaymentFailed), res.State.State)

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/v1/checkout/next", nil).Code)
	assert.Len(t, e.fake.Cart(), 1)

	rr = e.do(t, http.MethodPost, "/api/v1/payment/retry", map[string]string{"method": "upi"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	retried := decodeAs[outcome[paymentState]](t, rr)
	assert.Equal(t, started.Order.ID, retried.State.Order.ID)
	assert.NotEqual(t, started.Checkout.Session.ProviderOrderID, retried.State.Checkout.Session.ProviderOrderID)
	assert.Len(t, e.fake.Orders(), 1)
}

func TestPaymentCallbackValidation(t *testing.T) {
	e := newAPI(t)

	rr := e.do(t, http.MethodPost, "/api/v1/payment/callback", map[string]string{"outcome": "maybe"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogoutFallsBackToGuest(t *testing.T) {
	e := newAPI(t)
	e.login(t)

	rr := e.do(t, http.MethodDelete, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = e.do(t, http.MethodGet, "/api/v1/session", nil)
	sess := decodeAs[envelope[struct {
		Authenticated bool     `json:"authenticated"`
		Cart          cartView `json:"cart"`
	}]](t, rr)
	assert.False(t, sess.Data.Authenticated)
	assert.Equal(t, "local", sess.Data.Cart.Mode)
}
