package payment

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/backend/backendtest"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/payment/provider"
	"github.com/utafrali/storefront/internal/payment/provider/mock"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

type recordingCart struct {
	mu      sync.Mutex
	cleared int
	fail    bool
}

func (c *recordingCart) Clear(context.Context) apperrors.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared++
	if c.fail {
		return apperrors.ResultOf(apperrors.Backend("cart request failed", nil))
	}
	return apperrors.ResultOf(nil)
}

func (c *recordingCart) Cleared() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleared
}

func newOrchestrator(t *testing.T) (*Orchestrator, *backendtest.Fake, *recordingCart) {
	t.Helper()
	fake := backendtest.NewServer(t)
	cart := &recordingCart{}
	o := NewOrchestrator(Deps{
		VisitorID: "v-1",
		Backend:   fake.Client(),
		Cart:      cart,
		Producer:  event.NewProducer(nil, logger.Discard()),
		Logger:    logger.Discard(),
	}, DefaultConfig())
	return o, fake, cart
}

func orderInput() CreateOrderInput {
	return CreateOrderInput{
		ShippingAddressID: "addr-1",
		Items:             []domain.OrderItem{{ProductID: "p-1", Quantity: 2, Price: 49900}},
	}
}

func startPayment(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx := context.Background()
	require.True(t, o.CreateOrder(ctx, orderInput()).Success)
	require.True(t, o.CreatePaymentOrder(ctx, MethodInput{Method: domain.PaymentMethodCard}).Success)
}

func TestOrchestrator_HappyPath(t *testing.T) {
	o, fake, cart := newOrchestrator(t)
	startPayment(t, o)

	st := o.State()
	require.NotNil(t, st.Order)
	require.NotNil(t, st.Session)
	assert.Equal(t, domain.PaymentProviderOrderCreated, st.State)
	assert.Equal(t, int64(99800), st.Session.Amount)
	assert.Equal(t, st.Order.ID, st.Session.OrderID)
	assert.False(t, st.Session.ExpiresAt.IsZero())

	res := o.Pay(context.Background(), mock.NewProvider(mock.Succeed, backendtest.Sign))
	require.True(t, res.Success, res.Error)

	assert.True(t, o.Verified())
	assert.Equal(t, 1, cart.Cleared())
	assert.Equal(t, domain.OrderStatusPaid, fake.Order(st.Order.ID).Status)
	assert.Empty(t, fake.FailureReports())
}

func TestOrchestrator_TamperedSignatureNeverConfirms(t *testing.T) {
	o, fake, cart := newOrchestrator(t)
	startPayment(t, o)

	tampered := func(string, string) string { return "forged" }
	res := o.Pay(context.Background(), mock.NewProvider(mock.Succeed, tampered))
	o.Wait()

	require.False(t, res.Success)
	assert.Equal(t, domain.PaymentFailed, o.Current())
	assert.Equal(t, 0, cart.Cleared())
	assert.True(t, o.State().CanRetry)

	orderID := o.State().Order.ID
	assert.Equal(t, domain.OrderStatusPending, fake.Order(orderID).Status)
	assert.Equal(t, []string{orderID + ":verification failed"}, fake.FailureReports())
}

func TestOrchestrator_ForeignProviderOrderRejected(t *testing.T) {
	o, fake, cart := newOrchestrator(t)
	startPayment(t, o)
	_, res := o.Open(context.Background())
	require.True(t, res.Success)

	res = o.HandleSuccess(context.Background(), domain.ProviderResult{
		ProviderOrderID:   "order_rzp-other",
		ProviderPaymentID: "pay_1",
		Signature:         backendtest.Sign("order_rzp-other", "pay_1"),
	})
	o.Wait()

	require.False(t, res.Success)
	assert.Equal(t, domain.PaymentFailed, o.Current())
	assert.Equal(t, 0, cart.Cleared())
	assert.Zero(t, fake.CallCount("POST /payments/verify"))
}

func TestOrchestrator_CartClearFailureStillVerifies(t *testing.T) {
	o, _, cart := newOrchestrator(t)
	cart.fail = true
	startPayment(t, o)

	res := o.Pay(context.Background(), mock.NewProvider(mock.Succeed, backendtest.Sign))

	require.True(t, res.Success)
	assert.True(t, o.Verified())
	assert.Equal(t, 1, cart.Cleared())
}

func TestOrchestrator_DeclineReportsInBackground(t *testing.T) {
	o, fake, cart := newOrchestrator(t)
	startPayment(t, o)

	res := o.Pay(context.Background(), mock.NewProvider(mock.Decline, nil))
	o.Wait()

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "payment declined by bank")
	assert.Equal(t, domain.PaymentFailed, o.Current())
	assert.Equal(t, 0, cart.Cleared())
	require.Len(t, fake.FailureReports(), 1)
	assert.Contains(t, fake.FailureReports()[0], "payment declined by bank")
}

func TestOrchestrator_DismissIsCancelled(t *testing.T) {
	o, fake, _ := newOrchestrator(t)
	startPayment(t, o)

	res := o.Pay(context.Background(), mock.NewProvider(mock.Dismiss, nil))
	o.Wait()

	require.False(t, res.Success)
	assert.Equal(t, domain.PaymentCancelled, o.Current())
	assert.True(t, o.State().CanRetry)
	assert.Len(t, fake.FailureReports(), 1)
}

func TestOrchestrator_FailureReportErrorIsNotSurfaced(t *testing.T) {
	o, fake, _ := newOrchestrator(t)
	fake.Fail("POST /payments/failure", http.StatusInternalServerError)
	startPayment(t, o)

	res := o.HandleCancel(context.Background(), "")
	o.Wait()

	require.False(t, res.Success)
	assert.Equal(t, "payment was not completed, you can retry the payment", res.Error)
	assert.Equal(t, domain.PaymentCancelled, o.Current())
}

func TestOrchestrator_RetryReusesOrder(t *testing.T) {
	o, fake, cart := newOrchestrator(t)
	ctx := context.Background()
	startPayment(t, o)

	require.False(t, o.Pay(ctx, mock.NewProvider(mock.Decline, nil)).Success)
	o.Wait()
	firstSession := o.State().Session.ProviderOrderID

	require.True(t, o.Retry(ctx, MethodInput{Method: domain.PaymentMethodUPI}).Success)
	st := o.State()
	assert.Equal(t, domain.PaymentProviderOrderCreated, st.State)
	assert.Equal(t, 2, st.Attempts)
	assert.Equal(t, domain.PaymentMethodUPI, st.Method)
	assert.NotEqual(t, firstSession, st.Session.ProviderOrderID)

	require.True(t, o.Pay(ctx, mock.NewProvider(mock.Succeed, backendtest.Sign)).Success)

	require.Len(t, fake.Orders(), 1)
	assert.Len(t, fake.PaymentOrders(st.Order.ID), 2)
	assert.Equal(t, 1, fake.CallCount("POST /orders"))
	assert.Equal(t, 1, cart.Cleared())
}

func TestOrchestrator_RejectsOutOfOrderCalls(t *testing.T) {
	o, _, _ := newOrchestrator(t)
	ctx := context.Background()

	res := o.CreatePaymentOrder(ctx, MethodInput{Method: domain.PaymentMethodCard})
	assert.False(t, res.Success)
	assert.Equal(t, domain.PaymentIdle, o.Current())

	assert.False(t, o.Retry(ctx, MethodInput{Method: domain.PaymentMethodCard}).Success)

	_, res = o.Open(ctx)
	assert.False(t, res.Success)

	startPayment(t, o)
	assert.False(t, o.CreateOrder(ctx, orderInput()).Success, "a second order for the same attempt")
	assert.Equal(t, domain.PaymentProviderOrderCreated, o.Current())
}

func TestOrchestrator_VerifiedIsFinal(t *testing.T) {
	o, _, _ := newOrchestrator(t)
	ctx := context.Background()
	startPayment(t, o)
	require.True(t, o.Pay(ctx, mock.NewProvider(mock.Succeed, backendtest.Sign)).Success)

	assert.False(t, o.Retry(ctx, MethodInput{Method: domain.PaymentMethodCard}).Success)
	assert.False(t, o.HandleFailure(ctx, "late failure").Success)
	assert.True(t, o.Verified())
}

func TestOrchestrator_ValidatesInput(t *testing.T) {
	o, fake, _ := newOrchestrator(t)
	ctx := context.Background()

	res := o.CreateOrder(ctx, CreateOrderInput{ShippingAddressID: "addr-1"})
	assert.False(t, res.Success)
	res = o.CreateOrder(ctx, CreateOrderInput{Items: orderInput().Items})
	assert.False(t, res.Success)
	assert.Zero(t, fake.CallCount("POST /orders"))

	require.True(t, o.CreateOrder(ctx, orderInput()).Success)
	res = o.CreatePaymentOrder(ctx, MethodInput{Method: "cheque"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "method")
	assert.Equal(t, domain.PaymentOrderCreated, o.Current())
}

func TestOrchestrator_CreateOrderFailureStaysIdle(t *testing.T) {
	o, fake, _ := newOrchestrator(t)
	fake.Fail("POST /orders", http.StatusInternalServerError)

	res := o.CreateOrder(context.Background(), orderInput())

	require.False(t, res.Success)
	assert.NotEmpty(t, o.State().Error)
	assert.Equal(t, domain.PaymentIdle, o.Current())
	assert.Nil(t, o.State().Order)
}

func TestOrchestrator_ExpireIfStale(t *testing.T) {
	o, _, _ := newOrchestrator(t)
	ctx := context.Background()
	startPayment(t, o)
	_, res := o.Open(ctx)
	require.True(t, res.Success)

	assert.False(t, o.ExpireIfStale(ctx))

	o.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	assert.True(t, o.ExpireIfStale(ctx))
	o.Wait()
	assert.Equal(t, domain.PaymentCancelled, o.Current())
}

func TestOrchestrator_AbandonedCheckoutTimesOut(t *testing.T) {
	o, _, _ := newOrchestrator(t)
	o.cfg.SessionTTL = 20 * time.Millisecond
	startPayment(t, o)

	res := o.Pay(context.Background(), mock.NewProvider(mock.Abandon, nil))
	o.Wait()

	require.False(t, res.Success)
	assert.Equal(t, domain.PaymentCancelled, o.Current())
}

func TestOrchestrator_AbandonCancelsOrder(t *testing.T) {
	o, fake, _ := newOrchestrator(t)
	startPayment(t, o)
	orderID := o.State().Order.ID

	require.True(t, o.Abandon(context.Background()).Success)

	assert.Equal(t, domain.PaymentIdle, o.Current())
	assert.Equal(t, domain.OrderStatusCancelled, fake.Order(orderID).Status)
}

func TestOrchestrator_OpenCarriesRetryCap(t *testing.T) {
	o, _, _ := newOrchestrator(t)
	startPayment(t, o)

	p := mock.NewProvider(mock.Succeed, backendtest.Sign)
	p.FailedAttempts = 4
	res := o.Pay(context.Background(), p)
	o.Wait()

	require.False(t, res.Success)
	require.Len(t, p.Opened(), 1)
	assert.Equal(t, 3, p.Opened()[0].MaxRetries)
	assert.Equal(t, domain.PaymentFailed, o.Current())
}

var _ provider.Provider = (*mock.Provider)(nil)
