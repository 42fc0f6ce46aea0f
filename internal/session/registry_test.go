package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/backend/backendtest"
	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/internal/storage/memory"
	"github.com/utafrali/storefront/pkg/logger"
)

func newRegistry(t *testing.T) (*Registry, *backendtest.Fake, *memory.Store) {
	t.Helper()
	fake := backendtest.NewServer(t)
	store := memory.NewStore()
	r := NewRegistry(Deps{
		Store:    store,
		Backend:  fake.AnonymousClient(),
		Producer: event.NewProducer(nil, logger.Discard()),
		Logger:   logger.Discard(),
	}, DefaultConfig())
	return r, fake, store
}

func TestRegistry_AcquireReusesVisitor(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()

	v1, err := r.Acquire(ctx, "v-1")
	require.NoError(t, err)
	r.Release(v1)
	v2, err := r.Acquire(ctx, "v-1")
	require.NoError(t, err)
	r.Release(v2)

	assert.Same(t, v1, v2)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_AcquireRequiresID(t *testing.T) {
	r, _, _ := newRegistry(t)
	_, err := r.Acquire(context.Background(), "")
	require.Error(t, err)
	assert.Zero(t, r.Len())
}

func TestRegistry_SerializesVisitor(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := r.Acquire(ctx, "v-1")
			if err != nil {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			r.Release(v)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestRegistry_LoginSyncsGuestCart(t *testing.T) {
	r, fake, store := newRegistry(t)
	ctx := context.Background()

	v, err := r.Acquire(ctx, "v-1")
	require.NoError(t, err)
	require.True(t, v.Cart.Add(ctx, cart.AddItemInput{ProductID: "sku-1", Quantity: 2}).Success)
	assert.Equal(t, domain.CartModeLocal, v.Cart.Mode())

	res := v.Login(ctx, auth.SaveTokensInput{AccessToken: backendtest.DefaultToken})
	r.Release(v)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, domain.CartModeRemote, v.Cart.Mode())
	assert.False(t, store.Has("v-1", storage.KeyGuestCart))
	require.Len(t, fake.Cart(), 1)
	assert.Equal(t, 2, fake.Cart()[0].Quantity)
}

func TestRegistry_AcquireObservesStoredLogin(t *testing.T) {
	r, fake, _ := newRegistry(t)
	ctx := context.Background()

	bucket := storage.ForVisitor(r.deps.Store, "v-2")
	require.NoError(t, auth.NewSession(bucket).Save(ctx, auth.SaveTokensInput{AccessToken: backendtest.DefaultToken}))
	fake.SetCart(domain.CartItem{ID: "line-1", ProductID: "sku-9", Quantity: 1})

	v, err := r.Acquire(ctx, "v-2")
	require.NoError(t, err)
	defer r.Release(v)

	assert.Equal(t, domain.CartModeRemote, v.Cart.Mode())
}

func TestRegistry_RebuiltVisitorCanCheckOutStoredGuestCart(t *testing.T) {
	r, fake, store := newRegistry(t)
	ctx := context.Background()

	v, err := r.Acquire(ctx, "v-1")
	require.NoError(t, err)
	require.True(t, v.Cart.Add(ctx, cart.AddItemInput{ProductID: "sku-1", Quantity: 2}).Success)
	r.Release(v)

	rebuilt := NewRegistry(Deps{
		Store:    store,
		Backend:  fake.AnonymousClient(),
		Producer: event.NewProducer(nil, logger.Discard()),
		Logger:   logger.Discard(),
	}, DefaultConfig())
	next, err := rebuilt.Acquire(ctx, "v-1")
	require.NoError(t, err)
	defer rebuilt.Release(next)

	res := next.Checkout.Next(ctx)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, domain.StepAddress, next.Checkout.Step())
	assert.Equal(t, 2, next.Cart.Cart().ItemCount())
	assert.Equal(t, int64(2000), next.Checkout.Pricing().Subtotal)
}

func TestRegistry_RebuiltVisitorCanCheckOutRemoteCart(t *testing.T) {
	r, fake, _ := newRegistry(t)
	ctx := context.Background()

	bucket := storage.ForVisitor(r.deps.Store, "v-2")
	require.NoError(t, auth.NewSession(bucket).Save(ctx, auth.SaveTokensInput{AccessToken: backendtest.DefaultToken}))
	fake.SetCart(domain.CartItem{ID: "line-1", ProductID: "sku-9", Quantity: 1})

	v, err := r.Acquire(ctx, "v-2")
	require.NoError(t, err)
	defer r.Release(v)

	res := v.Checkout.Next(ctx)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, domain.StepAddress, v.Checkout.Step())
}

func TestRegistry_LogoutDiscardsVisitor(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()

	v, err := r.Acquire(ctx, "v-1")
	require.NoError(t, err)
	require.True(t, v.Login(ctx, auth.SaveTokensInput{AccessToken: backendtest.DefaultToken}).Success)
	require.True(t, v.Logout(ctx).Success)
	r.Release(v)

	assert.Zero(t, r.Len())

	next, err := r.Acquire(ctx, "v-1")
	require.NoError(t, err)
	defer r.Release(next)
	assert.NotSame(t, v, next)
	assert.False(t, next.Auth.Authenticated(ctx))
	assert.Equal(t, domain.CartModeLocal, next.Cart.Mode())
}

func TestRegistry_SweepDropsIdleVisitors(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()
	base := time.Now()
	r.now = func() time.Time { return base }

	for _, id := range []string{"idle", "fresh"} {
		v, err := r.Acquire(ctx, id)
		require.NoError(t, err)
		r.Release(v)
	}
	busy, err := r.Acquire(ctx, "busy")
	require.NoError(t, err)

	r.now = func() time.Time { return base.Add(time.Hour) }
	fresh, err := r.Acquire(ctx, "fresh")
	require.NoError(t, err)
	r.Release(fresh)

	assert.Equal(t, 1, r.Sweep())
	r.Release(busy)

	assert.Equal(t, 2, r.Len())
}

func TestRegistry_RunStopsWithContext(t *testing.T) {
	r, _, _ := newRegistry(t)
	r.cfg.SweepInterval = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
