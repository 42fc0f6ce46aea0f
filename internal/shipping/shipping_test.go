package shipping

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/backend/backendtest"
	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

// --- Mock Backend ---

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) CheckServiceability(ctx context.Context, in backend.ServiceabilityInput) ([]domain.CourierOption, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CourierOption), args.Error(1)
}

func (m *mockBackend) TrackShipment(ctx context.Context, id string) (*domain.Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shipment), args.Error(1)
}

func (m *mockBackend) TrackAWB(ctx context.Context, awb string) (*domain.Shipment, error) {
	args := m.Called(ctx, awb)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shipment), args.Error(1)
}

func twoCouriers() []domain.CourierOption {
	return []domain.CourierOption{
		{CourierID: "c1", CourierName: "Swift", FreightCharge: 6000, CODCharge: 3000},
		{CourierID: "c2", CourierName: "Bluedart", FreightCharge: 9000},
	}
}

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

func TestResolver_ValidatesBeforeNetwork(t *testing.T) {
	be := &mockBackend{}
	r := NewResolver(be, "400001", logger.Discard())

	for _, req := range []Request{
		{DestinationPostalCode: "", WeightKg: 1},
		{DestinationPostalCode: "560001", WeightKg: 0},
		{DestinationPostalCode: "560001", WeightKg: -2},
	} {
		_, err := r.CheckServiceability(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	}
	be.AssertNotCalled(t, "CheckServiceability", mock.Anything, mock.Anything)
}

func TestResolver_UsesDefaultOrigin(t *testing.T) {
	be := &mockBackend{}
	be.On("CheckServiceability", mock.Anything, backend.ServiceabilityInput{
		PickupPostcode: "400001", DeliveryPostcode: "560001", WeightKg: 1.5, COD: true, DeclaredValue: 250000,
	}).Return(twoCouriers(), nil)
	r := NewResolver(be, "400001", logger.Discard())

	quote, err := r.CheckServiceability(context.Background(), Request{
		DestinationPostalCode: "560001", WeightKg: 1.5, IsCOD: true, DeclaredValue: 250000,
	})
	require.NoError(t, err)
	assert.Len(t, quote.Options, 2)
	assert.Empty(t, quote.SelectedID)
	assert.Zero(t, quote.ShippingCost())
	assert.Equal(t, "560001", quote.DestinationPostalCode)
	assert.InDelta(t, 1.5, quote.WeightKg, 1e-9)
	be.AssertExpectations(t)
}

func TestResolver_EmptyIsNoService(t *testing.T) {
	be := &mockBackend{}
	be.On("CheckServiceability", mock.Anything, mock.Anything).Return([]domain.CourierOption{}, nil)
	r := NewResolver(be, "400001", logger.Discard())

	quote, err := r.CheckServiceability(context.Background(), Request{DestinationPostalCode: "999999", WeightKg: 1})
	require.NoError(t, err)
	assert.True(t, quote.NoService)
	assert.Nil(t, quote.Selected())
}

func TestResolver_BackendError(t *testing.T) {
	be := &mockBackend{}
	be.On("CheckServiceability", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
	r := NewResolver(be, "400001", logger.Discard())

	_, err := r.CheckServiceability(context.Background(), Request{DestinationPostalCode: "560001", WeightKg: 1})
	assert.Error(t, err)
}

func TestResolver_SingleCourierAutoSelectedEndToEnd(t *testing.T) {
	fake := backendtest.NewServer(t)
	fake.SetCouriers("400001", domain.CourierOption{CourierID: "c1", CourierName: "Swift", FreightCharge: 6500})
	chooser := NewChooser(NewResolver(fake.Client(), "110001", logger.Discard()))

	res := chooser.Check(context.Background(), Request{DestinationPostalCode: "400001", WeightKg: 1})
	require.True(t, res.Success, res.Error)

	state := chooser.State()
	require.NotNil(t, state.Quote)
	assert.Equal(t, "c1", state.Quote.SelectedID)
	assert.Equal(t, int64(6500), state.ShippingCost)
	assert.Equal(t, "110001", fake.LastServiceability().PickupPostcode)
}

// ---------------------------------------------------------------------------
// Quote
// ---------------------------------------------------------------------------

func TestQuote_SelectAndCost(t *testing.T) {
	q := &Quote{Options: twoCouriers(), IsCOD: true}

	require.NoError(t, q.Select("c1"))
	assert.Equal(t, int64(9000), q.ShippingCost())

	q.IsCOD = false
	assert.Equal(t, int64(6000), q.ShippingCost())

	err := q.Select("c9")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, "c1", q.SelectedID)
}

func TestQuote_Covers(t *testing.T) {
	q := &Quote{Options: twoCouriers(), DestinationPostalCode: "560001", WeightKg: 1.5}

	assert.True(t, q.Covers("560001", 0.5+1.0))
	assert.False(t, q.Covers("999999", 1.5), "different destination")
	assert.False(t, q.Covers("560001", 2.0), "heavier package")
	assert.False(t, q.Covers("", 1.5))

	var missing *Quote
	assert.False(t, missing.Covers("560001", 1.5))
}

func TestPackageWeight(t *testing.T) {
	items := []domain.CartItem{
		{Quantity: 2, Product: domain.ProductSnapshot{WeightKg: 1.25}},
		{Quantity: 3},
	}
	assert.InDelta(t, 4.0, PackageWeight(items, DefaultItemWeightKg), 1e-9)
	assert.Zero(t, PackageWeight(nil, DefaultItemWeightKg))
}

// ---------------------------------------------------------------------------
// Chooser
// ---------------------------------------------------------------------------

func TestChooser_FailedCheckKeepsQuote(t *testing.T) {
	be := &mockBackend{}
	be.On("CheckServiceability", mock.Anything, mock.MatchedBy(func(in backend.ServiceabilityInput) bool {
		return in.DeliveryPostcode == "560001"
	})).Return(twoCouriers(), nil)
	be.On("CheckServiceability", mock.Anything, mock.Anything).Return(nil, apperrors.ServiceUnavailable("down"))
	c := NewChooser(NewResolver(be, "400001", logger.Discard()))
	ctx := context.Background()

	require.True(t, c.Check(ctx, Request{DestinationPostalCode: "560001", WeightKg: 1}).Success)
	require.True(t, c.Select("c2").Success)

	res := c.Check(ctx, Request{DestinationPostalCode: "110001", WeightKg: 1})
	assert.False(t, res.Success)
	state := c.State()
	assert.Equal(t, "down", state.Error)
	assert.Equal(t, int64(9000), state.ShippingCost)
}

func TestChooser_SelectWithoutQuote(t *testing.T) {
	c := NewChooser(NewResolver(&mockBackend{}, "400001", logger.Discard()))
	assert.False(t, c.Select("c1").Success)

	c.Reset()
	assert.Nil(t, c.Quote())
	assert.Empty(t, c.State().Error)
}

// ---------------------------------------------------------------------------
// Tracker
// ---------------------------------------------------------------------------

func TestTracker(t *testing.T) {
	fake := backendtest.NewServer(t)
	fake.AddShipment("shp-1", "AWB1", "Swift", "out_for_delivery")
	fake.AddShipment("shp-2", "AWB2", "Swift", "held_at_customs")
	tr := NewTracker(fake.Client())
	ctx := context.Background()

	tracking, err := tr.ByAWB(ctx, "AWB1")
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentOutForDelivery, tracking.Shipment.Status)
	assert.Equal(t, 5, tracking.Progress)

	tracking, err = tr.ByShipment(ctx, "shp-2")
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentUnknown, tracking.Shipment.Status)
	assert.Equal(t, -1, tracking.Progress)

	_, err = tr.ByAWB(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = tr.ByShipment(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
