package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrUnauthorized, ErrForbidden,
		ErrInternal, ErrConflict, ErrServiceUnavail, ErrBackend,
		ErrPaymentFailed, ErrPaymentCancelled,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	inner := fmt.Errorf("connection reset")
	appErr := &AppError{Code: "BACKEND_ERROR", Message: "cart unavailable", Err: inner}
	assert.Equal(t, "BACKEND_ERROR: cart unavailable: connection reset", appErr.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "address not found"}
	assert.Equal(t, "NOT_FOUND: address not found", bare.Error())
}

func TestBackend_WrapsSentinelAndCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Backend("could not load cart", cause)

	assert.True(t, errors.Is(err, ErrBackend))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(err))

	bare := Backend("could not load cart", nil)
	assert.True(t, errors.Is(bare, ErrBackend))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", InvalidInput("street address too short"), KindValidation},
		{"auth", Unauthorized("sign in required"), KindAuth},
		{"forbidden", Forbidden("admin only"), KindAuth},
		{"payment failed", PaymentFailed("card declined"), KindPayment},
		{"payment cancelled", PaymentCancelled("checkout dismissed"), KindPayment},
		{"backend", Backend("boom", nil), KindBackend},
		{"wrapped validation", Wrap(InvalidInput("bad"), "create address"), KindValidation},
		{"plain", errors.New("unexpected"), KindBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestHTTPStatus_Sentinels(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("x: %w", ErrNotFound)))
	assert.Equal(t, http.StatusConflict, HTTPStatus(fmt.Errorf("x: %w", ErrPaymentCancelled)))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(fmt.Errorf("x: %w", ErrServiceUnavail)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("other")))
}

func TestResultOf(t *testing.T) {
	ok := ResultOf(nil)
	assert.True(t, ok.Success)
	assert.Empty(t, ok.Error)

	res := ResultOf(Wrap(InvalidInput("city is required"), "create address"))
	require.False(t, res.Success)
	assert.Equal(t, "city is required", res.Error)

	res = ResultOf(errors.New("socket closed"))
	assert.False(t, res.Success)
	assert.Equal(t, "something went wrong, please try again", res.Error)
	assert.Equal(t, http.StatusInternalServerError, res.Status())
	assert.Equal(t, http.StatusOK, ok.Status())
	assert.Equal(t, http.StatusBadRequest, ResultOf(InvalidInput("x")).Status())
}
