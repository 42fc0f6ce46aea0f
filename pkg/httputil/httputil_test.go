package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

type addressInput struct {
	City string `json:"city" validate:"required"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestWriteData(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteData(rr, http.StatusCreated, map[string]int{"count": 2})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"count":2}}`, rr.Body.String())
}

func TestWriteError_AppError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "corr-1"))
	rr := httptest.NewRecorder()

	WriteError(rr, req, apperrors.Unauthorized("please log in"), logger.Discard())

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	resp := decode(t, rr)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
	assert.Equal(t, apperrors.KindAuth, resp.Error.Kind)
	assert.Equal(t, "please log in", resp.Error.Message)
	assert.Equal(t, "corr-1", resp.Error.RequestID)
}

func TestWriteError_ValidationFields(t *testing.T) {
	err := validator.Validate(addressInput{})
	require.Error(t, err)

	rr := httptest.NewRecorder()
	WriteError(rr, httptest.NewRequest(http.MethodPost, "/", nil), err, logger.Discard())

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decode(t, rr)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, apperrors.KindValidation, resp.Error.Kind)
	assert.Equal(t, "is required", resp.Error.Fields["city"])
}

func TestWriteError_UnknownErrorIsGeneric(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("dial tcp: refused"), logger.Discard())

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	resp := decode(t, rr)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Equal(t, apperrors.KindBackend, resp.Error.Kind)
	assert.NotContains(t, resp.Error.Message, "dial tcp")
}

func TestWriteResult(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteResult(rr, nil, map[string]string{"step": "address"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"state":{"step":"address"}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	WriteResult(rr, apperrors.InvalidInput("select an address first"), nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"select an address first"}`, rr.Body.String())
}

func TestWriteOutcome(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteOutcome(rr, apperrors.ResultOf(apperrors.Unauthorized("please sign in to continue")), map[string]int{"items": 0})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"please sign in to continue","state":{"items":0}}`, rr.Body.String())
}
