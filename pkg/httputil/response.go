package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

// Response is the JSON envelope every storefront endpoint answers with.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse describes a failed request. Kind tells the UI how to react:
// validation errors are shown inline, auth errors prompt a login, backend
// and payment errors offer a retry.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Kind      apperrors.Kind    `json:"kind"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes v inside the data envelope.
func WriteData(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, Response{Data: v})
}

// WriteError writes the error envelope for err. Validation errors carry
// per-field messages; backend failures are logged with the request-scoped
// logger and shown with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())
	kind := apperrors.KindOf(err)

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      "VALIDATION_ERROR",
				Kind:      apperrors.KindValidation,
				Message:   valErr.Error(),
				Fields:    valErr.Fields(),
				RequestID: requestID,
			},
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("kind", string(kind)),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{
		Error: &ErrorResponse{
			Code:      code,
			Kind:      kind,
			Message:   apperrors.Message(err),
			RequestID: requestID,
		},
	})
}

// ResultResponse is the body of endpoints that report an operation outcome
// alongside the state it produced.
type ResultResponse struct {
	apperrors.Result
	State any `json:"state,omitempty"`
}

// WriteResult writes the outcome of a user action. Failed results use the
// status of err so clients can branch without parsing the message.
func WriteResult(w http.ResponseWriter, err error, state any) {
	status := http.StatusOK
	if err != nil {
		status = apperrors.HTTPStatus(err)
	}
	WriteJSON(w, status, ResultResponse{Result: apperrors.ResultOf(err), State: state})
}

// WriteOutcome writes a component Result together with the state it left
// behind.
func WriteOutcome(w http.ResponseWriter, res apperrors.Result, state any) {
	WriteJSON(w, res.Status(), ResultResponse{Result: res, State: state})
}
