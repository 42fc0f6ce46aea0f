package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// errorBody covers the error shapes the backend emits: a framework-style
// {"detail": "..."} (string or list of field errors), an envelope
// {"error": {"code", "message"}}, or a flat {"message": "..."}.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

type fieldDetail struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and
// translates it into an AppError whose message can be shown to the user.
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, resource string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.Backend(
			fmt.Sprintf("%s request failed", resource),
			fmt.Errorf("status %d, read body: %w", resp.StatusCode, err),
		)
	}

	code, message := "", ""
	var body errorBody
	if json.Unmarshal(bodyBytes, &body) == nil {
		code, message = body.describe()
	}
	if message == "" {
		message = fmt.Sprintf("%s request failed with status %d", resource, resp.StatusCode)
	}

	return mapStatus(resp.StatusCode, code, message, resource)
}

func (b errorBody) describe() (code, message string) {
	if b.Error != nil {
		return b.Error.Code, b.Error.Message
	}
	if len(b.Detail) > 0 {
		var text string
		if json.Unmarshal(b.Detail, &text) == nil {
			return "", text
		}
		var fields []fieldDetail
		if json.Unmarshal(b.Detail, &fields) == nil && len(fields) > 0 {
			msgs := make([]string, 0, len(fields))
			for _, f := range fields {
				msgs = append(msgs, f.Msg)
			}
			return "", strings.Join(msgs, "; ")
		}
	}
	return "", b.Message
}

func mapStatus(status int, code, message, resource string) error {
	switch {
	case status == http.StatusNotFound:
		return &apperrors.AppError{Code: "NOT_FOUND", Message: message, Status: status, Err: apperrors.ErrNotFound}
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(message)
	case status == http.StatusConflict:
		return apperrors.Conflict(message)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(message)
	case status == http.StatusPaymentRequired:
		return apperrors.PaymentFailed(message)
	case status == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(message)
	default:
		if code == "" {
			code = "BACKEND_ERROR"
		}
		return &apperrors.AppError{
			Code:    code,
			Message: message,
			Status:  http.StatusBadGateway,
			Err:     fmt.Errorf("%w: %s returned %d", apperrors.ErrBackend, resource, status),
		}
	}
}

// IsSuccess reports whether status is a 2xx code.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
