// Package http exposes the storefront workflow as a JSON API.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/session"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
)

// Handler serves the storefront API for every visitor.
type Handler struct {
	registry *session.Registry
	logger   *slog.Logger
}

// NewHandler creates a new storefront HTTP handler.
func NewHandler(registry *session.Registry, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

// withVisitor runs fn with the request's visitor locked.
func (h *Handler) withVisitor(w http.ResponseWriter, r *http.Request, fn func(v *session.Visitor)) {
	v, err := h.registry.Acquire(r.Context(), logger.VisitorIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer h.registry.Release(v)
	fn(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, r, err, h.logger)
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	return nil
}
