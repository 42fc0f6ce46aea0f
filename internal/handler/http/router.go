package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// RouterConfig holds settings for the outer HTTP surface.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	Visitor        middleware.VisitorConfig
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration
}

// DefaultRouterConfig returns development defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORS:           middleware.DefaultCORSConfig(),
		Visitor:        middleware.DefaultVisitorConfig(),
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		RequestTimeout: 30 * time.Second,
	}
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	registry *session.Registry,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics())
	r.Use(middleware.Tracing())

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	h := NewHandler(registry, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.CORS))
		r.Use(middleware.Visitor(cfg.Visitor))
		r.Use(middleware.RequestLogger(logger))
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
		r.Use(middleware.NoStore)
		r.Use(ContentTypeJSON)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/tokens", h.SaveTokens)
			r.Delete("/", h.Logout)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Put("/items/{id}", h.UpdateCartItem)
			r.Delete("/items/{id}", h.RemoveCartItem)
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", h.ListAddresses)
			r.Post("/", h.CreateAddress)
			r.Put("/{id}", h.UpdateAddress)
			r.Delete("/{id}", h.DeleteAddress)
			r.Post("/{id}/default", h.SetDefaultAddress)
			r.Post("/{id}/select", h.SelectAddress)
		})

		r.Route("/shipping", func(r chi.Router) {
			r.Get("/", h.GetShipping)
			r.Post("/quote", h.QuoteShipping)
			r.Post("/select", h.SelectCourier)
			r.Get("/track/awb/{awb}", h.TrackAWB)
			r.Get("/track/shipment/{id}", h.TrackShipment)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", h.GetCheckout)
			r.Post("/next", h.NextStep)
			r.Post("/back", h.PreviousStep)
			r.Post("/restart", h.RestartCheckout)
			r.Post("/promo", h.ApplyPromo)
			r.Delete("/promo", h.RemovePromo)
		})

		r.Route("/payment", func(r chi.Router) {
			r.Get("/", h.GetPayment)
			r.Post("/start", h.StartPayment)
			r.Post("/callback", h.PaymentCallback)
			r.Post("/retry", h.RetryPayment)
			r.Post("/abandon", h.AbandonPayment)
		})

		r.Get("/orders/{id}", h.GetOrder)
	})

	return r
}
