package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/pkg/logger"
)

// VisitorConfig controls how a storefront visitor is identified.
type VisitorConfig struct {
	CookieName string
	HeaderName string
	MaxAge     time.Duration
	Secure     bool
}

// DefaultVisitorConfig returns the cookie and header names used by the
// storefront UI.
func DefaultVisitorConfig() VisitorConfig {
	return VisitorConfig{
		CookieName: "sf_visitor",
		HeaderName: "X-Visitor-ID",
		MaxAge:     30 * 24 * time.Hour,
	}
}

// Visitor assigns every request a visitor ID. The header wins over the
// cookie so non-browser clients can pin an ID; a missing or malformed ID is
// replaced by a fresh UUID and handed back as a cookie. The ID is stored in
// the request context (see logger.VisitorIDFromContext).
func Visitor(cfg VisitorConfig) func(http.Handler) http.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = "sf_visitor"
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Visitor-ID"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := validVisitorID(r.Header.Get(cfg.HeaderName))
			if id == "" {
				if c, err := r.Cookie(cfg.CookieName); err == nil {
					id = validVisitorID(c.Value)
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(cfg.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			w.Header().Set(cfg.HeaderName, id)
			ctx := logger.WithVisitorID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validVisitorID(raw string) string {
	if raw == "" {
		return ""
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return ""
	}
	return id.String()
}
