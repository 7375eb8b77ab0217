package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lilohq/lilo-bookings/internal/observability"
	"github.com/lilohq/lilo-bookings/internal/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl ratelimit.Limiter, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(pr chi.Router) {
		pr.Use(JWTMiddleware(jwtSecret))
		pr.Use(RateLimitMiddleware(rl, logger))

		pr.With(RequireIdempotencyKey).Post("/v1/checkout", h.CreateCheckout)
		pr.Post("/v1/payments/verify", h.VerifyPayment)
		pr.Post("/v1/bookings/{id}/cancel", h.CancelBooking)
		pr.Get("/v1/bookings/{id}", h.GetBooking)
	})

	return r
}
