package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lilo_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	CheckoutSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lilo_checkout_sessions_total",
			Help: "Checkout sessions opened with the payment provider",
		},
		[]string{"result"},
	)

	PaymentsVerifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lilo_payments_verified_total",
			Help: "Payment verification outcomes",
		},
		[]string{"result"},
	)

	BookingsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lilo_bookings_expired_total",
			Help: "Pending bookings cancelled by the expiry sweep",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lilo_emails_sent_total",
			Help: "Confirmation emails attempted by the notifier",
		},
		[]string{"result"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lilo_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lilo_outbox_lag_seconds",
			Help: "Age of the oldest unpublished outbox record",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lilo_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
