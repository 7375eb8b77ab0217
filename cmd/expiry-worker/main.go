package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lilohq/lilo-bookings/internal/adapters/postgres"
	"github.com/lilohq/lilo-bookings/internal/config"
	"github.com/lilohq/lilo-bookings/internal/domain"
	"github.com/lilohq/lilo-bookings/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool)

	worker := NewExpiryWorker(repo, cfg.PendingTTL, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, time.Minute)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown expiry worker")
}

// ExpiryWorker cancels bookings whose checkout was abandoned: still pending
// after the configured TTL. The cancel goes through the same conditional
// status update as verification, so a booking confirmed mid-sweep is skipped,
// never clobbered.
type ExpiryWorker struct {
	repo       *postgres.Repository
	pendingTTL time.Duration
	logger     observability.Logger
}

func NewExpiryWorker(repo *postgres.Repository, pendingTTL time.Duration, logger observability.Logger) *ExpiryWorker {
	return &ExpiryWorker{repo: repo, pendingTTL: pendingTTL, logger: logger}
}

func (w *ExpiryWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.sweep(ctx, now)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context, now time.Time) {
	expired, err := w.repo.GetExpiredPending(ctx, now.Add(-w.pendingTTL))
	if err != nil {
		w.logger.Error("failed to list expired pending bookings", err)
		return
	}
	for _, b := range expired {
		if err := w.cancelWithRetry(ctx, b); err != nil {
			w.logger.WithField("booking_id", b.ID).Error("failed to expire booking", err)
		}
	}
}

func (w *ExpiryWorker) cancelWithRetry(ctx context.Context, b domain.Booking) error {
	maxRetries := 3
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		_, err := w.repo.CancelBooking(ctx, b.ID)
		if err == nil {
			observability.BookingsExpiredTotal.Inc()
			w.logger.WithField("booking_id", b.ID).Info("expired pending booking cancelled")
			return nil
		}
		if errors.Is(err, domain.ErrInvalidState) {
			// Confirmed (or cancelled) between the listing and the update.
			return nil
		}
		lastErr = err

		backoff := time.Duration(1<<i) * time.Second
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return errors.Wrapf(lastErr, "failed after %d retries", maxRetries)
}
