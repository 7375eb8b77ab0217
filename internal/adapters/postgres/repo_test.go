package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/lilohq/lilo-bookings/internal/adapters/postgres"
	"github.com/lilohq/lilo-bookings/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS experiences (
		id UUID PRIMARY KEY,
		host_id UUID NOT NULL,
		title TEXT NOT NULL,
		unit_price_cents BIGINT NOT NULL,
		max_guests INT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT true
	);
	CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		experience_id UUID NOT NULL,
		guest_id UUID NOT NULL,
		booking_date TIMESTAMPTZ NOT NULL,
		guest_count INT NOT NULL,
		total_price_cents BIGINT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'confirmed', 'cancelled')),
		payment_session_id TEXT,
		special_requests TEXT NOT NULL DEFAULT '',
		contact_name TEXT NOT NULL DEFAULT '',
		contact_phone TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS outbox (
		id UUID PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id UUID NOT NULL,
		event_type TEXT NOT NULL,
		payload_json BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		dedupe_key TEXT NOT NULL
	);
`

func setupRepo(t *testing.T) (*postgres.Repository, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			Env:          map[string]string{"POSTGRES_USER": "lilo", "POSTGRES_PASSWORD": "lilo", "POSTGRES_DB": "lilo"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, "postgres://lilo:lilo@"+host+":"+port.Port()+"/lilo?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatal(err)
	}

	return postgres.NewRepository(pool), pool
}

func newPendingBooking() domain.Booking {
	exp := domain.Experience{ID: uuid.New(), UnitPriceCents: 6500, MaxGuests: 8, Active: true}
	return domain.NewBooking(exp, uuid.New(), time.Now().AddDate(0, 0, 7), 2, 13000, "window seat", domain.ContactInfo{Name: "Ana"})
}

func TestRepository_CreateAndGetBooking(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	b := newPendingBooking()
	if err := repo.CreatePendingBooking(ctx, b); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	fetched, err := repo.GetBooking(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != domain.StatusPending || fetched.TotalPriceCents != 13000 {
		t.Errorf("expected pending booking with total 13000, got %s / %d", fetched.Status, fetched.TotalPriceCents)
	}
	if fetched.PaymentSessionID != nil {
		t.Errorf("expected no payment session on a fresh booking, got %v", *fetched.PaymentSessionID)
	}

	if err := repo.SetPaymentSession(ctx, b.ID, "cs_test_1"); err != nil {
		t.Fatal(err)
	}
	fetched, err = repo.GetBooking(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.PaymentSessionID == nil || *fetched.PaymentSessionID != "cs_test_1" {
		t.Errorf("expected payment session cs_test_1, got %v", fetched.PaymentSessionID)
	}
}

func TestRepository_ConfirmBookingExactlyOnce(t *testing.T) {
	repo, pool := setupRepo(t)
	ctx := context.Background()

	b := newPendingBooking()
	if err := repo.CreatePendingBooking(ctx, b); err != nil {
		t.Fatal(err)
	}

	confirmed, err := repo.ConfirmBooking(ctx, b.ID, "cs_test_1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if confirmed.Status != domain.StatusConfirmed {
		t.Errorf("expected confirmed, got %s", confirmed.Status)
	}
	if confirmed.PaymentSessionID == nil || *confirmed.PaymentSessionID != "cs_test_1" {
		t.Errorf("expected session id attached, got %v", confirmed.PaymentSessionID)
	}

	_, err = repo.ConfirmBooking(ctx, b.ID, "cs_test_1")
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected invalid state on second confirm, got %v", err)
	}

	fetched, err := repo.GetBooking(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != domain.StatusConfirmed {
		t.Errorf("second confirm must not re-mutate; got %s", fetched.Status)
	}

	var outboxCount int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM outbox WHERE aggregate_id = $1`, b.ID).Scan(&outboxCount); err != nil {
		t.Fatal(err)
	}
	if outboxCount != 1 {
		t.Errorf("expected exactly one outbox event, got %d", outboxCount)
	}
}

func TestRepository_ConcurrentConfirmSingleWinner(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	b := newPendingBooking()
	if err := repo.CreatePendingBooking(ctx, b); err != nil {
		t.Fatal(err)
	}

	results := make(chan error, 2)
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			_, err := repo.ConfirmBooking(ctx, b.ID, "cs_test_1")
			results <- err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	close(results)

	var successes, invalidState int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrInvalidState) || errors.Is(err, domain.ErrSerializationFailure):
			invalidState++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("expected exactly one winner, got %d", successes)
	}
	if invalidState != 1 {
		t.Errorf("expected exactly one loser, got %d", invalidState)
	}
}

func TestRepository_CancelAndExpiry(t *testing.T) {
	repo, pool := setupRepo(t)
	ctx := context.Background()

	stale := newPendingBooking()
	if err := repo.CreatePendingBooking(ctx, stale); err != nil {
		t.Fatal(err)
	}
	// Age the row past the cutoff.
	if _, err := pool.Exec(ctx, `UPDATE bookings SET created_at = now() - interval '48 hours' WHERE id = $1`, stale.ID); err != nil {
		t.Fatal(err)
	}

	fresh := newPendingBooking()
	if err := repo.CreatePendingBooking(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	expired, err := repo.GetExpiredPending(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 1 || expired[0].ID != stale.ID {
		t.Fatalf("expected only the stale booking, got %d rows", len(expired))
	}

	cancelled, err := repo.CancelBooking(ctx, stale.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}

	if _, err := repo.CancelBooking(ctx, stale.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("cancelled is terminal; expected invalid state, got %v", err)
	}

	if _, err := repo.CancelBooking(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for unknown booking, got %v", err)
	}
}

func TestRepository_OutboxLifecycle(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	b := newPendingBooking()
	if err := repo.CreatePendingBooking(ctx, b); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ConfirmBooking(ctx, b.ID, "cs_test_1"); err != nil {
		t.Fatal(err)
	}

	records, err := repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].EventType != "booking.confirmed" {
		t.Fatalf("expected one booking.confirmed record, got %+v", records)
	}

	if err := repo.MarkPublished(ctx, records[0].ID, time.Now()); err != nil {
		t.Fatal(err)
	}
	records, err = repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty outbox after publish, got %d", len(records))
	}
}
