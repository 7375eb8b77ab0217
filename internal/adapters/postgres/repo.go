package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lilohq/lilo-bookings/internal/domain"
	"github.com/lilohq/lilo-bookings/internal/observability"
	"golang.org/x/sync/errgroup"
)

const (
	SerializationFailureCode = "40001"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	started := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(started).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) GetExperience(ctx context.Context, id uuid.UUID) (*domain.Experience, error) {
	var exp domain.Experience
	err := r.pool.QueryRow(ctx, `
		SELECT id, host_id, title, unit_price_cents, max_guests, active
		FROM experiences WHERE id = $1
	`, id).Scan(&exp.ID, &exp.HostID, &exp.Title, &exp.UnitPriceCents, &exp.MaxGuests, &exp.Active)
	if err == pgx.ErrNoRows {
		return nil, errors.Wrap(domain.ErrNotFound, "experience")
	}
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	var p domain.Profile
	err := r.pool.QueryRow(ctx, `
		SELECT id, full_name, email FROM profiles WHERE id = $1
	`, id).Scan(&p.ID, &p.FullName, &p.Email)
	if err == pgx.ErrNoRows {
		return nil, errors.Wrap(domain.ErrNotFound, "profile")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) CreateBooking(ctx context.Context, tx pgx.Tx, b domain.Booking) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO bookings (id, experience_id, guest_id, booking_date, guest_count,
			total_price_cents, status, special_requests, contact_name, contact_phone,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8, $9, $10, $10)
	`, b.ID, b.ExperienceID, b.GuestID, b.BookingDate, b.GuestCount,
		b.TotalPriceCents, b.SpecialRequests, b.ContactName, b.ContactPhone, b.CreatedAt)
	return err
}

// CreatePendingBooking persists a new pending booking in its own transaction.
func (r *Repository) CreatePendingBooking(ctx context.Context, b domain.Booking) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		return r.CreateBooking(ctx, tx, b)
	})
}

func (r *Repository) SetPaymentSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE bookings SET payment_session_id = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, sessionID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errors.Wrap(domain.ErrNotFound, "booking")
	}
	return nil
}

func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return r.scanBooking(r.pool.QueryRow(ctx, selectBooking+` WHERE id = $1`, id))
}

const selectBooking = `
	SELECT id, experience_id, guest_id, booking_date, guest_count, total_price_cents,
		status, payment_session_id, special_requests, contact_name, contact_phone,
		created_at, updated_at
	FROM bookings`

func (r *Repository) scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.ExperienceID, &b.GuestID, &b.BookingDate, &b.GuestCount,
		&b.TotalPriceCents, &b.Status, &b.PaymentSessionID, &b.SpecialRequests,
		&b.ContactName, &b.ContactPhone, &b.CreatedAt, &b.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, errors.Wrap(domain.ErrNotFound, "booking")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// transition flips the booking status with a single conditional update. The
// status precondition lives in the WHERE clause, never in a prior read, so two
// concurrent callers cannot both observe pending and both proceed.
func (r *Repository) transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to string, sessionID *string) (*domain.Booking, error) {
	row := tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = $3, payment_session_id = COALESCE($4, payment_session_id), updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING id, experience_id, guest_id, booking_date, guest_count, total_price_cents,
			status, payment_session_id, special_requests, contact_name, contact_phone,
			created_at, updated_at
	`, id, from, to, sessionID)

	b, err := r.scanBooking(row)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Zero rows: either the booking does not exist or it already left `from`.
	var current string
	scanErr := tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&current)
	if scanErr == pgx.ErrNoRows {
		return nil, errors.Wrap(domain.ErrNotFound, "booking")
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return nil, errors.Wrapf(domain.ErrInvalidState, "booking %s is %s, not %s", id, current, from)
}

// ConfirmBooking atomically moves a pending booking to confirmed, attaching
// the payment session id for audit, and records the booking.confirmed outbox
// event in the same transaction.
func (r *Repository) ConfirmBooking(ctx context.Context, id uuid.UUID, sessionID string) (*domain.Booking, error) {
	var confirmed *domain.Booking
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		b, err := r.transition(ctx, tx, id, domain.StatusPending, domain.StatusConfirmed, &sessionID)
		if err != nil {
			return err
		}
		confirmed = b
		return r.InsertOutbox(ctx, tx, newBookingEvent("booking.confirmed", *b))
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// CancelBooking atomically moves a pending booking to cancelled and records
// the booking.cancelled outbox event.
func (r *Repository) CancelBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	var cancelled *domain.Booking
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		b, err := r.transition(ctx, tx, id, domain.StatusPending, domain.StatusCancelled, nil)
		if err != nil {
			return err
		}
		cancelled = b
		return r.InsertOutbox(ctx, tx, newBookingEvent("booking.cancelled", *b))
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func newBookingEvent(eventType string, b domain.Booking) OutboxRecord {
	payload, _ := json.Marshal(map[string]interface{}{
		"booking_id":        b.ID,
		"experience_id":     b.ExperienceID,
		"guest_id":          b.GuestID,
		"status":            b.Status,
		"total_price_cents": b.TotalPriceCents,
	})
	return OutboxRecord{
		ID:            uuid.New(),
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     eventType,
		Payload:       payload,
		DedupeKey:     eventType + ":" + b.ID.String(),
	}
}

func (r *Repository) GetExpiredPending(ctx context.Context, cutoff time.Time) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, selectBooking+`
		WHERE status = 'pending' AND created_at <= $1`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// BookingContext bundles everything the notifier needs to render a
// confirmation email.
type BookingContext struct {
	Booking    domain.Booking
	Experience domain.Experience
	Guest      domain.Profile
	Host       domain.Profile
}

func (r *Repository) GetBookingContext(ctx context.Context, bookingID uuid.UUID) (*BookingContext, error) {
	booking, err := r.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	bc := BookingContext{Booking: *booking}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		exp, err := r.GetExperience(gctx, booking.ExperienceID)
		if err != nil {
			return err
		}
		bc.Experience = *exp
		return nil
	})
	g.Go(func() error {
		guest, err := r.GetProfile(gctx, booking.GuestID)
		if err != nil {
			return err
		}
		bc.Guest = *guest
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	host, err := r.GetProfile(ctx, bc.Experience.HostID)
	if err != nil {
		return nil, err
	}
	bc.Host = *host
	return &bc, nil
}
