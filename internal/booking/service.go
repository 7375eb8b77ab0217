package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/lilohq/lilo-bookings/internal/domain"
	"github.com/lilohq/lilo-bookings/internal/observability"
	"github.com/lilohq/lilo-bookings/internal/payments"
)

type Repository interface {
	GetExperience(ctx context.Context, id uuid.UUID) (*domain.Experience, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	CreatePendingBooking(ctx context.Context, b domain.Booking) error
	SetPaymentSession(ctx context.Context, id uuid.UUID, sessionID string) error
	ConfirmBooking(ctx context.Context, id uuid.UUID, sessionID string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
}

type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, p payments.CheckoutParams) (*payments.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*payments.CheckoutSession, error)
}

type AuditLog interface {
	LogBooking(ctx context.Context, action string, b domain.Booking) error
}

type Service struct {
	repo       Repository
	provider   PaymentProvider
	audit      AuditLog
	logger     observability.Logger
	successURL string
	cancelURL  string
}

func NewService(repo Repository, provider PaymentProvider, audit AuditLog, logger observability.Logger, successURL, cancelURL string) *Service {
	return &Service{
		repo:       repo,
		provider:   provider,
		audit:      audit,
		logger:     logger,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

type CheckoutInput struct {
	ExperienceID    uuid.UUID
	BookingDate     time.Time
	GuestCount      int
	SpecialRequests string
	Contact         domain.ContactInfo
}

type CheckoutResult struct {
	BookingID uuid.UUID
	URL       string
}

// Checkout validates the request against the server-held experience record,
// persists a pending booking with the computed price, and opens a hosted
// checkout session correlated to it.
func (s *Service) Checkout(ctx context.Context, guestID uuid.UUID, in CheckoutInput) (*CheckoutResult, error) {
	exp, err := s.repo.GetExperience(ctx, in.ExperienceID)
	if err != nil {
		return nil, err
	}
	if !exp.Active {
		return nil, errors.Wrap(domain.ErrNotFound, "experience is not active")
	}

	total, err := domain.ComputeTotal(*exp, in.GuestCount)
	if err != nil {
		return nil, err
	}

	guest, err := s.repo.GetProfile(ctx, guestID)
	if err != nil {
		return nil, err
	}

	b := domain.NewBooking(*exp, guestID, in.BookingDate, in.GuestCount, total, in.SpecialRequests, in.Contact)
	if err := s.repo.CreatePendingBooking(ctx, b); err != nil {
		return nil, err
	}
	s.logAudit(ctx, "booking.created", b)

	session, err := s.provider.CreateCheckoutSession(ctx, payments.CheckoutParams{
		BookingID:     b.ID.String(),
		ExperienceID:  exp.ID.String(),
		Description:   exp.Title,
		UnitAmount:    exp.UnitPriceCents,
		Quantity:      in.GuestCount,
		CustomerEmail: guest.Email,
		SuccessURL:    s.successURL,
		CancelURL:     s.cancelURL,
	})
	if err != nil {
		// The pending booking stays behind for the expiry sweep; opening a
		// second session for a fresh checkout attempt is the client's call.
		observability.CheckoutSessionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	observability.CheckoutSessionsTotal.WithLabelValues("ok").Inc()

	if err := s.repo.SetPaymentSession(ctx, b.ID, session.ID); err != nil {
		return nil, err
	}

	return &CheckoutResult{BookingID: b.ID, URL: session.URL}, nil
}

// Verify re-confirms payment with the provider and flips the booking to
// confirmed exactly once. The status precondition in the repository makes a
// duplicate call fail with ErrInvalidState rather than re-mutate the row.
func (s *Service) Verify(ctx context.Context, sessionID string, bookingID, requesterID uuid.UUID) (*domain.Booking, error) {
	session, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		observability.PaymentsVerifiedTotal.WithLabelValues("provider_error").Inc()
		return nil, err
	}
	if !session.Paid() {
		observability.PaymentsVerifiedTotal.WithLabelValues("not_paid").Inc()
		return nil, errors.Wrapf(domain.ErrPaymentNotCompleted, "session %s is %s", sessionID, session.PaymentStatus)
	}
	if correlated, ok := session.Metadata["booking_id"]; ok && correlated != bookingID.String() {
		observability.PaymentsVerifiedTotal.WithLabelValues("mismatch").Inc()
		return nil, errors.Wrap(domain.ErrValidation, "session does not belong to this booking")
	}

	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.GuestID != requesterID {
		observability.PaymentsVerifiedTotal.WithLabelValues("forbidden").Inc()
		return nil, domain.ErrUnauthorized
	}
	if session.AmountTotal != 0 && session.AmountTotal != b.TotalPriceCents {
		s.logger.WithField("booking_id", b.ID).Warn("session amount does not match booking total", session.AmountTotal, b.TotalPriceCents)
	}

	confirmed, err := s.repo.ConfirmBooking(ctx, bookingID, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			observability.PaymentsVerifiedTotal.WithLabelValues("replay").Inc()
		}
		return nil, err
	}
	observability.PaymentsVerifiedTotal.WithLabelValues("confirmed").Inc()
	s.logAudit(ctx, "booking.confirmed", *confirmed)
	return confirmed, nil
}

// Cancel moves a pending booking to cancelled on explicit guest request.
func (s *Service) Cancel(ctx context.Context, bookingID, requesterID uuid.UUID) (*domain.Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.GuestID != requesterID {
		return nil, domain.ErrUnauthorized
	}

	cancelled, err := s.repo.CancelBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "booking.cancelled", *cancelled)
	return cancelled, nil
}

// Get returns a booking to its owner.
func (s *Service) Get(ctx context.Context, bookingID, requesterID uuid.UUID) (*domain.Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.GuestID != requesterID {
		return nil, domain.ErrUnauthorized
	}
	return b, nil
}

// logAudit is best effort; the audit trail never blocks a booking operation.
func (s *Service) logAudit(ctx context.Context, action string, b domain.Booking) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogBooking(ctx, action, b); err != nil {
		s.logger.WithField("booking_id", b.ID).Error("audit write failed", err)
	}
}
