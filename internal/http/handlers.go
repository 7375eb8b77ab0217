package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lilohq/lilo-bookings/internal/booking"
	"github.com/lilohq/lilo-bookings/internal/domain"
	"github.com/lilohq/lilo-bookings/internal/idempotency"
)

type Handlers struct {
	svc   *booking.Service
	idemp *idempotency.Idempotency
}

func NewHandlers(svc *booking.Service, idemp *idempotency.Idempotency) *Handlers {
	return &Handlers{svc: svc, idemp: idemp}
}

type bookingPayload struct {
	ID               uuid.UUID `json:"id"`
	ExperienceID     uuid.UUID `json:"experience_id"`
	BookingDate      time.Time `json:"booking_date"`
	GuestCount       int       `json:"guest_count"`
	TotalPriceCents  int64     `json:"total_price_cents"`
	Status           string    `json:"status"`
	PaymentSessionID *string   `json:"payment_session_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func toBookingPayload(b *domain.Booking) bookingPayload {
	return bookingPayload{
		ID:               b.ID,
		ExperienceID:     b.ExperienceID,
		BookingDate:      b.BookingDate,
		GuestCount:       b.GuestCount,
		TotalPriceCents:  b.TotalPriceCents,
		Status:           b.Status,
		PaymentSessionID: b.PaymentSessionID,
		CreatedAt:        b.CreatedAt,
	}
}

func (h *Handlers) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		ExperienceID    uuid.UUID `json:"experience_id"`
		BookingDate     time.Time `json:"booking_date"`
		GuestCount      int       `json:"guest_count"`
		SpecialRequests string    `json:"special_requests"`
		ContactName     string    `json:"contact_name"`
		ContactPhone    string    `json:"contact_phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Checkout(r.Context(), userID, booking.CheckoutInput{
		ExperienceID:    req.ExperienceID,
		BookingDate:     req.BookingDate,
		GuestCount:      req.GuestCount,
		SpecialRequests: req.SpecialRequests,
		Contact:         domain.ContactInfo{Name: req.ContactName, Phone: req.ContactPhone},
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	data, _ := json.Marshal(map[string]interface{}{
		"booking_id": result.BookingID,
		"url":        result.URL,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)

	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		SessionID string    `json:"session_id"`
		BookingID uuid.UUID `json:"booking_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID == "" || req.BookingID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "session_id and booking_id are required")
		return
	}

	b, err := h.svc.Verify(r.Context(), req.SessionID, req.BookingID, userID)
	if errors.Is(err, domain.ErrInvalidState) {
		// A retried verification of an already-confirmed booking is a
		// harmless no-op, not a failure.
		current, getErr := h.svc.Get(r.Context(), req.BookingID, userID)
		if getErr == nil && current.Status == domain.StatusConfirmed {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"booking": toBookingPayload(current),
			})
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"booking": toBookingPayload(b),
	})
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	b, err := h.svc.Cancel(r.Context(), id, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"booking": toBookingPayload(b)})
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	b, err := h.svc.Get(r.Context(), id, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"booking": toBookingPayload(b)})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPaymentNotCompleted):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, domain.ErrPaymentProvider):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrSerializationFailure):
		writeError(w, http.StatusConflict, "conflict, try again")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
