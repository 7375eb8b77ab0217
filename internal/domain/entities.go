package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

type Experience struct {
	ID             uuid.UUID
	HostID         uuid.UUID
	Title          string
	UnitPriceCents int64
	MaxGuests      int
	Active         bool
}

type Booking struct {
	ID               uuid.UUID
	ExperienceID     uuid.UUID
	GuestID          uuid.UUID
	BookingDate      time.Time
	GuestCount       int
	TotalPriceCents  int64
	Status           string
	PaymentSessionID *string
	SpecialRequests  string
	ContactName      string
	ContactPhone     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Profile struct {
	ID       uuid.UUID
	FullName string
	Email    string
}
