package domain

import (
	"time"

	"github.com/google/uuid"
)

type ContactInfo struct {
	Name  string
	Phone string
}

func NewBooking(exp Experience, guestID uuid.UUID, date time.Time, guestCount int, totalCents int64, requests string, contact ContactInfo) Booking {
	now := time.Now().UTC()
	return Booking{
		ID:              uuid.New(),
		ExperienceID:    exp.ID,
		GuestID:         guestID,
		BookingDate:     date,
		GuestCount:      guestCount,
		TotalPriceCents: totalCents,
		Status:          StatusPending,
		SpecialRequests: requests,
		ContactName:     contact.Name,
		ContactPhone:    contact.Phone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
