package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lilohq/lilo-bookings/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotal(t *testing.T) {
	exp := domain.Experience{
		ID:             uuid.New(),
		HostID:         uuid.New(),
		Title:          "Sunset kayak tour",
		UnitPriceCents: 6500,
		MaxGuests:      8,
		Active:         true,
	}

	tests := []struct {
		name       string
		guestCount int
		want       int64
		wantErr    error
	}{
		{name: "single guest", guestCount: 1, want: 6500},
		{name: "two guests", guestCount: 2, want: 13000},
		{name: "at capacity", guestCount: 8, want: 52000},
		{name: "zero guests", guestCount: 0, wantErr: domain.ErrValidation},
		{name: "negative guests", guestCount: -3, wantErr: domain.ErrValidation},
		{name: "over capacity", guestCount: 9, wantErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ComputeTotal(exp, tt.guestCount)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewBookingStartsPending(t *testing.T) {
	exp := domain.Experience{ID: uuid.New(), UnitPriceCents: 6500, MaxGuests: 8, Active: true}
	guestID := uuid.New()

	total, err := domain.ComputeTotal(exp, 2)
	require.NoError(t, err)

	b := domain.NewBooking(exp, guestID, time.Now().AddDate(0, 0, 7), 2, total, "", domain.ContactInfo{})
	assert.Equal(t, domain.StatusPending, b.Status)
	assert.Equal(t, int64(13000), b.TotalPriceCents)
	assert.Equal(t, guestID, b.GuestID)
	assert.Nil(t, b.PaymentSessionID)
}
