package domain

import "github.com/cockroachdb/errors"

// ComputeTotal derives the booking total from the experience's server-held
// unit price. Totals are never accepted from the client; this is the only
// place a price is computed.
func ComputeTotal(exp Experience, guestCount int) (int64, error) {
	if guestCount < 1 || guestCount > exp.MaxGuests {
		return 0, errors.Wrapf(ErrValidation, "guest count %d outside [1, %d]", guestCount, exp.MaxGuests)
	}
	return exp.UnitPriceCents * int64(guestCount), nil
}
