package domain

import "errors"

var (
	ErrValidation           = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("requester does not own this booking")
	ErrInvalidState         = errors.New("booking is not in a state that allows this transition")
	ErrPaymentProvider      = errors.New("payment provider request failed")
	ErrPaymentNotCompleted  = errors.New("payment not completed")
	ErrSerializationFailure = errors.New("serialization failure")
)
