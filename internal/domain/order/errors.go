package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrWrongVendor      = errors.New("order belongs to a different vendor")
	ErrInvalidQR        = errors.New("qr token does not match this order")
	ErrQRExpired        = errors.New("qr code has expired")
	ErrEscrowNotHeld    = errors.New("escrow is not in held state")
	ErrAlreadyProcessed = errors.New("order already processed")
)

// AlreadyProcessedError reports the terminal status an order reached
// before a duplicate settlement attempt.
type AlreadyProcessedError struct {
	Status Status
}

func (e *AlreadyProcessedError) Error() string {
	return fmt.Sprintf("order already processed: %s", e.Status)
}

func (e *AlreadyProcessedError) Unwrap() error {
	return ErrAlreadyProcessed
}
