package payment

import "errors"

var (
	ErrNotFound           = errors.New("transaction not found")
	ErrForbidden          = errors.New("transaction belongs to a different user")
	ErrInvalidAmount      = errors.New("invalid top-up amount")
	ErrVerificationFailed = errors.New("gateway did not confirm the transaction")
)
