package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// pq error codes
const (
	codeUniqueViolation  = "23505"
	codeLockNotAvailable = "55P03"
)

// SetLocalLockTimeout bounds row-lock waits for the current transaction.
// Lock acquisition failing within the window surfaces as a 55P03 error.
func SetLocalLockTimeout(ctx context.Context, tx *sqlx.Tx, d time.Duration) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.Milliseconds()))
	return err
}

// IsLockTimeout reports whether err is a lock_timeout expiry
func IsLockTimeout(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == codeLockNotAvailable
}

// IsUniqueViolation reports whether err is a unique constraint violation
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == codeUniqueViolation
}
