package wallet

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the two custodial wallet variants
type Kind string

const (
	KindBuyer  Kind = "buyer"
	KindVendor Kind = "vendor"
)

// Wallet is a custodial balance record, one row per (owner, kind).
// Balance is in the currency's minor unit and never negative.
type Wallet struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Kind      Kind      `db:"kind" json:"kind"`
	Balance   int64     `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
