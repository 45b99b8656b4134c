package order

import (
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Status represents order lifecycle status
type Status string

const (
	StatusPending   Status = "pending" // held in escrow, awaiting handover
	StatusAccepted  Status = "accepted"
	StatusAwaiting  Status = "awaiting"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// EscrowStatus represents the state of held funds
type EscrowStatus string

const (
	EscrowHeld     EscrowStatus = "HELD"
	EscrowReleased EscrowStatus = "RELEASED"
	EscrowRefunded EscrowStatus = "REFUNDED"
)

// NewID generates a human-readable order identifier
func NewID() string {
	u := uuid.New()
	return "ORD-" + hex.EncodeToString(u[:])[:7]
}

// NewQRToken generates the single-use token embedded in the pickup QR code
func NewQRToken() string {
	return uuid.NewString()
}

// Order represents a single-vendor order carved out of a checkout
type Order struct {
	ID          string       `db:"id" json:"id"`
	BuyerID     uuid.UUID    `db:"buyer_id" json:"buyer_id"`
	VendorID    uuid.UUID    `db:"vendor_id" json:"vendor_id"`
	Total       int64        `db:"total" json:"total"`
	Status      Status       `db:"status" json:"status"`
	QRToken     string       `db:"qr_token" json:"qr_token,omitempty"`
	QRExpiresAt time.Time    `db:"qr_expires_at" json:"qr_expires_at"`
	QRScanned   bool         `db:"qr_scanned" json:"qr_scanned"`
	QRScannedAt sql.NullTime `db:"qr_scanned_at" json:"qr_scanned_at,omitempty"`
	CompletedAt sql.NullTime `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}

// Escrow represents funds held against an order until handover or expiry
type Escrow struct {
	ID         uuid.UUID    `db:"id" json:"id"`
	OrderID    string       `db:"order_id" json:"order_id"`
	BuyerID    uuid.UUID    `db:"buyer_id" json:"buyer_id"`
	VendorID   uuid.UUID    `db:"vendor_id" json:"vendor_id"`
	Amount     int64        `db:"amount" json:"amount"`
	Status     EscrowStatus `db:"status" json:"status"`
	HeldAt     time.Time    `db:"held_at" json:"held_at"`
	ReleasedAt sql.NullTime `db:"released_at" json:"released_at,omitempty"`
}

// Item represents one product line inside an order
type Item struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OrderID   string    `db:"order_id" json:"order_id"`
	ProductID uuid.UUID `db:"product_id" json:"product_id"`
	Name      string    `db:"name" json:"name"`
	UnitPrice int64     `db:"unit_price" json:"unit_price"`
	Quantity  int       `db:"quantity" json:"quantity"`
}
