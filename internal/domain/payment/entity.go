package payment

import (
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// TxStatus represents transaction status
type TxStatus string

const (
	TxPending   TxStatus = "PENDING"
	TxCompleted TxStatus = "COMPLETED"
)

// TxType represents transaction type
type TxType string

const (
	TypePurchase TxType = "PURCHASE"
	TypeTopUp    TxType = "TOPUP"
)

// NewReference generates a short unique gateway reference
func NewReference() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:12]
}

// Transaction is the money-movement ledger record. Purchases reference the
// order and product they settle; top-ups carry only the buyer and amount.
type Transaction struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	BuyerID     uuid.UUID      `db:"buyer_id" json:"buyer_id"`
	VendorID    uuid.NullUUID  `db:"vendor_id" json:"vendor_id,omitempty"`
	ProductID   uuid.NullUUID  `db:"product_id" json:"product_id,omitempty"`
	OrderID     sql.NullString `db:"order_id" json:"order_id,omitempty"`
	Quantity    int            `db:"quantity" json:"quantity"`
	Amount      int64          `db:"amount" json:"amount"`
	Reference   string         `db:"reference" json:"reference"`
	Status      TxStatus       `db:"status" json:"status"`
	Type        TxType         `db:"type" json:"type"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	CompletedAt sql.NullTime   `db:"completed_at" json:"completed_at,omitempty"`
}
