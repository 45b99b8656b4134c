package notification

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Category represents notification category
type Category string

const (
	CategoryOrder   Category = "order"   // order created / completed / expired
	CategoryPayment Category = "payment" // top-up and escrow settlements
	CategoryGeneral Category = "general"
)

// Notification represents a user notification
type Notification struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	UserID    uuid.UUID    `db:"user_id" json:"user_id"`
	Category  Category     `db:"category" json:"category"`
	Title     string       `db:"title" json:"title"`
	Message   string       `db:"message" json:"message"`
	IsRead    bool         `db:"is_read" json:"is_read"`
	ReadAt    sql.NullTime `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}
