package cart

import (
	"time"

	"github.com/google/uuid"
)

// Item is a cart line: one product, a quantity, owned by a buyer
type Item struct {
	ID        uuid.UUID `db:"id" json:"id"`
	BuyerID   uuid.UUID `db:"buyer_id" json:"buyer_id"`
	ProductID uuid.UUID `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ItemView is a cart line joined with product details for display
type ItemView struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ProductID   uuid.UUID `db:"product_id" json:"product_id"`
	ProductName string    `db:"product_name" json:"product_name"`
	Price       int64     `db:"price" json:"price"`
	Quantity    int       `db:"quantity" json:"quantity"`
	LineTotal   int64     `db:"line_total" json:"line_total"`
}
