package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Add inserts a cart line or bumps the quantity when the product is already carted
func (r *Repository) Add(ctx context.Context, buyerID, productID uuid.UUID, quantity int) (*Item, error) {
	if quantity <= 0 {
		quantity = 1
	}

	var item Item
	err := r.db.GetContext(ctx, &item, `
		INSERT INTO cart_items (id, buyer_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (buyer_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, buyer_id, product_id, quantity, created_at
	`, uuid.New(), buyerID, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("cart repository add: %w", err)
	}
	return &item, nil
}

// Remove deletes a cart line owned by the buyer
func (r *Repository) Remove(ctx context.Context, buyerID, itemID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1 AND buyer_id = $2`, itemID, buyerID)
	if err != nil {
		return fmt.Errorf("cart repository remove: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ListView returns the buyer's cart joined with product details
func (r *Repository) ListView(ctx context.Context, buyerID uuid.UUID) ([]*ItemView, error) {
	var items []*ItemView
	err := r.db.SelectContext(ctx, &items, `
		SELECT ci.id, ci.product_id, p.name AS product_name, p.price,
		       ci.quantity, p.price * ci.quantity AS line_total
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.buyer_id = $1
		ORDER BY ci.created_at
	`, buyerID)
	return items, err
}

// ListForCheckout returns the buyer's cart lines, optionally restricted to a
// subset of cart item ids. The returned lines drive the checkout transaction.
func (r *Repository) ListForCheckout(ctx context.Context, buyerID uuid.UUID, itemIDs []uuid.UUID) ([]*Item, error) {
	var items []*Item
	var err error
	if len(itemIDs) > 0 {
		err = r.db.SelectContext(ctx, &items, `
			SELECT id, buyer_id, product_id, quantity, created_at
			FROM cart_items
			WHERE buyer_id = $1 AND id = ANY($2)
			ORDER BY created_at
		`, buyerID, pq.Array(itemIDs))
	} else {
		err = r.db.SelectContext(ctx, &items, `
			SELECT id, buyer_id, product_id, quantity, created_at
			FROM cart_items
			WHERE buyer_id = $1
			ORDER BY created_at
		`, buyerID)
	}
	if err != nil {
		return nil, fmt.Errorf("cart repository list: %w", err)
	}
	return items, nil
}

// ClearItems removes purchased lines inside the checkout transaction
func (r *Repository) ClearItems(ctx context.Context, tx *sqlx.Tx, buyerID uuid.UUID, itemIDs []uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM cart_items WHERE buyer_id = $1 AND id = ANY($2)
	`, buyerID, pq.Array(itemIDs))
	if err != nil {
		return fmt.Errorf("cart repository clear: %w", err)
	}
	return nil
}
