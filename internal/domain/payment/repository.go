package payment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a pending top-up record
func (r *Repository) Create(ctx context.Context, t *Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, buyer_id, quantity, amount, reference, status, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.BuyerID, t.Quantity, t.Amount, t.Reference, t.Status, t.Type, t.CreatedAt)
	return err
}

// InsertPurchase records a settled purchase line inside the caller's
// checkout transaction.
func (r *Repository) InsertPurchase(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, buyer_id, vendor_id, product_id, order_id, quantity, amount, reference, status, type, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, t.ID, t.BuyerID, t.VendorID, t.ProductID, t.OrderID, t.Quantity, t.Amount, t.Reference, t.Status, t.Type, t.CreatedAt, t.CompletedAt)
	return err
}

// LockByReference acquires an exclusive row lock on a transaction for
// idempotent verification.
func (r *Repository) LockByReference(ctx context.Context, tx *sqlx.Tx, reference string) (*Transaction, error) {
	var t Transaction
	err := tx.GetContext(ctx, &t, `SELECT * FROM transactions WHERE reference = $1 FOR UPDATE`, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// MarkCompleted flips a pending transaction to completed. The update is
// guarded on the current status so only one verifier wins.
func (r *Repository) MarkCompleted(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE transactions SET status = $2, completed_at = $3
		WHERE id = $1 AND status = $4
	`, id, TxCompleted, at, TxPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByBuyer returns a buyer's transactions, newest first
func (r *Repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*Transaction, error) {
	txs := []*Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT * FROM transactions WHERE buyer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, buyerID, limit, offset)
	return txs, err
}
