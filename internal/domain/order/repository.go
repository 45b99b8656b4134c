package order

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

// CreateWithEscrow inserts the order, its lines, and the escrow row holding
// its funds, all inside the caller's transaction.
func (r *Repository) CreateWithEscrow(ctx context.Context, tx *sqlx.Tx, o *Order, items []*Item) (*Escrow, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, buyer_id, vendor_id, total, status, qr_token, qr_expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, o.ID, o.BuyerID, o.VendorID, o.Total, o.Status, o.QRToken, o.QRExpiresAt, o.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, name, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, item.ID, o.ID, item.ProductID, item.Name, item.UnitPrice, item.Quantity)
		if err != nil {
			return nil, err
		}
	}

	escrow := &Escrow{
		ID:       uuid.New(),
		OrderID:  o.ID,
		BuyerID:  o.BuyerID,
		VendorID: o.VendorID,
		Amount:   o.Total,
		Status:   EscrowHeld,
		HeldAt:   o.CreatedAt,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO escrow_wallets (id, order_id, buyer_id, vendor_id, amount, status, held_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, escrow.ID, escrow.OrderID, escrow.BuyerID, escrow.VendorID, escrow.Amount, escrow.Status, escrow.HeldAt)
	if err != nil {
		return nil, err
	}

	return escrow, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, `SELECT * FROM orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *Repository) GetItems(ctx context.Context, orderID string) ([]*Item, error) {
	items := []*Item{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM order_items WHERE order_id = $1 ORDER BY name
	`, orderID)
	return items, err
}

func (r *Repository) GetEscrowByOrderID(ctx context.Context, orderID string) (*Escrow, error) {
	var e Escrow
	err := r.db.GetContext(ctx, &e, `SELECT * FROM escrow_wallets WHERE order_id = $1`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListByBuyer returns a buyer's orders, newest first
func (r *Repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*Order, error) {
	orders := []*Order{}
	err := r.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders WHERE buyer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, buyerID, limit, offset)
	return orders, err
}

// ListByVendor returns a vendor's orders, newest first
func (r *Repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]*Order, error) {
	orders := []*Order{}
	err := r.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders WHERE vendor_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, vendorID, limit, offset)
	return orders, err
}

// LockOrder acquires an exclusive row lock on the order for settlement.
// Settlement paths must lock the order before the escrow, and the escrow
// before any wallet, so concurrent scan and sweep serialize cleanly.
func (r *Repository) LockOrder(ctx context.Context, tx *sqlx.Tx, id string) (*Order, error) {
	var o Order
	err := tx.GetContext(ctx, &o, `SELECT * FROM orders WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// LockEscrow acquires an exclusive row lock on the order's escrow
func (r *Repository) LockEscrow(ctx context.Context, tx *sqlx.Tx, orderID string) (*Escrow, error) {
	var e Escrow
	err := tx.GetContext(ctx, &e, `SELECT * FROM escrow_wallets WHERE order_id = $1 FOR UPDATE`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// MarkReleased completes the order and releases its escrow. The updates are
// guarded on the current status so a concurrent settlement loses cleanly.
func (r *Repository) MarkReleased(ctx context.Context, tx *sqlx.Tx, orderID string, at time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, qr_scanned = TRUE, qr_scanned_at = $3, completed_at = $3
		WHERE id = $1 AND status = $4
	`, orderID, StatusCompleted, at, StatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyProcessed
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE escrow_wallets SET status = $2, released_at = $3
		WHERE order_id = $1 AND status = $4
	`, orderID, EscrowReleased, at, EscrowHeld)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEscrowNotHeld
	}
	return nil
}

// MarkRefunded expires the order and refunds its escrow, guarded the same way
func (r *Repository) MarkRefunded(ctx context.Context, tx *sqlx.Tx, orderID string, at time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $2
		WHERE id = $1 AND status = $3
	`, orderID, StatusExpired, StatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyProcessed
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE escrow_wallets SET status = $2, released_at = $3
		WHERE order_id = $1 AND status = $4
	`, orderID, EscrowRefunded, at, EscrowHeld)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEscrowNotHeld
	}
	return nil
}

// ListExpiredPending returns ids of pending orders whose QR window has closed
func (r *Repository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]string, error) {
	ids := []string{}
	err := r.db.SelectContext(ctx, &ids, `
		SELECT id FROM orders
		WHERE status = $1 AND qr_expires_at <= $2
		ORDER BY qr_expires_at
		LIMIT $3
	`, StatusPending, now, limit)
	return ids, err
}
