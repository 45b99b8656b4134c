package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (id, vendor_id, name, description, category, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.VendorID, p.Name, p.Description, p.Category, p.Price, p.Quantity)
	if err != nil {
		return fmt.Errorf("catalog repository create: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	err := r.db.GetContext(ctx, &p, `SELECT * FROM products WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("catalog repository get: %w", err)
	}
	return &p, nil
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]*Product, error) {
	var products []*Product
	err := r.db.SelectContext(ctx, &products, `
		SELECT * FROM products ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return products, err
}

func (r *Repository) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]*Product, error) {
	var products []*Product
	err := r.db.SelectContext(ctx, &products, `
		SELECT * FROM products WHERE vendor_id = $1 ORDER BY created_at DESC
	`, vendorID)
	return products, err
}

// GetForUpdate locks the product row and returns the price and stock the
// enclosing transaction decides on. Price is read here, at checkout time.
func (r *Repository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Product, error) {
	var p Product
	err := tx.GetContext(ctx, &p, `SELECT * FROM products WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("catalog repository lock: %w", err)
	}
	return &p, nil
}

// ReserveStock decrements stock for a product already locked by GetForUpdate.
// The quantity guard on the update keeps the stock from ever going negative.
func (r *Repository) ReserveStock(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE products SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND quantity >= $2
	`, id, quantity)
	if err != nil {
		return fmt.Errorf("catalog repository reserve: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var p Product
		if err := tx.GetContext(ctx, &p, `SELECT * FROM products WHERE id = $1`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProductNotFound
			}
			return err
		}
		return &InsufficientStockError{ProductID: id, Name: p.Name, Available: p.Quantity, Requested: quantity}
	}
	return nil
}

// RestoreStock puts reserved quantity back; used for manual corrections only,
// checkout rollback is handled by the enclosing transaction.
func (r *Repository) RestoreStock(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE products SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1
	`, id, quantity)
	return err
}
