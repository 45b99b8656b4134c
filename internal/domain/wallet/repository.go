package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// EnsureWallet creates the wallet row on first touch
func (r *Repository) EnsureWallet(ctx context.Context, userID uuid.UUID, kind Kind) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (user_id, kind, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id, kind) DO NOTHING
	`, userID, kind)
	return err
}

// GetBalance returns the committed balance without locking
func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID, kind Kind) (int64, error) {
	if err := r.EnsureWallet(ctx, userID, kind); err != nil {
		return 0, err
	}

	var balance int64
	err := r.db.GetContext(ctx, &balance, `SELECT balance FROM wallets WHERE user_id = $1 AND kind = $2`, userID, kind)
	return balance, err
}

// Lock acquires an exclusive row lock on the wallet and returns the balance
// it protects. The row is created on first touch. All balance checks and
// mutations must read through this lock inside the enclosing transaction.
func (r *Repository) Lock(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, kind Kind) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, kind, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id, kind) DO NOTHING
	`, userID, kind); err != nil {
		return 0, err
	}

	var balance int64
	err := tx.GetContext(ctx, &balance, `SELECT balance FROM wallets WHERE user_id = $1 AND kind = $2 FOR UPDATE`, userID, kind)
	return balance, err
}

// Credit increments a locked wallet and returns the new balance.
// The caller must hold the row lock from Lock in the same transaction.
func (r *Repository) Credit(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, kind Kind, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int64
	err := tx.GetContext(ctx, &balance, `
		UPDATE wallets SET balance = balance + $3, updated_at = now()
		WHERE user_id = $1 AND kind = $2
		RETURNING balance
	`, userID, kind, amount)
	return balance, err
}

// Debit decrements a locked wallet, refusing to take the balance negative.
// currentBalance is the value read under the lock.
func (r *Repository) Debit(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, kind Kind, currentBalance, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if currentBalance < amount {
		return 0, &InsufficientFundsError{Balance: currentBalance, Required: amount}
	}

	var balance int64
	err := tx.GetContext(ctx, &balance, `
		UPDATE wallets SET balance = balance - $3, updated_at = now()
		WHERE user_id = $1 AND kind = $2 AND balance >= $3
		RETURNING balance
	`, userID, kind, amount)
	return balance, err
}
