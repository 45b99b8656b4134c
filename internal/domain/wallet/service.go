package wallet

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Service exposes self-contained wallet operations. The money-moving paths
// (checkout, escrow release, top-up) compose the Repository's tx-scoped
// Lock/Credit/Debit instead, so the whole movement commits atomically.
type Service struct {
	db   *sqlx.DB
	repo *Repository
}

func NewService(db *sqlx.DB, repo *Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID, kind Kind) (int64, error) {
	return s.repo.GetBalance(ctx, userID, kind)
}

// Credit applies a standalone credit in its own transaction
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, kind Kind, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := s.repo.Lock(ctx, tx, userID, kind); err != nil {
		return 0, err
	}
	balance, err := s.repo.Credit(ctx, tx, userID, kind, amount)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	log.Info().Str("user_id", userID.String()).Str("kind", string(kind)).Int64("amount", amount).Msg("wallet credit applied")
	return balance, nil
}

// Debit applies a standalone debit in its own transaction
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, kind Kind, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	current, err := s.repo.Lock(ctx, tx, userID, kind)
	if err != nil {
		return 0, err
	}
	balance, err := s.repo.Debit(ctx, tx, userID, kind, current, amount)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	log.Info().Str("user_id", userID.String()).Str("kind", string(kind)).Int64("amount", amount).Msg("wallet debit applied")
	return balance, nil
}
