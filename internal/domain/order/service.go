package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/martly/martly-api/internal/domain/notification"
	"github.com/martly/martly-api/internal/domain/wallet"
	"github.com/martly/martly-api/internal/pkg/database"
)

// Notifier delivers post-settlement notifications. Delivery is best-effort
// and never affects the settlement outcome.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, category notification.Category, title, message string)
}

type Service struct {
	db          *sqlx.DB
	repo        *Repository
	walletRepo  *wallet.Repository
	notifier    Notifier
	lockTimeout time.Duration
}

func NewService(db *sqlx.DB, repo *Repository, walletRepo *wallet.Repository, notifier Notifier, lockTimeout time.Duration) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		walletRepo:  walletRepo,
		notifier:    notifier,
		lockTimeout: lockTimeout,
	}
}

// OrderDetail bundles an order with its lines and escrow state
type OrderDetail struct {
	Order  *Order  `json:"order"`
	Items  []*Item `json:"items"`
	Escrow *Escrow `json:"escrow"`
}

// Get returns an order visible to the requesting user. Buyers see their own
// orders, vendors the ones addressed to them. The QR token is stripped for
// vendors: they learn it by scanning, not by asking.
func (s *Service) Get(ctx context.Context, id string, userID uuid.UUID) (*OrderDetail, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != userID && o.VendorID != userID {
		return nil, ErrNotFound
	}
	if o.VendorID == userID {
		o.QRToken = ""
	}

	items, err := s.repo.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}
	escrow, err := s.repo.GetEscrowByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &OrderDetail{Order: o, Items: items, Escrow: escrow}, nil
}

// List returns the user's orders by role
func (s *Service) List(ctx context.Context, userID uuid.UUID, role string, limit, offset int) ([]*Order, error) {
	if role == "vendor" {
		orders, err := s.repo.ListByVendor(ctx, userID, limit, offset)
		if err != nil {
			return nil, err
		}
		for _, o := range orders {
			o.QRToken = ""
		}
		return orders, nil
	}
	return s.repo.ListByBuyer(ctx, userID, limit, offset)
}

// ValidateQR settles an order after the vendor scans the buyer's QR code.
// On success the held escrow amount is credited to the vendor wallet and the
// order completes. A second scan of the same order fails with
// AlreadyProcessedError; the transfer happens exactly once.
func (s *Service) ValidateQR(ctx context.Context, orderID string, vendorID uuid.UUID, qrToken string) (*OrderDetail, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := database.SetLocalLockTimeout(ctx, tx, s.lockTimeout); err != nil {
		return nil, err
	}

	o, err := s.repo.LockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.VendorID != vendorID {
		return nil, ErrWrongVendor
	}
	if o.QRToken != qrToken {
		return nil, ErrInvalidQR
	}
	if o.Status != StatusPending {
		return nil, &AlreadyProcessedError{Status: o.Status}
	}

	now := time.Now().UTC()
	if now.After(o.QRExpiresAt) {
		// The sweep owns expired orders; the scan path never settles them.
		return nil, ErrQRExpired
	}

	escrow, err := s.repo.LockEscrow(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != EscrowHeld {
		return nil, ErrEscrowNotHeld
	}

	if _, err := s.walletRepo.Lock(ctx, tx, o.VendorID, wallet.KindVendor); err != nil {
		return nil, err
	}
	if _, err := s.walletRepo.Credit(ctx, tx, o.VendorID, wallet.KindVendor, escrow.Amount); err != nil {
		return nil, err
	}

	if err := s.repo.MarkReleased(ctx, tx, orderID, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	log.Info().
		Str("order_id", orderID).
		Str("vendor_id", vendorID.String()).
		Int64("amount", escrow.Amount).
		Msg("Escrow released to vendor")

	if s.notifier != nil {
		s.notifier.Notify(ctx, o.VendorID, notification.CategoryPayment,
			"Payment released",
			fmt.Sprintf("Escrow for order %s has been released to your wallet", orderID))
		s.notifier.Notify(ctx, o.BuyerID, notification.CategoryOrder,
			"Order completed",
			fmt.Sprintf("Order %s has been marked as completed", orderID))
	}

	return s.Get(ctx, orderID, vendorID)
}

// ExpireDue refunds every pending order whose QR window has closed. Each
// order is settled in its own transaction so one stuck row does not block
// the rest of the batch.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	ids, err := s.repo.ListExpiredPending(ctx, time.Now().UTC(), 100)
	if err != nil {
		return 0, err
	}

	refunded := 0
	for _, id := range ids {
		if err := s.refundExpired(ctx, id); err != nil {
			log.Error().Err(err).Str("order_id", id).Msg("Failed to refund expired order")
			continue
		}
		refunded++
	}
	return refunded, nil
}

func (s *Service) refundExpired(ctx context.Context, orderID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := database.SetLocalLockTimeout(ctx, tx, s.lockTimeout); err != nil {
		return err
	}

	o, err := s.repo.LockOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if o.Status != StatusPending {
		// A scan beat the sweep to this order
		return nil
	}

	now := time.Now().UTC()
	if now.Before(o.QRExpiresAt) {
		return nil
	}

	escrow, err := s.repo.LockEscrow(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if escrow.Status != EscrowHeld {
		return ErrEscrowNotHeld
	}

	if _, err := s.walletRepo.Lock(ctx, tx, o.BuyerID, wallet.KindBuyer); err != nil {
		return err
	}
	if _, err := s.walletRepo.Credit(ctx, tx, o.BuyerID, wallet.KindBuyer, escrow.Amount); err != nil {
		return err
	}

	if err := s.repo.MarkRefunded(ctx, tx, orderID, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	log.Info().
		Str("order_id", orderID).
		Str("buyer_id", o.BuyerID.String()).
		Int64("amount", escrow.Amount).
		Msg("Expired order refunded to buyer")

	if s.notifier != nil {
		s.notifier.Notify(ctx, o.BuyerID, notification.CategoryOrder,
			"Order expired",
			fmt.Sprintf("Order %s expired and %d was refunded to your wallet", orderID, escrow.Amount))
	}
	return nil
}
