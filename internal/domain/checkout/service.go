package checkout

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/martly/martly-api/internal/domain/cart"
	"github.com/martly/martly-api/internal/domain/catalog"
	"github.com/martly/martly-api/internal/domain/notification"
	"github.com/martly/martly-api/internal/domain/order"
	"github.com/martly/martly-api/internal/domain/payment"
	"github.com/martly/martly-api/internal/domain/wallet"
	"github.com/martly/martly-api/internal/pkg/database"
)

// Notifier delivers post-checkout notifications, best-effort
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, category notification.Category, title, message string)
}

type Service struct {
	db          *sqlx.DB
	cartRepo    *cart.Repository
	catalogRepo *catalog.Repository
	walletRepo  *wallet.Repository
	orderRepo   *order.Repository
	paymentRepo *payment.Repository
	notifier    Notifier
	qrTTL       time.Duration
	lockTimeout time.Duration
}

func NewService(
	db *sqlx.DB,
	cartRepo *cart.Repository,
	catalogRepo *catalog.Repository,
	walletRepo *wallet.Repository,
	orderRepo *order.Repository,
	paymentRepo *payment.Repository,
	notifier Notifier,
	qrTTL time.Duration,
	lockTimeout time.Duration,
) *Service {
	return &Service{
		db:          db,
		cartRepo:    cartRepo,
		catalogRepo: catalogRepo,
		walletRepo:  walletRepo,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		notifier:    notifier,
		qrTTL:       qrTTL,
		lockTimeout: lockTimeout,
	}
}

// Result reports a committed checkout: one order per vendor, the grand
// total debited, and the buyer's remaining balance.
type Result struct {
	Orders  []*order.Order `json:"orders"`
	Total   int64          `json:"total"`
	Balance int64          `json:"balance"`
}

// line is a cart line resolved against its locked product row
type line struct {
	product  *catalog.Product
	quantity int
}

// Checkout atomically converts the buyer's cart into per-vendor orders with
// funds held in escrow. Everything happens in one transaction: either every
// stock decrement, every order, and the single wallet debit commit together,
// or nothing does. itemIDs optionally restricts the purchase to a subset of
// cart lines.
//
// Lock order is fixed: buyer wallet first, then product rows in ascending
// product id. Concurrent checkouts touching the same rows serialize instead
// of deadlocking.
func (s *Service) Checkout(ctx context.Context, buyerID uuid.UUID, itemIDs []uuid.UUID) (*Result, error) {
	items, err := s.cartRepo.ListForCheckout(ctx, buyerID, itemIDs)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, cart.ErrEmptyCart
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := database.SetLocalLockTimeout(ctx, tx, s.lockTimeout); err != nil {
		return nil, err
	}

	balance, err := s.walletRepo.Lock(ctx, tx, buyerID, wallet.KindBuyer)
	if err != nil {
		return nil, err
	}

	// Merge duplicate product lines, then lock products in ascending id order
	quantities := map[uuid.UUID]int{}
	for _, item := range items {
		quantities[item.ProductID] += item.Quantity
	}

	productIDs := make([]uuid.UUID, 0, len(quantities))
	for id := range quantities {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool {
		return productIDs[i].String() < productIDs[j].String()
	})

	lines := make([]*line, 0, len(productIDs))
	var total int64
	for _, id := range productIDs {
		p, err := s.catalogRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		qty := quantities[id]
		if qty <= 0 {
			return nil, catalog.ErrInvalidQuantity
		}
		lines = append(lines, &line{product: p, quantity: qty})
		total += p.Price * int64(qty)
	}

	// Funds check before any mutation, against the balance read under lock
	if balance < total {
		return nil, &wallet.InsufficientFundsError{Balance: balance, Required: total}
	}

	// Group lines per vendor and settle vendors in ascending id order
	linesByVendor := map[uuid.UUID][]*line{}
	for _, l := range lines {
		linesByVendor[l.product.VendorID] = append(linesByVendor[l.product.VendorID], l)
	}
	vendorIDs := make([]uuid.UUID, 0, len(linesByVendor))
	for id := range linesByVendor {
		vendorIDs = append(vendorIDs, id)
	}
	sort.Slice(vendorIDs, func(i, j int) bool {
		return vendorIDs[i].String() < vendorIDs[j].String()
	})

	now := time.Now().UTC()
	orders := make([]*order.Order, 0, len(vendorIDs))
	for _, vendorID := range vendorIDs {
		vendorLines := linesByVendor[vendorID]

		var subtotal int64
		orderItems := make([]*order.Item, 0, len(vendorLines))
		for _, l := range vendorLines {
			if err := s.catalogRepo.ReserveStock(ctx, tx, l.product.ID, l.quantity); err != nil {
				return nil, err
			}
			subtotal += l.product.Price * int64(l.quantity)
			orderItems = append(orderItems, &order.Item{
				ID:        uuid.New(),
				ProductID: l.product.ID,
				Name:      l.product.Name,
				UnitPrice: l.product.Price,
				Quantity:  l.quantity,
			})
		}

		o := &order.Order{
			ID:          order.NewID(),
			BuyerID:     buyerID,
			VendorID:    vendorID,
			Total:       subtotal,
			Status:      order.StatusPending,
			QRToken:     order.NewQRToken(),
			QRExpiresAt: now.Add(s.qrTTL),
			CreatedAt:   now,
		}
		if _, err := s.orderRepo.CreateWithEscrow(ctx, tx, o, orderItems); err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}

		for _, l := range vendorLines {
			t := &payment.Transaction{
				ID:          uuid.New(),
				BuyerID:     buyerID,
				VendorID:    uuid.NullUUID{UUID: vendorID, Valid: true},
				ProductID:   uuid.NullUUID{UUID: l.product.ID, Valid: true},
				OrderID:     sql.NullString{String: o.ID, Valid: true},
				Quantity:    l.quantity,
				Amount:      l.product.Price * int64(l.quantity),
				Reference:   payment.NewReference(),
				Status:      payment.TxCompleted,
				Type:        payment.TypePurchase,
				CreatedAt:   now,
				CompletedAt: sql.NullTime{Time: now, Valid: true},
			}
			if err := s.paymentRepo.InsertPurchase(ctx, tx, t); err != nil {
				return nil, fmt.Errorf("record purchase: %w", err)
			}
		}

		orders = append(orders, o)
	}

	newBalance, err := s.walletRepo.Debit(ctx, tx, buyerID, wallet.KindBuyer, balance, total)
	if err != nil {
		return nil, err
	}

	purchased := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		purchased = append(purchased, item.ID)
	}
	if err := s.cartRepo.ClearItems(ctx, tx, buyerID, purchased); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	log.Info().
		Str("buyer_id", buyerID.String()).
		Int("orders", len(orders)).
		Int64("total", total).
		Msg("Checkout committed")

	if s.notifier != nil {
		for _, o := range orders {
			s.notifier.Notify(ctx, o.VendorID, notification.CategoryOrder,
				"New order",
				fmt.Sprintf("Order %s is awaiting handover", o.ID))
		}
		s.notifier.Notify(ctx, buyerID, notification.CategoryOrder,
			"Order placed",
			fmt.Sprintf("%d order(s) created, %d held in escrow", len(orders), total))
	}

	return &Result{Orders: orders, Total: total, Balance: newBalance}, nil
}
