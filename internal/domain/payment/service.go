package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/martly/martly-api/internal/domain/notification"
	"github.com/martly/martly-api/internal/domain/user"
	"github.com/martly/martly-api/internal/domain/wallet"
	"github.com/martly/martly-api/internal/pkg/database"
	"github.com/martly/martly-api/internal/pkg/paystack"
)

// Gateway abstracts the payment provider. *paystack.Client satisfies it.
type Gateway interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

// Notifier delivers top-up notifications, best-effort
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, category notification.Category, title, message string)
}

type Service struct {
	db          *sqlx.DB
	repo        *Repository
	userRepo    user.Repository
	walletRepo  *wallet.Repository
	gateway     Gateway
	notifier    Notifier
	lockTimeout time.Duration
}

func NewService(db *sqlx.DB, repo *Repository, userRepo user.Repository, walletRepo *wallet.Repository, gateway Gateway, notifier Notifier, lockTimeout time.Duration) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		userRepo:    userRepo,
		walletRepo:  walletRepo,
		gateway:     gateway,
		notifier:    notifier,
		lockTimeout: lockTimeout,
	}
}

// TopUpResult is returned to the client to complete payment on the gateway
type TopUpResult struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Amount           int64  `json:"amount"`
}

// VerifyTopUpResult reports a verified top-up and the resulting balance
type VerifyTopUpResult struct {
	Reference        string `json:"reference"`
	Amount           int64  `json:"amount"`
	Balance          int64  `json:"balance"`
	AlreadyProcessed bool   `json:"already_processed"`
}

// InitializeTopUp records a pending top-up and opens a gateway payment
// session for it. The local record exists before the gateway is called, so
// a crashed request leaves nothing but a pending row that never completes.
func (s *Service) InitializeTopUp(ctx context.Context, buyerID uuid.UUID, amount int64) (*TopUpResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	u, err := s.userRepo.GetByID(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	t := &Transaction{
		ID:        uuid.New(),
		BuyerID:   buyerID,
		Quantity:  1,
		Amount:    amount,
		Reference: NewReference(),
		Status:    TxPending,
		Type:      TypeTopUp,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		if database.IsUniqueViolation(err) {
			// Reference collision is vanishingly rare; retry once with a fresh one
			t.ID = uuid.New()
			t.Reference = NewReference()
			err = s.repo.Create(ctx, t)
		}
		if err != nil {
			return nil, fmt.Errorf("create top-up record: %w", err)
		}
	}

	res, err := s.gateway.Initialize(ctx, paystack.InitializeRequest{
		Email:     u.Email,
		Amount:    amount,
		Reference: t.Reference,
		Metadata:  map[string]string{"buyer_id": buyerID.String(), "type": string(TypeTopUp)},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize gateway payment: %w", err)
	}

	return &TopUpResult{
		Reference:        t.Reference,
		AuthorizationURL: res.AuthorizationURL,
		AccessCode:       res.AccessCode,
		Amount:           amount,
	}, nil
}

// VerifyTopUp confirms a top-up with the gateway and credits the buyer
// wallet exactly once. Re-verifying a completed reference is a no-op that
// still reports success, so clients can retry freely.
func (s *Service) VerifyTopUp(ctx context.Context, buyerID uuid.UUID, reference string) (*VerifyTopUpResult, error) {
	res, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, ErrVerificationFailed
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := database.SetLocalLockTimeout(ctx, tx, s.lockTimeout); err != nil {
		return nil, err
	}

	t, err := s.repo.LockByReference(ctx, tx, reference)
	if err != nil {
		return nil, err
	}
	if t.BuyerID != buyerID {
		return nil, ErrForbidden
	}
	if t.Type != TypeTopUp {
		return nil, ErrNotFound
	}

	if t.Status == TxCompleted {
		balance, err := s.walletRepo.GetBalance(ctx, buyerID, wallet.KindBuyer)
		if err != nil {
			return nil, err
		}
		return &VerifyTopUpResult{
			Reference:        reference,
			Amount:           t.Amount,
			Balance:          balance,
			AlreadyProcessed: true,
		}, nil
	}

	if res.Amount != t.Amount {
		log.Error().
			Str("reference", reference).
			Int64("expected", t.Amount).
			Int64("confirmed", res.Amount).
			Msg("Gateway amount mismatch on top-up verify")
		return nil, ErrVerificationFailed
	}

	if _, err := s.walletRepo.Lock(ctx, tx, buyerID, wallet.KindBuyer); err != nil {
		return nil, err
	}
	balance, err := s.walletRepo.Credit(ctx, tx, buyerID, wallet.KindBuyer, t.Amount)
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkCompleted(ctx, tx, t.ID, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	log.Info().
		Str("reference", reference).
		Str("buyer_id", buyerID.String()).
		Int64("amount", t.Amount).
		Msg("Top-up verified and credited")

	if s.notifier != nil {
		s.notifier.Notify(ctx, buyerID, notification.CategoryPayment,
			"Wallet topped up",
			fmt.Sprintf("Your wallet was credited with %d", t.Amount))
	}

	return &VerifyTopUpResult{
		Reference: reference,
		Amount:    t.Amount,
		Balance:   balance,
	}, nil
}

// ListTransactions returns the buyer's transaction history
func (s *Service) ListTransactions(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*Transaction, error) {
	return s.repo.ListByBuyer(ctx, buyerID, limit, offset)
}
