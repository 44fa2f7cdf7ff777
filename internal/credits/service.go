package credits

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/gitsageai/payments-backend/internal/transactions"
	"github.com/gitsageai/payments-backend/internal/users"
	"github.com/gitsageai/payments-backend/pkg/db/models"
	"github.com/gitsageai/payments-backend/pkg/enums"
	pkgerrors "github.com/gitsageai/payments-backend/pkg/errors"
	"github.com/gitsageai/payments-backend/pkg/logger"
)

// HistoryEntry is one row in the merged purchase/spend feed.
type HistoryEntry struct {
	Type      enums.CreditEntryType `json:"type"`
	Credits   int64                 `json:"credits"`
	OrderID   string                `json:"orderId,omitempty"`
	Reference string                `json:"reference,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
}

// Service exposes the credit account: balance reads, guarded debits, and
// the merged history feed.
type Service interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Spend(ctx context.Context, userID string, amount int64, reference string) (int64, error)
	History(ctx context.Context, userID string) ([]HistoryEntry, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	TransactionRunner txRunner
	UsersRepo         users.Repository
	TransactionsRepo  transactions.Repository
	SpendsRepo        Repository
	Logger            *logger.Logger
}

type service struct {
	tx     txRunner
	users  users.Repository
	txns   transactions.Repository
	spends Repository
	logg   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.UsersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repo required")
	}
	if params.TransactionsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transactions repo required")
	}
	if params.SpendsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "spends repo required")
	}
	return &service{
		tx:     params.TransactionRunner,
		users:  params.UsersRepo,
		txns:   params.TransactionsRepo,
		spends: params.SpendsRepo,
		logg:   params.Logger,
	}, nil
}

func (s *service) Balance(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return user.Credits, nil
}

// Spend debits amount from the balance and records the spend, atomically.
// The debit is a single conditional UPDATE so a concurrent spend can never
// push the balance below zero.
func (s *service) Spend(ctx context.Context, userID string, amount int64, reference string) (int64, error) {
	if userID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	if amount < 1 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be at least 1")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		usersRepo := s.users.WithTx(tx)
		rows, err := usersRepo.DebitCredits(ctx, userID, amount)
		if err != nil {
			return err
		}
		if rows == 0 {
			exists, err := usersRepo.Exists(ctx, userID)
			if err != nil {
				return err
			}
			if !exists {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient credits")
		}
		return s.spends.WithTx(tx).Create(ctx, &models.CreditSpend{
			UserID:    userID,
			Amount:    amount,
			Reference: reference,
		})
	})
	if err != nil {
		return 0, err
	}

	return s.Balance(ctx, userID)
}

// History merges successful purchases with spends, newest first.
func (s *service) History(ctx context.Context, userID string) ([]HistoryEntry, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}

	purchases, err := s.txns.ListSuccessByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchases")
	}
	spends, err := s.spends.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load spends")
	}

	entries := make([]HistoryEntry, 0, len(purchases)+len(spends))
	for _, p := range purchases {
		entries = append(entries, HistoryEntry{
			Type:      enums.CreditEntryPurchase,
			Credits:   p.Credits,
			OrderID:   p.OrderID,
			CreatedAt: p.CreatedAt,
		})
	}
	for _, sp := range spends {
		entries = append(entries, HistoryEntry{
			Type:      enums.CreditEntrySpent,
			Credits:   sp.Amount,
			Reference: sp.Reference,
			CreatedAt: sp.CreatedAt,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}
