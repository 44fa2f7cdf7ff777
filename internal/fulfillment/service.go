package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gitsageai/payments-backend/internal/orders"
	"github.com/gitsageai/payments-backend/internal/transactions"
	"github.com/gitsageai/payments-backend/internal/users"
	pkgdb "github.com/gitsageai/payments-backend/pkg/db"
	"github.com/gitsageai/payments-backend/pkg/db/models"
	"github.com/gitsageai/payments-backend/pkg/enums"
	pkgerrors "github.com/gitsageai/payments-backend/pkg/errors"
	"github.com/gitsageai/payments-backend/pkg/logger"
	"github.com/gitsageai/payments-backend/pkg/metrics"
)

// Outcome classifies what the engine did with a payment signal.
type Outcome string

const (
	// OutcomeFulfilled means credits were applied and the order marked.
	OutcomeFulfilled Outcome = "fulfilled"
	// OutcomeAlreadyProcessed means an earlier signal already fulfilled the
	// order or recorded this attempt. Normal under concurrent delivery.
	OutcomeAlreadyProcessed Outcome = "already_processed"
	// OutcomeStatusNotFulfillable means the attempt was recorded for audit
	// but its status is not a completed payment.
	OutcomeStatusNotFulfillable Outcome = "status_not_fulfillable"
	// OutcomeRejected means the signal carried unfixable data (bad metadata,
	// unknown user). Terminal: callers must acknowledge, not retry.
	OutcomeRejected Outcome = "rejected"
)

// Input is the normalized payment signal every entry point reduces to.
type Input struct {
	OrderID    string
	PaymentID  string
	UserID     string
	Credits    int64
	Status     enums.PaymentStatus
	RawPayload json.RawMessage
}

// Result reports the engine's decision.
type Result struct {
	Outcome Outcome
	Credits int64
	Reason  string
}

// Service decides whether a payment signal credits the user, exactly once.
type Service interface {
	Fulfill(ctx context.Context, input Input) (*Result, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	TransactionRunner txRunner
	OrdersRepo        orders.Repository
	TransactionsRepo  transactions.Repository
	UsersRepo         users.Repository
	Logger            *logger.Logger
	Metrics           *metrics.PaymentMetrics
}

type service struct {
	tx      txRunner
	orders  orders.Repository
	txns    transactions.Repository
	users   users.Repository
	logg    *logger.Logger
	metrics *metrics.PaymentMetrics
}

// NewService wires the fulfillment engine.
func NewService(params ServiceParams) (Service, error) {
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.OrdersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.TransactionsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transactions repo required")
	}
	if params.UsersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repo required")
	}
	return &service{
		tx:      params.TransactionRunner,
		orders:  params.OrdersRepo,
		txns:    params.TransactionsRepo,
		users:   params.UsersRepo,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

var (
	errAlreadyFulfilled = errors.New("order already fulfilled")
	errUnknownUser      = errors.New("user not found")
)

// Fulfill decides the outcome of a payment signal. It short-circuits on an
// already fulfilled order or already recorded attempt, records non-success
// statuses without crediting, rejects unfixable signals, and otherwise
// commits the attempt row, the balance increment, and the order flag in one
// transaction.
// The unique constraint on the attempt id and the conditional order claim
// make concurrent deliveries collapse to a single credit application.
func (s *service) Fulfill(ctx context.Context, input Input) (*Result, error) {
	if input.OrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	attemptID := input.PaymentID
	if attemptID == "" {
		// No provider attempt id. The synthetic id is unique per order, so
		// the attempt-id constraint still provides per-order idempotency.
		attemptID = "order_" + input.OrderID
	}

	ctx = s.withLogFields(ctx, input.OrderID, attemptID)

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order != nil && order.IsFulfilled {
		return s.done(ctx, OutcomeAlreadyProcessed, 0, "order already fulfilled")
	}

	existing, err := s.txns.FindByPaymentID(ctx, attemptID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attempt")
	}
	if existing != nil {
		return s.done(ctx, OutcomeAlreadyProcessed, 0, "attempt already recorded")
	}

	if !input.Status.IsSuccess() {
		s.recordAudit(ctx, input, attemptID)
		return s.done(ctx, OutcomeStatusNotFulfillable, 0, fmt.Sprintf("status %s does not fulfill", input.Status))
	}

	if input.Credits <= 0 {
		return s.done(ctx, OutcomeRejected, 0, "credits missing or not positive")
	}
	if input.UserID == "" {
		return s.done(ctx, OutcomeRejected, 0, "user id missing")
	}

	exists, err := s.users.Exists(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user")
	}
	if !exists {
		return s.done(ctx, OutcomeRejected, 0, "user not found")
	}

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txns := s.txns.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)
		usersRepo := s.users.WithTx(tx)

		attempt := &models.PaymentTransaction{
			CfPaymentID: attemptID,
			OrderID:     input.OrderID,
			UserID:      input.UserID,
			Status:      input.Status,
			Credits:     input.Credits,
			RawPayload:  input.RawPayload,
		}
		if err := txns.Create(ctx, attempt); err != nil {
			return err
		}

		claimed, err := ordersRepo.TryMarkFulfilled(ctx, input.OrderID, input.UserID, input.Credits, time.Now().UTC())
		if err != nil {
			return err
		}
		if !claimed {
			return errAlreadyFulfilled
		}

		rows, err := usersRepo.IncrementCredits(ctx, input.UserID, input.Credits)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errUnknownUser
		}
		return nil
	})

	switch {
	case txErr == nil:
		return s.done(ctx, OutcomeFulfilled, input.Credits, "")
	case errors.Is(txErr, errAlreadyFulfilled):
		return s.done(ctx, OutcomeAlreadyProcessed, 0, "order fulfilled concurrently")
	case errors.Is(txErr, errUnknownUser):
		return s.done(ctx, OutcomeRejected, 0, "user disappeared during fulfillment")
	case pkgdb.IsUniqueViolation(txErr, ""):
		// The attempt insert lost a race with a concurrent delivery.
		return s.done(ctx, OutcomeAlreadyProcessed, 0, "attempt recorded concurrently")
	default:
		// Not an upstream outage: a failed commit on our own store surfaces
		// as an internal error so the receiver answers 500, not 503.
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, txErr, "commit fulfillment")
	}
}

// recordAudit persists a non-success attempt for later inspection. Failure to
// record never blocks the acknowledgment; the attempt carries no credit.
func (s *service) recordAudit(ctx context.Context, input Input, attemptID string) {
	if input.UserID == "" {
		return
	}
	attempt := &models.PaymentTransaction{
		CfPaymentID: attemptID,
		OrderID:     input.OrderID,
		UserID:      input.UserID,
		Status:      input.Status,
		Credits:     input.Credits,
		RawPayload:  input.RawPayload,
	}
	if err := s.txns.Create(ctx, attempt); err != nil && !pkgdb.IsUniqueViolation(err, "") {
		if s.logg != nil {
			s.logg.Warn(ctx, "failed to record non-success attempt: "+err.Error())
		}
	}
}

func (s *service) done(ctx context.Context, outcome Outcome, credits int64, reason string) (*Result, error) {
	s.metrics.IncFulfillmentOutcome(string(outcome))
	if s.logg != nil {
		fields := map[string]any{"outcome": string(outcome)}
		if reason != "" {
			fields["reason"] = reason
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "fulfillment.decided")
	}
	return &Result{Outcome: outcome, Credits: credits, Reason: reason}, nil
}

func (s *service) withLogFields(ctx context.Context, orderID, attemptID string) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithFields(ctx, map[string]any{
		"order_id":   orderID,
		"attempt_id": attemptID,
	})
}
