package checkout

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gitsageai/payments-backend/internal/orders"
	"github.com/gitsageai/payments-backend/internal/transactions"
	"github.com/gitsageai/payments-backend/internal/users"
	"github.com/gitsageai/payments-backend/pkg/cashfree"
	pkgdb "github.com/gitsageai/payments-backend/pkg/db"
	"github.com/gitsageai/payments-backend/pkg/db/models"
	"github.com/gitsageai/payments-backend/pkg/enums"
	pkgerrors "github.com/gitsageai/payments-backend/pkg/errors"
	"github.com/gitsageai/payments-backend/pkg/logger"
)

// priceForCredits applies the linear pricing rule: two currency units per
// credit with a one-unit discount.
func priceForCredits(credits int64) int64 {
	return credits*2 - 1
}

// Session is what the client needs to hand off to the provider's hosted
// checkout.
type Session struct {
	PaymentSessionID string `json:"paymentSessionId"`
	OrderID          string `json:"orderId"`
}

type providerClient interface {
	CreateOrder(ctx context.Context, req cashfree.CreateOrderRequest) (*cashfree.OrderEntity, error)
}

// Service initiates hosted checkout sessions with the payment provider.
type Service interface {
	CreateSession(ctx context.Context, userID, email string, credits int64) (*Session, error)
}

type ServiceParams struct {
	Provider         providerClient
	OrdersRepo       orders.Repository
	TransactionsRepo transactions.Repository
	UsersRepo        users.Repository
	ReturnURL        string
	NotifyURL        string
	Logger           *logger.Logger
}

type service struct {
	provider  providerClient
	orders    orders.Repository
	txns      transactions.Repository
	users     users.Repository
	returnURL string
	notifyURL string
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider client required")
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
		provider:  params.Provider,
		orders:    params.OrdersRepo,
		txns:      params.TransactionsRepo,
		users:     params.UsersRepo,
		returnURL: params.ReturnURL,
		notifyURL: params.NotifyURL,
		logg:      params.Logger,
	}, nil
}

// CreateSession prices the requested credits, creates the provider order
// with the fulfillment metadata embedded twice, and records the pending
// order locally. The local rows are best effort: the provider order is the
// source of truth and fulfillment can reconstruct everything from its
// metadata.
func (s *service) CreateSession(ctx context.Context, userID, email string, credits int64) (*Session, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	if credits < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credits must be at least 1")
	}

	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	orderID := newOrderID(userID)
	ctx = s.withLogFields(ctx, orderID, userID)

	metadata, err := cashfree.EncodeOrderMetadata(credits, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order metadata")
	}

	amount := priceForCredits(credits)
	req := cashfree.CreateOrderRequest{
		OrderID:       orderID,
		OrderAmount:   decimal.NewFromInt(amount),
		OrderCurrency: "INR",
		OrderNote:     metadata,
		CustomerDetails: cashfree.CustomerDetails{
			CustomerID:    userID,
			CustomerEmail: email,
			CustomerPhone: "9999999999",
		},
		OrderMeta: &cashfree.OrderMeta{
			ReturnURL:  s.returnURL,
			NotifyURL:  s.notifyURL,
			CustomData: metadata,
		},
	}

	entity, err := s.provider.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if entity.PaymentSessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "provider returned no payment session id")
	}

	s.recordPending(ctx, orderID, userID, credits, amount)

	return &Session{
		PaymentSessionID: entity.PaymentSessionID,
		OrderID:          orderID,
	}, nil
}

// recordPending persists the unfulfilled order and its placeholder attempt.
// Uniqueness conflicts are swallowed: an order id collision means a prior
// session already wrote these rows and fulfillment works off them the same
// way. Other write failures are logged and do not fail the session, since
// fulfillment recreates the order row from the provider's metadata echo.
func (s *service) recordPending(ctx context.Context, orderID, userID string, credits, amount int64) {
	order := &models.PaymentOrder{
		OrderID:     orderID,
		UserID:      userID,
		Credits:     credits,
		AmountUnits: amount,
	}
	if err := s.orders.Create(ctx, order); err != nil && !pkgdb.IsUniqueViolation(err, "") {
		if s.logg != nil {
			s.logg.Warn(ctx, "failed to record pending order: "+err.Error())
		}
	}

	placeholder := &models.PaymentTransaction{
		CfPaymentID: "pending_" + orderID,
		OrderID:     orderID,
		UserID:      userID,
		Status:      enums.PaymentStatusPending,
		Credits:     credits,
	}
	if err := s.txns.Create(ctx, placeholder); err != nil && !pkgdb.IsUniqueViolation(err, "") {
		if s.logg != nil {
			s.logg.Warn(ctx, "failed to record placeholder attempt: "+err.Error())
		}
	}
}

// newOrderID derives an order id from the user id prefix and the current
// time in milliseconds. Collisions are improbable but possible; the create
// path treats a duplicate as recoverable rather than assuming uniqueness.
func newOrderID(userID string) string {
	prefix := userID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return prefix + "_" + strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func (s *service) withLogFields(ctx context.Context, orderID, userID string) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithFields(ctx, map[string]any{
		"order_id": orderID,
		"user_id":  userID,
	})
}
