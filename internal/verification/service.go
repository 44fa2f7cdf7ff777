package verification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/gitsageai/payments-backend/internal/fulfillment"
	"github.com/gitsageai/payments-backend/internal/orders"
	"github.com/gitsageai/payments-backend/internal/transactions"
	"github.com/gitsageai/payments-backend/pkg/cashfree"
	"github.com/gitsageai/payments-backend/pkg/db/models"
	"github.com/gitsageai/payments-backend/pkg/enums"
	pkgerrors "github.com/gitsageai/payments-backend/pkg/errors"
	"github.com/gitsageai/payments-backend/pkg/logger"
)

// Result is the synchronous verification outcome returned to the client.
type Result struct {
	Success          bool   `json:"success"`
	Message          string `json:"message,omitempty"`
	Credits          int64  `json:"credits,omitempty"`
	AlreadyProcessed bool   `json:"alreadyProcessed,omitempty"`
}

type providerClient interface {
	FetchPayments(ctx context.Context, orderID string) ([]cashfree.Payment, error)
}

// Service re-checks an order's payment outcome when the browser returns
// from hosted checkout. The return redirect is a trigger, never proof: the
// decision rests on local state and a live provider query.
type Service interface {
	VerifyPayment(ctx context.Context, userID, orderID string) (*Result, error)
}

type ServiceParams struct {
	Provider         providerClient
	Fulfillment      fulfillment.Service
	OrdersRepo       orders.Repository
	TransactionsRepo transactions.Repository
	Logger           *logger.Logger
}

type service struct {
	provider    providerClient
	fulfillment fulfillment.Service
	orders      orders.Repository
	txns        transactions.Repository
	logg        *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider client required")
	}
	if params.Fulfillment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service required")
	}
	if params.OrdersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.TransactionsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transactions repo required")
	}
	return &service{
		provider:    params.Provider,
		fulfillment: params.Fulfillment,
		orders:      params.OrdersRepo,
		txns:        params.TransactionsRepo,
		logg:        params.Logger,
	}, nil
}

func (s *service) VerifyPayment(ctx context.Context, userID, orderID string) (*Result, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if s.logg != nil {
		ctx = s.logg.WithOrderID(s.logg.WithUserID(ctx, userID), orderID)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order != nil && order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to a different user")
	}
	if order != nil && order.IsFulfilled {
		return alreadyProcessed(), nil
	}

	existing, err := s.txns.FindSuccessByOrderAndUser(ctx, orderID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transactions")
	}
	if existing != nil {
		return alreadyProcessed(), nil
	}

	payments, provErr := s.provider.FetchPayments(ctx, orderID)
	if provErr != nil {
		return s.degradeLocally(ctx, order, provErr)
	}

	payment := pickSuccessfulPayment(payments)
	if payment == nil {
		return &Result{
			Success: false,
			Message: "Payment not completed. If you were charged, retry verification in a moment.",
		}, nil
	}

	credits, metaUserID := s.resolveCredits(ctx, payment)
	if metaUserID == "" {
		metaUserID = userID
	}

	raw, _ := json.Marshal(payment)
	attemptID := payment.CfPaymentID.String()
	if attemptID == "" {
		attemptID = "order_" + orderID
	}

	outcome, err := s.fulfillment.Fulfill(ctx, fulfillment.Input{
		OrderID:    orderID,
		PaymentID:  attemptID,
		UserID:     metaUserID,
		Credits:    credits,
		Status:     enums.NormalizePaymentStatus(payment.PaymentStatus),
		RawPayload: raw,
	})
	if err != nil {
		return nil, err
	}

	switch outcome.Outcome {
	case fulfillment.OutcomeFulfilled:
		return &Result{
			Success: true,
			Message: "Payment verified and credits added.",
			Credits: outcome.Credits,
		}, nil
	case fulfillment.OutcomeAlreadyProcessed:
		return alreadyProcessed(), nil
	case fulfillment.OutcomeStatusNotFulfillable:
		return &Result{Success: false, Message: "Payment not completed."}, nil
	default:
		return &Result{Success: false, Message: outcome.Reason}, nil
	}
}

// degradeLocally answers from the local order row when the provider cannot
// be reached. A fulfilled flag is trusted; anything less is reported without
// inferring success.
func (s *service) degradeLocally(ctx context.Context, order *models.PaymentOrder, provErr error) (*Result, error) {
	if s.logg != nil {
		s.logg.Warn(ctx, "provider unavailable during verification: "+provErr.Error())
	}
	if order == nil {
		return &Result{
			Success: false,
			Message: "Order not found. The payment may not have completed.",
		}, nil
	}
	if order.IsFulfilled {
		return alreadyProcessed(), nil
	}
	return &Result{
		Success: false,
		Message: "Payment status unavailable. Please retry in a moment.",
	}, nil
}

// resolveCredits extracts the credit count from the order metadata echoed by
// the provider, falling back to inverting the pricing function on the
// charged amount. A mismatch between the two is logged for reconciliation.
func (s *service) resolveCredits(ctx context.Context, payment *cashfree.Payment) (int64, string) {
	var meta cashfree.OrderMetadata
	if payment.Order != nil {
		meta = cashfree.ParseOrderMetadata(payment.Order.OrderNote)
		if meta.Credits() == 0 && meta.UserID == "" && payment.Order.OrderMeta != nil {
			meta = cashfree.ParseOrderMetadata(payment.Order.OrderMeta.CustomData)
		}
	}

	derived := creditsFromAmount(paymentAmount(payment))
	credits := meta.Credits()
	if credits > 0 {
		if derived > 0 && derived != credits && s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("credits mismatch: metadata says %d, charged amount implies %d", credits, derived))
		}
		return credits, meta.UserID
	}
	return derived, meta.UserID
}

func paymentAmount(payment *cashfree.Payment) decimal.Decimal {
	if !payment.PaymentAmount.IsZero() {
		return payment.PaymentAmount
	}
	return payment.OrderAmount
}

// creditsFromAmount inverts price = 2*credits - 1.
func creditsFromAmount(amount decimal.Decimal) int64 {
	if amount.IsZero() {
		return 0
	}
	two := decimal.NewFromInt(2)
	return amount.Add(decimal.NewFromInt(1)).Div(two).Round(0).IntPart()
}

// pickSuccessfulPayment returns the first attempt with a completed status.
func pickSuccessfulPayment(payments []cashfree.Payment) *cashfree.Payment {
	for i := range payments {
		if enums.NormalizePaymentStatus(payments[i].PaymentStatus).IsSuccess() {
			return &payments[i]
		}
	}
	return nil
}

func alreadyProcessed() *Result {
	return &Result{
		Success:          true,
		Message:          "Payment already processed.",
		AlreadyProcessed: true,
	}
}
