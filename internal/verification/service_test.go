package verification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gitsageai/payments-backend/internal/fulfillment"
	"github.com/gitsageai/payments-backend/internal/orders"
	"github.com/gitsageai/payments-backend/internal/transactions"
	"github.com/gitsageai/payments-backend/internal/users"
	"github.com/gitsageai/payments-backend/pkg/cashfree"
	"github.com/gitsageai/payments-backend/pkg/db/models"
	"github.com/gitsageai/payments-backend/pkg/enums"
	pkgerrors "github.com/gitsageai/payments-backend/pkg/errors"
)

type stubPaymentsProvider struct {
	payments []cashfree.Payment
	err      error
}

func (s *stubPaymentsProvider) FetchPayments(_ context.Context, _ string) ([]cashfree.Payment, error) {
	return s.payments, s.err
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupVerificationTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	stmts := []string{`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  credits INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0),
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS payment_orders (
  order_id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  credits INTEGER NOT NULL,
  amount_units INTEGER NOT NULL,
  is_fulfilled INTEGER NOT NULL DEFAULT 0,
  fulfilled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS payment_transactions (
  id TEXT PRIMARY KEY,
  cf_payment_id TEXT NOT NULL UNIQUE,
  order_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL,
  credits INTEGER NOT NULL,
  raw_payload TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newVerificationService(t *testing.T, db *gorm.DB, provider *stubPaymentsProvider) Service {
	t.Helper()

	engine, err := fulfillment.NewService(fulfillment.ServiceParams{
		TransactionRunner: &gormTxRunner{db: db},
		OrdersRepo:        orders.NewRepository(db),
		TransactionsRepo:  transactions.NewRepository(db),
		UsersRepo:         users.NewRepository(db),
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Provider:         provider,
		Fulfillment:      engine,
		OrdersRepo:       orders.NewRepository(db),
		TransactionsRepo: transactions.NewRepository(db),
	})
	require.NoError(t, err)
	return svc
}

func seedVerificationUser(t *testing.T, db *gorm.DB, credits int64) string {
	t.Helper()
	id := "user_" + uuid.NewString()
	require.NoError(t, db.Create(&models.User{
		ID:      id,
		Email:   id + "@example.com",
		Credits: credits,
	}).Error)
	return id
}

func TestVerifyPayment_FulfillsFromProvider(t *testing.T) {
	db := setupVerificationTestDB(t)
	userID := seedVerificationUser(t, db, 0)
	orderID := "ord_" + uuid.NewString()

	provider := &stubPaymentsProvider{payments: []cashfree.Payment{{
		CfPaymentID:   "12345",
		OrderID:       orderID,
		PaymentStatus: "SUCCESS",
		PaymentAmount: decimal.NewFromInt(99),
		Order: &cashfree.OrderEntity{
			OrderID:   orderID,
			OrderNote: `{"creditsToPurchase":50,"userId":"` + userID + `"}`,
		},
	}}}
	svc := newVerificationService(t, db, provider)

	result, err := svc.VerifyPayment(context.Background(), userID, orderID)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, int64(50), result.Credits)
	require.False(t, result.AlreadyProcessed)

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", userID).Error)
	require.Equal(t, int64(50), user.Credits)

	// Second call short-circuits on the fulfilled order.
	replay, err := svc.VerifyPayment(context.Background(), userID, orderID)
	require.NoError(t, err)
	require.True(t, replay.Success)
	require.True(t, replay.AlreadyProcessed)
}

func TestVerifyPayment_CreditsFallbackFromAmount(t *testing.T) {
	db := setupVerificationTestDB(t)
	userID := seedVerificationUser(t, db, 0)
	orderID := "ord_" + uuid.NewString()

	// No metadata anywhere; price 99 inverts to round((99+1)/2) = 50.
	provider := &stubPaymentsProvider{payments: []cashfree.Payment{{
		CfPaymentID:   "67890",
		OrderID:       orderID,
		PaymentStatus: "PAID",
		PaymentAmount: decimal.NewFromInt(99),
	}}}
	svc := newVerificationService(t, db, provider)

	result, err := svc.VerifyPayment(context.Background(), userID, orderID)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, int64(50), result.Credits)
}

func TestVerifyPayment_NoSuccessfulPayment(t *testing.T) {
	db := setupVerificationTestDB(t)
	userID := seedVerificationUser(t, db, 0)
	orderID := "ord_" + uuid.NewString()

	provider := &stubPaymentsProvider{payments: []cashfree.Payment{{
		CfPaymentID:   "111",
		OrderID:       orderID,
		PaymentStatus: "FAILED",
	}}}
	svc := newVerificationService(t, db, provider)

	result, err := svc.VerifyPayment(context.Background(), userID, orderID)
	require.NoError(t, err)
	require.False(t, result.Success)

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", userID).Error)
	require.Zero(t, user.Credits)
}

func TestVerifyPayment_ProviderDownFallsBackToLocalFlag(t *testing.T) {
	db := setupVerificationTestDB(t)
	userID := seedVerificationUser(t, db, 0)
	orderID := "ord_" + uuid.NewString()
	now := time.Now().UTC()

	require.NoError(t, db.Create(&models.PaymentOrder{
		OrderID:     orderID,
		UserID:      userID,
		Credits:     10,
		AmountUnits: 19,
		IsFulfilled: true,
		FulfilledAt: &now,
	}).Error)

	provider := &stubPaymentsProvider{err: pkgerrors.New(pkgerrors.CodeDependency, "provider timeout")}
	svc := newVerificationService(t, db, provider)

	result, err := svc.VerifyPayment(context.Background(), userID, orderID)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.True(t, result.AlreadyProcessed)
}

func TestVerifyPayment_ProviderDownUnfulfilledOrderIsRetryable(t *testing.T) {
	db := setupVerificationTestDB(t)
	userID := seedVerificationUser(t, db, 0)
	orderID := "ord_" + uuid.NewString()

	require.NoError(t, db.Create(&models.PaymentOrder{
		OrderID:     orderID,
		UserID:      userID,
		Credits:     10,
		AmountUnits: 19,
	}).Error)

	provider := &stubPaymentsProvider{err: pkgerrors.New(pkgerrors.CodeDependency, "provider timeout")}
	svc := newVerificationService(t, db, provider)

	result, err := svc.VerifyPayment(context.Background(), userID, orderID)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Contains(t, result.Message, "retry")
}

func TestVerifyPayment_ProviderDownUnknownOrder(t *testing.T) {
	db := setupVerificationTestDB(t)
	userID := seedVerificationUser(t, db, 0)

	provider := &stubPaymentsProvider{err: pkgerrors.New(pkgerrors.CodeDependency, "provider timeout")}
	svc := newVerificationService(t, db, provider)

	result, err := svc.VerifyPayment(context.Background(), userID, "ord_unknown")
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Contains(t, result.Message, "not found")
}

func TestVerifyPayment_RejectsForeignOrder(t *testing.T) {
	db := setupVerificationTestDB(t)
	owner := seedVerificationUser(t, db, 0)
	caller := seedVerificationUser(t, db, 0)
	orderID := "ord_" + uuid.NewString()

	require.NoError(t, db.Create(&models.PaymentOrder{
		OrderID:     orderID,
		UserID:      owner,
		Credits:     10,
		AmountUnits: 19,
	}).Error)

	svc := newVerificationService(t, db, &stubPaymentsProvider{})
	_, err := svc.VerifyPayment(context.Background(), caller, orderID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestVerifyPayment_ExistingSuccessTransactionShortCircuits(t *testing.T) {
	db := setupVerificationTestDB(t)
	userID := seedVerificationUser(t, db, 0)
	orderID := "ord_" + uuid.NewString()

	require.NoError(t, db.Create(&models.PaymentTransaction{
		ID:          uuid.New(),
		CfPaymentID: "cfp_" + uuid.NewString(),
		OrderID:     orderID,
		UserID:      userID,
		Status:      enums.PaymentStatusPaid,
		Credits:     10,
	}).Error)

	// Provider errors would fail the test if the call went out.
	provider := &stubPaymentsProvider{err: pkgerrors.New(pkgerrors.CodeDependency, "should not be called")}
	svc := newVerificationService(t, db, provider)

	result, err := svc.VerifyPayment(context.Background(), userID, orderID)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.True(t, result.AlreadyProcessed)
}
