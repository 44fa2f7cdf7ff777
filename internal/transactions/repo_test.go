package transactions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgdb "github.com/gitsageai/payments-backend/pkg/db"
	"github.com/gitsageai/payments-backend/pkg/db/models"
	"github.com/gitsageai/payments-backend/pkg/enums"
)

func setupTransactionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
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
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newAttempt(orderID, userID string, status enums.PaymentStatus) *models.PaymentTransaction {
	return &models.PaymentTransaction{
		CfPaymentID: "cfp_" + uuid.NewString(),
		OrderID:     orderID,
		UserID:      userID,
		Status:      status,
		Credits:     10,
	}
}

func TestCreate_DuplicateAttemptIDIsUniqueViolation(t *testing.T) {
	db := setupTransactionsTestDB(t)
	repo := NewRepository(db)

	attempt := newAttempt("ord_1", "user_1", enums.PaymentStatusPaid)
	require.NoError(t, repo.Create(context.Background(), attempt))

	dup := newAttempt("ord_1", "user_1", enums.PaymentStatusPaid)
	dup.CfPaymentID = attempt.CfPaymentID
	err := repo.Create(context.Background(), dup)
	require.Error(t, err)
	require.True(t, pkgdb.IsUniqueViolation(err, ""))
}

func TestFindByPaymentID(t *testing.T) {
	db := setupTransactionsTestDB(t)
	repo := NewRepository(db)

	attempt := newAttempt("ord_2", "user_2", enums.PaymentStatusSuccess)
	require.NoError(t, repo.Create(context.Background(), attempt))

	found, err := repo.FindByPaymentID(context.Background(), attempt.CfPaymentID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, attempt.OrderID, found.OrderID)

	missing, err := repo.FindByPaymentID(context.Background(), "cfp_missing")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestFindSuccessByOrderAndUser(t *testing.T) {
	db := setupTransactionsTestDB(t)
	repo := NewRepository(db)
	orderID := "ord_" + uuid.NewString()

	require.NoError(t, repo.Create(context.Background(), newAttempt(orderID, "user_3", enums.PaymentStatusFailed)))
	require.NoError(t, repo.Create(context.Background(), newAttempt(orderID, "user_3", enums.PaymentStatusPending)))

	found, err := repo.FindSuccessByOrderAndUser(context.Background(), orderID, "user_3")
	require.NoError(t, err)
	require.Nil(t, found)

	require.NoError(t, repo.Create(context.Background(), newAttempt(orderID, "user_3", enums.PaymentStatusPaid)))

	found, err = repo.FindSuccessByOrderAndUser(context.Background(), orderID, "user_3")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, enums.PaymentStatusPaid, found.Status)
}

func TestListSuccessByUser(t *testing.T) {
	db := setupTransactionsTestDB(t)
	repo := NewRepository(db)
	userID := "user_" + uuid.NewString()

	require.NoError(t, repo.Create(context.Background(), newAttempt("ord_a", userID, enums.PaymentStatusPaid)))
	require.NoError(t, repo.Create(context.Background(), newAttempt("ord_b", userID, enums.PaymentStatusSuccess)))
	require.NoError(t, repo.Create(context.Background(), newAttempt("ord_c", userID, enums.PaymentStatusFailed)))
	require.NoError(t, repo.Create(context.Background(), newAttempt("ord_d", "someone_else", enums.PaymentStatusPaid)))

	list, err := repo.ListSuccessByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, txn := range list {
		require.Equal(t, userID, txn.UserID)
		require.True(t, txn.Status.IsSuccess())
	}
}
