package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gitsageai/payments-backend/pkg/db/models"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS payment_orders (
  order_id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  credits INTEGER NOT NULL,
  amount_units INTEGER NOT NULL,
  is_fulfilled INTEGER NOT NULL DEFAULT 0,
  fulfilled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestFindByID_MissingReturnsNil(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order, err := repo.FindByID(context.Background(), "order_missing")
	require.NoError(t, err)
	require.Nil(t, order)
}

func TestTryMarkFulfilled_ClaimsPendingRow(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	orderID := "ord_" + uuid.NewString()

	require.NoError(t, repo.Create(context.Background(), &models.PaymentOrder{
		OrderID:     orderID,
		UserID:      "user_1",
		Credits:     10,
		AmountUnits: 19,
	}))

	at := time.Now().UTC()
	claimed, err := repo.TryMarkFulfilled(context.Background(), orderID, "user_1", 10, at)
	require.NoError(t, err)
	require.True(t, claimed)

	order, err := repo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	require.True(t, order.IsFulfilled)
	require.NotNil(t, order.FulfilledAt)

	// A second claim against the fulfilled row loses.
	again, err := repo.TryMarkFulfilled(context.Background(), orderID, "user_1", 10, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, again)
}

func TestTryMarkFulfilled_InsertsWhenNoRowExists(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	orderID := "ord_" + uuid.NewString()

	claimed, err := repo.TryMarkFulfilled(context.Background(), orderID, "user_2", 25, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, claimed)

	order, err := repo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	require.True(t, order.IsFulfilled)
	require.Equal(t, int64(25), order.Credits)
	require.Equal(t, int64(49), order.AmountUnits)
}

func TestTryMarkFulfilled_FlagNeverReverts(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	orderID := "ord_" + uuid.NewString()

	first, err := repo.TryMarkFulfilled(context.Background(), orderID, "user_3", 5, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, first)

	for i := 0; i < 3; i++ {
		again, err := repo.TryMarkFulfilled(context.Background(), orderID, "user_3", 5, time.Now().UTC())
		require.NoError(t, err)
		require.False(t, again)
	}

	order, err := repo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	require.True(t, order.IsFulfilled)
}
