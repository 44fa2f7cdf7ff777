package orders

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/gitsageai/payments-backend/pkg/db"
	"github.com/gitsageai/payments-backend/pkg/db/models"
)

// Repository manages persistence for payment orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.PaymentOrder) error
	FindByID(ctx context.Context, orderID string) (*models.PaymentOrder, error)
	TryMarkFulfilled(ctx context.Context, orderID, userID string, credits int64, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.PaymentOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByID returns the order or nil when no row exists.
func (r *repository) FindByID(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	if err := r.db.WithContext(ctx).First(&order, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// TryMarkFulfilled claims the order's fulfillment flag. It returns true when
// this call performed the false-to-true transition and false when another
// caller already did. Concurrent claimers race on either the conditional
// UPDATE or the primary-key insert, so at most one ever wins. An order with
// no prior row (checkout record lost, webhook arrived first) is inserted
// directly in the fulfilled state.
func (r *repository) TryMarkFulfilled(ctx context.Context, orderID, userID string, credits int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentOrder{}).
		Where("order_id = ? AND is_fulfilled = ?", orderID, false).
		Updates(map[string]any{"is_fulfilled": true, "fulfilled_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentOrder{}).
		Where("order_id = ?", orderID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		// Row exists and the conditional update touched nothing: fulfilled.
		return false, nil
	}

	order := models.PaymentOrder{
		OrderID:     orderID,
		UserID:      userID,
		Credits:     credits,
		AmountUnits: 2*credits - 1,
		IsFulfilled: true,
		FulfilledAt: &at,
	}
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			// Lost the insert race. The conflicting row may still be an
			// unfulfilled checkout record, so retry the conditional claim.
			retry := r.db.WithContext(ctx).
				Model(&models.PaymentOrder{}).
				Where("order_id = ? AND is_fulfilled = ?", orderID, false).
				Updates(map[string]any{"is_fulfilled": true, "fulfilled_at": at})
			if retry.Error != nil {
				return false, retry.Error
			}
			return retry.RowsAffected > 0, nil
		}
		return false, err
	}
	return true, nil
}
