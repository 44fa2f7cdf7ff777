package transactions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gitsageai/payments-backend/pkg/db/models"
	"github.com/gitsageai/payments-backend/pkg/enums"
)

// Repository manages persistence for payment attempt records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.PaymentTransaction) error
	FindByPaymentID(ctx context.Context, cfPaymentID string) (*models.PaymentTransaction, error)
	FindByOrderID(ctx context.Context, orderID string) ([]models.PaymentTransaction, error)
	FindSuccessByOrderAndUser(ctx context.Context, orderID, userID string) (*models.PaymentTransaction, error)
	ListSuccessByUser(ctx context.Context, userID string) ([]models.PaymentTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transactions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

// FindByPaymentID returns the attempt row or nil when none exists.
func (r *repository) FindByPaymentID(ctx context.Context, cfPaymentID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	if err := r.db.WithContext(ctx).First(&txn, "cf_payment_id = ?", cfPaymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID string) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// FindSuccessByOrderAndUser returns a success-equivalent attempt for the
// order owned by the user, or nil.
func (r *repository) FindSuccessByOrderAndUser(ctx context.Context, orderID, userID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND user_id = ? AND status IN ?", orderID, userID,
			[]enums.PaymentStatus{enums.PaymentStatusSuccess, enums.PaymentStatusPaid}).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// ListSuccessByUser returns the user's completed purchases, newest first.
func (r *repository) ListSuccessByUser(ctx context.Context, userID string) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID,
			[]enums.PaymentStatus{enums.PaymentStatusSuccess, enums.PaymentStatusPaid}).
		Order("created_at DESC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
