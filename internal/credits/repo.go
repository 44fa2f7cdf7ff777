package credits

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gitsageai/payments-backend/pkg/db/models"
)

// Repository persists credit spend records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, spend *models.CreditSpend) error
	ListByUser(ctx context.Context, userID string) ([]models.CreditSpend, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, spend *models.CreditSpend) error {
	if spend.ID == uuid.Nil {
		spend.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(spend).Error
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]models.CreditSpend, error) {
	var spends []models.CreditSpend
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&spends).Error
	if err != nil {
		return nil, err
	}
	return spends, nil
}
