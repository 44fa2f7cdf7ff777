package users

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gitsageai/payments-backend/pkg/db/models"
)

// Repository exposes user-related persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id string) (*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	IncrementCredits(ctx context.Context, id string, amount int64) (int64, error)
	DebitCredits(ctx context.Context, id string, amount int64) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByID loads a user by their identity-provider id. A missing user is
// nil, not an error; callers decide whether absence is a failure.
func (r *repository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Exists reports whether a user row is present for the id.
func (r *repository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// IncrementCredits applies an atomic balance increment and returns the number
// of rows touched. The balance is never read-then-written from application
// code; the single UPDATE is the only mutation path.
func (r *repository) IncrementCredits(ctx context.Context, id string, amount int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("credits", gorm.Expr("credits + ?", amount))
	return result.RowsAffected, result.Error
}

// DebitCredits decrements the balance only when sufficient credits remain.
// Zero rows affected means the user is missing or the balance is too low.
func (r *repository) DebitCredits(ctx context.Context, id string, amount int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND credits >= ?", id, amount).
		UpdateColumn("credits", gorm.Expr("credits - ?", amount))
	return result.RowsAffected, result.Error
}
