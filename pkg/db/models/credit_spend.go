package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditSpend records a debit against a user's credit balance, one row per
// spend. Append-only; history queries merge these with purchase transactions.
type CreditSpend struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    string    `gorm:"column:user_id;type:text;not null;index"`
	Amount    int64     `gorm:"column:amount;not null"`
	Reference string    `gorm:"column:reference;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
