package models

import "time"

// PaymentOrder tracks a single checkout intent. OrderID is the provider-scoped
// order identifier generated at session creation. The fulfillment flag is the
// sole authority for whether credits were applied for this order; it moves
// false to true exactly once and never reverts.
type PaymentOrder struct {
	OrderID     string     `gorm:"column:order_id;type:text;primaryKey"`
	UserID      string     `gorm:"column:user_id;type:text;not null;index"`
	Credits     int64      `gorm:"column:credits;not null"`
	AmountUnits int64      `gorm:"column:amount_units;not null"`
	IsFulfilled bool       `gorm:"column:is_fulfilled;not null;default:false"`
	FulfilledAt *time.Time `gorm:"column:fulfilled_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
