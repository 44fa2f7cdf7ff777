package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/gitsageai/payments-backend/pkg/enums"
)

// PaymentTransaction records one reported payment outcome for an order. The
// unique constraint on CfPaymentID is the primary idempotency guard: a
// duplicate insert means the attempt was already processed. Rows are never
// deleted; Status is advisory audit data, not fulfillment authority.
type PaymentTransaction struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CfPaymentID string              `gorm:"column:cf_payment_id;type:text;not null;unique"`
	OrderID     string              `gorm:"column:order_id;type:text;not null;index"`
	UserID      string              `gorm:"column:user_id;type:text;not null;index"`
	Status      enums.PaymentStatus `gorm:"column:status;type:text;not null"`
	Credits     int64               `gorm:"column:credits;not null"`
	RawPayload  json.RawMessage     `gorm:"column:raw_payload;type:jsonb"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
