package cashfree

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CreateOrderRequest is the payload for POST /pg/orders.
type CreateOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     decimal.Decimal `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	OrderNote       string          `json:"order_note,omitempty"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	OrderMeta       *OrderMeta      `json:"order_meta,omitempty"`
}

// CustomerDetails identifies the paying customer.
type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

// OrderMeta carries redirect endpoints plus the redundant metadata slot. The
// fulfillment metadata is written to both order_note and custom_data because
// the provider has been observed dropping one of the two on some event
// shapes.
type OrderMeta struct {
	ReturnURL  string `json:"return_url,omitempty"`
	NotifyURL  string `json:"notify_url,omitempty"`
	CustomData string `json:"custom_data,omitempty"`
}

// OrderEntity is the provider's order representation.
type OrderEntity struct {
	OrderID          string          `json:"order_id"`
	OrderStatus      string          `json:"order_status"`
	OrderAmount      decimal.Decimal `json:"order_amount"`
	OrderCurrency    string          `json:"order_currency"`
	OrderNote        string          `json:"order_note"`
	PaymentSessionID string          `json:"payment_session_id"`
	OrderMeta        *OrderMeta      `json:"order_meta,omitempty"`
}

// Payment is one payment attempt against an order.
type Payment struct {
	CfPaymentID   FlexibleID      `json:"cf_payment_id"`
	OrderID       string          `json:"order_id"`
	PaymentStatus string          `json:"payment_status"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	OrderAmount   decimal.Decimal `json:"order_amount"`
	Order         *OrderEntity    `json:"order,omitempty"`
}

// FlexibleID absorbs the provider's habit of switching cf_payment_id between
// a JSON number and a JSON string across API versions.
type FlexibleID string

// UnmarshalJSON accepts a string or number token.
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cf_payment_id is neither string nor number: %w", err)
	}
	*f = FlexibleID(n.String())
	return nil
}

// String implements fmt.Stringer.
func (f FlexibleID) String() string {
	return string(f)
}
