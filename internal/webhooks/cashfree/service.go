package cashfreewebhook

import (
	"context"
	"encoding/json"

	"github.com/gitsageai/payments-backend/internal/fulfillment"
	"github.com/gitsageai/payments-backend/pkg/cashfree"
	"github.com/gitsageai/payments-backend/pkg/enums"
	pkgerrors "github.com/gitsageai/payments-backend/pkg/errors"
	"github.com/gitsageai/payments-backend/pkg/logger"
)

// Event is the webhook envelope. Data stays raw until after the signature
// check because the signature is computed over the data object itself.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type EventData struct {
	Order           *EventOrder           `json:"order"`
	Payment         *EventPayment         `json:"payment"`
	CustomerDetails *EventCustomerDetails `json:"customer_details"`
}

type EventOrder struct {
	OrderID     string            `json:"order_id"`
	OrderStatus string            `json:"order_status"`
	OrderNote   string            `json:"order_note"`
	OrderTags   map[string]string `json:"order_tags"`
}

type EventPayment struct {
	CfPaymentID   cashfree.FlexibleID `json:"cf_payment_id"`
	PaymentStatus string              `json:"payment_status"`
}

type EventCustomerDetails struct {
	CustomerID string `json:"customer_id"`
}

// fulfillment-relevant event types. Everything else is acknowledged and
// dropped without a signature check.
var fulfillmentEventTypes = map[string]struct{}{
	"ORDER_PAID":      {},
	"PAYMENT_SUCCESS": {},
	"PAYMENT_FAILED":  {},
}

// RequiresFulfillment reports whether the event type carries a payment
// outcome this service acts on.
func RequiresFulfillment(eventType string) bool {
	_, ok := fulfillmentEventTypes[eventType]
	return ok
}

type ServiceParams struct {
	Fulfillment fulfillment.Service
	Logger      *logger.Logger
}

type Service struct {
	fulfillment fulfillment.Service
	logg        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Fulfillment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service required")
	}
	return &Service{
		fulfillment: params.Fulfillment,
		logg:        params.Logger,
	}, nil
}

// HandleEvent reduces a verified webhook event to a fulfillment signal and
// delegates the decision to the engine.
func (s *Service) HandleEvent(ctx context.Context, event *Event) (*fulfillment.Result, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event required")
	}

	var data EventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return &fulfillment.Result{
			Outcome: fulfillment.OutcomeRejected,
			Reason:  "event data is not an object",
		}, nil
	}
	if data.Order == nil || data.Order.OrderID == "" {
		return &fulfillment.Result{
			Outcome: fulfillment.OutcomeRejected,
			Reason:  "order id missing from event",
		}, nil
	}

	meta := extractMetadata(data.Order)
	input := fulfillment.Input{
		OrderID:    data.Order.OrderID,
		PaymentID:  data.Payment.attemptID(),
		UserID:     meta.UserID,
		Credits:    meta.Credits(),
		Status:     resolveStatus(&data),
		RawPayload: event.Data,
	}
	if input.UserID == "" && data.CustomerDetails != nil {
		input.UserID = data.CustomerDetails.CustomerID
	}

	return s.fulfillment.Fulfill(ctx, input)
}

func (p *EventPayment) attemptID() string {
	if p == nil {
		return ""
	}
	return p.CfPaymentID.String()
}

// extractMetadata reads the fulfillment metadata from order_note, falling
// back to the custom_data copy in order_tags when note parsing yields
// nothing.
func extractMetadata(order *EventOrder) cashfree.OrderMetadata {
	meta := cashfree.ParseOrderMetadata(order.OrderNote)
	if meta.UserID != "" || meta.Credits() > 0 {
		return meta
	}
	if custom, ok := order.OrderTags["custom_data"]; ok {
		return cashfree.ParseOrderMetadata(custom)
	}
	return meta
}

// resolveStatus prefers the payment attempt status and falls back to the
// order status carried by ORDER_PAID events.
func resolveStatus(data *EventData) enums.PaymentStatus {
	if data.Payment != nil && data.Payment.PaymentStatus != "" {
		return enums.NormalizePaymentStatus(data.Payment.PaymentStatus)
	}
	if data.Order != nil && data.Order.OrderStatus != "" {
		return enums.NormalizePaymentStatus(data.Order.OrderStatus)
	}
	return enums.PaymentStatusPending
}
