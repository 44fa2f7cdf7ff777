package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gitsageai/payments-backend/api/responses"
	"github.com/gitsageai/payments-backend/internal/fulfillment"
	cashfreewebhook "github.com/gitsageai/payments-backend/internal/webhooks/cashfree"
	pkgerrors "github.com/gitsageai/payments-backend/pkg/errors"
	"github.com/gitsageai/payments-backend/pkg/logger"
	"github.com/gitsageai/payments-backend/pkg/metrics"
)

const signatureHeader = "x-cf-signature"

type CashfreeWebhookService interface {
	HandleEvent(ctx context.Context, event *cashfreewebhook.Event) (*fulfillment.Result, error)
}

type cashfreeClient interface {
	SigningSecret() string
}

// CashfreeWebhook ingests payment outcome events from the provider. Terminal
// application outcomes are acknowledged with 200 so the provider stops
// retrying; non-200 is reserved for signature failures and infrastructure
// errors, which are worth a retry.
func CashfreeWebhook(svc CashfreeWebhookService, client cashfreeClient, pm *metrics.PaymentMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cashfree client unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		var event cashfreewebhook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			// Malformed payloads can never succeed on retry. Acknowledge.
			pm.IncWebhookEvent("unknown", "malformed")
			if logg != nil {
				logg.Warn(ctx, "discarding malformed webhook payload: "+err.Error())
			}
			responses.WriteSuccess(w, map[string]string{"message": "malformed payload ignored"})
			return
		}

		if !cashfreewebhook.RequiresFulfillment(event.Type) {
			pm.IncWebhookEvent(event.Type, "ignored")
			responses.WriteSuccess(w, map[string]string{"message": "event type ignored"})
			return
		}

		signature := strings.TrimSpace(r.Header.Get(signatureHeader))
		if signature == "" {
			pm.IncWebhookEvent(event.Type, "missing_signature")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "signature header missing"))
			return
		}

		if !cashfreewebhook.VerifySignature(client.SigningSecret(), payload, event.Data, signature) {
			pm.IncWebhookEvent(event.Type, "invalid_signature")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature"))
			return
		}

		result, err := svc.HandleEvent(ctx, &event)
		if err != nil {
			pm.IncWebhookEvent(event.Type, "error")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pm.IncWebhookEvent(event.Type, string(result.Outcome))
		responses.WriteSuccess(w, map[string]string{
			"message": webhookMessage(result),
		})
	}
}

func webhookMessage(result *fulfillment.Result) string {
	switch result.Outcome {
	case fulfillment.OutcomeFulfilled:
		return "webhook processed"
	case fulfillment.OutcomeAlreadyProcessed:
		return "already processed"
	case fulfillment.OutcomeStatusNotFulfillable:
		return "attempt recorded"
	default:
		if result.Reason != "" {
			return result.Reason
		}
		return "event discarded"
	}
}
