package controllers

import (
	"net/http"

	"github.com/gitsageai/payments-backend/api/middleware"
	"github.com/gitsageai/payments-backend/api/responses"
	"github.com/gitsageai/payments-backend/api/validators"
	verificationsvc "github.com/gitsageai/payments-backend/internal/verification"
	pkgerrors "github.com/gitsageai/payments-backend/pkg/errors"
	"github.com/gitsageai/payments-backend/pkg/logger"
)

// VerifyPayment re-checks an order after the browser returns from checkout.
func VerifyPayment(svc verificationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required"))
			return
		}

		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.VerifyPayment(r.Context(), userID, payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type verifyPaymentRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}
