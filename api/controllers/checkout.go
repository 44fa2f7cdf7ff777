package controllers

import (
	"net/http"

	"github.com/gitsageai/payments-backend/api/middleware"
	"github.com/gitsageai/payments-backend/api/responses"
	"github.com/gitsageai/payments-backend/api/validators"
	checkoutsvc "github.com/gitsageai/payments-backend/internal/checkout"
	pkgerrors "github.com/gitsageai/payments-backend/pkg/errors"
	"github.com/gitsageai/payments-backend/pkg/logger"
)

// Checkout creates a hosted checkout session for the requested credit pack.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.CreateSession(r.Context(), userID, middleware.UserEmailFromContext(r.Context()), payload.Credits)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

type checkoutRequest struct {
	Credits int64 `json:"credits" validate:"required,min=1"`
}
