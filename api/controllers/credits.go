package controllers

import (
	"net/http"

	"github.com/gitsageai/payments-backend/api/middleware"
	"github.com/gitsageai/payments-backend/api/responses"
	"github.com/gitsageai/payments-backend/api/validators"
	creditssvc "github.com/gitsageai/payments-backend/internal/credits"
	pkgerrors "github.com/gitsageai/payments-backend/pkg/errors"
	"github.com/gitsageai/payments-backend/pkg/logger"
)

// CreditBalance returns the caller's current credit balance.
func CreditBalance(svc creditssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credits service unavailable"))
			return
		}

		balance, err := svc.Balance(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int64{"credits": balance})
	}
}

// SpendCredits debits the caller's balance for metered usage.
func SpendCredits(svc creditssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credits service unavailable"))
			return
		}

		var payload spendCreditsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Spend(r.Context(), middleware.UserIDFromContext(r.Context()), payload.Amount, payload.Reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int64{"credits": balance})
	}
}

// CreditHistory returns the merged purchase/spend feed, newest first.
func CreditHistory(svc creditssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credits service unavailable"))
			return
		}

		entries, err := svc.History(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, entries)
	}
}

type spendCreditsRequest struct {
	Amount    int64  `json:"amount" validate:"required,min=1"`
	Reference string `json:"reference" validate:"required,max=256"`
}
