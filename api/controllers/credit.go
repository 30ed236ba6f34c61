package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelarsolis/expresspay-backend/api/responses"
	"github.com/avelarsolis/expresspay-backend/internal/payments"
	pkgerrors "github.com/avelarsolis/expresspay-backend/pkg/errors"
	"github.com/avelarsolis/expresspay-backend/pkg/logger"
)

type creditRequest struct {
	// Amount is optional; omitted means refund the full remaining balance.
	Amount *decimal.Decimal `json:"amount"`
}

// PaymentCredit refunds a captured payment, fully or partially.
func PaymentCredit(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		paymentID, err := uuid.Parse(chi.URLParam(r, "paymentId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "paymentId must be a UUID"))
			return
		}

		var req creditRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
				return
			}
		}

		result, err := svc.Credit(ctx, paymentID, req.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
