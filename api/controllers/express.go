package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/avelarsolis/expresspay-backend/api/responses"
	"github.com/avelarsolis/expresspay-backend/internal/checkout"
	pkgerrors "github.com/avelarsolis/expresspay-backend/pkg/errors"
	"github.com/avelarsolis/expresspay-backend/pkg/logger"
)

// The express-checkout endpoints are browser-facing: the storefront sends the
// shopper here and every resolution is a 303 back out. Only precondition
// failures (bad parameters, unknown order) answer with a JSON error.

func ExpressBegin(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderNumber := r.URL.Query().Get("order_number")
		if orderNumber == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order_number is required"))
			return
		}
		methodID, err := uuid.Parse(r.URL.Query().Get("payment_method_id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment_method_id must be a UUID"))
			return
		}

		outcome, err := svc.Begin(ctx, orderNumber, methodID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.Redirect(w, r, outcome.RedirectTo, outcome.Notice)
	}
}

func ExpressConfirm(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		query := r.URL.Query()

		orderNumber := query.Get("order_number")
		if orderNumber == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order_number is required"))
			return
		}
		methodID, err := uuid.Parse(query.Get("payment_method_id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment_method_id must be a UUID"))
			return
		}

		// The processor appends token and PayerID on the round trip.
		token := query.Get("token")
		payerID := query.Get("PayerID")
		if token == "" || payerID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "token and PayerID are required"))
			return
		}

		outcome, err := svc.Confirm(ctx, orderNumber, token, payerID, methodID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.Redirect(w, r, outcome.RedirectTo, outcome.Notice)
	}
}

func ExpressCancel(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderNumber := r.URL.Query().Get("order_number")
		if orderNumber == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order_number is required"))
			return
		}

		outcome, err := svc.Cancel(ctx, orderNumber)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.Redirect(w, r, outcome.RedirectTo, outcome.Notice)
	}
}
