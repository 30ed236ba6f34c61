package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/avelarsolis/expresspay-backend/internal/checkout"
	pkgerrors "github.com/avelarsolis/expresspay-backend/pkg/errors"
	"github.com/avelarsolis/expresspay-backend/pkg/logger"
)

type stubCheckoutService struct {
	beginOutcome   checkout.Outcome
	beginErr       error
	confirmOutcome checkout.Outcome
	confirmErr     error
	cancelOutcome  checkout.Outcome
	cancelErr      error

	confirmToken   string
	confirmPayerID string
}

func (s *stubCheckoutService) Begin(context.Context, string, uuid.UUID) (checkout.Outcome, error) {
	return s.beginOutcome, s.beginErr
}

func (s *stubCheckoutService) Confirm(_ context.Context, _ string, token, payerID string, _ uuid.UUID) (checkout.Outcome, error) {
	s.confirmToken = token
	s.confirmPayerID = payerID
	return s.confirmOutcome, s.confirmErr
}

func (s *stubCheckoutService) Cancel(context.Context, string) (checkout.Outcome, error) {
	return s.cancelOutcome, s.cancelErr
}

func testControllerLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestExpressBeginRedirects(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{
		beginOutcome: checkout.Outcome{
			Status:     checkout.OutcomeRedirect,
			RedirectTo: "https://www.sandbox.paypal.com/cgi-bin/webscr?cmd=_express-checkout&token=EC-123",
		},
	}
	handler := ExpressBegin(svc, testControllerLogger())

	req := httptest.NewRequest(http.MethodPost, "/paypal/express?order_number=R1&payment_method_id="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); !strings.Contains(got, "token=EC-123") {
		t.Fatalf("location = %q", got)
	}
}

func TestExpressBeginValidatesParams(t *testing.T) {
	t.Parallel()

	handler := ExpressBegin(&stubCheckoutService{}, testControllerLogger())

	req := httptest.NewRequest(http.MethodPost, "/paypal/express?payment_method_id="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing order_number: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/paypal/express?order_number=R1&payment_method_id=not-a-uuid", nil)
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad method id: status = %d", rec.Code)
	}
}

func TestExpressConfirmPassesCallbackParams(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{
		confirmOutcome: checkout.Outcome{
			Status:     checkout.OutcomeCompleted,
			RedirectTo: "/orders/R1?token=guest-token",
			Notice:     "Your order has been processed successfully.",
		},
	}
	handler := ExpressConfirm(svc, testControllerLogger())

	target := "/paypal/confirm?order_number=R1&payment_method_id=" + uuid.NewString() + "&token=EC-123&PayerID=PAYER-1"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.confirmToken != "EC-123" || svc.confirmPayerID != "PAYER-1" {
		t.Fatalf("token/payer = %q/%q", svc.confirmToken, svc.confirmPayerID)
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/orders/R1") || !strings.Contains(location, "notice=") {
		t.Fatalf("location = %q", location)
	}
}

func TestExpressConfirmReplayConflicts(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{
		confirmErr: pkgerrors.New(pkgerrors.CodeConflict, "checkout token already processed"),
	}
	handler := ExpressConfirm(svc, testControllerLogger())

	target := "/paypal/confirm?order_number=R1&payment_method_id=" + uuid.NewString() + "&token=EC-123&PayerID=PAYER-1"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestExpressConfirmRequiresCallbackParams(t *testing.T) {
	t.Parallel()

	handler := ExpressConfirm(&stubCheckoutService{}, testControllerLogger())

	target := "/paypal/confirm?order_number=R1&payment_method_id=" + uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestExpressCancelRedirectsWithNotice(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{
		cancelOutcome: checkout.Outcome{
			Status:     checkout.OutcomeRecoverable,
			RedirectTo: "/checkout/payment",
			Notice:     "Payment canceled. You have not been charged.",
		},
	}
	handler := ExpressCancel(svc, testControllerLogger())

	req := httptest.NewRequest(http.MethodGet, "/paypal/cancel?order_number=R1", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/checkout/payment") || !strings.Contains(location, "notice=") {
		t.Fatalf("location = %q", location)
	}
}
