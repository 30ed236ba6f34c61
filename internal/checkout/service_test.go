package checkout

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/avelarsolis/expresspay-backend/pkg/config"
	"github.com/avelarsolis/expresspay-backend/pkg/db/models"
	"github.com/avelarsolis/expresspay-backend/pkg/enums"
	pkgerrors "github.com/avelarsolis/expresspay-backend/pkg/errors"
	"github.com/avelarsolis/expresspay-backend/pkg/logger"
	"github.com/avelarsolis/expresspay-backend/pkg/paypal"
)

type stubOrderStore struct {
	order *models.Order
	err   error
}

func (s *stubOrderStore) FindByNumber(context.Context, string) (*models.Order, error) {
	return s.order, s.err
}

type stubPaymentRecorder struct {
	created    *models.Payment
	createErr  error
	capturedID uuid.UUID
	captureTxn string
	failedID   uuid.UUID
}

func (s *stubPaymentRecorder) Create(_ context.Context, order *models.Order, methodID uuid.UUID, token, payerID string) (*models.Payment, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = &models.Payment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		PaymentMethodID: methodID,
		Amount:          order.Total,
		Currency:        order.Currency,
		Token:           token,
		PayerID:         payerID,
	}
	return s.created, nil
}

func (s *stubPaymentRecorder) RecordCapture(_ context.Context, paymentID uuid.UUID, transactionID string) error {
	s.capturedID = paymentID
	s.captureTxn = transactionID
	return nil
}

func (s *stubPaymentRecorder) MarkFailed(_ context.Context, paymentID uuid.UUID) error {
	s.failedID = paymentID
	return nil
}

type stubMethodStore struct {
	method *models.PaymentMethod
	err    error
}

func (s *stubMethodStore) FindPaymentMethod(context.Context, uuid.UUID) (*models.PaymentMethod, error) {
	return s.method, s.err
}

type stubProcessor struct {
	setResp *paypal.Response
	setErr  error
	setReq  paypal.SetExpressCheckoutRequest
	doResp  *paypal.Response
	doErr   error
	doReq   paypal.DoExpressCheckoutPaymentRequest
	doCalls int
	url     string
}

func (s *stubProcessor) SetExpressCheckout(_ context.Context, req paypal.SetExpressCheckoutRequest) (*paypal.Response, error) {
	s.setReq = req
	return s.setResp, s.setErr
}

func (s *stubProcessor) DoExpressCheckoutPayment(_ context.Context, req paypal.DoExpressCheckoutPaymentRequest) (*paypal.Response, error) {
	s.doReq = req
	s.doCalls++
	return s.doResp, s.doErr
}

func (s *stubProcessor) ExpressCheckoutURL(*paypal.Response, paypal.RedirectOptions) (string, error) {
	return s.url, nil
}

type guardAdapter struct {
	reserved bool
	err      error
	deleted  []string
}

func newGuardAdapter(reserved bool, err error) *guardAdapter {
	return &guardAdapter{reserved: reserved, err: err}
}

func (s *guardAdapter) SetNX(_ context.Context, _ string, _ any, _ time.Duration) (bool, error) {
	return s.reserved, s.err
}

func (s *guardAdapter) IdempotencyKey(scope, id string) string {
	return "xp:idem:" + scope + ":" + id
}

func (s *guardAdapter) Del(_ context.Context, keys ...string) error {
	s.deleted = append(s.deleted, keys...)
	return nil
}

// stubFlow walks a predetermined path of states, one per Advance call.
type stubFlow struct {
	state    enums.OrderState
	path     []enums.OrderState
	advances int
}

func (f *stubFlow) State() enums.OrderState { return f.state }

func (f *stubFlow) Advance(context.Context) (enums.OrderState, error) {
	f.advances++
	if len(f.path) == 0 {
		return f.state, errors.New("no transition")
	}
	f.state = f.path[0]
	f.path = f.path[1:]
	return f.state, nil
}

func (f *stubFlow) IsConfirmState() bool { return f.state == enums.OrderStateConfirm }
func (f *stubFlow) IsComplete() bool     { return f.state == enums.OrderStateComplete }

func testOrder() *models.Order {
	return &models.Order{
		ID:         uuid.New(),
		Number:     "R100000001",
		Currency:   enums.CurrencyUSD,
		State:      enums.OrderStatePayment,
		Total:      dec("61.00"),
		GuestToken: "guest-token",
	}
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		ReturnURL:           "https://shop.example.com/paypal/confirm",
		CancelURL:           "https://shop.example.com/paypal/cancel",
		CheckoutPathPrefix:  "/checkout",
		OrderPathPrefix:     "/orders",
		ShippingMethodLabel: "Shipping",
	}
}

func testService(t *testing.T, orderStoreStub *stubOrderStore, recorder *stubPaymentRecorder, methods *stubMethodStore, processor *stubProcessor, guard *guardAdapter, flow OrderStateMachine) Service {
	t.Helper()
	svc, err := NewService(
		orderStoreStub,
		recorder,
		methods,
		processor,
		guard,
		func(*models.Order) OrderStateMachine { return flow },
		testCheckoutConfig(),
		nil,
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestBeginRedirectsToHostedPage(t *testing.T) {
	t.Parallel()

	processor := &stubProcessor{
		setResp: &paypal.Response{Ack: "Success", Token: "EC-123"},
		url:     "https://www.sandbox.paypal.com/cgi-bin/webscr?cmd=_express-checkout&token=EC-123&useraction=commit",
	}
	methodID := uuid.New()
	svc := testService(t,
		&stubOrderStore{order: testOrder()},
		&stubPaymentRecorder{},
		&stubMethodStore{method: &models.PaymentMethod{ID: methodID, Active: true}},
		processor,
		newGuardAdapter(true, nil),
		&stubFlow{state: enums.OrderStatePayment},
	)

	outcome, err := svc.Begin(context.Background(), "R100000001", methodID)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if outcome.Status != OutcomeRedirect {
		t.Fatalf("status = %q", outcome.Status)
	}
	if !strings.Contains(outcome.RedirectTo, "token=EC-123") {
		t.Fatalf("redirect = %q", outcome.RedirectTo)
	}
	if processor.setReq.InvoiceID != "R100000001" {
		t.Fatalf("invoice id = %q", processor.setReq.InvoiceID)
	}
	if !strings.Contains(processor.setReq.ReturnURL, "payment_method_id="+methodID.String()) {
		t.Fatalf("return url = %q", processor.setReq.ReturnURL)
	}
}

func TestBeginRejectsInactiveMethod(t *testing.T) {
	t.Parallel()

	svc := testService(t,
		&stubOrderStore{order: testOrder()},
		&stubPaymentRecorder{},
		&stubMethodStore{method: &models.PaymentMethod{ID: uuid.New(), Active: false}},
		&stubProcessor{},
		newGuardAdapter(true, nil),
		&stubFlow{state: enums.OrderStatePayment},
	)

	_, err := svc.Begin(context.Background(), "R100000001", uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestBeginProcessorRejectionRecovers(t *testing.T) {
	t.Parallel()

	processor := &stubProcessor{
		setErr: pkgerrors.New(pkgerrors.CodeProcessorRejected, "Insufficient funds"),
	}
	svc := testService(t,
		&stubOrderStore{order: testOrder()},
		&stubPaymentRecorder{},
		&stubMethodStore{method: &models.PaymentMethod{ID: uuid.New(), Active: true}},
		processor,
		newGuardAdapter(true, nil),
		&stubFlow{state: enums.OrderStatePayment},
	)

	outcome, err := svc.Begin(context.Background(), "R100000001", uuid.New())
	if err != nil {
		t.Fatalf("rejection must resolve, got error: %v", err)
	}
	if outcome.Status != OutcomeRecoverable {
		t.Fatalf("status = %q", outcome.Status)
	}
	if outcome.RedirectTo != "/checkout/payment" {
		t.Fatalf("redirect = %q", outcome.RedirectTo)
	}
	if !strings.Contains(outcome.Notice, "Insufficient funds") {
		t.Fatalf("notice = %q, want the processor's message verbatim", outcome.Notice)
	}
}

func TestConfirmCompletesOrder(t *testing.T) {
	t.Parallel()

	order := testOrder()
	recorder := &stubPaymentRecorder{}
	processor := &stubProcessor{
		doResp: &paypal.Response{Ack: "Success", TransactionID: "TXN-1"},
	}
	flow := &stubFlow{
		state: enums.OrderStatePayment,
		path:  []enums.OrderState{enums.OrderStateConfirm, enums.OrderStateComplete},
	}
	svc := testService(t,
		&stubOrderStore{order: order},
		recorder,
		&stubMethodStore{method: &models.PaymentMethod{Active: true}},
		processor,
		newGuardAdapter(true, nil),
		flow,
	)

	outcome, err := svc.Confirm(context.Background(), order.Number, "EC-123", "PAYER-1", uuid.New())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if outcome.Status != OutcomeCompleted {
		t.Fatalf("status = %q", outcome.Status)
	}
	if outcome.RedirectTo != "/orders/R100000001?token=guest-token" {
		t.Fatalf("redirect = %q", outcome.RedirectTo)
	}

	if recorder.created == nil || !recorder.created.Amount.Equal(order.Total) {
		t.Fatalf("payment = %+v, want amount %s", recorder.created, order.Total)
	}
	if processor.doCalls != 1 || !processor.doReq.Amount.Value.Equal(order.Total) {
		t.Fatalf("capture calls = %d, amount = %s", processor.doCalls, processor.doReq.Amount.Value)
	}
	if recorder.captureTxn != "TXN-1" {
		t.Fatalf("recorded txn = %q", recorder.captureTxn)
	}
	// One advance plus the push through the confirmation step.
	if flow.advances != 2 {
		t.Fatalf("advances = %d, want 2", flow.advances)
	}
}

func TestConfirmStopsAfterSingleAdvanceWhenNotOnConfirm(t *testing.T) {
	t.Parallel()

	order := testOrder()
	order.State = enums.OrderStateDelivery
	flow := &stubFlow{
		state: enums.OrderStateDelivery,
		path:  []enums.OrderState{enums.OrderStatePayment},
	}
	svc := testService(t,
		&stubOrderStore{order: order},
		&stubPaymentRecorder{},
		&stubMethodStore{method: &models.PaymentMethod{Active: true}},
		&stubProcessor{doResp: &paypal.Response{Ack: "Success", TransactionID: "TXN-1"}},
		newGuardAdapter(true, nil),
		flow,
	)

	outcome, err := svc.Confirm(context.Background(), order.Number, "EC-123", "PAYER-1", uuid.New())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if flow.advances != 1 {
		t.Fatalf("advances = %d, want 1", flow.advances)
	}
	if outcome.Status != OutcomeRecoverable {
		t.Fatalf("status = %q", outcome.Status)
	}
	if outcome.RedirectTo != "/checkout/payment" {
		t.Fatalf("redirect = %q", outcome.RedirectTo)
	}
}

func TestConfirmNeverAdvancesMoreThanTwice(t *testing.T) {
	t.Parallel()

	order := testOrder()
	// A flow that parks on confirm and would accept advances forever.
	flow := &stubFlow{
		state: enums.OrderStatePayment,
		path: []enums.OrderState{
			enums.OrderStateConfirm,
			enums.OrderStateConfirm,
			enums.OrderStateConfirm,
		},
	}
	svc := testService(t,
		&stubOrderStore{order: order},
		&stubPaymentRecorder{},
		&stubMethodStore{method: &models.PaymentMethod{Active: true}},
		&stubProcessor{doResp: &paypal.Response{Ack: "Success", TransactionID: "TXN-1"}},
		newGuardAdapter(true, nil),
		flow,
	)

	outcome, err := svc.Confirm(context.Background(), order.Number, "EC-123", "PAYER-1", uuid.New())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if flow.advances != 2 {
		t.Fatalf("advances = %d, want at most 2", flow.advances)
	}
	if outcome.Status != OutcomeRecoverable {
		t.Fatalf("status = %q", outcome.Status)
	}
	if outcome.RedirectTo != "/checkout/confirm" {
		t.Fatalf("redirect = %q", outcome.RedirectTo)
	}
}

func TestConfirmRejectedCaptureMarksPaymentFailed(t *testing.T) {
	t.Parallel()

	order := testOrder()
	recorder := &stubPaymentRecorder{}
	flow := &stubFlow{state: enums.OrderStatePayment}
	svc := testService(t,
		&stubOrderStore{order: order},
		recorder,
		&stubMethodStore{method: &models.PaymentMethod{Active: true}},
		&stubProcessor{doErr: pkgerrors.New(pkgerrors.CodeProcessorRejected, "This transaction couldn't be completed.")},
		newGuardAdapter(true, nil),
		flow,
	)

	outcome, err := svc.Confirm(context.Background(), order.Number, "EC-123", "PAYER-1", uuid.New())
	if err != nil {
		t.Fatalf("rejection must resolve, got error: %v", err)
	}
	if outcome.Status != OutcomeRecoverable {
		t.Fatalf("status = %q", outcome.Status)
	}
	if outcome.RedirectTo != "/checkout/payment" {
		t.Fatalf("redirect = %q", outcome.RedirectTo)
	}
	if recorder.failedID != recorder.created.ID {
		t.Fatal("payment was not marked failed")
	}
	if flow.advances != 0 {
		t.Fatalf("order advanced %d times on a rejected capture", flow.advances)
	}
}

func TestConfirmReplayedTokenConflicts(t *testing.T) {
	t.Parallel()

	recorder := &stubPaymentRecorder{}
	svc := testService(t,
		&stubOrderStore{order: testOrder()},
		recorder,
		&stubMethodStore{method: &models.PaymentMethod{Active: true}},
		&stubProcessor{},
		newGuardAdapter(false, nil),
		&stubFlow{state: enums.OrderStatePayment},
	)

	_, err := svc.Confirm(context.Background(), "R100000001", "EC-123", "PAYER-1", uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if recorder.created != nil {
		t.Fatal("payment must not be created for a replayed token")
	}
}

func TestConfirmReleasesGuardWhenPaymentCreateFails(t *testing.T) {
	t.Parallel()

	guard := newGuardAdapter(true, nil)
	svc := testService(t,
		&stubOrderStore{order: testOrder()},
		&stubPaymentRecorder{createErr: pkgerrors.New(pkgerrors.CodeConflict, "payment already recorded for this checkout token")},
		&stubMethodStore{method: &models.PaymentMethod{Active: true}},
		&stubProcessor{},
		guard,
		&stubFlow{state: enums.OrderStatePayment},
	)

	_, err := svc.Confirm(context.Background(), "R100000001", "EC-123", "PAYER-1", uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if len(guard.deleted) != 1 {
		t.Fatalf("guard keys deleted = %v, want the reservation released", guard.deleted)
	}
}

func TestConfirmOnCompletedOrderFails(t *testing.T) {
	t.Parallel()

	order := testOrder()
	order.State = enums.OrderStateComplete
	svc := testService(t,
		&stubOrderStore{order: order},
		&stubPaymentRecorder{},
		&stubMethodStore{method: &models.PaymentMethod{Active: true}},
		&stubProcessor{},
		newGuardAdapter(true, nil),
		&stubFlow{state: enums.OrderStateComplete},
	)

	_, err := svc.Confirm(context.Background(), order.Number, "EC-123", "PAYER-1", uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("err = %v, want state conflict", err)
	}
}

func TestCancelReturnsShopperToCheckout(t *testing.T) {
	t.Parallel()

	order := testOrder()
	svc := testService(t,
		&stubOrderStore{order: order},
		&stubPaymentRecorder{},
		&stubMethodStore{method: &models.PaymentMethod{Active: true}},
		&stubProcessor{},
		newGuardAdapter(true, nil),
		&stubFlow{state: enums.OrderStatePayment},
	)

	outcome, err := svc.Cancel(context.Background(), order.Number)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if outcome.Status != OutcomeRecoverable {
		t.Fatalf("status = %q", outcome.Status)
	}
	if outcome.RedirectTo != "/checkout/payment" {
		t.Fatalf("redirect = %q", outcome.RedirectTo)
	}
	if outcome.Notice == "" {
		t.Fatal("cancel must carry a notice")
	}
}
