package checkout

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/avelarsolis/expresspay-backend/pkg/config"
	"github.com/avelarsolis/expresspay-backend/pkg/db/models"
	"github.com/avelarsolis/expresspay-backend/pkg/enums"
	pkgerrors "github.com/avelarsolis/expresspay-backend/pkg/errors"
	"github.com/avelarsolis/expresspay-backend/pkg/logger"
	"github.com/avelarsolis/expresspay-backend/pkg/metrics"
	"github.com/avelarsolis/expresspay-backend/pkg/paypal"
	"github.com/avelarsolis/expresspay-backend/pkg/redis"
)

// Consumer-side slices of the collaborators this service needs.
type orderStore interface {
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
}

type paymentRecorder interface {
	Create(ctx context.Context, order *models.Order, methodID uuid.UUID, token, payerID string) (*models.Payment, error)
	RecordCapture(ctx context.Context, paymentID uuid.UUID, transactionID string) error
	MarkFailed(ctx context.Context, paymentID uuid.UUID) error
}

type methodStore interface {
	FindPaymentMethod(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error)
}

type processorClient interface {
	SetExpressCheckout(ctx context.Context, req paypal.SetExpressCheckoutRequest) (*paypal.Response, error)
	DoExpressCheckoutPayment(ctx context.Context, req paypal.DoExpressCheckoutPaymentRequest) (*paypal.Response, error)
	ExpressCheckoutURL(resp *paypal.Response, opts paypal.RedirectOptions) (string, error)
}

// FlowFactory builds the state machine for an order. The default wraps the
// linear checkout flow; hosts with custom flows inject their own.
type FlowFactory func(order *models.Order) OrderStateMachine

// OutcomeStatus classifies how an express-checkout operation resolved.
type OutcomeStatus string

const (
	// OutcomeRedirect sends the shopper to the processor's hosted page.
	OutcomeRedirect OutcomeStatus = "redirect"
	// OutcomeCompleted means the order finished checkout.
	OutcomeCompleted OutcomeStatus = "completed"
	// OutcomeRecoverable returns the shopper to the storefront checkout to
	// retry or pick another payment method. It is a normal resolution, not
	// an error.
	OutcomeRecoverable OutcomeStatus = "recoverable"
)

// Outcome is the user-facing resolution of a checkout operation. RedirectTo
// is absolute for the hosted page and storefront-relative otherwise.
type Outcome struct {
	Status     OutcomeStatus
	RedirectTo string
	Notice     string
}

// Shopper-facing notices. The storefront renders these as flash messages.
const (
	noticeOrderProcessed   = "Your order has been processed successfully."
	noticePaymentCanceled  = "Payment canceled. You have not been charged."
	noticeCaptureFailed    = "Your payment could not be completed. Please try again or choose another payment method."
	noticeProcessorErrorFn = "PayPal failed. %s"
	noticeConnectionFailed = "Could not connect to PayPal. Please try again later."
)

// confirmGuardTTL bounds how long a callback token stays reserved. The
// payments table's unique token column is the durable backstop.
const confirmGuardTTL = 72 * time.Hour

// Service drives the three legs of an express checkout plus cancellation.
type Service interface {
	Begin(ctx context.Context, orderNumber string, paymentMethodID uuid.UUID) (Outcome, error)
	Confirm(ctx context.Context, orderNumber, token, payerID string, paymentMethodID uuid.UUID) (Outcome, error)
	Cancel(ctx context.Context, orderNumber string) (Outcome, error)
}

type service struct {
	orders    orderStore
	payments  paymentRecorder
	methods   methodStore
	processor processorClient
	guard     redis.IdempotencyStore
	flowFor   FlowFactory
	cfg       config.CheckoutConfig
	metrics   *metrics.CheckoutMetrics
	logger    *logger.Logger
}

// DefaultFlowFactory builds the linear order flow backed by the given
// persister. Hosts with custom checkout flows substitute their own factory.
func DefaultFlowFactory(repo orderPersister) FlowFactory {
	return func(order *models.Order) OrderStateMachine {
		return NewOrderFlow(order, repo)
	}
}

// NewService wires the checkout service.
func NewService(
	orders orderStore,
	payments paymentRecorder,
	methods methodStore,
	processor processorClient,
	guard redis.IdempotencyStore,
	flowFor FlowFactory,
	cfg config.CheckoutConfig,
	m *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order store is required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment recorder is required")
	}
	if methods == nil {
		return nil, fmt.Errorf("method store is required")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor client is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard is required")
	}
	if flowFor == nil {
		return nil, fmt.Errorf("flow factory is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		orders:    orders,
		payments:  payments,
		methods:   methods,
		processor: processor,
		guard:     guard,
		flowFor:   flowFor,
		cfg:       cfg,
		metrics:   m,
		logger:    logg,
	}, nil
}

// Begin opens an express checkout for the order and returns the hosted-page
// redirect. Processor rejections and connection failures resolve to a
// recoverable outcome so the shopper lands back on the checkout step with a
// notice; precondition failures return errors.
func (s *service) Begin(ctx context.Context, orderNumber string, paymentMethodID uuid.UUID) (Outcome, error) {
	ctx = s.logger.WithOrderNumber(ctx, orderNumber)
	ctx = s.logger.WithPaymentMethodID(ctx, paymentMethodID.String())

	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return Outcome{}, err
	}
	if order.IsComplete() {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order has already completed checkout")
	}

	method, err := s.methods.FindPaymentMethod(ctx, paymentMethodID)
	if err != nil {
		return Outcome{}, err
	}
	if !method.Active {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "payment method is not active")
	}

	req := BuildExpressCheckoutRequest(order, ResolveMethodPreferences(method), CallbackURLs{
		ReturnURL:       s.cfg.ReturnURL,
		CancelURL:       s.cfg.CancelURL,
		PaymentMethodID: paymentMethodID,
	}, s.cfg.ShippingMethodLabel)

	resp, err := s.processor.SetExpressCheckout(ctx, req)
	if err != nil {
		if outcome, ok := s.recoverProcessorError(ctx, "express", order, err); ok {
			return outcome, nil
		}
		return Outcome{}, err
	}

	redirect, err := s.processor.ExpressCheckoutURL(resp, paypal.RedirectOptions{UserAction: "commit"})
	if err != nil {
		return Outcome{}, err
	}

	if s.metrics != nil {
		s.metrics.IncBegun()
	}
	s.logger.Info(ctx, "express checkout started")
	return Outcome{Status: OutcomeRedirect, RedirectTo: redirect}, nil
}

// Confirm reconciles the processor callback: record the payment, capture the
// funds, and advance the order. A replayed token or a failed payment insert
// fails loudly; a rejected capture resolves to a recoverable outcome with
// the payment marked failed and the order untouched.
func (s *service) Confirm(ctx context.Context, orderNumber, token, payerID string, paymentMethodID uuid.UUID) (Outcome, error) {
	ctx = s.logger.WithOrderNumber(ctx, orderNumber)
	ctx = s.logger.WithPaymentMethodID(ctx, paymentMethodID.String())

	if token == "" || payerID == "" {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "token and payer id are required")
	}

	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return Outcome{}, err
	}
	if order.IsComplete() {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order has already completed checkout")
	}

	guardKey := s.guard.IdempotencyKey("confirm", token)
	reserved, err := s.guard.SetNX(ctx, guardKey, order.Number, confirmGuardTTL)
	if err != nil {
		// The unique token column still blocks replays; degrade to a warning.
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "confirm guard unavailable")
	} else if !reserved {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeConflict, "checkout token already processed")
	}

	payment, err := s.payments.Create(ctx, order, paymentMethodID, token, payerID)
	if err != nil {
		s.releaseGuard(ctx, guardKey)
		return Outcome{}, err
	}

	resp, err := s.processor.DoExpressCheckoutPayment(ctx, paypal.DoExpressCheckoutPaymentRequest{
		Token:         token,
		PayerID:       payerID,
		Amount:        paypal.Amount{Currency: order.Currency, Value: order.Total},
		PaymentAction: paypal.PaymentActionSale,
	})
	if err != nil {
		if failErr := s.payments.MarkFailed(ctx, payment.ID); failErr != nil {
			s.logger.Error(ctx, "marking payment failed", failErr)
		}
		if s.metrics != nil {
			s.metrics.IncRejected("confirm")
		}
		s.logger.Error(ctx, "capture rejected", err)
		return Outcome{
			Status:     OutcomeRecoverable,
			RedirectTo: s.checkoutStatePath(order.State),
			Notice:     s.captureFailureNotice(err),
		}, nil
	}

	if err := s.payments.RecordCapture(ctx, payment.ID, resp.TransactionID); err != nil {
		return Outcome{}, err
	}

	flow := s.flowFor(order)
	if _, err := flow.Advance(ctx); err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "state advance stalled")
	} else if flow.IsConfirmState() {
		// The host flow parks on a confirmation step; push through it since
		// the shopper already approved on the hosted page.
		if _, err := flow.Advance(ctx); err != nil {
			s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "state advance stalled")
		}
	}

	if !flow.IsComplete() {
		// Funds are captured but checkout needs more input. Send the shopper
		// back to finish; the completed payment stays attached to the order.
		return Outcome{
			Status:     OutcomeRecoverable,
			RedirectTo: s.checkoutStatePath(flow.State()),
		}, nil
	}

	if s.metrics != nil {
		s.metrics.IncCompleted()
	}
	s.logger.Info(ctx, "express checkout completed")
	return Outcome{
		Status:     OutcomeCompleted,
		RedirectTo: s.completionPath(order),
		Notice:     noticeOrderProcessed,
	}, nil
}

// Cancel handles the shopper abandoning the hosted page. Nothing was charged
// and no payment record exists, so the order is left untouched.
func (s *service) Cancel(ctx context.Context, orderNumber string) (Outcome, error) {
	ctx = s.logger.WithOrderNumber(ctx, orderNumber)

	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return Outcome{}, err
	}

	if s.metrics != nil {
		s.metrics.IncCanceled()
	}
	s.logger.Info(ctx, "express checkout canceled by shopper")
	return Outcome{
		Status:     OutcomeRecoverable,
		RedirectTo: s.checkoutStatePath(order.State),
		Notice:     noticePaymentCanceled,
	}, nil
}

// recoverProcessorError converts processor rejections and connection
// failures on the initiating leg into shopper-facing outcomes.
func (s *service) recoverProcessorError(ctx context.Context, leg string, order *models.Order, err error) (Outcome, bool) {
	var notice string
	switch {
	case pkgerrors.HasCode(err, pkgerrors.CodeProcessorRejected):
		notice = fmt.Sprintf(noticeProcessorErrorFn, pkgerrors.As(err).Message())
	case pkgerrors.HasCode(err, pkgerrors.CodeConnection):
		notice = noticeConnectionFailed
	default:
		return Outcome{}, false
	}
	if s.metrics != nil {
		s.metrics.IncRejected(leg)
	}
	s.logger.Error(ctx, "processor call failed", err)
	return Outcome{
		Status:     OutcomeRecoverable,
		RedirectTo: s.checkoutStatePath(order.State),
		Notice:     notice,
	}, true
}

func (s *service) captureFailureNotice(err error) string {
	if pkgerrors.HasCode(err, pkgerrors.CodeConnection) {
		return noticeConnectionFailed
	}
	if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeProcessorRejected {
		return fmt.Sprintf(noticeProcessorErrorFn, appErr.Message())
	}
	return noticeCaptureFailed
}

func (s *service) releaseGuard(ctx context.Context, key string) {
	if err := s.guard.Del(ctx, key); err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "releasing confirm guard")
	}
}

func (s *service) checkoutStatePath(state enums.OrderState) string {
	return s.cfg.CheckoutPathPrefix + "/" + state.String()
}

func (s *service) completionPath(order *models.Order) string {
	return s.cfg.OrderPathPrefix + "/" + order.Number + "?token=" + url.QueryEscape(order.GuestToken)
}
