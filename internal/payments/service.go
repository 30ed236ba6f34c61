package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelarsolis/expresspay-backend/pkg/db/models"
	"github.com/avelarsolis/expresspay-backend/pkg/enums"
	pkgerrors "github.com/avelarsolis/expresspay-backend/pkg/errors"
	"github.com/avelarsolis/expresspay-backend/pkg/logger"
	"github.com/avelarsolis/expresspay-backend/pkg/metrics"
	"github.com/avelarsolis/expresspay-backend/pkg/paypal"
)

// refundClient is the slice of the processor client the payments service needs.
type refundClient interface {
	RefundTransaction(ctx context.Context, req paypal.RefundTransactionRequest) (*paypal.Response, error)
}

// CreditResult reports a settled refund back to the caller.
type CreditResult struct {
	PaymentID           uuid.UUID       `json:"payment_id"`
	RefundTransactionID string          `json:"refund_transaction_id"`
	RefundType          string          `json:"refund_type"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            enums.Currency  `json:"currency"`
}

// Service manages payment records and refunds for express checkouts.
type Service interface {
	Create(ctx context.Context, order *models.Order, methodID uuid.UUID, token, payerID string) (*models.Payment, error)
	RecordCapture(ctx context.Context, paymentID uuid.UUID, transactionID string) error
	MarkFailed(ctx context.Context, paymentID uuid.UUID) error
	Credit(ctx context.Context, paymentID uuid.UUID, amount *decimal.Decimal) (*CreditResult, error)
}

type service struct {
	repo     Repository
	refunder refundClient
	metrics  *metrics.CheckoutMetrics
	logger   *logger.Logger
}

// NewService wires the payments service. The refund client may be any
// processor client that can issue RefundTransaction calls.
func NewService(repo Repository, refunder refundClient, m *metrics.CheckoutMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repo is required")
	}
	if refunder == nil {
		return nil, fmt.Errorf("refund client is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, refunder: refunder, metrics: m, logger: logg}, nil
}

// Create records a pending payment for the full order total. A replayed
// callback token violates the unique constraint and fails loudly.
func (s *service) Create(ctx context.Context, order *models.Order, methodID uuid.UUID, token, payerID string) (*models.Payment, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if token == "" || payerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token and payer id are required")
	}

	payment := &models.Payment{
		OrderID:         order.ID,
		PaymentMethodID: methodID,
		Amount:          order.Total,
		Currency:        order.Currency,
		State:           enums.PaymentStatePending,
		Token:           token,
		PayerID:         payerID,
	}
	created, err := s.repo.CreatePayment(ctx, payment)
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithOrderNumber(ctx, order.Number)
	s.logger.Info(s.logger.WithField(ctx, "payment_id", created.ID.String()), "payment record created")
	return created, nil
}

// RecordCapture stores the processor transaction id and completes the payment.
func (s *service) RecordCapture(ctx context.Context, paymentID uuid.UUID, transactionID string) error {
	if transactionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	return s.repo.UpdatePayment(ctx, paymentID, map[string]any{
		"transaction_id": transactionID,
		"state":          enums.PaymentStateCompleted,
	})
}

// MarkFailed flags a payment whose capture was rejected by the processor.
func (s *service) MarkFailed(ctx context.Context, paymentID uuid.UUID) error {
	return s.repo.UpdatePayment(ctx, paymentID, map[string]any{
		"state": enums.PaymentStateFailed,
	})
}

// Credit refunds a completed payment through the processor. A nil amount
// refunds the full remaining balance; an explicit amount issues a partial
// refund and may be repeated until the balance is exhausted.
func (s *service) Credit(ctx context.Context, paymentID uuid.UUID, amount *decimal.Decimal) (*CreditResult, error) {
	payment, err := s.repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.State != enums.PaymentStateCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment in state %q cannot be refunded", payment.State))
	}
	if payment.TransactionID == nil || *payment.TransactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has no settled transaction")
	}

	refunded := decimal.Zero
	if payment.RefundedAmount != nil {
		refunded = *payment.RefundedAmount
	}
	remaining := payment.Amount.Sub(refunded)

	refundType := paypal.RefundTypePartial
	refundAmount := remaining
	if amount == nil || amount.Equal(remaining) {
		refundType = paypal.RefundTypeFull
	} else {
		refundAmount = *amount
	}
	if refundAmount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if refundAmount.GreaterThan(remaining) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("refund amount %s exceeds remaining balance %s", refundAmount, remaining))
	}

	resp, err := s.refunder.RefundTransaction(ctx, paypal.RefundTransactionRequest{
		TransactionID: *payment.TransactionID,
		RefundType:    refundType,
		Amount: paypal.Amount{
			Currency: payment.Currency,
			Value:    refundAmount,
		},
	})
	if err != nil {
		return nil, err
	}

	totalRefunded := refunded.Add(refundAmount)
	updates := map[string]any{"refunded_amount": totalRefunded}
	if totalRefunded.Equal(payment.Amount) {
		updates["state"] = enums.PaymentStateRefunded
	}
	if err := s.repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncRefunded()
	}
	ctx = s.logger.WithFields(ctx, map[string]any{
		"payment_id":  payment.ID.String(),
		"refund_txn":  resp.RefundTransactionID,
		"refund_type": refundType,
	})
	s.logger.Info(ctx, "refund settled")

	return &CreditResult{
		PaymentID:           payment.ID,
		RefundTransactionID: resp.RefundTransactionID,
		RefundType:          refundType,
		Amount:              refundAmount,
		Currency:            payment.Currency,
	}, nil
}
