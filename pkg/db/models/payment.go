package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelarsolis/expresspay-backend/pkg/enums"
)

// Payment records one express-checkout authorization/capture against an order.
// Created once per successful callback; immutable afterwards except for the
// processor-assigned transaction id and state.
type Payment struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	PaymentMethodID uuid.UUID          `gorm:"column:payment_method_id;type:uuid;not null"`
	Amount          decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency        enums.Currency     `gorm:"column:currency;type:text;not null;default:'USD'"`
	State           enums.PaymentState `gorm:"column:state;type:text;not null;default:'pending'"`
	// Token is the processor's opaque checkout token from the callback.
	Token string `gorm:"column:token;not null;unique"`
	// PayerID identifies the shopper on the processor side.
	PayerID string `gorm:"column:payer_id;not null"`
	// TransactionID is assigned by the processor when the capture settles.
	TransactionID  *string          `gorm:"column:transaction_id"`
	RefundedAmount *decimal.Decimal `gorm:"column:refunded_amount;type:numeric(12,2)"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
