package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Adjustment is a charge or discount applied outside of line items
// (promotions, fees, tax, shipping).
type Adjustment struct {
	ID      uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Label   string          `gorm:"column:label;not null"`
	Amount  decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	// Eligible marks adjustments currently counted toward the order total.
	Eligible bool `gorm:"column:eligible;not null;default:true"`
	// Tax marks additional-tax adjustments (tax charged on top of prices).
	Tax bool `gorm:"column:tax;not null;default:false"`
	// Shipping marks shipping-cost adjustments.
	Shipping  bool      `gorm:"column:shipping;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
