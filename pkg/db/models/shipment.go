package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shipment carries the shipping cost for part of an order.
type Shipment struct {
	ID      uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Cost    decimal.Decimal `gorm:"column:cost;type:numeric(12,2);not null"`
	// PromoDiscount is the promotion amount already taken off this shipment.
	PromoDiscount decimal.Decimal `gorm:"column:promo_discount;type:numeric(12,2);not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// DiscountedCost is the shipping cost after promotions. A fully promoted
// shipment still reports its pre-promotion cost through Cost.
func (s Shipment) DiscountedCost() decimal.Decimal {
	return s.Cost.Sub(s.PromoDiscount)
}
