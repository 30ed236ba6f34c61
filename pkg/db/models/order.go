package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelarsolis/expresspay-backend/pkg/enums"
	"github.com/avelarsolis/expresspay-backend/pkg/types"
)

// Order is the host store's order row, read and advanced by the gateway.
type Order struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number             string           `gorm:"column:number;not null;unique"`
	Currency           enums.Currency   `gorm:"column:currency;type:text;not null;default:'USD'"`
	State              enums.OrderState `gorm:"column:state;type:text;not null;default:'cart'"`
	Total              decimal.Decimal  `gorm:"column:total;type:numeric(12,2);not null"`
	AdditionalTaxTotal decimal.Decimal  `gorm:"column:additional_tax_total;type:numeric(12,2);not null;default:0"`
	ShipTotal          decimal.Decimal  `gorm:"column:ship_total;type:numeric(12,2);not null;default:0"`
	GuestToken         string           `gorm:"column:guest_token;not null"`
	ShipAddress        *types.Address   `gorm:"column:ship_address;type:jsonb;serializer:json"`
	LineItems          []LineItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Adjustments        []Adjustment     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Shipments          []Shipment       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CompletedAt        *time.Time       `gorm:"column:completed_at"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ShipmentSum totals each shipment's cost after promotions.
func (o Order) ShipmentSum() decimal.Decimal {
	sum := decimal.Zero
	for _, shipment := range o.Shipments {
		sum = sum.Add(shipment.DiscountedCost())
	}
	return sum
}

// ItemSubtotal derives what the items cost from the order total, excluding
// shipping and additional tax. The host store does not persist this figure,
// so it is always back-derived. A zero result is legitimate (for example
// when store credit covers the whole order).
func (o Order) ItemSubtotal() decimal.Decimal {
	return o.Total.Sub(o.ShipmentSum()).Sub(o.AdditionalTaxTotal)
}

// IsComplete reports whether the checkout flow has finished.
func (o Order) IsComplete() bool {
	return o.State == enums.OrderStateComplete
}
