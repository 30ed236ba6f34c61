package enums

import "fmt"

// OrderState tracks the host checkout flow for an order.
type OrderState string

const (
	OrderStateCart     OrderState = "cart"
	OrderStateAddress  OrderState = "address"
	OrderStateDelivery OrderState = "delivery"
	OrderStatePayment  OrderState = "payment"
	OrderStateConfirm  OrderState = "confirm"
	OrderStateComplete OrderState = "complete"
	OrderStateCanceled OrderState = "canceled"
)

var validOrderStates = []OrderState{
	OrderStateCart,
	OrderStateAddress,
	OrderStateDelivery,
	OrderStatePayment,
	OrderStateConfirm,
	OrderStateComplete,
	OrderStateCanceled,
}

// String implements fmt.Stringer.
func (o OrderState) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderState.
func (o OrderState) IsValid() bool {
	for _, candidate := range validOrderStates {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderState converts raw input into an OrderState.
func ParseOrderState(value string) (OrderState, error) {
	for _, candidate := range validOrderStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order state %q", value)
}
