package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/avelarsolis/expresspay-backend/pkg/db/models"
	"github.com/avelarsolis/expresspay-backend/pkg/enums"
)

// OrderStateMachine advances an order through the host store's checkout flow.
// The gateway never assumes how many steps remain; it only asks to advance
// and inspects where the order landed.
type OrderStateMachine interface {
	State() enums.OrderState
	Advance(ctx context.Context) (enums.OrderState, error)
	IsConfirmState() bool
	IsComplete() bool
}

// orderPersister is the slice of the orders repository the flow needs.
type orderPersister interface {
	UpdateState(ctx context.Context, orderID uuid.UUID, state enums.OrderState) error
}

// checkoutTransitions is the default linear flow. Stores with custom flows
// supply their own OrderStateMachine.
var checkoutTransitions = map[enums.OrderState]enums.OrderState{
	enums.OrderStateCart:     enums.OrderStateAddress,
	enums.OrderStateAddress:  enums.OrderStateDelivery,
	enums.OrderStateDelivery: enums.OrderStatePayment,
	enums.OrderStatePayment:  enums.OrderStateConfirm,
	enums.OrderStateConfirm:  enums.OrderStateComplete,
}

// OrderFlow is the default OrderStateMachine backed by the orders table.
type OrderFlow struct {
	order *models.Order
	repo  orderPersister
}

// NewOrderFlow wraps an order in the default checkout flow.
func NewOrderFlow(order *models.Order, repo orderPersister) *OrderFlow {
	return &OrderFlow{order: order, repo: repo}
}

func (f *OrderFlow) State() enums.OrderState {
	return f.order.State
}

// Advance moves the order one step and persists the new state. Terminal and
// unknown states cannot advance.
func (f *OrderFlow) Advance(ctx context.Context) (enums.OrderState, error) {
	next, ok := checkoutTransitions[f.order.State]
	if !ok {
		return f.order.State, fmt.Errorf("no transition from state %q", f.order.State)
	}
	if err := f.repo.UpdateState(ctx, f.order.ID, next); err != nil {
		return f.order.State, err
	}
	f.order.State = next
	return next, nil
}

func (f *OrderFlow) IsConfirmState() bool {
	return f.order.State == enums.OrderStateConfirm
}

func (f *OrderFlow) IsComplete() bool {
	return f.order.State == enums.OrderStateComplete
}
