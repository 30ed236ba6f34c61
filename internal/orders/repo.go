package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelarsolis/expresspay-backend/pkg/db/models"
	"github.com/avelarsolis/expresspay-backend/pkg/enums"
	pkgerrors "github.com/avelarsolis/expresspay-backend/pkg/errors"
)

// Repository defines persistence operations for host-store orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
	UpdateState(ctx context.Context, orderID uuid.UUID, state enums.OrderState) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a gorm-backed order repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByNumber loads an order with its line items, adjustments, and shipments.
func (r *repository) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Preload("Adjustments").
		Preload("Shipments").
		Where("number = ?", number).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return &order, nil
}

// UpdateState persists a checkout state transition.
func (r *repository) UpdateState(ctx context.Context, orderID uuid.UUID, state enums.OrderState) error {
	updates := map[string]any{"state": state}
	if state == enums.OrderStateComplete {
		updates["completed_at"] = time.Now().UTC()
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "updating order state")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}
