package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// PurchaseOrderRepository puerto hacia las órdenes de compra del módulo de compras.
// El núcleo solo lee la orden y avanza su estado a entregada.
type PurchaseOrderRepository interface {
	GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
}
