package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo lee órdenes de compra y marca su entrega.
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

// GetByID obtiene la orden con sus líneas.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var o entity.PurchaseOrder
	err := r.q.QueryRow(ctx, `
		SELECT id, order_code, delivery_warehouse_id, status, actual_delivery_date
		FROM purchase_orders WHERE id = $1`, id).Scan(
		&o.ID, &o.OrderCode, &o.DeliveryWarehouseID, &o.Status, &o.ActualDeliveryDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get purchase order", err)
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, product_id, ordered_quantity
		FROM purchase_order_lines WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, wrap("list purchase order lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.PurchaseOrderLine
		if err := rows.Scan(&l.ID, &l.ProductID, &l.OrderedQuantity); err != nil {
			return nil, fmt.Errorf("scan purchase order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list purchase order lines", err)
	}
	return &o, nil
}

// MarkDelivered avanza la orden a entregada.
func (r *PurchaseOrderRepo) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE purchase_orders SET status = $2, actual_delivery_date = $3, updated_at = $3
		WHERE id = $1`, id, entity.OrderStatusDelivered, at)
	if err != nil {
		return wrap("mark order delivered", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
