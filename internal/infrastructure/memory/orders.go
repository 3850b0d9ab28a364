package memory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.PurchaseOrderRepository = (*orderRepo)(nil)
	_ repository.WarehouseRepository     = (*warehouseRepo)(nil)
)

type orderRepo struct {
	s    *Store
	inTx bool
}

func (r *orderRepo) GetByID(_ context.Context, id string) (*entity.PurchaseOrder, error) {
	defer r.s.view(r.inTx)()
	return copyOrder(r.s.st.orders[id]), nil
}

func (r *orderRepo) MarkDelivered(_ context.Context, id string, at time.Time) error {
	defer r.s.update(r.inTx)()
	o := r.s.st.orders[id]
	if o == nil {
		return domain.ErrNotFound
	}
	o.Status = entity.OrderStatusDelivered
	t := at
	o.ActualDeliveryDate = &t
	return nil
}

type warehouseRepo struct {
	s *Store
}

func (r *warehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w := r.s.st.warehouses[id]
	if w == nil {
		return nil, nil
	}
	c := *w
	return &c, nil
}
