package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockBalanceRepository = (*balanceRepo)(nil)

type balanceRepo struct {
	s    *Store
	inTx bool
}

func balanceKey(warehouseID, productID string) string {
	return warehouseID + "|" + productID
}

func (r *balanceRepo) GetByID(_ context.Context, id string) (*entity.StockBalance, error) {
	defer r.s.view(r.inTx)()
	return copyBalance(r.s.st.balances[id]), nil
}

func (r *balanceRepo) GetByKey(_ context.Context, warehouseID, productID string) (*entity.StockBalance, error) {
	defer r.s.view(r.inTx)()
	id, ok := r.s.st.balanceKeys[balanceKey(warehouseID, productID)]
	if !ok {
		return nil, nil
	}
	return copyBalance(r.s.st.balances[id]), nil
}

// GetForUpdate: dentro de Run el mutex global ya serializa.
func (r *balanceRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockBalance, error) {
	return r.GetByID(ctx, id)
}

func (r *balanceRepo) CreateIfNotExists(_ context.Context, b *entity.StockBalance) (*entity.StockBalance, error) {
	defer r.s.update(r.inTx)()
	key := balanceKey(b.WarehouseID, b.ProductID)
	if id, ok := r.s.st.balanceKeys[key]; ok {
		return copyBalance(r.s.st.balances[id]), nil
	}
	c := copyBalance(b)
	r.s.st.balances[c.ID] = c
	r.s.st.balanceKeys[key] = c.ID
	return copyBalance(c), nil
}

func (r *balanceRepo) ApplyDelta(_ context.Context, id string, delta int64, at time.Time) (*entity.StockBalance, error) {
	defer r.s.update(r.inTx)()
	b := r.s.st.balances[id]
	if b == nil {
		return nil, domain.ErrNotFound
	}
	next := b.CurrentStock + delta
	if next < 0 || next < b.ReservedQuantity {
		return nil, &domain.InsufficientStockError{
			BalanceID: b.ID,
			ProductID: b.ProductID,
			Available: b.Available(),
			Requested: -delta,
		}
	}
	b.CurrentStock = next
	t := at
	b.LastMovementAt = &t
	b.UpdatedAt = at
	b.Version++
	return copyBalance(b), nil
}

func (r *balanceRepo) UpdateThresholds(_ context.Context, id string, minStock int64, maxStock *int64, at time.Time) error {
	defer r.s.update(r.inTx)()
	b := r.s.st.balances[id]
	if b == nil {
		return domain.ErrNotFound
	}
	b.MinStock = minStock
	b.MaxStock = nil
	if maxStock != nil {
		m := *maxStock
		b.MaxStock = &m
	}
	b.UpdatedAt = at
	b.Version++
	return nil
}

func (r *balanceRepo) SetActive(_ context.Context, id string, active bool, at time.Time) error {
	defer r.s.update(r.inTx)()
	b := r.s.st.balances[id]
	if b == nil {
		return domain.ErrNotFound
	}
	b.Active = active
	b.UpdatedAt = at
	b.Version++
	return nil
}

func (r *balanceRepo) ListByWarehouse(_ context.Context, warehouseID string, limit, offset int) ([]*entity.StockBalance, int, error) {
	defer r.s.view(r.inTx)()
	var out []*entity.StockBalance
	for _, b := range r.s.st.balances {
		if b.WarehouseID == warehouseID {
			out = append(out, copyBalance(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return paginate(out, limit, offset), len(out), nil
}

func (r *balanceRepo) ListByProduct(_ context.Context, productID string) ([]*entity.StockBalance, error) {
	defer r.s.view(r.inTx)()
	var out []*entity.StockBalance
	for _, b := range r.s.st.balances {
		if b.ProductID == productID {
			out = append(out, copyBalance(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID < out[j].WarehouseID })
	return out, nil
}

func (r *balanceRepo) ListLowStock(_ context.Context, limit, offset int) ([]*entity.StockBalance, int, error) {
	defer r.s.view(r.inTx)()
	var out []*entity.StockBalance
	for _, b := range r.s.st.balances {
		if b.IsLowStock() {
			out = append(out, copyBalance(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di := out[i].MinStock - out[i].CurrentStock
		dj := out[j].MinStock - out[j].CurrentStock
		if di != dj {
			return di > dj
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, limit, offset), len(out), nil
}

func (r *balanceRepo) AggregateByProduct(_ context.Context, limit, offset int) ([]repository.ProductStockAggregate, int, error) {
	defer r.s.view(r.inTx)()
	byProduct := make(map[string]*repository.ProductStockAggregate)
	for _, b := range r.s.st.balances {
		a := byProduct[b.ProductID]
		if a == nil {
			a = &repository.ProductStockAggregate{ProductID: b.ProductID}
			byProduct[b.ProductID] = a
		}
		a.TotalStock += b.CurrentStock
		a.WarehouseCount++
		a.HasLowStock = a.HasLowStock || b.IsLowStock()
	}
	out := make([]repository.ProductStockAggregate, 0, len(byProduct))
	for _, a := range byProduct {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return paginate(out, limit, offset), len(out), nil
}
