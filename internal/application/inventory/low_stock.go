package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// LowStockMonitor lista saldos activos bajo el mínimo con la cantidad sugerida de reposición.
type LowStockMonitor struct {
	balances repository.StockBalanceRepository
	maxPage  int
}

// NewLowStockMonitor construye el monitor.
func NewLowStockMonitor(balances repository.StockBalanceRepository, maxPage int) *LowStockMonitor {
	return &LowStockMonitor{balances: balances, maxPage: maxPage}
}

// ListLowStock ordenado por déficit (min - actual) descendente.
func (m *LowStockMonitor) ListLowStock(ctx context.Context, page dto.PageRequest) (*dto.LowStockListResponse, error) {
	page.DefaultPage(m.maxPage)
	list, total, err := m.balances.ListLowStock(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.LowStockItemDTO, 0, len(list))
	for _, b := range list {
		items = append(items, dto.LowStockItemDTO{
			BalanceResponse:   ToBalanceResponse(b),
			Deficit:           b.MinStock - b.CurrentStock,
			SuggestedOrderQty: b.SuggestedOrderQty(),
		})
	}
	return &dto.LowStockListResponse{
		Items: items,
		Page:  dto.NewPageResponse(page.Limit, page.Offset, len(items), total),
	}, nil
}

// CountLowStock total de saldos bajo el mínimo (lo usa el job periódico).
func (m *LowStockMonitor) CountLowStock(ctx context.Context) (int, error) {
	_, total, err := m.balances.ListLowStock(ctx, 1, 0)
	return total, err
}
