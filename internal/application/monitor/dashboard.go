package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// TransferStats conteos de traslados para el tablero.
type TransferStats interface {
	OverdueLister
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// Dashboard arma el resumen del tablero con las mismas fuentes del job.
type Dashboard struct {
	lowStock  LowStockCounter
	transfers TransferStats
	now       func() time.Time
}

// NewDashboard construye el resumen.
func NewDashboard(lowStock LowStockCounter, transfers TransferStats) *Dashboard {
	return &Dashboard{lowStock: lowStock, transfers: transfers, now: time.Now}
}

// Summary devuelve saldos bajo el mínimo, traslados abiertos y vencidos.
func (d *Dashboard) Summary(ctx context.Context) (*dto.DashboardSummaryDTO, error) {
	low, err := d.lowStock.CountLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("contar stock bajo: %w", err)
	}
	counts, err := d.transfers.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("contar traslados: %w", err)
	}
	overdue, err := d.transfers.ListOverdue(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar traslados vencidos: %w", err)
	}
	out := &dto.DashboardSummaryDTO{
		LowStockBalances:  low,
		OverdueTransfers:  make([]string, 0, len(overdue)),
		TransfersByStatus: counts,
		GeneratedAt:       d.now(),
	}
	for st, n := range counts {
		if !entity.TransferStatus(st).IsTerminal() {
			out.OpenTransfers += n
		}
	}
	for _, t := range overdue {
		out.OverdueTransfers = append(out.OverdueTransfers, t.TransferCode)
	}
	return out, nil
}
