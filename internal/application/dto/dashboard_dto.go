package dto

import "time"

// DashboardSummaryDTO respuesta de GET /api/dashboard/summary.
// Foto del inventario: saldos bajo el mínimo y traslados por estado.
type DashboardSummaryDTO struct {
	LowStockBalances  int            `json:"low_stock_balances"`
	OpenTransfers     int            `json:"open_transfers"`    // PENDING, APPROVED, PREPARING, IN_TRANSIT, DELIVERED
	OverdueTransfers  []string       `json:"overdue_transfers"` // códigos
	TransfersByStatus map[string]int `json:"transfers_by_status"`
	GeneratedAt       time.Time      `json:"generated_at"`
}
