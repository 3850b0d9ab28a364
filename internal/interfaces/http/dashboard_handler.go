package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/monitor"
)

// DashboardHandler maneja el tablero de inventario.
type DashboardHandler struct {
	uc *monitor.Dashboard
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(uc *monitor.Dashboard) *DashboardHandler {
	return &DashboardHandler{uc: uc}
}

// GetSummary devuelve saldos bajo el mínimo y traslados por estado.
// GET /api/dashboard/summary
//
// Respuesta: DashboardSummaryDTO (low_stock_balances, open_transfers,
// overdue_transfers[], transfers_by_status, generated_at).
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.uc.Summary(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summary)
}
