package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/transfer"
)

// WarehouseHandler consulta bodegas (dato maestro, solo lectura).
type WarehouseHandler struct {
	uc *transfer.UseCase
}

// NewWarehouseHandler construye el handler.
func NewWarehouseHandler(uc *transfer.UseCase) *WarehouseHandler {
	return &WarehouseHandler{uc: uc}
}

// GetByID godoc
// @Summary      Obtener bodega por ID
// @Tags         warehouses
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la bodega"
// @Success      200  {object}  dto.WarehouseResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/warehouses/{id} [get]
func (h *WarehouseHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Warehouse(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
