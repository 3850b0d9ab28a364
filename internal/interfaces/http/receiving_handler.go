package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/receiving"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ReceivingHandler recibe la notificación de entrega de órdenes de compra (protegido).
type ReceivingHandler struct {
	uc *receiving.UseCase
}

// NewReceivingHandler construye el handler.
func NewReceivingHandler(uc *receiving.UseCase) *ReceivingHandler {
	return &ReceivingHandler{uc: uc}
}

// OrderDelivered godoc
// @Summary      Registrar entrega de una orden de compra (entradas al libro)
// @Tags         receiving
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        orderId  path  string                     true  "ID de la orden"
// @Param        body     body  dto.OrderDeliveredRequest  true  "cantidades recibidas por línea"
// @Success      201      {object}  dto.OrderDeliveredResponse
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Failure      409      {object}  dto.ErrorResponse
// @Router       /api/receiving/orders/{orderId}/delivered [post]
func (h *ReceivingHandler) OrderDelivered(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.OrderDeliveredRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lines := make([]entity.ReceiptLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, entity.ReceiptLine{LineID: l.LineID, ReceivedQuantity: l.ReceivedQuantity})
	}
	out, err := h.uc.OnOrderDelivered(c.UserContext(), c.Params("orderId"), lines, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}
