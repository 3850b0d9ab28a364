package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// StockHandler maneja saldos, movimientos del libro y stock bajo (protegido).
type StockHandler struct {
	ledger   *inventory.Ledger
	registry *inventory.Registry
	lowStock *inventory.LowStockMonitor
}

// NewStockHandler construye el handler.
func NewStockHandler(ledger *inventory.Ledger, registry *inventory.Registry, lowStock *inventory.LowStockMonitor) *StockHandler {
	return &StockHandler{ledger: ledger, registry: registry, lowStock: lowStock}
}

// RecordMovement godoc
// @Summary      Registrar movimiento en el libro
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecordMovementRequest  true  "balance_id, movement_type, direction, quantity, reference"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/stock/movements [post]
func (h *StockHandler) RecordMovement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.RecordMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	// Traslados y órdenes de compra registran sus propios movimientos
	switch rt := entity.ReferenceType(in.ReferenceType); rt {
	case entity.ReferenceTransfer, entity.ReferencePurchaseOrder:
		return writeError(c, domain.NewValidationError("reference_type", string(rt)+" no admite movimientos manuales"))
	}
	out, err := h.ledger.RecordMovement(c.UserContext(), inventory.MovementInput{
		BalanceID:      in.BalanceID,
		MovementType:   entity.MovementType(in.MovementType),
		Direction:      entity.Direction(in.Direction),
		Quantity:       in.Quantity,
		ReferenceType:  entity.ReferenceType(in.ReferenceType),
		ReferenceID:    in.ReferenceID,
		IdempotencyKey: in.IdempotencyKey,
		Notes:          in.Notes,
		ActorID:        userID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListMovements godoc
// @Summary      Listar movimientos (más recientes primero)
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        balance_id      query  string  false  "Filtrar por saldo"
// @Param        reference_type  query  string  false  "Filtrar por tipo de referencia"
// @Param        reference_id    query  string  false  "Filtrar por referencia"
// @Param        limit           query  int     false  "Tamaño de página"
// @Param        offset          query  int     false  "Desplazamiento"
// @Param        page_token      query  string  false  "Cursor de la página siguiente"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/movements [get]
func (h *StockHandler) ListMovements(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return writeError(c, err)
	}
	filter := repository.MovementFilter{
		BalanceID:     c.Query("balance_id"),
		ReferenceType: entity.ReferenceType(c.Query("reference_type")),
		ReferenceID:   c.Query("reference_id"),
	}
	out, err := h.ledger.ListMovements(c.UserContext(), filter, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetBalance godoc
// @Summary      Obtener saldo
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del saldo"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/balances/{id} [get]
func (h *StockHandler) GetBalance(c *fiber.Ctx) error {
	out, err := h.ledger.GetBalance(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetOrCreateBalance godoc
// @Summary      Obtener o crear el saldo de (bodega, producto)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.GetOrCreateBalanceRequest  true  "warehouse_id, product_id"
// @Success      200   {object}  dto.BalanceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/stock/balances [post]
func (h *StockHandler) GetOrCreateBalance(c *fiber.Ctx) error {
	var in dto.GetOrCreateBalanceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.registry.GetOrCreateBalance(c.UserContext(), in.WarehouseID, in.ProductID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// UpdateThresholds godoc
// @Summary      Fijar stock mínimo y máximo
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                        true  "ID del saldo"
// @Param        body  body  dto.UpdateThresholdsRequest  true  "min_stock, max_stock"
// @Success      200   {object}  dto.BalanceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/balances/{id}/thresholds [put]
func (h *StockHandler) UpdateThresholds(c *fiber.Ctx) error {
	var in dto.UpdateThresholdsRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.registry.UpdateThresholds(c.UserContext(), c.Params("id"), in.MinStock, in.MaxStock)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetActive godoc
// @Summary      Activar o desactivar un saldo
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID del saldo"
// @Param        body  body  dto.SetActiveRequest  true  "active"
// @Success      200   {object}  dto.BalanceResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/balances/{id}/active [put]
func (h *StockHandler) SetActive(c *fiber.Ctx) error {
	var in dto.SetActiveRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.registry.SetActive(c.UserContext(), c.Params("id"), in.Active)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ReplayBalance godoc
// @Summary      Reconstruir el saldo desde el libro y compararlo con el valor cacheado
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del saldo"
// @Success      200  {object}  dto.ReplayResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/balances/{id}/replay [get]
func (h *StockHandler) ReplayBalance(c *fiber.Ctx) error {
	out, err := h.ledger.ReplayBalance(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListLowStock godoc
// @Summary      Saldos bajo el mínimo con cantidad sugerida de reposición
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Tamaño de página"
// @Param        offset  query  int  false  "Desplazamiento"
// @Success      200  {object}  dto.LowStockListResponse
// @Router       /api/stock/low-stock [get]
func (h *StockHandler) ListLowStock(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.lowStock.ListLowStock(c.UserContext(), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListProducts godoc
// @Summary      Stock total por producto
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Tamaño de página"
// @Param        offset  query  int  false  "Desplazamiento"
// @Success      200  {object}  dto.ProductAggregateListResponse
// @Router       /api/stock/products [get]
func (h *StockHandler) ListProducts(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.registry.ListAggregateByProduct(c.UserContext(), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ProductDetail godoc
// @Summary      Detalle de stock de un producto (saldos y últimos movimientos)
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductStockDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/products/{productId} [get]
func (h *StockHandler) ProductDetail(c *fiber.Ctx) error {
	out, err := h.registry.ProductStockDetail(c.UserContext(), c.Params("productId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListByWarehouse godoc
// @Summary      Saldos de una bodega
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        warehouseId  path   string  true   "ID de la bodega"
// @Param        limit        query  int     false  "Tamaño de página"
// @Param        offset       query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.BalanceListResponse
// @Router       /api/stock/warehouses/{warehouseId} [get]
func (h *StockHandler) ListByWarehouse(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.registry.ListByWarehouse(c.UserContext(), c.Params("warehouseId"), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
