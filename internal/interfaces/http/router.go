package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/monitor"
	"github.com/jhoicas/stock-ledger/internal/application/receiving"
	"github.com/jhoicas/stock-ledger/internal/application/transfer"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger    *inventory.Ledger
	Registry  *inventory.Registry
	LowStock  *inventory.LowStockMonitor
	Receiving *receiving.UseCase
	Transfers *transfer.UseCase
	Dashboard *monitor.Dashboard
	JWTSecret string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Stock: saldos, libro de movimientos y monitor
	stock := api.Group("/stock")
	stockHandler := NewStockHandler(deps.Ledger, deps.Registry, deps.LowStock)
	stock.Post("/balances", stockHandler.GetOrCreateBalance)
	stock.Get("/balances/:id", stockHandler.GetBalance)
	stock.Put("/balances/:id/thresholds", stockHandler.UpdateThresholds)
	stock.Put("/balances/:id/active", stockHandler.SetActive)
	stock.Get("/balances/:id/replay", stockHandler.ReplayBalance)
	stock.Post("/movements", stockHandler.RecordMovement)
	stock.Get("/movements", stockHandler.ListMovements)
	stock.Get("/low-stock", stockHandler.ListLowStock)
	stock.Get("/products", stockHandler.ListProducts)
	stock.Get("/products/:productId", stockHandler.ProductDetail)
	stock.Get("/warehouses/:warehouseId", stockHandler.ListByWarehouse)

	// Recepción de órdenes de compra
	receivingHandler := NewReceivingHandler(deps.Receiving)
	api.Post("/receiving/orders/:orderId/delivered", receivingHandler.OrderDelivered)

	// Traslados (rutas estáticas antes de /:id)
	transfers := api.Group("/transfers")
	transferHandler := NewTransferHandler(deps.Transfers)
	approvers := RequireRole(jwt.RoleAdmin, jwt.RoleSupervisor)
	transfers.Post("/", transferHandler.Create)
	transfers.Get("/", transferHandler.List)
	transfers.Get("/pending", transferHandler.ListPending)
	transfers.Get("/overdue", transferHandler.ListOverdue)
	transfers.Get("/counts", transferHandler.Counts)
	transfers.Get("/code/:code", transferHandler.GetByCode)
	transfers.Get("/:id", transferHandler.GetByID)
	transfers.Get("/:id/dispatch-note", transferHandler.DispatchNote)
	transfers.Post("/:id/approve", approvers, transferHandler.Approve)
	transfers.Post("/:id/reject", approvers, transferHandler.Reject)
	transfers.Post("/:id/prepare", transferHandler.Prepare)
	transfers.Post("/:id/transit", transferHandler.Transit)
	transfers.Post("/:id/deliver", transferHandler.Deliver)
	transfers.Post("/:id/complete", transferHandler.Complete)
	transfers.Post("/:id/cancel", transferHandler.Cancel)
	transfers.Put("/:id/items/:itemId", transferHandler.UpdateItem)

	// Bodegas (solo lectura) y tablero
	api.Get("/warehouses/:id", NewWarehouseHandler(deps.Transfers).GetByID)
	api.Get("/dashboard/summary", NewDashboardHandler(deps.Dashboard).GetSummary)
}
