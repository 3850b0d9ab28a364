package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ProductStockAggregate stock total de un producto sumando todas sus bodegas.
type ProductStockAggregate struct {
	ProductID      string
	TotalStock     int64
	WarehouseCount int
	HasLowStock    bool
}

// StockBalanceRepository define el puerto de persistencia para saldos por bodega+producto.
// Los métodos que devuelven un saldo retornan (nil, nil) si no existe.
type StockBalanceRepository interface {
	GetByID(ctx context.Context, id string) (*entity.StockBalance, error)
	GetByKey(ctx context.Context, warehouseID, productID string) (*entity.StockBalance, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.StockBalance, error)
	// CreateIfNotExists inserta el saldo si no existe (warehouse, product) y devuelve la fila vigente.
	CreateIfNotExists(ctx context.Context, balance *entity.StockBalance) (*entity.StockBalance, error)
	// ApplyDelta incrementa current_stock de forma atómica. Devuelve domain.ErrInsufficientStock
	// si el resultado quedaría por debajo de lo reservado (o negativo).
	ApplyDelta(ctx context.Context, id string, delta int64, at time.Time) (*entity.StockBalance, error)
	UpdateThresholds(ctx context.Context, id string, minStock int64, maxStock *int64, at time.Time) error
	SetActive(ctx context.Context, id string, active bool, at time.Time) error
	ListByWarehouse(ctx context.Context, warehouseID string, limit, offset int) ([]*entity.StockBalance, int, error)
	ListByProduct(ctx context.Context, productID string) ([]*entity.StockBalance, error)
	// ListLowStock saldos activos con current_stock < min_stock, mayor déficit primero.
	ListLowStock(ctx context.Context, limit, offset int) ([]*entity.StockBalance, int, error)
	AggregateByProduct(ctx context.Context, limit, offset int) ([]ProductStockAggregate, int, error)
}
