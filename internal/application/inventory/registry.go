package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// recentMovementsLimit movimientos recientes en el detalle de producto.
const recentMovementsLimit = 20

// Registry administra los saldos por (bodega, producto): creación perezosa, umbrales y consultas.
type Registry struct {
	txRunner  TxRunner
	retry     RetryPolicy
	balances  repository.StockBalanceRepository
	movements repository.StockMovementRepository
	log       *logger.Logger
	maxPage   int
	now       func() time.Time
}

// NewRegistry construye el registro de saldos.
func NewRegistry(
	txRunner TxRunner,
	retry RetryPolicy,
	balances repository.StockBalanceRepository,
	movements repository.StockMovementRepository,
	log *logger.Logger,
	maxPage int,
) *Registry {
	return &Registry{
		txRunner:  txRunner,
		retry:     retry,
		balances:  balances,
		movements: movements,
		log:       log,
		maxPage:   maxPage,
		now:       time.Now,
	}
}

// IsLowStock verdadero si el saldo está activo y current_stock < min_stock.
func IsLowStock(b *entity.StockBalance) bool {
	return b != nil && b.IsLowStock()
}

// GetOrCreateBalance devuelve el saldo de (bodega, producto); lo crea en cero si no existe.
// Dos llamadas concurrentes con la misma llave devuelven el mismo saldo.
func (r *Registry) GetOrCreateBalance(ctx context.Context, warehouseID, productID string) (*dto.BalanceResponse, error) {
	if warehouseID == "" {
		return nil, domain.NewValidationError("warehouse_id", "es requerido")
	}
	if productID == "" {
		return nil, domain.NewValidationError("product_id", "es requerido")
	}
	var bal *entity.StockBalance
	err := r.retry.Run(ctx, r.txRunner, func(repos Repos) error {
		b, err := GetOrCreateBalanceInTx(ctx, repos, warehouseID, productID, r.now())
		if err != nil {
			return err
		}
		bal = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := ToBalanceResponse(bal)
	return &out, nil
}

// GetOrCreateBalanceInTx variante para usar dentro de una transacción en curso.
func GetOrCreateBalanceInTx(ctx context.Context, repos Repos, warehouseID, productID string, now time.Time) (*entity.StockBalance, error) {
	existing, err := repos.Balances.GetByKey(ctx, warehouseID, productID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	// ON CONFLICT DO NOTHING + relectura: quien pierda la carrera recibe el saldo del ganador
	return repos.Balances.CreateIfNotExists(ctx, entity.NewStockBalance(uuid.New().String(), warehouseID, productID, now))
}

// UpdateThresholds fija min/max. max nil significa sin tope.
func (r *Registry) UpdateThresholds(ctx context.Context, balanceID string, minStock int64, maxStock *int64) (*dto.BalanceResponse, error) {
	if minStock < 0 {
		return nil, domain.ErrThresholdInvalid
	}
	if maxStock != nil && (*maxStock < 0 || minStock > *maxStock) {
		return nil, domain.ErrThresholdInvalid
	}
	var bal *entity.StockBalance
	err := r.retry.Run(ctx, r.txRunner, func(repos Repos) error {
		b, err := repos.Balances.GetForUpdate(ctx, balanceID)
		if err != nil {
			return err
		}
		if b == nil {
			return domain.ErrNotFound
		}
		now := r.now()
		if err := repos.Balances.UpdateThresholds(ctx, balanceID, minStock, maxStock, now); err != nil {
			return err
		}
		b.MinStock = minStock
		b.MaxStock = maxStock
		b.UpdatedAt = now
		bal = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info().Str("balance_id", balanceID).Int64("min_stock", minStock).Msg("umbrales actualizados")
	out := ToBalanceResponse(bal)
	return &out, nil
}

// SetActive activa o desactiva un saldo. Los saldos no se eliminan.
func (r *Registry) SetActive(ctx context.Context, balanceID string, active bool) (*dto.BalanceResponse, error) {
	var bal *entity.StockBalance
	err := r.retry.Run(ctx, r.txRunner, func(repos Repos) error {
		b, err := repos.Balances.GetForUpdate(ctx, balanceID)
		if err != nil {
			return err
		}
		if b == nil {
			return domain.ErrNotFound
		}
		now := r.now()
		if err := repos.Balances.SetActive(ctx, balanceID, active, now); err != nil {
			return err
		}
		b.Active = active
		b.UpdatedAt = now
		bal = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := ToBalanceResponse(bal)
	return &out, nil
}

// ListAggregateByProduct stock total por producto sumando todas las bodegas.
func (r *Registry) ListAggregateByProduct(ctx context.Context, page dto.PageRequest) (*dto.ProductAggregateListResponse, error) {
	page.DefaultPage(r.maxPage)
	list, total, err := r.balances.AggregateByProduct(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductAggregateResponse, 0, len(list))
	for _, a := range list {
		items = append(items, dto.ProductAggregateResponse{
			ProductID:      a.ProductID,
			TotalStock:     a.TotalStock,
			WarehouseCount: a.WarehouseCount,
			HasLowStock:    a.HasLowStock,
		})
	}
	return &dto.ProductAggregateListResponse{
		Items: items,
		Page:  dto.NewPageResponse(page.Limit, page.Offset, len(items), total),
	}, nil
}

// ListByWarehouse saldos de una bodega.
func (r *Registry) ListByWarehouse(ctx context.Context, warehouseID string, page dto.PageRequest) (*dto.BalanceListResponse, error) {
	page.DefaultPage(r.maxPage)
	list, total, err := r.balances.ListByWarehouse(ctx, warehouseID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.BalanceResponse, 0, len(list))
	for _, b := range list {
		items = append(items, ToBalanceResponse(b))
	}
	return &dto.BalanceListResponse{
		Items: items,
		Page:  dto.NewPageResponse(page.Limit, page.Offset, len(items), total),
	}, nil
}

// ListByProduct saldos de un producto en todas las bodegas.
func (r *Registry) ListByProduct(ctx context.Context, productID string) ([]dto.BalanceResponse, error) {
	list, err := r.balances.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.BalanceResponse, 0, len(list))
	for _, b := range list {
		items = append(items, ToBalanceResponse(b))
	}
	return items, nil
}

// ProductStockDetail total, saldos por bodega y últimos movimientos de un producto.
func (r *Registry) ProductStockDetail(ctx context.Context, productID string) (*dto.ProductStockDetailResponse, error) {
	balances, err := r.balances.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(balances) == 0 {
		return nil, domain.ErrNotFound
	}
	movs, err := r.movements.ListRecentByProduct(ctx, productID, recentMovementsLimit)
	if err != nil {
		return nil, err
	}
	out := &dto.ProductStockDetailResponse{
		ProductID:       productID,
		Balances:        make([]dto.BalanceResponse, 0, len(balances)),
		RecentMovements: make([]dto.MovementResponse, 0, len(movs)),
	}
	for _, b := range balances {
		out.TotalStock += b.CurrentStock
		out.Balances = append(out.Balances, ToBalanceResponse(b))
	}
	for _, m := range movs {
		out.RecentMovements = append(out.RecentMovements, ToMovementResponse(m))
	}
	return out, nil
}
