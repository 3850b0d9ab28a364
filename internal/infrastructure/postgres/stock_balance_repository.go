package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockBalanceRepository = (*StockBalanceRepo)(nil)

const balanceColumns = `id, warehouse_id, product_id, current_stock, reserved_quantity, min_stock, max_stock,
	last_movement_at, active, version, created_at, updated_at`

// StockBalanceRepo implementación de StockBalanceRepository sobre PostgreSQL (usable con pool o tx).
type StockBalanceRepo struct {
	q Querier
}

// NewStockBalanceRepository construye el adaptador de saldos. Pasar pool o tx (Querier).
func NewStockBalanceRepository(q Querier) *StockBalanceRepo {
	return &StockBalanceRepo{q: q}
}

func scanBalance(row scanner) (*entity.StockBalance, error) {
	var b entity.StockBalance
	err := row.Scan(
		&b.ID, &b.WarehouseID, &b.ProductID, &b.CurrentStock, &b.ReservedQuantity, &b.MinStock, &b.MaxStock,
		&b.LastMovementAt, &b.Active, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *StockBalanceRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.StockBalance, error) {
	b, err := scanBalance(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap(op, err)
	}
	return b, nil
}

func (r *StockBalanceRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockBalance, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()
	var out []*entity.StockBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}

func (r *StockBalanceRepo) count(ctx context.Context, op, query string, args ...any) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrap(op, err)
	}
	return n, nil
}

// GetByID obtiene un saldo por ID.
func (r *StockBalanceRepo) GetByID(ctx context.Context, id string) (*entity.StockBalance, error) {
	return r.getOne(ctx, "get balance",
		`SELECT `+balanceColumns+` FROM stock_balances WHERE id = $1`, id)
}

// GetByKey obtiene el saldo de (bodega, producto).
func (r *StockBalanceRepo) GetByKey(ctx context.Context, warehouseID, productID string) (*entity.StockBalance, error) {
	return r.getOne(ctx, "get balance by key",
		`SELECT `+balanceColumns+` FROM stock_balances WHERE warehouse_id = $1 AND product_id = $2`,
		warehouseID, productID)
}

// GetForUpdate obtiene el saldo y bloquea la fila para update (SELECT FOR UPDATE).
func (r *StockBalanceRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockBalance, error) {
	return r.getOne(ctx, "get balance for update",
		`SELECT `+balanceColumns+` FROM stock_balances WHERE id = $1 FOR UPDATE`, id)
}

// CreateIfNotExists inserta el saldo; si otro lo creó primero devuelve el existente.
func (r *StockBalanceRepo) CreateIfNotExists(ctx context.Context, b *entity.StockBalance) (*entity.StockBalance, error) {
	query := `
		INSERT INTO stock_balances (id, warehouse_id, product_id, current_stock, reserved_quantity,
			min_stock, max_stock, active, version, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, $4, $5, $6, 1, $7, $7)
		ON CONFLICT (warehouse_id, product_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, query,
		b.ID, b.WarehouseID, b.ProductID, b.MinStock, b.MaxStock, b.Active, b.CreatedAt,
	); err != nil {
		return nil, wrap("insert balance", err)
	}
	out, err := r.GetByKey(ctx, b.WarehouseID, b.ProductID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("insert balance %s/%s: %w", b.WarehouseID, b.ProductID, domain.ErrConflict)
	}
	return out, nil
}

// ApplyDelta suma delta a current_stock en una sola sentencia (sin read-modify-write).
func (r *StockBalanceRepo) ApplyDelta(ctx context.Context, id string, delta int64, at time.Time) (*entity.StockBalance, error) {
	query := `
		UPDATE stock_balances
		SET current_stock = current_stock + $2, last_movement_at = $3, updated_at = $3, version = version + 1
		WHERE id = $1 AND current_stock + $2 >= 0 AND current_stock + $2 >= reserved_quantity
		RETURNING ` + balanceColumns
	b, err := scanBalance(r.q.QueryRow(ctx, query, id, delta, at))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) && !isCheckViolation(err) {
		return nil, wrap("apply delta", err)
	}
	cur, gerr := r.GetByID(ctx, id)
	if gerr != nil {
		return nil, gerr
	}
	if cur == nil {
		return nil, domain.ErrNotFound
	}
	return nil, &domain.InsufficientStockError{
		BalanceID: cur.ID,
		ProductID: cur.ProductID,
		Available: cur.Available(),
		Requested: -delta,
	}
}

// UpdateThresholds fija min/max del saldo.
func (r *StockBalanceRepo) UpdateThresholds(ctx context.Context, id string, minStock int64, maxStock *int64, at time.Time) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE stock_balances SET min_stock = $2, max_stock = $3, updated_at = $4, version = version + 1
		WHERE id = $1`, id, minStock, maxStock, at)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrThresholdInvalid
		}
		return wrap("update thresholds", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetActive activa o desactiva el saldo.
func (r *StockBalanceRepo) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE stock_balances SET active = $2, updated_at = $3, version = version + 1
		WHERE id = $1`, id, active, at)
	if err != nil {
		return wrap("set active", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByWarehouse saldos de una bodega con paginación.
func (r *StockBalanceRepo) ListByWarehouse(ctx context.Context, warehouseID string, limit, offset int) ([]*entity.StockBalance, int, error) {
	list, err := r.list(ctx, "list balances by warehouse",
		`SELECT `+balanceColumns+` FROM stock_balances WHERE warehouse_id = $1
		ORDER BY product_id LIMIT $2 OFFSET $3`, warehouseID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.count(ctx, "count balances by warehouse",
		`SELECT COUNT(*) FROM stock_balances WHERE warehouse_id = $1`, warehouseID)
	return list, total, err
}

// ListByProduct saldos de un producto en todas las bodegas.
func (r *StockBalanceRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.StockBalance, error) {
	return r.list(ctx, "list balances by product",
		`SELECT `+balanceColumns+` FROM stock_balances WHERE product_id = $1 ORDER BY warehouse_id`, productID)
}

// ListLowStock saldos activos bajo el mínimo, mayor déficit primero.
func (r *StockBalanceRepo) ListLowStock(ctx context.Context, limit, offset int) ([]*entity.StockBalance, int, error) {
	list, err := r.list(ctx, "list low stock",
		`SELECT `+balanceColumns+` FROM stock_balances
		WHERE active AND current_stock < min_stock
		ORDER BY (min_stock - current_stock) DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.count(ctx, "count low stock",
		`SELECT COUNT(*) FROM stock_balances WHERE active AND current_stock < min_stock`)
	return list, total, err
}

// AggregateByProduct stock total por producto.
func (r *StockBalanceRepo) AggregateByProduct(ctx context.Context, limit, offset int) ([]repository.ProductStockAggregate, int, error) {
	rows, err := r.q.Query(ctx, `
		SELECT product_id, COALESCE(SUM(current_stock), 0), COUNT(*),
			BOOL_OR(active AND current_stock < min_stock)
		FROM stock_balances
		GROUP BY product_id
		ORDER BY product_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, wrap("aggregate by product", err)
	}
	defer rows.Close()
	var out []repository.ProductStockAggregate
	for rows.Next() {
		var a repository.ProductStockAggregate
		if err := rows.Scan(&a.ProductID, &a.TotalStock, &a.WarehouseCount, &a.HasLowStock); err != nil {
			return nil, 0, fmt.Errorf("scan aggregate: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrap("aggregate by product", err)
	}
	total, err := r.count(ctx, "count products", `SELECT COUNT(DISTINCT product_id) FROM stock_balances`)
	return out, total, err
}
