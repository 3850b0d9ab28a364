package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `m.id, m.balance_id, m.movement_type, m.direction, m.quantity, m.signed_delta,
	m.reference_type, m.reference_id, m.idempotency_key, m.notes, m.actor_id, m.created_at`

// StockMovementRepo libro de movimientos. La tabla rechaza UPDATE y DELETE por trigger.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador del libro. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

func scanMovement(row scanner) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var mt, dir, rt string
	err := row.Scan(
		&m.ID, &m.BalanceID, &mt, &dir, &m.Quantity, &m.SignedDelta,
		&rt, &m.ReferenceID, &m.IdempotencyKey, &m.Notes, &m.ActorID, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.MovementType = entity.MovementType(mt)
	m.Direction = entity.Direction(dir)
	m.ReferenceType = entity.ReferenceType(rt)
	return &m, nil
}

// Create inserta el movimiento y asigna su ID.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (balance_id, movement_type, direction, quantity, signed_delta,
			reference_type, reference_id, idempotency_key, notes, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		m.BalanceID, string(m.MovementType), string(m.Direction), m.Quantity, m.SignedDelta,
		string(m.ReferenceType), m.ReferenceID, m.IdempotencyKey, m.Notes, m.ActorID, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateMovement
		}
		return wrap("insert movement", err)
	}
	return nil
}

// Exists indica si la clave de idempotencia ya se usó en su ámbito.
func (r *StockMovementRepo) Exists(ctx context.Context, s repository.IdempotencyScope) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM stock_movements
			WHERE reference_type = $1 AND COALESCE(reference_id, '') = $2 AND direction = $3 AND idempotency_key = $4
		)`, string(s.ReferenceType), s.ReferenceID, string(s.Direction), s.IdempotencyKey).Scan(&ok)
	if err != nil {
		return false, wrap("exists movement", err)
	}
	return ok, nil
}

// movementWhere arma el WHERE de los filtros opcionales.
func movementWhere(f repository.MovementFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.BalanceID != "" {
		add("m.balance_id = $%d", f.BalanceID)
	}
	if f.ReferenceType != "" {
		add("m.reference_type = $%d", string(f.ReferenceType))
	}
	if f.ReferenceID != "" {
		add("m.reference_id = $%d", f.ReferenceID)
	}
	if len(conds) == 0 {
		return "TRUE", args
	}
	return strings.Join(conds, " AND "), args
}

// List movimientos created_at DESC, id DESC; con cursor usa keyset en vez de offset.
func (r *StockMovementRepo) List(ctx context.Context, f repository.MovementFilter, after *repository.MovementCursor, limit, offset int) ([]*entity.StockMovement, error) {
	where, args := movementWhere(f)
	if after != nil {
		args = append(args, after.CreatedAt, after.ID)
		where += fmt.Sprintf(" AND (m.created_at, m.id) < ($%d, $%d)", len(args)-1, len(args))
		offset = 0
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM stock_movements m WHERE %s
		ORDER BY m.created_at DESC, m.id DESC LIMIT $%d OFFSET $%d`,
		movementColumns, where, len(args)-1, len(args))
	return r.list(ctx, "list movements", query, args...)
}

func (r *StockMovementRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()
	var out []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}

// Count total de movimientos que cumplen el filtro.
func (r *StockMovementRepo) Count(ctx context.Context, f repository.MovementFilter) (int, error) {
	where, args := movementWhere(f)
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements m WHERE `+where, args...).Scan(&n); err != nil {
		return 0, wrap("count movements", err)
	}
	return n, nil
}

// SumByBalance Σ signed_delta del saldo (replay del libro).
func (r *StockMovementRepo) SumByBalance(ctx context.Context, balanceID string) (int64, int, error) {
	var sum int64
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(signed_delta), 0), COUNT(*) FROM stock_movements WHERE balance_id = $1`,
		balanceID).Scan(&sum, &n)
	if err != nil {
		return 0, 0, wrap("sum movements", err)
	}
	return sum, n, nil
}

// ListRecentByProduct últimos movimientos de un producto en cualquier bodega.
func (r *StockMovementRepo) ListRecentByProduct(ctx context.Context, productID string, limit int) ([]*entity.StockMovement, error) {
	return r.list(ctx, "list recent movements", `
		SELECT `+movementColumns+`
		FROM stock_movements m JOIN stock_balances b ON b.id = m.balance_id
		WHERE b.product_id = $1
		ORDER BY m.created_at DESC, m.id DESC LIMIT $2`, productID, limit)
}
