package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementFilter filtros opcionales para listar movimientos (campos vacíos = sin filtro).
type MovementFilter struct {
	BalanceID     string
	ReferenceType entity.ReferenceType
	ReferenceID   string
}

// MovementCursor posición de keyset (created_at DESC, id DESC).
type MovementCursor struct {
	CreatedAt time.Time
	ID        int64
}

// IdempotencyScope clave única de un movimiento: (tipo de referencia, referencia, dirección, clave).
type IdempotencyScope struct {
	ReferenceType  entity.ReferenceType
	ReferenceID    string
	Direction      entity.Direction
	IdempotencyKey string
}

// StockMovementRepository puerto del libro de movimientos. Solo inserta y lee: sin Update ni Delete.
type StockMovementRepository interface {
	// Create persiste el movimiento y asigna su ID. Devuelve domain.ErrDuplicateMovement si la
	// clave de idempotencia ya existe en su ámbito.
	Create(ctx context.Context, movement *entity.StockMovement) error
	Exists(ctx context.Context, scope IdempotencyScope) (bool, error)
	// List devuelve movimientos en orden created_at DESC, id DESC. Si after != nil se ignora offset.
	List(ctx context.Context, filter MovementFilter, after *MovementCursor, limit, offset int) ([]*entity.StockMovement, error)
	Count(ctx context.Context, filter MovementFilter) (int, error)
	// SumByBalance suma de signed_delta y cantidad de movimientos del saldo.
	SumByBalance(ctx context.Context, balanceID string) (sum int64, count int, err error)
	ListRecentByProduct(ctx context.Context, productID string, limit int) ([]*entity.StockMovement, error)
}
