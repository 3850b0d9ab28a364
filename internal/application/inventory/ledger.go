package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Ledger registra movimientos en el libro de stock (append-only) y actualiza el saldo
// referenciado en la misma transacción, con bloqueo de fila (SELECT FOR UPDATE).
type Ledger struct {
	txRunner  TxRunner
	retry     RetryPolicy
	balances  repository.StockBalanceRepository
	movements repository.StockMovementRepository
	log       *logger.Logger
	maxPage   int
	now       func() time.Time
}

// NewLedger construye el libro de stock.
func NewLedger(
	txRunner TxRunner,
	retry RetryPolicy,
	balances repository.StockBalanceRepository,
	movements repository.StockMovementRepository,
	log *logger.Logger,
	maxPage int,
) *Ledger {
	return &Ledger{
		txRunner:  txRunner,
		retry:     retry,
		balances:  balances,
		movements: movements,
		log:       log,
		maxPage:   maxPage,
		now:       time.Now,
	}
}

// MovementInput entrada para registrar un movimiento.
// Direction solo es obligatoria para TRANSFER y ADJUSTMENT; IN suma y OUT resta.
type MovementInput struct {
	BalanceID      string
	MovementType   entity.MovementType
	Direction      entity.Direction
	Quantity       int64
	ReferenceType  entity.ReferenceType
	ReferenceID    *string
	IdempotencyKey string
	Notes          string
	ActorID        string
}

func (in MovementInput) validate() (entity.Direction, error) {
	if in.Quantity <= 0 {
		return "", domain.ErrInvalidQuantity
	}
	if in.BalanceID == "" {
		return "", domain.NewValidationError("balance_id", "es requerido")
	}
	if !in.MovementType.Valid() {
		return "", domain.NewValidationError("movement_type", "desconocido: "+string(in.MovementType))
	}
	dir, ok := entity.ResolveDirection(in.MovementType, in.Direction)
	if !ok {
		return "", domain.NewValidationError("direction", "no corresponde al tipo "+string(in.MovementType))
	}
	if !in.ReferenceType.Valid() {
		return "", domain.NewValidationError("reference_type", "desconocido: "+string(in.ReferenceType))
	}
	return dir, nil
}

// RecordMovement crea el movimiento y ajusta current_stock por su delta con signo, atómicamente.
// Errores: ErrInvalidQuantity, ErrInsufficientStock, ErrDuplicateMovement, ErrNotFound.
func (l *Ledger) RecordMovement(ctx context.Context, in MovementInput) (*dto.MovementResponse, error) {
	// Validar antes de abrir la transacción
	if _, err := in.validate(); err != nil {
		return nil, err
	}
	var mov *entity.StockMovement
	err := l.retry.Run(ctx, l.txRunner, func(repos Repos) error {
		m, err := l.RecordInTx(ctx, repos, in, l.now())
		if err != nil {
			return err
		}
		mov = m
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrDuplicateMovement) && !errors.Is(err, domain.ErrInsufficientStock) {
			l.log.Error().Err(err).Str("balance_id", in.BalanceID).Msg("registrar movimiento")
		}
		return nil, err
	}
	l.log.Info().
		Int64("movement_id", mov.ID).
		Str("balance_id", mov.BalanceID).
		Str("type", string(mov.MovementType)).
		Int64("delta", mov.SignedDelta).
		Msg("movimiento registrado")
	out := ToMovementResponse(mov)
	return &out, nil
}

// RecordInTx registra un movimiento usando los repositorios de la transacción del caller.
// Lo usan el traslado y la recepción para que varios movimientos y el cambio de estado
// compartan una sola transacción.
func (l *Ledger) RecordInTx(ctx context.Context, repos Repos, in MovementInput, now time.Time) (*entity.StockMovement, error) {
	dir, err := in.validate()
	if err != nil {
		return nil, err
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = uuid.New().String()
	}

	// Bloquea la fila del saldo: dos movimientos sobre el mismo saldo se serializan
	bal, err := repos.Balances.GetForUpdate(ctx, in.BalanceID)
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return nil, domain.ErrNotFound
	}

	scope := repository.IdempotencyScope{
		ReferenceType:  in.ReferenceType,
		Direction:      dir,
		IdempotencyKey: in.IdempotencyKey,
	}
	if in.ReferenceID != nil {
		scope.ReferenceID = *in.ReferenceID
	}
	exists, err := repos.Movements.Exists(ctx, scope)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateMovement
	}

	delta := entity.SignedDelta(dir, in.Quantity)
	if delta < 0 && bal.Available() < in.Quantity {
		return nil, &domain.InsufficientStockError{
			BalanceID: bal.ID,
			ProductID: bal.ProductID,
			Available: bal.Available(),
			Requested: in.Quantity,
		}
	}

	mov := &entity.StockMovement{
		BalanceID:      bal.ID,
		MovementType:   in.MovementType,
		Direction:      dir,
		Quantity:       in.Quantity,
		SignedDelta:    delta,
		ReferenceType:  in.ReferenceType,
		ReferenceID:    in.ReferenceID,
		IdempotencyKey: in.IdempotencyKey,
		Notes:          in.Notes,
		ActorID:        in.ActorID,
		CreatedAt:      now,
	}
	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	// Incremento atómico (sin read-modify-write)
	if _, err := repos.Balances.ApplyDelta(ctx, bal.ID, delta, now); err != nil {
		return nil, err
	}
	return mov, nil
}

// GetBalance devuelve el snapshot del saldo (actual, reservado, disponible).
func (l *Ledger) GetBalance(ctx context.Context, balanceID string) (*dto.BalanceResponse, error) {
	bal, err := l.balances.GetByID(ctx, balanceID)
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return nil, domain.ErrNotFound
	}
	out := ToBalanceResponse(bal)
	return &out, nil
}

// ListMovements lista movimientos en orden created_at descendente.
// Con page.Token se continúa desde el cursor anterior (reiniciable); sin él se usa limit/offset.
func (l *Ledger) ListMovements(ctx context.Context, filter repository.MovementFilter, page dto.PageRequest) (*dto.MovementListResponse, error) {
	page.DefaultPage(l.maxPage)
	if filter.ReferenceType != "" && !filter.ReferenceType.Valid() {
		return nil, domain.NewValidationError("reference_type", "desconocido: "+string(filter.ReferenceType))
	}
	var after *repository.MovementCursor
	if page.Token != "" {
		c, err := decodeCursor(page.Token)
		if err != nil {
			return nil, err
		}
		after = c
		page.Offset = 0
	}

	// Pedimos uno extra para saber si hay más
	list, err := l.movements.List(ctx, filter, after, page.Limit+1, page.Offset)
	if err != nil {
		return nil, err
	}
	total, err := l.movements.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	hasMore := len(list) > page.Limit
	if hasMore {
		list = list[:page.Limit]
	}

	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, ToMovementResponse(m))
	}
	resp := &dto.MovementListResponse{
		Items: items,
		Page: dto.PageResponse{
			Limit:   page.Limit,
			Offset:  page.Offset,
			Total:   total,
			HasMore: hasMore,
		},
	}
	if hasMore && len(list) > 0 {
		last := list[len(list)-1]
		resp.Page.NextToken = encodeCursor(repository.MovementCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return resp, nil
}

// ReplayBalance reconstruye el saldo sumando sus movimientos y lo compara con el valor cacheado.
func (l *Ledger) ReplayBalance(ctx context.Context, balanceID string) (*dto.ReplayResponse, error) {
	var out *dto.ReplayResponse
	err := l.retry.Run(ctx, l.txRunner, func(repos Repos) error {
		// Bloqueo para que ningún movimiento concurrente se cuele entre ambas lecturas
		bal, err := repos.Balances.GetForUpdate(ctx, balanceID)
		if err != nil {
			return err
		}
		if bal == nil {
			return domain.ErrNotFound
		}
		sum, count, err := repos.Movements.SumByBalance(ctx, balanceID)
		if err != nil {
			return err
		}
		out = &dto.ReplayResponse{
			BalanceID:     bal.ID,
			CachedStock:   bal.CurrentStock,
			ReplayedStock: sum,
			MovementCount: count,
			Consistent:    sum == bal.CurrentStock,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !out.Consistent {
		l.log.Warn().
			Str("balance_id", balanceID).
			Int64("cached", out.CachedStock).
			Int64("replayed", out.ReplayedStock).
			Msg("saldo inconsistente con el libro")
	}
	return out, nil
}

// ToBalanceResponse convierte la entidad al DTO.
func ToBalanceResponse(b *entity.StockBalance) dto.BalanceResponse {
	return dto.BalanceResponse{
		ID:               b.ID,
		WarehouseID:      b.WarehouseID,
		ProductID:        b.ProductID,
		CurrentStock:     b.CurrentStock,
		ReservedQuantity: b.ReservedQuantity,
		Available:        b.Available(),
		MinStock:         b.MinStock,
		MaxStock:         b.MaxStock,
		LowStock:         IsLowStock(b),
		Active:           b.Active,
		LastMovementAt:   b.LastMovementAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

// ToMovementResponse convierte la entidad al DTO.
func ToMovementResponse(m *entity.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:             m.ID,
		BalanceID:      m.BalanceID,
		MovementType:   string(m.MovementType),
		Direction:      string(m.Direction),
		Quantity:       m.Quantity,
		SignedDelta:    m.SignedDelta,
		ReferenceType:  string(m.ReferenceType),
		ReferenceID:    m.ReferenceID,
		IdempotencyKey: m.IdempotencyKey,
		Notes:          m.Notes,
		ActorID:        m.ActorID,
		CreatedAt:      m.CreatedAt,
	}
}
