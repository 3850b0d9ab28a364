package receiving

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// UseCase traduce la entrega de una orden de compra en movimientos IN del libro.
type UseCase struct {
	txRunner inventory.TxRunner
	orders   repository.PurchaseOrderRepository
	ledger   *inventory.Ledger
	retry    inventory.RetryPolicy
	log      *logger.Logger
	now      func() time.Time
}

// NewUseCase construye el adaptador de recepción.
func NewUseCase(
	txRunner inventory.TxRunner,
	orders repository.PurchaseOrderRepository,
	ledger *inventory.Ledger,
	retry inventory.RetryPolicy,
	log *logger.Logger,
) *UseCase {
	return &UseCase{
		txRunner: txRunner,
		orders:   orders,
		ledger:   ledger,
		retry:    retry,
		log:      log,
		now:      time.Now,
	}
}

// OnOrderDelivered registra un IN por línea recibida contra el saldo (bodega de entrega, producto)
// y marca la orden como entregada. Todo o nada: si una línea falla no queda ningún movimiento
// ni cambia el estado de la orden. Las líneas ya registradas en una entrega previa se omiten;
// si todas lo estaban devuelve domain.ErrDuplicateMovement.
func (uc *UseCase) OnOrderDelivered(ctx context.Context, orderID string, lines []entity.ReceiptLine, actorID string) (*dto.OrderDeliveredResponse, error) {
	order, err := uc.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	if err := validateLines(order, lines); err != nil {
		return nil, err
	}

	var movements []*entity.StockMovement
	err = uc.retry.Run(ctx, uc.txRunner, func(repos inventory.Repos) error {
		// Se reinicia en cada intento: un intento fallido no deja nada escrito
		movements = movements[:0]
		now := uc.now()
		refID := order.ID
		for _, rl := range lines {
			ol := order.Line(rl.LineID)
			key := order.ID + ":" + ol.ID

			dup, err := repos.Movements.Exists(ctx, repository.IdempotencyScope{
				ReferenceType:  entity.ReferencePurchaseOrder,
				ReferenceID:    refID,
				Direction:      entity.DirectionIncrease,
				IdempotencyKey: key,
			})
			if err != nil {
				return err
			}
			if dup {
				continue
			}

			bal, err := inventory.GetOrCreateBalanceInTx(ctx, repos, order.DeliveryWarehouseID, ol.ProductID, now)
			if err != nil {
				return err
			}
			mov, err := uc.ledger.RecordInTx(ctx, repos, inventory.MovementInput{
				BalanceID:      bal.ID,
				MovementType:   entity.MovementTypeIn,
				Quantity:       rl.ReceivedQuantity,
				ReferenceType:  entity.ReferencePurchaseOrder,
				ReferenceID:    &refID,
				IdempotencyKey: key,
				Notes:          fmt.Sprintf("Recepción orden %s", order.OrderCode),
				ActorID:        actorID,
			}, now)
			if err != nil {
				return fmt.Errorf("línea %s: %w", ol.ID, err)
			}
			movements = append(movements, mov)
		}
		if len(movements) == 0 {
			return domain.ErrDuplicateMovement
		}
		// La orden solo avanza cuando todas las líneas quedaron registradas
		return repos.Orders.MarkDelivered(ctx, order.ID, now)
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("order_id", order.ID).Msg("recepción de orden no aplicada")
		return nil, err
	}

	uc.log.Info().
		Str("order_id", order.ID).
		Str("warehouse_id", order.DeliveryWarehouseID).
		Int("movements", len(movements)).
		Msg("orden recibida")

	out := &dto.OrderDeliveredResponse{
		OrderID:   order.ID,
		Movements: make([]dto.MovementResponse, 0, len(movements)),
	}
	for _, m := range movements {
		out.Movements = append(out.Movements, inventory.ToMovementResponse(m))
	}
	return out, nil
}

// validateLines revisa todas las líneas antes de escribir nada.
func validateLines(order *entity.PurchaseOrder, lines []entity.ReceiptLine) error {
	if len(lines) == 0 {
		return domain.NewValidationError("lines", "la entrega no tiene líneas")
	}
	if order.DeliveryWarehouseID == "" {
		return domain.NewValidationError("delivery_warehouse_id", "la orden no tiene bodega de entrega")
	}
	seen := make(map[string]struct{}, len(lines))
	for _, rl := range lines {
		ol := order.Line(rl.LineID)
		if ol == nil {
			return domain.NewValidationError("line_id", fmt.Sprintf("%s no pertenece a la orden", rl.LineID))
		}
		if _, ok := seen[rl.LineID]; ok {
			return domain.NewValidationError("line_id", fmt.Sprintf("%s repetida", rl.LineID))
		}
		seen[rl.LineID] = struct{}{}
		if rl.ReceivedQuantity <= 0 || rl.ReceivedQuantity > ol.OrderedQuantity {
			return domain.NewValidationError("received_quantity",
				fmt.Sprintf("línea %s: debe estar entre 1 y %d", rl.LineID, ol.OrderedQuantity))
		}
	}
	return nil
}
