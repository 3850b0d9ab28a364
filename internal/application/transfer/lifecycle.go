package transfer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Approve PENDING -> APPROVED.
func (uc *UseCase) Approve(ctx context.Context, transferID, approverID string) (*dto.TransferResponse, error) {
	return uc.mutate(ctx, transferID, "approve", func(_ inventory.Repos, t *entity.AssetTransfer, _ time.Time) error {
		if err := guard("approve", t, entity.TransferApproved); err != nil {
			return err
		}
		t.Status = entity.TransferApproved
		t.ApprovedByUserID = approverID
		return nil
	})
}

// Reject PENDING -> REJECTED. El motivo queda en las notas.
func (uc *UseCase) Reject(ctx context.Context, transferID, approverID, reason string) (*dto.TransferResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "es requerido")
	}
	return uc.mutate(ctx, transferID, "reject", func(_ inventory.Repos, t *entity.AssetTransfer, _ time.Time) error {
		if err := guard("reject", t, entity.TransferRejected); err != nil {
			return err
		}
		t.Status = entity.TransferRejected
		t.ApprovedByUserID = approverID
		t.AppendNote("Motivo de rechazo: " + reason)
		return nil
	})
}

// Cancel {PENDING, APPROVED} -> CANCELLED. Nunca hubo movimiento de stock.
func (uc *UseCase) Cancel(ctx context.Context, transferID, reason string) (*dto.TransferResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "es requerido")
	}
	return uc.mutate(ctx, transferID, "cancel", func(_ inventory.Repos, t *entity.AssetTransfer, _ time.Time) error {
		if err := guard("cancel", t, entity.TransferCancelled); err != nil {
			return err
		}
		t.Status = entity.TransferCancelled
		t.AppendNote("Motivo de cancelación: " + reason)
		return nil
	})
}

// StartPreparing APPROVED -> PREPARING.
func (uc *UseCase) StartPreparing(ctx context.Context, transferID string) (*dto.TransferResponse, error) {
	return uc.mutate(ctx, transferID, "prepare", func(_ inventory.Repos, t *entity.AssetTransfer, _ time.Time) error {
		if err := guard("prepare", t, entity.TransferPreparing); err != nil {
			return err
		}
		t.Status = entity.TransferPreparing
		return nil
	})
}

// UpdateItemQuantity fija la cantidad transferida de una línea.
// En PREPARING el tope es lo solicitado; en IN_TRANSIT es lo ya despachado (el OUT del libro),
// así la recepción nunca supera lo que salió del origen.
func (uc *UseCase) UpdateItemQuantity(ctx context.Context, transferID, itemID string, quantity int64) (*dto.TransferResponse, error) {
	return uc.mutate(ctx, transferID, "update_item", func(repos inventory.Repos, t *entity.AssetTransfer, _ time.Time) error {
		if t.Status != entity.TransferPreparing && t.Status != entity.TransferInTransit {
			return &domain.TransitionError{Op: "update_item", From: string(t.Status), To: string(t.Status)}
		}
		it := t.Item(itemID)
		if it == nil {
			return domain.ErrNotFound
		}
		limit := it.RequestedQuantity
		if t.Status == entity.TransferInTransit {
			shipped, err := shippedQuantity(ctx, repos, t, it)
			if err != nil {
				return err
			}
			limit = shipped
		}
		if quantity < 0 || quantity > limit {
			return domain.NewValidationError("transferred_quantity",
				fmt.Sprintf("debe estar entre 0 y %d", limit))
		}
		q := quantity
		it.TransferredQuantity = &q
		return nil
	})
}

func outKey(t *entity.AssetTransfer, it *entity.TransferItem) string {
	return t.ID + ":" + it.ID + ":OUT"
}

func inKey(t *entity.AssetTransfer, it *entity.TransferItem) string {
	return t.ID + ":" + it.ID + ":IN"
}

// shippedQuantity cantidad que salió del origen para la línea; 0 si no tuvo OUT.
func shippedQuantity(ctx context.Context, repos inventory.Repos, t *entity.AssetTransfer, it *entity.TransferItem) (int64, error) {
	movs, err := repos.Movements.List(ctx, repository.MovementFilter{
		ReferenceType: entity.ReferenceTransfer,
		ReferenceID:   t.ID,
	}, nil, 2*len(t.Items)+1, 0)
	if err != nil {
		return 0, err
	}
	key := outKey(t, it)
	for _, m := range movs {
		if m.IdempotencyKey == key && m.Direction == entity.DirectionDecrease {
			return m.Quantity, nil
		}
	}
	return 0, nil
}

// StartTransit PREPARING -> IN_TRANSIT. Descuenta el stock de la bodega origen (OUT por línea).
// Valida disponibilidad de todas las líneas antes de escribir; si una no alcanza,
// no se registra ningún movimiento y el traslado sigue en PREPARING.
func (uc *UseCase) StartTransit(ctx context.Context, transferID, deliveredBy string) (*dto.TransferResponse, error) {
	return uc.mutate(ctx, transferID, "start_transit", func(repos inventory.Repos, t *entity.AssetTransfer, now time.Time) error {
		if err := guard("start_transit", t, entity.TransferInTransit); err != nil {
			return err
		}
		for _, it := range t.Items {
			if it.TransferredQuantity == nil {
				q := it.RequestedQuantity
				it.TransferredQuantity = &q
			}
		}

		// Orden determinista por producto: dos despachos concurrentes bloquean en el mismo orden
		items := make([]*entity.TransferItem, 0, len(t.Items))
		for _, it := range t.Items {
			if *it.TransferredQuantity > 0 {
				items = append(items, it)
			}
		}
		if len(items) == 0 {
			return domain.NewValidationError("items", "todas las cantidades a despachar son cero")
		}
		sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

		balanceIDs := make(map[string]string, len(items))
		for _, it := range items {
			bal, err := repos.Balances.GetByKey(ctx, t.SourceWarehouseID, it.ProductID)
			if err != nil {
				return err
			}
			if bal == nil {
				return &domain.InsufficientStockError{ProductID: it.ProductID, Requested: *it.TransferredQuantity}
			}
			locked, err := repos.Balances.GetForUpdate(ctx, bal.ID)
			if err != nil {
				return err
			}
			if locked == nil {
				return domain.ErrNotFound
			}
			if locked.Available() < *it.TransferredQuantity {
				return &domain.InsufficientStockError{
					BalanceID: locked.ID,
					ProductID: locked.ProductID,
					Available: locked.Available(),
					Requested: *it.TransferredQuantity,
				}
			}
			balanceIDs[it.ID] = locked.ID
		}

		refID := t.ID
		for _, it := range items {
			_, err := uc.ledger.RecordInTx(ctx, repos, inventory.MovementInput{
				BalanceID:      balanceIDs[it.ID],
				MovementType:   entity.MovementTypeOut,
				Quantity:       *it.TransferredQuantity,
				ReferenceType:  entity.ReferenceTransfer,
				ReferenceID:    &refID,
				IdempotencyKey: outKey(t, it),
				Notes:          "Despacho " + t.TransferCode,
				ActorID:        deliveredBy,
			}, now)
			if err != nil {
				return err
			}
		}

		t.Status = entity.TransferInTransit
		t.DeliveredByUserID = deliveredBy
		t.ActualTransferDate = &now
		return nil
	})
}

// MarkDelivered IN_TRANSIT -> DELIVERED. Estado intermedio de observación, sin efecto en el libro.
func (uc *UseCase) MarkDelivered(ctx context.Context, transferID string) (*dto.TransferResponse, error) {
	return uc.mutate(ctx, transferID, "deliver", func(_ inventory.Repos, t *entity.AssetTransfer, _ time.Time) error {
		if err := guard("deliver", t, entity.TransferDelivered); err != nil {
			return err
		}
		t.Status = entity.TransferDelivered
		return nil
	})
}

// Complete {IN_TRANSIT, DELIVERED} -> COMPLETED | PARTIALLY_COMPLETED.
// Registra un IN por línea en el destino; queda COMPLETED si se despachó todo lo solicitado.
func (uc *UseCase) Complete(ctx context.Context, transferID, receivedBy string) (*dto.TransferResponse, error) {
	return uc.mutate(ctx, transferID, "complete", func(repos inventory.Repos, t *entity.AssetTransfer, now time.Time) error {
		if err := guard("complete", t, entity.TransferCompleted); err != nil {
			return err
		}
		requested, transferred := t.Totals()
		if transferred <= 0 {
			return domain.NewValidationError("items", "no hay cantidades despachadas para recibir")
		}
		target := entity.TransferCompleted
		if transferred < requested {
			target = entity.TransferPartiallyCompleted
		}

		refID := t.ID
		for _, it := range t.Items {
			if it.TransferredQuantity == nil || *it.TransferredQuantity == 0 {
				continue
			}
			bal, err := inventory.GetOrCreateBalanceInTx(ctx, repos, t.TargetLocationID, it.ProductID, now)
			if err != nil {
				return err
			}
			_, err = uc.ledger.RecordInTx(ctx, repos, inventory.MovementInput{
				BalanceID:      bal.ID,
				MovementType:   entity.MovementTypeIn,
				Quantity:       *it.TransferredQuantity,
				ReferenceType:  entity.ReferenceTransfer,
				ReferenceID:    &refID,
				IdempotencyKey: inKey(t, it),
				Notes:          "Recepción " + t.TransferCode,
				ActorID:        receivedBy,
			}, now)
			if err != nil {
				return err
			}
		}

		t.Status = target
		t.ReceivedByUserID = receivedBy
		return nil
	})
}
