package transfer

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// DispatchNoteRenderer genera la guía de despacho (PDF) de un traslado.
type DispatchNoteRenderer interface {
	Render(t *entity.AssetTransfer, source *entity.Warehouse) ([]byte, error)
}

// UseCase orquesta el ciclo de vida de los traslados y sus efectos en el libro de stock.
type UseCase struct {
	txRunner   inventory.TxRunner
	transfers  repository.AssetTransferRepository
	warehouses repository.WarehouseRepository
	ledger     *inventory.Ledger
	retry      inventory.RetryPolicy
	pdf        DispatchNoteRenderer
	log        *logger.Logger
	maxPage    int
	now        func() time.Time
	newCode    func(now time.Time) string
}

// NewUseCase construye el caso de uso de traslados.
func NewUseCase(
	txRunner inventory.TxRunner,
	transfers repository.AssetTransferRepository,
	warehouses repository.WarehouseRepository,
	ledger *inventory.Ledger,
	retry inventory.RetryPolicy,
	pdf DispatchNoteRenderer,
	log *logger.Logger,
	maxPage int,
) *UseCase {
	return &UseCase{
		txRunner:   txRunner,
		transfers:  transfers,
		warehouses: warehouses,
		ledger:     ledger,
		retry:      retry,
		pdf:        pdf,
		log:        log,
		maxPage:    maxPage,
		now:        time.Now,
		newCode:    GenerateCode,
	}
}

// mutateFn aplica la transición sobre el traslado ya bloqueado.
type mutateFn func(repos inventory.Repos, t *entity.AssetTransfer, now time.Time) error

// mutate carga el traslado FOR UPDATE, aplica fn y guarda (con chequeo de versión) en una sola tx.
// Si fn falla no se escribe nada: ni movimientos ni cambio de estado.
func (uc *UseCase) mutate(ctx context.Context, transferID, op string, fn mutateFn) (*dto.TransferResponse, error) {
	var (
		saved *entity.AssetTransfer
		from  entity.TransferStatus
	)
	err := uc.retry.Run(ctx, uc.txRunner, func(repos inventory.Repos) error {
		t, err := repos.Transfers.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.ErrNotFound
		}
		from = t.Status
		now := uc.now()
		if err := fn(repos, t, now); err != nil {
			return err
		}
		t.UpdatedAt = now
		if err := repos.Transfers.Update(ctx, t); err != nil {
			return err
		}
		saved = t
		return nil
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("transfer_id", transferID).Str("op", op).Msg("transición rechazada")
		return nil, err
	}
	uc.log.Info().
		Str("transfer_id", saved.ID).
		Str("code", saved.TransferCode).
		Str("op", op).
		Str("from", string(from)).
		Str("to", string(saved.Status)).
		Msg("traslado actualizado")
	out := ToTransferResponse(saved)
	return &out, nil
}

// guard valida el par (actual, destino) contra la tabla de transiciones.
func guard(op string, t *entity.AssetTransfer, to entity.TransferStatus) error {
	if !entity.CanTransition(t.Status, to) {
		return &domain.TransitionError{Op: op, From: string(t.Status), To: string(to)}
	}
	return nil
}

// ToTransferResponse convierte la entidad al DTO.
func ToTransferResponse(t *entity.AssetTransfer) dto.TransferResponse {
	requested, transferred := t.Totals()
	out := dto.TransferResponse{
		ID:                 t.ID,
		TransferCode:       t.TransferCode,
		SourceWarehouseID:  t.SourceWarehouseID,
		TargetLocationID:   t.TargetLocationID,
		TransferDate:       t.TransferDate,
		ActualTransferDate: t.ActualTransferDate,
		Status:             string(t.Status),
		Notes:              t.Notes,
		RequestedByUserID:  t.RequestedByUserID,
		ApprovedByUserID:   t.ApprovedByUserID,
		DeliveredByUserID:  t.DeliveredByUserID,
		ReceivedByUserID:   t.ReceivedByUserID,
		TotalRequested:     requested,
		TotalTransferred:   transferred,
		Items:              make([]dto.TransferItemResponse, 0, len(t.Items)),
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
	for _, it := range t.Items {
		out.Items = append(out.Items, dto.TransferItemResponse{
			ID:                  it.ID,
			ProductID:           it.ProductID,
			RequestedQuantity:   it.RequestedQuantity,
			TransferredQuantity: it.TransferredQuantity,
			RemainingQuantity:   it.RemainingQuantity(),
			SerialNumbers:       it.SerialNumbers,
			ConditionNotes:      it.ConditionNotes,
			Notes:               it.Notes,
		})
	}
	return out
}
