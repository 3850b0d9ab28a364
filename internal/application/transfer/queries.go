package transfer

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/search"
)

// GetByID obtiene un traslado con sus líneas.
func (uc *UseCase) GetByID(ctx context.Context, id string) (*dto.TransferResponse, error) {
	t, err := uc.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	out := ToTransferResponse(t)
	return &out, nil
}

// GetByCode obtiene un traslado por su código TR-...
func (uc *UseCase) GetByCode(ctx context.Context, code string) (*dto.TransferResponse, error) {
	t, err := uc.transfers.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	out := ToTransferResponse(t)
	return &out, nil
}

// List traslados filtrados, más recientes primero.
func (uc *UseCase) List(ctx context.Context, f dto.TransferListFilter, page dto.PageRequest) (*dto.TransferListResponse, error) {
	page.DefaultPage(uc.maxPage)
	filter := repository.TransferFilter{
		SourceWarehouseID: f.SourceWarehouseID,
		TargetLocationID:  f.TargetLocationID,
		From:              f.From,
		To:                f.To,
		Search:            search.Normalize(f.Search),
	}
	if f.Status != "" {
		st, err := entity.ParseTransferStatus(f.Status)
		if err != nil {
			return nil, domain.NewValidationError("status", "desconocido: "+f.Status)
		}
		filter.Status = st
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, domain.NewValidationError("to", "anterior a from")
	}
	list, total, err := uc.transfers.List(ctx, filter, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.TransferResponse, 0, len(list))
	for _, t := range list {
		items = append(items, ToTransferResponse(t))
	}
	return &dto.TransferListResponse{
		Items: items,
		Page:  dto.NewPageResponse(page.Limit, page.Offset, len(items), total),
	}, nil
}

// ListPending traslados a la espera de aprobación.
func (uc *UseCase) ListPending(ctx context.Context, page dto.PageRequest) (*dto.TransferListResponse, error) {
	return uc.List(ctx, dto.TransferListFilter{Status: string(entity.TransferPending)}, page)
}

// ListOverdue traslados abiertos cuya fecha planificada ya pasó.
func (uc *UseCase) ListOverdue(ctx context.Context) ([]dto.TransferResponse, error) {
	list, err := uc.transfers.ListOverdue(ctx, uc.now())
	if err != nil {
		return nil, err
	}
	out := make([]dto.TransferResponse, 0, len(list))
	for _, t := range list {
		out = append(out, ToTransferResponse(t))
	}
	return out, nil
}

// CountByStatus conteo por estado; incluye los estados sin traslados en cero.
func (uc *UseCase) CountByStatus(ctx context.Context) (map[string]int, error) {
	counts, err := uc.transfers.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(entity.AllTransferStatuses))
	for _, st := range entity.AllTransferStatuses {
		out[string(st)] = counts[st]
	}
	return out, nil
}

// DispatchNote genera el PDF de la guía de despacho. Devuelve el contenido y el nombre de archivo.
func (uc *UseCase) DispatchNote(ctx context.Context, id string) ([]byte, string, error) {
	t, err := uc.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if t == nil {
		return nil, "", domain.ErrNotFound
	}
	if t.Status == entity.TransferCancelled || t.Status == entity.TransferRejected {
		return nil, "", &domain.TransitionError{Op: "dispatch_note", From: string(t.Status), To: string(t.Status)}
	}
	source, err := uc.warehouses.GetByID(ctx, t.SourceWarehouseID)
	if err != nil {
		return nil, "", err
	}
	pdf, err := uc.pdf.Render(t, source)
	if err != nil {
		uc.log.Error().Err(err).Str("transfer_id", id).Msg("generar guía de despacho")
		return nil, "", err
	}
	return pdf, t.TransferCode + ".pdf", nil
}

// Warehouse datos de una bodega origen o destino.
func (uc *UseCase) Warehouse(ctx context.Context, id string) (*dto.WarehouseResponse, error) {
	w, err := uc.warehouses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, domain.ErrNotFound
	}
	return &dto.WarehouseResponse{
		ID:        w.ID,
		Name:      w.Name,
		Address:   w.Address,
		Active:    w.Active,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}, nil
}
