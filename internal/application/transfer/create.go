package transfer

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// maxCodeAttempts intentos para encontrar un código libre.
const maxCodeAttempts = 5

// GenerateCode devuelve un código TR-<año>-<6 dígitos>.
func GenerateCode(now time.Time) string {
	return fmt.Sprintf("TR-%d-%06d", now.Year(), rand.Intn(1_000_000))
}

// Create registra un traslado en PENDING junto con sus líneas.
func (uc *UseCase) Create(ctx context.Context, req dto.CreateTransferRequest, requestedBy string) (*dto.TransferResponse, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	if err := uc.requireWarehouse(ctx, "source_warehouse_id", req.SourceWarehouseID); err != nil {
		return nil, err
	}
	if err := uc.requireWarehouse(ctx, "target_location_id", req.TargetLocationID); err != nil {
		return nil, err
	}

	var created *entity.AssetTransfer
	err := uc.retry.Run(ctx, uc.txRunner, func(repos inventory.Repos) error {
		now := uc.now()
		code := strings.TrimSpace(req.TransferCode)
		if code != "" {
			exists, err := repos.Transfers.ExistsByCode(ctx, code)
			if err != nil {
				return err
			}
			if exists {
				return domain.NewValidationError("transfer_code", "ya existe")
			}
		} else {
			c, err := uc.freeCode(ctx, repos, now)
			if err != nil {
				return err
			}
			code = c
		}

		t := &entity.AssetTransfer{
			ID:                uuid.New().String(),
			TransferCode:      code,
			SourceWarehouseID: req.SourceWarehouseID,
			TargetLocationID:  req.TargetLocationID,
			TransferDate:      req.TransferDate,
			Status:            entity.TransferPending,
			Notes:             req.Notes,
			RequestedByUserID: requestedBy,
			Version:           1,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		for _, it := range req.Items {
			t.Items = append(t.Items, &entity.TransferItem{
				ID:                uuid.New().String(),
				TransferID:        t.ID,
				ProductID:         it.ProductID,
				RequestedQuantity: it.RequestedQuantity,
				SerialNumbers:     it.SerialNumbers,
				ConditionNotes:    it.ConditionNotes,
				Notes:             it.Notes,
			})
		}
		if err := repos.Transfers.Create(ctx, t); err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("transfer_id", created.ID).
		Str("code", created.TransferCode).
		Str("source", created.SourceWarehouseID).
		Str("target", created.TargetLocationID).
		Int("items", len(created.Items)).
		Msg("traslado creado")
	out := ToTransferResponse(created)
	return &out, nil
}

// freeCode genera códigos hasta encontrar uno sin usar.
func (uc *UseCase) freeCode(ctx context.Context, repos inventory.Repos, now time.Time) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := uc.newCode(now)
		exists, err := repos.Transfers.ExistsByCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("generar código de traslado: %w", domain.ErrConflict)
}

func (uc *UseCase) requireWarehouse(ctx context.Context, field, id string) error {
	w, err := uc.warehouses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if w == nil {
		return domain.NewValidationError(field, "no existe")
	}
	if !w.Active {
		return domain.NewValidationError(field, "está inactiva")
	}
	return nil
}

func validateCreate(req dto.CreateTransferRequest) error {
	if req.SourceWarehouseID == "" {
		return domain.NewValidationError("source_warehouse_id", "es requerido")
	}
	if req.TargetLocationID == "" {
		return domain.NewValidationError("target_location_id", "es requerido")
	}
	if req.SourceWarehouseID == req.TargetLocationID {
		return domain.NewValidationError("target_location_id", "debe ser distinto del origen")
	}
	if len(req.Items) == 0 {
		return domain.NewValidationError("items", "el traslado no tiene líneas")
	}
	seen := make(map[string]struct{}, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID == "" {
			return domain.NewValidationError("product_id", "es requerido")
		}
		if _, ok := seen[it.ProductID]; ok {
			return domain.NewValidationError("product_id", fmt.Sprintf("%s repetido", it.ProductID))
		}
		seen[it.ProductID] = struct{}{}
		if it.RequestedQuantity <= 0 {
			return domain.ErrInvalidQuantity
		}
	}
	return nil
}
