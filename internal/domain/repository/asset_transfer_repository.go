package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// TransferFilter filtros para listar traslados (campos vacíos o nil = sin filtro).
type TransferFilter struct {
	Status            entity.TransferStatus
	SourceWarehouseID string
	TargetLocationID  string
	From              *time.Time // sobre created_at
	To                *time.Time
	Search            string // ya normalizado (minúsculas, sin tildes)
}

// AssetTransferRepository define el puerto de persistencia para traslados y sus líneas.
type AssetTransferRepository interface {
	// Create persiste el traslado junto con sus líneas.
	Create(ctx context.Context, transfer *entity.AssetTransfer) error
	GetByID(ctx context.Context, id string) (*entity.AssetTransfer, error)
	// GetForUpdate bloquea el traslado (serializa transiciones concurrentes del mismo traslado).
	GetForUpdate(ctx context.Context, id string) (*entity.AssetTransfer, error)
	GetByCode(ctx context.Context, code string) (*entity.AssetTransfer, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	// Update guarda cabecera y líneas si la versión coincide e incrementa Version.
	// Devuelve domain.ErrConflict si otra escritura ganó.
	Update(ctx context.Context, transfer *entity.AssetTransfer) error
	List(ctx context.Context, filter TransferFilter, limit, offset int) ([]*entity.AssetTransfer, int, error)
	// ListOverdue traslados abiertos cuya fecha planificada ya pasó.
	ListOverdue(ctx context.Context, now time.Time) ([]*entity.AssetTransfer, error)
	CountByStatus(ctx context.Context) (map[entity.TransferStatus]int, error)
}
