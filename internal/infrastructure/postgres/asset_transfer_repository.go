package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.AssetTransferRepository = (*AssetTransferRepo)(nil)

const transferColumns = `t.id, t.transfer_code, t.source_warehouse_id, t.target_location_id, t.transfer_date,
	t.actual_transfer_date, t.status, t.notes, t.requested_by, t.approved_by, t.delivered_by, t.received_by,
	t.version, t.created_at, t.updated_at`

// AssetTransferRepo traslados y sus líneas sobre PostgreSQL.
type AssetTransferRepo struct {
	q Querier
}

// NewAssetTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAssetTransferRepository(q Querier) *AssetTransferRepo {
	return &AssetTransferRepo{q: q}
}

func scanTransfer(row scanner) (*entity.AssetTransfer, error) {
	var t entity.AssetTransfer
	var status string
	err := row.Scan(
		&t.ID, &t.TransferCode, &t.SourceWarehouseID, &t.TargetLocationID, &t.TransferDate,
		&t.ActualTransferDate, &status, &t.Notes, &t.RequestedByUserID, &t.ApprovedByUserID,
		&t.DeliveredByUserID, &t.ReceivedByUserID, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = entity.TransferStatus(status)
	return &t, nil
}

// Create inserta cabecera y líneas.
func (r *AssetTransferRepo) Create(ctx context.Context, t *entity.AssetTransfer) error {
	if t.Version == 0 {
		t.Version = 1
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO asset_transfers (id, transfer_code, source_warehouse_id, target_location_id, transfer_date,
			actual_transfer_date, status, notes, requested_by, approved_by, delivered_by, received_by,
			version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		t.ID, t.TransferCode, t.SourceWarehouseID, t.TargetLocationID, t.TransferDate,
		t.ActualTransferDate, string(t.Status), t.Notes, t.RequestedByUserID, t.ApprovedByUserID,
		t.DeliveredByUserID, t.ReceivedByUserID, t.Version, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("código %s: %w", t.TransferCode, domain.ErrConflict)
		}
		return wrap("insert transfer", err)
	}
	for i, it := range t.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO asset_transfer_items (id, transfer_id, position, product_id, requested_quantity,
				transferred_quantity, serial_numbers, condition_notes, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			it.ID, t.ID, i, it.ProductID, it.RequestedQuantity,
			it.TransferredQuantity, it.SerialNumbers, it.ConditionNotes, it.Notes,
		)
		if err != nil {
			return wrap("insert transfer item", err)
		}
	}
	return nil
}

func (r *AssetTransferRepo) getOne(ctx context.Context, op, query string, arg any) (*entity.AssetTransfer, error) {
	t, err := scanTransfer(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap(op, err)
	}
	if err := r.loadItems(ctx, []*entity.AssetTransfer{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// loadItems carga las líneas de varios traslados en una sola consulta.
func (r *AssetTransferRepo) loadItems(ctx context.Context, transfers []*entity.AssetTransfer) error {
	if len(transfers) == 0 {
		return nil
	}
	byID := make(map[string]*entity.AssetTransfer, len(transfers))
	ids := make([]string, 0, len(transfers))
	for _, t := range transfers {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, transfer_id, product_id, requested_quantity, transferred_quantity,
			serial_numbers, condition_notes, notes
		FROM asset_transfer_items WHERE transfer_id = ANY($1)
		ORDER BY transfer_id, position`, ids)
	if err != nil {
		return wrap("list transfer items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.TransferItem
		if err := rows.Scan(&it.ID, &it.TransferID, &it.ProductID, &it.RequestedQuantity, &it.TransferredQuantity,
			&it.SerialNumbers, &it.ConditionNotes, &it.Notes); err != nil {
			return fmt.Errorf("scan transfer item: %w", err)
		}
		if t := byID[it.TransferID]; t != nil {
			t.Items = append(t.Items, &it)
		}
	}
	if err := rows.Err(); err != nil {
		return wrap("list transfer items", err)
	}
	return nil
}

// GetByID obtiene un traslado con sus líneas.
func (r *AssetTransferRepo) GetByID(ctx context.Context, id string) (*entity.AssetTransfer, error) {
	return r.getOne(ctx, "get transfer", `SELECT `+transferColumns+` FROM asset_transfers t WHERE t.id = $1`, id)
}

// GetForUpdate bloquea la cabecera; las líneas solo cambian a través de ella.
func (r *AssetTransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.AssetTransfer, error) {
	return r.getOne(ctx, "get transfer for update",
		`SELECT `+transferColumns+` FROM asset_transfers t WHERE t.id = $1 FOR UPDATE`, id)
}

// GetByCode obtiene un traslado por código.
func (r *AssetTransferRepo) GetByCode(ctx context.Context, code string) (*entity.AssetTransfer, error) {
	return r.getOne(ctx, "get transfer by code",
		`SELECT `+transferColumns+` FROM asset_transfers t WHERE t.transfer_code = $1`, code)
}

// ExistsByCode indica si el código ya está en uso.
func (r *AssetTransferRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM asset_transfers WHERE transfer_code = $1)`, code).Scan(&ok)
	if err != nil {
		return false, wrap("exists transfer code", err)
	}
	return ok, nil
}

// Update guarda cabecera y líneas si la versión no cambió.
func (r *AssetTransferRepo) Update(ctx context.Context, t *entity.AssetTransfer) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE asset_transfers SET status = $3, notes = $4, actual_transfer_date = $5,
			approved_by = $6, delivered_by = $7, received_by = $8, updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $2`,
		t.ID, t.Version, string(t.Status), t.Notes, t.ActualTransferDate,
		t.ApprovedByUserID, t.DeliveredByUserID, t.ReceivedByUserID, t.UpdatedAt,
	)
	if err != nil {
		return wrap("update transfer", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("traslado %s versión %d: %w", t.ID, t.Version, domain.ErrConflict)
	}
	t.Version++
	for _, it := range t.Items {
		_, err := r.q.Exec(ctx, `
			UPDATE asset_transfer_items SET transferred_quantity = $2, serial_numbers = $3,
				condition_notes = $4, notes = $5
			WHERE id = $1`,
			it.ID, it.TransferredQuantity, it.SerialNumbers, it.ConditionNotes, it.Notes,
		)
		if err != nil {
			return wrap("update transfer item", err)
		}
	}
	return nil
}

func transferWhere(f repository.TransferFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "$?", fmt.Sprintf("$%d", len(args))))
	}
	if f.Status != "" {
		add("t.status = $?", string(f.Status))
	}
	if f.SourceWarehouseID != "" {
		add("t.source_warehouse_id = $?", f.SourceWarehouseID)
	}
	if f.TargetLocationID != "" {
		add("t.target_location_id = $?", f.TargetLocationID)
	}
	if f.From != nil {
		add("t.created_at >= $?", *f.From)
	}
	if f.To != nil {
		add("t.created_at <= $?", *f.To)
	}
	if f.Search != "" {
		// strpos compara literal: % y _ del término no actúan como comodines
		add("strpos(unaccent(lower(t.transfer_code || ' ' || t.notes)), $?) > 0", f.Search)
	}
	if len(conds) == 0 {
		return "TRUE", args
	}
	return strings.Join(conds, " AND "), args
}

func (r *AssetTransferRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.AssetTransfer, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	var out []*entity.AssetTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	// Las líneas se cargan con el cursor ya cerrado (una tx no admite dos consultas abiertas)
	if err := r.loadItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// List traslados filtrados, más recientes primero.
func (r *AssetTransferRepo) List(ctx context.Context, f repository.TransferFilter, limit, offset int) ([]*entity.AssetTransfer, int, error) {
	where, args := transferWhere(f)
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM asset_transfers t WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, wrap("count transfers", err)
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM asset_transfers t WHERE %s
		ORDER BY t.created_at DESC, t.id DESC LIMIT $%d OFFSET $%d`, transferColumns, where, len(args)-1, len(args))
	list, err := r.list(ctx, "list transfers", query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListOverdue traslados abiertos con fecha planificada vencida.
func (r *AssetTransferRepo) ListOverdue(ctx context.Context, now time.Time) ([]*entity.AssetTransfer, error) {
	return r.list(ctx, "list overdue transfers", `
		SELECT `+transferColumns+` FROM asset_transfers t
		WHERE t.transfer_date < $1 AND t.status IN ('PENDING', 'APPROVED', 'PREPARING', 'IN_TRANSIT')
		ORDER BY t.transfer_date`, now)
}

// CountByStatus conteo de traslados por estado.
func (r *AssetTransferRepo) CountByStatus(ctx context.Context) (map[entity.TransferStatus]int, error) {
	rows, err := r.q.Query(ctx, `SELECT status, COUNT(*) FROM asset_transfers GROUP BY status`)
	if err != nil {
		return nil, wrap("count transfers by status", err)
	}
	defer rows.Close()
	out := make(map[entity.TransferStatus]int)
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[entity.TransferStatus(st)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("count transfers by status", err)
	}
	return out, nil
}
