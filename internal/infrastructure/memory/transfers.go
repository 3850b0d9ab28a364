package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/search"
)

var _ repository.AssetTransferRepository = (*transferRepo)(nil)

type transferRepo struct {
	s    *Store
	inTx bool
}

func (r *transferRepo) Create(_ context.Context, t *entity.AssetTransfer) error {
	defer r.s.update(r.inTx)()
	if _, ok := r.s.st.codes[t.TransferCode]; ok {
		return fmt.Errorf("código %s: %w", t.TransferCode, domain.ErrConflict)
	}
	if t.Version == 0 {
		t.Version = 1
	}
	r.s.st.transfers[t.ID] = t.Clone()
	r.s.st.codes[t.TransferCode] = t.ID
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*entity.AssetTransfer, error) {
	defer r.s.view(r.inTx)()
	return r.s.st.transfers[id].Clone(), nil
}

func (r *transferRepo) GetForUpdate(ctx context.Context, id string) (*entity.AssetTransfer, error) {
	return r.GetByID(ctx, id)
}

func (r *transferRepo) GetByCode(_ context.Context, code string) (*entity.AssetTransfer, error) {
	defer r.s.view(r.inTx)()
	id, ok := r.s.st.codes[code]
	if !ok {
		return nil, nil
	}
	return r.s.st.transfers[id].Clone(), nil
}

func (r *transferRepo) ExistsByCode(_ context.Context, code string) (bool, error) {
	defer r.s.view(r.inTx)()
	_, ok := r.s.st.codes[code]
	return ok, nil
}

func (r *transferRepo) Update(_ context.Context, t *entity.AssetTransfer) error {
	defer r.s.update(r.inTx)()
	cur := r.s.st.transfers[t.ID]
	if cur == nil {
		return domain.ErrNotFound
	}
	if cur.Version != t.Version {
		return fmt.Errorf("traslado %s versión %d: %w", t.ID, t.Version, domain.ErrConflict)
	}
	t.Version++
	r.s.st.transfers[t.ID] = t.Clone()
	return nil
}

func transferMatches(t *entity.AssetTransfer, f repository.TransferFilter) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.SourceWarehouseID != "" && t.SourceWarehouseID != f.SourceWarehouseID {
		return false
	}
	if f.TargetLocationID != "" && t.TargetLocationID != f.TargetLocationID {
		return false
	}
	if f.From != nil && t.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && t.CreatedAt.After(*f.To) {
		return false
	}
	if f.Search != "" {
		hay := search.Normalize(t.TransferCode + " " + t.Notes)
		if !strings.Contains(hay, f.Search) {
			return false
		}
	}
	return true
}

func (r *transferRepo) List(_ context.Context, f repository.TransferFilter, limit, offset int) ([]*entity.AssetTransfer, int, error) {
	defer r.s.view(r.inTx)()
	var out []*entity.AssetTransfer
	for _, t := range r.s.st.transfers {
		if transferMatches(t, f) {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, limit, offset), len(out), nil
}

func isOpen(s entity.TransferStatus) bool {
	switch s {
	case entity.TransferPending, entity.TransferApproved, entity.TransferPreparing, entity.TransferInTransit:
		return true
	}
	return false
}

func (r *transferRepo) ListOverdue(_ context.Context, now time.Time) ([]*entity.AssetTransfer, error) {
	defer r.s.view(r.inTx)()
	var out []*entity.AssetTransfer
	for _, t := range r.s.st.transfers {
		if t.TransferDate != nil && t.TransferDate.Before(now) && isOpen(t.Status) {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransferDate.Before(*out[j].TransferDate) })
	return out, nil
}

func (r *transferRepo) CountByStatus(_ context.Context) (map[entity.TransferStatus]int, error) {
	defer r.s.view(r.inTx)()
	out := make(map[entity.TransferStatus]int)
	for _, t := range r.s.st.transfers {
		out[t.Status]++
	}
	return out, nil
}
