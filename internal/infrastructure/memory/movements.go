package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*movementRepo)(nil)

type movementRepo struct {
	s    *Store
	inTx bool
}

func scopeOf(m *entity.StockMovement) repository.IdempotencyScope {
	return repository.IdempotencyScope{
		ReferenceType:  m.ReferenceType,
		ReferenceID:    m.RefID(),
		Direction:      m.Direction,
		IdempotencyKey: m.IdempotencyKey,
	}
}

func (r *movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	defer r.s.update(r.inTx)()
	scope := scopeOf(m)
	if _, dup := r.s.st.idempotency[scope]; dup {
		return domain.ErrDuplicateMovement
	}
	r.s.st.nextMovID++
	m.ID = r.s.st.nextMovID
	r.s.st.movements = append(r.s.st.movements, copyMovement(m))
	r.s.st.idempotency[scope] = struct{}{}
	return nil
}

func (r *movementRepo) Exists(_ context.Context, scope repository.IdempotencyScope) (bool, error) {
	defer r.s.view(r.inTx)()
	_, ok := r.s.st.idempotency[scope]
	return ok, nil
}

func matches(m *entity.StockMovement, f repository.MovementFilter) bool {
	if f.BalanceID != "" && m.BalanceID != f.BalanceID {
		return false
	}
	if f.ReferenceType != "" && m.ReferenceType != f.ReferenceType {
		return false
	}
	if f.ReferenceID != "" && m.RefID() != f.ReferenceID {
		return false
	}
	return true
}

// newestFirst created_at DESC, id DESC.
func newestFirst(list []*entity.StockMovement) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}

func (r *movementRepo) List(_ context.Context, f repository.MovementFilter, after *repository.MovementCursor, limit, offset int) ([]*entity.StockMovement, error) {
	defer r.s.view(r.inTx)()
	var out []*entity.StockMovement
	for _, m := range r.s.st.movements {
		if !matches(m, f) {
			continue
		}
		if after != nil {
			older := m.CreatedAt.Before(after.CreatedAt) ||
				(m.CreatedAt.Equal(after.CreatedAt) && m.ID < after.ID)
			if !older {
				continue
			}
		}
		out = append(out, copyMovement(m))
	}
	newestFirst(out)
	if after != nil {
		offset = 0
	}
	return paginate(out, limit, offset), nil
}

func (r *movementRepo) Count(_ context.Context, f repository.MovementFilter) (int, error) {
	defer r.s.view(r.inTx)()
	n := 0
	for _, m := range r.s.st.movements {
		if matches(m, f) {
			n++
		}
	}
	return n, nil
}

func (r *movementRepo) SumByBalance(_ context.Context, balanceID string) (int64, int, error) {
	defer r.s.view(r.inTx)()
	var sum int64
	n := 0
	for _, m := range r.s.st.movements {
		if m.BalanceID == balanceID {
			sum += m.SignedDelta
			n++
		}
	}
	return sum, n, nil
}

func (r *movementRepo) ListRecentByProduct(_ context.Context, productID string, limit int) ([]*entity.StockMovement, error) {
	defer r.s.view(r.inTx)()
	var out []*entity.StockMovement
	for _, m := range r.s.st.movements {
		if b := r.s.st.balances[m.BalanceID]; b != nil && b.ProductID == productID {
			out = append(out, copyMovement(m))
		}
	}
	newestFirst(out)
	return paginate(out, limit, 0), nil
}
