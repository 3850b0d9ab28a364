// Package memory implementa los repositorios y el TxRunner en memoria (tests y modo desarrollo).
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

// state todo el contenido del almacén; se copia completo para simular rollback.
type state struct {
	balances    map[string]*entity.StockBalance
	balanceKeys map[string]string // warehouse|product -> id
	movements   []*entity.StockMovement
	idempotency map[repository.IdempotencyScope]struct{}
	nextMovID   int64
	transfers   map[string]*entity.AssetTransfer
	codes       map[string]string // código -> id
	orders      map[string]*entity.PurchaseOrder
	warehouses  map[string]*entity.Warehouse
}

func newState() *state {
	return &state{
		balances:    make(map[string]*entity.StockBalance),
		balanceKeys: make(map[string]string),
		idempotency: make(map[repository.IdempotencyScope]struct{}),
		transfers:   make(map[string]*entity.AssetTransfer),
		codes:       make(map[string]string),
		orders:      make(map[string]*entity.PurchaseOrder),
		warehouses:  make(map[string]*entity.Warehouse),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.balances {
		c.balances[k] = copyBalance(v)
	}
	for k, v := range s.balanceKeys {
		c.balanceKeys[k] = v
	}
	// Los movimientos son inmutables: basta copiar el slice
	c.movements = append(c.movements, s.movements...)
	for k := range s.idempotency {
		c.idempotency[k] = struct{}{}
	}
	c.nextMovID = s.nextMovID
	for k, v := range s.transfers {
		c.transfers[k] = v.Clone()
	}
	for k, v := range s.codes {
		c.codes[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range s.warehouses {
		w := *v
		c.warehouses[k] = &w
	}
	return c
}

// Store almacén en memoria. Run serializa las transacciones con un mutex global
// (equivale a bloquear todas las filas) y restaura el snapshot si fn falla.
type Store struct {
	mu sync.RWMutex
	st *state
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Run ejecuta fn con repositorios atados a la "transacción". Todo o nada.
func (s *Store) Run(ctx context.Context, fn func(repos inventory.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(s.repos(true)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Repos repositorios fuera de transacción (lecturas de consultas).
func (s *Store) Repos() inventory.Repos {
	return s.repos(false)
}

func (s *Store) repos(inTx bool) inventory.Repos {
	return inventory.Repos{
		Balances:  &balanceRepo{s: s, inTx: inTx},
		Movements: &movementRepo{s: s, inTx: inTx},
		Transfers: &transferRepo{s: s, inTx: inTx},
		Orders:    &orderRepo{s: s, inTx: inTx},
	}
}

// Warehouses repositorio de bodegas (solo lectura).
func (s *Store) Warehouses() repository.WarehouseRepository {
	return &warehouseRepo{s: s}
}

// AddWarehouse carga una bodega (dato maestro externo).
func (s *Store) AddWarehouse(w *entity.Warehouse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *w
	s.st.warehouses[w.ID] = &c
}

// AddPurchaseOrder carga una orden de compra del módulo de compras.
func (s *Store) AddPurchaseOrder(o *entity.PurchaseOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.orders[o.ID] = copyOrder(o)
}

// view toma el lock de lectura salvo que ya se esté dentro de Run.
func (s *Store) view(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) update(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func copyBalance(b *entity.StockBalance) *entity.StockBalance {
	if b == nil {
		return nil
	}
	c := *b
	if b.MaxStock != nil {
		m := *b.MaxStock
		c.MaxStock = &m
	}
	if b.LastMovementAt != nil {
		t := *b.LastMovementAt
		c.LastMovementAt = &t
	}
	return &c
}

func copyMovement(m *entity.StockMovement) *entity.StockMovement {
	c := *m
	if m.ReferenceID != nil {
		r := *m.ReferenceID
		c.ReferenceID = &r
	}
	return &c
}

func copyOrder(o *entity.PurchaseOrder) *entity.PurchaseOrder {
	if o == nil {
		return nil
	}
	c := *o
	c.Lines = append([]entity.PurchaseOrderLine(nil), o.Lines...)
	if o.ActualDeliveryDate != nil {
		t := *o.ActualDeliveryDate
		c.ActualDeliveryDate = &t
	}
	return &c
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
