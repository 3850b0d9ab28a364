package transfer_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/transfer"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// fakeRenderer guarda el traslado recibido y devuelve un PDF mínimo.
type fakeRenderer struct {
	got    *entity.AssetTransfer
	source *entity.Warehouse
}

func (r *fakeRenderer) Render(t *entity.AssetTransfer, source *entity.Warehouse) ([]byte, error) {
	r.got = t
	r.source = source
	return []byte("%PDF-fake"), nil
}

type fixture struct {
	store    *memory.Store
	ledger   *inventory.Ledger
	registry *inventory.Registry
	uc       *transfer.UseCase
	pdf      *fakeRenderer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddWarehouse(&entity.Warehouse{ID: "w1", Name: "Bodega Central", Active: true})
	store.AddWarehouse(&entity.Warehouse{ID: "w2", Name: "Sede Norte", Active: true})
	store.AddWarehouse(&entity.Warehouse{ID: "w3", Name: "Cerrada", Active: false})

	repos := store.Repos()
	log := logger.Nop()
	ledger := inventory.NewLedger(store, inventory.RetryPolicy{Attempts: 3}, repos.Balances, repos.Movements, log, 100)
	registry := inventory.NewRegistry(store, inventory.RetryPolicy{Attempts: 3}, repos.Balances, repos.Movements, log, 100)
	pdf := &fakeRenderer{}
	uc := transfer.NewUseCase(store, repos.Transfers, store.Warehouses(), ledger,
		inventory.RetryPolicy{Attempts: 3}, pdf, log, 100)
	return &fixture{store: store, ledger: ledger, registry: registry, uc: uc, pdf: pdf}
}

// stock carga existencias en (bodega, producto) con un IN manual.
func (f *fixture) stock(t *testing.T, warehouseID, productID string, qty int64) string {
	t.Helper()
	ctx := context.Background()
	b, err := f.registry.GetOrCreateBalance(ctx, warehouseID, productID)
	require.NoError(t, err)
	if qty > 0 {
		_, err = f.ledger.RecordMovement(ctx, inventory.MovementInput{
			BalanceID:     b.ID,
			MovementType:  entity.MovementTypeIn,
			Quantity:      qty,
			ReferenceType: entity.ReferenceManual,
		})
		require.NoError(t, err)
	}
	return b.ID
}

func (f *fixture) current(t *testing.T, warehouseID, productID string) int64 {
	t.Helper()
	b, err := f.store.Repos().Balances.GetByKey(context.Background(), warehouseID, productID)
	require.NoError(t, err)
	if b == nil {
		return 0
	}
	return b.CurrentStock
}

func (f *fixture) create(t *testing.T, items ...dto.CreateTransferItemRequest) *dto.TransferResponse {
	t.Helper()
	tr, err := f.uc.Create(context.Background(), dto.CreateTransferRequest{
		SourceWarehouseID: "w1",
		TargetLocationID:  "w2",
		Notes:             "Reposición sede norte",
		Items:             items,
	}, "u-req")
	require.NoError(t, err)
	return tr
}

func item(productID string, qty int64) dto.CreateTransferItemRequest {
	return dto.CreateTransferItemRequest{ProductID: productID, RequestedQuantity: qty}
}

// ship lleva un traslado PENDING hasta IN_TRANSIT.
func (f *fixture) ship(t *testing.T, id string) *dto.TransferResponse {
	t.Helper()
	ctx := context.Background()
	_, err := f.uc.Approve(ctx, id, "u-sup")
	require.NoError(t, err)
	_, err = f.uc.StartPreparing(ctx, id)
	require.NoError(t, err)
	tr, err := f.uc.StartTransit(ctx, id, "u-bod")
	require.NoError(t, err)
	return tr
}

func TestCreate_CodigoYEstadoInicial(t *testing.T) {
	f := newFixture(t)
	tr := f.create(t, item("p1", 5), item("p2", 2))

	assert.Equal(t, "PENDING", tr.Status)
	assert.Regexp(t, regexp.MustCompile(`^TR-\d{4}-\d{6}$`), tr.TransferCode)
	assert.Equal(t, "u-req", tr.RequestedByUserID)
	assert.Equal(t, int64(7), tr.TotalRequested)
	assert.Zero(t, tr.TotalTransferred)
	require.Len(t, tr.Items, 2)
	assert.Nil(t, tr.Items[0].TransferredQuantity)

	byCode, err := f.uc.GetByCode(context.Background(), tr.TransferCode)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, byCode.ID)
}

func TestCreate_CodigoExplicitoRepetido(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := dto.CreateTransferRequest{
		TransferCode:      "TR-2026-000001",
		SourceWarehouseID: "w1",
		TargetLocationID:  "w2",
		Items:             []dto.CreateTransferItemRequest{item("p1", 1)},
	}
	_, err := f.uc.Create(ctx, req, "u1")
	require.NoError(t, err)
	_, err = f.uc.Create(ctx, req, "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreate_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := []struct {
		name string
		req  dto.CreateTransferRequest
		want error
	}{
		{"sin origen", dto.CreateTransferRequest{TargetLocationID: "w2", Items: []dto.CreateTransferItemRequest{item("p1", 1)}}, domain.ErrInvalidInput},
		{"origen igual destino", dto.CreateTransferRequest{SourceWarehouseID: "w1", TargetLocationID: "w1", Items: []dto.CreateTransferItemRequest{item("p1", 1)}}, domain.ErrInvalidInput},
		{"sin líneas", dto.CreateTransferRequest{SourceWarehouseID: "w1", TargetLocationID: "w2"}, domain.ErrInvalidInput},
		{"cantidad cero", dto.CreateTransferRequest{SourceWarehouseID: "w1", TargetLocationID: "w2", Items: []dto.CreateTransferItemRequest{item("p1", 0)}}, domain.ErrInvalidQuantity},
		{"producto repetido", dto.CreateTransferRequest{SourceWarehouseID: "w1", TargetLocationID: "w2", Items: []dto.CreateTransferItemRequest{item("p1", 1), item("p1", 2)}}, domain.ErrInvalidInput},
		{"bodega inexistente", dto.CreateTransferRequest{SourceWarehouseID: "w9", TargetLocationID: "w2", Items: []dto.CreateTransferItemRequest{item("p1", 1)}}, domain.ErrInvalidInput},
		{"destino inactivo", dto.CreateTransferRequest{SourceWarehouseID: "w1", TargetLocationID: "w3", Items: []dto.CreateTransferItemRequest{item("p1", 1)}}, domain.ErrInvalidInput},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.uc.Create(ctx, c.req, "u1")
			assert.ErrorIs(t, err, c.want)
		})
	}
}

func TestCicloCompleto_MueveStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "w1", "p1", 10)
	f.stock(t, "w1", "p2", 5)
	tr := f.create(t, item("p1", 6), item("p2", 5))

	shipped := f.ship(t, tr.ID)
	assert.Equal(t, "IN_TRANSIT", shipped.Status)
	assert.NotNil(t, shipped.ActualTransferDate)
	assert.Equal(t, "u-bod", shipped.DeliveredByUserID)
	assert.Equal(t, "u-sup", shipped.ApprovedByUserID)
	assert.Equal(t, int64(4), f.current(t, "w1", "p1"), "el despacho descuenta el origen")
	assert.Equal(t, int64(0), f.current(t, "w1", "p2"))
	assert.Equal(t, int64(0), f.current(t, "w2", "p1"), "el destino aún no recibe")

	delivered, err := f.uc.MarkDelivered(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "DELIVERED", delivered.Status)

	done, err := f.uc.Complete(ctx, tr.ID, "u-rec")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", done.Status)
	assert.Equal(t, "u-rec", done.ReceivedByUserID)
	assert.Equal(t, int64(6), f.current(t, "w2", "p1"))
	assert.Equal(t, int64(5), f.current(t, "w2", "p2"))

	// conservación: lo que salió del origen entró al destino
	movs, err := f.ledger.ListMovements(ctx, repository.MovementFilter{
		ReferenceType: entity.ReferenceTransfer,
		ReferenceID:   tr.ID,
	}, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, movs.Items, 4)
	var sum int64
	types := map[string]int{}
	for _, m := range movs.Items {
		sum += m.SignedDelta
		types[m.MovementType]++
		if m.MovementType == "OUT" {
			assert.Equal(t, "DECREASE", m.Direction)
		}
	}
	assert.Zero(t, sum)
	assert.Equal(t, map[string]int{"OUT": 2, "IN": 2}, types, "el despacho registra OUT y la recepción IN")

	_, err = f.uc.Cancel(ctx, tr.ID, "tarde")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestComplete_DesdeEnTransitoSinEntrega(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "w1", "p1", 3)
	tr := f.create(t, item("p1", 3))
	f.ship(t, tr.ID)

	done, err := f.uc.Complete(context.Background(), tr.ID, "u-rec")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", done.Status)
}

func TestCompletadoParcial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "w1", "p1", 10)
	f.stock(t, "w1", "p2", 10)
	tr := f.create(t, item("p1", 6), item("p2", 4))

	_, err := f.uc.Approve(ctx, tr.ID, "u-sup")
	require.NoError(t, err)
	_, err = f.uc.StartPreparing(ctx, tr.ID)
	require.NoError(t, err)

	upd, err := f.uc.UpdateItemQuantity(ctx, tr.ID, tr.Items[0].ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), upd.Items[0].RemainingQuantity)
	_, err = f.uc.UpdateItemQuantity(ctx, tr.ID, tr.Items[1].ID, 0)
	require.NoError(t, err)

	_, err = f.uc.StartTransit(ctx, tr.ID, "u-bod")
	require.NoError(t, err)
	assert.Equal(t, int64(8), f.current(t, "w1", "p1"))
	assert.Equal(t, int64(10), f.current(t, "w1", "p2"), "línea en cero no mueve stock")

	done, err := f.uc.Complete(ctx, tr.ID, "u-rec")
	require.NoError(t, err)
	assert.Equal(t, "PARTIALLY_COMPLETED", done.Status)
	assert.Equal(t, int64(2), done.TotalTransferred)
	assert.Equal(t, int64(2), f.current(t, "w2", "p1"))
	assert.Equal(t, int64(0), f.current(t, "w2", "p2"))
}

func TestStartTransit_TodoONada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "w1", "p1", 10)
	f.stock(t, "w1", "p2", 1)
	tr := f.create(t, item("p1", 5), item("p2", 3))
	_, err := f.uc.Approve(ctx, tr.ID, "u-sup")
	require.NoError(t, err)
	_, err = f.uc.StartPreparing(ctx, tr.ID)
	require.NoError(t, err)

	_, err = f.uc.StartTransit(ctx, tr.ID, "u-bod")
	require.Error(t, err)
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, "p2", ise.ProductID)

	assert.Equal(t, int64(10), f.current(t, "w1", "p1"), "ninguna línea se descuenta")
	got, err := f.uc.GetByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "PREPARING", got.Status)
	assert.Nil(t, got.Items[0].TransferredQuantity)
}

func TestStartTransit_SinSaldoEnOrigen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.create(t, item("p1", 1))
	_, err := f.uc.Approve(ctx, tr.ID, "u-sup")
	require.NoError(t, err)
	_, err = f.uc.StartPreparing(ctx, tr.ID)
	require.NoError(t, err)

	_, err = f.uc.StartTransit(ctx, tr.ID, "u-bod")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestStartTransit_TodoEnCero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "w1", "p1", 5)
	tr := f.create(t, item("p1", 2))
	_, err := f.uc.Approve(ctx, tr.ID, "u-sup")
	require.NoError(t, err)
	_, err = f.uc.StartPreparing(ctx, tr.ID)
	require.NoError(t, err)
	_, err = f.uc.UpdateItemQuantity(ctx, tr.ID, tr.Items[0].ID, 0)
	require.NoError(t, err)

	_, err = f.uc.StartTransit(ctx, tr.ID, "u-bod")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransicionesInvalidas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.create(t, item("p1", 1))

	_, err := f.uc.StartPreparing(ctx, tr.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	var te *domain.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "PENDING", te.From)

	_, err = f.uc.StartTransit(ctx, tr.ID, "u")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.uc.MarkDelivered(ctx, tr.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.uc.Complete(ctx, tr.ID, "u")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.uc.Approve(ctx, "nope", "u")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRechazarYCancelar_GuardanMotivo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, item("p1", 1))
	_, err := f.uc.Reject(ctx, a.ID, "u-sup", "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	rej, err := f.uc.Reject(ctx, a.ID, "u-sup", "sin presupuesto")
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", rej.Status)
	assert.Contains(t, rej.Notes, "Reposición sede norte")
	assert.Contains(t, rej.Notes, "Motivo de rechazo: sin presupuesto")
	_, err = f.uc.Approve(ctx, a.ID, "u-sup")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	b := f.create(t, item("p1", 1))
	_, err = f.uc.Approve(ctx, b.ID, "u-sup")
	require.NoError(t, err)
	can, err := f.uc.Cancel(ctx, b.ID, "cambio de plan")
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", can.Status)
	assert.Contains(t, can.Notes, "Motivo de cancelación: cambio de plan")

	c := f.create(t, item("p1", 1))
	_, err = f.uc.Approve(ctx, c.ID, "u-sup")
	require.NoError(t, err)
	_, err = f.uc.StartPreparing(ctx, c.ID)
	require.NoError(t, err)
	_, err = f.uc.Cancel(ctx, c.ID, "tarde")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "en preparación ya no se cancela")
}

func TestUpdateItemQuantity_Limites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "w1", "p1", 5)
	tr := f.create(t, item("p1", 3))
	itemID := tr.Items[0].ID

	_, err := f.uc.UpdateItemQuantity(ctx, tr.ID, itemID, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "en PENDING no se fija cantidad")
	_, err = f.uc.Approve(ctx, tr.ID, "u-sup")
	require.NoError(t, err)
	_, err = f.uc.UpdateItemQuantity(ctx, tr.ID, itemID, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "en APPROVED tampoco")

	_, err = f.uc.StartPreparing(ctx, tr.ID)
	require.NoError(t, err)
	_, err = f.uc.UpdateItemQuantity(ctx, tr.ID, itemID, 4)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.uc.UpdateItemQuantity(ctx, tr.ID, itemID, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.uc.UpdateItemQuantity(ctx, tr.ID, "otro", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	upd, err := f.uc.UpdateItemQuantity(ctx, tr.ID, itemID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), *upd.Items[0].TransferredQuantity)

	_, err = f.uc.StartTransit(ctx, tr.ID, "u-bod")
	require.NoError(t, err)
	_, err = f.uc.MarkDelivered(ctx, tr.ID)
	require.NoError(t, err)
	_, err = f.uc.UpdateItemQuantity(ctx, tr.ID, itemID, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "entregado ya no admite ajustes")
}

func TestUpdateItemQuantity_EnTransitoConciliaRecepcion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "w1", "p1", 10)
	tr := f.create(t, item("p1", 6))
	itemID := tr.Items[0].ID

	_, err := f.uc.Approve(ctx, tr.ID, "u-sup")
	require.NoError(t, err)
	_, err = f.uc.StartPreparing(ctx, tr.ID)
	require.NoError(t, err)
	_, err = f.uc.UpdateItemQuantity(ctx, tr.ID, itemID, 5)
	require.NoError(t, err)
	_, err = f.uc.StartTransit(ctx, tr.ID, "u-bod")
	require.NoError(t, err)
	assert.Equal(t, int64(5), f.current(t, "w1", "p1"))

	_, err = f.uc.UpdateItemQuantity(ctx, tr.ID, itemID, 6)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "no se recibe más de lo despachado")
	upd, err := f.uc.UpdateItemQuantity(ctx, tr.ID, itemID, 3)
	require.NoError(t, err)
	assert.Equal(t, "IN_TRANSIT", upd.Status)
	assert.Equal(t, int64(3), *upd.Items[0].TransferredQuantity)

	done, err := f.uc.Complete(ctx, tr.ID, "u-rec")
	require.NoError(t, err)
	assert.Equal(t, "PARTIALLY_COMPLETED", done.Status)
	assert.Equal(t, int64(3), f.current(t, "w2", "p1"))
	assert.Equal(t, int64(5), f.current(t, "w1", "p1"), "el origen conserva el despacho original")
}

func TestListYConteos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, item("p1", 1))
	f.create(t, item("p2", 1))
	_, err := f.uc.Approve(ctx, a.ID, "u-sup")
	require.NoError(t, err)

	pending, err := f.uc.ListPending(ctx, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, pending.Page.Total)

	found, err := f.uc.List(ctx, dto.TransferListFilter{Search: "REPOSICIÓN"}, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, found.Page.Total, "la búsqueda ignora mayúsculas y tildes")

	_, err = f.uc.List(ctx, dto.TransferListFilter{Status: "pending"}, dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	from := time.Now()
	to := from.Add(-time.Hour)
	_, err = f.uc.List(ctx, dto.TransferListFilter{From: &from, To: &to}, dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	counts, err := f.uc.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Len(t, counts, len(entity.AllTransferStatuses))
	assert.Equal(t, 1, counts["PENDING"])
	assert.Equal(t, 1, counts["APPROVED"])
	assert.Zero(t, counts["COMPLETED"])
}

func TestListOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	past := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(48 * time.Hour)

	late, err := f.uc.Create(ctx, dto.CreateTransferRequest{
		SourceWarehouseID: "w1", TargetLocationID: "w2", TransferDate: &past,
		Items: []dto.CreateTransferItemRequest{item("p1", 1)},
	}, "u1")
	require.NoError(t, err)
	_, err = f.uc.Create(ctx, dto.CreateTransferRequest{
		SourceWarehouseID: "w1", TargetLocationID: "w2", TransferDate: &future,
		Items: []dto.CreateTransferItemRequest{item("p1", 1)},
	}, "u1")
	require.NoError(t, err)
	cancelled, err := f.uc.Create(ctx, dto.CreateTransferRequest{
		SourceWarehouseID: "w1", TargetLocationID: "w2", TransferDate: &past,
		Items: []dto.CreateTransferItemRequest{item("p1", 1)},
	}, "u1")
	require.NoError(t, err)
	_, err = f.uc.Cancel(ctx, cancelled.ID, "no aplica")
	require.NoError(t, err)

	list, err := f.uc.ListOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, late.ID, list[0].ID)
}

func TestDispatchNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.create(t, item("p1", 1))

	pdf, name, err := f.uc.DispatchNote(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.TransferCode+".pdf", name)
	assert.Equal(t, "%PDF-fake", string(pdf))
	assert.Equal(t, tr.ID, f.pdf.got.ID)
	require.NotNil(t, f.pdf.source)
	assert.Equal(t, "Bodega Central", f.pdf.source.Name)

	_, err = f.uc.Cancel(ctx, tr.ID, "x")
	require.NoError(t, err)
	_, _, err = f.uc.DispatchNote(ctx, tr.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, _, err = f.uc.DispatchNote(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
