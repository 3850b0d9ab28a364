package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/monitor"
	"github.com/jhoicas/stock-ledger/internal/application/receiving"
	"github.com/jhoicas/stock-ledger/internal/application/transfer"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// buildAPI arma la API completa sobre el almacén en memoria.
func buildAPI(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	store.AddWarehouse(&entity.Warehouse{ID: "w1", Name: "Bodega Central", Active: true})
	store.AddWarehouse(&entity.Warehouse{ID: "w2", Name: "Sede Norte", Active: true})
	store.AddPurchaseOrder(&entity.PurchaseOrder{
		ID: "po-1", OrderCode: "OC-1", DeliveryWarehouseID: "w1", Status: "ORDERED",
		Lines: []entity.PurchaseOrderLine{{ID: "l1", ProductID: "p1", OrderedQuantity: 20}},
	})

	repos := store.Repos()
	log := logger.Nop()
	retry := inventory.RetryPolicy{Attempts: 3}
	ledger := inventory.NewLedger(store, retry, repos.Balances, repos.Movements, log, 100)
	lowStock := inventory.NewLowStockMonitor(repos.Balances, 100)
	transfers := transfer.NewUseCase(store, repos.Transfers, store.Warehouses(), ledger, retry,
		pdf.NewDispatchNoteGenerator(), log, 100)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Ledger:    ledger,
		Registry:  inventory.NewRegistry(store, retry, repos.Balances, repos.Movements, log, 100),
		LowStock:  lowStock,
		Receiving: receiving.NewUseCase(store, repos.Orders, ledger, retry, log),
		Transfers: transfers,
		Dashboard: monitor.NewDashboard(lowStock, transfers),
		JWTSecret: testJWTSecret,
	})
	return app
}

// call ejecuta la petición y decodifica el JSON de respuesta en out (si no es nil).
func call(t *testing.T, app *fiber.App, method, path, role string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestAPI_SinToken(t *testing.T) {
	app := buildAPI(t)
	assert.Equal(t, http.StatusUnauthorized, call(t, app, http.MethodGet, "/api/stock/low-stock", "", nil, nil))
}

func TestAPI_LibroDeStock(t *testing.T) {
	app := buildAPI(t)
	role := pkgjwt.RoleBodeguero

	var bal dto.BalanceResponse
	status := call(t, app, http.MethodPost, "/api/stock/balances", role,
		dto.GetOrCreateBalanceRequest{WarehouseID: "w1", ProductID: "p1"}, &bal)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, bal.ID)

	var mov dto.MovementResponse
	status = call(t, app, http.MethodPost, "/api/stock/movements", role, dto.RecordMovementRequest{
		BalanceID: bal.ID, MovementType: "IN", Quantity: 8, ReferenceType: "MANUAL", IdempotencyKey: "k1",
	}, &mov)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(8), mov.SignedDelta)
	assert.Equal(t, testUserID, mov.ActorID)

	var e dto.ErrorResponse
	status = call(t, app, http.MethodPost, "/api/stock/movements", role, dto.RecordMovementRequest{
		BalanceID: bal.ID, MovementType: "IN", Quantity: 8, ReferenceType: "MANUAL", IdempotencyKey: "k1",
	}, &e)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_MOVEMENT", e.Code)

	status = call(t, app, http.MethodPost, "/api/stock/movements", role, dto.RecordMovementRequest{
		BalanceID: bal.ID, MovementType: "OUT", Quantity: 50, ReferenceType: "MANUAL",
	}, &e)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)

	status = call(t, app, http.MethodPost, "/api/stock/movements", role, dto.RecordMovementRequest{
		BalanceID: bal.ID, MovementType: "IN", Quantity: 0, ReferenceType: "MANUAL",
	}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_QUANTITY", e.Code)

	status = call(t, app, http.MethodPut, "/api/stock/balances/"+bal.ID+"/thresholds", role,
		dto.UpdateThresholdsRequest{MinStock: 10}, &bal)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, bal.LowStock)

	status = call(t, app, http.MethodPut, "/api/stock/balances/"+bal.ID+"/thresholds", role,
		dto.UpdateThresholdsRequest{MinStock: 10, MaxStock: ptr(5)}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "THRESHOLD_INVALID", e.Code)

	var low dto.LowStockListResponse
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/stock/low-stock", role, nil, &low))
	require.Len(t, low.Items, 1)
	assert.Equal(t, int64(2), low.Items[0].Deficit)

	var replay dto.ReplayResponse
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/stock/balances/"+bal.ID+"/replay", role, nil, &replay))
	assert.True(t, replay.Consistent)

	var list dto.MovementListResponse
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/stock/movements?balance_id="+bal.ID, role, nil, &list))
	assert.Equal(t, 1, list.Page.Total)

	for _, rt := range []string{"TRANSFER", "PURCHASE_ORDER"} {
		status = call(t, app, http.MethodPost, "/api/stock/movements", role, dto.RecordMovementRequest{
			BalanceID: bal.ID, MovementType: "OUT", Quantity: 1, ReferenceType: rt, IdempotencyKey: "tr-1:item-1:OUT",
		}, &e)
		assert.Equal(t, http.StatusBadRequest, status, rt)
		assert.Equal(t, "VALIDATION", e.Code, rt)
	}
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/stock/balances/"+bal.ID, role, nil, &bal))
	assert.Equal(t, int64(8), bal.CurrentStock, "los movimientos rechazados no tocan el saldo")

	assert.Equal(t, http.StatusNotFound, call(t, app, http.MethodGet, "/api/stock/balances/nope", role, nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, app, http.MethodGet, "/api/stock/products/p9", role, nil, nil))
}

func TestAPI_RecepcionYTraslado(t *testing.T) {
	app := buildAPI(t)
	bod := pkgjwt.RoleBodeguero

	var rec dto.OrderDeliveredResponse
	status := call(t, app, http.MethodPost, "/api/receiving/orders/po-1/delivered", bod, dto.OrderDeliveredRequest{
		Lines: []dto.ReceiptLineRequest{{LineID: "l1", ReceivedQuantity: 12}},
	}, &rec)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, rec.Movements, 1)

	var tr dto.TransferResponse
	status = call(t, app, http.MethodPost, "/api/transfers", bod, dto.CreateTransferRequest{
		SourceWarehouseID: "w1", TargetLocationID: "w2",
		Items: []dto.CreateTransferItemRequest{{ProductID: "p1", RequestedQuantity: 5}},
	}, &tr)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "PENDING", tr.Status)

	// aprobar exige supervisor o admin
	var e dto.ErrorResponse
	status = call(t, app, http.MethodPost, "/api/transfers/"+tr.ID+"/approve", bod, nil, &e)
	assert.Equal(t, http.StatusForbidden, status)

	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/transfers/"+tr.ID+"/approve", pkgjwt.RoleSupervisor, nil, &tr))
	assert.Equal(t, "APPROVED", tr.Status)

	status = call(t, app, http.MethodPost, "/api/transfers/"+tr.ID+"/transit", bod, nil, &e)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", e.Code)

	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/transfers/"+tr.ID+"/prepare", bod, nil, &tr))
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/transfers/"+tr.ID+"/transit", bod, nil, &tr))
	assert.Equal(t, "IN_TRANSIT", tr.Status)
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/transfers/"+tr.ID+"/deliver", bod, nil, &tr))
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/transfers/"+tr.ID+"/complete", bod, nil, &tr))
	assert.Equal(t, "COMPLETED", tr.Status)

	var detail dto.ProductStockDetailResponse
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/stock/products/p1", bod, nil, &detail))
	assert.Equal(t, int64(12), detail.TotalStock, "el traslado conserva el total")
	assert.Len(t, detail.Balances, 2)

	var byCode dto.TransferResponse
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/transfers/code/"+tr.TransferCode, bod, nil, &byCode))
	assert.Equal(t, tr.ID, byCode.ID)

	counts := map[string]int{}
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/transfers/counts", bod, nil, &counts))
	assert.Equal(t, 1, counts["COMPLETED"])

	req := httptest.NewRequest(http.MethodGet, "/api/transfers/"+tr.ID+"/dispatch-note", nil)
	req.Header.Set("Authorization", tokenForRole(t, bod))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), tr.TransferCode+".pdf")
}

func TestAPI_CancelarRequiereMotivo(t *testing.T) {
	app := buildAPI(t)
	bod := pkgjwt.RoleBodeguero

	var tr dto.TransferResponse
	require.Equal(t, http.StatusCreated, call(t, app, http.MethodPost, "/api/transfers", bod, dto.CreateTransferRequest{
		SourceWarehouseID: "w1", TargetLocationID: "w2",
		Items: []dto.CreateTransferItemRequest{{ProductID: "p1", RequestedQuantity: 1}},
	}, &tr))

	var e dto.ErrorResponse
	status := call(t, app, http.MethodPost, "/api/transfers/"+tr.ID+"/cancel", bod, dto.TransferReasonRequest{}, &e)
	assert.Equal(t, http.StatusBadRequest, status)

	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/transfers/"+tr.ID+"/cancel", bod,
		dto.TransferReasonRequest{Reason: "duplicado"}, &tr))
	assert.Equal(t, "CANCELLED", tr.Status)

	status = call(t, app, http.MethodPost, "/api/transfers/"+tr.ID+"/reject", pkgjwt.RoleAdmin,
		dto.TransferReasonRequest{Reason: "x"}, &e)
	assert.Equal(t, http.StatusConflict, status)
}

func TestAPI_BodegaYTablero(t *testing.T) {
	app := buildAPI(t)
	role := pkgjwt.RoleSupervisor

	var w dto.WarehouseResponse
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/warehouses/w1", role, nil, &w))
	assert.Equal(t, "Bodega Central", w.Name)
	assert.Equal(t, http.StatusNotFound, call(t, app, http.MethodGet, "/api/warehouses/w9", role, nil, nil))

	require.Equal(t, http.StatusCreated, call(t, app, http.MethodPost, "/api/transfers", role, dto.CreateTransferRequest{
		SourceWarehouseID: "w1", TargetLocationID: "w2",
		Items: []dto.CreateTransferItemRequest{{ProductID: "p1", RequestedQuantity: 1}},
	}, nil))

	var sum dto.DashboardSummaryDTO
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/dashboard/summary", role, nil, &sum))
	assert.Equal(t, 1, sum.OpenTransfers)
	assert.Equal(t, 1, sum.TransfersByStatus["PENDING"])
	assert.Zero(t, sum.LowStockBalances)
	assert.Empty(t, sum.OverdueTransfers)
}

func ptr(n int64) *int64 { return &n }
