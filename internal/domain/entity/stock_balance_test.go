package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestNewStockBalance_Defaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b := entity.NewStockBalance("b1", "w1", "p1", now)
	assert.True(t, b.Active)
	assert.Zero(t, b.CurrentStock)
	assert.Nil(t, b.MaxStock)
	assert.Equal(t, now, b.CreatedAt)
	assert.False(t, b.IsLowStock())
}

func TestStockBalance_LowStockYSugerido(t *testing.T) {
	maxStock := int64(50)
	b := &entity.StockBalance{CurrentStock: 4, MinStock: 10, Active: true}
	assert.True(t, b.IsLowStock())
	assert.Equal(t, int64(6), b.SuggestedOrderQty(), "sin tope repone hasta el mínimo")

	b.MaxStock = &maxStock
	assert.Equal(t, int64(46), b.SuggestedOrderQty())

	b.Active = false
	assert.False(t, b.IsLowStock(), "inactivo nunca aparece como bajo")

	b.CurrentStock = 80
	assert.Zero(t, b.SuggestedOrderQty())
}

func TestStockBalance_Available(t *testing.T) {
	b := &entity.StockBalance{CurrentStock: 12, ReservedQuantity: 5}
	assert.Equal(t, int64(7), b.Available())
}

func TestResolveDirection(t *testing.T) {
	cases := []struct {
		mt   entity.MovementType
		in   entity.Direction
		want entity.Direction
		ok   bool
	}{
		{entity.MovementTypeIn, "", entity.DirectionIncrease, true},
		{entity.MovementTypeIn, entity.DirectionDecrease, "", false},
		{entity.MovementTypeOut, "", entity.DirectionDecrease, true},
		{entity.MovementTypeOut, entity.DirectionIncrease, "", false},
		{entity.MovementTypeTransfer, "", "", false},
		{entity.MovementTypeTransfer, entity.DirectionDecrease, entity.DirectionDecrease, true},
		{entity.MovementTypeAdjustment, entity.DirectionIncrease, entity.DirectionIncrease, true},
		{entity.MovementType("LOAN"), entity.DirectionIncrease, "", false},
	}
	for _, c := range cases {
		got, ok := entity.ResolveDirection(c.mt, c.in)
		assert.Equal(t, c.ok, ok, "%s/%s", c.mt, c.in)
		assert.Equal(t, c.want, got, "%s/%s", c.mt, c.in)
	}
}

func TestSignedDelta(t *testing.T) {
	assert.Equal(t, int64(7), entity.SignedDelta(entity.DirectionIncrease, 7))
	assert.Equal(t, int64(-7), entity.SignedDelta(entity.DirectionDecrease, 7))
}

func TestPurchaseOrder_Line(t *testing.T) {
	o := &entity.PurchaseOrder{Lines: []entity.PurchaseOrderLine{{ID: "l1", OrderedQuantity: 3}}}
	l := o.Line("l1")
	if assert.NotNil(t, l) {
		assert.Equal(t, int64(3), l.OrderedQuantity)
	}
	assert.Nil(t, o.Line("l2"))
}
