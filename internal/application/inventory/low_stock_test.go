package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestListLowStock_OrdenPorDeficit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	small := f.balance(t, "w1", "p1") // déficit 2
	big := f.balance(t, "w1", "p2")   // déficit 9
	ok := f.balance(t, "w1", "p3")    // sin déficit
	f.record(t, small, entity.MovementTypeIn, "", 3, "a")
	f.record(t, big, entity.MovementTypeIn, "", 1, "b")
	f.record(t, ok, entity.MovementTypeIn, "", 8, "c")

	_, err := f.registry.UpdateThresholds(ctx, small, 5, ptr(12))
	require.NoError(t, err)
	_, err = f.registry.UpdateThresholds(ctx, big, 10, nil)
	require.NoError(t, err)
	_, err = f.registry.UpdateThresholds(ctx, ok, 8, nil)
	require.NoError(t, err)

	resp, err := f.lowStock.ListLowStock(ctx, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, 2, resp.Page.Total)

	assert.Equal(t, big, resp.Items[0].ID)
	assert.Equal(t, int64(9), resp.Items[0].Deficit)
	assert.Equal(t, int64(9), resp.Items[0].SuggestedOrderQty, "sin máximo repone hasta el mínimo")

	assert.Equal(t, small, resp.Items[1].ID)
	assert.Equal(t, int64(2), resp.Items[1].Deficit)
	assert.Equal(t, int64(9), resp.Items[1].SuggestedOrderQty, "con máximo repone hasta el máximo")

	n, err := f.lowStock.CountLowStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestListLowStock_SaleAlReponer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.balance(t, "w1", "p1")
	_, err := f.registry.UpdateThresholds(ctx, id, 5, nil)
	require.NoError(t, err)

	f.record(t, id, entity.MovementTypeIn, "", 5, "r")

	resp, err := f.lowStock.ListLowStock(ctx, dto.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Items, "current == min no es bajo")
}
