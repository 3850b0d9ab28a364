package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

func TestTransferWhere_SinFiltros(t *testing.T) {
	where, args := transferWhere(repository.TransferFilter{})
	assert.Equal(t, "TRUE", where)
	assert.Empty(t, args)
}

func TestTransferWhere_BusquedaLiteral(t *testing.T) {
	where, args := transferWhere(repository.TransferFilter{
		Status: entity.TransferPending,
		Search: "100%_lote",
	})
	assert.Equal(t, "t.status = $1 AND strpos(unaccent(lower(t.transfer_code || ' ' || t.notes)), $2) > 0", where)
	assert.NotContains(t, where, "LIKE")
	assert.Equal(t, []any{"PENDING", "100%_lote"}, args, "el término viaja como parámetro sin comodines añadidos")
}
