package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestRender_GeneraPDF(t *testing.T) {
	shipped := int64(4)
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	tr := &entity.AssetTransfer{
		ID:                 "t1",
		TransferCode:       "TR-2026-000123",
		SourceWarehouseID:  "w1",
		TargetLocationID:   "w2",
		ActualTransferDate: &now,
		Status:             entity.TransferInTransit,
		Notes:              "Reposición sede norte",
		CreatedAt:          now,
		Items: []*entity.TransferItem{
			{ID: "i1", ProductID: "p1", RequestedQuantity: 6, TransferredQuantity: &shipped, SerialNumbers: "SN-1, SN-2"},
			{ID: "i2", ProductID: "p2", RequestedQuantity: 1500},
		},
	}
	g := NewDispatchNoteGenerator()

	out, err := g.Render(tr, &entity.Warehouse{ID: "w1", Name: "Bodega Central", Address: "Cra 7 # 10-20"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	// sin bodega se usa el ID
	out, err = g.Render(tr, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = g.Render(nil, nil)
	assert.Error(t, err)
}

func TestFormatQty(t *testing.T) {
	cases := map[int64]string{
		0:       "0",
		999:     "999",
		1000:    "1.000",
		25000:   "25.000",
		1234567: "1.234.567",
		-1500:   "-1.500",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatQty(in), in)
	}
}

func TestJoinNonEmpty(t *testing.T) {
	assert.Equal(t, "a · b", joinNonEmpty("a", "b"))
	assert.Equal(t, "a", joinNonEmpty("a", ""))
	assert.Equal(t, "b", joinNonEmpty("", "b"))
	assert.Equal(t, "-", nonEmpty("", "-"))
}
