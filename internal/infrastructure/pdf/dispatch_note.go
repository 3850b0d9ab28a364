// Package pdf genera la guía de despacho de un traslado de activos.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Bodega origen       │  Código traslado + Fecha     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ORIGEN / DESTINO / Estado                                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: # | Producto | Solicitado | Despachado | Series      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES + QR con el código + firmas                         │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// DispatchNoteGenerator implementa transfer.DispatchNoteRenderer usando Maroto v2.
type DispatchNoteGenerator struct{}

// NewDispatchNoteGenerator construye el generador.
func NewDispatchNoteGenerator() *DispatchNoteGenerator { return &DispatchNoteGenerator{} }

// Render genera el PDF y devuelve sus bytes. source puede ser nil si la bodega ya no existe.
func (g *DispatchNoteGenerator) Render(t *entity.AssetTransfer, source *entity.Warehouse) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("pdf: traslado nil")
	}
	sourceName := t.SourceWarehouseID
	sourceAddr := ""
	if source != nil {
		sourceName = source.Name
		sourceAddr = source.Address
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Guía de despacho "+t.TransferCode, true).
		WithAuthor(sourceName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(t, sourceName))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(routeRow(t, sourceName, sourceAddr))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range itemRows(t.Items) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(t))
	m.AddRows(line.NewRow(3))
	m.AddRows(footerRow(t))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(t *entity.AssetTransfer, sourceName string) core.Row {
	fecha := t.CreatedAt.Format("02/01/2006")
	if t.ActualTransferDate != nil {
		fecha = t.ActualTransferDate.Format("02/01/2006")
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(sourceName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Bodega de origen", props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("GUÍA DE DESPACHO", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(t.TransferCode, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func routeRow(t *entity.AssetTransfer, sourceName, sourceAddr string) core.Row {
	return row.New(16).Add(
		col.New(5).Add(
			text.New("ORIGEN", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(sourceName, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(nonEmpty(sourceAddr, "—"), props.Text{Size: 8, Top: 11, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("DESTINO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(t.TargetLocationID, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
		),
		col.New(2).Add(
			text.New("ESTADO", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1}),
			text.New(string(t.Status), props.Text{Size: 8, Align: align.Right, Top: 6}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).WithStyle(&props.Cell{BackgroundColor: colorPrimary}).Add(
		h("#", 1, align.Center),
		h("Producto", 4, align.Left),
		h("Solicitado", 2, align.Right),
		h("Despachado", 2, align.Right),
		h("Series / Condición", 3, align.Left),
	)
}

func itemRows(items []*entity.TransferItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for i, it := range items {
		shipped := "—"
		if it.TransferredQuantity != nil {
			shipped = formatQty(*it.TransferredQuantity)
		}
		detail := it.SerialNumbers
		if it.ConditionNotes != "" {
			detail = joinNonEmpty(detail, it.ConditionNotes)
		}
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(strconv.Itoa(i+1), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(4).Add(text.New(it.ProductID, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatQty(it.RequestedQuantity), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(shipped, props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(3).Add(text.New(nonEmpty(detail, "—"), props.Text{Size: 7, Top: 1, Left: 1, Color: colorGray})),
		))
	}
	return result
}

func totalsRow(t *entity.AssetTransfer) core.Row {
	requested, transferred := t.Totals()
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	return row.New(14).Add(
		col.New(5),
		col.New(4).Add(label("Total solicitado:"), label("Total despachado:")),
		col.New(3).Add(value(formatQty(requested)), value(formatQty(transferred))),
	)
}

// footerRow QR con el código del traslado y espacio para firmas.
func footerRow(t *entity.AssetTransfer) core.Row {
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(t.TransferCode, props.Rect{Percent: 90, Center: true})),
		col.New(9).Add(
			text.New("Entregado por: "+nonEmpty(t.DeliveredByUserID, "________________"), props.Text{
				Size: 9, Top: 6, Left: 3,
			}),
			text.New("Recibido por: "+nonEmpty(t.ReceivedByUserID, "________________"), props.Text{
				Size: 9, Top: 16, Left: 3,
			}),
			text.New(nonEmpty(t.Notes, ""), props.Text{Size: 7, Top: 26, Left: 3, Color: colorGray}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " · " + b
}

// formatQty inserta puntos de miles. Ej: 25000 → "25.000".
func formatQty(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	l := len(s)
	if l <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	buf := make([]byte, 0, l+l/3+1)
	if neg {
		buf = append(buf, '-')
	}
	for i, c := range []byte(s) {
		if i > 0 && (l-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
