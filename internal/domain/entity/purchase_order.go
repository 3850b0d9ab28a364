package entity

import "time"

// PurchaseOrder orden de compra gestionada por el módulo de compras (externa).
// El núcleo de stock solo la lee y marca su entrega.
type PurchaseOrder struct {
	ID                  string
	OrderCode           string
	DeliveryWarehouseID string
	Status              string
	ActualDeliveryDate  *time.Time
	Lines               []PurchaseOrderLine
}

// PurchaseOrderLine línea pedida.
type PurchaseOrderLine struct {
	ID              string
	ProductID       string
	OrderedQuantity int64
}

// Line busca una línea por ID.
func (o *PurchaseOrder) Line(lineID string) *PurchaseOrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

// ReceiptLine cantidad recibida de una línea en un evento de entrega.
type ReceiptLine struct {
	LineID           string
	ReceivedQuantity int64
}

// Estados de orden que el núcleo escribe.
const OrderStatusDelivered = "DELIVERED"
