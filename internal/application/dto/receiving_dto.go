package dto

// OrderDeliveredRequest body para POST /api/receiving/orders/:orderId/delivered.
type OrderDeliveredRequest struct {
	Lines []ReceiptLineRequest `json:"lines"`
}

// ReceiptLineRequest cantidad recibida por línea de la orden.
type ReceiptLineRequest struct {
	LineID           string `json:"line_id"`
	ReceivedQuantity int64  `json:"received_quantity"`
}

// OrderDeliveredResponse resultado de la recepción.
type OrderDeliveredResponse struct {
	OrderID   string             `json:"order_id"`
	Movements []MovementResponse `json:"movements"`
}
