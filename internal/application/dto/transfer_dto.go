package dto

import "time"

// CreateTransferRequest body para POST /api/transfers.
type CreateTransferRequest struct {
	TransferCode      string                      `json:"transfer_code,omitempty"` // opcional; se genera TR-<año>-<6 dígitos>
	SourceWarehouseID string                      `json:"source_warehouse_id"`
	TargetLocationID  string                      `json:"target_location_id"`
	TransferDate      *time.Time                  `json:"transfer_date,omitempty"`
	Notes             string                      `json:"notes,omitempty"`
	Items             []CreateTransferItemRequest `json:"items"`
}

// CreateTransferItemRequest línea solicitada.
type CreateTransferItemRequest struct {
	ProductID         string `json:"product_id"`
	RequestedQuantity int64  `json:"requested_quantity"`
	SerialNumbers     string `json:"serial_numbers,omitempty"`
	ConditionNotes    string `json:"condition_notes,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// UpdateTransferItemRequest body para PUT /api/transfers/:id/items/:itemId.
type UpdateTransferItemRequest struct {
	TransferredQuantity int64 `json:"transferred_quantity"`
}

// TransferReasonRequest body para cancelar o rechazar.
type TransferReasonRequest struct {
	Reason string `json:"reason"`
}

// TransferResponse salida de un traslado.
type TransferResponse struct {
	ID                 string                 `json:"id"`
	TransferCode       string                 `json:"transfer_code"`
	SourceWarehouseID  string                 `json:"source_warehouse_id"`
	TargetLocationID   string                 `json:"target_location_id"`
	TransferDate       *time.Time             `json:"transfer_date,omitempty"`
	ActualTransferDate *time.Time             `json:"actual_transfer_date,omitempty"`
	Status             string                 `json:"status"`
	Notes              string                 `json:"notes,omitempty"`
	RequestedByUserID  string                 `json:"requested_by_user_id,omitempty"`
	ApprovedByUserID   string                 `json:"approved_by_user_id,omitempty"`
	DeliveredByUserID  string                 `json:"delivered_by_user_id,omitempty"`
	ReceivedByUserID   string                 `json:"received_by_user_id,omitempty"`
	TotalRequested     int64                  `json:"total_requested"`
	TotalTransferred   int64                  `json:"total_transferred"`
	Items              []TransferItemResponse `json:"items"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// TransferItemResponse salida de una línea.
type TransferItemResponse struct {
	ID                  string `json:"id"`
	ProductID           string `json:"product_id"`
	RequestedQuantity   int64  `json:"requested_quantity"`
	TransferredQuantity *int64 `json:"transferred_quantity"`
	RemainingQuantity   int64  `json:"remaining_quantity"`
	SerialNumbers       string `json:"serial_numbers,omitempty"`
	ConditionNotes      string `json:"condition_notes,omitempty"`
	Notes               string `json:"notes,omitempty"`
}

// TransferListResponse página de traslados.
type TransferListResponse struct {
	Items []TransferResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// TransferListFilter filtros de GET /api/transfers.
type TransferListFilter struct {
	Status            string     `query:"status"`
	SourceWarehouseID string     `query:"source_warehouse_id"`
	TargetLocationID  string     `query:"target_location_id"`
	From              *time.Time `query:"-"`
	To                *time.Time `query:"-"`
	Search            string     `query:"search"`
}
