package dto

import "time"

// RecordMovementRequest body para POST /api/stock/movements.
type RecordMovementRequest struct {
	BalanceID      string  `json:"balance_id"`
	MovementType   string  `json:"movement_type"`       // IN, OUT, TRANSFER, ADJUSTMENT
	Direction      string  `json:"direction,omitempty"` // INCREASE/DECREASE (obligatorio en TRANSFER y ADJUSTMENT)
	Quantity       int64   `json:"quantity"`
	ReferenceType  string  `json:"reference_type"` // PURCHASE_ORDER, TRANSFER, ADJUSTMENT, MANUAL
	ReferenceID    *string `json:"reference_id,omitempty"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
	Notes          string  `json:"notes,omitempty"`
}

// GetOrCreateBalanceRequest body para POST /api/stock/balances.
type GetOrCreateBalanceRequest struct {
	WarehouseID string `json:"warehouse_id"`
	ProductID   string `json:"product_id"`
}

// UpdateThresholdsRequest body para PUT /api/stock/balances/:id/thresholds.
type UpdateThresholdsRequest struct {
	MinStock int64  `json:"min_stock"`
	MaxStock *int64 `json:"max_stock"` // null = sin tope
}

// SetActiveRequest body para PUT /api/stock/balances/:id/active.
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// BalanceResponse snapshot de un saldo.
type BalanceResponse struct {
	ID               string     `json:"id"`
	WarehouseID      string     `json:"warehouse_id"`
	ProductID        string     `json:"product_id"`
	CurrentStock     int64      `json:"current_stock"`
	ReservedQuantity int64      `json:"reserved_quantity"`
	Available        int64      `json:"available"`
	MinStock         int64      `json:"min_stock"`
	MaxStock         *int64     `json:"max_stock"`
	LowStock         bool       `json:"low_stock"`
	Active           bool       `json:"active"`
	LastMovementAt   *time.Time `json:"last_movement_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// MovementResponse salida de un movimiento del libro.
type MovementResponse struct {
	ID             int64     `json:"id"`
	BalanceID      string    `json:"balance_id"`
	MovementType   string    `json:"movement_type"`
	Direction      string    `json:"direction"`
	Quantity       int64     `json:"quantity"`
	SignedDelta    int64     `json:"signed_delta"`
	ReferenceType  string    `json:"reference_type"`
	ReferenceID    *string   `json:"reference_id,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	Notes          string    `json:"notes,omitempty"`
	ActorID        string    `json:"actor_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// MovementListResponse página de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// BalanceListResponse página de saldos.
type BalanceListResponse struct {
	Items []BalanceResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// ProductAggregateResponse stock de un producto en todas las bodegas.
type ProductAggregateResponse struct {
	ProductID      string `json:"product_id"`
	TotalStock     int64  `json:"total_stock"`
	WarehouseCount int    `json:"warehouse_count"`
	HasLowStock    bool   `json:"has_low_stock"`
}

// ProductAggregateListResponse página de agregados por producto.
type ProductAggregateListResponse struct {
	Items []ProductAggregateResponse `json:"items"`
	Page  PageResponse               `json:"page"`
}

// ProductStockDetailResponse detalle de un producto: total, saldos por bodega y últimos movimientos.
type ProductStockDetailResponse struct {
	ProductID       string             `json:"product_id"`
	TotalStock      int64              `json:"total_stock"`
	Balances        []BalanceResponse  `json:"balances"`
	RecentMovements []MovementResponse `json:"recent_movements"`
}

// LowStockItemDTO saldo bajo el mínimo con la cantidad sugerida de reposición.
type LowStockItemDTO struct {
	BalanceResponse
	Deficit           int64 `json:"deficit"`             // MinStock - CurrentStock
	SuggestedOrderQty int64 `json:"suggested_order_qty"` // hasta MaxStock (o MinStock si no hay tope)
}

// LowStockListResponse página del monitor de stock bajo.
type LowStockListResponse struct {
	Items []LowStockItemDTO `json:"items"`
	Page  PageResponse      `json:"page"`
}

// ReplayResponse resultado de reconstruir un saldo desde el libro.
type ReplayResponse struct {
	BalanceID     string `json:"balance_id"`
	CachedStock   int64  `json:"cached_stock"`
	ReplayedStock int64  `json:"replayed_stock"`
	MovementCount int    `json:"movement_count"`
	Consistent    bool   `json:"consistent"`
}
