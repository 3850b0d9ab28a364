package entity

import "time"

// StockBalance representa el saldo actual de un producto en una bodega.
// Es una proyección derivada del libro de movimientos: CurrentStock == Σ SignedDelta.
// Nunca se elimina físicamente; solo se desactiva.
type StockBalance struct {
	ID               string
	WarehouseID      string
	ProductID        string
	CurrentStock     int64
	ReservedQuantity int64
	MinStock         int64
	MaxStock         *int64 // nil = sin tope
	LastMovementAt   *time.Time
	Active           bool
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewStockBalance crea un saldo en cero, activo y sin umbrales.
func NewStockBalance(id, warehouseID, productID string, now time.Time) *StockBalance {
	return &StockBalance{
		ID:          id,
		WarehouseID: warehouseID,
		ProductID:   productID,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Available devuelve el stock libre (actual menos reservado).
func (b *StockBalance) Available() int64 {
	return b.CurrentStock - b.ReservedQuantity
}

// IsLowStock es verdadero si el saldo está activo y por debajo del mínimo.
func (b *StockBalance) IsLowStock() bool {
	return b.Active && b.CurrentStock < b.MinStock
}

// SuggestedOrderQty cantidad para volver al máximo (o al mínimo si no hay tope).
func (b *StockBalance) SuggestedOrderQty() int64 {
	target := b.MinStock
	if b.MaxStock != nil {
		target = *b.MaxStock
	}
	if q := target - b.CurrentStock; q > 0 {
		return q
	}
	return 0
}
