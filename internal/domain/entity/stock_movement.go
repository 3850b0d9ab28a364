package entity

import "time"

// MovementType tipo de movimiento de stock.
type MovementType string

// Tipos de movimiento.
const (
	MovementTypeIn         MovementType = "IN"         // entrada
	MovementTypeOut        MovementType = "OUT"        // salida
	MovementTypeTransfer   MovementType = "TRANSFER"   // traslado (requiere dirección)
	MovementTypeAdjustment MovementType = "ADJUSTMENT" // ajuste (requiere dirección)
)

// Valid indica si el tipo es conocido.
func (t MovementType) Valid() bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeTransfer, MovementTypeAdjustment:
		return true
	}
	return false
}

// Direction sentido del movimiento sobre el saldo.
type Direction string

const (
	DirectionIncrease Direction = "INCREASE"
	DirectionDecrease Direction = "DECREASE"
)

// ResolveDirection devuelve la dirección efectiva del movimiento.
// IN siempre suma y OUT siempre resta; TRANSFER y ADJUSTMENT exigen dirección explícita.
func ResolveDirection(t MovementType, d Direction) (Direction, bool) {
	switch t {
	case MovementTypeIn:
		if d == "" || d == DirectionIncrease {
			return DirectionIncrease, true
		}
	case MovementTypeOut:
		if d == "" || d == DirectionDecrease {
			return DirectionDecrease, true
		}
	case MovementTypeTransfer, MovementTypeAdjustment:
		if d == DirectionIncrease || d == DirectionDecrease {
			return d, true
		}
	}
	return "", false
}

// SignedDelta aplica el signo de la dirección a la cantidad.
func SignedDelta(d Direction, quantity int64) int64 {
	if d == DirectionDecrease {
		return -quantity
	}
	return quantity
}

// ReferenceType origen del movimiento.
type ReferenceType string

const (
	ReferencePurchaseOrder ReferenceType = "PURCHASE_ORDER"
	ReferenceTransfer      ReferenceType = "TRANSFER"
	ReferenceAdjustment    ReferenceType = "ADJUSTMENT"
	ReferenceManual        ReferenceType = "MANUAL"
)

// Valid indica si el tipo de referencia es conocido.
func (r ReferenceType) Valid() bool {
	switch r {
	case ReferencePurchaseOrder, ReferenceTransfer, ReferenceAdjustment, ReferenceManual:
		return true
	}
	return false
}

// StockMovement es un registro inmutable del libro de stock (append-only).
type StockMovement struct {
	ID             int64 // monotónico creciente
	BalanceID      string
	MovementType   MovementType
	Direction      Direction
	Quantity       int64 // siempre > 0
	SignedDelta    int64
	ReferenceType  ReferenceType
	ReferenceID    *string
	IdempotencyKey string
	Notes          string
	ActorID        string
	CreatedAt      time.Time
}

// RefID devuelve el ID de referencia o vacío.
func (m *StockMovement) RefID() string {
	if m.ReferenceID == nil {
		return ""
	}
	return *m.ReferenceID
}
