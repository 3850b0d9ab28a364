package entity

import "time"

// Warehouse representa una bodega o ubicación destino (dato maestro externo, solo lectura aquí).
type Warehouse struct {
	ID        string
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
