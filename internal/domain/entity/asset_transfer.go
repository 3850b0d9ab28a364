package entity

import (
	"fmt"
	"time"
)

// TransferStatus estado de un traslado de activos (enum cerrado).
type TransferStatus string

const (
	TransferPending            TransferStatus = "PENDING"
	TransferApproved           TransferStatus = "APPROVED"
	TransferPreparing          TransferStatus = "PREPARING"
	TransferInTransit          TransferStatus = "IN_TRANSIT"
	TransferDelivered          TransferStatus = "DELIVERED"
	TransferCompleted          TransferStatus = "COMPLETED"
	TransferPartiallyCompleted TransferStatus = "PARTIALLY_COMPLETED"
	TransferCancelled          TransferStatus = "CANCELLED"
	TransferRejected           TransferStatus = "REJECTED"
)

// AllTransferStatuses en orden del ciclo de vida.
var AllTransferStatuses = []TransferStatus{
	TransferPending, TransferApproved, TransferPreparing, TransferInTransit,
	TransferDelivered, TransferCompleted, TransferPartiallyCompleted,
	TransferCancelled, TransferRejected,
}

// transferTransitions tabla de transiciones permitidas. Cualquier par ausente se rechaza.
var transferTransitions = map[TransferStatus][]TransferStatus{
	TransferPending:   {TransferApproved, TransferRejected, TransferCancelled},
	TransferApproved:  {TransferPreparing, TransferCancelled},
	TransferPreparing: {TransferInTransit},
	TransferInTransit: {TransferDelivered, TransferCompleted, TransferPartiallyCompleted},
	TransferDelivered: {TransferCompleted, TransferPartiallyCompleted},
}

// CanTransition indica si el par (from, to) existe en la tabla.
func CanTransition(from, to TransferStatus) bool {
	for _, s := range transferTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Valid indica si el estado pertenece al enum.
func (s TransferStatus) Valid() bool {
	for _, v := range AllTransferStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal estados sin transiciones de salida.
func (s TransferStatus) IsTerminal() bool {
	return len(transferTransitions[s]) == 0
}

// StockShipped indica si ya salió mercancía de la bodega origen.
func (s TransferStatus) StockShipped() bool {
	switch s {
	case TransferInTransit, TransferDelivered, TransferCompleted, TransferPartiallyCompleted:
		return true
	}
	return false
}

// ParseTransferStatus convierte un string al enum; error si no existe.
func ParseTransferStatus(s string) (TransferStatus, error) {
	st := TransferStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("estado de traslado desconocido: %q", s)
	}
	return st, nil
}

// AssetTransfer traslado de productos desde una bodega origen hacia un destino.
type AssetTransfer struct {
	ID                 string
	TransferCode       string
	SourceWarehouseID  string
	TargetLocationID   string
	TransferDate       *time.Time // fecha planificada
	ActualTransferDate *time.Time // fecha real de despacho
	Status             TransferStatus
	Notes              string
	RequestedByUserID  string
	ApprovedByUserID   string
	DeliveredByUserID  string
	ReceivedByUserID   string
	Version            int64
	Items              []*TransferItem
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TransferItem línea de un traslado.
type TransferItem struct {
	ID                  string
	TransferID          string
	ProductID           string
	RequestedQuantity   int64
	TransferredQuantity *int64 // nil hasta el despacho o hasta que el operador la fije
	SerialNumbers       string
	ConditionNotes      string
	Notes               string
}

// Item busca una línea por ID.
func (t *AssetTransfer) Item(itemID string) *TransferItem {
	for _, it := range t.Items {
		if it.ID == itemID {
			return it
		}
	}
	return nil
}

// Totals suma cantidades solicitadas y transferidas (las no fijadas cuentan 0).
func (t *AssetTransfer) Totals() (requested, transferred int64) {
	for _, it := range t.Items {
		requested += it.RequestedQuantity
		if it.TransferredQuantity != nil {
			transferred += *it.TransferredQuantity
		}
	}
	return requested, transferred
}

// AppendNote agrega una línea a las notas del traslado.
func (t *AssetTransfer) AppendNote(line string) {
	if t.Notes == "" {
		t.Notes = line
		return
	}
	t.Notes += "\n\n" + line
}

// Clone copia profunda (los repositorios en memoria la usan para aislar estado).
func (t *AssetTransfer) Clone() *AssetTransfer {
	if t == nil {
		return nil
	}
	c := *t
	c.TransferDate = cloneTime(t.TransferDate)
	c.ActualTransferDate = cloneTime(t.ActualTransferDate)
	c.Items = make([]*TransferItem, 0, len(t.Items))
	for _, it := range t.Items {
		ci := *it
		if it.TransferredQuantity != nil {
			q := *it.TransferredQuantity
			ci.TransferredQuantity = &q
		}
		c.Items = append(c.Items, &ci)
	}
	return &c
}

// IsFullyTransferred la línea se movió completa.
func (i *TransferItem) IsFullyTransferred() bool {
	return i.TransferredQuantity != nil && *i.TransferredQuantity == i.RequestedQuantity
}

// RemainingQuantity lo que falta por mover.
func (i *TransferItem) RemainingQuantity() int64 {
	if i.TransferredQuantity == nil {
		return i.RequestedQuantity
	}
	if r := i.RequestedQuantity - *i.TransferredQuantity; r > 0 {
		return r
	}
	return 0
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
