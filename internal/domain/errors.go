package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInvalidQuantity   = errors.New("cantidad inválida: debe ser mayor a cero")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrThresholdInvalid  = errors.New("umbrales inválidos: se requiere 0 <= min <= max")
	ErrInvalidTransition = errors.New("transición de estado inválida")
	ErrDuplicateMovement = errors.New("movimiento duplicado")
)

// TransitionError detalla una transición rechazada por la máquina de estados de traslados.
type TransitionError struct {
	Op   string // approve, start_transit, complete, ...
	From string // estado actual
	To   string // estado destino intentado
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transición inválida %s: estado actual %s, destino %s", e.Op, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// InsufficientStockError detalla el faltante de un saldo.
type InsufficientStockError struct {
	BalanceID string
	ProductID string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente en saldo %s (producto %s): disponible %d, solicitado %d",
		e.BalanceID, e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ValidationError indica qué campo falló y por qué.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validación: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError construye un ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsRetryable indica si la operación puede reintentarse completa.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
