package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrDuplicate             = errors.New("recurso duplicado")
	ErrUnauthorized          = errors.New("no autorizado")
	ErrInsufficientStock     = errors.New("stock insuficiente")
	ErrUnknownVariant        = errors.New("variante no declarada en el producto")
	ErrInvalidQuantity       = errors.New("cantidad inválida")
	ErrVersionConflict       = errors.New("conflicto de versión")
	ErrRepositoryUnavailable = errors.New("repositorio no disponible")
	ErrOutcomeUnknown        = errors.New("resultado de la escritura desconocido")
	ErrDuplicateOperation    = errors.New("operación ya aplicada")
)

// InsufficientStockError detalla un Reserve rechazado. Available se toma de una relectura
// posterior al intento fallido, no del valor leído antes de intentarlo.
type InsufficientStockError struct {
	ProductID string
	Size      string
	Color     string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s (%s/%s): solo quedan %d disponibles", e.ProductID, e.Size, e.Color, e.Available)
}

// Unwrap permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
