package entity

import "time"

// Tipos de evento de stock.
const (
	StockEventReserve = "reserve" // salida por pedido
	StockEventRestore = "restore" // devolución por cancelación o reposición
	StockEventAdjust  = "adjust"  // corrección administrativa (valor absoluto)
	StockEventDeduct  = "deduct"  // celda eliminada por edición de catálogo
)

// StockEvent registro de auditoría de una mutación. Inmutable; nunca se relee para reconstruir
// el estado (la matriz es la fuente de verdad).
type StockEvent struct {
	ID             string
	Type           string
	ProductID      string
	Size           string
	Color          string
	Delta          int // con signo
	QuantityBefore int
	QuantityAfter  int
	Reason         string
	Actor          string
	IdempotencyKey string
	OccurredAt     time.Time
}
