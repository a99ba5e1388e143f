package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// EventSink destino de auditoría de eventos de stock. Su fallo nunca debe bloquear ni
// hacer fallar la mutación que describe.
type EventSink interface {
	Append(ctx context.Context, event *entity.StockEvent) error
}

// StockEventRepository consulta de auditoría (depuración); nunca se usa para reconstruir stock.
type StockEventRepository interface {
	EventSink
	ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockEvent, error)
}
