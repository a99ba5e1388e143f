package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockEventRepository = (*StockEventRepo)(nil)

// StockEventRepo log de auditoría en memoria (solo anexa).
type StockEventRepo struct {
	mu     sync.RWMutex
	events []*entity.StockEvent
}

// NewStockEventRepository construye el log vacío.
func NewStockEventRepository() *StockEventRepo {
	return &StockEventRepo{}
}

// Append anexa una copia del evento.
func (r *StockEventRepo) Append(_ context.Context, event *entity.StockEvent) error {
	cp := *event
	r.mu.Lock()
	r.events = append(r.events, &cp)
	r.mu.Unlock()
	return nil
}

// ListByProduct eventos de un producto, más recientes primero, filtrados por fecha opcional.
func (r *StockEventRepo) ListByProduct(_ context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.StockEvent
	skipped := 0
	for i := len(r.events) - 1; i >= 0; i-- {
		ev := r.events[i]
		if ev.ProductID != productID {
			continue
		}
		if from != nil && ev.OccurredAt.Before(*from) {
			continue
		}
		if to != nil && ev.OccurredAt.After(*to) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		cp := *ev
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Len cantidad total de eventos.
func (r *StockEventRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}
