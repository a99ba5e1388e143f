package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockEventRepository = (*StockEventRepo)(nil)

// StockEventRepo log de auditoría sobre PostgreSQL (usable con pool o tx).
type StockEventRepo struct {
	q Querier
}

// NewStockEventRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockEventRepository(q Querier) *StockEventRepo {
	return &StockEventRepo{q: q}
}

// Append persiste un evento de stock (solo inserción).
func (r *StockEventRepo) Append(ctx context.Context, event *entity.StockEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_events (id, type, product_id, size, color, delta, quantity_before, quantity_after, reason, actor, idempotency_key, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`
	var actor, key *string
	if event.Actor != "" {
		actor = &event.Actor
	}
	if event.IdempotencyKey != "" {
		key = &event.IdempotencyKey
	}
	_, err := r.q.Exec(ctx, query,
		event.ID, event.Type, event.ProductID, event.Size, event.Color,
		event.Delta, event.QuantityBefore, event.QuantityAfter,
		event.Reason, actor, key, event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append stock event: %w", mapError(err))
	}
	return nil
}

// ListByProduct lista eventos de un producto en un rango de fechas (más recientes primero).
func (r *StockEventRepo) ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockEvent, error) {
	query := `
		SELECT id, type, product_id, size, color, delta, quantity_before, quantity_after, reason, actor, idempotency_key, occurred_at
		FROM stock_events WHERE product_id = $1`
	args := []any{productID}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND occurred_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND occurred_at <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock events: %w", mapError(err))
	}
	defer rows.Close()
	var list []*entity.StockEvent
	for rows.Next() {
		var ev entity.StockEvent
		var actor, key *string
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.ProductID, &ev.Size, &ev.Color,
			&ev.Delta, &ev.QuantityBefore, &ev.QuantityAfter, &ev.Reason, &actor, &key, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan stock event: %w", err)
		}
		if actor != nil {
			ev.Actor = *actor
		}
		if key != nil {
			ev.IdempotencyKey = *key
		}
		list = append(list, &ev)
	}
	return list, rows.Err()
}
