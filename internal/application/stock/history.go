package stock

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// WithHistory habilita la consulta del log de auditoría (el sink puede ser asíncrono y no
// permitir lecturas).
func (uc *LedgerUseCase) WithHistory(history repository.StockEventRepository) *LedgerUseCase {
	uc.history = history
	return uc
}

// ListEvents eventos de stock de un producto, más recientes primero.
func (uc *LedgerUseCase) ListEvents(ctx context.Context, productID string, from, to *time.Time, page dto.PageRequest) ([]dto.StockEventDTO, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	if uc.history == nil {
		return []dto.StockEventDTO{}, nil
	}
	page.DefaultPage()
	list, err := uc.history.ListByProduct(ctx, productID, from, to, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StockEventDTO, 0, len(list))
	for _, ev := range list {
		out = append(out, toEventDTO(ev))
	}
	return out, nil
}

func toEventDTO(ev *entity.StockEvent) dto.StockEventDTO {
	return dto.StockEventDTO{
		ID:             ev.ID,
		Type:           ev.Type,
		Size:           ev.Size,
		Color:          ev.Color,
		Delta:          ev.Delta,
		QuantityBefore: ev.QuantityBefore,
		QuantityAfter:  ev.QuantityAfter,
		Reason:         ev.Reason,
		Actor:          ev.Actor,
		OccurredAt:     ev.OccurredAt,
	}
}
