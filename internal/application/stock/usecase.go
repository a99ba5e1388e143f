package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	ledger "github.com/jhoicas/stock-ledger/internal/domain/stock"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// LedgerUseCase aplica Reserve/Restore/Adjust sobre la matriz de un producto.
// Cada mutación se serializa por producto (Locker) y se escribe con compare-and-swap de versión;
// un ErrVersionConflict (otra instancia escribió entretanto) repite el ciclo completo.
type LedgerUseCase struct {
	stockRepo  repository.StockRepository
	recordRepo repository.VariantRecordRepository
	sink       repository.EventSink
	history    repository.StockEventRepository
	mutator    *ledger.Mutator
	locks      Locker
	retry      RetryPolicy
	log        *logger.Logger
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(
	stockRepo repository.StockRepository,
	recordRepo repository.VariantRecordRepository,
	sink repository.EventSink,
	locks Locker,
	retry RetryPolicy,
	log *logger.Logger,
) *LedgerUseCase {
	if locks == nil {
		locks = NewKeyedLocker()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &LedgerUseCase{
		stockRepo:  stockRepo,
		recordRepo: recordRepo,
		sink:       sink,
		mutator:    ledger.NewMutator(),
		locks:      locks,
		retry:      retry,
		log:        log.Component("stock-ledger"),
	}
}

// WithMutator reemplaza el mutador (tests con reloj fijo).
func (uc *LedgerUseCase) WithMutator(m *ledger.Mutator) *LedgerUseCase {
	uc.mutator = m
	return uc
}

// MutationInput entrada de Reserve/Restore/Adjust. Para Adjust, Quantity es el valor absoluto.
type MutationInput struct {
	ProductID      string
	Size           string
	Color          string
	Quantity       int
	Reason         string
	Actor          string
	IdempotencyKey string
}

// ReserveStock descuenta stock para un pedido. Devuelve la nueva cantidad o
// *domain.InsufficientStockError / domain.ErrUnknownVariant. Sin IdempotencyKey se intenta la
// escritura una sola vez: si su resultado es desconocido devuelve domain.ErrOutcomeUnknown y el
// llamador debe releer antes de reintentar.
func (uc *LedgerUseCase) ReserveStock(ctx context.Context, in MutationInput) (int, error) {
	return uc.mutate(ctx, entity.StockEventReserve, in)
}

// RestoreStock devuelve stock (cancelación de pedido o reposición). Con IdempotencyKey es seguro
// reintentarlo: la segunda aplicación no suma de nuevo.
func (uc *LedgerUseCase) RestoreStock(ctx context.Context, in MutationInput) (int, error) {
	return uc.mutate(ctx, entity.StockEventRestore, in)
}

// AdjustStock fija la cantidad absoluta de una celda (corrección administrativa).
func (uc *LedgerUseCase) AdjustStock(ctx context.Context, in MutationInput) (int, error) {
	return uc.mutate(ctx, entity.StockEventAdjust, in)
}

// GetAvailability lee la matriz y deriva la disponibilidad sobre las combinaciones declaradas.
func (uc *LedgerUseCase) GetAvailability(ctx context.Context, productID string) (*dto.AvailabilityResponse, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	current, err := uc.read(ctx, productID)
	if err != nil {
		return nil, err
	}
	return toAvailabilityResponse(current), nil
}

func (uc *LedgerUseCase) mutate(ctx context.Context, op string, in MutationInput) (int, error) {
	if in.ProductID == "" {
		return 0, domain.ErrInvalidInput
	}
	req := ledger.Request{
		Size:           ledger.NormalizeLabel(in.Size),
		Color:          ledger.NormalizeLabel(in.Color),
		Quantity:       in.Quantity,
		Reason:         in.Reason,
		Actor:          in.Actor,
		IdempotencyKey: in.IdempotencyKey,
	}
	if req.Quantity < 0 {
		return 0, domain.ErrInvalidQuantity
	}

	unlock := uc.locks.Lock(in.ProductID)
	defer unlock()

	// Adjust es absoluto y con llave de idempotencia la repetición no se aplica dos veces:
	// solo en esos casos se reintenta una escritura cuyo resultado se desconoce.
	replaySafe := op == entity.StockEventAdjust || req.IdempotencyKey != ""

	var lastErr error
	for attempt := 1; attempt <= uc.retry.attempts(); attempt++ {
		if attempt > 1 {
			if err := uc.retry.wait(ctx, attempt-1); err != nil {
				return 0, err
			}
		}

		current, err := uc.stockRepo.ReadMatrix(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrRepositoryUnavailable) {
				lastErr = err
				uc.log.Warn().Err(err).Str("product_id", in.ProductID).Int("attempt", attempt).Msg("lectura de stock fallida, reintentando")
				continue
			}
			return 0, err
		}

		if req.IdempotencyKey != "" {
			applied, err := uc.stockRepo.HasAppliedKey(ctx, in.ProductID, op, req.IdempotencyKey)
			if err != nil {
				if errors.Is(err, domain.ErrRepositoryUnavailable) {
					lastErr = err
					continue
				}
				return 0, err
			}
			// Un intento anterior ya se aplicó (p. ej. escritura confirmada con respuesta perdida).
			if applied {
				uc.log.Info().Str("product_id", in.ProductID).Str("idempotency_key", req.IdempotencyKey).Msg("operación ya aplicada, se devuelve el estado actual")
				return current.Matrix.Quantity(req.Size, req.Color), nil
			}
		}

		res, err := uc.mutator.Apply(current, op, req)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) {
				return 0, uc.insufficient(ctx, in.ProductID, err)
			}
			if op == entity.StockEventRestore && errors.Is(err, domain.ErrUnknownVariant) {
				uc.log.Warn().
					Str("product_id", in.ProductID).
					Str("size", req.Size).
					Str("color", req.Color).
					Int("quantity", req.Quantity).
					Str("idempotency_key", req.IdempotencyKey).
					Msg("devolución rechazada: la variante ya no está declarada, las unidades no se reingresan")
			}
			return 0, err
		}
		if res.Event == nil {
			return res.NewQuantity, nil
		}

		_, err = uc.stockRepo.WriteMatrix(ctx, repository.StockWrite{
			ProductID:       current.ProductID,
			Sizes:           current.Sizes,
			Colors:          current.Colors,
			Matrix:          res.Matrix,
			InStock:         ledger.InStock(res.Matrix, current.Sizes, current.Colors),
			ExpectedVersion: current.Version,
			Operation:       op,
			IdempotencyKey:  req.IdempotencyKey,
		})
		switch {
		case err == nil:
			uc.log.Debug().
				Str("op", op).
				Str("product_id", in.ProductID).
				Str("size", req.Size).
				Str("color", req.Color).
				Int("delta", res.Event.Delta).
				Int("new_qty", res.NewQuantity).
				Msg("stock actualizado")
			uc.emit(ctx, res.Event)
			return res.NewQuantity, nil
		case errors.Is(err, domain.ErrDuplicateOperation):
			uc.log.Info().Str("product_id", in.ProductID).Str("idempotency_key", req.IdempotencyKey).Msg("operación ya aplicada, se devuelve el estado actual")
			return uc.currentQuantity(ctx, in.ProductID, req.Size, req.Color)
		case errors.Is(err, domain.ErrVersionConflict):
			lastErr = err
			uc.log.Warn().Str("product_id", in.ProductID).Int64("version", current.Version).Int("attempt", attempt).Msg("conflicto de versión, reintentando")
			continue
		case errors.Is(err, domain.ErrRepositoryUnavailable):
			if !replaySafe {
				uc.log.Error().Err(err).Str("op", op).Str("product_id", in.ProductID).Msg("escritura con resultado desconocido")
				return 0, fmt.Errorf("%w: %w", domain.ErrOutcomeUnknown, err)
			}
			lastErr = err
			uc.log.Warn().Err(err).Str("product_id", in.ProductID).Int("attempt", attempt).Msg("escritura fallida, reintentando")
			continue
		default:
			return 0, err
		}
	}
	return 0, fmt.Errorf("%s %s: reintentos agotados: %w", op, in.ProductID, lastErr)
}

// insufficient relee la matriz para informar la cantidad disponible actual, no la leída antes
// del intento.
func (uc *LedgerUseCase) insufficient(ctx context.Context, productID string, cause error) error {
	var ise *domain.InsufficientStockError
	if !errors.As(cause, &ise) {
		return cause
	}
	if fresh, err := uc.stockRepo.ReadMatrix(ctx, productID); err == nil {
		ise.Available = fresh.Matrix.Quantity(ise.Size, ise.Color)
	}
	uc.log.Info().
		Str("product_id", productID).
		Str("size", ise.Size).
		Str("color", ise.Color).
		Int("requested", ise.Requested).
		Int("available", ise.Available).
		Msg("reserva rechazada por stock insuficiente")
	return ise
}

func (uc *LedgerUseCase) currentQuantity(ctx context.Context, productID, size, color string) (int, error) {
	current, err := uc.read(ctx, productID)
	if err != nil {
		return 0, err
	}
	return current.Matrix.Quantity(size, color), nil
}

// read lectura con reintentos ante ErrRepositoryUnavailable (leer siempre es seguro).
func (uc *LedgerUseCase) read(ctx context.Context, productID string) (*entity.ProductStock, error) {
	var lastErr error
	for attempt := 1; attempt <= uc.retry.attempts(); attempt++ {
		if attempt > 1 {
			if err := uc.retry.wait(ctx, attempt-1); err != nil {
				return nil, err
			}
		}
		current, err := uc.stockRepo.ReadMatrix(ctx, productID)
		if err == nil {
			return current, nil
		}
		if !errors.Is(err, domain.ErrRepositoryUnavailable) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// emit envía el evento al sink de auditoría; un fallo se registra y nunca afecta la mutación.
func (uc *LedgerUseCase) emit(ctx context.Context, ev *entity.StockEvent) {
	if uc.sink == nil || ev == nil {
		return
	}
	if err := uc.sink.Append(context.WithoutCancel(ctx), ev); err != nil {
		uc.log.Warn().Err(err).Str("event_id", ev.ID).Str("product_id", ev.ProductID).Msg("no se pudo registrar evento de stock")
	}
}

func toAvailabilityResponse(p *entity.ProductStock) *dto.AvailabilityResponse {
	av := ledger.ComputeAvailability(p.Matrix, p.Sizes, p.Colors)
	per := make([]dto.VariantQuantityDTO, 0, len(p.Sizes)*len(p.Colors))
	for _, s := range p.Sizes {
		for _, c := range p.Colors {
			per = append(per, dto.VariantQuantityDTO{
				Size:     s,
				Color:    c,
				Quantity: av.PerCombination[entity.VariantKey{Size: s, Color: c}],
			})
		}
	}
	return &dto.AvailabilityResponse{
		ProductID:        p.ProductID,
		PerCombination:   per,
		Total:            av.Total,
		InStock:          av.InStock,
		ForcedOutOfStock: p.ForcedOutOfStock,
		Sellable:         av.InStock && !p.ForcedOutOfStock,
		Version:          p.Version,
		UpdatedAt:        p.UpdatedAt,
	}
}

func nowUTC() time.Time { return time.Now().UTC() }
