package stock

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	ledger "github.com/jhoicas/stock-ledger/internal/domain/stock"
)

// CreateProductInput alta de la matriz de un producto.
type CreateProductInput struct {
	ProductID    string
	Sizes        []string
	Colors       []string
	SeedQuantity int
	Initial      map[string]map[string]int // cantidades explícitas por (talla, color) declarados
	Actor        string
}

// CreateProduct crea la matriz con SeedQuantity (0 por defecto) para cada par declarado,
// sobrescrita por Initial donde se indique, y los registros secundarios por variante.
func (uc *LedgerUseCase) CreateProduct(ctx context.Context, in CreateProductInput) (*dto.AvailabilityResponse, error) {
	if in.ProductID == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.SeedQuantity < 0 || in.SeedQuantity > ledger.MaxQuantity {
		return nil, domain.ErrInvalidQuantity
	}
	sizes := ledger.NormalizeLabels(in.Sizes)
	colors := ledger.NormalizeLabels(in.Colors)
	matrix := entity.NewVariantMatrix(sizes, colors, in.SeedQuantity)

	p := &entity.ProductStock{ProductID: in.ProductID, Sizes: sizes, Colors: colors}
	for size, row := range in.Initial {
		for color, qty := range row {
			s, c := ledger.NormalizeLabel(size), ledger.NormalizeLabel(color)
			if !p.HasVariant(s, c) {
				return nil, domain.ErrUnknownVariant
			}
			if qty < 0 || qty > ledger.MaxQuantity {
				return nil, domain.ErrInvalidQuantity
			}
			matrix[s][c] = qty
		}
	}
	p.Matrix = matrix
	p.InStock = ledger.InStock(matrix, sizes, colors)
	p.UpdatedAt = nowUTC()

	unlock := uc.locks.Lock(in.ProductID)
	defer unlock()

	if err := uc.stockRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	if err := uc.recordRepo.EnsureForPairs(ctx, p.VariantKeys()); err != nil {
		// la reconciliación y la próxima edición de catálogo convergen el almacén secundario
		uc.log.Warn().Err(err).Str("product_id", p.ProductID).Msg("no se pudieron crear registros por variante")
	}
	for _, c := range matrix.Cells() {
		if c.Quantity == 0 {
			continue
		}
		uc.emit(ctx, &entity.StockEvent{
			ID:             uc.mutator.NewID(),
			Type:           entity.StockEventAdjust,
			ProductID:      p.ProductID,
			Size:           c.Size,
			Color:          c.Color,
			Delta:          c.Quantity,
			QuantityBefore: 0,
			QuantityAfter:  c.Quantity,
			Reason:         "alta de producto",
			Actor:          in.Actor,
			OccurredAt:     p.UpdatedAt,
		})
	}
	uc.log.Info().Str("product_id", p.ProductID).Int("sizes", len(sizes)).Int("colors", len(colors)).Msg("matriz de stock creada")
	return toAvailabilityResponse(p), nil
}

// UpdateVariantsInput edición de catálogo: nuevas listas de tallas y colores declarados.
type UpdateVariantsInput struct {
	ProductID string
	Sizes     []string
	Colors    []string
	Reason    string
	Actor     string
}

// UpdateVariants reemplaza las tallas/colores declarados. Las celdas de pares eliminados se podan
// de la matriz (evento deduct si tenían stock) y sus registros secundarios se borran en cascada;
// los pares nuevos inician en 0.
func (uc *LedgerUseCase) UpdateVariants(ctx context.Context, in UpdateVariantsInput) (*dto.UpdateVariantsResponse, error) {
	if in.ProductID == "" {
		return nil, domain.ErrInvalidInput
	}
	sizes := ledger.NormalizeLabels(in.Sizes)
	colors := ledger.NormalizeLabels(in.Colors)

	unlock := uc.locks.Lock(in.ProductID)
	defer unlock()

	var (
		lastErr error
		pending *catalogEdit
	)
	for attempt := 1; attempt <= uc.retry.attempts(); attempt++ {
		if attempt > 1 {
			if err := uc.retry.wait(ctx, attempt-1); err != nil {
				return nil, err
			}
		}
		current, err := uc.stockRepo.ReadMatrix(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrRepositoryUnavailable) {
				lastErr = err
				continue
			}
			return nil, err
		}

		next := &entity.ProductStock{ProductID: current.ProductID, Sizes: sizes, Colors: colors}
		var edit *catalogEdit
		if pending != nil && pending.landedIn(current, sizes, colors) {
			// La escritura anterior se confirmó aunque la respuesta se perdió: el diff válido es el
			// calculado contra la lectura previa, no contra la actual (que ya no muestra cambios).
			edit = pending
			next.Matrix = current.Matrix
			next.Version = current.Version
		} else {
			edit = &catalogEdit{baseVersion: current.Version}
			edit.removed, edit.added = diffVariants(current, next)

			pruned, removedCells := ledger.DeleteVariant(current.Matrix, ledger.RemovedFrom(sizes, colors))
			edit.cells = removedCells
			for _, k := range edit.added {
				if _, ok := pruned[k.Size]; !ok {
					pruned[k.Size] = make(map[string]int)
				}
				if _, ok := pruned[k.Size][k.Color]; !ok {
					pruned[k.Size][k.Color] = 0
				}
			}

			// Una edición de catálogo es absoluta: repetirla tras un resultado desconocido es seguro.
			_, err = uc.stockRepo.WriteMatrix(ctx, repository.StockWrite{
				ProductID:       current.ProductID,
				Sizes:           sizes,
				Colors:          colors,
				Matrix:          pruned,
				InStock:         ledger.InStock(pruned, sizes, colors),
				ExpectedVersion: current.Version,
			})
			if err != nil {
				if errors.Is(err, domain.ErrVersionConflict) || errors.Is(err, domain.ErrRepositoryUnavailable) {
					lastErr = err
					pending = nil
					if errors.Is(err, domain.ErrRepositoryUnavailable) {
						pending = edit
					}
					uc.log.Warn().Err(err).Str("product_id", in.ProductID).Int("attempt", attempt).Msg("edición de catálogo reintentada")
					continue
				}
				return nil, err
			}
			next.Matrix = pruned
			next.Version = current.Version + 1
		}
		removedKeys, addedKeys := edit.removed, edit.added

		reason := in.Reason
		if reason == "" {
			reason = "edición de catálogo"
		}
		for _, ev := range uc.mutator.DeductEvents(current.ProductID, edit.cells, reason, in.Actor) {
			uc.emit(ctx, ev)
		}
		uc.cascadeRecords(ctx, current.ProductID, removedKeys, addedKeys)

		next.ForcedOutOfStock = current.ForcedOutOfStock
		next.UpdatedAt = nowUTC()
		uc.log.Info().
			Str("product_id", current.ProductID).
			Int("removed", len(removedKeys)).
			Int("added", len(addedKeys)).
			Msg("variantes del producto actualizadas")
		return &dto.UpdateVariantsResponse{
			Added:        toKeyDTOs(addedKeys),
			Removed:      toKeyDTOs(removedKeys),
			Availability: *toAvailabilityResponse(next),
		}, nil
	}
	return nil, fmt.Errorf("update variants %s: reintentos agotados: %w", in.ProductID, lastErr)
}

// DeleteProduct destruye la matriz y los registros secundarios del producto.
func (uc *LedgerUseCase) DeleteProduct(ctx context.Context, productID string) error {
	if productID == "" {
		return domain.ErrInvalidInput
	}
	unlock := uc.locks.Lock(productID)
	defer unlock()

	if err := uc.stockRepo.Delete(ctx, productID); err != nil {
		return err
	}
	n, err := uc.recordRepo.DeleteByProduct(ctx, productID)
	if err != nil {
		uc.log.Warn().Err(err).Str("product_id", productID).Msg("registros por variante pendientes de reconciliación")
		return nil
	}
	uc.log.Info().Str("product_id", productID).Int("records_deleted", n).Msg("producto eliminado del ledger")
	return nil
}

// SetForcedOutOfStock activa o desactiva el "agotado forzado" administrativo. No toca la matriz.
func (uc *LedgerUseCase) SetForcedOutOfStock(ctx context.Context, productID string, forced bool) (*dto.AvailabilityResponse, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := uc.stockRepo.SetForcedOutOfStock(ctx, productID, forced); err != nil {
		return nil, err
	}
	return uc.GetAvailability(ctx, productID)
}

func (uc *LedgerUseCase) cascadeRecords(ctx context.Context, productID string, removed, added []entity.VariantKey) {
	if len(removed) > 0 {
		n, err := uc.recordRepo.DeleteByVariant(ctx, removed)
		if err != nil {
			uc.log.Warn().Err(err).Str("product_id", productID).Msg("borrado en cascada incompleto; la reconciliación eliminará los huérfanos")
		} else {
			uc.log.Debug().Str("product_id", productID).Int("deleted", n).Msg("registros por variante eliminados")
		}
	}
	if len(added) > 0 {
		if err := uc.recordRepo.EnsureForPairs(ctx, added); err != nil {
			uc.log.Warn().Err(err).Str("product_id", productID).Msg("no se pudieron crear registros por variante")
		}
	}
}

// catalogEdit diff de una edición de catálogo calculado contra la versión baseVersion.
type catalogEdit struct {
	baseVersion int64
	removed     []entity.VariantKey
	added       []entity.VariantKey
	cells       []entity.Cell
}

// landedIn indica si current es exactamente el resultado de escribir esta edición.
func (e *catalogEdit) landedIn(current *entity.ProductStock, sizes, colors []string) bool {
	return current.Version == e.baseVersion+1 &&
		slices.Equal(current.Sizes, sizes) &&
		slices.Equal(current.Colors, colors)
}

// diffVariants pares declarados eliminados y agregados entre dos versiones del catálogo.
func diffVariants(before, after *entity.ProductStock) (removed, added []entity.VariantKey) {
	for _, k := range before.VariantKeys() {
		if !after.HasVariant(k.Size, k.Color) {
			removed = append(removed, k)
		}
	}
	for _, k := range after.VariantKeys() {
		if !before.HasVariant(k.Size, k.Color) {
			added = append(added, k)
		}
	}
	return removed, added
}

func toKeyDTOs(keys []entity.VariantKey) []dto.VariantKeyDTO {
	out := make([]dto.VariantKeyDTO, 0, len(keys))
	for _, k := range keys {
		out = append(out, dto.VariantKeyDTO{Size: k.Size, Color: k.Color})
	}
	return out
}
