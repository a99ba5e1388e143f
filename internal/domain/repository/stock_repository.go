package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockWrite escritura completa de la matriz de un producto.
// ExpectedVersion es la versión leída; si la fila cambió entretanto la escritura falla con
// domain.ErrVersionConflict. IdempotencyKey (opcional) se registra en la misma escritura, con
// alcance (ProductID, Operation): repetirla devuelve domain.ErrDuplicateOperation sin aplicar nada.
type StockWrite struct {
	ProductID       string
	Sizes           []string
	Colors          []string
	Matrix          entity.VariantMatrix
	InStock         bool
	ExpectedVersion int64
	Operation       string // reserve|restore|adjust; alcance de IdempotencyKey
	IdempotencyKey  string
}

// StockRepository define el puerto de persistencia de la matriz por variante (DIP).
// Solo ofrece consistencia eventual lectura-escritura; la linealización se obtiene con
// ExpectedVersion (compare-and-swap).
type StockRepository interface {
	// Create persiste un producto nuevo con Version = 1. domain.ErrDuplicate si ya existe.
	Create(ctx context.Context, stock *entity.ProductStock) error
	// ReadMatrix devuelve el último estado confirmado. domain.ErrNotFound si no existe.
	ReadMatrix(ctx context.Context, productID string) (*entity.ProductStock, error)
	// WriteMatrix escribe la matriz si la versión coincide y devuelve la nueva versión.
	WriteMatrix(ctx context.Context, w StockWrite) (int64, error)
	// HasAppliedKey indica si la llave ya fue registrada para (productID, operation).
	HasAppliedKey(ctx context.Context, productID, operation, key string) (bool, error)
	// SetForcedOutOfStock cambia el flag administrativo (no toca la matriz ni la versión).
	SetForcedOutOfStock(ctx context.Context, productID string, forced bool) error
	// Delete elimina el producto y su matriz.
	Delete(ctx context.Context, productID string) error
	// ListDeclaredVariants vista de catálogo para la reconciliación.
	ListDeclaredVariants(ctx context.Context) ([]entity.DeclaredVariants, error)
}

// VariantRecordRepository almacén secundario por variante (product_variants).
type VariantRecordRepository interface {
	List(ctx context.Context) ([]*entity.VariantRecord, error)
	ListByProduct(ctx context.Context, productID string) ([]*entity.VariantRecord, error)
	// EnsureForPairs crea los registros que falten para los pares dados (no modifica los existentes).
	EnsureForPairs(ctx context.Context, keys []entity.VariantKey) error
	// DeleteByVariant borra los registros de las variantes indicadas (cascada de edición de catálogo).
	DeleteByVariant(ctx context.Context, keys []entity.VariantKey) (int, error)
	// DeleteByIDs borra en un solo lote; devuelve cuántos se borraron realmente.
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
	DeleteByProduct(ctx context.Context, productID string) (int, error)
}
