// Package memory implementa los puertos de persistencia en memoria. Cada repositorio es una
// instancia explícita creada por el servicio que la aloja (LEDGER_STORAGE=memory y tests).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo matrices por producto con versión y llaves de idempotencia aplicadas.
type StockRepo struct {
	mu       sync.RWMutex
	products map[string]*entity.ProductStock
	applied  map[appliedKey]struct{}
	now      func() time.Time
}

// appliedKey una llave de idempotencia vale por producto y operación: el mismo pedido puede
// reservar y luego restaurar con la misma llave.
type appliedKey struct {
	productID string
	operation string
	key       string
}

// NewStockRepository construye el repositorio vacío.
func NewStockRepository() *StockRepo {
	return &StockRepo{
		products: make(map[string]*entity.ProductStock),
		applied:  make(map[appliedKey]struct{}),
		now:      time.Now,
	}
}

// Create persiste un producto nuevo con Version = 1.
func (r *StockRepo) Create(_ context.Context, stock *entity.ProductStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[stock.ProductID]; ok {
		return domain.ErrDuplicate
	}
	p := cloneStock(stock)
	p.Version = 1
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = r.now()
	}
	r.products[p.ProductID] = p
	stock.Version = 1
	return nil
}

// ReadMatrix devuelve una copia del último estado escrito.
func (r *StockRepo) ReadMatrix(_ context.Context, productID string) (*entity.ProductStock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneStock(p), nil
}

// WriteMatrix compare-and-swap sobre Version; registra la llave de idempotencia en la misma sección crítica.
func (r *StockRepo) WriteMatrix(_ context.Context, w repository.StockWrite) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[w.ProductID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	k := appliedKey{productID: w.ProductID, operation: w.Operation, key: w.IdempotencyKey}
	if w.IdempotencyKey != "" {
		if _, dup := r.applied[k]; dup {
			return p.Version, domain.ErrDuplicateOperation
		}
	}
	if p.Version != w.ExpectedVersion {
		return p.Version, domain.ErrVersionConflict
	}
	p.Sizes = append([]string(nil), w.Sizes...)
	p.Colors = append([]string(nil), w.Colors...)
	p.Matrix = w.Matrix.Clone()
	p.InStock = w.InStock
	p.Version++
	p.UpdatedAt = r.now()
	if w.IdempotencyKey != "" {
		r.applied[k] = struct{}{}
	}
	return p.Version, nil
}

// HasAppliedKey indica si la llave ya se aplicó a esta operación del producto.
func (r *StockRepo) HasAppliedKey(_ context.Context, productID, operation, key string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.applied[appliedKey{productID: productID, operation: operation, key: key}]
	return ok, nil
}

// SetForcedOutOfStock cambia el flag administrativo.
func (r *StockRepo) SetForcedOutOfStock(_ context.Context, productID string, forced bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.ForcedOutOfStock = forced
	return nil
}

// Delete elimina el producto.
func (r *StockRepo) Delete(_ context.Context, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[productID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.products, productID)
	for k := range r.applied {
		if k.productID == productID {
			delete(r.applied, k)
		}
	}
	return nil
}

// ListDeclaredVariants tallas y colores declarados de todos los productos, ordenados por ID.
func (r *StockRepo) ListDeclaredVariants(_ context.Context) ([]entity.DeclaredVariants, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.DeclaredVariants, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, entity.DeclaredVariants{
			ProductID: p.ProductID,
			Sizes:     append([]string(nil), p.Sizes...),
			Colors:    append([]string(nil), p.Colors...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func cloneStock(p *entity.ProductStock) *entity.ProductStock {
	cp := *p
	cp.Sizes = append([]string(nil), p.Sizes...)
	cp.Colors = append([]string(nil), p.Colors...)
	if p.Matrix != nil {
		cp.Matrix = p.Matrix.Clone()
	} else {
		cp.Matrix = entity.VariantMatrix{}
	}
	return &cp
}
