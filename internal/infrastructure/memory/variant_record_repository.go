package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.VariantRecordRepository = (*VariantRecordRepo)(nil)

// VariantRecordRepo almacén secundario por variante en memoria.
type VariantRecordRepo struct {
	mu      sync.RWMutex
	records map[string]*entity.VariantRecord
}

// NewVariantRecordRepository construye el repositorio vacío.
func NewVariantRecordRepository() *VariantRecordRepo {
	return &VariantRecordRepo{records: make(map[string]*entity.VariantRecord)}
}

// Insert agrega un registro tal cual (seed y tests); genera ID si falta.
func (r *VariantRecordRepo) Insert(rec *entity.VariantRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	cp := *rec
	r.records[cp.ID] = &cp
}

// List devuelve todos los registros ordenados por producto, talla y color.
func (r *VariantRecordRepo) List(_ context.Context) ([]*entity.VariantRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(func(*entity.VariantRecord) bool { return true }), nil
}

// ListByProduct registros de un producto.
func (r *VariantRecordRepo) ListByProduct(_ context.Context, productID string) ([]*entity.VariantRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(func(rec *entity.VariantRecord) bool { return rec.ProductID == productID }), nil
}

// EnsureForPairs crea los registros que falten (stock 0).
func (r *VariantRecordRepo) EnsureForPairs(_ context.Context, keys []entity.VariantKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := make(map[entity.VariantKey]struct{}, len(r.records))
	for _, rec := range r.records {
		existing[rec.Key()] = struct{}{}
	}
	now := time.Now()
	for _, k := range keys {
		if _, ok := existing[k]; ok {
			continue
		}
		id := uuid.New().String()
		r.records[id] = &entity.VariantRecord{
			ID:        id,
			ProductID: k.ProductID,
			Size:      k.Size,
			Color:     k.Color,
			Stock:     decimal.Zero,
			UpdatedAt: now,
		}
		existing[k] = struct{}{}
	}
	return nil
}

// DeleteByVariant borra los registros de las variantes indicadas.
func (r *VariantRecordRepo) DeleteByVariant(_ context.Context, keys []entity.VariantKey) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	drop := make(map[entity.VariantKey]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	n := 0
	for id, rec := range r.records {
		if _, ok := drop[rec.Key()]; ok {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

// DeleteByIDs borra por ID; los IDs inexistentes no cuentan.
func (r *VariantRecordRepo) DeleteByIDs(_ context.Context, ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := r.records[id]; ok {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

// DeleteByProduct borra todos los registros de un producto.
func (r *VariantRecordRepo) DeleteByProduct(_ context.Context, productID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, rec := range r.records {
		if rec.ProductID == productID {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

func (r *VariantRecordRepo) sorted(keep func(*entity.VariantRecord) bool) []*entity.VariantRecord {
	out := make([]*entity.VariantRecord, 0, len(r.records))
	for _, rec := range r.records {
		if keep(rec) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if a.Size != b.Size {
			return a.Size < b.Size
		}
		return a.Color < b.Color
	})
	return out
}
