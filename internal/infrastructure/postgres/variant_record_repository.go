package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.VariantRecordRepository = (*VariantRecordRepo)(nil)

// VariantRecordRepo tabla product_variants (almacén secundario por variante).
// La columna stock es NUMERIC heredado y se lee como decimal.Decimal (codec registrado en el pool).
type VariantRecordRepo struct {
	q Querier
}

// NewVariantRecordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewVariantRecordRepository(q Querier) *VariantRecordRepo {
	return &VariantRecordRepo{q: q}
}

const variantRecordColumns = `id, product_id, size, color, stock, updated_at`

// List devuelve todos los registros.
func (r *VariantRecordRepo) List(ctx context.Context) ([]*entity.VariantRecord, error) {
	return r.list(ctx, `SELECT `+variantRecordColumns+` FROM product_variants ORDER BY product_id, size, color`)
}

// ListByProduct registros de un producto.
func (r *VariantRecordRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.VariantRecord, error) {
	return r.list(ctx, `SELECT `+variantRecordColumns+` FROM product_variants WHERE product_id = $1 ORDER BY size, color`, productID)
}

// EnsureForPairs inserta los pares que falten (UNIQUE (product_id, size, color)).
func (r *VariantRecordRepo) EnsureForPairs(ctx context.Context, keys []entity.VariantKey) error {
	if len(keys) == 0 {
		return nil
	}
	ids := make([]string, len(keys))
	products := make([]string, len(keys))
	sizes := make([]string, len(keys))
	colors := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = uuid.New().String()
		products[i], sizes[i], colors[i] = k.ProductID, k.Size, k.Color
	}
	query := `
		INSERT INTO product_variants (id, product_id, size, color, stock, updated_at)
		SELECT u.id, u.product_id, u.size, u.color, 0, now()
		FROM unnest($1::text[], $2::text[], $3::text[], $4::text[]) AS u(id, product_id, size, color)
		ON CONFLICT (product_id, size, color) DO NOTHING`
	if _, err := r.q.Exec(ctx, query, ids, products, sizes, colors); err != nil {
		return fmt.Errorf("ensure variant records: %w", mapError(err))
	}
	return nil
}

// DeleteByVariant borra los registros de las variantes indicadas.
func (r *VariantRecordRepo) DeleteByVariant(ctx context.Context, keys []entity.VariantKey) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	products := make([]string, len(keys))
	sizes := make([]string, len(keys))
	colors := make([]string, len(keys))
	for i, k := range keys {
		products[i], sizes[i], colors[i] = k.ProductID, k.Size, k.Color
	}
	query := `
		DELETE FROM product_variants v
		USING unnest($1::text[], $2::text[], $3::text[]) AS u(product_id, size, color)
		WHERE v.product_id = u.product_id AND v.size = u.size AND v.color = u.color`
	tag, err := r.q.Exec(ctx, query, products, sizes, colors)
	if err != nil {
		return 0, fmt.Errorf("delete variant records: %w", mapError(err))
	}
	return int(tag.RowsAffected()), nil
}

// DeleteByIDs borra un lote por ID en una sola sentencia.
func (r *VariantRecordRepo) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.q.Exec(ctx, `DELETE FROM product_variants WHERE id = ANY($1::text[])`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete variant records by id: %w", mapError(err))
	}
	return int(tag.RowsAffected()), nil
}

// DeleteByProduct borra todos los registros de un producto.
func (r *VariantRecordRepo) DeleteByProduct(ctx context.Context, productID string) (int, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM product_variants WHERE product_id = $1`, productID)
	if err != nil {
		return 0, fmt.Errorf("delete product variant records: %w", mapError(err))
	}
	return int(tag.RowsAffected()), nil
}

func (r *VariantRecordRepo) list(ctx context.Context, query string, args ...any) ([]*entity.VariantRecord, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list variant records: %w", mapError(err))
	}
	defer rows.Close()
	var list []*entity.VariantRecord
	for rows.Next() {
		var rec entity.VariantRecord
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.Size, &rec.Color, &rec.Stock, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan variant record: %w", err)
		}
		list = append(list, &rec)
	}
	return list, rows.Err()
}
