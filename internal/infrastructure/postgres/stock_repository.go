package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	ledger "github.com/jhoicas/stock-ledger/internal/domain/stock"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (tabla product_stock).
// La matriz se guarda como jsonb; la concurrencia se controla con la columna version
// (UPDATE ... WHERE version = $esperada) en lugar de SELECT FOR UPDATE.
type StockRepo struct {
	q  Querier
	tx *TxRunner
}

// NewStockRepository construye el adaptador de stock sobre el pool.
func NewStockRepository(pool *pgxpool.Pool) *StockRepo {
	return &StockRepo{q: pool, tx: NewTxRunner(pool)}
}

// Create inserta la fila con version = 1.
func (r *StockRepo) Create(ctx context.Context, stock *entity.ProductStock) error {
	matrix, err := ledger.EncodeMatrix(stock.Matrix)
	if err != nil {
		return fmt.Errorf("encode matrix: %w", err)
	}
	query := `
		INSERT INTO product_stock (id, sizes, colors, matrix, in_stock, forced_out_of_stock, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, now())`
	_, err = r.q.Exec(ctx, query,
		stock.ProductID, stock.Sizes, stock.Colors, matrix, stock.InStock, stock.ForcedOutOfStock,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product stock: %w", mapError(err))
	}
	stock.Version = 1
	return nil
}

// ReadMatrix obtiene la matriz confirmada más reciente.
func (r *StockRepo) ReadMatrix(ctx context.Context, productID string) (*entity.ProductStock, error) {
	query := `
		SELECT id, sizes, colors, matrix, in_stock, forced_out_of_stock, version, updated_at
		FROM product_stock WHERE id = $1`
	var p entity.ProductStock
	var raw []byte
	err := r.q.QueryRow(ctx, query, productID).Scan(
		&p.ProductID, &p.Sizes, &p.Colors, &raw, &p.InStock, &p.ForcedOutOfStock, &p.Version, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get product stock: %w", mapError(err))
	}
	p.Matrix, err = ledger.DecodeMatrix(raw)
	if err != nil {
		return nil, fmt.Errorf("decode matrix %s: %w", productID, err)
	}
	return &p, nil
}

// WriteMatrix compare-and-swap sobre version. La llave de idempotencia se inserta en la misma
// transacción: si ya existe no se aplica nada (ErrDuplicateOperation) y un conflicto de versión
// la revierte.
func (r *StockRepo) WriteMatrix(ctx context.Context, w repository.StockWrite) (int64, error) {
	matrix, err := ledger.EncodeMatrix(w.Matrix)
	if err != nil {
		return 0, fmt.Errorf("encode matrix: %w", err)
	}
	var newVersion int64
	err = r.tx.Run(ctx, func(q Querier) error {
		if w.IdempotencyKey != "" {
			tag, err := q.Exec(ctx, `
				INSERT INTO stock_idempotency_keys (product_id, operation, key, created_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (product_id, operation, key) DO NOTHING`, w.ProductID, w.Operation, w.IdempotencyKey)
			if err != nil {
				return fmt.Errorf("insert idempotency key: %w", mapError(err))
			}
			if tag.RowsAffected() == 0 {
				return domain.ErrDuplicateOperation
			}
		}
		err := q.QueryRow(ctx, `
			UPDATE product_stock
			SET sizes = $3, colors = $4, matrix = $5, in_stock = $6, version = version + 1, updated_at = now()
			WHERE id = $1 AND version = $2
			RETURNING version`,
			w.ProductID, w.ExpectedVersion, w.Sizes, w.Colors, matrix, w.InStock,
		).Scan(&newVersion)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update product stock: %w", mapError(err))
		}
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM product_stock WHERE id = $1)`, w.ProductID).Scan(&exists); err != nil {
			return fmt.Errorf("check product stock: %w", mapError(err))
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrVersionConflict
	})
	if err != nil {
		return 0, err
	}
	return newVersion, nil
}

// HasAppliedKey consulta si la llave ya se registró para la operación del producto.
func (r *StockRepo) HasAppliedKey(ctx context.Context, productID, operation, key string) (bool, error) {
	var applied bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM stock_idempotency_keys
			WHERE product_id = $1 AND operation = $2 AND key = $3
		)`, productID, operation, key).Scan(&applied)
	if err != nil {
		return false, fmt.Errorf("check idempotency key: %w", mapError(err))
	}
	return applied, nil
}

// SetForcedOutOfStock actualiza el flag administrativo sin tocar matriz ni versión.
func (r *StockRepo) SetForcedOutOfStock(ctx context.Context, productID string, forced bool) error {
	tag, err := r.q.Exec(ctx, `UPDATE product_stock SET forced_out_of_stock = $2, updated_at = now() WHERE id = $1`, productID, forced)
	if err != nil {
		return fmt.Errorf("set forced out of stock: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina la fila del producto y sus llaves de idempotencia.
func (r *StockRepo) Delete(ctx context.Context, productID string) error {
	return r.tx.Run(ctx, func(q Querier) error {
		tag, err := q.Exec(ctx, `DELETE FROM product_stock WHERE id = $1`, productID)
		if err != nil {
			return fmt.Errorf("delete product stock: %w", mapError(err))
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		if _, err := q.Exec(ctx, `DELETE FROM stock_idempotency_keys WHERE product_id = $1`, productID); err != nil {
			return fmt.Errorf("delete idempotency keys: %w", mapError(err))
		}
		return nil
	})
}

// ListDeclaredVariants tallas y colores declarados por producto (vista de catálogo).
func (r *StockRepo) ListDeclaredVariants(ctx context.Context) ([]entity.DeclaredVariants, error) {
	rows, err := r.q.Query(ctx, `SELECT id, sizes, colors FROM product_stock ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list declared variants: %w", mapError(err))
	}
	defer rows.Close()
	var list []entity.DeclaredVariants
	for rows.Next() {
		var d entity.DeclaredVariants
		if err := rows.Scan(&d.ProductID, &d.Sizes, &d.Colors); err != nil {
			return nil, fmt.Errorf("scan declared variants: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
