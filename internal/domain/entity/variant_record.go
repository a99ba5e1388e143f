package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// VariantRecord fila del almacén secundario por variante (tabla product_variants).
// Stock es la columna heredada NUMERIC; la fuente de verdad sigue siendo ProductStock.Matrix.
type VariantRecord struct {
	ID        string
	ProductID string
	Size      string
	Color     string
	Stock     decimal.Decimal
	UpdatedAt time.Time
}

// Key devuelve la llave (producto, talla, color) del registro.
func (r *VariantRecord) Key() VariantKey {
	return VariantKey{ProductID: r.ProductID, Size: r.Size, Color: r.Color}
}
