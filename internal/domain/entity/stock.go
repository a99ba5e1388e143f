package entity

import "time"

// ProductStock representa el stock por variante de un producto (fila product_stock).
// InStock es derivado de Matrix sobre las combinaciones declaradas y se recalcula en cada escritura;
// ForcedOutOfStock es un flag administrativo aparte, no forma parte del ledger.
type ProductStock struct {
	ProductID        string
	Sizes            []string // orden declarado
	Colors           []string // orden declarado
	Matrix           VariantMatrix
	InStock          bool
	ForcedOutOfStock bool
	Version          int64 // +1 en cada escritura (concurrencia optimista)
	UpdatedAt        time.Time
}

// HasVariant indica si (size, color) está entre las tallas y colores declarados.
func (p *ProductStock) HasVariant(size, color string) bool {
	return contains(p.Sizes, size) && contains(p.Colors, color)
}

// VariantKeys lista las combinaciones declaradas talla × color.
func (p *ProductStock) VariantKeys() []VariantKey {
	keys := make([]VariantKey, 0, len(p.Sizes)*len(p.Colors))
	for _, s := range p.Sizes {
		for _, c := range p.Colors {
			keys = append(keys, VariantKey{ProductID: p.ProductID, Size: s, Color: c})
		}
	}
	return keys
}

// VariantKey identifica una variante (producto, talla, color).
type VariantKey struct {
	ProductID string
	Size      string
	Color     string
}

// DeclaredVariants vista de catálogo: tallas y colores declarados de un producto.
type DeclaredVariants struct {
	ProductID string
	Sizes     []string
	Colors    []string
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
