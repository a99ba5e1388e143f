package stock

import "github.com/jhoicas/stock-ledger/internal/domain/entity"

// Availability señales agregadas derivadas de una VariantMatrix.
type Availability struct {
	PerCombination map[entity.VariantKey]int
	Total          int
	InStock        bool
}

// ComputeAvailability recorre cada talla × color declarados y suma sus cantidades (0 si no existe).
// Las entradas de la matriz que no corresponden a un par declarado se ignoran: una celda huérfana
// de un color eliminado no puede marcar el producto como disponible.
func ComputeAvailability(matrix entity.VariantMatrix, sizes, colors []string) Availability {
	out := Availability{PerCombination: make(map[entity.VariantKey]int, len(sizes)*len(colors))}
	for _, s := range sizes {
		for _, c := range colors {
			q := matrix.Quantity(s, c)
			if q < 0 {
				q = 0
			}
			out.PerCombination[entity.VariantKey{Size: s, Color: c}] = q
			out.Total += q
		}
	}
	out.InStock = out.Total > 0
	return out
}

// InStock atajo para recalcular el flag persistido junto a la matriz.
func InStock(matrix entity.VariantMatrix, sizes, colors []string) bool {
	return ComputeAvailability(matrix, sizes, colors).InStock
}
