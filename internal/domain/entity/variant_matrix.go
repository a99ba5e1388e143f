package entity

import "sort"

// VariantMatrix representa el stock de un producto: talla → color → cantidad (>= 0).
// La ausencia de una llave (talla, color) equivale a cantidad 0.
type VariantMatrix map[string]map[string]int

// Cell una celda (talla, color) de la matriz.
type Cell struct {
	Size     string
	Color    string
	Quantity int
}

// NewVariantMatrix crea la matriz con seed para cada par declarado talla × color.
func NewVariantMatrix(sizes, colors []string, seed int) VariantMatrix {
	if seed < 0 {
		seed = 0
	}
	m := make(VariantMatrix, len(sizes))
	for _, s := range sizes {
		row := make(map[string]int, len(colors))
		for _, c := range colors {
			row[c] = seed
		}
		m[s] = row
	}
	return m
}

// Quantity devuelve matrix[size][color] o 0 si no existe.
func (m VariantMatrix) Quantity(size, color string) int {
	row, ok := m[size]
	if !ok {
		return 0
	}
	return row[color]
}

// Clone copia profunda; las operaciones del mutador nunca modifican la matriz de entrada.
func (m VariantMatrix) Clone() VariantMatrix {
	out := make(VariantMatrix, len(m))
	for s, row := range m {
		cp := make(map[string]int, len(row))
		for c, q := range row {
			cp[c] = q
		}
		out[s] = cp
	}
	return out
}

// WithQuantity devuelve una copia con la celda fijada a qty.
func (m VariantMatrix) WithQuantity(size, color string, qty int) VariantMatrix {
	out := m.Clone()
	row, ok := out[size]
	if !ok {
		row = make(map[string]int)
		out[size] = row
	}
	row[color] = qty
	return out
}

// Cells lista las celdas ordenadas por talla y color (salida estable para auditoría y tests).
func (m VariantMatrix) Cells() []Cell {
	var cells []Cell
	for s, row := range m {
		for c, q := range row {
			cells = append(cells, Cell{Size: s, Color: c, Quantity: q})
		}
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Size != cells[j].Size {
			return cells[i].Size < cells[j].Size
		}
		return cells[i].Color < cells[j].Color
	})
	return cells
}

// Equal compara dos matrices tratando las celdas ausentes como 0.
func (m VariantMatrix) Equal(other VariantMatrix) bool {
	for _, c := range m.Cells() {
		if other.Quantity(c.Size, c.Color) != c.Quantity {
			return false
		}
	}
	for _, c := range other.Cells() {
		if m.Quantity(c.Size, c.Color) != c.Quantity {
			return false
		}
	}
	return true
}
