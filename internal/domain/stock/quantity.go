package stock

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MaxQuantity tope de una celda (columnas INTEGER de stock_events).
const MaxQuantity = math.MaxInt32

var maxQuantity = decimal.NewFromInt(MaxQuantity)

// ParseQuantity interpreta una cantidad almacenada de forma tolerante: 5, 5.0, "5" y "5.00" valen 5.
// Todo valor no numérico, fraccionario, negativo o mayor que MaxQuantity se trata como 0.
func ParseQuantity(v any) int {
	var d decimal.Decimal
	switch x := v.(type) {
	case nil:
		return 0
	case int:
		d = decimal.NewFromInt(int64(x))
	case int32:
		d = decimal.NewFromInt32(x)
	case int64:
		d = decimal.NewFromInt(x)
	case float64:
		d = decimal.NewFromFloat(x)
	case json.Number:
		parsed, err := decimal.NewFromString(x.String())
		if err != nil {
			return 0
		}
		d = parsed
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return 0
		}
		d = parsed
	case decimal.Decimal:
		d = x
	default:
		return 0
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) || d.GreaterThan(maxQuantity) {
		return 0
	}
	return int(d.IntPart())
}

// DecodeMatrix decodifica el JSON {"talla": {"color": cantidad}} aplicando ParseQuantity a cada valor.
// Un documento vacío o nulo produce una matriz vacía.
func DecodeMatrix(raw []byte) (entity.VariantMatrix, error) {
	m := entity.VariantMatrix{}
	if len(raw) == 0 || string(raw) == "null" {
		return m, nil
	}
	var loose map[string]json.RawMessage
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil, err
	}
	for size, rawRow := range loose {
		var row map[string]json.RawMessage
		if err := json.Unmarshal(rawRow, &row); err != nil {
			// fila malformada: equivale a una talla sin stock
			continue
		}
		cells := make(map[string]int, len(row))
		for color, val := range row {
			var v any
			dec := json.NewDecoder(strings.NewReader(string(val)))
			dec.UseNumber()
			if err := dec.Decode(&v); err != nil {
				v = nil
			}
			cells[color] = ParseQuantity(v)
		}
		m[size] = cells
	}
	return m, nil
}

// EncodeMatrix serializa la matriz para persistirla (jsonb).
func EncodeMatrix(m entity.VariantMatrix) ([]byte, error) {
	if m == nil {
		m = entity.VariantMatrix{}
	}
	return json.Marshal(m)
}
