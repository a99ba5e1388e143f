package stock_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/stock"
)

func TestComputeAvailability_SumaSoloCombinacionesDeclaradas(t *testing.T) {
	matrix := entity.VariantMatrix{
		"S": {"Black": 2, "Red": 50}, // Red ya no está declarado
		"M": {"Black": 1},
	}
	av := stock.ComputeAvailability(matrix, []string{"S", "M", "L"}, []string{"Black"})

	assert.Equal(t, 3, av.Total)
	assert.True(t, av.InStock)
	assert.Len(t, av.PerCombination, 3)
	assert.Equal(t, 0, av.PerCombination[entity.VariantKey{Size: "L", Color: "Black"}], "celda ausente vale 0")
	_, hasRed := av.PerCombination[entity.VariantKey{Size: "S", Color: "Red"}]
	assert.False(t, hasRed)
}

func TestComputeAvailability_CeldasHuerfanasNoMarcanEnStock(t *testing.T) {
	matrix := entity.VariantMatrix{"S": {"Red": 10, "Black": 0}}
	av := stock.ComputeAvailability(matrix, []string{"S"}, []string{"Black"})
	assert.Equal(t, 0, av.Total)
	assert.False(t, av.InStock)
	assert.False(t, stock.InStock(matrix, []string{"S"}, []string{"Black"}))
}

func TestComputeAvailability_SinDeclaraciones(t *testing.T) {
	av := stock.ComputeAvailability(entity.VariantMatrix{"S": {"Black": 1}}, nil, nil)
	assert.Equal(t, 0, av.Total)
	assert.False(t, av.InStock)
}

func TestParseQuantity_Tolerante(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{5, 5},
		{int64(7), 7},
		{5.0, 5},
		{"5", 5},
		{" 12 ", 12},
		{"5.00", 5},
		{json.Number("9"), 9},
		{decimal.NewFromInt(3), 3},
		{2.5, 0},
		{"abc", 0},
		{-1, 0},
		{nil, 0},
		{true, 0},
		{"2147483647", stock.MaxQuantity},
		{"2147483648", 0},
		{"99999999999999999999999", 0},
		{json.Number("1e30"), 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, stock.ParseQuantity(tc.in), "entrada %#v", tc.in)
	}
}

func TestDecodeMatrix_ValoresMalformadosValenCero(t *testing.T) {
	raw := []byte(`{"S":{"Black":"4","Red":"x","Blue":1.5},"M":{"Black":3},"L":"roto"}`)
	m, err := stock.DecodeMatrix(raw)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Quantity("S", "Black"))
	assert.Equal(t, 0, m.Quantity("S", "Red"))
	assert.Equal(t, 0, m.Quantity("S", "Blue"))
	assert.Equal(t, 3, m.Quantity("M", "Black"))
	assert.Equal(t, 0, m.Quantity("L", "Black"))

	out, err := stock.EncodeMatrix(m)
	require.NoError(t, err)
	back, err := stock.DecodeMatrix(out)
	require.NoError(t, err)
	assert.True(t, back.Equal(m))
}

func TestDecodeMatrix_Vacio(t *testing.T) {
	m, err := stock.DecodeMatrix(nil)
	require.NoError(t, err)
	assert.Empty(t, m)

	m, err = stock.DecodeMatrix([]byte("null"))
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestNormalizeLabels_NFCYSinDuplicados(t *testing.T) {
	composed := "Caf\u00e9"
	decomposed := "Cafe\u0301"
	got := stock.NormalizeLabels([]string{" S ", composed, decomposed, "", "S", "M"})
	assert.Equal(t, []string{"S", composed, "M"}, got)
	assert.Equal(t, stock.NormalizeLabel(decomposed), stock.NormalizeLabel(composed))
}
