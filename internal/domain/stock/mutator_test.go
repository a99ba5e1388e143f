package stock_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/stock"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMutator() *stock.Mutator {
	return stock.NewMutator().WithClock(func() time.Time { return fixedNow })
}

func productWith(matrix entity.VariantMatrix, sizes, colors []string) *entity.ProductStock {
	return &entity.ProductStock{ProductID: "p-1", Sizes: sizes, Colors: colors, Matrix: matrix}
}

func blackS(qty int) *entity.ProductStock {
	return productWith(entity.VariantMatrix{"S": {"Black": qty}}, []string{"S"}, []string{"Black"})
}

// ──────────────────────────────────────────────────────────────────────────────
// Reserve
// ──────────────────────────────────────────────────────────────────────────────

func TestReserve_DescuentaYEmiteEvento(t *testing.T) {
	p := blackS(5)
	res, err := newMutator().Reserve(p, stock.Request{Size: "S", Color: "Black", Quantity: 3, Reason: "order", Actor: "u-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.NewQuantity)
	assert.Equal(t, 2, res.Matrix.Quantity("S", "Black"))
	assert.Equal(t, 5, p.Matrix.Quantity("S", "Black"), "la matriz de entrada no debe modificarse")

	require.NotNil(t, res.Event)
	assert.Equal(t, entity.StockEventReserve, res.Event.Type)
	assert.Equal(t, -3, res.Event.Delta)
	assert.Equal(t, 5, res.Event.QuantityBefore)
	assert.Equal(t, 2, res.Event.QuantityAfter)
	assert.Equal(t, "order", res.Event.Reason)
	assert.Equal(t, "u-1", res.Event.Actor)
	assert.Equal(t, fixedNow, res.Event.OccurredAt)
	assert.NotEmpty(t, res.Event.ID)
}

func TestReserve_StockInsuficienteNoCambiaLaMatriz(t *testing.T) {
	p := blackS(2)
	res, err := newMutator().Reserve(p, stock.Request{Size: "S", Color: "Black", Quantity: 5})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, 2, ise.Available)
	assert.Equal(t, 5, ise.Requested)
	assert.Contains(t, ise.Error(), "solo quedan 2")
	assert.Equal(t, 2, p.Matrix.Quantity("S", "Black"))
}

func TestReserve_VarianteNoDeclaradaSeRechaza(t *testing.T) {
	p := productWith(entity.VariantMatrix{"S": {"Black": 5, "Red": 9}}, []string{"S"}, []string{"Black"})
	_, err := newMutator().Reserve(p, stock.Request{Size: "S", Color: "Red", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrUnknownVariant, "una celda huérfana no es vendible")

	_, err = newMutator().Reserve(p, stock.Request{Size: "XL", Color: "Black", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrUnknownVariant)
}

func TestReserve_CantidadCeroEsNoOp(t *testing.T) {
	p := blackS(4)
	res, err := newMutator().Reserve(p, stock.Request{Size: "S", Color: "Black", Quantity: 0})
	require.NoError(t, err)
	assert.Nil(t, res.Event)
	assert.Equal(t, 4, res.NewQuantity)
	assert.True(t, res.Matrix.Equal(p.Matrix))
}

func TestReserve_CeldaAusenteEquivaleACero(t *testing.T) {
	p := productWith(entity.VariantMatrix{}, []string{"M"}, []string{"Blue"})
	_, err := newMutator().Reserve(p, stock.Request{Size: "M", Color: "Blue", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

// ──────────────────────────────────────────────────────────────────────────────
// Restore / Adjust
// ──────────────────────────────────────────────────────────────────────────────

func TestRestore_SumaSinLimite(t *testing.T) {
	p := blackS(0)
	res, err := newMutator().Restore(p, stock.Request{Size: "S", Color: "Black", Quantity: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, res.NewQuantity)
	assert.Equal(t, 7, res.Event.Delta)
	assert.Equal(t, entity.StockEventRestore, res.Event.Type)
}

func TestRestore_CantidadNegativaEsInvalida(t *testing.T) {
	_, err := newMutator().Restore(blackS(1), stock.Request{Size: "S", Color: "Black", Quantity: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestRestore_DesbordeSeRechaza(t *testing.T) {
	p := blackS(5)
	m := newMutator()
	for _, q := range []int{math.MaxInt, stock.MaxQuantity, stock.MaxQuantity - 4} {
		_, err := m.Restore(p, stock.Request{Size: "S", Color: "Black", Quantity: q})
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity, "q=%d", q)
	}

	res, err := m.Restore(p, stock.Request{Size: "S", Color: "Black", Quantity: stock.MaxQuantity - 5})
	require.NoError(t, err)
	assert.Equal(t, stock.MaxQuantity, res.NewQuantity, "el tope exacto se admite")
	assert.Equal(t, 5, p.Matrix.Quantity("S", "Black"), "la entrada no se modifica")
}

func TestAdjust_PorEncimaDelTopeSeRechaza(t *testing.T) {
	_, err := newMutator().Adjust(blackS(5), stock.Request{Size: "S", Color: "Black", Quantity: math.MaxInt})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestAdjust_FijaValorAbsoluto(t *testing.T) {
	res, err := newMutator().Adjust(blackS(5), stock.Request{Size: "S", Color: "Black", Quantity: 12, Actor: "admin"})
	require.NoError(t, err)
	assert.Equal(t, 12, res.NewQuantity)
	assert.Equal(t, 7, res.Event.Delta)
	assert.Equal(t, entity.StockEventAdjust, res.Event.Type)

	_, err = newMutator().Adjust(blackS(5), stock.Request{Size: "S", Color: "Black", Quantity: -3})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestApply_TipoDesconocido(t *testing.T) {
	_, err := newMutator().Apply(blackS(1), "transfer", stock.Request{Size: "S", Color: "Black", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades
// ──────────────────────────────────────────────────────────────────────────────

// Ninguna secuencia de Reserve/Restore/Adjust deja una celda negativa.
func TestPropiedad_NoNegatividad(t *testing.T) {
	sizes := []string{"S", "M", "L"}
	colors := []string{"Black", "White"}
	rng := rand.New(rand.NewSource(42))
	m := newMutator()
	p := productWith(entity.NewVariantMatrix(sizes, colors, 3), sizes, colors)

	for i := 0; i < 2000; i++ {
		req := stock.Request{
			Size:     sizes[rng.Intn(len(sizes))],
			Color:    colors[rng.Intn(len(colors))],
			Quantity: rng.Intn(8) - 1,
		}
		if i%100 == 0 {
			req.Quantity = math.MaxInt - rng.Intn(8)
		}
		ops := []string{entity.StockEventReserve, entity.StockEventRestore, entity.StockEventAdjust}
		res, err := m.Apply(p, ops[rng.Intn(len(ops))], req)
		if err != nil {
			continue
		}
		p.Matrix = res.Matrix
		for _, c := range p.Matrix.Cells() {
			require.GreaterOrEqual(t, c.Quantity, 0, "celda %s/%s negativa en la iteración %d", c.Size, c.Color, i)
		}
	}
}

// restore(reserve(m, s, c, q), s, c, q) == m para todo q <= m[s][c].
func TestPropiedad_ConservacionReserveRestore(t *testing.T) {
	base := blackS(6)
	m := newMutator()
	for q := 0; q <= 6; q++ {
		r1, err := m.Reserve(base, stock.Request{Size: "S", Color: "Black", Quantity: q})
		require.NoError(t, err)
		mid := productWith(r1.Matrix, base.Sizes, base.Colors)
		r2, err := m.Restore(mid, stock.Request{Size: "S", Color: "Black", Quantity: q})
		require.NoError(t, err)
		assert.True(t, r2.Matrix.Equal(base.Matrix), "q=%d debe conservar la matriz", q)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// DeleteVariant
// ──────────────────────────────────────────────────────────────────────────────

func TestDeleteVariant_PodaTallaEliminada(t *testing.T) {
	sizes := []string{"S", "M", "L"}
	colors := []string{"Black", "White"}
	matrix := entity.NewVariantMatrix(sizes, colors, 2)

	pruned, removed := stock.DeleteVariant(matrix, stock.RemovedFrom([]string{"S", "M"}, colors))
	require.Len(t, removed, 2)
	for _, c := range removed {
		assert.Equal(t, "L", c.Size)
		assert.Equal(t, 2, c.Quantity)
	}
	_, hasL := pruned["L"]
	assert.False(t, hasL, "la talla L no debe quedar en la matriz")
	assert.Equal(t, 2, pruned.Quantity("M", "White"))
	assert.Equal(t, 2, matrix.Quantity("L", "Black"), "la matriz original no se modifica")
}

func TestDeleteVariant_PodaColorEliminado(t *testing.T) {
	matrix := entity.VariantMatrix{"S": {"Black": 1, "Red": 4}, "M": {"Red": 0}}
	pruned, removed := stock.DeleteVariant(matrix, stock.RemovedFrom([]string{"S", "M"}, []string{"Black"}))
	assert.Len(t, removed, 2)
	assert.Equal(t, entity.VariantMatrix{"S": {"Black": 1}}, pruned)

	events := newMutator().DeductEvents("p-1", removed, "catalog edit", "admin")
	require.Len(t, events, 1, "solo las celdas con stock generan evento deduct")
	assert.Equal(t, -4, events[0].Delta)
	assert.Equal(t, entity.StockEventDeduct, events[0].Type)
}
