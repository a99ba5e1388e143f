package stock_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/stock"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dobles de prueba
// ──────────────────────────────────────────────────────────────────────────────

// flakyStockRepo delega en memoria e inyecta errores en WriteMatrix, en orden.
// Con landThenFail la escritura se aplica y aun así se devuelve el error (respuesta perdida).
type flakyStockRepo struct {
	*memory.StockRepo
	mu           sync.Mutex
	writeErrs    []error
	landThenFail bool
	writes       int
}

func (r *flakyStockRepo) WriteMatrix(ctx context.Context, w repository.StockWrite) (int64, error) {
	r.mu.Lock()
	r.writes++
	var injected error
	if len(r.writeErrs) > 0 {
		injected, r.writeErrs = r.writeErrs[0], r.writeErrs[1:]
	}
	r.mu.Unlock()
	if injected == nil {
		return r.StockRepo.WriteMatrix(ctx, w)
	}
	if r.landThenFail {
		if _, err := r.StockRepo.WriteMatrix(ctx, w); err != nil {
			return 0, err
		}
	}
	return 0, injected
}

func (r *flakyStockRepo) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

type failingSink struct{ calls atomic.Int32 }

func (s *failingSink) Append(context.Context, *entity.StockEvent) error {
	s.calls.Add(1)
	return errors.New("sink caído")
}

var unavailable = errors.Join(domain.ErrRepositoryUnavailable, errors.New("connection reset"))

type fixture struct {
	uc      *stock.LedgerUseCase
	stocks  *flakyStockRepo
	records *memory.VariantRecordRepo
	events  *memory.StockEventRepo
}

// newFixture producto P1 con tallas [S, M, L], colores [Black, White] y S/Black = 5.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		stocks:  &flakyStockRepo{StockRepo: memory.NewStockRepository()},
		records: memory.NewVariantRecordRepository(),
		events:  memory.NewStockEventRepository(),
	}
	f.uc = stock.NewLedgerUseCase(f.stocks, f.records, f.events, nil, stock.RetryPolicy{MaxAttempts: 3}, logger.Nop())
	_, err := f.uc.CreateProduct(context.Background(), stock.CreateProductInput{
		ProductID: "P1",
		Sizes:     []string{"S", "M", "L"},
		Colors:    []string{"Black", "White"},
		Initial:   map[string]map[string]int{"S": {"Black": 5}},
	})
	require.NoError(t, err)
	return f
}

func in(op string, qty int) stock.MutationInput {
	return stock.MutationInput{ProductID: "P1", Size: "S", Color: "Black", Quantity: qty, Reason: op}
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario básico
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_EscenarioSBlack5(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	qty, err := f.uc.ReserveStock(ctx, in("pedido", 2))
	require.NoError(t, err)
	assert.Equal(t, 3, qty)

	_, err = f.uc.ReserveStock(ctx, in("pedido", 4))
	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 3, ise.Available)
	assert.Equal(t, 4, ise.Requested)

	qty, err = f.uc.RestoreStock(ctx, in("cancelación", 2))
	require.NoError(t, err)
	assert.Equal(t, 5, qty)

	av, err := f.uc.GetAvailability(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 5, av.Total)
	assert.True(t, av.InStock)
	assert.Equal(t, int64(3), av.Version, "alta + reserva + restauración; el rechazo no escribe")
}

func TestLedger_VarianteNoDeclarada(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.ReserveStock(context.Background(), stock.MutationInput{ProductID: "P1", Size: "XL", Color: "Black", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrUnknownVariant)

	_, err = f.uc.RestoreStock(context.Background(), stock.MutationInput{ProductID: "P1", Size: "S", Color: "Red", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrUnknownVariant, "restore no crea variantes")
}

func TestLedger_EtiquetasNormalizadas(t *testing.T) {
	f := newFixture(t)
	qty, err := f.uc.ReserveStock(context.Background(), stock.MutationInput{ProductID: "P1", Size: " S ", Color: "Black", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, qty)
}

func TestLedger_NoOpNoEscribe(t *testing.T) {
	f := newFixture(t)
	writes := f.stocks.Writes()

	qty, err := f.uc.ReserveStock(context.Background(), in("", 0))
	require.NoError(t, err)
	assert.Equal(t, 5, qty)

	qty, err = f.uc.AdjustStock(context.Background(), in("", 5))
	require.NoError(t, err)
	assert.Equal(t, 5, qty)
	assert.Equal(t, writes, f.stocks.Writes())
}

func TestLedger_CantidadNegativa(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.AdjustStock(context.Background(), in("", -3))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia
// ──────────────────────────────────────────────────────────────────────────────

// N reservas concurrentes de 1 sobre K unidades: K aciertos, N-K rechazos, stock final 0.
func TestLedger_ReservasConcurrentesSinPerdidas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uc.AdjustStock(ctx, in("", 7))
	require.NoError(t, err)

	const n = 20
	var ok, insufficient atomic.Int32
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := f.uc.ReserveStock(ctx, in("pedido", 1))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				insufficient.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 7, ok.Load())
	assert.EqualValues(t, n-7, insufficient.Load())
	av, err := f.uc.GetAvailability(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 0, av.Total)
}

// Dos instancias (lockers distintos) sobre el mismo almacenamiento: el compare-and-swap de
// versión evita pérdidas aunque el candado local no las serialice entre sí.
func TestLedger_DosInstanciasSinPerdidas(t *testing.T) {
	stocks := memory.NewStockRepository()
	records := memory.NewVariantRecordRepository()
	retry := stock.RetryPolicy{MaxAttempts: 50}
	a := stock.NewLedgerUseCase(stocks, records, nil, stock.NewKeyedLocker(), retry, logger.Nop())
	b := stock.NewLedgerUseCase(stocks, records, nil, stock.NewKeyedLocker(), retry, logger.Nop())
	ctx := context.Background()
	_, err := a.CreateProduct(ctx, stock.CreateProductInput{
		ProductID: "P1", Sizes: []string{"S"}, Colors: []string{"Black"}, SeedQuantity: 15,
	})
	require.NoError(t, err)

	var ok atomic.Int32
	var g errgroup.Group
	for i := 0; i < 20; i++ {
		uc := a
		if i%2 == 1 {
			uc = b
		}
		g.Go(func() error {
			_, err := uc.ReserveStock(ctx, in("pedido", 1))
			if err == nil {
				ok.Add(1)
				return nil
			}
			if errors.Is(err, domain.ErrInsufficientStock) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 15, ok.Load())

	p, err := stocks.ReadMatrix(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Matrix.Quantity("S", "Black"))
}

func TestLedger_ConflictoDeVersionSeReintenta(t *testing.T) {
	f := newFixture(t)
	f.stocks.writeErrs = []error{domain.ErrVersionConflict, domain.ErrVersionConflict}
	before := f.stocks.Writes()

	qty, err := f.uc.ReserveStock(context.Background(), in("pedido", 1))
	require.NoError(t, err)
	assert.Equal(t, 4, qty)
	assert.Equal(t, before+3, f.stocks.Writes())
}

func TestLedger_ConflictoPersistenteAgotaReintentos(t *testing.T) {
	f := newFixture(t)
	f.stocks.writeErrs = []error{domain.ErrVersionConflict, domain.ErrVersionConflict, domain.ErrVersionConflict}

	_, err := f.uc.ReserveStock(context.Background(), in("pedido", 1))
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	av, err := f.uc.GetAvailability(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, 5, av.Total, "ningún intento se aplicó")
}

// ──────────────────────────────────────────────────────────────────────────────
// Fallos parciales e idempotencia
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_ReservaSinLlaveConResultadoDesconocido(t *testing.T) {
	f := newFixture(t)
	f.stocks.writeErrs = []error{unavailable}
	before := f.stocks.Writes()

	_, err := f.uc.ReserveStock(context.Background(), in("pedido", 1))
	assert.ErrorIs(t, err, domain.ErrOutcomeUnknown)
	assert.ErrorIs(t, err, domain.ErrRepositoryUnavailable)
	assert.Equal(t, before+1, f.stocks.Writes(), "no se reintenta a ciegas")
}

func TestLedger_ReservaConLlaveSeReintentaUnaSolaVez(t *testing.T) {
	f := newFixture(t)
	f.stocks.writeErrs = []error{unavailable}
	f.stocks.landThenFail = true

	req := in("pedido", 2)
	req.IdempotencyKey = "order-1:S:Black"
	qty, err := f.uc.ReserveStock(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, qty, "la primera escritura llegó; el reintento detecta la llave y no descuenta otra vez")
}

func TestLedger_AdjustSeReintentaTrasFallo(t *testing.T) {
	f := newFixture(t)
	f.stocks.writeErrs = []error{unavailable}

	qty, err := f.uc.AdjustStock(context.Background(), in("conteo", 9))
	require.NoError(t, err)
	assert.Equal(t, 9, qty)
}

func TestLedger_RestoreIdempotente(t *testing.T) {
	f := newFixture(t)
	req := in("cancelación", 3)
	req.IdempotencyKey = "cancel-77:S:Black"

	qty, err := f.uc.RestoreStock(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 8, qty)

	qty, err = f.uc.RestoreStock(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 8, qty)
}

func TestLedger_MismaLlaveEnReservaYRestoreDelPedido(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := "order-42:S:Black"

	reserve := in("pedido", 3)
	reserve.IdempotencyKey = key
	qty, err := f.uc.ReserveStock(ctx, reserve)
	require.NoError(t, err)
	assert.Equal(t, 2, qty)

	restore := in("cancelación", 3)
	restore.IdempotencyKey = key
	qty, err = f.uc.RestoreStock(ctx, restore)
	require.NoError(t, err)
	assert.Equal(t, 5, qty, "la llave se aplica por operación: la cancelación devuelve las unidades")

	qty, err = f.uc.RestoreStock(ctx, restore)
	require.NoError(t, err)
	assert.Equal(t, 5, qty, "repetir la cancelación no vuelve a sumar")

	av, err := f.uc.GetAvailability(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 5, av.Total)
}

func TestLedger_ReservaConLlaveQueAgotoStockSeConfirmaAlReintentar(t *testing.T) {
	f := newFixture(t)
	f.stocks.writeErrs = []error{unavailable}
	f.stocks.landThenFail = true

	req := in("pedido", 5)
	req.IdempotencyKey = "order-7"
	qty, err := f.uc.ReserveStock(context.Background(), req)
	require.NoError(t, err, "la primera escritura llegó; no es stock insuficiente")
	assert.Equal(t, 0, qty)

	av, err := f.uc.GetAvailability(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, 0, av.Total, "se descontó una sola vez")
}

func TestLedger_RestoreQueDesbordaSeRechaza(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.RestoreStock(context.Background(), in("cancelación", math.MaxInt))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	av, err := f.uc.GetAvailability(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, 5, av.Total)
}

func TestLedger_RestoreSobreVarianteRetiradaQuedaRegistrado(t *testing.T) {
	var buf bytes.Buffer
	stocks := memory.NewStockRepository()
	uc := stock.NewLedgerUseCase(stocks, memory.NewVariantRecordRepository(), nil, nil,
		stock.RetryPolicy{MaxAttempts: 1}, logger.NewWithWriter(&buf, logger.Config{Level: "info"}))
	ctx := context.Background()
	_, err := uc.CreateProduct(ctx, stock.CreateProductInput{ProductID: "P1", Sizes: []string{"S"}, Colors: []string{"Black"}})
	require.NoError(t, err)

	_, err = uc.RestoreStock(ctx, stock.MutationInput{ProductID: "P1", Size: "XL", Color: "Black", Quantity: 2, IdempotencyKey: "cancel-9"})
	assert.ErrorIs(t, err, domain.ErrUnknownVariant)
	assert.Contains(t, buf.String(), "devolución rechazada")
	assert.Contains(t, buf.String(), `"idempotency_key":"cancel-9"`)
}

func TestLedger_FalloDelSinkNoAfectaMutacion(t *testing.T) {
	stocks := memory.NewStockRepository()
	sink := &failingSink{}
	uc := stock.NewLedgerUseCase(stocks, memory.NewVariantRecordRepository(), sink, nil, stock.RetryPolicy{MaxAttempts: 1}, logger.Nop())
	ctx := context.Background()
	_, err := uc.CreateProduct(ctx, stock.CreateProductInput{ProductID: "P1", Sizes: []string{"S"}, Colors: []string{"Black"}, SeedQuantity: 2})
	require.NoError(t, err)

	qty, err := uc.ReserveStock(ctx, in("pedido", 1))
	require.NoError(t, err)
	assert.Equal(t, 1, qty)
	assert.EqualValues(t, 2, sink.calls.Load(), "alta + reserva")
}

func TestLedger_ProductoInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.ReserveStock(context.Background(), stock.MutationInput{ProductID: "NOPE", Size: "S", Color: "Black", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Catálogo
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_CreateProductValidaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.CreateProduct(ctx, stock.CreateProductInput{ProductID: "P1", Sizes: []string{"S"}, Colors: []string{"Black"}})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = f.uc.CreateProduct(ctx, stock.CreateProductInput{
		ProductID: "P2", Sizes: []string{"S"}, Colors: []string{"Black"},
		Initial: map[string]map[string]int{"M": {"Black": 1}},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownVariant)

	_, err = f.uc.CreateProduct(ctx, stock.CreateProductInput{ProductID: "P3", Sizes: []string{"S"}, Colors: []string{"Black"}, SeedQuantity: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestLedger_UpdateVariantsPodaYCascada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uc.AdjustStock(ctx, stock.MutationInput{ProductID: "P1", Size: "L", Color: "White", Quantity: 4})
	require.NoError(t, err)

	out, err := f.uc.UpdateVariants(ctx, stock.UpdateVariantsInput{
		ProductID: "P1",
		Sizes:     []string{"S", "M", "XL"},
		Colors:    []string{"Black", "White"},
	})
	require.NoError(t, err)
	assert.Len(t, out.Removed, 2)
	assert.Len(t, out.Added, 2)
	assert.Equal(t, 5, out.Availability.Total, "L/White (4) ya no cuenta")

	p, err := f.stocks.ReadMatrix(ctx, "P1")
	require.NoError(t, err)
	_, hasL := p.Matrix["L"]
	assert.False(t, hasL, "la fila L se poda de la matriz")
	assert.Equal(t, 0, p.Matrix.Quantity("XL", "Black"))

	records, err := f.records.ListByProduct(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, records, 6)
	for _, r := range records {
		assert.NotEqual(t, "L", r.Size)
	}

	events, err := f.events.ListByProduct(ctx, "P1", nil, nil, 1, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, entity.StockEventDeduct, events[0].Type)
	assert.Equal(t, -4, events[0].Delta)
}

func TestLedger_UpdateVariantsConRespuestaPerdidaCompletaCascada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stocks.writeErrs = []error{unavailable}
	f.stocks.landThenFail = true

	out, err := f.uc.UpdateVariants(ctx, stock.UpdateVariantsInput{
		ProductID: "P1",
		Sizes:     []string{"M", "XL"},
		Colors:    []string{"Black", "White"},
	})
	require.NoError(t, err)
	assert.Len(t, out.Removed, 4, "S y L × 2 colores")
	assert.ElementsMatch(t, []dto.VariantKeyDTO{{Size: "XL", Color: "Black"}, {Size: "XL", Color: "White"}}, out.Added)
	assert.Equal(t, 0, out.Availability.Total)

	records, err := f.records.ListByProduct(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, records, 4, "M y XL × 2 colores")
	for _, r := range records {
		assert.Contains(t, []string{"M", "XL"}, r.Size)
	}

	events, err := f.events.ListByProduct(ctx, "P1", nil, nil, 100, 0)
	require.NoError(t, err)
	var deducts []*entity.StockEvent
	for _, ev := range events {
		if ev.Type == entity.StockEventDeduct {
			deducts = append(deducts, ev)
		}
	}
	require.Len(t, deducts, 1)
	assert.Equal(t, -5, deducts[0].Delta)
}

func TestLedger_DeleteProductBorraRegistros(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.uc.DeleteProduct(ctx, "P1"))

	_, err := f.uc.GetAvailability(ctx, "P1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	records, err := f.records.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.ErrorIs(t, f.uc.DeleteProduct(ctx, "P1"), domain.ErrNotFound)
}

func TestLedger_AgotadoForzadoNoTocaMatriz(t *testing.T) {
	f := newFixture(t)
	av, err := f.uc.SetForcedOutOfStock(context.Background(), "P1", true)
	require.NoError(t, err)
	assert.True(t, av.InStock)
	assert.False(t, av.Sellable)
	assert.Equal(t, 5, av.Total)
}
