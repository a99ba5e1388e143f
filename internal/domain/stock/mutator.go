package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Request datos de una operación sobre una celda. Para Adjust, Quantity es el valor absoluto.
type Request struct {
	Size           string
	Color          string
	Quantity       int
	Reason         string
	Actor          string
	IdempotencyKey string
}

// Result matriz nueva (copia), cantidad resultante de la celda y evento de auditoría.
// Event es nil cuando la operación no cambia nada (cantidad 0).
type Result struct {
	Matrix      entity.VariantMatrix
	NewQuantity int
	Event       *entity.StockEvent
}

// Mutator aplica exactamente una operación a la matriz de un producto (servicio de dominio puro).
// Nunca modifica la matriz de entrada.
type Mutator struct {
	now   func() time.Time
	newID func() string
}

// NewMutator construye el mutador con reloj y generador de IDs reales.
func NewMutator() *Mutator {
	return &Mutator{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// WithClock reemplaza el reloj (tests).
func (m *Mutator) WithClock(now func() time.Time) *Mutator {
	m.now = now
	return m
}

// NewID genera el ID de un evento.
func (m *Mutator) NewID() string { return m.newID() }

// Apply despacha por tipo de evento (reserve, restore, adjust).
func (m *Mutator) Apply(p *entity.ProductStock, op string, req Request) (*Result, error) {
	switch op {
	case entity.StockEventReserve:
		return m.Reserve(p, req)
	case entity.StockEventRestore:
		return m.Restore(p, req)
	case entity.StockEventAdjust:
		return m.Adjust(p, req)
	}
	return nil, domain.ErrInvalidInput
}

// Reserve descuenta Quantity de la celda. Falla con ErrUnknownVariant si el par no está declarado
// (un pedido nunca crea stock) y con *InsufficientStockError si Quantity > actual.
func (m *Mutator) Reserve(p *entity.ProductStock, req Request) (*Result, error) {
	if req.Quantity < 0 || req.Quantity > MaxQuantity {
		return nil, domain.ErrInvalidQuantity
	}
	if !p.HasVariant(req.Size, req.Color) {
		return nil, domain.ErrUnknownVariant
	}
	current := p.Matrix.Quantity(req.Size, req.Color)
	if req.Quantity == 0 {
		return m.noop(p, current), nil
	}
	if req.Quantity > current {
		return nil, &domain.InsufficientStockError{
			ProductID: p.ProductID,
			Size:      req.Size,
			Color:     req.Color,
			Requested: req.Quantity,
			Available: current,
		}
	}
	return m.set(p, entity.StockEventReserve, req, current, current-req.Quantity), nil
}

// Restore suma Quantity a la celda. Para una cantidad válida sobre un par declarado nunca falla;
// un resultado por encima de MaxQuantity se rechaza con ErrInvalidQuantity.
func (m *Mutator) Restore(p *entity.ProductStock, req Request) (*Result, error) {
	if req.Quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if !p.HasVariant(req.Size, req.Color) {
		return nil, domain.ErrUnknownVariant
	}
	current := p.Matrix.Quantity(req.Size, req.Color)
	if req.Quantity == 0 {
		return m.noop(p, current), nil
	}
	if req.Quantity > MaxQuantity-current {
		return nil, domain.ErrInvalidQuantity
	}
	return m.set(p, entity.StockEventRestore, req, current, current+req.Quantity), nil
}

// Adjust fija la celda a un valor absoluto (corrección administrativa).
func (m *Mutator) Adjust(p *entity.ProductStock, req Request) (*Result, error) {
	if req.Quantity < 0 || req.Quantity > MaxQuantity {
		return nil, domain.ErrInvalidQuantity
	}
	if !p.HasVariant(req.Size, req.Color) {
		return nil, domain.ErrUnknownVariant
	}
	current := p.Matrix.Quantity(req.Size, req.Color)
	if req.Quantity == current {
		return m.noop(p, current), nil
	}
	return m.set(p, entity.StockEventAdjust, req, current, req.Quantity), nil
}

// DeleteVariant elimina cada celda para la que match devuelve true.
// Devuelve la matriz podada y las celdas eliminadas (para auditoría y borrado en cascada).
func DeleteVariant(matrix entity.VariantMatrix, match func(size, color string) bool) (entity.VariantMatrix, []entity.Cell) {
	out := matrix.Clone()
	var removed []entity.Cell
	for _, c := range matrix.Cells() {
		if !match(c.Size, c.Color) {
			continue
		}
		delete(out[c.Size], c.Color)
		if len(out[c.Size]) == 0 {
			delete(out, c.Size)
		}
		removed = append(removed, c)
	}
	return out, removed
}

// RemovedFrom devuelve el predicado para DeleteVariant tras una edición de catálogo:
// coincide con toda celda cuya talla o color ya no está en las listas nuevas.
func RemovedFrom(sizes, colors []string) func(size, color string) bool {
	keepSize := toSet(sizes)
	keepColor := toSet(colors)
	return func(size, color string) bool {
		_, okS := keepSize[size]
		_, okC := keepColor[color]
		return !okS || !okC
	}
}

// DeductEvents construye los eventos "deduct" para celdas eliminadas con stock.
func (m *Mutator) DeductEvents(productID string, removed []entity.Cell, reason, actor string) []*entity.StockEvent {
	var events []*entity.StockEvent
	now := m.now()
	for _, c := range removed {
		if c.Quantity == 0 {
			continue
		}
		events = append(events, &entity.StockEvent{
			ID:             m.newID(),
			Type:           entity.StockEventDeduct,
			ProductID:      productID,
			Size:           c.Size,
			Color:          c.Color,
			Delta:          -c.Quantity,
			QuantityBefore: c.Quantity,
			QuantityAfter:  0,
			Reason:         reason,
			Actor:          actor,
			OccurredAt:     now,
		})
	}
	return events
}

func (m *Mutator) set(p *entity.ProductStock, op string, req Request, before, after int) *Result {
	return &Result{
		Matrix:      p.Matrix.WithQuantity(req.Size, req.Color, after),
		NewQuantity: after,
		Event: &entity.StockEvent{
			ID:             m.newID(),
			Type:           op,
			ProductID:      p.ProductID,
			Size:           req.Size,
			Color:          req.Color,
			Delta:          after - before,
			QuantityBefore: before,
			QuantityAfter:  after,
			Reason:         req.Reason,
			Actor:          req.Actor,
			IdempotencyKey: req.IdempotencyKey,
			OccurredAt:     m.now(),
		},
	}
}

func (m *Mutator) noop(p *entity.ProductStock, current int) *Result {
	return &Result{Matrix: p.Matrix.Clone(), NewQuantity: current}
}

func toSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, v := range list {
		set[v] = struct{}{}
	}
	return set
}
