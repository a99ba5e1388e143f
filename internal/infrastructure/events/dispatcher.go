// Package events entrega los eventos de auditoría de stock de forma asíncrona.
package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

var _ repository.EventSink = (*Dispatcher)(nil)

// ErrBufferFull el buffer está lleno y el evento se descartó.
var ErrBufferFull = errors.New("events: buffer lleno, evento descartado")

// ErrClosed el dispatcher ya no acepta eventos.
var ErrClosed = errors.New("events: dispatcher cerrado")

// Dispatcher implementa EventSink sin bloquear al llamador: encola en un canal con buffer y un
// worker escribe en el sink de destino. Si el buffer está lleno el evento se descarta y se registra.
type Dispatcher struct {
	target  repository.EventSink
	ch      chan *entity.StockEvent
	log     *logger.Logger
	timeout time.Duration

	mu        sync.RWMutex
	closed    bool
	enqueued  atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewDispatcher construye el dispatcher con capacidad buffer (mínimo 1).
func NewDispatcher(target repository.EventSink, buffer int, log *logger.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 1024
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		target:  target,
		ch:      make(chan *entity.StockEvent, buffer),
		log:     log.Component("stock-events"),
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
}

// Start lanza el worker de entrega.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() { go d.worker() })
}

// Append encola una copia del evento. Nunca bloquea.
func (d *Dispatcher) Append(_ context.Context, event *entity.StockEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	cp := *event
	select {
	case d.ch <- &cp:
		d.enqueued.Add(1)
		return nil
	default:
		d.dropped.Add(1)
		d.log.Warn().Str("event_id", event.ID).Str("product_id", event.ProductID).Msg("buffer de eventos lleno, evento descartado")
		return ErrBufferFull
	}
}

// Stop deja de aceptar eventos y espera a que el worker entregue los pendientes o a que ctx expire.
func (d *Dispatcher) Stop(ctx context.Context) bool {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.ch)
		d.mu.Unlock()
	})
	d.Start()
	select {
	case <-d.done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Metrics contadores de encolados, entregados, descartados y fallidos.
func (d *Dispatcher) Metrics() (enqueued, delivered, dropped, failed uint64) {
	return d.enqueued.Load(), d.delivered.Load(), d.dropped.Load(), d.failed.Load()
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for ev := range d.ch {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.target.Append(ctx, ev)
		cancel()
		if err != nil {
			d.failed.Add(1)
			d.log.Warn().Err(err).Str("event_id", ev.ID).Str("type", ev.Type).Msg("no se pudo persistir evento de stock")
			continue
		}
		d.delivered.Add(1)
	}
}
