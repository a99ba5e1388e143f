package reconciliation

import (
	"context"
	"sync"
	"time"
)

// Scheduler ejecuta el Job periódicamente en segundo plano hasta Stop o cancelación del contexto.
type Scheduler struct {
	job      *Job
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	last   Result
	runs   int
}

// NewScheduler construye el scheduler. interval <= 0 lo deja deshabilitado (Start no hace nada).
func NewScheduler(job *Job, interval time.Duration) *Scheduler {
	return &Scheduler{job: job, interval: interval}
}

// Start lanza el ciclo en segundo plano.
func (s *Scheduler) Start(parent context.Context) {
	if s.interval <= 0 {
		s.job.log.Info().Msg("reconciliación periódica deshabilitada")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.job.log.Info().Dur("interval", s.interval).Msg("reconciliación periódica iniciada")
}

// Stop cancela el ciclo y espera a que termine la pasada en curso.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Last devuelve el resumen de la última pasada y cuántas se han ejecutado.
func (s *Scheduler) Last() (Result, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.runs
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			res := s.job.Run(ctx)
			s.mu.Lock()
			s.last = res
			s.runs++
			s.mu.Unlock()
		}
	}
}
