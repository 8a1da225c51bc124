package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/outreach-engine/pkg/logger"
	"github.com/jwalitptl/outreach-engine/pkg/metrics"
)

// Sweep is a unit of recurring work: a full scan of one entity collection
// applying one lifecycle rule. A failed run is logged and retried on the next
// interval; sweeps are self-healing via recurrence.
type Sweep interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// Scheduler drives each registered sweep on its own ticker. Sweeps run
// concurrently with each other and with interactive operations; per-entity
// atomicity lives in the store, not here.
type Scheduler struct {
	sweeps  []Sweep
	logger  *logger.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

func NewScheduler(log *logger.Logger, m *metrics.Metrics) *Scheduler {
	return &Scheduler{logger: log, metrics: m}
}

func (s *Scheduler) Register(sweep Sweep) {
	s.sweeps = append(s.sweeps, sweep)
}

// Start launches one goroutine per sweep and returns. Use Wait to block until
// ctx cancellation has stopped them all.
func (s *Scheduler) Start(ctx context.Context) {
	for _, sweep := range s.sweeps {
		s.wg.Add(1)
		go s.run(ctx, sweep)
	}
}

// Wait blocks until all sweep loops have exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, sweep Sweep) {
	defer s.wg.Done()

	ticker := time.NewTicker(sweep.Interval())
	defer ticker.Stop()

	s.logger.Info("sweep started", "sweep", sweep.Name(), "interval", sweep.Interval().String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweep stopped", "sweep", sweep.Name())
			return
		case <-ticker.C:
			s.runOnce(ctx, sweep)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, sweep Sweep) {
	timer := prometheus.NewTimer(s.metrics.SweepDuration.WithLabelValues(sweep.Name()))
	defer timer.ObserveDuration()

	s.metrics.SweepRuns.WithLabelValues(sweep.Name()).Inc()
	if err := sweep.Run(ctx); err != nil {
		s.metrics.SweepErrors.WithLabelValues(sweep.Name()).Inc()
		s.logger.Error(err, "sweep run aborted", "sweep", sweep.Name())
	}
}
