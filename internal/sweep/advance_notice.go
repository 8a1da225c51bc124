package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/outreach-engine/internal/lifecycle"
	"github.com/jwalitptl/outreach-engine/internal/model"
	"github.com/jwalitptl/outreach-engine/internal/repository"
	"github.com/jwalitptl/outreach-engine/pkg/clock"
	"github.com/jwalitptl/outreach-engine/pkg/logger"
	"github.com/jwalitptl/outreach-engine/pkg/metrics"
	"github.com/jwalitptl/outreach-engine/pkg/notifier"
)

// AdvanceNoticeSweep raises a one-time event per shift when the configured
// lead time before shift end passes without a confirmed return. Runs on its
// own timer, independent of the checkpoint cutoff.
type AdvanceNoticeSweep struct {
	workers  repository.ShiftWorkerRepository
	sink     notifier.Sink
	logger   *logger.Logger
	metrics  *metrics.Metrics
	clock    clock.Clock
	rules    lifecycle.Config
	interval time.Duration
}

func NewAdvanceNoticeSweep(
	workers repository.ShiftWorkerRepository,
	sink notifier.Sink,
	log *logger.Logger,
	m *metrics.Metrics,
	clk clock.Clock,
	rules lifecycle.Config,
	interval time.Duration,
) *AdvanceNoticeSweep {
	return &AdvanceNoticeSweep{
		workers:  workers,
		sink:     sink,
		logger:   log,
		metrics:  m,
		clock:    clk,
		rules:    rules,
		interval: interval,
	}
}

func (s *AdvanceNoticeSweep) Name() string {
	return "advance-notice"
}

func (s *AdvanceNoticeSweep) Interval() time.Duration {
	return s.interval
}

func (s *AdvanceNoticeSweep) Run(ctx context.Context) error {
	now := s.clock.Now()

	workers, err := s.workers.List(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to scan shift workers: %w", err)
	}

	for _, worker := range workers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.rules.NeedsAdvanceNotice(worker, now) || worker.AdvanceNoticeAt != nil {
			continue
		}
		s.notice(ctx, worker.ID, now)
	}
	return nil
}

func (s *AdvanceNoticeSweep) notice(ctx context.Context, id uuid.UUID, now time.Time) {
	var fired bool
	updated, err := s.workers.Update(ctx, id, func(w *model.ShiftWorker) error {
		fired = s.rules.ApplyAdvanceNotice(w, now)
		return nil
	})
	if err != nil {
		s.logger.Error(err, "failed to stamp advance notice", "worker_id", id.String())
		return
	}
	if !fired {
		return
	}

	s.metrics.SweepTransitions.WithLabelValues(s.Name(), "advance_notice").Inc()
	if err := s.sink.Publish(ctx, notifier.Event{
		Name:     "shiftworker.advance_notice",
		EntityID: updated.ID,
		At:       s.clock.Now(),
		Payload: map[string]interface{}{
			"shift_end_date": updated.ShiftEndDate,
			"site":           updated.Site,
		},
	}); err != nil {
		s.logger.Error(err, "failed to publish sweep event", "event", "shiftworker.advance_notice", "worker_id", id.String())
	}
}
