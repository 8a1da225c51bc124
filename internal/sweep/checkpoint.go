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

// CheckpointSweep marks pending checkpoints missed once their daily cutoff
// passes unanswered.
type CheckpointSweep struct {
	workers  repository.ShiftWorkerRepository
	sink     notifier.Sink
	logger   *logger.Logger
	metrics  *metrics.Metrics
	clock    clock.Clock
	rules    lifecycle.Config
	interval time.Duration
}

func NewCheckpointSweep(
	workers repository.ShiftWorkerRepository,
	sink notifier.Sink,
	log *logger.Logger,
	m *metrics.Metrics,
	clk clock.Clock,
	rules lifecycle.Config,
	interval time.Duration,
) *CheckpointSweep {
	return &CheckpointSweep{
		workers:  workers,
		sink:     sink,
		logger:   log,
		metrics:  m,
		clock:    clk,
		rules:    rules,
		interval: interval,
	}
}

func (s *CheckpointSweep) Name() string {
	return "checkpoint-deadline"
}

func (s *CheckpointSweep) Interval() time.Duration {
	return s.interval
}

func (s *CheckpointSweep) Run(ctx context.Context) error {
	now := s.clock.Now()

	workers, err := s.workers.List(ctx, &model.ShiftWorkerFilters{
		CheckpointStatus: model.CheckpointStatusPending,
	})
	if err != nil {
		return fmt.Errorf("failed to scan shift workers: %w", err)
	}

	for _, worker := range workers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.rules.IsOverdue(worker, now) {
			continue
		}
		s.markMissed(ctx, worker.ID, now)
	}
	return nil
}

func (s *CheckpointSweep) markMissed(ctx context.Context, id uuid.UUID, now time.Time) {
	var fired bool
	updated, err := s.workers.Update(ctx, id, func(w *model.ShiftWorker) error {
		fired = s.rules.ApplyMissed(w, now)
		return nil
	})
	if err != nil {
		s.logger.Error(err, "failed to mark checkpoint missed", "worker_id", id.String())
		return
	}
	if !fired {
		return
	}

	s.metrics.SweepTransitions.WithLabelValues(s.Name(), "missed").Inc()
	if err := s.sink.Publish(ctx, notifier.Event{
		Name:     "checkpoint.missed",
		EntityID: updated.ID,
		At:       s.clock.Now(),
		Payload: map[string]interface{}{
			"checkpoint":      updated.CurrentCheckpoint,
			"checkpoint_date": updated.CheckpointDate,
		},
	}); err != nil {
		s.logger.Error(err, "failed to publish sweep event", "event", "checkpoint.missed", "worker_id", id.String())
	}
}
