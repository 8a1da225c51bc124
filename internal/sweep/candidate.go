package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/outreach-engine/internal/lifecycle"
	"github.com/jwalitptl/outreach-engine/internal/model"
	"github.com/jwalitptl/outreach-engine/internal/outreach"
	"github.com/jwalitptl/outreach-engine/internal/repository"
	"github.com/jwalitptl/outreach-engine/pkg/clock"
	"github.com/jwalitptl/outreach-engine/pkg/logger"
	"github.com/jwalitptl/outreach-engine/pkg/metrics"
	"github.com/jwalitptl/outreach-engine/pkg/notifier"
)

// DirectSender is the slice of the dispatcher sweeps use for rule-driven
// reminders.
type DirectSender interface {
	SendDirect(ctx context.Context, recipient *model.Recipient, template string, channels []model.ChannelKind) model.DispatchOutcome
}

// ReminderConfig is the optional outreach action attached to the silence
// rule: on becoming silent, send this template over these channels.
type ReminderConfig struct {
	Enabled  bool
	Template string
	Channels []model.ChannelKind
}

// CandidateSweep applies the silence and escalation rules across the full
// candidate collection.
type CandidateSweep struct {
	candidates repository.CandidateRepository
	sender     DirectSender
	sink       notifier.Sink
	logger     *logger.Logger
	metrics    *metrics.Metrics
	clock      clock.Clock
	rules      lifecycle.Config
	interval   time.Duration
	reminder   ReminderConfig
}

func NewCandidateSweep(
	candidates repository.CandidateRepository,
	sender DirectSender,
	sink notifier.Sink,
	log *logger.Logger,
	m *metrics.Metrics,
	clk clock.Clock,
	rules lifecycle.Config,
	interval time.Duration,
	reminder ReminderConfig,
) *CandidateSweep {
	return &CandidateSweep{
		candidates: candidates,
		sender:     sender,
		sink:       sink,
		logger:     log,
		metrics:    m,
		clock:      clk,
		rules:      rules,
		interval:   interval,
		reminder:   reminder,
	}
}

func (s *CandidateSweep) Name() string {
	return "candidate-silence"
}

func (s *CandidateSweep) Interval() time.Duration {
	return s.interval
}

// Run performs a full scan. A store failure on the scan aborts the run;
// failures on a single candidate never abort the rest of the batch. Already
// applied transitions stay applied, the next interval picks up the rest.
func (s *CandidateSweep) Run(ctx context.Context) error {
	now := s.clock.Now()

	candidates, err := s.candidates.List(ctx, &model.CandidateFilters{
		Statuses: []model.CandidateStatus{model.CandidateStatusActive, model.CandidateStatusSilent},
	})
	if err != nil {
		return fmt.Errorf("failed to scan candidates: %w", err)
	}

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch {
		case s.rules.IsSilent(candidate, now):
			s.markSilent(ctx, candidate.ID, now)
		case s.rules.ShouldEscalate(candidate, now):
			s.escalate(ctx, candidate.ID, now)
		}
	}
	return nil
}

func (s *CandidateSweep) markSilent(ctx context.Context, id uuid.UUID, now time.Time) {
	var fired bool
	updated, err := s.candidates.Update(ctx, id, func(c *model.Candidate) error {
		// Re-evaluated under the entity lock; a concurrent reply or sweep
		// makes this a no-op.
		fired = s.rules.ApplySilence(c, now)
		return nil
	})
	if err != nil {
		s.logger.Error(err, "failed to mark candidate silent", "candidate_id", id.String())
		return
	}
	if !fired {
		return
	}

	s.metrics.SweepTransitions.WithLabelValues(s.Name(), "silent").Inc()
	s.publish(ctx, "candidate.silent", updated, map[string]interface{}{
		"silent_since": updated.SilentSince,
	})

	// Best-effort reminder; a delivery failure never rolls back the
	// transition.
	if s.reminder.Enabled {
		recipient := outreach.CandidateRecipient(updated)
		outcome := s.sender.SendDirect(ctx, &recipient, s.reminder.Template, s.reminder.Channels)
		if !outcome.Success {
			s.logger.Warn("silence reminder not delivered",
				"candidate_id", id.String(), "error", outcome.Error)
		}
	}
}

func (s *CandidateSweep) escalate(ctx context.Context, id uuid.UUID, now time.Time) {
	var fired bool
	updated, err := s.candidates.Update(ctx, id, func(c *model.Candidate) error {
		fired = s.rules.ApplyEscalation(c, now)
		return nil
	})
	if err != nil {
		s.logger.Error(err, "failed to escalate candidate", "candidate_id", id.String())
		return
	}
	if !fired {
		return
	}

	s.metrics.SweepTransitions.WithLabelValues(s.Name(), "transferred").Inc()
	s.publish(ctx, "candidate.transferred", updated, map[string]interface{}{
		"transferred_at": updated.TransferredAt,
	})
}

func (s *CandidateSweep) publish(ctx context.Context, name string, candidate *model.Candidate, payload map[string]interface{}) {
	if err := s.sink.Publish(ctx, notifier.Event{
		Name:     name,
		EntityID: candidate.ID,
		Payload:  payload,
		At:       s.clock.Now(),
	}); err != nil {
		s.logger.Error(err, "failed to publish sweep event", "event", name, "candidate_id", candidate.ID.String())
	}
}
