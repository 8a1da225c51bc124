package outreach

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/outreach-engine/internal/channel"
	"github.com/jwalitptl/outreach-engine/internal/model"
	"github.com/jwalitptl/outreach-engine/internal/repository"
	"github.com/jwalitptl/outreach-engine/pkg/circuitbreaker"
	"github.com/jwalitptl/outreach-engine/pkg/clock"
	apperrors "github.com/jwalitptl/outreach-engine/pkg/errors"
	"github.com/jwalitptl/outreach-engine/pkg/logger"
	"github.com/jwalitptl/outreach-engine/pkg/metrics"
	"github.com/jwalitptl/outreach-engine/pkg/notifier"
)

type DispatcherConfig struct {
	Throttle       time.Duration
	AttemptTimeout time.Duration
	MaxOutcomes    int
}

// Dispatcher personalizes and delivers messages recipient by recipient.
// Within one campaign the loop is strictly sequential because of the
// inter-send throttle; separate campaigns may dispatch concurrently, each
// recipient guarded by its own entity lock in the store.
type Dispatcher struct {
	senders    map[model.ChannelKind]channel.Sender
	breakers   map[model.ChannelKind]*circuitbreaker.CircuitBreaker
	campaigns  repository.CampaignRepository
	candidates repository.CandidateRepository
	sink       notifier.Sink
	logger     *logger.Logger
	metrics    *metrics.Metrics
	clock      clock.Clock
	config     DispatcherConfig
}

func NewDispatcher(
	config DispatcherConfig,
	senders map[model.ChannelKind]channel.Sender,
	campaigns repository.CampaignRepository,
	candidates repository.CandidateRepository,
	sink notifier.Sink,
	log *logger.Logger,
	m *metrics.Metrics,
	clk clock.Clock,
) *Dispatcher {
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = 10 * time.Second
	}
	if config.MaxOutcomes <= 0 {
		config.MaxOutcomes = 1000
	}

	breakers := make(map[model.ChannelKind]*circuitbreaker.CircuitBreaker, len(senders))
	for kind := range senders {
		breakers[kind] = circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "channel-" + string(kind),
			MaxFailures: 10,
			Timeout:     30 * time.Second,
		})
	}

	return &Dispatcher{
		senders:    senders,
		breakers:   breakers,
		campaigns:  campaigns,
		candidates: candidates,
		sink:       sink,
		logger:     log,
		metrics:    m,
		clock:      clk,
		config:     config,
	}
}

func (d *Dispatcher) limiter() *rate.Limiter {
	if d.config.Throttle <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d.config.Throttle), 1)
}

// Dispatch runs the per-recipient loop for one campaign. Outcomes are
// recorded in list order; the campaign moves to sent once the loop completes,
// failures included. Cancellation is cooperative: it is checked between
// recipients, and an in-flight attempt completes.
func (d *Dispatcher) Dispatch(ctx context.Context, campaign *model.Campaign, recipients []model.Recipient) (model.CampaignStats, error) {
	timer := prometheus.NewTimer(d.metrics.DispatchDuration)
	defer timer.ObserveDuration()

	stats := model.CampaignStats{Pending: len(recipients)}
	limiter := d.limiter()
	cancelled := false

	for i := range recipients {
		if i > 0 {
			if err := limiter.Wait(ctx); err != nil {
				return stats, err
			}
		}

		stop, err := d.shouldStop(ctx, campaign.ID)
		if err != nil {
			return stats, err
		}
		if stop {
			cancelled = true
			break
		}

		recipient := &recipients[i]
		outcome := d.attempt(ctx, campaign.Template, campaign.Channels, recipient)
		if outcome.Success {
			stats.Sent++
		} else {
			stats.Failed++
		}
		stats.Pending--

		d.recordOutcome(ctx, campaign.ID, outcome, stats)
		d.recordSMSAttempt(ctx, recipient, outcome)

		if err := d.sink.Publish(ctx, notifier.Event{
			Name:     "campaign.progress",
			EntityID: campaign.ID,
			At:       d.clock.Now(),
			Payload: map[string]interface{}{
				"sent":   stats.Sent,
				"failed": stats.Failed,
				"total":  len(recipients),
			},
		}); err != nil {
			d.logger.Error(err, "failed to publish dispatch progress", "campaign_id", campaign.ID.String())
		}
	}

	if cancelled {
		d.metrics.CampaignsCanceled.Inc()
		d.logger.Info("campaign cancelled mid-dispatch",
			"campaign_id", campaign.ID.String(), "processed", stats.Sent+stats.Failed)
		return stats, nil
	}

	if _, err := d.campaigns.Update(ctx, campaign.ID, func(c *model.Campaign) error {
		if !c.Status.CanTransition(model.CampaignStatusSent) {
			return apperrors.Conflict("campaign cannot complete from status "+string(c.Status), nil)
		}
		c.Status = model.CampaignStatusSent
		c.Stats = stats
		c.UpdatedAt = d.clock.Now()
		return nil
	}); err != nil {
		return stats, err
	}

	d.metrics.CampaignsSent.Inc()
	return stats, nil
}

// SendDirect delivers a single targeted message outside any campaign, used by
// sweeps for rule-driven reminders.
func (d *Dispatcher) SendDirect(ctx context.Context, recipient *model.Recipient, template string, channels []model.ChannelKind) model.DispatchOutcome {
	outcome := d.attempt(ctx, template, channels, recipient)
	d.recordSMSAttempt(ctx, recipient, outcome)
	return outcome
}

// shouldStop checks the campaign's persisted status between recipients.
func (d *Dispatcher) shouldStop(ctx context.Context, campaignID uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	current, err := d.campaigns.Get(ctx, campaignID)
	if err != nil {
		return false, err
	}
	return current.Status == model.CampaignStatusCancelled, nil
}

// attempt walks the channel priority list until one send succeeds. A channel
// with no identifier or no configured sender falls through to the next; a
// timed-out attempt counts as a failure and also falls through.
func (d *Dispatcher) attempt(ctx context.Context, template string, channels []model.ChannelKind, recipient *model.Recipient) model.DispatchOutcome {
	message := Render(template, recipient, d.clock.Now())
	outcome := model.DispatchOutcome{
		RecipientID: recipient.ID,
		At:          d.clock.Now(),
	}

	var lastErr error
	for _, kind := range channels {
		identifier := recipient.Identifier(kind)
		if identifier == "" {
			continue
		}
		sender, ok := d.senders[kind]
		if !ok {
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, d.config.AttemptTimeout)
		err := d.breakers[kind].Execute(func() error {
			return sender.Send(attemptCtx, identifier, message)
		})
		cancel()

		if err == nil {
			d.metrics.DispatchAttempts.WithLabelValues(string(kind), "success").Inc()
			outcome.Channel = kind
			outcome.Success = true
			return outcome
		}

		d.metrics.DispatchAttempts.WithLabelValues(string(kind), "failure").Inc()
		lastErr = apperrors.Delivery(string(kind), err)
		outcome.Channel = kind
		d.logger.Warn("delivery attempt failed",
			"recipient_id", recipient.ID.String(), "channel", string(kind), "error", err.Error())
	}

	if lastErr != nil {
		outcome.Error = lastErr.Error()
	} else {
		outcome.Error = "no deliverable channel"
	}
	return outcome
}

// recordOutcome appends to the campaign's bounded outcome list and keeps the
// running statistics exact. Best-effort; a store hiccup here never aborts the
// dispatch loop.
func (d *Dispatcher) recordOutcome(ctx context.Context, campaignID uuid.UUID, outcome model.DispatchOutcome, stats model.CampaignStats) {
	if _, err := d.campaigns.Update(ctx, campaignID, func(c *model.Campaign) error {
		c.Outcomes = append(c.Outcomes, outcome)
		if len(c.Outcomes) > d.config.MaxOutcomes {
			c.Outcomes = c.Outcomes[len(c.Outcomes)-d.config.MaxOutcomes:]
		}
		c.Stats = stats
		c.UpdatedAt = d.clock.Now()
		return nil
	}); err != nil {
		d.logger.Error(err, "failed to record dispatch outcome",
			"campaign_id", campaignID.String(), "recipient_id", outcome.RecipientID.String())
	}
}

// recordSMSAttempt keeps per-candidate sms accounting up to date.
func (d *Dispatcher) recordSMSAttempt(ctx context.Context, recipient *model.Recipient, outcome model.DispatchOutcome) {
	if !outcome.Success || outcome.Channel != model.ChannelSMS || recipient.Kind != model.RecipientCandidate {
		return
	}
	if _, err := d.candidates.Update(ctx, recipient.ID, func(c *model.Candidate) error {
		c.SMSAttempts++
		sentAt := outcome.At
		c.LastSMSAt = &sentAt
		c.UpdatedAt = d.clock.Now()
		return nil
	}); err != nil {
		d.logger.Error(err, "failed to record sms attempt", "candidate_id", recipient.ID.String())
	}
}
