package campaign

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/outreach-engine/internal/model"
	"github.com/jwalitptl/outreach-engine/internal/repository"
	"github.com/jwalitptl/outreach-engine/pkg/clock"
	apperrors "github.com/jwalitptl/outreach-engine/pkg/errors"
	"github.com/jwalitptl/outreach-engine/pkg/logger"
	"github.com/jwalitptl/outreach-engine/pkg/metrics"
	"github.com/jwalitptl/outreach-engine/pkg/notifier"
)

// Resolver produces the frozen recipient list for one send.
type Resolver interface {
	Resolve(ctx context.Context, campaign *model.Campaign) ([]model.Recipient, error)
}

// Dispatcher runs the per-recipient delivery loop.
type Dispatcher interface {
	Dispatch(ctx context.Context, campaign *model.Campaign, recipients []model.Recipient) (model.CampaignStats, error)
}

type Service struct {
	repo       repository.CampaignRepository
	resolver   Resolver
	dispatcher Dispatcher
	sink       notifier.Sink
	logger     *logger.Logger
	metrics    *metrics.Metrics
	clock      clock.Clock
}

func NewService(
	repo repository.CampaignRepository,
	resolver Resolver,
	dispatcher Dispatcher,
	sink notifier.Sink,
	log *logger.Logger,
	m *metrics.Metrics,
	clk clock.Clock,
) *Service {
	return &Service{
		repo:       repo,
		resolver:   resolver,
		dispatcher: dispatcher,
		sink:       sink,
		logger:     log,
		metrics:    m,
		clock:      clk,
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateCampaignRequest) (*model.Campaign, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	campaign := &model.Campaign{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:       req.Name,
		Template:   req.Template,
		Channels:   req.Channels,
		Sources:    req.Sources,
		Exclusions: req.Exclusions,
		Projects:   req.Projects,
		Status:     model.CampaignStatusDraft,
	}

	if err := s.repo.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	s.publish(ctx, "campaign.created", campaign.ID, nil)
	return campaign, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.CampaignFilters) ([]*model.Campaign, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	campaign, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if campaign.Status == model.CampaignStatusSending {
		return apperrors.Conflict("cannot delete a campaign while it is sending", nil)
	}
	return s.repo.Delete(ctx, id)
}

// Cancel is terminal and blocks further sends. While sending, the dispatch
// loop observes the new status between recipients and stops.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	updated, err := s.repo.Update(ctx, id, func(c *model.Campaign) error {
		if !c.Status.CanTransition(model.CampaignStatusCancelled) {
			return apperrors.Conflict(
				fmt.Sprintf("cannot cancel campaign in status %s", c.Status), nil)
		}
		c.Status = model.CampaignStatusCancelled
		c.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "campaign.cancelled", id, nil)
	return updated, nil
}

// Send resolves the recipient population at send-time, freezes the count, and
// runs the dispatch loop to completion. A resolver failure marks the campaign
// failed rather than silently skipping the source; delivery failures are
// per-recipient statistics, never a send failure.
func (s *Service) Send(ctx context.Context, id uuid.UUID) (model.CampaignStats, error) {
	sending, err := s.repo.Update(ctx, id, func(c *model.Campaign) error {
		if !c.Status.CanTransition(model.CampaignStatusSending) {
			return apperrors.Conflict(
				fmt.Sprintf("cannot send campaign in status %s", c.Status), nil)
		}
		c.Status = model.CampaignStatusSending
		c.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		return model.CampaignStats{}, err
	}

	recipients, err := s.resolver.Resolve(ctx, sending)
	if err != nil {
		s.fail(ctx, id)
		return model.CampaignStats{}, fmt.Errorf("failed to resolve recipients: %w", err)
	}

	// The count is frozen here; later population changes do not affect this
	// send.
	sending, err = s.repo.Update(ctx, id, func(c *model.Campaign) error {
		c.RecipientCount = len(recipients)
		c.Stats = model.CampaignStats{Pending: len(recipients)}
		c.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		return model.CampaignStats{}, err
	}

	s.publish(ctx, "campaign.sending", id, map[string]interface{}{
		"recipient_count": len(recipients),
	})

	stats, err := s.dispatcher.Dispatch(ctx, sending, recipients)
	if err != nil {
		s.fail(ctx, id)
		return stats, fmt.Errorf("dispatch aborted: %w", err)
	}

	s.logger.Info("campaign dispatch finished",
		"campaign_id", id.String(), "sent", stats.Sent, "failed", stats.Failed)
	return stats, nil
}

// fail moves the campaign to failed, retaining whatever statistics were
// already gathered.
func (s *Service) fail(ctx context.Context, id uuid.UUID) {
	if _, err := s.repo.Update(ctx, id, func(c *model.Campaign) error {
		if !c.Status.CanTransition(model.CampaignStatusFailed) {
			return nil
		}
		c.Status = model.CampaignStatusFailed
		c.UpdatedAt = s.clock.Now()
		return nil
	}); err != nil {
		s.logger.Error(err, "failed to mark campaign failed", "campaign_id", id.String())
	}
	s.metrics.CampaignsFailed.Inc()
	s.publish(ctx, "campaign.failed", id, nil)
}

func (s *Service) publish(ctx context.Context, name string, id uuid.UUID, payload map[string]interface{}) {
	_ = s.sink.Publish(ctx, notifier.Event{
		Name:     name,
		EntityID: id,
		Payload:  payload,
		At:       s.clock.Now(),
	})
}

func validateRequest(req *model.CreateCampaignRequest) error {
	if req.Name == "" {
		return apperrors.Validation("name is required", nil)
	}
	if req.Template == "" {
		return apperrors.Validation("template is required", nil)
	}
	if len(req.Channels) == 0 {
		return apperrors.Validation("at least one channel is required", nil)
	}
	seen := make(map[model.ChannelKind]struct{}, len(req.Channels))
	for _, ch := range req.Channels {
		switch ch {
		case model.ChannelChat, model.ChannelSMS, model.ChannelEmail:
		default:
			return apperrors.Validation(fmt.Sprintf("unknown channel %q", ch), nil)
		}
		if _, dup := seen[ch]; dup {
			return apperrors.Validation(fmt.Sprintf("duplicate channel %q", ch), nil)
		}
		seen[ch] = struct{}{}
	}
	if len(req.Sources) == 0 {
		return apperrors.Validation("at least one recipient source is required", nil)
	}
	return nil
}
