package outreach

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/outreach-engine/internal/lifecycle"
	"github.com/jwalitptl/outreach-engine/internal/model"
	"github.com/jwalitptl/outreach-engine/internal/repository"
	"github.com/jwalitptl/outreach-engine/pkg/clock"
	apperrors "github.com/jwalitptl/outreach-engine/pkg/errors"
)

// Resolver turns a campaign's recipient-source specifications into one
// ordered, deduplicated recipient list. A source that cannot be fetched
// aborts resolution; the caller marks the campaign failed rather than
// silently skipping a population.
type Resolver struct {
	candidates repository.CandidateRepository
	workers    repository.ShiftWorkerRepository
	rules      lifecycle.Config
	clock      clock.Clock
}

func NewResolver(
	candidates repository.CandidateRepository,
	workers repository.ShiftWorkerRepository,
	rules lifecycle.Config,
	clk clock.Clock,
) *Resolver {
	return &Resolver{
		candidates: candidates,
		workers:    workers,
		rules:      rules,
		clock:      clk,
	}
}

func (r *Resolver) Resolve(ctx context.Context, campaign *model.Campaign) ([]model.Recipient, error) {
	var resolved []model.Recipient
	seen := make(map[uuid.UUID]struct{})

	for _, source := range campaign.Sources {
		batch, err := r.fetch(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve source %s: %w", source.Kind, err)
		}
		for _, recipient := range batch {
			if _, ok := seen[recipient.ID]; ok {
				continue
			}
			seen[recipient.ID] = struct{}{}
			if campaign.IsExcluded(recipient.ID) {
				continue
			}
			if !campaign.MatchesProject(recipient.Project) {
				continue
			}
			if !recipient.Deliverable() {
				continue
			}
			resolved = append(resolved, recipient)
		}
	}

	return resolved, nil
}

func (r *Resolver) fetch(ctx context.Context, source model.RecipientSource) ([]model.Recipient, error) {
	switch source.Kind {
	case model.SourceCandidatesByStatus:
		return r.fetchCandidates(ctx, &model.CandidateFilters{Statuses: source.Statuses}, nil)

	case model.SourceAllActiveCandidates:
		return r.fetchCandidates(ctx, &model.CandidateFilters{
			Statuses: []model.CandidateStatus{model.CandidateStatusActive},
		}, nil)

	case model.SourceSilentCandidates:
		// Candidates already marked silent plus active ones the silence rule
		// matches right now, so a campaign sent between sweeps reaches both.
		now := r.clock.Now()
		return r.fetchCandidates(ctx, &model.CandidateFilters{
			Statuses: []model.CandidateStatus{model.CandidateStatusSilent, model.CandidateStatusActive},
		}, func(c *model.Candidate) bool {
			return c.Status == model.CandidateStatusSilent || r.rules.IsSilent(c, now)
		})

	case model.SourceShiftWorkersBySite:
		workers, err := r.workers.List(ctx, &model.ShiftWorkerFilters{Sites: source.Sites})
		if err != nil {
			return nil, err
		}
		out := make([]model.Recipient, 0, len(workers))
		for _, w := range workers {
			out = append(out, WorkerRecipient(w))
		}
		return out, nil
	}

	return nil, apperrors.Validation(fmt.Sprintf("unknown recipient source %q", source.Kind), nil)
}

func (r *Resolver) fetchCandidates(ctx context.Context, filters *model.CandidateFilters, keep func(*model.Candidate) bool) ([]model.Recipient, error) {
	candidates, err := r.candidates.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	out := make([]model.Recipient, 0, len(candidates))
	for _, c := range candidates {
		if keep != nil && !keep(c) {
			continue
		}
		out = append(out, CandidateRecipient(c))
	}
	return out, nil
}

// CandidateRecipient flattens a candidate into a dispatchable recipient.
func CandidateRecipient(c *model.Candidate) model.Recipient {
	return model.Recipient{
		ID:          c.ID,
		Kind:        model.RecipientCandidate,
		Name:        c.Name,
		Phone:       c.Phone,
		ChatHandle:  c.ChatHandle,
		Email:       c.Email,
		Project:     c.Project,
		SilentSince: c.SilentSince,
	}
}

// WorkerRecipient flattens a shift worker into a dispatchable recipient. The
// work site doubles as the population filter key.
func WorkerRecipient(w *model.ShiftWorker) model.Recipient {
	return model.Recipient{
		ID:         w.ID,
		Kind:       model.RecipientShiftWorker,
		Name:       w.Name,
		Phone:      w.Phone,
		ChatHandle: w.ChatHandle,
		Email:      w.Email,
		Project:    w.Site,
	}
}
