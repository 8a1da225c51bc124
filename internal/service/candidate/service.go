package candidate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/outreach-engine/internal/lifecycle"
	"github.com/jwalitptl/outreach-engine/internal/model"
	"github.com/jwalitptl/outreach-engine/internal/repository"
	"github.com/jwalitptl/outreach-engine/pkg/clock"
	apperrors "github.com/jwalitptl/outreach-engine/pkg/errors"
	"github.com/jwalitptl/outreach-engine/pkg/notifier"
)

type Service struct {
	repo  repository.CandidateRepository
	sink  notifier.Sink
	clock clock.Clock
}

func NewService(repo repository.CandidateRepository, sink notifier.Sink, clk clock.Clock) *Service {
	return &Service{
		repo:  repo,
		sink:  sink,
		clock: clk,
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateCandidateRequest) (*model.Candidate, error) {
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	candidate := &model.Candidate{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:       strings.TrimSpace(req.Name),
		Phone:      phone,
		ChatHandle: strings.TrimSpace(req.ChatHandle),
		Email:      strings.TrimSpace(req.Email),
		Project:    strings.TrimSpace(req.Project),
		Status:     model.CandidateStatusNew,
	}
	if candidate.Name == "" {
		return nil, apperrors.Validation("name is required", nil)
	}

	if err := s.repo.Create(ctx, candidate); err != nil {
		return nil, fmt.Errorf("failed to create candidate: %w", err)
	}

	s.publish(ctx, "candidate.created", candidate.ID, nil)
	return candidate, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Candidate, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.CandidateFilters) ([]*model.Candidate, error) {
	return s.repo.List(ctx, filters)
}

// RecordReply handles an inbound reply: it refreshes lastReplyAt and pulls a
// silent candidate back to active. A transferred candidate stays transferred.
func (s *Service) RecordReply(ctx context.Context, id uuid.UUID) (*model.Candidate, error) {
	var reactivated bool
	updated, err := s.repo.Update(ctx, id, func(c *model.Candidate) error {
		wasSilent := c.Status == model.CandidateStatusSilent
		lifecycle.ApplyReply(c, s.clock.Now())
		reactivated = wasSilent && c.Status == model.CandidateStatusActive
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "candidate.replied", id, map[string]interface{}{
		"status": updated.Status,
	})
	if reactivated {
		s.publish(ctx, "candidate.reactivated", id, nil)
	}
	return updated, nil
}

// UpdateStatus performs a staff-driven transition: a terminal state from any
// non-terminal one, or the explicit transferred-to-active revert.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status model.CandidateStatus) (*model.Candidate, error) {
	updated, err := s.repo.Update(ctx, id, func(c *model.Candidate) error {
		if !lifecycle.ApplyManualTransition(c, status, s.clock.Now()) {
			return apperrors.Conflict(
				fmt.Sprintf("cannot move candidate from %s to %s", c.Status, status), nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "candidate.status_changed", id, map[string]interface{}{
		"status": updated.Status,
	})
	return updated, nil
}

func (s *Service) publish(ctx context.Context, name string, id uuid.UUID, payload map[string]interface{}) {
	_ = s.sink.Publish(ctx, notifier.Event{
		Name:     name,
		EntityID: id,
		Payload:  payload,
		At:       s.clock.Now(),
	})
}

// normalizePhone strips separators and validates the result is a plausible
// international number.
func normalizePhone(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", apperrors.Validation(fmt.Sprintf("invalid phone number %q", raw), nil)
		}
	}
	digits := strings.TrimPrefix(b.String(), "+")
	if len(digits) < 7 || len(digits) > 15 {
		return "", apperrors.Validation(fmt.Sprintf("invalid phone number %q", raw), nil)
	}
	return b.String(), nil
}
