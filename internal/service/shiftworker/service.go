package shiftworker

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
	repo  repository.ShiftWorkerRepository
	sink  notifier.Sink
	clock clock.Clock
}

func NewService(repo repository.ShiftWorkerRepository, sink notifier.Sink, clk clock.Clock) *Service {
	return &Service{
		repo:  repo,
		sink:  sink,
		clock: clk,
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateShiftWorkerRequest) (*model.ShiftWorker, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.Validation("name is required", nil)
	}
	if strings.TrimSpace(req.Site) == "" {
		return nil, apperrors.Validation("site is required", nil)
	}

	now := s.clock.Now()
	worker := &model.ShiftWorker{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:       strings.TrimSpace(req.Name),
		Phone:      strings.TrimSpace(req.Phone),
		ChatHandle: strings.TrimSpace(req.ChatHandle),
		Email:      strings.TrimSpace(req.Email),
		Site:       strings.TrimSpace(req.Site),
	}
	if req.ShiftEndDate != nil {
		shiftEnd := *req.ShiftEndDate
		worker.ShiftEndDate = &shiftEnd
	}

	if err := s.repo.Create(ctx, worker); err != nil {
		return nil, fmt.Errorf("failed to create shift worker: %w", err)
	}

	s.publish(ctx, "shiftworker.created", worker.ID, nil)
	return worker, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.ShiftWorker, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.ShiftWorkerFilters) ([]*model.ShiftWorker, error) {
	return s.repo.List(ctx, filters)
}

// ReissueCheckpoint sets a fresh pending checkpoint, clearing any prior
// response regardless of the previous sub-state.
func (s *Service) ReissueCheckpoint(ctx context.Context, id uuid.UUID, req *model.ReissueCheckpointRequest) (*model.ShiftWorker, error) {
	if strings.TrimSpace(req.Label) == "" {
		return nil, apperrors.Validation("checkpoint label is required", nil)
	}

	updated, err := s.repo.Update(ctx, id, func(w *model.ShiftWorker) error {
		lifecycle.ReissueCheckpoint(w, strings.TrimSpace(req.Label), req.Date, s.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "checkpoint.reissued", id, map[string]interface{}{
		"checkpoint":      updated.CurrentCheckpoint,
		"checkpoint_date": updated.CheckpointDate,
	})
	return updated, nil
}

// RecordCheckpointResponse resolves a pending checkpoint with the worker's
// reply. A missed checkpoint stays missed until explicitly reissued.
func (s *Service) RecordCheckpointResponse(ctx context.Context, id uuid.UUID, response string) (*model.ShiftWorker, error) {
	if strings.TrimSpace(response) == "" {
		return nil, apperrors.Validation("response is required", nil)
	}

	updated, err := s.repo.Update(ctx, id, func(w *model.ShiftWorker) error {
		if !lifecycle.ApplyCheckpointResponse(w, response, s.clock.Now()) {
			return apperrors.Conflict(
				fmt.Sprintf("checkpoint is %s, not pending", w.CheckpointStatus), nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "checkpoint.responded", id, map[string]interface{}{
		"checkpoint": updated.CurrentCheckpoint,
	})
	return updated, nil
}

// ConfirmReturn records that the worker confirmed coming back for the next
// rotation, which silences the advance-notice timer.
func (s *Service) ConfirmReturn(ctx context.Context, id uuid.UUID) (*model.ShiftWorker, error) {
	updated, err := s.repo.Update(ctx, id, func(w *model.ShiftWorker) error {
		w.ReturnConfirmed = true
		w.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "shiftworker.return_confirmed", id, nil)
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
