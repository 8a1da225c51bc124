package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/outreach-engine/internal/model"
)

// All repository interfaces in one file.
//
// Update takes a mutator so that every read-modify-write is atomic per entity
// id: sweeps, the dispatcher and manual edits all go through it, never a bulk
// unguarded overwrite. The mutator runs under the entity's lock; returning an
// error aborts the update without mutation.
type (
	CandidateRepository interface {
		Create(ctx context.Context, candidate *model.Candidate) error
		Get(ctx context.Context, id uuid.UUID) (*model.Candidate, error)
		List(ctx context.Context, filters *model.CandidateFilters) ([]*model.Candidate, error)
		Update(ctx context.Context, id uuid.UUID, mutate func(*model.Candidate) error) (*model.Candidate, error)
	}

	ShiftWorkerRepository interface {
		Create(ctx context.Context, worker *model.ShiftWorker) error
		Get(ctx context.Context, id uuid.UUID) (*model.ShiftWorker, error)
		List(ctx context.Context, filters *model.ShiftWorkerFilters) ([]*model.ShiftWorker, error)
		Update(ctx context.Context, id uuid.UUID, mutate func(*model.ShiftWorker) error) (*model.ShiftWorker, error)
	}

	CampaignRepository interface {
		Create(ctx context.Context, campaign *model.Campaign) error
		Get(ctx context.Context, id uuid.UUID) (*model.Campaign, error)
		List(ctx context.Context, filters *model.CampaignFilters) ([]*model.Campaign, error)
		Update(ctx context.Context, id uuid.UUID, mutate func(*model.Campaign) error) (*model.Campaign, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}
)
