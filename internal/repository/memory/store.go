package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/outreach-engine/internal/model"
	"github.com/jwalitptl/outreach-engine/pkg/errors"
)

// collection is a keyed in-process store with a per-entity lock, so a
// concurrent sweep and manual edit on the same record serialize instead of
// racing. Values are deep-copied on every read and write; callers never see
// stored state.
type collection[T any] struct {
	resource string
	items    *cache.Cache
	locks    sync.Map
	clone    func(*T) *T
}

func newCollection[T any](resource string, clone func(*T) *T) *collection[T] {
	return &collection[T]{
		resource: resource,
		items:    cache.New(cache.NoExpiration, 0),
		clone:    clone,
	}
}

func (c *collection[T]) lock(id uuid.UUID) *sync.Mutex {
	mu, _ := c.locks.LoadOrStore(id.String(), &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (c *collection[T]) create(id uuid.UUID, value *T) error {
	mu := c.lock(id)
	mu.Lock()
	defer mu.Unlock()

	if err := c.items.Add(id.String(), c.clone(value), cache.NoExpiration); err != nil {
		return errors.Conflict(c.resource+" already exists", err)
	}
	return nil
}

func (c *collection[T]) get(id uuid.UUID) (*T, error) {
	mu := c.lock(id)
	mu.Lock()
	defer mu.Unlock()

	raw, ok := c.items.Get(id.String())
	if !ok {
		return nil, errors.NotFound(c.resource, nil)
	}
	return c.clone(raw.(*T)), nil
}

func (c *collection[T]) list(match func(*T) bool) []*T {
	var out []*T
	for _, item := range c.items.Items() {
		v := item.Object.(*T)
		if match == nil || match(v) {
			out = append(out, c.clone(v))
		}
	}
	return out
}

func (c *collection[T]) update(id uuid.UUID, mutate func(*T) error) (*T, error) {
	mu := c.lock(id)
	mu.Lock()
	defer mu.Unlock()

	raw, ok := c.items.Get(id.String())
	if !ok {
		return nil, errors.NotFound(c.resource, nil)
	}

	value := c.clone(raw.(*T))
	if err := mutate(value); err != nil {
		return nil, err
	}
	c.items.Set(id.String(), c.clone(value), cache.NoExpiration)
	return value, nil
}

func (c *collection[T]) delete(id uuid.UUID) error {
	mu := c.lock(id)
	mu.Lock()
	defer mu.Unlock()

	if _, ok := c.items.Get(id.String()); !ok {
		return errors.NotFound(c.resource, nil)
	}
	c.items.Delete(id.String())
	return nil
}

// CandidateRepository is the in-memory candidate store.
type CandidateRepository struct {
	col *collection[model.Candidate]
}

func NewCandidateRepository() *CandidateRepository {
	return &CandidateRepository{
		col: newCollection("candidate", (*model.Candidate).Clone),
	}
}

func (r *CandidateRepository) Create(_ context.Context, candidate *model.Candidate) error {
	return r.col.create(candidate.ID, candidate)
}

func (r *CandidateRepository) Get(_ context.Context, id uuid.UUID) (*model.Candidate, error) {
	return r.col.get(id)
}

func (r *CandidateRepository) List(_ context.Context, filters *model.CandidateFilters) ([]*model.Candidate, error) {
	out := r.col.list(filters.Matches)
	sortByCreated(out, func(c *model.Candidate) (int64, string) {
		return c.CreatedAt.UnixNano(), c.ID.String()
	})
	return out, nil
}

func (r *CandidateRepository) Update(_ context.Context, id uuid.UUID, mutate func(*model.Candidate) error) (*model.Candidate, error) {
	return r.col.update(id, mutate)
}

// ShiftWorkerRepository is the in-memory shift worker store.
type ShiftWorkerRepository struct {
	col *collection[model.ShiftWorker]
}

func NewShiftWorkerRepository() *ShiftWorkerRepository {
	return &ShiftWorkerRepository{
		col: newCollection("shift worker", (*model.ShiftWorker).Clone),
	}
}

func (r *ShiftWorkerRepository) Create(_ context.Context, worker *model.ShiftWorker) error {
	return r.col.create(worker.ID, worker)
}

func (r *ShiftWorkerRepository) Get(_ context.Context, id uuid.UUID) (*model.ShiftWorker, error) {
	return r.col.get(id)
}

func (r *ShiftWorkerRepository) List(_ context.Context, filters *model.ShiftWorkerFilters) ([]*model.ShiftWorker, error) {
	out := r.col.list(filters.Matches)
	sortByCreated(out, func(w *model.ShiftWorker) (int64, string) {
		return w.CreatedAt.UnixNano(), w.ID.String()
	})
	return out, nil
}

func (r *ShiftWorkerRepository) Update(_ context.Context, id uuid.UUID, mutate func(*model.ShiftWorker) error) (*model.ShiftWorker, error) {
	return r.col.update(id, mutate)
}

// CampaignRepository is the in-memory campaign store.
type CampaignRepository struct {
	col *collection[model.Campaign]
}

func NewCampaignRepository() *CampaignRepository {
	return &CampaignRepository{
		col: newCollection("campaign", (*model.Campaign).Clone),
	}
}

func (r *CampaignRepository) Create(_ context.Context, campaign *model.Campaign) error {
	return r.col.create(campaign.ID, campaign)
}

func (r *CampaignRepository) Get(_ context.Context, id uuid.UUID) (*model.Campaign, error) {
	return r.col.get(id)
}

func (r *CampaignRepository) List(_ context.Context, filters *model.CampaignFilters) ([]*model.Campaign, error) {
	out := r.col.list(filters.Matches)
	sortByCreated(out, func(c *model.Campaign) (int64, string) {
		return c.CreatedAt.UnixNano(), c.ID.String()
	})
	return out, nil
}

func (r *CampaignRepository) Update(_ context.Context, id uuid.UUID, mutate func(*model.Campaign) error) (*model.Campaign, error) {
	return r.col.update(id, mutate)
}

func (r *CampaignRepository) Delete(_ context.Context, id uuid.UUID) error {
	return r.col.delete(id)
}

// sortByCreated orders listings by creation time, id as tie-breaker, so full
// scans and recipient resolution are deterministic.
func sortByCreated[T any](items []*T, key func(*T) (int64, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti != tj {
			return ti < tj
		}
		return idi < idj
	})
}
