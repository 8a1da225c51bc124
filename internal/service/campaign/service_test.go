package campaign

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/outreach-engine/internal/channel"
	"github.com/jwalitptl/outreach-engine/internal/lifecycle"
	"github.com/jwalitptl/outreach-engine/internal/model"
	"github.com/jwalitptl/outreach-engine/internal/outreach"
	"github.com/jwalitptl/outreach-engine/internal/repository/memory"
	"github.com/jwalitptl/outreach-engine/pkg/clock"
	apperrors "github.com/jwalitptl/outreach-engine/pkg/errors"
	"github.com/jwalitptl/outreach-engine/pkg/logger"
	"github.com/jwalitptl/outreach-engine/pkg/metrics"
	"github.com/jwalitptl/outreach-engine/pkg/notifier"
)

var serviceNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type resolverStub struct {
	recipients []model.Recipient
	err        error
}

func (r *resolverStub) Resolve(context.Context, *model.Campaign) ([]model.Recipient, error) {
	return r.recipients, r.err
}

type dispatcherStub struct {
	stats model.CampaignStats
	err   error
	seen  *model.Campaign
}

func (d *dispatcherStub) Dispatch(_ context.Context, campaign *model.Campaign, _ []model.Recipient) (model.CampaignStats, error) {
	d.seen = campaign
	return d.stats, d.err
}

func newTestService(resolver *resolverStub, dispatcher *dispatcherStub) (*Service, *memory.CampaignRepository, *notifier.MemorySink) {
	repo := memory.NewCampaignRepository()
	sink := notifier.NewMemorySink()
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
	svc := NewService(repo, resolver, dispatcher, sink, log, metrics.New("test"), clock.NewFake(serviceNow))
	return svc, repo, sink
}

func validRequest() *model.CreateCampaignRequest {
	return &model.CreateCampaignRequest{
		Name:     "silent nudge",
		Template: "Hi {name}, still interested?",
		Channels: []model.ChannelKind{model.ChannelChat, model.ChannelSMS},
		Sources:  []model.RecipientSource{{Kind: model.SourceSilentCandidates}},
	}
}

func TestCreateCampaign(t *testing.T) {
	svc, _, sink := newTestService(&resolverStub{}, &dispatcherStub{})

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusDraft, created.Status)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Len(t, sink.Named("campaign.created"), 1)
}

func TestCreateCampaignValidation(t *testing.T) {
	svc, _, _ := newTestService(&resolverStub{}, &dispatcherStub{})

	cases := []struct {
		name   string
		mutate func(*model.CreateCampaignRequest)
	}{
		{"missing name", func(r *model.CreateCampaignRequest) { r.Name = "" }},
		{"missing template", func(r *model.CreateCampaignRequest) { r.Template = "" }},
		{"no channels", func(r *model.CreateCampaignRequest) { r.Channels = nil }},
		{"unknown channel", func(r *model.CreateCampaignRequest) {
			r.Channels = []model.ChannelKind{"carrier-pigeon"}
		}},
		{"duplicate channel", func(r *model.CreateCampaignRequest) {
			r.Channels = []model.ChannelKind{model.ChannelSMS, model.ChannelSMS}
		}},
		{"no sources", func(r *model.CreateCampaignRequest) { r.Sources = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(req)
			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestSendFreezesRecipientCount(t *testing.T) {
	resolver := &resolverStub{recipients: []model.Recipient{
		{ID: uuid.New(), Name: "Anna", Phone: "+4915100001"},
		{ID: uuid.New(), Name: "Ben", Phone: "+4915100002"},
	}}
	dispatcher := &dispatcherStub{stats: model.CampaignStats{Sent: 2}}
	svc, repo, sink := newTestService(resolver, dispatcher)

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	stats, err := svc.Send(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sent)

	stored, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.RecipientCount)

	require.NotNil(t, dispatcher.seen)
	assert.Equal(t, model.CampaignStatusSending, dispatcher.seen.Status)
	assert.Len(t, sink.Named("campaign.sending"), 1)
}

func TestSendRequiresDraft(t *testing.T) {
	svc, repo, _ := newTestService(&resolverStub{}, &dispatcherStub{})

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = repo.Update(context.Background(), created.ID, func(c *model.Campaign) error {
		c.Status = model.CampaignStatusSent
		return nil
	})
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), created.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))
}

func TestSendFailsOnResolverError(t *testing.T) {
	resolver := &resolverStub{err: errors.New("store unavailable")}
	svc, repo, sink := newTestService(resolver, &dispatcherStub{})

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), created.ID)
	require.Error(t, err)

	stored, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusFailed, stored.Status)
	assert.Len(t, sink.Named("campaign.failed"), 1)
}

func TestSendFailsOnDispatchAbort(t *testing.T) {
	resolver := &resolverStub{recipients: []model.Recipient{
		{ID: uuid.New(), Name: "Anna", Phone: "+4915100001"},
	}}
	dispatcher := &dispatcherStub{err: errors.New("store unavailable")}
	svc, repo, _ := newTestService(resolver, dispatcher)

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), created.ID)
	require.Error(t, err)

	stored, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusFailed, stored.Status)
}

func TestSendEndToEnd(t *testing.T) {
	candidates := memory.NewCandidateRepository()
	repo := memory.NewCampaignRepository()
	sink := notifier.NewMemorySink()
	clk := clock.NewFake(serviceNow)
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
	m := metrics.New("test")

	var excluded []uuid.UUID
	for i := 0; i < 10; i++ {
		c := &model.Candidate{
			Base:   model.Base{ID: uuid.New(), CreatedAt: serviceNow.Add(time.Duration(i) * time.Millisecond)},
			Name:   "Candidate",
			Phone:  "+491512345678",
			Status: model.CandidateStatusActive,
		}
		require.NoError(t, candidates.Create(context.Background(), c))
		if i < 3 {
			excluded = append(excluded, c.ID)
		}
	}

	rules := lifecycle.DefaultConfig()
	resolver := outreach.NewResolver(candidates, memory.NewShiftWorkerRepository(), rules, clk)
	dispatcher := outreach.NewDispatcher(
		outreach.DispatcherConfig{AttemptTimeout: time.Second},
		map[model.ChannelKind]channel.Sender{
			model.ChannelSMS: channel.Func(func(context.Context, string, string) error { return nil }),
		},
		repo, candidates, sink, log, m, clk,
	)
	svc := NewService(repo, resolver, dispatcher, sink, log, m, clk)

	created, err := svc.Create(context.Background(), &model.CreateCampaignRequest{
		Name:       "all active",
		Template:   "Hi {name}",
		Channels:   []model.ChannelKind{model.ChannelSMS},
		Sources:    []model.RecipientSource{{Kind: model.SourceAllActiveCandidates}},
		Exclusions: excluded,
	})
	require.NoError(t, err)

	stats, err := svc.Send(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Sent)
	assert.Equal(t, 0, stats.Failed)

	stored, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusSent, stored.Status)
	assert.Equal(t, 7, stored.RecipientCount)
	assert.Len(t, sink.Named("campaign.progress"), 7)
}

func TestCancel(t *testing.T) {
	svc, repo, sink := newTestService(&resolverStub{}, &dispatcherStub{})

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusCancelled, cancelled.Status)
	assert.Len(t, sink.Named("campaign.cancelled"), 1)

	// Cancelled is terminal.
	_, err = svc.Cancel(context.Background(), created.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))

	_, err = repo.Update(context.Background(), created.ID, func(c *model.Campaign) error {
		c.Status = model.CampaignStatusSent
		return nil
	})
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), created.ID)
	require.Error(t, err)
}

func TestDeleteBlockedWhileSending(t *testing.T) {
	svc, repo, _ := newTestService(&resolverStub{}, &dispatcherStub{})

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = repo.Update(context.Background(), created.ID, func(c *model.Campaign) error {
		c.Status = model.CampaignStatusSending
		return nil
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), created.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))

	_, err = repo.Update(context.Background(), created.ID, func(c *model.Campaign) error {
		c.Status = model.CampaignStatusSent
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), created.ID))

	_, err = svc.Get(context.Background(), created.ID)
	assert.True(t, apperrors.IsNotFound(err))
}
