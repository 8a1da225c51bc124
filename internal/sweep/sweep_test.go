package sweep

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/outreach-engine/internal/lifecycle"
	"github.com/jwalitptl/outreach-engine/internal/model"
	"github.com/jwalitptl/outreach-engine/internal/repository/memory"
	"github.com/jwalitptl/outreach-engine/pkg/clock"
	"github.com/jwalitptl/outreach-engine/pkg/logger"
	"github.com/jwalitptl/outreach-engine/pkg/metrics"
	"github.com/jwalitptl/outreach-engine/pkg/notifier"
)

var sweepNow = time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC)

func testRules() lifecycle.Config {
	return lifecycle.Config{
		SilenceThreshold:  8 * time.Hour,
		EscalationCutoff:  lifecycle.DayTime{Hour: 18, Minute: 30},
		CheckpointCutoff:  lifecycle.DayTime{Hour: 15, Minute: 0},
		AdvanceNoticeDays: 3,
		Location:          time.UTC,
	}
}

func quietLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

type directSenderStub struct {
	calls []model.Recipient
}

func (s *directSenderStub) SendDirect(_ context.Context, recipient *model.Recipient, _ string, _ []model.ChannelKind) model.DispatchOutcome {
	s.calls = append(s.calls, *recipient)
	return model.DispatchOutcome{RecipientID: recipient.ID, Success: true}
}

func TestCandidateSweepMarksSilent(t *testing.T) {
	candidates := memory.NewCandidateRepository()
	sink := notifier.NewMemorySink()
	sender := &directSenderStub{}
	clk := clock.NewFake(sweepNow)

	lastReply := sweepNow.Add(-9 * time.Hour)
	quiet := &model.Candidate{
		Base:        model.Base{ID: uuid.New(), CreatedAt: sweepNow},
		Name:        "Anna",
		Phone:       "+4915100001",
		Status:      model.CandidateStatusActive,
		LastReplyAt: &lastReply,
	}
	require.NoError(t, candidates.Create(context.Background(), quiet))

	recentReply := sweepNow.Add(-1 * time.Hour)
	fresh := &model.Candidate{
		Base:        model.Base{ID: uuid.New(), CreatedAt: sweepNow},
		Name:        "Ben",
		Phone:       "+4915100002",
		Status:      model.CandidateStatusActive,
		LastReplyAt: &recentReply,
	}
	require.NoError(t, candidates.Create(context.Background(), fresh))

	s := NewCandidateSweep(candidates, sender, sink, quietLogger(), metrics.New("test"),
		clk, testRules(), time.Minute,
		ReminderConfig{Enabled: true, Template: "Hi {name}", Channels: []model.ChannelKind{model.ChannelSMS}})

	require.NoError(t, s.Run(context.Background()))

	stored, err := candidates.Get(context.Background(), quiet.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CandidateStatusSilent, stored.Status)
	require.NotNil(t, stored.SilentSince)
	assert.Equal(t, sweepNow, *stored.SilentSince)

	untouched, err := candidates.Get(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CandidateStatusActive, untouched.Status)

	assert.Len(t, sink.Named("candidate.silent"), 1)
	require.Len(t, sender.calls, 1)
	assert.Equal(t, quiet.ID, sender.calls[0].ID)

	// A second run over the same state is a no-op.
	require.NoError(t, s.Run(context.Background()))
	assert.Len(t, sink.Named("candidate.silent"), 1)
	assert.Len(t, sender.calls, 1)
}

func TestCandidateSweepEscalates(t *testing.T) {
	candidates := memory.NewCandidateRepository()
	sink := notifier.NewMemorySink()
	clk := clock.NewFake(sweepNow)

	silentSince := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	overdue := &model.Candidate{
		Base:        model.Base{ID: uuid.New(), CreatedAt: sweepNow},
		Name:        "Anna",
		Phone:       "+4915100001",
		Status:      model.CandidateStatusSilent,
		SilentSince: &silentSince,
	}
	require.NoError(t, candidates.Create(context.Background(), overdue))

	s := NewCandidateSweep(candidates, &directSenderStub{}, sink, quietLogger(),
		metrics.New("test"), clk, testRules(), time.Minute, ReminderConfig{})

	require.NoError(t, s.Run(context.Background()))

	stored, err := candidates.Get(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CandidateStatusTransferred, stored.Status)
	assert.Nil(t, stored.SilentSince)
	require.NotNil(t, stored.TransferredAt)
	assert.Len(t, sink.Named("candidate.transferred"), 1)
}

func TestCandidateSweepHoldsBeforeCutoff(t *testing.T) {
	candidates := memory.NewCandidateRepository()
	sink := notifier.NewMemorySink()
	clk := clock.NewFake(time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC))

	silentSince := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	waiting := &model.Candidate{
		Base:        model.Base{ID: uuid.New(), CreatedAt: sweepNow},
		Name:        "Anna",
		Phone:       "+4915100001",
		Status:      model.CandidateStatusSilent,
		SilentSince: &silentSince,
	}
	require.NoError(t, candidates.Create(context.Background(), waiting))

	s := NewCandidateSweep(candidates, &directSenderStub{}, sink, quietLogger(),
		metrics.New("test"), clk, testRules(), time.Minute, ReminderConfig{})

	require.NoError(t, s.Run(context.Background()))

	stored, err := candidates.Get(context.Background(), waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CandidateStatusSilent, stored.Status)
	assert.Empty(t, sink.Named("candidate.transferred"))
}

func TestCheckpointSweepMarksMissed(t *testing.T) {
	workers := memory.NewShiftWorkerRepository()
	sink := notifier.NewMemorySink()
	clk := clock.NewFake(time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC))

	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	overdue := &model.ShiftWorker{
		Base:              model.Base{ID: uuid.New(), CreatedAt: due},
		Name:              "Olaf",
		Site:              "plant-north",
		CurrentCheckpoint: "return-travel",
		CheckpointDate:    &due,
		CheckpointStatus:  model.CheckpointStatusPending,
	}
	require.NoError(t, workers.Create(context.Background(), overdue))

	tomorrow := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	notYetDue := &model.ShiftWorker{
		Base:              model.Base{ID: uuid.New(), CreatedAt: due},
		Name:              "Piotr",
		Site:              "plant-north",
		CurrentCheckpoint: "return-travel",
		CheckpointDate:    &tomorrow,
		CheckpointStatus:  model.CheckpointStatusPending,
	}
	require.NoError(t, workers.Create(context.Background(), notYetDue))

	s := NewCheckpointSweep(workers, sink, quietLogger(), metrics.New("test"),
		clk, testRules(), time.Minute)

	require.NoError(t, s.Run(context.Background()))

	stored, err := workers.Get(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CheckpointStatusMissed, stored.CheckpointStatus)
	assert.Nil(t, stored.CheckpointResponse)

	waiting, err := workers.Get(context.Background(), notYetDue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CheckpointStatusPending, waiting.CheckpointStatus)

	assert.Len(t, sink.Named("checkpoint.missed"), 1)
}

func TestAdvanceNoticeSweepFiresOnce(t *testing.T) {
	workers := memory.NewShiftWorkerRepository()
	sink := notifier.NewMemorySink()
	clk := clock.NewFake(time.Date(2025, 3, 18, 9, 0, 0, 0, time.UTC))

	shiftEnd := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	ending := &model.ShiftWorker{
		Base:         model.Base{ID: uuid.New(), CreatedAt: shiftEnd},
		Name:         "Olaf",
		Site:         "plant-north",
		ShiftEndDate: &shiftEnd,
	}
	require.NoError(t, workers.Create(context.Background(), ending))

	confirmed := &model.ShiftWorker{
		Base:            model.Base{ID: uuid.New(), CreatedAt: shiftEnd},
		Name:            "Piotr",
		Site:            "plant-north",
		ShiftEndDate:    &shiftEnd,
		ReturnConfirmed: true,
	}
	require.NoError(t, workers.Create(context.Background(), confirmed))

	s := NewAdvanceNoticeSweep(workers, sink, quietLogger(), metrics.New("test"),
		clk, testRules(), time.Minute)

	require.NoError(t, s.Run(context.Background()))
	require.NoError(t, s.Run(context.Background()))

	assert.Len(t, sink.Named("shiftworker.advance_notice"), 1)

	stored, err := workers.Get(context.Background(), ending.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AdvanceNoticeAt)

	skipped, err := workers.Get(context.Background(), confirmed.ID)
	require.NoError(t, err)
	assert.Nil(t, skipped.AdvanceNoticeAt)
}

func TestSchedulerRunsSweepAndStops(t *testing.T) {
	runs := make(chan struct{}, 8)
	s := NewScheduler(quietLogger(), metrics.New("test"))
	s.Register(sweepFunc{
		name:     "tick",
		interval: 10 * time.Millisecond,
		run: func(context.Context) error {
			select {
			case runs <- struct{}{}:
			default:
			}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	select {
	case <-runs:
	case <-time.After(time.Second):
		t.Fatal("sweep never ran")
	}

	cancel()
	s.Wait()
}

type sweepFunc struct {
	name     string
	interval time.Duration
	run      func(context.Context) error
}

func (s sweepFunc) Name() string            { return s.name }
func (s sweepFunc) Interval() time.Duration { return s.interval }
func (s sweepFunc) Run(ctx context.Context) error {
	return s.run(ctx)
}
