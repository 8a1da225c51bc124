package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/outreach-engine/internal/model"
)

func testConfig() Config {
	return Config{
		SilenceThreshold:  8 * time.Hour,
		EscalationCutoff:  DayTime{Hour: 18, Minute: 30},
		CheckpointCutoff:  DayTime{Hour: 15, Minute: 0},
		AdvanceNoticeDays: 3,
		Location:          time.UTC,
	}
}

func activeCandidate(lastReply time.Time) *model.Candidate {
	return &model.Candidate{
		Status:      model.CandidateStatusActive,
		LastReplyAt: &lastReply,
	}
}

func TestIsSilent(t *testing.T) {
	cfg := testConfig()
	now := time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC)

	t.Run("active past threshold", func(t *testing.T) {
		c := activeCandidate(now.Add(-9 * time.Hour))
		assert.True(t, cfg.IsSilent(c, now))
	})

	t.Run("active within threshold", func(t *testing.T) {
		c := activeCandidate(now.Add(-7 * time.Hour))
		assert.False(t, cfg.IsSilent(c, now))
	})

	t.Run("exactly at threshold", func(t *testing.T) {
		c := activeCandidate(now.Add(-8 * time.Hour))
		assert.True(t, cfg.IsSilent(c, now))
	})

	t.Run("never replied", func(t *testing.T) {
		c := &model.Candidate{Status: model.CandidateStatusActive}
		assert.False(t, cfg.IsSilent(c, now))
	})

	t.Run("non-active status", func(t *testing.T) {
		c := activeCandidate(now.Add(-24 * time.Hour))
		c.Status = model.CandidateStatusTransferred
		assert.False(t, cfg.IsSilent(c, now))
	})
}

func TestApplySilence(t *testing.T) {
	cfg := testConfig()
	now := time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC)

	c := activeCandidate(now.Add(-9 * time.Hour))
	require.True(t, cfg.ApplySilence(c, now))
	assert.Equal(t, model.CandidateStatusSilent, c.Status)
	require.NotNil(t, c.SilentSince)
	assert.Equal(t, now, *c.SilentSince)

	// Already silent, rule does not fire again.
	assert.False(t, cfg.ApplySilence(c, now.Add(time.Hour)))
	assert.Equal(t, now, *c.SilentSince)
}

func TestShouldEscalate(t *testing.T) {
	cfg := testConfig()

	t.Run("past next-day cutoff", func(t *testing.T) {
		silentSince := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
		c := &model.Candidate{Status: model.CandidateStatusSilent, SilentSince: &silentSince}

		assert.False(t, cfg.ShouldEscalate(c, time.Date(2025, 3, 11, 18, 0, 0, 0, time.UTC)))
		assert.True(t, cfg.ShouldEscalate(c, time.Date(2025, 3, 11, 18, 30, 0, 0, time.UTC)))
		assert.True(t, cfg.ShouldEscalate(c, time.Date(2025, 3, 11, 19, 0, 0, 0, time.UTC)))
	})

	t.Run("cutoff is wall clock not duration", func(t *testing.T) {
		morning := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
		evening := time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)

		// Both escalate at the same clock time the next day.
		deadline := time.Date(2025, 3, 11, 18, 30, 0, 0, time.UTC)
		assert.Equal(t, deadline, cfg.EscalationDeadline(morning))
		assert.Equal(t, deadline, cfg.EscalationDeadline(evening))
	})

	t.Run("not silent", func(t *testing.T) {
		silentSince := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
		c := &model.Candidate{Status: model.CandidateStatusActive, SilentSince: &silentSince}
		assert.False(t, cfg.ShouldEscalate(c, time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)))
	})
}

func TestApplyEscalation(t *testing.T) {
	cfg := testConfig()
	silentSince := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 11, 19, 0, 0, 0, time.UTC)

	c := &model.Candidate{Status: model.CandidateStatusSilent, SilentSince: &silentSince}
	require.True(t, cfg.ApplyEscalation(c, now))
	assert.Equal(t, model.CandidateStatusTransferred, c.Status)
	assert.Nil(t, c.SilentSince, "silent_since only set while silent")
	require.NotNil(t, c.TransferredAt)
	assert.Equal(t, now, *c.TransferredAt)

	// Second application is a no-op.
	assert.False(t, cfg.ApplyEscalation(c, now.Add(time.Hour)))
}

func TestApplyReply(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("new activates", func(t *testing.T) {
		c := &model.Candidate{Status: model.CandidateStatusNew}
		ApplyReply(c, now)
		assert.Equal(t, model.CandidateStatusActive, c.Status)
		require.NotNil(t, c.LastReplyAt)
		assert.Equal(t, now, *c.LastReplyAt)
	})

	t.Run("silent reactivates", func(t *testing.T) {
		silentSince := now.Add(-10 * time.Hour)
		c := &model.Candidate{Status: model.CandidateStatusSilent, SilentSince: &silentSince}
		ApplyReply(c, now)
		assert.Equal(t, model.CandidateStatusActive, c.Status)
		assert.Nil(t, c.SilentSince)
	})

	t.Run("transferred stays transferred", func(t *testing.T) {
		c := &model.Candidate{Status: model.CandidateStatusTransferred}
		ApplyReply(c, now)
		assert.Equal(t, model.CandidateStatusTransferred, c.Status)
		require.NotNil(t, c.LastReplyAt)
	})
}

func TestCanTransitionManual(t *testing.T) {
	cases := []struct {
		from, to model.CandidateStatus
		ok       bool
	}{
		{model.CandidateStatusActive, model.CandidateStatusCompleted, true},
		{model.CandidateStatusSilent, model.CandidateStatusDeclined, true},
		{model.CandidateStatusTransferred, model.CandidateStatusArchived, true},
		{model.CandidateStatusNew, model.CandidateStatusBlocked, true},
		{model.CandidateStatusTransferred, model.CandidateStatusActive, true},
		{model.CandidateStatusSilent, model.CandidateStatusActive, false},
		{model.CandidateStatusCompleted, model.CandidateStatusDeclined, false},
		{model.CandidateStatusArchived, model.CandidateStatusActive, false},
		{model.CandidateStatusActive, model.CandidateStatusSilent, false},
		{model.CandidateStatusActive, model.CandidateStatusTransferred, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransitionManual(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestApplyManualTransition(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	silentSince := now.Add(-10 * time.Hour)

	c := &model.Candidate{Status: model.CandidateStatusSilent, SilentSince: &silentSince}
	require.True(t, ApplyManualTransition(c, model.CandidateStatusDeclined, now))
	assert.Equal(t, model.CandidateStatusDeclined, c.Status)
	assert.Nil(t, c.SilentSince)

	assert.False(t, ApplyManualTransition(c, model.CandidateStatusActive, now))
}
