package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/outreach-engine/internal/model"
)

func pendingCheckpoint(due time.Time) *model.ShiftWorker {
	return &model.ShiftWorker{
		CurrentCheckpoint: "return-travel",
		CheckpointDate:    &due,
		CheckpointStatus:  model.CheckpointStatusPending,
	}
}

func TestIsOverdue(t *testing.T) {
	cfg := testConfig()
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("past cutoff on due day", func(t *testing.T) {
		w := pendingCheckpoint(due)
		assert.False(t, cfg.IsOverdue(w, time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)))
		assert.False(t, cfg.IsOverdue(w, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)))
		assert.True(t, cfg.IsOverdue(w, time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)))
	})

	t.Run("due day long past", func(t *testing.T) {
		w := pendingCheckpoint(due)
		assert.True(t, cfg.IsOverdue(w, time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)))
	})

	t.Run("already responded", func(t *testing.T) {
		w := pendingCheckpoint(due)
		response := "on the train"
		w.CheckpointStatus = model.CheckpointStatusResponded
		w.CheckpointResponse = &response
		assert.False(t, cfg.IsOverdue(w, time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)))
	})

	t.Run("no checkpoint issued", func(t *testing.T) {
		w := &model.ShiftWorker{CheckpointStatus: model.CheckpointStatusPending}
		assert.False(t, cfg.IsOverdue(w, time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)))
	})
}

func TestApplyMissed(t *testing.T) {
	cfg := testConfig()
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)

	w := pendingCheckpoint(due)
	require.True(t, cfg.ApplyMissed(w, now))
	assert.Equal(t, model.CheckpointStatusMissed, w.CheckpointStatus)
	assert.Nil(t, w.CheckpointResponse)

	// Missed is sticky.
	assert.False(t, cfg.ApplyMissed(w, now.Add(time.Hour)))
}

func TestApplyCheckpointResponse(t *testing.T) {
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)

	w := pendingCheckpoint(due)
	require.True(t, ApplyCheckpointResponse(w, "boarding now", now))
	assert.Equal(t, model.CheckpointStatusResponded, w.CheckpointStatus)
	require.NotNil(t, w.CheckpointResponse)
	assert.Equal(t, "boarding now", *w.CheckpointResponse)

	// A missed checkpoint does not accept a late response.
	missed := pendingCheckpoint(due)
	missed.CheckpointStatus = model.CheckpointStatusMissed
	assert.False(t, ApplyCheckpointResponse(missed, "sorry, late", now))
	assert.Equal(t, model.CheckpointStatusMissed, missed.CheckpointStatus)
}

func TestReissueCheckpoint(t *testing.T) {
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)

	w := pendingCheckpoint(due)
	w.CheckpointStatus = model.CheckpointStatusMissed

	newDue := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	ReissueCheckpoint(w, "arrival-confirmation", newDue, now)

	assert.Equal(t, "arrival-confirmation", w.CurrentCheckpoint)
	assert.Equal(t, model.CheckpointStatusPending, w.CheckpointStatus)
	require.NotNil(t, w.CheckpointDate)
	assert.Equal(t, newDue, *w.CheckpointDate)
	assert.Nil(t, w.CheckpointResponse)
}

func TestNeedsAdvanceNotice(t *testing.T) {
	cfg := testConfig()
	shiftEnd := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	t.Run("inside notice window", func(t *testing.T) {
		w := &model.ShiftWorker{ShiftEndDate: &shiftEnd}
		assert.False(t, cfg.NeedsAdvanceNotice(w, time.Date(2025, 3, 16, 12, 0, 0, 0, time.UTC)))
		assert.True(t, cfg.NeedsAdvanceNotice(w, time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)))
		assert.True(t, cfg.NeedsAdvanceNotice(w, time.Date(2025, 3, 19, 12, 0, 0, 0, time.UTC)))
	})

	t.Run("return confirmed", func(t *testing.T) {
		w := &model.ShiftWorker{ShiftEndDate: &shiftEnd, ReturnConfirmed: true}
		assert.False(t, cfg.NeedsAdvanceNotice(w, time.Date(2025, 3, 19, 12, 0, 0, 0, time.UTC)))
	})

	t.Run("no shift end", func(t *testing.T) {
		w := &model.ShiftWorker{}
		assert.False(t, cfg.NeedsAdvanceNotice(w, time.Date(2025, 3, 19, 12, 0, 0, 0, time.UTC)))
	})
}

func TestApplyAdvanceNotice(t *testing.T) {
	cfg := testConfig()
	shiftEnd := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 18, 9, 0, 0, 0, time.UTC)

	w := &model.ShiftWorker{ShiftEndDate: &shiftEnd}
	require.True(t, cfg.ApplyAdvanceNotice(w, now))
	require.NotNil(t, w.AdvanceNoticeAt)
	assert.Equal(t, now, *w.AdvanceNoticeAt)

	// Raised once per shift.
	assert.False(t, cfg.ApplyAdvanceNotice(w, now.Add(time.Hour)))
	assert.Equal(t, now, *w.AdvanceNoticeAt)
}
