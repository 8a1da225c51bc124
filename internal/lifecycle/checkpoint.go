package lifecycle

import (
	"time"

	"github.com/jwalitptl/outreach-engine/internal/model"
)

// CheckpointDeadline is the clock time a pending checkpoint must be answered
// by: the daily cutoff on the checkpoint's due day.
func (c Config) CheckpointDeadline(checkpointDate time.Time) time.Time {
	return c.CheckpointCutoff.On(checkpointDate, c.location())
}

// IsOverdue reports whether a pending checkpoint's deadline has passed
// unanswered. A checkpoint due on an earlier day that was never swept counts
// as overdue too; its deadline is long past.
func (c Config) IsOverdue(worker *model.ShiftWorker, now time.Time) bool {
	if worker.CheckpointStatus != model.CheckpointStatusPending {
		return false
	}
	if worker.CheckpointDate == nil {
		return false
	}
	if worker.CheckpointResponse != nil {
		return false
	}
	return now.After(c.CheckpointDeadline(*worker.CheckpointDate))
}

// ApplyMissed marks an overdue checkpoint missed. One-way; only an explicit
// reissue returns it to pending.
func (c Config) ApplyMissed(worker *model.ShiftWorker, now time.Time) bool {
	if !c.IsOverdue(worker, now) {
		return false
	}
	worker.CheckpointStatus = model.CheckpointStatusMissed
	worker.UpdatedAt = now
	return true
}

// ApplyCheckpointResponse resolves a pending checkpoint with the worker's
// reply. A missed checkpoint stays missed until reissued.
func ApplyCheckpointResponse(worker *model.ShiftWorker, response string, now time.Time) bool {
	if worker.CheckpointStatus != model.CheckpointStatusPending {
		return false
	}
	worker.CheckpointStatus = model.CheckpointStatusResponded
	worker.CheckpointResponse = &response
	worker.UpdatedAt = now
	return true
}

// ReissueCheckpoint re-enters pending regardless of the prior sub-state and
// clears any previous response.
func ReissueCheckpoint(worker *model.ShiftWorker, label string, date time.Time, now time.Time) {
	worker.CurrentCheckpoint = label
	checkpointDate := date
	worker.CheckpointDate = &checkpointDate
	worker.CheckpointStatus = model.CheckpointStatusPending
	worker.CheckpointResponse = nil
	worker.UpdatedAt = now
}

// NeedsAdvanceNotice reports whether the "N days before shift end" marker has
// passed with no confirmed return. Independent of the checkpoint cutoff.
func (c Config) NeedsAdvanceNotice(worker *model.ShiftWorker, now time.Time) bool {
	if worker.ShiftEndDate == nil {
		return false
	}
	if worker.ReturnConfirmed {
		return false
	}
	marker := worker.ShiftEndDate.In(c.location()).AddDate(0, 0, -c.AdvanceNoticeDays)
	return !now.Before(marker)
}

// ApplyAdvanceNotice stamps the worker so notice is raised once per shift.
func (c Config) ApplyAdvanceNotice(worker *model.ShiftWorker, now time.Time) bool {
	if !c.NeedsAdvanceNotice(worker, now) {
		return false
	}
	if worker.AdvanceNoticeAt != nil {
		return false
	}
	noticeAt := now
	worker.AdvanceNoticeAt = &noticeAt
	worker.UpdatedAt = now
	return true
}
