package model

import (
	"time"
)

type CheckpointStatus string

const (
	CheckpointStatusPending   CheckpointStatus = "pending"
	CheckpointStatusResponded CheckpointStatus = "responded"
	CheckpointStatusMissed    CheckpointStatus = "missed"
)

// ShiftWorker is a rotational worker with a scheduled confirmation
// (checkpoint) they must acknowledge by a daily cutoff.
// CheckpointResponse is non-nil only when CheckpointStatus is responded.
type ShiftWorker struct {
	Base
	Name               string           `db:"name" json:"name"`
	Phone              string           `db:"phone" json:"phone"`
	ChatHandle         string           `db:"chat_handle" json:"chat_handle,omitempty"`
	Email              string           `db:"email" json:"email,omitempty"`
	Site               string           `db:"site" json:"site"`
	ShiftEndDate       *time.Time       `db:"shift_end_date" json:"shift_end_date,omitempty"`
	ReturnConfirmed    bool             `db:"return_confirmed" json:"return_confirmed"`
	AdvanceNoticeAt    *time.Time       `db:"advance_notice_at" json:"advance_notice_at,omitempty"`
	CurrentCheckpoint  string           `db:"current_checkpoint" json:"current_checkpoint,omitempty"`
	CheckpointDate     *time.Time       `db:"checkpoint_date" json:"checkpoint_date,omitempty"`
	CheckpointStatus   CheckpointStatus `db:"checkpoint_status" json:"checkpoint_status,omitempty"`
	CheckpointResponse *string          `db:"checkpoint_response" json:"checkpoint_response,omitempty"`
}

// Clone returns a deep copy, so store reads never alias stored state.
func (w *ShiftWorker) Clone() *ShiftWorker {
	out := *w
	out.ShiftEndDate = clonedTime(w.ShiftEndDate)
	out.AdvanceNoticeAt = clonedTime(w.AdvanceNoticeAt)
	out.CheckpointDate = clonedTime(w.CheckpointDate)
	out.CheckpointResponse = clonedString(w.CheckpointResponse)
	return &out
}

type CreateShiftWorkerRequest struct {
	Name         string     `json:"name" binding:"required"`
	Phone        string     `json:"phone" binding:"required"`
	ChatHandle   string     `json:"chat_handle"`
	Email        string     `json:"email" binding:"omitempty,email"`
	Site         string     `json:"site" binding:"required"`
	ShiftEndDate *time.Time `json:"shift_end_date"`
}

type ReissueCheckpointRequest struct {
	Label string    `json:"label" binding:"required"`
	Date  time.Time `json:"date" binding:"required"`
}

type CheckpointResponseRequest struct {
	Response string `json:"response" binding:"required"`
}

type ShiftWorkerFilters struct {
	Sites            []string
	CheckpointStatus CheckpointStatus
}

// Matches reports whether the worker passes the filter.
func (f *ShiftWorkerFilters) Matches(w *ShiftWorker) bool {
	if f == nil {
		return true
	}
	if len(f.Sites) > 0 {
		found := false
		for _, s := range f.Sites {
			if w.Site == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.CheckpointStatus != "" && w.CheckpointStatus != f.CheckpointStatus {
		return false
	}
	return true
}
