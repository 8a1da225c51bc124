package model

import (
	"time"
)

type CandidateStatus string

const (
	CandidateStatusNew         CandidateStatus = "new"
	CandidateStatusActive      CandidateStatus = "active"
	CandidateStatusSilent      CandidateStatus = "silent"
	CandidateStatusTransferred CandidateStatus = "transferred"
	CandidateStatusCompleted   CandidateStatus = "completed"
	CandidateStatusDeclined    CandidateStatus = "declined"
	CandidateStatusArchived    CandidateStatus = "archived"
	CandidateStatusBlocked     CandidateStatus = "blocked"
)

// Candidate is a person moving through the recruiting lifecycle.
// SilentSince is non-nil iff Status is silent; TransferredAt is set exactly
// once on escalation and never cleared.
type Candidate struct {
	Base
	Name          string          `db:"name" json:"name"`
	Phone         string          `db:"phone" json:"phone"`
	ChatHandle    string          `db:"chat_handle" json:"chat_handle,omitempty"`
	Email         string          `db:"email" json:"email,omitempty"`
	Project       string          `db:"project" json:"project,omitempty"`
	Status        CandidateStatus `db:"status" json:"status"`
	LastReplyAt   *time.Time      `db:"last_reply_at" json:"last_reply_at,omitempty"`
	SilentSince   *time.Time      `db:"silent_since" json:"silent_since,omitempty"`
	TransferredAt *time.Time      `db:"transferred_at" json:"transferred_at,omitempty"`
	SMSAttempts   int             `db:"sms_attempts" json:"sms_attempts"`
	LastSMSAt     *time.Time      `db:"last_sms_at" json:"last_sms_at,omitempty"`
}

// IsTerminal reports whether the candidate is in a manual terminal state.
func (c *Candidate) IsTerminal() bool {
	switch c.Status {
	case CandidateStatusCompleted, CandidateStatusDeclined, CandidateStatusArchived, CandidateStatusBlocked:
		return true
	}
	return false
}

// Clone returns a deep copy, so store reads never alias stored state.
func (c *Candidate) Clone() *Candidate {
	out := *c
	out.LastReplyAt = clonedTime(c.LastReplyAt)
	out.SilentSince = clonedTime(c.SilentSince)
	out.TransferredAt = clonedTime(c.TransferredAt)
	out.LastSMSAt = clonedTime(c.LastSMSAt)
	return &out
}

type CreateCandidateRequest struct {
	Name       string `json:"name" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
	ChatHandle string `json:"chat_handle"`
	Email      string `json:"email" binding:"omitempty,email"`
	Project    string `json:"project"`
}

type UpdateCandidateStatusRequest struct {
	Status CandidateStatus `json:"status" binding:"required"`
}

type CandidateFilters struct {
	Statuses []CandidateStatus
	Project  string
}

// Matches reports whether the candidate passes the filter.
func (f *CandidateFilters) Matches(c *Candidate) bool {
	if f == nil {
		return true
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if c.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Project != "" && c.Project != f.Project {
		return false
	}
	return true
}
