package lifecycle

import (
	"time"

	"github.com/jwalitptl/outreach-engine/internal/model"
)

// Candidate rules are pure: they decide and apply transitions on the passed
// entity only. Effects (persisting, notifying, sending reminders) belong to
// the sweeps and services that call them. Every Apply* is idempotent.

// IsSilent reports whether an active candidate has been quiet past the
// threshold.
func (c Config) IsSilent(candidate *model.Candidate, now time.Time) bool {
	if candidate.Status != model.CandidateStatusActive {
		return false
	}
	if candidate.LastReplyAt == nil {
		return false
	}
	return now.Sub(*candidate.LastReplyAt) >= c.SilenceThreshold
}

// ApplySilence moves an active candidate to silent. Returns false when the
// rule does not fire, including when the candidate already transitioned.
func (c Config) ApplySilence(candidate *model.Candidate, now time.Time) bool {
	if !c.IsSilent(candidate, now) {
		return false
	}
	candidate.Status = model.CandidateStatusSilent
	silentSince := now
	candidate.SilentSince = &silentSince
	candidate.UpdatedAt = now
	return true
}

// EscalationDeadline is the clock time at which a silent candidate escalates:
// the calendar day after they went silent, at the configured cutoff.
func (c Config) EscalationDeadline(silentSince time.Time) time.Time {
	nextDay := silentSince.In(c.location()).AddDate(0, 0, 1)
	return c.EscalationCutoff.On(nextDay, c.location())
}

// ShouldEscalate reports whether a silent candidate has sat past the full
// overnight window.
func (c Config) ShouldEscalate(candidate *model.Candidate, now time.Time) bool {
	if candidate.Status != model.CandidateStatusSilent {
		return false
	}
	if candidate.SilentSince == nil {
		return false
	}
	return !now.Before(c.EscalationDeadline(*candidate.SilentSince))
}

// ApplyEscalation moves a silent candidate to transferred. One-way:
// TransferredAt is set once and never cleared.
func (c Config) ApplyEscalation(candidate *model.Candidate, now time.Time) bool {
	if !c.ShouldEscalate(candidate, now) {
		return false
	}
	candidate.Status = model.CandidateStatusTransferred
	candidate.SilentSince = nil
	if candidate.TransferredAt == nil {
		transferredAt := now
		candidate.TransferredAt = &transferredAt
	}
	candidate.UpdatedAt = now
	return true
}

// ApplyReply records an inbound reply. A silent candidate goes back to
// active; a new candidate activates on first contact. A transferred candidate
// keeps its status: escalation is a one-way boundary crossed back only by an
// explicit manual action.
func ApplyReply(candidate *model.Candidate, at time.Time) {
	replyAt := at
	candidate.LastReplyAt = &replyAt
	candidate.UpdatedAt = at

	switch candidate.Status {
	case model.CandidateStatusNew:
		candidate.Status = model.CandidateStatusActive
	case model.CandidateStatusSilent:
		candidate.Status = model.CandidateStatusActive
		candidate.SilentSince = nil
	}
}

// CanTransitionManual reports whether a staff-driven status change is legal.
// Terminal states are reachable from any non-terminal state; active is
// reachable from transferred only (the explicit manual revert).
func CanTransitionManual(from, to model.CandidateStatus) bool {
	switch to {
	case model.CandidateStatusCompleted, model.CandidateStatusDeclined,
		model.CandidateStatusArchived, model.CandidateStatusBlocked:
		switch from {
		case model.CandidateStatusCompleted, model.CandidateStatusDeclined,
			model.CandidateStatusArchived, model.CandidateStatusBlocked:
			return false
		}
		return true
	case model.CandidateStatusActive:
		return from == model.CandidateStatusTransferred
	}
	return false
}

// ApplyManualTransition performs a legal staff-driven status change, keeping
// the silent-since invariant intact.
func ApplyManualTransition(candidate *model.Candidate, to model.CandidateStatus, now time.Time) bool {
	if !CanTransitionManual(candidate.Status, to) {
		return false
	}
	candidate.Status = to
	candidate.SilentSince = nil
	candidate.UpdatedAt = now
	return true
}
