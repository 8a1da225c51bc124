package model

import (
	"time"

	"github.com/google/uuid"
)

type ChannelKind string

const (
	ChannelChat  ChannelKind = "chat"
	ChannelSMS   ChannelKind = "sms"
	ChannelEmail ChannelKind = "email"
)

type RecipientKind string

const (
	RecipientCandidate   RecipientKind = "candidate"
	RecipientShiftWorker RecipientKind = "shift_worker"
)

// Recipient is a resolved campaign target, flattened from a Candidate or
// ShiftWorker. The resolver drops entities with no deliverable identifier.
type Recipient struct {
	ID          uuid.UUID     `json:"id"`
	Kind        RecipientKind `json:"kind"`
	Name        string        `json:"name"`
	Phone       string        `json:"phone,omitempty"`
	ChatHandle  string        `json:"chat_handle,omitempty"`
	Email       string        `json:"email,omitempty"`
	Project     string        `json:"project,omitempty"`
	SilentSince *time.Time    `json:"silent_since,omitempty"`
}

// Identifier returns the deliverable identifier for a channel, or "" when the
// recipient cannot be reached on it.
func (r *Recipient) Identifier(channel ChannelKind) string {
	switch channel {
	case ChannelChat:
		return r.ChatHandle
	case ChannelSMS:
		return r.Phone
	case ChannelEmail:
		return r.Email
	}
	return ""
}

// Deliverable reports whether any channel identifier is present.
func (r *Recipient) Deliverable() bool {
	return r.ChatHandle != "" || r.Phone != "" || r.Email != ""
}

// DispatchOutcome is the recorded result of one delivery attempt to one
// recipient. Owned by the campaign's statistics; kept in a bounded list.
type DispatchOutcome struct {
	RecipientID uuid.UUID   `json:"recipient_id"`
	Channel     ChannelKind `json:"channel,omitempty"`
	Success     bool        `json:"success"`
	Error       string      `json:"error,omitempty"`
	At          time.Time   `json:"at"`
}

// Progress is the running dispatch count published after every attempt.
// Sent and Failed are monotonically increasing within one campaign.
type Progress struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Total      int       `json:"total"`
}
