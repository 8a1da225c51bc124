package model

import (
	"github.com/google/uuid"
)

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusSent      CampaignStatus = "sent"
	CampaignStatusCancelled CampaignStatus = "cancelled"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// CanTransition enforces the forward-only campaign state machine:
// draft -> sending -> sent|failed, with cancelled reachable from
// draft or sending.
func (s CampaignStatus) CanTransition(to CampaignStatus) bool {
	switch s {
	case CampaignStatusDraft:
		return to == CampaignStatusSending || to == CampaignStatusCancelled
	case CampaignStatusSending:
		return to == CampaignStatusSent || to == CampaignStatusFailed || to == CampaignStatusCancelled
	}
	return false
}

type SourceKind string

const (
	SourceCandidatesByStatus  SourceKind = "candidates_by_status"
	SourceSilentCandidates    SourceKind = "silent_candidates"
	SourceShiftWorkersBySite  SourceKind = "shift_workers_by_site"
	SourceAllActiveCandidates SourceKind = "all_active_candidates"
)

// RecipientSource names a population to include in a campaign.
type RecipientSource struct {
	Kind     SourceKind        `json:"kind" binding:"required,source"`
	Statuses []CandidateStatus `json:"statuses,omitempty"`
	Sites    []string          `json:"sites,omitempty"`
}

// CampaignStats is the per-send accounting. It always reflects exactly what
// was attempted, including failures.
type CampaignStats struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

// Campaign is a bulk outreach definition. Recipients are resolved at
// send-time and the count is frozen once sending begins.
type Campaign struct {
	Base
	Name           string            `db:"name" json:"name"`
	Template       string            `db:"template" json:"template"`
	Channels       []ChannelKind     `db:"-" json:"channels"`
	Sources        []RecipientSource `db:"-" json:"sources"`
	Exclusions     []uuid.UUID       `db:"-" json:"exclusions,omitempty"`
	Projects       []string          `db:"-" json:"projects,omitempty"`
	Status         CampaignStatus    `db:"status" json:"status"`
	RecipientCount int               `db:"recipient_count" json:"recipient_count"`
	Stats          CampaignStats     `db:"-" json:"stats"`
	Outcomes       []DispatchOutcome `db:"-" json:"outcomes,omitempty"`
}

// IsExcluded reports whether id is on the campaign's exclusion list.
func (c *Campaign) IsExcluded(id uuid.UUID) bool {
	for _, ex := range c.Exclusions {
		if ex == id {
			return true
		}
	}
	return false
}

// MatchesProject applies the optional population filter.
func (c *Campaign) MatchesProject(project string) bool {
	if len(c.Projects) == 0 {
		return true
	}
	for _, p := range c.Projects {
		if p == project {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so store reads never alias stored state.
func (c *Campaign) Clone() *Campaign {
	out := *c
	out.Channels = append([]ChannelKind(nil), c.Channels...)
	out.Sources = append([]RecipientSource(nil), c.Sources...)
	out.Exclusions = append([]uuid.UUID(nil), c.Exclusions...)
	out.Projects = append([]string(nil), c.Projects...)
	out.Outcomes = append([]DispatchOutcome(nil), c.Outcomes...)
	return &out
}

type CreateCampaignRequest struct {
	Name       string            `json:"name" binding:"required"`
	Template   string            `json:"template" binding:"required"`
	Channels   []ChannelKind     `json:"channels" binding:"required,min=1,dive,channel"`
	Sources    []RecipientSource `json:"sources" binding:"required,min=1"`
	Exclusions []uuid.UUID       `json:"exclusions"`
	Projects   []string          `json:"projects"`
}

type CampaignFilters struct {
	Status CampaignStatus
}

// Matches reports whether the campaign passes the filter.
func (f *CampaignFilters) Matches(c *Campaign) bool {
	if f == nil {
		return true
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	return true
}
