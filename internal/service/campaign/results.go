package campaign

import (
	"time"

	"github.com/ignite/abm-orchestrator/internal/conflict"
	"github.com/ignite/abm-orchestrator/internal/domain"
)

// Step actions reported by ExecuteCampaignStep.
const (
	ActionExecuted  = "executed"
	ActionPaused    = "paused"
	ActionCompleted = "completed"
)

// LeadResult is the outcome of ProcessNewLead.
type LeadResult struct {
	Success         bool               `json:"success"`
	Error           string             `json:"error,omitempty"`
	CampaignID      string             `json:"campaign_id,omitempty"`
	ContactsCount   int                `json:"contacts_count,omitempty"`
	FirstTouchpoint *domain.Touchpoint `json:"first_touchpoint,omitempty"`
}

// StepResult is the outcome of ExecuteCampaignStep. A conflict pause is a
// successful outcome with Action set to "paused", not an error.
type StepResult struct {
	Success        bool                  `json:"success"`
	Error          string                `json:"error,omitempty"`
	Action         string                `json:"action,omitempty"`
	Step           int                   `json:"step"`
	ContactID      string                `json:"contact_id,omitempty"`
	ContactName    string                `json:"contact_name,omitempty"`
	Channel        domain.Channel        `json:"channel,omitempty"`
	PauseReason    string                `json:"pause_reason,omitempty"`
	Conflicts      []conflict.Entry      `json:"conflicts,omitempty"`
	NextTouchpoint *domain.Touchpoint    `json:"next_touchpoint,omitempty"`
	CampaignStatus domain.CampaignStatus `json:"campaign_status,omitempty"`
}

// ConflictResult wraps a conflict report for the public API surface. The
// embedded report carries the error field, covering both unknown campaigns
// and fail-open lookup failures.
type ConflictResult struct {
	Success    bool   `json:"success"`
	CampaignID string `json:"campaign_id,omitempty"`
	conflict.Report
}

// StatusReport is a read-only projection of campaign state.
type StatusReport struct {
	CampaignID      string                `json:"campaign_id"`
	AccountID       string                `json:"account_id"`
	Status          domain.CampaignStatus `json:"status"`
	CurrentStep     int                   `json:"current_step"`
	MaxTouchpoints  int                   `json:"max_touchpoints"`
	TouchpointCount int                   `json:"touchpoint_count"`
	ContactsTotal   int                   `json:"contacts_total"`
	ContactsEngaged int                   `json:"contacts_engaged"`
	ChannelsUsed    []domain.Channel      `json:"channels_used"`
	PauseReason     string                `json:"pause_reason,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	LastUpdated     time.Time             `json:"last_updated"`
}
