package domain

import (
	"time"
)

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

// Metadata keys recognized by the orchestrator.
const (
	MetaCompanyName      = "company_name"
	MetaMeetingScheduled = "meeting_scheduled"
	MetaMeetingTime      = "meeting_time"
)

// Campaign is the aggregate root for one account's multi-contact outreach
// sequence. Contacts are ordered by priority score descending; touchpoints
// are append-only and grow monotonically with step.
type Campaign struct {
	ID                   string                 `json:"campaign_id" db:"id"`
	AccountID            string                 `json:"account_id" db:"account_id"`
	Status               CampaignStatus         `json:"status" db:"status"`
	Contacts             []Contact              `json:"contacts" db:"contacts"`
	Touchpoints          []Touchpoint           `json:"touchpoints"`
	ScheduledTouchpoints []Touchpoint           `json:"scheduled_touchpoints"`
	CurrentStep          int                    `json:"current_step" db:"current_step"`
	PauseReason          string                 `json:"pause_reason,omitempty" db:"pause_reason"`
	Metadata             map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt            time.Time              `json:"created_at" db:"created_at"`
	LastUpdated          time.Time              `json:"last_updated" db:"last_updated"`
}

// Clone returns a deep copy of the campaign, detached from the receiver's
// slices, metadata map and touchpoint time pointers. Used to hand campaign
// state across a synchronization boundary.
func (c *Campaign) Clone() *Campaign {
	cp := *c
	if c.Contacts != nil {
		cp.Contacts = append([]Contact(nil), c.Contacts...)
	}
	cp.Touchpoints = cloneTouchpoints(c.Touchpoints)
	cp.ScheduledTouchpoints = cloneTouchpoints(c.ScheduledTouchpoints)
	if c.Metadata != nil {
		cp.Metadata = make(map[string]interface{}, len(c.Metadata))
		for k, v := range c.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

func cloneTouchpoints(in []Touchpoint) []Touchpoint {
	if in == nil {
		return nil
	}
	out := make([]Touchpoint, len(in))
	for i, tp := range in {
		if tp.ScheduledTime != nil {
			t := *tp.ScheduledTime
			tp.ScheduledTime = &t
		}
		if tp.ExecutedAt != nil {
			t := *tp.ExecutedAt
			tp.ExecutedAt = &t
		}
		out[i] = tp
	}
	return out
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignCompleted || c.Status == CampaignCancelled
}

// PrimaryContact returns the campaign's primary contact, or nil if the
// campaign has none (possible when the lead record carried no email).
func (c *Campaign) PrimaryContact() *Contact {
	for i := range c.Contacts {
		if c.Contacts[i].Role == RolePrimary {
			return &c.Contacts[i]
		}
	}
	return nil
}

// Contact returns the contact with the given id, or nil.
func (c *Campaign) Contact(contactID string) *Contact {
	for i := range c.Contacts {
		if c.Contacts[i].ID == contactID {
			return &c.Contacts[i]
		}
	}
	return nil
}

// ChannelAttempts counts executed touchpoints for a contact on a channel.
func (c *Campaign) ChannelAttempts(contactID string, ch Channel) int {
	n := 0
	for i := range c.Touchpoints {
		if c.Touchpoints[i].ContactID == contactID && c.Touchpoints[i].Channel == ch {
			n++
		}
	}
	return n
}

// Engaged reports whether the contact appears in the touchpoint history.
func (c *Campaign) Engaged(contactID string) bool {
	for i := range c.Touchpoints {
		if c.Touchpoints[i].ContactID == contactID {
			return true
		}
	}
	return false
}

// LastTouchpointFor returns the most recent executed touchpoint targeting the
// given contact, or nil if the contact has never been touched.
func (c *Campaign) LastTouchpointFor(contactID string) *Touchpoint {
	for i := len(c.Touchpoints) - 1; i >= 0; i-- {
		if c.Touchpoints[i].ContactID == contactID {
			return &c.Touchpoints[i]
		}
	}
	return nil
}

// MeetingScheduled reports whether campaign metadata records a booked meeting.
// The metadata value may arrive as a bool or a string from JSON payloads.
func (c *Campaign) MeetingScheduled() bool {
	v, ok := c.Metadata[MetaMeetingScheduled]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != "" && t != "false"
	default:
		return false
	}
}
