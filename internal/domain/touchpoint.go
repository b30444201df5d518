package domain

import "time"

// Channel enumerates outreach channels.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelCall     Channel = "call"
	ChannelLinkedIn Channel = "linkedin"
)

// TouchpointStatus enumerates the lifecycle of a single outreach attempt.
type TouchpointStatus string

const (
	TouchpointScheduled TouchpointStatus = "scheduled"
	TouchpointSent      TouchpointStatus = "sent"
)

// Touchpoint is one scheduled or executed outreach attempt. Touchpoints are
// append-only; they are never updated after being recorded as sent.
type Touchpoint struct {
	ID            string           `json:"touchpoint_id" db:"id"`
	CampaignID    string           `json:"campaign_id" db:"campaign_id"`
	ContactID     string           `json:"contact_id" db:"contact_id"`
	Channel       Channel          `json:"channel" db:"channel"`
	Message       string           `json:"message,omitempty" db:"message"`
	Topic         string           `json:"topic,omitempty" db:"topic"`
	Step          int              `json:"step" db:"step"`
	Status        TouchpointStatus `json:"status" db:"status"`
	ScheduledTime *time.Time       `json:"scheduled_time,omitempty" db:"scheduled_time"`
	ExecutedAt    *time.Time       `json:"executed_at,omitempty" db:"executed_at"`
}

// Response is an inbound reply from a contact on any channel.
type Response struct {
	ID         string    `json:"id" db:"id"`
	ContactID  string    `json:"contact_id" db:"contact_id"`
	CampaignID string    `json:"campaign_id,omitempty" db:"campaign_id"`
	Channel    Channel   `json:"channel,omitempty" db:"channel"`
	Message    string    `json:"message,omitempty" db:"message"`
	ReceivedAt time.Time `json:"received_at" db:"received_at"`
}
