// Package conflict inspects campaign state for conditions that should halt
// outreach: an inbound response from the primary contact, a booked meeting,
// or unsubscribed contacts.
package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/abm-orchestrator/internal/domain"
)

// Conflict types, in evaluation order. The order matters: the first entry's
// type becomes the campaign's pause reason when several conflicts co-occur.
const (
	TypePrimaryResponded = "primary_responded"
	TypeMeetingScheduled = "meeting_scheduled"
	TypeUnsubscribed     = "unsubscribed"
)

// ResponseLookup returns the most recent inbound response for a contact, or
// nil when the contact has never responded.
type ResponseLookup interface {
	LatestResponse(ctx context.Context, contactID string) (*domain.Response, error)
}

// Entry is one detected conflict.
type Entry struct {
	Type        string     `json:"type"`
	ContactID   string     `json:"contact_id,omitempty"`
	ContactName string     `json:"contact_name,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// Report is the outcome of a conflict check.
type Report struct {
	HasConflict bool    `json:"has_conflict"`
	Conflicts   []Entry `json:"conflicts,omitempty"`
	ShouldPause bool    `json:"should_pause"`
	Error       string  `json:"error,omitempty"`
}

// Detector evaluates conflict rules against a campaign. All rules that apply
// are reported, not just the first.
type Detector struct {
	lookup    ResponseLookup
	autoPause bool
}

// NewDetector builds a detector. autoPause controls whether a detected
// conflict should also pause the campaign.
func NewDetector(lookup ResponseLookup, autoPause bool) *Detector {
	return &Detector{lookup: lookup, autoPause: autoPause}
}

// Check runs all conflict rules. A failing response lookup does not block
// outreach: the report comes back conflict-free with the error recorded.
func (d *Detector) Check(ctx context.Context, c *domain.Campaign) Report {
	var entries []Entry

	if primary := c.PrimaryContact(); primary != nil && d.lookup != nil {
		resp, err := d.lookup.LatestResponse(ctx, primary.ID)
		if err != nil {
			return Report{Error: fmt.Sprintf("response lookup: %v", err)}
		}
		if resp != nil {
			ts := resp.ReceivedAt
			entries = append(entries, Entry{
				Type:        TypePrimaryResponded,
				ContactID:   primary.ID,
				ContactName: primary.Name,
				Timestamp:   &ts,
			})
		}
	}

	if c.MeetingScheduled() {
		e := Entry{Type: TypeMeetingScheduled}
		if t := meetingTime(c); t != nil {
			e.Timestamp = t
		}
		entries = append(entries, e)
	}

	for i := range c.Contacts {
		if c.Contacts[i].Unsubscribed {
			entries = append(entries, Entry{
				Type:        TypeUnsubscribed,
				ContactID:   c.Contacts[i].ID,
				ContactName: c.Contacts[i].Name,
			})
		}
	}

	r := Report{
		HasConflict: len(entries) > 0,
		Conflicts:   entries,
	}
	r.ShouldPause = r.HasConflict && d.autoPause
	return r
}

// PauseReason returns the reason string a paused campaign should carry: the
// type of the first conflict in evaluation order.
func (r Report) PauseReason() string {
	if len(r.Conflicts) == 0 {
		return ""
	}
	return r.Conflicts[0].Type
}

func meetingTime(c *domain.Campaign) *time.Time {
	v, ok := c.Metadata[domain.MetaMeetingTime]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case time.Time:
		return &t
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return &parsed
		}
	}
	return nil
}
