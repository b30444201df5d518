// Package escalation decides which channel to use for a contact at a given
// campaign step. Channels escalate email -> sms -> call after repeated
// attempts; LinkedIn is a recognized channel but is never auto-selected.
package escalation

import (
	"github.com/ignite/abm-orchestrator/internal/domain"
)

// DefaultAttemptsPerChannel is how many touches a channel gets before the
// policy escalates to the next one.
const DefaultAttemptsPerChannel = 2

// ladder is the fixed escalation order. LinkedIn is deliberately absent:
// it is reachable only through manual dispatch.
var ladder = []domain.Channel{domain.ChannelEmail, domain.ChannelSMS, domain.ChannelCall}

// Policy selects outreach channels from campaign history. It is a pure
// function of the campaign's touchpoint history and the contact's reachable
// channels; it has no side effects.
type Policy struct {
	AttemptsPerChannel int
}

// NewPolicy returns a policy with the given attempts-per-channel budget.
// Zero or negative means the default of 2.
func NewPolicy(attempts int) Policy {
	if attempts <= 0 {
		attempts = DefaultAttemptsPerChannel
	}
	return Policy{AttemptsPerChannel: attempts}
}

// SelectChannel walks the escalation ladder and returns the first channel the
// contact is reachable on that still has attempt budget left. When every
// channel is exhausted or unavailable it falls back to email regardless of
// availability, so a channel is always returned.
func (p Policy) SelectChannel(c *domain.Campaign, contact domain.Contact) domain.Channel {
	attempts := p.AttemptsPerChannel
	if attempts <= 0 {
		attempts = DefaultAttemptsPerChannel
	}
	for _, ch := range ladder {
		if c.ChannelAttempts(contact.ID, ch) < attempts && HasChannel(contact, ch) {
			return ch
		}
	}
	return domain.ChannelEmail
}

// HasChannel reports whether the contact is reachable on the channel. SMS and
// call are not differentiated: a contact with a phone is assumed reachable by
// both.
func HasChannel(contact domain.Contact, ch domain.Channel) bool {
	switch ch {
	case domain.ChannelEmail:
		return contact.Email != ""
	case domain.ChannelSMS, domain.ChannelCall:
		return contact.Phone != ""
	case domain.ChannelLinkedIn:
		return contact.LinkedInURL != ""
	default:
		return false
	}
}
