package dispatch

import (
	"context"
	"fmt"

	"github.com/ignite/abm-orchestrator/internal/domain"
)

// Sender delivers one touchpoint. It mirrors the campaign service's sender
// contract so any implementation here can plug straight in.
type Sender interface {
	Send(ctx context.Context, c *domain.Campaign, contact domain.Contact, tp *domain.Touchpoint) error
}

// Mux routes touchpoints to per-channel senders.
type Mux struct {
	senders  map[domain.Channel]Sender
	fallback Sender
}

// NewMux builds a channel router. Channels without a registered sender are
// handled by the fallback; a nil fallback means unrouted channels error.
func NewMux(fallback Sender) *Mux {
	return &Mux{senders: map[domain.Channel]Sender{}, fallback: fallback}
}

// Register installs the sender for a channel, replacing any previous one.
func (m *Mux) Register(ch domain.Channel, s Sender) { m.senders[ch] = s }

// Send routes the touchpoint to its channel's sender.
func (m *Mux) Send(ctx context.Context, c *domain.Campaign, contact domain.Contact, tp *domain.Touchpoint) error {
	s, ok := m.senders[tp.Channel]
	if !ok {
		s = m.fallback
	}
	if s == nil {
		return fmt.Errorf("dispatch: no sender for channel %q", tp.Channel)
	}
	return s.Send(ctx, c, contact, tp)
}
