package campaign

import (
	"context"
	"time"

	"github.com/ignite/abm-orchestrator/internal/domain"
)

// Repository defines the data access contract for campaigns and touchpoints.
// Implementations must be safe for concurrent use.
//
// Persistence in this system is best effort: the service logs and swallows
// repository errors on the write path, so implementations should not assume
// every in-memory state change reached the store.
type Repository interface {
	// SaveCampaign upserts the full campaign object, contacts and metadata
	// included.
	SaveCampaign(ctx context.Context, c *domain.Campaign) error

	// LoadCampaign returns a campaign with its touchpoint history. Returns
	// ErrNotFound if it doesn't exist.
	LoadCampaign(ctx context.Context, id string) (*domain.Campaign, error)

	// AppendTouchpoint inserts one executed touchpoint row. Touchpoints are
	// append-only and never updated afterwards.
	AppendTouchpoint(ctx context.Context, tp *domain.Touchpoint) error

	// AppendScheduledTouchpoint inserts one scheduled touchpoint row.
	AppendScheduledTouchpoint(ctx context.Context, tp *domain.Touchpoint) error

	// DueTouchpoints returns scheduled touchpoints whose scheduled time has
	// arrived, oldest first.
	DueTouchpoints(ctx context.Context, before time.Time, limit int) ([]domain.Touchpoint, error)

	// MarkTouchpointExecuted flips a scheduled touchpoint to executed so the
	// worker does not pick it up again.
	MarkTouchpointExecuted(ctx context.Context, touchpointID string) error
}

// Sender delivers a composed touchpoint on its channel. The service only
// records that a send was attempted; delivery confirmation is out of scope.
type Sender interface {
	Send(ctx context.Context, c *domain.Campaign, contact domain.Contact, tp *domain.Touchpoint) error
}
