package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/abm-orchestrator/internal/domain"
)

// ResponseRepo stores inbound contact responses. Implements
// conflict.ResponseLookup.
type ResponseRepo struct{ db *sql.DB }

// NewResponseRepo creates a Postgres-backed response store.
func NewResponseRepo(db *sql.DB) *ResponseRepo { return &ResponseRepo{db: db} }

// Record inserts one inbound response row.
func (r *ResponseRepo) Record(ctx context.Context, resp domain.Response) error {
	if resp.ID == "" {
		resp.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO abm_responses (id, contact_id, campaign_id, channel, message, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, resp.ID, resp.ContactID, resp.CampaignID, resp.Channel, resp.Message, resp.ReceivedAt)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

// LatestResponse returns the most recent response for a contact, or nil if
// the contact has never responded.
func (r *ResponseRepo) LatestResponse(ctx context.Context, contactID string) (*domain.Response, error) {
	resp := &domain.Response{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, contact_id, COALESCE(campaign_id,''), COALESCE(channel,''), COALESCE(message,''), received_at
		FROM abm_responses
		WHERE contact_id = $1
		ORDER BY received_at DESC
		LIMIT 1
	`, contactID).Scan(&resp.ID, &resp.ContactID, &resp.CampaignID, &resp.Channel, &resp.Message, &resp.ReceivedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest response: %w", err)
	}
	return resp, nil
}
