// Package postgres implements the campaign repository and response store
// against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ignite/abm-orchestrator/internal/domain"
	"github.com/ignite/abm-orchestrator/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository against PostgreSQL. Campaigns
// are upserted as full objects with contacts and metadata stored as JSONB;
// touchpoints live in their own append-only tables.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func (r *CampaignRepo) SaveCampaign(ctx context.Context, c *domain.Campaign) error {
	contactsJSON, err := json.Marshal(c.Contacts)
	if err != nil {
		return fmt.Errorf("marshal contacts: %w", err)
	}
	metadataJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO abm_campaigns
			(id, account_id, status, current_step, pause_reason, contacts, metadata, created_at, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_step = EXCLUDED.current_step,
			pause_reason = EXCLUDED.pause_reason,
			contacts = EXCLUDED.contacts,
			metadata = EXCLUDED.metadata,
			last_updated = EXCLUDED.last_updated
	`, c.ID, c.AccountID, c.Status, c.CurrentStep, c.PauseReason,
		contactsJSON, metadataJSON, c.CreatedAt, c.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepo) LoadCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var contactsJSON, metadataJSON []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, status, current_step, COALESCE(pause_reason,''),
		       contacts, metadata, created_at, last_updated
		FROM abm_campaigns
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.AccountID, &c.Status, &c.CurrentStep, &c.PauseReason,
		&contactsJSON, &metadataJSON, &c.CreatedAt, &c.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}

	if err := json.Unmarshal(contactsJSON, &c.Contacts); err != nil {
		return nil, fmt.Errorf("unmarshal contacts: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if c.Metadata == nil {
		c.Metadata = map[string]interface{}{}
	}

	if c.Touchpoints, err = r.touchpoints(ctx, id); err != nil {
		return nil, err
	}
	if c.ScheduledTouchpoints, err = r.scheduledTouchpoints(ctx, id); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepo) touchpoints(ctx context.Context, campaignID string) ([]domain.Touchpoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, contact_id, channel, message, COALESCE(topic,''), step, status, executed_at
		FROM abm_touchpoints
		WHERE campaign_id = $1
		ORDER BY step ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list touchpoints: %w", err)
	}
	defer rows.Close()

	var out []domain.Touchpoint
	for rows.Next() {
		var tp domain.Touchpoint
		if err := rows.Scan(&tp.ID, &tp.CampaignID, &tp.ContactID, &tp.Channel,
			&tp.Message, &tp.Topic, &tp.Step, &tp.Status, &tp.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan touchpoint: %w", err)
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

func (r *CampaignRepo) scheduledTouchpoints(ctx context.Context, campaignID string) ([]domain.Touchpoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, step, status, scheduled_time, executed_at
		FROM abm_scheduled_touchpoints
		WHERE campaign_id = $1
		ORDER BY scheduled_time ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list scheduled touchpoints: %w", err)
	}
	defer rows.Close()

	var out []domain.Touchpoint
	for rows.Next() {
		var tp domain.Touchpoint
		if err := rows.Scan(&tp.ID, &tp.CampaignID, &tp.Step, &tp.Status,
			&tp.ScheduledTime, &tp.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan scheduled touchpoint: %w", err)
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

func (r *CampaignRepo) AppendTouchpoint(ctx context.Context, tp *domain.Touchpoint) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO abm_touchpoints
			(id, campaign_id, contact_id, channel, message, topic, step, status, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, tp.ID, tp.CampaignID, tp.ContactID, tp.Channel, tp.Message, tp.Topic,
		tp.Step, tp.Status, tp.ExecutedAt)
	if err != nil {
		return fmt.Errorf("insert touchpoint: %w", err)
	}
	return nil
}

func (r *CampaignRepo) AppendScheduledTouchpoint(ctx context.Context, tp *domain.Touchpoint) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO abm_scheduled_touchpoints
			(id, campaign_id, step, status, scheduled_time)
		VALUES ($1, $2, $3, $4, $5)
	`, tp.ID, tp.CampaignID, tp.Step, tp.Status, tp.ScheduledTime)
	if err != nil {
		return fmt.Errorf("insert scheduled touchpoint: %w", err)
	}
	return nil
}

func (r *CampaignRepo) DueTouchpoints(ctx context.Context, before time.Time, limit int) ([]domain.Touchpoint, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, step, status, scheduled_time, executed_at
		FROM abm_scheduled_touchpoints
		WHERE status = 'scheduled' AND scheduled_time <= $1
		ORDER BY scheduled_time ASC
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list due touchpoints: %w", err)
	}
	defer rows.Close()

	var out []domain.Touchpoint
	for rows.Next() {
		var tp domain.Touchpoint
		if err := rows.Scan(&tp.ID, &tp.CampaignID, &tp.Step, &tp.Status,
			&tp.ScheduledTime, &tp.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan due touchpoint: %w", err)
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

func (r *CampaignRepo) MarkTouchpointExecuted(ctx context.Context, touchpointID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE abm_scheduled_touchpoints
		SET status = 'sent', executed_at = NOW()
		WHERE id = $1
	`, touchpointID)
	if err != nil {
		return fmt.Errorf("mark touchpoint executed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}
