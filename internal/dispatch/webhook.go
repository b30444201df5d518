package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/ignite/abm-orchestrator/internal/domain"
	"github.com/ignite/abm-orchestrator/internal/pkg/httpretry"
	"github.com/ignite/abm-orchestrator/internal/pkg/logger"
)

// WebhookSender posts touchpoints to an external gateway endpoint, used for
// the SMS and call channels. Transient gateway failures are retried with
// backoff before the touchpoint is reported as failed.
type WebhookSender struct {
	url    string
	apiKey string
	client httpretry.HTTPDoer
}

// NewWebhookSender creates a gateway sender for the given endpoint. A nil
// client gets the default retrying client.
func NewWebhookSender(url, apiKey string, client httpretry.HTTPDoer) *WebhookSender {
	if client == nil {
		client = httpretry.NewRetryClient(nil, 3)
	}
	return &WebhookSender{url: url, apiKey: apiKey, client: client}
}

type gatewayPayload struct {
	To         string `json:"to"`
	Channel    string `json:"channel"`
	Message    string `json:"message"`
	CampaignID string `json:"campaign_id"`
	ContactID  string `json:"contact_id"`
}

// Send posts the touchpoint to the gateway. The contact must have a phone
// number; the escalation policy only selects SMS or call when one exists.
func (s *WebhookSender) Send(ctx context.Context, c *domain.Campaign, contact domain.Contact, tp *domain.Touchpoint) error {
	if contact.Phone == "" {
		return fmt.Errorf("contact %s has no phone number", contact.ID)
	}

	body, err := json.Marshal(gatewayPayload{
		To:         contact.Phone,
		Channel:    string(tp.Channel),
		Message:    tp.Message,
		CampaignID: c.ID,
		ContactID:  contact.ID,
	})
	if err != nil {
		return fmt.Errorf("marshal gateway payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request for contact %s: %w", contact.ID, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d for contact %s", resp.StatusCode, contact.ID)
	}

	log.Printf("[Dispatch] %s sent to %s (campaign %s)", tp.Channel, logger.RedactPhone(contact.Phone), c.ID)
	return nil
}

// LogSender records the touchpoint without delivering it. It stands in for
// any channel whose gateway is not configured, so development environments
// still advance campaigns.
type LogSender struct{}

func (LogSender) Send(_ context.Context, c *domain.Campaign, contact domain.Contact, tp *domain.Touchpoint) error {
	log.Printf("[Dispatch] (dry-run) %s touchpoint for contact %s, campaign %s, step %d",
		tp.Channel, contact.ID, c.ID, tp.Step)
	return nil
}
