package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/abm-orchestrator/internal/domain"
	"github.com/ignite/abm-orchestrator/internal/pkg/httputil"
	"github.com/ignite/abm-orchestrator/internal/service/campaign"
	"github.com/ignite/abm-orchestrator/internal/workflow"
)

// ResponseRecorder persists inbound contact responses.
type ResponseRecorder interface {
	Record(ctx context.Context, resp domain.Response) error
}

// CacheInvalidator drops a contact's cached response state. Implemented by
// the conflict package's cached lookup; nil when caching is off.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, contactID string)
}

// Handlers holds the HTTP handlers for the orchestrator API.
type Handlers struct {
	svc       *campaign.Service
	graph     *workflow.Graph
	responses ResponseRecorder
	cache     CacheInvalidator
}

// NewHandlers wires the handlers. cache may be nil.
func NewHandlers(svc *campaign.Service, graph *workflow.Graph, responses ResponseRecorder, cache CacheInvalidator) *Handlers {
	return &Handlers{svc: svc, graph: graph, responses: responses, cache: cache}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// CreateLead ingests a raw lead and starts its outreach campaign.
func (h *Handlers) CreateLead(w http.ResponseWriter, r *http.Request) {
	var lead domain.Lead
	if !httputil.Decode(w, r, &lead) {
		return
	}

	res := h.svc.ProcessNewLead(r.Context(), lead)
	if !res.Success {
		httputil.BadRequest(w, res.Error)
		return
	}
	httputil.Created(w, res)
}

// ExecuteStep runs one campaign step through the workflow graph.
func (h *Handlers) ExecuteStep(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "campaignID")

	res := h.graph.Run(r.Context(), id)
	if !res.Success {
		if res.CampaignStatus != "" {
			// Known campaign in a non-steppable state.
			httputil.JSON(w, http.StatusConflict, res)
			return
		}
		httputil.NotFound(w, res.Error)
		return
	}
	httputil.OK(w, res)
}

// GetCampaign returns the full campaign object, snapshotted so the encoder
// never walks state a concurrent step is mutating.
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.CampaignSnapshot(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		httputil.NotFound(w, "campaign not found")
		return
	}
	httputil.OK(w, c)
}

// GetStatus returns the read-only status projection.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	st := h.svc.CampaignStatus(r.Context(), chi.URLParam(r, "campaignID"))
	if st == nil {
		httputil.NotFound(w, "campaign not found")
		return
	}
	httputil.OK(w, st)
}

// GetConflicts runs conflict detection without mutating the campaign.
func (h *Handlers) GetConflicts(w http.ResponseWriter, r *http.Request) {
	res := h.svc.CheckConflicts(r.Context(), chi.URLParam(r, "campaignID"))
	if !res.Success {
		httputil.NotFound(w, res.Error)
		return
	}
	httputil.OK(w, res)
}

type pauseRequest struct {
	Reason string `json:"reason"`
}

// PauseCampaign is the manual operator pause.
func (h *Handlers) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "campaignID")

	req := pauseRequest{}
	if r.ContentLength > 0 && !httputil.Decode(w, r, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = "manual_pause"
	}

	unlock := h.svc.LockCampaign(id)
	defer unlock()

	c, err := h.svc.Campaign(r.Context(), id)
	if err != nil {
		httputil.NotFound(w, "campaign not found")
		return
	}
	if c.IsTerminal() {
		httputil.Conflict(w, "campaign is "+string(c.Status))
		return
	}
	h.svc.PauseCampaign(r.Context(), c, req.Reason)
	httputil.OK(w, map[string]string{"campaign_id": id, "status": string(c.Status), "pause_reason": c.PauseReason})
}

// CancelCampaign is the explicit external cancellation path.
func (h *Handlers) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "campaignID")

	err := h.svc.CancelCampaign(r.Context(), id)
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		httputil.NotFound(w, "campaign not found")
	case err != nil:
		httputil.Conflict(w, err.Error())
	default:
		httputil.OK(w, map[string]string{"campaign_id": id, "status": string(domain.CampaignCancelled)})
	}
}

// UnsubscribeContact flags a contact; the next conflict check pauses the
// campaign.
func (h *Handlers) UnsubscribeContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "campaignID")
	contactID := chi.URLParam(r, "contactID")

	err := h.svc.MarkUnsubscribed(r.Context(), id, contactID)
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		httputil.NotFound(w, "campaign not found")
	case errors.Is(err, campaign.ErrContactNotFound):
		httputil.NotFound(w, "contact not found")
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, map[string]string{"campaign_id": id, "contact_id": contactID, "unsubscribed": "true"})
	}
}

// RecordResponse ingests an inbound reply from any channel and busts the
// conflict cache so the next step sees it.
func (h *Handlers) RecordResponse(w http.ResponseWriter, r *http.Request) {
	var resp domain.Response
	if !httputil.Decode(w, r, &resp) {
		return
	}
	if strings.TrimSpace(resp.ContactID) == "" {
		httputil.BadRequest(w, "contact_id is required")
		return
	}
	if resp.ReceivedAt.IsZero() {
		resp.ReceivedAt = time.Now().UTC()
	}

	if err := h.responses.Record(r.Context(), resp); err != nil {
		httputil.InternalError(w, err)
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(r.Context(), resp.ContactID)
	}
	httputil.Accepted(w, map[string]string{"contact_id": resp.ContactID})
}
