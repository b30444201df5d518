// Package memory provides mutex-guarded in-memory implementations of the
// campaign repository and response store. Used by tests and by single-node
// deployments that run without Postgres.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/ignite/abm-orchestrator/internal/domain"
	"github.com/ignite/abm-orchestrator/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository in memory. Campaigns are
// stored as deep copies so callers cannot mutate stored state through
// retained pointers.
type CampaignRepo struct {
	mu        sync.RWMutex
	campaigns map[string]*domain.Campaign
	scheduled map[string]*domain.Touchpoint // by touchpoint id
}

// NewCampaignRepo creates an empty in-memory campaign repository.
func NewCampaignRepo() *CampaignRepo {
	return &CampaignRepo{
		campaigns: make(map[string]*domain.Campaign),
		scheduled: make(map[string]*domain.Touchpoint),
	}
}

func (r *CampaignRepo) SaveCampaign(_ context.Context, c *domain.Campaign) error {
	cp, err := deepCopy(c)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.campaigns[c.ID] = cp
	r.mu.Unlock()
	return nil
}

func (r *CampaignRepo) LoadCampaign(_ context.Context, id string) (*domain.Campaign, error) {
	r.mu.RLock()
	c, ok := r.campaigns[id]
	r.mu.RUnlock()
	if !ok {
		return nil, campaign.ErrNotFound
	}
	return deepCopy(c)
}

func (r *CampaignRepo) AppendTouchpoint(_ context.Context, tp *domain.Touchpoint) error {
	// Executed touchpoints ride along inside the saved campaign object;
	// nothing extra to record here.
	return nil
}

func (r *CampaignRepo) AppendScheduledTouchpoint(_ context.Context, tp *domain.Touchpoint) error {
	cp := *tp
	r.mu.Lock()
	r.scheduled[tp.ID] = &cp
	r.mu.Unlock()
	return nil
}

func (r *CampaignRepo) DueTouchpoints(_ context.Context, before time.Time, limit int) ([]domain.Touchpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []domain.Touchpoint
	for _, tp := range r.scheduled {
		if tp.Status == domain.TouchpointScheduled && tp.ScheduledTime != nil && !tp.ScheduledTime.After(before) {
			due = append(due, *tp)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduledTime.Before(*due[j].ScheduledTime)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *CampaignRepo) MarkTouchpointExecuted(_ context.Context, touchpointID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tp, ok := r.scheduled[touchpointID]
	if !ok {
		return campaign.ErrNotFound
	}
	now := time.Now().UTC()
	tp.Status = domain.TouchpointSent
	tp.ExecutedAt = &now
	return nil
}

func deepCopy(c *domain.Campaign) (*domain.Campaign, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var out domain.Campaign
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResponseStore implements conflict.ResponseLookup in memory, keeping the
// most recent response per contact.
type ResponseStore struct {
	mu     sync.RWMutex
	latest map[string]domain.Response
}

// NewResponseStore creates an empty in-memory response store.
func NewResponseStore() *ResponseStore {
	return &ResponseStore{latest: make(map[string]domain.Response)}
}

// Record stores an inbound response, replacing an older one for the contact.
func (s *ResponseStore) Record(_ context.Context, resp domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.latest[resp.ContactID]; !ok || resp.ReceivedAt.After(cur.ReceivedAt) {
		s.latest[resp.ContactID] = resp
	}
	return nil
}

// LatestResponse returns the most recent response for a contact, or nil.
func (s *ResponseStore) LatestResponse(_ context.Context, contactID string) (*domain.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp, ok := s.latest[contactID]
	if !ok {
		return nil, nil
	}
	cp := resp
	return &cp, nil
}
