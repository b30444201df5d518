package campaign

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/abm-orchestrator/internal/compose"
	"github.com/ignite/abm-orchestrator/internal/conflict"
	"github.com/ignite/abm-orchestrator/internal/contacts"
	"github.com/ignite/abm-orchestrator/internal/domain"
	"github.com/ignite/abm-orchestrator/internal/escalation"
)

// frontLoadSteps is how many initial touches always target the top-priority
// contact before rotation to unengaged contacts begins.
const frontLoadSteps = 3

// Config holds the orchestrator's tunables.
type Config struct {
	MaxTouchpoints          int
	AttemptsPerChannel      int
	TouchpointIntervalsDays []int
	AutoPauseOnResponse     bool
	ConflictDetection       bool
}

// DefaultConfig returns the production defaults: 7 touchpoints, 2 attempts
// per channel, 2/3/5/7/10/14 day intervals, conflict detection on with
// auto-pause.
func DefaultConfig() Config {
	return Config{
		MaxTouchpoints:          7,
		AttemptsPerChannel:      2,
		TouchpointIntervalsDays: []int{2, 3, 5, 7, 10, 14},
		AutoPauseOnResponse:     true,
		ConflictDetection:       true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxTouchpoints <= 0 {
		c.MaxTouchpoints = d.MaxTouchpoints
	}
	if c.AttemptsPerChannel <= 0 {
		c.AttemptsPerChannel = d.AttemptsPerChannel
	}
	if len(c.TouchpointIntervalsDays) == 0 {
		c.TouchpointIntervalsDays = d.TouchpointIntervalsDays
	}
	return c
}

// Service is the campaign state machine. Campaigns it has touched are kept
// in an in-memory registry; unknown ids fall back to a repository load.
//
// Step execution for a given campaign id is serialized by a per-campaign
// mutex, so concurrent ExecuteCampaignStep calls cannot interleave
// current_step/touchpoint mutations.
type Service struct {
	repo     Repository
	detector *conflict.Detector
	policy   escalation.Policy
	composer *compose.Composer
	sender   Sender
	cfg      Config

	mu     sync.Mutex
	active map[string]*domain.Campaign
	locks  map[string]*sync.Mutex
}

// NewService wires the state machine. lookup may be nil (primary-response
// detection is then skipped); sender may be nil (sends are logged only).
func NewService(repo Repository, lookup conflict.ResponseLookup, sender Sender, cfg Config) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		repo:     repo,
		detector: conflict.NewDetector(lookup, cfg.AutoPauseOnResponse),
		policy:   escalation.NewPolicy(cfg.AttemptsPerChannel),
		composer: compose.New(),
		sender:   sender,
		cfg:      cfg,
		active:   make(map[string]*domain.Campaign),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Config returns the service's effective configuration.
func (s *Service) Config() Config { return s.cfg }

// LockCampaign serializes access to one campaign's state. The returned
// function releases the lock. Used internally by the id-based operations and
// by the workflow graph, which drives the fine-grained methods itself.
func (s *Service) LockCampaign(id string) func() {
	s.mu.Lock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// ProcessNewLead validates a lead, builds its prioritized contact list,
// creates an active campaign and schedules the first touchpoint immediately.
// Validation failures come back as a structured result, never an error.
func (s *Service) ProcessNewLead(ctx context.Context, lead domain.Lead) LeadResult {
	if lead.AccountID == "" {
		return LeadResult{Error: ErrMissingAccountID.Error()}
	}

	list := contacts.Prioritize(contacts.Extract(lead))
	if len(list) == 0 {
		return LeadResult{Error: ErrNoContacts.Error()}
	}

	now := time.Now().UTC()
	c := &domain.Campaign{
		ID:          fmt.Sprintf("camp-%s-%d", lead.AccountID, now.UnixNano()),
		AccountID:   lead.AccountID,
		Status:      domain.CampaignActive,
		Contacts:    list,
		CurrentStep: 0,
		Metadata:    map[string]interface{}{},
		CreatedAt:   now,
		LastUpdated: now,
	}
	if lead.CompanyName != "" {
		c.Metadata[domain.MetaCompanyName] = lead.CompanyName
	}

	// Take the campaign lock before the registry insert: once the id is
	// visible, a polling worker may execute a step against it while the
	// first touchpoint is still being scheduled here.
	unlock := s.LockCampaign(c.ID)
	defer unlock()

	s.mu.Lock()
	s.active[c.ID] = c
	s.mu.Unlock()

	s.persist(ctx, c)

	first := s.ScheduleNext(ctx, c, true)
	log.Printf("[campaign.Service] Campaign %s created for account %s with %d contacts",
		c.ID, c.AccountID, len(list))

	return LeadResult{
		Success:         true,
		CampaignID:      c.ID,
		ContactsCount:   len(list),
		FirstTouchpoint: first,
	}
}

// ExecuteCampaignStep runs one outreach step: conflict check, contact and
// channel selection, message composition, touchpoint execution, then either
// schedules the next touchpoint or completes the campaign.
func (s *Service) ExecuteCampaignStep(ctx context.Context, campaignID string) StepResult {
	unlock := s.LockCampaign(campaignID)
	defer unlock()

	c, err := s.Campaign(ctx, campaignID)
	if err != nil {
		return StepResult{Error: fmt.Sprintf("campaign %s not found", campaignID)}
	}
	if c.Status != domain.CampaignActive {
		return StepResult{
			Error:          fmt.Errorf("campaign %s is %s: %w", campaignID, c.Status, ErrNotActive).Error(),
			CampaignStatus: c.Status,
		}
	}

	if rep := s.DetectConflicts(ctx, c); rep.ShouldPause {
		s.PauseCampaign(ctx, c, rep.PauseReason())
		return StepResult{
			Success:        true,
			Action:         ActionPaused,
			Step:           c.CurrentStep,
			PauseReason:    c.PauseReason,
			Conflicts:      rep.Conflicts,
			CampaignStatus: c.Status,
		}
	}

	contact := s.NextContact(c)
	if contact == nil {
		return StepResult{Error: fmt.Sprintf("campaign %s has no contacts", campaignID)}
	}

	ch := s.SelectChannel(c, *contact)
	msg := s.ComposeMessage(c, *contact, ch)
	tp := s.ExecuteTouchpoint(ctx, c, *contact, ch, msg)

	res := StepResult{
		Success:     true,
		Action:      ActionExecuted,
		Step:        tp.Step,
		ContactID:   contact.ID,
		ContactName: contact.Name,
		Channel:     ch,
	}

	if s.Completed(c) {
		s.CompleteCampaign(ctx, c)
		res.Action = ActionCompleted
		res.CampaignStatus = c.Status
		return res
	}

	res.NextTouchpoint = s.ScheduleNext(ctx, c, false)
	res.CampaignStatus = c.Status
	return res
}

// Campaign returns the live campaign object from the in-memory registry,
// falling back to a repository load for campaigns created by another process.
// Callers must hold the campaign lock (LockCampaign) for the id: the returned
// pointer is the same object the step machinery mutates. External readers
// want CampaignSnapshot instead.
func (s *Service) Campaign(ctx context.Context, id string) (*domain.Campaign, error) {
	s.mu.Lock()
	c, ok := s.active[id]
	s.mu.Unlock()
	if ok {
		return c, nil
	}

	c, err := s.repo.LoadCampaign(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load campaign %s: %w", id, err)
	}

	s.mu.Lock()
	s.active[id] = c
	s.mu.Unlock()
	return c, nil
}

// CampaignSnapshot returns a deep copy of the campaign's current state,
// safe to read or serialize while steps keep executing.
func (s *Service) CampaignSnapshot(ctx context.Context, id string) (*domain.Campaign, error) {
	unlock := s.LockCampaign(id)
	defer unlock()

	c, err := s.Campaign(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// DetectConflicts runs the conflict detector if detection is enabled.
func (s *Service) DetectConflicts(ctx context.Context, c *domain.Campaign) conflict.Report {
	if !s.cfg.ConflictDetection {
		return conflict.Report{}
	}
	rep := s.detector.Check(ctx, c)
	if rep.Error != "" {
		log.Printf("[campaign.Service] conflict detection degraded for %s: %s", c.ID, rep.Error)
	}
	return rep
}

// NextContact picks the target for the campaign's current step. The first
// three steps always go to the top-priority contact; after that the first
// never-engaged contact wins, cycling back to the top once everyone has been
// touched. Priority-biased round robin, nothing fancier.
func (s *Service) NextContact(c *domain.Campaign) *domain.Contact {
	if len(c.Contacts) == 0 {
		return nil
	}
	if c.CurrentStep < frontLoadSteps {
		return &c.Contacts[0]
	}
	for i := range c.Contacts {
		if !c.Engaged(c.Contacts[i].ID) {
			return &c.Contacts[i]
		}
	}
	return &c.Contacts[0]
}

// SelectChannel applies the escalation policy for the contact.
func (s *Service) SelectChannel(c *domain.Campaign, contact domain.Contact) domain.Channel {
	return s.policy.SelectChannel(c, contact)
}

// ComposeMessage renders the touchpoint body for the contact and channel.
func (s *Service) ComposeMessage(c *domain.Campaign, contact domain.Contact, ch domain.Channel) string {
	return s.composer.Message(c, contact, ch)
}

// ExecuteTouchpoint records a sent touchpoint, delegates delivery to the
// sender and advances the step counter. Send and persistence failures are
// logged, never raised: the in-memory state machine always advances.
func (s *Service) ExecuteTouchpoint(ctx context.Context, c *domain.Campaign, contact domain.Contact, ch domain.Channel, msg string) *domain.Touchpoint {
	now := time.Now().UTC()
	tp := domain.Touchpoint{
		ID:         uuid.New().String(),
		CampaignID: c.ID,
		ContactID:  contact.ID,
		Channel:    ch,
		Message:    msg,
		Step:       c.CurrentStep,
		Status:     domain.TouchpointSent,
		ExecutedAt: &now,
	}

	if s.sender != nil {
		if err := s.sender.Send(ctx, c, contact, &tp); err != nil {
			log.Printf("[campaign.Service] send failed campaign=%s step=%d channel=%s: %v",
				c.ID, tp.Step, ch, err)
		}
	}

	c.Touchpoints = append(c.Touchpoints, tp)
	c.CurrentStep++
	c.LastUpdated = now

	if err := s.repo.AppendTouchpoint(ctx, &tp); err != nil {
		log.Printf("[campaign.Service] persist touchpoint %s: %v", tp.ID, err)
	}
	s.persist(ctx, c)
	return &c.Touchpoints[len(c.Touchpoints)-1]
}

// Completed reports whether the campaign has used up its touchpoint budget.
func (s *Service) Completed(c *domain.Campaign) bool {
	return c.CurrentStep >= s.cfg.MaxTouchpoints
}

// CompleteCampaign transitions an active campaign to completed.
func (s *Service) CompleteCampaign(ctx context.Context, c *domain.Campaign) {
	c.Status = domain.CampaignCompleted
	c.LastUpdated = time.Now().UTC()
	s.persist(ctx, c)
	log.Printf("[campaign.Service] Campaign %s completed after %d touchpoints", c.ID, c.CurrentStep)
}

// PauseCampaign transitions an active campaign to paused with the given
// reason. Resumption is an operator action, not automated.
func (s *Service) PauseCampaign(ctx context.Context, c *domain.Campaign, reason string) {
	c.Status = domain.CampaignPaused
	c.PauseReason = reason
	c.LastUpdated = time.Now().UTC()
	s.persist(ctx, c)
	log.Printf("[campaign.Service] Campaign %s paused: %s", c.ID, reason)
}

// CancelCampaign is the explicit external cancellation path.
func (s *Service) CancelCampaign(ctx context.Context, id string) error {
	unlock := s.LockCampaign(id)
	defer unlock()

	c, err := s.Campaign(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if c.IsTerminal() {
		return fmt.Errorf("campaign %s is already %s", id, c.Status)
	}
	c.Status = domain.CampaignCancelled
	c.LastUpdated = time.Now().UTC()
	s.persist(ctx, c)
	return nil
}

// MarkUnsubscribed flags one of the campaign's contacts as unsubscribed. The
// next conflict check picks it up.
func (s *Service) MarkUnsubscribed(ctx context.Context, campaignID, contactID string) error {
	unlock := s.LockCampaign(campaignID)
	defer unlock()

	c, err := s.Campaign(ctx, campaignID)
	if err != nil {
		return ErrNotFound
	}
	contact := c.Contact(contactID)
	if contact == nil {
		return ErrContactNotFound
	}
	contact.Unsubscribed = true
	c.LastUpdated = time.Now().UTC()
	s.persist(ctx, c)
	return nil
}

// ScheduleNextTouchpoint schedules the campaign's next touchpoint by id.
// Returns nil for unknown campaigns: callers treat nil as "nothing to
// schedule", not as a failure.
func (s *Service) ScheduleNextTouchpoint(ctx context.Context, campaignID string, immediate bool) *domain.Touchpoint {
	unlock := s.LockCampaign(campaignID)
	defer unlock()

	c, err := s.Campaign(ctx, campaignID)
	if err != nil {
		return nil
	}
	return s.ScheduleNext(ctx, c, immediate)
}

// ScheduleNext records the desired time of the campaign's next touchpoint.
// No timer is created; the scheduler worker polls for due rows. The delay
// comes from the configured interval table indexed by current step, clamped
// to the last entry; immediate forces a zero delay.
func (s *Service) ScheduleNext(ctx context.Context, c *domain.Campaign, immediate bool) *domain.Touchpoint {
	delay := time.Duration(0)
	if !immediate {
		intervals := s.cfg.TouchpointIntervalsDays
		idx := c.CurrentStep
		if idx >= len(intervals) {
			idx = len(intervals) - 1
		}
		delay = time.Duration(intervals[idx]) * 24 * time.Hour
	}

	when := time.Now().UTC().Add(delay)
	tp := domain.Touchpoint{
		ID:            uuid.New().String(),
		CampaignID:    c.ID,
		Step:          c.CurrentStep,
		Status:        domain.TouchpointScheduled,
		ScheduledTime: &when,
	}
	c.ScheduledTouchpoints = append(c.ScheduledTouchpoints, tp)
	c.LastUpdated = time.Now().UTC()

	if err := s.repo.AppendScheduledTouchpoint(ctx, &tp); err != nil {
		log.Printf("[campaign.Service] persist scheduled touchpoint %s: %v", tp.ID, err)
	}
	s.persist(ctx, c)
	return &c.ScheduledTouchpoints[len(c.ScheduledTouchpoints)-1]
}

// CheckConflicts runs conflict detection for a campaign id without mutating
// anything.
func (s *Service) CheckConflicts(ctx context.Context, campaignID string) ConflictResult {
	unlock := s.LockCampaign(campaignID)
	defer unlock()

	c, err := s.Campaign(ctx, campaignID)
	if err != nil {
		return ConflictResult{Report: conflict.Report{Error: fmt.Sprintf("campaign %s not found", campaignID)}}
	}
	return ConflictResult{
		Success:    true,
		CampaignID: campaignID,
		Report:     s.detector.Check(ctx, c),
	}
}

// CampaignStatus returns a read-only projection of campaign state, or nil
// for unknown ids. Calling it repeatedly without intervening mutations
// yields identical output. Holds the campaign lock for the duration of the
// projection so a concurrent step cannot mutate the touchpoint history
// mid-read.
func (s *Service) CampaignStatus(ctx context.Context, campaignID string) *StatusReport {
	unlock := s.LockCampaign(campaignID)
	defer unlock()

	c, err := s.Campaign(ctx, campaignID)
	if err != nil {
		return nil
	}

	engaged := map[string]bool{}
	channelSet := map[domain.Channel]bool{}
	for i := range c.Touchpoints {
		engaged[c.Touchpoints[i].ContactID] = true
		channelSet[c.Touchpoints[i].Channel] = true
	}
	var channels []domain.Channel
	for _, ch := range []domain.Channel{domain.ChannelEmail, domain.ChannelSMS, domain.ChannelCall, domain.ChannelLinkedIn} {
		if channelSet[ch] {
			channels = append(channels, ch)
		}
	}

	return &StatusReport{
		CampaignID:      c.ID,
		AccountID:       c.AccountID,
		Status:          c.Status,
		CurrentStep:     c.CurrentStep,
		MaxTouchpoints:  s.cfg.MaxTouchpoints,
		TouchpointCount: len(c.Touchpoints),
		ContactsTotal:   len(c.Contacts),
		ContactsEngaged: len(engaged),
		ChannelsUsed:    channels,
		PauseReason:     c.PauseReason,
		CreatedAt:       c.CreatedAt,
		LastUpdated:     c.LastUpdated,
	}
}

// persist is the best-effort campaign upsert. Failures are logged and the
// in-memory state stays authoritative for this process.
func (s *Service) persist(ctx context.Context, c *domain.Campaign) {
	if err := s.repo.SaveCampaign(ctx, c); err != nil {
		log.Printf("[campaign.Service] persist campaign %s: %v", c.ID, err)
	}
}
