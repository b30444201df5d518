// Package workflow re-expresses one campaign step as an explicit directed
// graph of named nodes with conditional routing. The graph adds no behavior
// of its own: every node delegates to the campaign service, so the two
// execution paths cannot diverge on selection or completion logic. What the
// graph buys is an auditable transition trail per step.
package workflow

import (
	"context"
	"fmt"

	"github.com/ignite/abm-orchestrator/internal/domain"
	"github.com/ignite/abm-orchestrator/internal/service/campaign"
)

// Node names.
const (
	NodeInitialize        = "initialize"
	NodeCheckConflicts    = "check_conflicts"
	NodeSelectContact     = "select_contact"
	NodeSelectChannel     = "select_channel"
	NodeGenerateMessage   = "generate_message"
	NodeExecuteTouchpoint = "execute_touchpoint"
	NodeEvaluateResponse  = "evaluate_response"
	NodeScheduleNext      = "schedule_next"
	NodeComplete          = "complete"
)

// Next-action routing values written into the shared state by nodes.
const (
	actionContinue = "continue"
	actionPause    = "pause"
	actionComplete = "complete"
	actionSchedule = "schedule_next"
	actionFail     = "fail"
	actionDone     = "done"
)

// State is the mutable blackboard a step run threads through the nodes.
type State struct {
	CampaignID string
	Campaign   *domain.Campaign
	Contact    *domain.Contact
	Channel    domain.Channel
	Message    string
	NextAction string
	Trail      []string
	Result     campaign.StepResult
}

// nodeFunc executes one node and returns the routing value.
type nodeFunc func(ctx context.Context, st *State) string

// Graph runs one campaign step through the explicit node graph.
type Graph struct {
	svc   *campaign.Service
	nodes map[string]nodeFunc
	edges map[string]map[string]string // node -> action -> next node
	entry string
}

// New builds the step graph over the given campaign service.
func New(svc *campaign.Service) *Graph {
	g := &Graph{
		svc:   svc,
		nodes: map[string]nodeFunc{},
		edges: map[string]map[string]string{},
		entry: NodeInitialize,
	}

	g.addNode(NodeInitialize, g.initialize)
	g.addNode(NodeCheckConflicts, g.checkConflicts)
	g.addNode(NodeSelectContact, g.selectContact)
	g.addNode(NodeSelectChannel, g.selectChannel)
	g.addNode(NodeGenerateMessage, g.generateMessage)
	g.addNode(NodeExecuteTouchpoint, g.executeTouchpoint)
	g.addNode(NodeEvaluateResponse, g.evaluateResponse)
	g.addNode(NodeScheduleNext, g.scheduleNext)
	g.addNode(NodeComplete, g.complete)

	g.addEdge(NodeInitialize, actionContinue, NodeCheckConflicts)
	g.addEdge(NodeCheckConflicts, actionContinue, NodeSelectContact)
	g.addEdge(NodeSelectContact, actionContinue, NodeSelectChannel)
	g.addEdge(NodeSelectChannel, actionContinue, NodeGenerateMessage)
	g.addEdge(NodeGenerateMessage, actionContinue, NodeExecuteTouchpoint)
	g.addEdge(NodeExecuteTouchpoint, actionContinue, NodeEvaluateResponse)
	g.addEdge(NodeEvaluateResponse, actionSchedule, NodeScheduleNext)
	g.addEdge(NodeEvaluateResponse, actionComplete, NodeComplete)

	return g
}

func (g *Graph) addNode(name string, fn nodeFunc) { g.nodes[name] = fn }
func (g *Graph) addEdge(from, action, to string)  { ensure(g.edges, from)[action] = to }

func ensure(m map[string]map[string]string, k string) map[string]string {
	if m[k] == nil {
		m[k] = map[string]string{}
	}
	return m[k]
}

// Run executes one campaign step through the graph and returns the same
// result shape as Service.ExecuteCampaignStep.
func (g *Graph) Run(ctx context.Context, campaignID string) campaign.StepResult {
	res, _ := g.RunTrace(ctx, campaignID)
	return res
}

// RunTrace is Run plus the visited-node trail, for auditing and
// visualization.
func (g *Graph) RunTrace(ctx context.Context, campaignID string) (campaign.StepResult, []string) {
	unlock := g.svc.LockCampaign(campaignID)
	defer unlock()

	st := &State{CampaignID: campaignID}
	node := g.entry
	for {
		fn, ok := g.nodes[node]
		if !ok {
			st.Result.Success = false
			st.Result.Error = fmt.Sprintf("workflow: unknown node %q", node)
			return st.Result, st.Trail
		}
		st.Trail = append(st.Trail, node)
		st.NextAction = fn(ctx, st)

		switch st.NextAction {
		case actionPause, actionFail, actionDone:
			return st.Result, st.Trail
		}

		next, ok := g.edges[node][st.NextAction]
		if !ok {
			st.Result.Success = false
			st.Result.Error = fmt.Sprintf("workflow: no edge from %q on %q", node, st.NextAction)
			return st.Result, st.Trail
		}
		node = next
	}
}

func (g *Graph) initialize(ctx context.Context, st *State) string {
	c, err := g.svc.Campaign(ctx, st.CampaignID)
	if err != nil {
		st.Result.Error = fmt.Sprintf("campaign %s not found", st.CampaignID)
		return actionFail
	}
	if c.Status != domain.CampaignActive {
		st.Result.Error = fmt.Errorf("campaign %s is %s: %w", st.CampaignID, c.Status, campaign.ErrNotActive).Error()
		st.Result.CampaignStatus = c.Status
		return actionFail
	}
	st.Campaign = c
	return actionContinue
}

func (g *Graph) checkConflicts(ctx context.Context, st *State) string {
	rep := g.svc.DetectConflicts(ctx, st.Campaign)
	if !rep.ShouldPause {
		return actionContinue
	}
	g.svc.PauseCampaign(ctx, st.Campaign, rep.PauseReason())
	st.Result = campaign.StepResult{
		Success:        true,
		Action:         campaign.ActionPaused,
		Step:           st.Campaign.CurrentStep,
		PauseReason:    st.Campaign.PauseReason,
		Conflicts:      rep.Conflicts,
		CampaignStatus: st.Campaign.Status,
	}
	return actionPause
}

func (g *Graph) selectContact(_ context.Context, st *State) string {
	st.Contact = g.svc.NextContact(st.Campaign)
	if st.Contact == nil {
		st.Result.Error = fmt.Sprintf("campaign %s has no contacts", st.CampaignID)
		return actionFail
	}
	return actionContinue
}

func (g *Graph) selectChannel(_ context.Context, st *State) string {
	st.Channel = g.svc.SelectChannel(st.Campaign, *st.Contact)
	return actionContinue
}

func (g *Graph) generateMessage(_ context.Context, st *State) string {
	st.Message = g.svc.ComposeMessage(st.Campaign, *st.Contact, st.Channel)
	return actionContinue
}

func (g *Graph) executeTouchpoint(ctx context.Context, st *State) string {
	tp := g.svc.ExecuteTouchpoint(ctx, st.Campaign, *st.Contact, st.Channel, st.Message)
	st.Result = campaign.StepResult{
		Success:     true,
		Action:      campaign.ActionExecuted,
		Step:        tp.Step,
		ContactID:   st.Contact.ID,
		ContactName: st.Contact.Name,
		Channel:     st.Channel,
	}
	return actionContinue
}

// evaluateResponse routes to completion or scheduling using the service's
// own completion predicate, so this node cannot drift from the plain state
// machine's termination condition.
//
// An error carried in the run state aborts here with the structured failure
// instead of scheduling against a broken step. Earlier nodes fail open
// (send and persistence errors are logged, never raised), so today only a
// node that explicitly set Result.Error routes through this branch; the
// campaign is left untouched for the operator rather than auto-cancelled.
func (g *Graph) evaluateResponse(_ context.Context, st *State) string {
	if st.Result.Error != "" {
		st.Result.Success = false
		return actionFail
	}
	if g.svc.Completed(st.Campaign) {
		return actionComplete
	}
	return actionSchedule
}

func (g *Graph) scheduleNext(ctx context.Context, st *State) string {
	st.Result.NextTouchpoint = g.svc.ScheduleNext(ctx, st.Campaign, false)
	st.Result.CampaignStatus = st.Campaign.Status
	return actionDone
}

func (g *Graph) complete(ctx context.Context, st *State) string {
	g.svc.CompleteCampaign(ctx, st.Campaign)
	st.Result.Action = campaign.ActionCompleted
	st.Result.CampaignStatus = st.Campaign.Status
	return actionDone
}
