package workflow_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/ignite/abm-orchestrator/internal/conflict"
	"github.com/ignite/abm-orchestrator/internal/domain"
	"github.com/ignite/abm-orchestrator/internal/repository/memory"
	"github.com/ignite/abm-orchestrator/internal/service/campaign"
	"github.com/ignite/abm-orchestrator/internal/workflow"
)

func testLead() domain.Lead {
	return domain.Lead{
		AccountID: "acct-9",
		Name:      "Alice Adams",
		Email:     "alice@acme.com",
		Title:     "CEO",
		AccountContacts: []domain.LeadContact{
			{Name: "Bob Brown", Email: "bob@acme.com", Title: "Director"},
		},
	}
}

func setup(maxTouchpoints int) (*campaign.Service, *workflow.Graph, *memory.ResponseStore, string) {
	cfg := campaign.DefaultConfig()
	cfg.MaxTouchpoints = maxTouchpoints
	responses := memory.NewResponseStore()
	svc := campaign.NewService(memory.NewCampaignRepo(), responses, nil, cfg)
	g := workflow.New(svc)
	lead := svc.ProcessNewLead(context.Background(), testLead())
	return svc, g, responses, lead.CampaignID
}

func TestGraphFullStepTrail(t *testing.T) {
	_, g, _, id := setup(7)

	res, trail := g.RunTrace(context.Background(), id)
	if !res.Success || res.Action != campaign.ActionExecuted {
		t.Fatalf("graph step failed: %+v", res)
	}

	want := []string{
		workflow.NodeInitialize,
		workflow.NodeCheckConflicts,
		workflow.NodeSelectContact,
		workflow.NodeSelectChannel,
		workflow.NodeGenerateMessage,
		workflow.NodeExecuteTouchpoint,
		workflow.NodeEvaluateResponse,
		workflow.NodeScheduleNext,
	}
	if !reflect.DeepEqual(trail, want) {
		t.Fatalf("trail = %v, want %v", trail, want)
	}
	if res.NextTouchpoint == nil {
		t.Error("expected next touchpoint from schedule_next node")
	}
}

func TestGraphCompletionParity(t *testing.T) {
	svc, g, _, id := setup(2)

	ctx := context.Background()
	g.Run(ctx, id)
	res, trail := g.RunTrace(ctx, id)
	if res.Action != campaign.ActionCompleted {
		t.Fatalf("expected completion on step 2, got %+v", res)
	}
	if trail[len(trail)-1] != workflow.NodeComplete {
		t.Errorf("trail should end at complete, got %v", trail)
	}
	if st := svc.CampaignStatus(ctx, id); st.Status != domain.CampaignCompleted {
		t.Errorf("status = %s, want completed", st.Status)
	}

	// Identical to the plain state machine's termination behavior.
	again := g.Run(ctx, id)
	if again.Success || again.CampaignStatus != domain.CampaignCompleted {
		t.Fatalf("completed campaign must refuse a step, got %+v", again)
	}
}

func TestGraphPausesOnConflict(t *testing.T) {
	svc, g, responses, id := setup(7)

	ctx := context.Background()
	c, _ := svc.CampaignSnapshot(ctx, id)
	responses.Record(ctx, domain.Response{
		ContactID:  c.Contacts[0].ID,
		ReceivedAt: time.Now(),
	})

	res, trail := g.RunTrace(ctx, id)
	if !res.Success || res.Action != campaign.ActionPaused {
		t.Fatalf("expected pause, got %+v", res)
	}
	if res.PauseReason != conflict.TypePrimaryResponded {
		t.Errorf("pause reason = %q", res.PauseReason)
	}
	if trail[len(trail)-1] != workflow.NodeCheckConflicts {
		t.Errorf("pause must short-circuit at check_conflicts, got %v", trail)
	}
}

func TestGraphUnknownCampaign(t *testing.T) {
	_, g, _, _ := setup(7)
	res := g.Run(context.Background(), "ghost")
	if res.Success || res.Error == "" {
		t.Fatalf("expected structured failure, got %+v", res)
	}
}

func TestGraphMatchesServiceResults(t *testing.T) {
	// Two identical campaigns, one driven by the graph and one by the plain
	// service, must make the same decisions step for step.
	cfg := campaign.DefaultConfig()
	cfg.MaxTouchpoints = 4

	svcA := campaign.NewService(memory.NewCampaignRepo(), memory.NewResponseStore(), nil, cfg)
	svcB := campaign.NewService(memory.NewCampaignRepo(), memory.NewResponseStore(), nil, cfg)
	g := workflow.New(svcA)

	ctx := context.Background()
	idA := svcA.ProcessNewLead(ctx, testLead()).CampaignID
	idB := svcB.ProcessNewLead(ctx, testLead()).CampaignID

	for step := 0; step < 4; step++ {
		ra := g.Run(ctx, idA)
		rb := svcB.ExecuteCampaignStep(ctx, idB)
		if ra.Action != rb.Action || ra.ContactName != rb.ContactName || ra.Channel != rb.Channel || ra.Step != rb.Step {
			t.Fatalf("step %d diverged: graph=%+v service=%+v", step, ra, rb)
		}
	}
}
