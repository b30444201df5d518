package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/abm-orchestrator/internal/domain"
	"github.com/ignite/abm-orchestrator/internal/repository/memory"
	"github.com/ignite/abm-orchestrator/internal/service/campaign"
)

func testLead() domain.Lead {
	return domain.Lead{
		AccountID: "acct-9",
		Name:      "Alice Adams",
		Email:     "alice@acme.com",
		Title:     "CEO",
	}
}

func newTestScheduler(t *testing.T) (*TouchpointScheduler, *campaign.Service, *memory.ResponseStore, string) {
	t.Helper()
	repo := memory.NewCampaignRepo()
	responses := memory.NewResponseStore()
	svc := campaign.NewService(repo, responses, nil, campaign.DefaultConfig())
	ts := NewTouchpointScheduler(svc, repo)

	lead := svc.ProcessNewLead(context.Background(), testLead())
	if !lead.Success {
		t.Fatalf("lead processing failed: %+v", lead)
	}
	return ts, svc, responses, lead.CampaignID
}

func TestScheduler_ExecutesDueTouchpoint(t *testing.T) {
	ts, svc, _, id := newTestScheduler(t)
	ctx := context.Background()

	// The new campaign's first touchpoint is scheduled immediately.
	ts.processDue(ctx)

	if got := ts.Stats(); got.Executed != 1 || got.Errors != 0 {
		t.Fatalf("stats = %+v, want 1 executed", got)
	}
	c, err := svc.CampaignSnapshot(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if c.CurrentStep != 1 || len(c.Touchpoints) != 1 {
		t.Errorf("step = %d, touchpoints = %d, want 1/1", c.CurrentStep, len(c.Touchpoints))
	}

	// The follow-up is days away; a second poll must find nothing.
	ts.processDue(ctx)
	if got := ts.Stats(); got.Executed != 1 {
		t.Errorf("second poll re-executed: %+v", got)
	}
}

func TestScheduler_MarksPausedCampaignTriggerConsumed(t *testing.T) {
	ts, svc, responses, id := newTestScheduler(t)
	ctx := context.Background()

	c, _ := svc.CampaignSnapshot(ctx, id)
	responses.Record(ctx, domain.Response{
		ContactID:  c.Contacts[0].ID,
		ReceivedAt: time.Now(),
	})

	ts.processDue(ctx)
	if got := ts.Stats(); got.Paused != 1 || got.Executed != 0 {
		t.Fatalf("stats = %+v, want 1 paused", got)
	}

	// The due trigger must be consumed so the paused campaign is not
	// retried on every poll.
	ts.processDue(ctx)
	if got := ts.Stats(); got.Paused != 1 {
		t.Errorf("paused campaign re-polled: %+v", got)
	}
}

func TestScheduler_WithRedisLock(t *testing.T) {
	ts, _, _, _ := newTestScheduler(t)
	mr := miniredis.RunT(t)
	ts.SetRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	ts.processDue(context.Background())
	if got := ts.Stats(); got.Executed != 1 {
		t.Fatalf("stats = %+v, want 1 executed under redis lock", got)
	}
	// Lock must be released after the poll.
	if mr.Exists("abm:lock:touchpoint-scheduler") {
		t.Error("poll lock not released")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	ts, _, _, _ := newTestScheduler(t)
	ts.SetPollInterval(10 * time.Millisecond)

	if err := ts.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := ts.Start(); err == nil {
		t.Error("double Start() should return error")
	}

	time.Sleep(50 * time.Millisecond)
	ts.Stop()

	if got := ts.Stats(); got.Executed != 1 {
		t.Errorf("stats after run = %+v, want 1 executed", got)
	}

	// Stop is idempotent.
	ts.Stop()
}
