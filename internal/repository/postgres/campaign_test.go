package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ignite/abm-orchestrator/internal/domain"
	"github.com/ignite/abm-orchestrator/internal/service/campaign"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return db, mock, func() { db.Close() }
}

func testCampaign() *domain.Campaign {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Campaign{
		ID:        "camp-acct-1-42",
		AccountID: "acct-1",
		Status:    domain.CampaignActive,
		Contacts: []domain.Contact{
			{ID: "acct-1-aaaa", Name: "Alice Adams", Email: "alice@acme.com", Role: domain.RolePrimary, Priority: 1},
		},
		Metadata:    map[string]interface{}{"company_name": "Acme"},
		CreatedAt:   now,
		LastUpdated: now,
	}
}

func TestCampaignRepo_SaveCampaign(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	c := testCampaign()
	mock.ExpectExec("INSERT INTO abm_campaigns").
		WithArgs(c.ID, c.AccountID, string(c.Status), c.CurrentStep, c.PauseReason,
			sqlmock.AnyArg(), sqlmock.AnyArg(), c.CreatedAt, c.LastUpdated).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewCampaignRepo(db)
	if err := repo.SaveCampaign(context.Background(), c); err != nil {
		t.Fatalf("SaveCampaign() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCampaignRepo_LoadCampaign(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	c := testCampaign()
	executed := c.CreatedAt.Add(time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM abm_campaigns").
		WithArgs(c.ID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "account_id", "status", "current_step", "pause_reason",
			"contacts", "metadata", "created_at", "last_updated",
		}).AddRow(c.ID, c.AccountID, string(c.Status), 1, "",
			[]byte(`[{"contact_id":"acct-1-aaaa","name":"Alice Adams","email":"alice@acme.com","role":"primary","priority":1}]`),
			[]byte(`{"company_name":"Acme"}`), c.CreatedAt, c.LastUpdated))

	mock.ExpectQuery("SELECT (.+) FROM abm_touchpoints").
		WithArgs(c.ID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "campaign_id", "contact_id", "channel", "message", "topic", "step", "status", "executed_at",
		}).AddRow("tp-1", c.ID, "acct-1-aaaa", "email", "Hi Alice,", "improving your sales pipeline", 0, "sent", executed))

	mock.ExpectQuery("SELECT (.+) FROM abm_scheduled_touchpoints").
		WithArgs(c.ID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "campaign_id", "step", "status", "scheduled_time", "executed_at",
		}).AddRow("sched-1", c.ID, 1, "scheduled", executed.Add(48*time.Hour), nil))

	repo := NewCampaignRepo(db)
	got, err := repo.LoadCampaign(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("LoadCampaign() error: %v", err)
	}
	if got.CurrentStep != 1 {
		t.Errorf("CurrentStep = %d, want 1", got.CurrentStep)
	}
	if len(got.Contacts) != 1 || got.Contacts[0].Name != "Alice Adams" {
		t.Errorf("contacts not reconstructed: %+v", got.Contacts)
	}
	if got.Metadata["company_name"] != "Acme" {
		t.Errorf("metadata not reconstructed: %+v", got.Metadata)
	}
	if len(got.Touchpoints) != 1 || got.Touchpoints[0].Channel != domain.ChannelEmail {
		t.Errorf("touchpoints not reconstructed: %+v", got.Touchpoints)
	}
	if len(got.ScheduledTouchpoints) != 1 || got.ScheduledTouchpoints[0].Status != domain.TouchpointScheduled {
		t.Errorf("scheduled touchpoints not reconstructed: %+v", got.ScheduledTouchpoints)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCampaignRepo_LoadCampaignNotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM abm_campaigns").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	repo := NewCampaignRepo(db)
	_, err := repo.LoadCampaign(context.Background(), "ghost")
	if err != campaign.ErrNotFound {
		t.Errorf("LoadCampaign() error = %v, want ErrNotFound", err)
	}
}

func TestCampaignRepo_DueTouchpoints(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM abm_scheduled_touchpoints").
		WithArgs(now, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "campaign_id", "step", "status", "scheduled_time", "executed_at",
		}).
			AddRow("sched-1", "camp-a", 1, "scheduled", now.Add(-2*time.Hour), nil).
			AddRow("sched-2", "camp-b", 3, "scheduled", now.Add(-time.Hour), nil))

	repo := NewCampaignRepo(db)
	due, err := repo.DueTouchpoints(context.Background(), now, 10)
	if err != nil {
		t.Fatalf("DueTouchpoints() error: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("got %d due touchpoints, want 2", len(due))
	}
	if due[0].ID != "sched-1" || due[1].CampaignID != "camp-b" {
		t.Errorf("unexpected rows: %+v", due)
	}
}

func TestCampaignRepo_MarkTouchpointExecuted(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE abm_scheduled_touchpoints").
		WithArgs("sched-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE abm_scheduled_touchpoints").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCampaignRepo(db)
	if err := repo.MarkTouchpointExecuted(context.Background(), "sched-1"); err != nil {
		t.Errorf("MarkTouchpointExecuted() error: %v", err)
	}
	if err := repo.MarkTouchpointExecuted(context.Background(), "ghost"); err != campaign.ErrNotFound {
		t.Errorf("missing touchpoint error = %v, want ErrNotFound", err)
	}
}

func TestResponseRepo_LatestResponse(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM abm_responses").
		WithArgs("acct-1-aaaa").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "contact_id", "campaign_id", "channel", "message", "received_at",
		}).AddRow("resp-1", "acct-1-aaaa", "camp-a", "email", "sounds interesting", now))

	repo := NewResponseRepo(db)
	resp, err := repo.LatestResponse(context.Background(), "acct-1-aaaa")
	if err != nil {
		t.Fatalf("LatestResponse() error: %v", err)
	}
	if resp == nil || resp.ID != "resp-1" {
		t.Errorf("resp = %+v, want resp-1", resp)
	}
}

func TestResponseRepo_LatestResponseNone(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM abm_responses").
		WithArgs("silent").
		WillReturnError(sql.ErrNoRows)

	repo := NewResponseRepo(db)
	resp, err := repo.LatestResponse(context.Background(), "silent")
	if err != nil {
		t.Fatalf("LatestResponse() error: %v", err)
	}
	if resp != nil {
		t.Errorf("expected nil response for contact with no replies, got %+v", resp)
	}
}
