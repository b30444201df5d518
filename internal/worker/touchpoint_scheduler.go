// Package worker runs the background touchpoint scheduler that drives
// campaigns forward when their scheduled touchpoints come due.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/abm-orchestrator/internal/domain"
	"github.com/ignite/abm-orchestrator/internal/pkg/distlock"
	"github.com/ignite/abm-orchestrator/internal/pkg/logger"
	"github.com/ignite/abm-orchestrator/internal/service/campaign"
)

const (
	// DefaultPollInterval is how often the scheduler checks for due
	// touchpoints.
	DefaultPollInterval = 30 * time.Second

	// DefaultBatchSize caps how many due touchpoints one poll claims.
	DefaultBatchSize = 50

	// lockTTL bounds how long a crashed scheduler instance can hold the
	// poll lock.
	lockTTL = 2 * time.Minute
)

// stepExecutor is the slice of the campaign service the scheduler drives.
type stepExecutor interface {
	ExecuteCampaignStep(ctx context.Context, campaignID string) campaign.StepResult
}

// dueStore is the slice of the repository the scheduler polls.
type dueStore interface {
	DueTouchpoints(ctx context.Context, before time.Time, limit int) ([]domain.Touchpoint, error)
	MarkTouchpointExecuted(ctx context.Context, touchpointID string) error
}

// TouchpointScheduler polls for due touchpoints and executes the owning
// campaign's next step. A distributed lock around each poll keeps multiple
// instances from double-executing the same touchpoint.
type TouchpointScheduler struct {
	svc          stepExecutor
	store        dueStore
	redisClient  *redis.Client // optional; nil falls back to PG advisory locks
	db           *sql.DB
	workerID     string
	pollInterval time.Duration
	batchSize    int

	// Stats
	executed  int64
	paused    int64
	completed int64
	errors    int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
}

// NewTouchpointScheduler creates a scheduler over the given campaign service
// and touchpoint store.
func NewTouchpointScheduler(svc stepExecutor, store dueStore) *TouchpointScheduler {
	hostname, _ := os.Hostname()
	return &TouchpointScheduler{
		svc:          svc,
		store:        store,
		workerID:     fmt.Sprintf("scheduler-%s-%d", hostname, time.Now().UnixNano()%10000),
		pollInterval: DefaultPollInterval,
		batchSize:    DefaultBatchSize,
	}
}

// SetRedisClient enables Redis-based poll locking. Without it the scheduler
// falls back to PostgreSQL advisory locks when a DB handle is set, or runs
// unlocked in single-instance deployments.
func (ts *TouchpointScheduler) SetRedisClient(client *redis.Client) { ts.redisClient = client }

// SetDB provides the database handle used for advisory-lock fallback.
func (ts *TouchpointScheduler) SetDB(db *sql.DB) { ts.db = db }

// SetPollInterval overrides the poll cadence.
func (ts *TouchpointScheduler) SetPollInterval(d time.Duration) {
	if d > 0 {
		ts.pollInterval = d
	}
}

// Start begins the polling loop.
func (ts *TouchpointScheduler) Start() error {
	ts.mu.Lock()
	if ts.running {
		ts.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	ts.running = true
	ts.ctx, ts.cancel = context.WithCancel(context.Background())
	ts.mu.Unlock()

	logger.Info("touchpoint scheduler starting",
		"worker_id", ts.workerID,
		"poll_interval", ts.pollInterval.String())

	ts.wg.Add(1)
	go ts.pollLoop()
	return nil
}

// Stop gracefully stops the scheduler and logs final counters.
func (ts *TouchpointScheduler) Stop() {
	ts.mu.Lock()
	if !ts.running {
		ts.mu.Unlock()
		return
	}
	ts.running = false
	ts.mu.Unlock()

	ts.cancel()
	ts.wg.Wait()
	logger.Info("touchpoint scheduler stopped",
		"worker_id", ts.workerID,
		"executed", atomic.LoadInt64(&ts.executed),
		"paused", atomic.LoadInt64(&ts.paused),
		"completed", atomic.LoadInt64(&ts.completed),
		"errors", atomic.LoadInt64(&ts.errors))
}

func (ts *TouchpointScheduler) pollLoop() {
	defer ts.wg.Done()

	ticker := time.NewTicker(ts.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ts.ctx.Done():
			return
		case <-ticker.C:
			ts.processDue(ts.ctx)
		}
	}
}

// processDue claims one batch of due touchpoints under the poll lock and
// executes each owning campaign's next step.
func (ts *TouchpointScheduler) processDue(ctx context.Context) {
	if ts.redisClient != nil || ts.db != nil {
		lock := distlock.NewLock(ts.redisClient, ts.db, "touchpoint-scheduler", lockTTL)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			logger.Warn("scheduler lock error", "error", err.Error())
			return
		}
		if !ok {
			return
		}
		defer lock.Release(ctx)
	}

	due, err := ts.store.DueTouchpoints(ctx, time.Now(), ts.batchSize)
	if err != nil {
		atomic.AddInt64(&ts.errors, 1)
		logger.Error("polling due touchpoints failed", "error", err.Error())
		return
	}

	for _, tp := range due {
		res := ts.svc.ExecuteCampaignStep(ctx, tp.CampaignID)

		// Mark the trigger consumed regardless of outcome; paused and
		// terminal campaigns must not be retried on every poll.
		if err := ts.store.MarkTouchpointExecuted(ctx, tp.ID); err != nil {
			atomic.AddInt64(&ts.errors, 1)
			logger.Error("marking touchpoint executed failed",
				"touchpoint_id", tp.ID, "error", err.Error())
		}

		if !res.Success {
			atomic.AddInt64(&ts.errors, 1)
			logger.Warn("campaign step failed",
				"campaign_id", tp.CampaignID, "error", res.Error)
			continue
		}

		switch res.Action {
		case campaign.ActionExecuted:
			atomic.AddInt64(&ts.executed, 1)
		case campaign.ActionPaused:
			atomic.AddInt64(&ts.paused, 1)
			logger.Info("campaign paused by conflict",
				"campaign_id", tp.CampaignID, "reason", res.PauseReason)
		case campaign.ActionCompleted:
			atomic.AddInt64(&ts.completed, 1)
			logger.Info("campaign completed", "campaign_id", tp.CampaignID)
		}
	}
}

// Stats is a point-in-time snapshot of scheduler counters.
type Stats struct {
	Executed  int64 `json:"executed"`
	Paused    int64 `json:"paused"`
	Completed int64 `json:"completed"`
	Errors    int64 `json:"errors"`
}

// Stats returns current counters.
func (ts *TouchpointScheduler) Stats() Stats {
	return Stats{
		Executed:  atomic.LoadInt64(&ts.executed),
		Paused:    atomic.LoadInt64(&ts.paused),
		Completed: atomic.LoadInt64(&ts.completed),
		Errors:    atomic.LoadInt64(&ts.errors),
	}
}
