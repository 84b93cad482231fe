package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"listing-portal/internal/cleanup"
	"listing-portal/internal/config"
	"listing-portal/internal/database"
	"listing-portal/internal/logging"
	"listing-portal/internal/models"

	"github.com/robfig/cron/v3"
)

// ListingSource pages through stored listings
type ListingSource interface {
	ListProperties(ctx context.Context, f database.PropertyFilter) (*database.PropertyPage, error)
}

// Reindexer replaces the whole search index
type Reindexer interface {
	Reindex(ctx context.Context, properties []models.Property) error
}

// Scheduler runs the nightly maintenance jobs
type Scheduler struct {
	cron      *cron.Cron
	config    config.SchedulerConfig
	cleanup   *cleanup.Service
	listings  ListingSource
	reindexer Reindexer
	log       logging.Logger

	mu        sync.Mutex
	isRunning bool
	lastRuns  map[string]JobRun
}

// JobRun is the outcome of the latest run of a job
type JobRun struct {
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Error     string    `json:"error,omitempty"`
}

// NewScheduler creates a new scheduler. reindexer may be nil when search is off.
func NewScheduler(cfg config.SchedulerConfig, cleanupSvc *cleanup.Service, listings ListingSource, reindexer Reindexer, log logging.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		config:    cfg,
		cleanup:   cleanupSvc,
		listings:  listings,
		reindexer: reindexer,
		log:       log,
		lastRuns:  make(map[string]JobRun),
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.log.Info(context.Background(), "scheduler: disabled in configuration")
		return nil
	}

	if _, err := s.cron.AddFunc(s.config.CleanupCron, func() {
		s.track("cleanup", func(ctx context.Context) error {
			_, err := s.RunCleanup(ctx)
			return err
		})
	}); err != nil {
		return fmt.Errorf("scheduler: cleanup cron %q: %w", s.config.CleanupCron, err)
	}

	if s.reindexer != nil {
		if _, err := s.cron.AddFunc(s.config.ReindexCron, func() {
			s.track("reindex", func(ctx context.Context) error {
				_, err := s.RunReindex(ctx)
				return err
			})
		}); err != nil {
			return fmt.Errorf("scheduler: reindex cron %q: %w", s.config.ReindexCron, err)
		}
	}

	s.cron.Start()
	s.mu.Lock()
	s.isRunning = true
	s.mu.Unlock()
	s.log.Info(context.Background(), "scheduler: started",
		"cleanup_cron", s.config.CleanupCron, "reindex_cron", s.config.ReindexCron)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.mu.Lock()
	running := s.isRunning
	s.isRunning = false
	s.mu.Unlock()
	if running {
		<-s.cron.Stop().Done()
		s.log.Info(context.Background(), "scheduler: stopped")
	}
}

func (s *Scheduler) track(name string, job func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	start := time.Now()
	err := job(ctx)
	run := JobRun{StartedAt: start.UTC(), Duration: time.Since(start).Round(time.Millisecond).String()}
	if err != nil {
		run.Error = err.Error()
		s.log.Error(ctx, "scheduler: job failed", "job", name, "error", err)
	}
	s.mu.Lock()
	s.lastRuns[name] = run
	s.mu.Unlock()
}

// RunCleanup deletes closed enquiries past retention
func (s *Scheduler) RunCleanup(ctx context.Context) (*cleanup.CleanupResult, error) {
	return s.cleanup.PhysicallyDelete(ctx, cleanup.CleanupConfig{
		RetentionDays:    s.config.EnquiryRetentionDays,
		MaxDeletionCount: s.config.MaxDeletionCount,
		DryRun:           s.config.CleanupDryRun,
	})
}

// RunReindex rebuilds the search index from every approved listing
func (s *Scheduler) RunReindex(ctx context.Context) (int, error) {
	if s.reindexer == nil {
		return 0, nil
	}
	var all []models.Property
	filter := database.PropertyFilter{
		Statuses: []models.PropertyStatus{models.PropertyStatusApproved},
		Limit:    100,
	}
	for {
		page, err := s.listings.ListProperties(ctx, filter)
		if err != nil {
			return 0, fmt.Errorf("scheduler: list approved listings: %w", err)
		}
		all = append(all, page.Items...)
		if len(page.Items) == 0 || int64(len(all)) >= page.Total {
			break
		}
		filter.Offset += len(page.Items)
	}
	if err := s.reindexer.Reindex(ctx, all); err != nil {
		return 0, fmt.Errorf("scheduler: reindex: %w", err)
	}
	s.log.Info(ctx, "scheduler: reindex completed", "documents", len(all))
	return len(all), nil
}

// Status reports whether the loop is running and the latest job outcomes
func (s *Scheduler) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := make(map[string]JobRun, len(s.lastRuns))
	for k, v := range s.lastRuns {
		runs[k] = v
	}
	return map[string]interface{}{
		"is_running": s.isRunning,
		"last_runs":  runs,
	}
}
