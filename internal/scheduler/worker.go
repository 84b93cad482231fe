package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"listing-portal/internal/database"
	"listing-portal/internal/logging"
	"listing-portal/internal/models"
	"listing-portal/internal/search"
)

// SyncQueue is the durable queue of pending search index changes
type SyncQueue interface {
	EnqueueSearchSync(ctx context.Context, propertyID, action string) error
	NextSearchSyncTask(ctx context.Context, now time.Time) (*models.SearchSyncTask, error)
	SaveSearchSyncTask(ctx context.Context, task *models.SearchSyncTask) error
	SearchSyncStats(ctx context.Context) (map[string]int64, error)
}

// PropertyGetter loads the current version of a listing
type PropertyGetter interface {
	GetPropertyByID(ctx context.Context, id string) (*models.Property, error)
}

// IndexClient applies a change to the search engine
type IndexClient interface {
	Index(ctx context.Context, p *models.Property) error
	Remove(ctx context.Context, id string) error
}

// QueuedIndexer records index changes in the queue instead of calling the
// search engine inline. It satisfies listing.Indexer.
type QueuedIndexer struct {
	queue SyncQueue
}

func NewQueuedIndexer(queue SyncQueue) *QueuedIndexer {
	return &QueuedIndexer{queue: queue}
}

func (q *QueuedIndexer) Index(ctx context.Context, p *models.Property) error {
	return q.queue.EnqueueSearchSync(ctx, p.ID, models.SyncActionIndex)
}

func (q *QueuedIndexer) Remove(ctx context.Context, id string) error {
	return q.queue.EnqueueSearchSync(ctx, id, models.SyncActionRemove)
}

// unavailableCooldown delays a task while the search breaker is open
const unavailableCooldown = time.Minute

// QueueWorker drains search_sync_tasks into the search engine
type QueueWorker struct {
	queue        SyncQueue
	properties   PropertyGetter
	index        IndexClient
	log          logging.Logger
	pollInterval time.Duration
	batchSize    int
	now          func() time.Time

	mu        sync.Mutex
	stopChan  chan struct{}
	done      chan struct{}
	isRunning bool
}

// NewQueueWorker creates a new queue worker
func NewQueueWorker(queue SyncQueue, properties PropertyGetter, index IndexClient, pollInterval time.Duration, log logging.Logger) *QueueWorker {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &QueueWorker{
		queue:        queue,
		properties:   properties,
		index:        index,
		log:          log,
		pollInterval: pollInterval,
		batchSize:    50,
		now:          time.Now,
	}
}

// Start starts the queue worker
func (w *QueueWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return
	}
	w.isRunning = true
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	w.log.Info(context.Background(), "queue worker: started", "poll_interval", w.pollInterval.String())

	go w.run(w.stopChan, w.done)
}

// Stop stops the queue worker and waits for the current batch
func (w *QueueWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	close(w.stopChan)
	done := w.done
	w.mu.Unlock()

	<-done
	w.log.Info(context.Background(), "queue worker: stopped")
}

// run is the main worker loop
func (w *QueueWorker) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), w.pollInterval*5)
			w.ProcessBatch(ctx)
			cancel()
		}
	}
}

// ProcessBatch handles up to batchSize due tasks and returns how many ran
func (w *QueueWorker) ProcessBatch(ctx context.Context) int {
	processed := 0
	for processed < w.batchSize {
		if ctx.Err() != nil {
			return processed
		}
		task, err := w.queue.NextSearchSyncTask(ctx, w.now())
		if err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				w.log.Error(ctx, "queue worker: fetch next task", "error", err)
			}
			return processed
		}
		err = w.processTask(ctx, task)
		processed++
		if errors.Is(err, search.ErrUnavailable) {
			return processed
		}
	}
	return processed
}

// processTask applies a single task and returns the apply error, if any
func (w *QueueWorker) processTask(ctx context.Context, task *models.SearchSyncTask) error {
	task.Status = models.QueueStatusProcessing
	task.Attempts++
	if err := w.queue.SaveSearchSyncTask(ctx, task); err != nil {
		w.log.Error(ctx, "queue worker: mark processing", "task_id", task.ID, "error", err)
		return err
	}

	if err := w.apply(ctx, task); err != nil {
		w.handleError(ctx, task, err)
		return err
	}

	task.Status = models.QueueStatusDone
	task.LastError = ""
	completedAt := w.now()
	task.CompletedAt = &completedAt
	task.NextRetryAt = nil
	if err := w.queue.SaveSearchSyncTask(ctx, task); err != nil {
		w.log.Error(ctx, "queue worker: mark done", "task_id", task.ID, "error", err)
	}
	return nil
}

func (w *QueueWorker) apply(ctx context.Context, task *models.SearchSyncTask) error {
	if task.Action == models.SyncActionRemove {
		return w.index.Remove(ctx, task.PropertyID)
	}
	p, err := w.properties.GetPropertyByID(ctx, task.PropertyID)
	if errors.Is(err, database.ErrNotFound) {
		return w.index.Remove(ctx, task.PropertyID)
	}
	if err != nil {
		return err
	}
	return w.index.Index(ctx, p)
}

// handleError schedules a retry with backoff or gives up
func (w *QueueWorker) handleError(ctx context.Context, task *models.SearchSyncTask, err error) {
	task.Status = models.QueueStatusFailed
	task.LastError = err.Error()

	switch {
	case errors.Is(err, search.ErrUnavailable):
		// Attempts spent while the breaker is open do not count.
		task.Attempts--
		next := w.now().Add(unavailableCooldown)
		task.NextRetryAt = &next
		w.log.Warn(ctx, "queue worker: search unavailable, cooling down", "task_id", task.ID)
	case task.Attempts >= models.MaxRetryAttempts:
		task.Status = models.QueueStatusPermanentFail
		completedAt := w.now()
		task.CompletedAt = &completedAt
		task.NextRetryAt = nil
		w.log.Error(ctx, "queue worker: giving up", "task_id", task.ID, "attempts", task.Attempts, "error", err)
	default:
		next := w.now().Add(models.GetNextRetryDelay(task.Attempts - 1))
		task.NextRetryAt = &next
		w.log.Warn(ctx, "queue worker: retry scheduled",
			"task_id", task.ID, "attempt", task.Attempts, "next_retry_at", next, "error", err)
	}

	if serr := w.queue.SaveSearchSyncTask(ctx, task); serr != nil {
		w.log.Error(ctx, "queue worker: save retry state", "task_id", task.ID, "error", serr)
	}
}

// GetQueueStats returns current queue statistics
func (w *QueueWorker) GetQueueStats(ctx context.Context) map[string]interface{} {
	stats, err := w.queue.SearchSyncStats(ctx)
	if err != nil {
		w.log.Error(ctx, "queue worker: stats", "error", err)
		stats = map[string]int64{}
	}
	w.mu.Lock()
	running := w.isRunning
	w.mu.Unlock()
	return map[string]interface{}{
		"pending":        stats[models.QueueStatusPending],
		"processing":     stats[models.QueueStatusProcessing],
		"done":           stats[models.QueueStatusDone],
		"failed":         stats[models.QueueStatusFailed],
		"permanent_fail": stats[models.QueueStatusPermanentFail],
		"is_running":     running,
	}
}
