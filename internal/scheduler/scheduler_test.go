package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"listing-portal/internal/cleanup"
	"listing-portal/internal/config"
	"listing-portal/internal/database"
	"listing-portal/internal/logging"
	"listing-portal/internal/models"
	"listing-portal/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memQueue mirrors the gorm queue semantics closely enough for the worker.
type memQueue struct {
	mu    sync.Mutex
	tasks []*models.SearchSyncTask
	next  int64
}

func (q *memQueue) EnqueueSearchSync(_ context.Context, propertyID, action string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tasks {
		if t.PropertyID == propertyID && t.Status == models.QueueStatusPending {
			t.Action = action
			return nil
		}
	}
	q.next++
	q.tasks = append(q.tasks, &models.SearchSyncTask{
		ID: q.next, PropertyID: propertyID, Action: action, Status: models.QueueStatusPending,
	})
	return nil
}

func (q *memQueue) NextSearchSyncTask(_ context.Context, now time.Time) (*models.SearchSyncTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tasks {
		if t.Status == models.QueueStatusPending {
			c := *t
			return &c, nil
		}
	}
	for _, t := range q.tasks {
		if t.Status == models.QueueStatusFailed && t.NextRetryAt != nil && !t.NextRetryAt.After(now) {
			c := *t
			return &c, nil
		}
	}
	return nil, database.ErrNotFound
}

func (q *memQueue) SaveSearchSyncTask(_ context.Context, task *models.SearchSyncTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.tasks {
		if t.ID == task.ID {
			c := *task
			q.tasks[i] = &c
			return nil
		}
	}
	return database.ErrNotFound
}

func (q *memQueue) SearchSyncStats(context.Context) (map[string]int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := map[string]int64{}
	for _, t := range q.tasks {
		out[t.Status]++
	}
	return out, nil
}

func (q *memQueue) get(id int64) models.SearchSyncTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tasks {
		if t.ID == id {
			return *t
		}
	}
	return models.SearchSyncTask{}
}

type fakeIndex struct {
	indexed []string
	removed []string
	err     error
}

func (f *fakeIndex) Index(_ context.Context, p *models.Property) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, p.ID)
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeIndex) Reindex(_ context.Context, properties []models.Property) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = f.indexed[:0]
	for _, p := range properties {
		f.indexed = append(f.indexed, p.ID)
	}
	return nil
}

func addProperty(t *testing.T, store *database.MemoryStore, id string, status models.PropertyStatus) {
	t.Helper()
	require.NoError(t, store.CreateProperty(context.Background(), &models.Property{
		ID: id, Slug: id, Title: id, Status: status, PropertyType: "house", Location: "x",
	}))
}

func TestQueuedIndexer_CollapsesPendingTasks(t *testing.T) {
	q := &memQueue{}
	idx := NewQueuedIndexer(q)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, &models.Property{ID: "p1"}))
	require.NoError(t, idx.Remove(ctx, "p1"))
	require.NoError(t, idx.Index(ctx, &models.Property{ID: "p2"}))

	require.Len(t, q.tasks, 2)
	assert.Equal(t, models.SyncActionRemove, q.tasks[0].Action)
}

func TestQueueWorker_ProcessBatch(t *testing.T) {
	store := database.NewMemoryStore()
	addProperty(t, store, "p1", models.PropertyStatusApproved)

	q := &memQueue{}
	idx := NewQueuedIndexer(q)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, &models.Property{ID: "p1"}))
	require.NoError(t, idx.Index(ctx, &models.Property{ID: "gone"}))
	require.NoError(t, idx.Remove(ctx, "p3"))

	engine := &fakeIndex{}
	w := NewQueueWorker(q, store, engine, time.Second, logging.Discard())

	assert.Equal(t, 3, w.ProcessBatch(ctx))
	assert.Equal(t, []string{"p1"}, engine.indexed)
	assert.Equal(t, []string{"gone", "p3"}, engine.removed, "a missing listing is removed from the index")

	stats := w.GetQueueStats(ctx)
	assert.Equal(t, int64(3), stats["done"])
	assert.Equal(t, 0, w.ProcessBatch(ctx))
}

func TestQueueWorker_RetryBackoffThenPermanentFail(t *testing.T) {
	store := database.NewMemoryStore()
	addProperty(t, store, "p1", models.PropertyStatusApproved)

	q := &memQueue{}
	ctx := context.Background()
	require.NoError(t, q.EnqueueSearchSync(ctx, "p1", models.SyncActionIndex))

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	engine := &fakeIndex{err: errors.New("boom")}
	w := NewQueueWorker(q, store, engine, time.Second, logging.Discard())
	w.now = func() time.Time { return now }

	w.ProcessBatch(ctx)
	task := q.get(1)
	assert.Equal(t, models.QueueStatusFailed, task.Status)
	assert.Equal(t, 1, task.Attempts)
	require.NotNil(t, task.NextRetryAt)
	assert.Equal(t, now.Add(models.GetNextRetryDelay(0)), *task.NextRetryAt)

	assert.Equal(t, 0, w.ProcessBatch(ctx), "not due yet")

	for i := 1; i < models.MaxRetryAttempts; i++ {
		now = now.Add(5 * time.Hour)
		w.ProcessBatch(ctx)
	}
	task = q.get(1)
	assert.Equal(t, models.QueueStatusPermanentFail, task.Status)
	assert.Equal(t, models.MaxRetryAttempts, task.Attempts)
}

func TestQueueWorker_UnavailableStopsBatch(t *testing.T) {
	store := database.NewMemoryStore()
	q := &memQueue{}
	ctx := context.Background()
	require.NoError(t, q.EnqueueSearchSync(ctx, "a", models.SyncActionRemove))
	require.NoError(t, q.EnqueueSearchSync(ctx, "b", models.SyncActionRemove))

	engine := &fakeIndex{err: fmt.Errorf("wrapped: %w", search.ErrUnavailable)}
	w := NewQueueWorker(q, store, engine, time.Second, logging.Discard())

	assert.Equal(t, 1, w.ProcessBatch(ctx))
	task := q.get(1)
	assert.Equal(t, models.QueueStatusFailed, task.Status)
	assert.Zero(t, task.Attempts)
	assert.Equal(t, models.QueueStatusPending, q.get(2).Status)
}

func TestQueueWorker_StartStop(t *testing.T) {
	w := NewQueueWorker(&memQueue{}, database.NewMemoryStore(), &fakeIndex{}, 10*time.Millisecond, logging.Discard())
	w.Start()
	w.Start()
	assert.Equal(t, true, w.GetQueueStats(context.Background())["is_running"])
	w.Stop()
	w.Stop()
	assert.Equal(t, false, w.GetQueueStats(context.Background())["is_running"])
}

func TestScheduler_RunReindexPagesThroughApproved(t *testing.T) {
	store := database.NewMemoryStore()
	for i := 0; i < 130; i++ {
		addProperty(t, store, fmt.Sprintf("a%03d", i), models.PropertyStatusApproved)
	}
	addProperty(t, store, "draft", models.PropertyStatusDraft)

	engine := &fakeIndex{}
	s := NewScheduler(config.DefaultConfig().Scheduler, cleanup.NewService(store, logging.Discard()), store, engine, logging.Discard())

	n, err := s.RunReindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 130, n)
	sorted := append([]string(nil), engine.indexed...)
	sort.Strings(sorted)
	assert.NotContains(t, sorted, "draft")
	assert.Equal(t, "a000", sorted[0])
}

func TestScheduler_StartValidatesCron(t *testing.T) {
	store := database.NewMemoryStore()
	cfg := config.DefaultConfig().Scheduler
	cfg.CleanupCron = "not a cron"
	s := NewScheduler(cfg, cleanup.NewService(store, logging.Discard()), store, nil, logging.Discard())
	assert.Error(t, s.Start())

	cfg = config.DefaultConfig().Scheduler
	s = NewScheduler(cfg, cleanup.NewService(store, logging.Discard()), store, nil, logging.Discard())
	require.NoError(t, s.Start())
	assert.Equal(t, true, s.Status()["is_running"])
	s.Stop()

	result, err := s.RunCleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.TargetCount)
}
