package handlers

import (
	"context"
	"net/http"

	"listing-portal/internal/apperr"
	"listing-portal/internal/breaker"
	"listing-portal/internal/cleanup"
	"listing-portal/internal/logging"
	"listing-portal/internal/scheduler"

	"github.com/gin-gonic/gin"
)

// StatsStore counts records by status
type StatsStore interface {
	CountPropertiesByStatus(ctx context.Context) (map[string]int64, error)
	CountEnquiriesByStatus(ctx context.Context) (map[string]int64, error)
	CountAccountsByStatus(ctx context.Context) (map[string]int64, error)
}

// AdminHandler handles admin-related requests
type AdminHandler struct {
	store          StatsStore
	cleanupService *cleanup.Service
	scheduler      *scheduler.Scheduler
	worker         *scheduler.QueueWorker
	breakers       []*breaker.CircuitBreaker
	log            logging.Logger
}

// NewAdminHandler creates a new admin handler. scheduler, worker and
// breakers are optional.
func NewAdminHandler(store StatsStore, cleanupService *cleanup.Service, sched *scheduler.Scheduler, worker *scheduler.QueueWorker, breakers []*breaker.CircuitBreaker, log logging.Logger) *AdminHandler {
	return &AdminHandler{
		store:          store,
		cleanupService: cleanupService,
		scheduler:      sched,
		worker:         worker,
		breakers:       breakers,
		log:            log,
	}
}

func withTotal(counts map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(counts)+1)
	var total int64
	for k, v := range counts {
		out[k] = v
		total += v
	}
	out["total"] = total
	return out
}

// GetStats returns counts by status for listings, enquiries and accounts
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats := make(map[string]interface{})

	properties, err := h.store.CountPropertiesByStatus(ctx)
	if err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	stats["properties"] = withTotal(properties)

	enquiries, err := h.store.CountEnquiriesByStatus(ctx)
	if err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	stats["enquiries"] = withTotal(enquiries)

	accounts, err := h.store.CountAccountsByStatus(ctx)
	if err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	stats["users"] = withTotal(accounts)

	if h.cleanupService != nil {
		deleteStats, err := h.cleanupService.GetDeleteStats(ctx)
		if err != nil {
			h.log.Warn(ctx, "admin: delete stats unavailable", "error", err)
		} else {
			stats["deletions"] = deleteStats
		}
	}

	c.JSON(http.StatusOK, stats)
}

// GetSystemStatus reports background jobs, the search sync queue and
// circuit breakers
func (h *AdminHandler) GetSystemStatus(c *gin.Context) {
	status := gin.H{}
	if h.scheduler != nil {
		status["scheduler"] = h.scheduler.Status()
	}
	if h.worker != nil {
		status["search_queue"] = h.worker.GetQueueStats(c.Request.Context())
	}
	breakers := make([]breaker.Status, 0, len(h.breakers))
	for _, cb := range h.breakers {
		if cb != nil {
			breakers = append(breakers, cb.GetStatus())
		}
	}
	status["breakers"] = breakers
	c.JSON(http.StatusOK, status)
}

// RunCleanup executes physical deletion of expired closed enquiries
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	var req struct {
		RetentionDays    int   `json:"retention_days" binding:"omitempty,gte=1"`
		MaxDeletionCount int   `json:"max_deletion_count" binding:"omitempty,gte=1"`
		DryRun           *bool `json:"dry_run"`
	}
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	config := cleanup.DefaultCleanupConfig()
	if req.RetentionDays > 0 {
		config.RetentionDays = req.RetentionDays
	}
	if req.MaxDeletionCount > 0 {
		config.MaxDeletionCount = req.MaxDeletionCount
	}
	// Dry run unless explicitly disabled.
	config.DryRun = req.DryRun == nil || *req.DryRun

	result, err := h.cleanupService.PhysicallyDelete(c.Request.Context(), config)
	if err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetDeleteLogs returns recent delete log entries
func (h *AdminHandler) GetDeleteLogs(c *gin.Context) {
	limit, err := queryInt(c, "limit", 100)
	if err != nil {
		respondError(c, err)
		return
	}
	logs, err := h.cleanupService.GetRecentDeleteLogs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// TriggerReindex rebuilds the search index in the background
func (h *AdminHandler) TriggerReindex(c *gin.Context) {
	if h.scheduler == nil {
		respondError(c, apperr.Unavailable("scheduler not available"))
		return
	}
	go func() {
		ctx := context.Background()
		if n, err := h.scheduler.RunReindex(ctx); err != nil {
			h.log.Error(ctx, "admin: manual reindex failed", "error", err)
		} else {
			h.log.Info(ctx, "admin: manual reindex completed", "documents", n)
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{
		"message": "reindex started",
		"status":  "running",
	})
}
