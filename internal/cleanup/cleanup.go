package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listing-portal/internal/database"
	"listing-portal/internal/logging"
	"listing-portal/internal/models"
)

// Store is the persistence cleanup needs
type Store interface {
	ListEnquiries(ctx context.Context, f database.EnquiryFilter) ([]models.Enquiry, error)
	PurgeEnquiry(ctx context.Context, id string, entry *models.DeleteLog) error
	ListDeleteLogs(ctx context.Context, limit int) ([]models.DeleteLog, error)
}

// Service handles physical deletion of closed enquiries past retention
type Service struct {
	store Store
	log   logging.Logger
	now   func() time.Time
}

// NewService creates a new cleanup service
func NewService(store Store, log logging.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// CleanupConfig holds configuration for cleanup operations
type CleanupConfig struct {
	RetentionDays    int  // Days a closed enquiry is kept before physical deletion
	MaxDeletionCount int  // Safety limit per run
	DryRun           bool // Only report what would be deleted
}

// DefaultCleanupConfig returns default configuration
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		RetentionDays:    365,
		MaxDeletionCount: 10000,
		DryRun:           false,
	}
}

// CleanupResult holds the result of a cleanup operation
type CleanupResult struct {
	TargetCount      int       `json:"target_count"`
	DeletedCount     int       `json:"deleted_count"`
	ErrorCount       int       `json:"error_count"`
	DryRun           bool      `json:"dry_run"`
	Cutoff           time.Time `json:"cutoff"`
	ExecutedAt       time.Time `json:"executed_at"`
	DeletedEnquiries []string  `json:"deleted_enquiries"`
	Errors           []string  `json:"errors,omitempty"`
}

// ErrTooManyTargets aborts a run that would delete more than the safety limit
var ErrTooManyTargets = errors.New("cleanup: deletion count exceeds safety limit")

// FindExpiredEnquiries returns closed enquiries last touched before the
// retention cutoff
func (s *Service) FindExpiredEnquiries(ctx context.Context, retentionDays int) ([]models.Enquiry, time.Time, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)
	enquiries, err := s.store.ListEnquiries(ctx, database.EnquiryFilter{ClosedBefore: &cutoff})
	if err != nil {
		return nil, cutoff, fmt.Errorf("failed to find expired enquiries: %w", err)
	}
	return enquiries, cutoff, nil
}

// PhysicallyDelete removes expired enquiries, writing a delete log per row
func (s *Service) PhysicallyDelete(ctx context.Context, config CleanupConfig) (*CleanupResult, error) {
	if config.RetentionDays <= 0 {
		return nil, fmt.Errorf("cleanup: retention days must be positive, got %d", config.RetentionDays)
	}
	result := &CleanupResult{
		DryRun:     config.DryRun,
		ExecutedAt: s.now().UTC(),
	}

	expired, cutoff, err := s.FindExpiredEnquiries(ctx, config.RetentionDays)
	if err != nil {
		return nil, err
	}
	result.Cutoff = cutoff
	result.TargetCount = len(expired)

	if result.TargetCount == 0 {
		s.log.Info(ctx, "cleanup: nothing to delete", "cutoff", cutoff)
		return result, nil
	}

	if config.MaxDeletionCount > 0 && result.TargetCount > config.MaxDeletionCount {
		return nil, fmt.Errorf("%w: %d enquiries, limit %d", ErrTooManyTargets, result.TargetCount, config.MaxDeletionCount)
	}

	s.log.Info(ctx, "cleanup: starting",
		"targets", result.TargetCount, "retention_days", config.RetentionDays, "dry_run", config.DryRun)

	for _, e := range expired {
		if config.DryRun {
			s.log.Info(ctx, "cleanup: would delete enquiry", "enquiry_id", e.ID, "updated_at", e.UpdatedAt)
			result.DeletedEnquiries = append(result.DeletedEnquiries, e.ID)
			result.DeletedCount++
			continue
		}

		entry := &models.DeleteLog{
			EntityType: models.EntityEnquiry,
			EntityID:   e.ID,
			Title:      e.Name,
			DeletedAt:  s.now().UTC(),
			Reason:     models.DeleteReasonExpired,
		}
		if err := s.store.PurgeEnquiry(ctx, e.ID, entry); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			msg := fmt.Sprintf("failed to delete enquiry %s: %v", e.ID, err)
			s.log.Error(ctx, "cleanup: delete failed", "enquiry_id", e.ID, "error", err)
			result.Errors = append(result.Errors, msg)
			result.ErrorCount++
			continue
		}
		result.DeletedEnquiries = append(result.DeletedEnquiries, e.ID)
		result.DeletedCount++
	}

	s.log.Info(ctx, "cleanup: completed",
		"deleted", result.DeletedCount, "targets", result.TargetCount, "errors", result.ErrorCount, "dry_run", config.DryRun)
	return result, nil
}

// GetDeleteStats summarises recent delete logs by reason
func (s *Service) GetDeleteStats(ctx context.Context) (map[string]interface{}, error) {
	logs, err := s.store.ListDeleteLogs(ctx, 1000)
	if err != nil {
		return nil, err
	}
	byReason := make(map[string]int64)
	byEntity := make(map[string]int64)
	var recent int64
	since := s.now().UTC().AddDate(0, 0, -30)
	for _, l := range logs {
		byReason[l.Reason]++
		byEntity[l.EntityType]++
		if !l.DeletedAt.Before(since) {
			recent++
		}
	}
	return map[string]interface{}{
		"sampled":              len(logs),
		"by_reason":            byReason,
		"by_entity":            byEntity,
		"deleted_last_30_days": recent,
	}, nil
}

// GetRecentDeleteLogs returns recent delete log entries
func (s *Service) GetRecentDeleteLogs(ctx context.Context, limit int) ([]models.DeleteLog, error) {
	return s.store.ListDeleteLogs(ctx, limit)
}
