package models

import (
	"time"
)

// SearchSyncTask is a pending change to the public search index.
// Listing writes enqueue tasks; the queue worker drains them so a slow or
// unavailable search engine never fails a request.
type SearchSyncTask struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID  string     `gorm:"type:varchar(36);not null;index:idx_sync_property" json:"property_id"`
	Action      string     `gorm:"type:varchar(20);not null" json:"action"`                                         // index, remove
	Status      string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_sync_status" json:"status"` // pending, processing, done, failed
	Attempts    int        `gorm:"default:0" json:"attempts"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	NextRetryAt *time.Time `gorm:"index:idx_sync_retry" json:"next_retry_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (SearchSyncTask) TableName() string {
	return "search_sync_tasks"
}

// Actions
const (
	SyncActionIndex  = "index"
	SyncActionRemove = "remove"
)

// Status constants
const (
	QueueStatusPending       = "pending"
	QueueStatusProcessing    = "processing"
	QueueStatusDone          = "done"
	QueueStatusFailed        = "failed"
	QueueStatusPermanentFail = "permanent_fail"
)

// MaxRetryAttempts before marking as permanently failed
const MaxRetryAttempts = 5

// GetNextRetryDelay calculates exponential backoff for retries
func GetNextRetryDelay(attempts int) time.Duration {
	// 30s, 2min, 10min, 1h, 4h
	delays := []time.Duration{
		30 * time.Second,
		2 * time.Minute,
		10 * time.Minute,
		1 * time.Hour,
		4 * time.Hour,
	}

	if attempts < 0 {
		return delays[0]
	}
	if attempts >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[attempts]
}
