package database

import (
	"context"
	"errors"
	"time"

	"listing-portal/internal/models"

	"gorm.io/gorm"
)

// EnqueueSearchSync adds a pending index/remove task for a listing. A pending
// task for the same listing is rewritten in place so bursts of edits collapse
// into one search request.
func (gdb *GormDB) EnqueueSearchSync(ctx context.Context, propertyID, action string) error {
	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SearchSyncTask
		err := tx.Where("property_id = ? AND status = ?", propertyID, models.QueueStatusPending).
			First(&existing).Error
		if err == nil {
			existing.Action = action
			return tx.Save(&existing).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&models.SearchSyncTask{
			PropertyID: propertyID,
			Action:     action,
			Status:     models.QueueStatusPending,
		}).Error
	})
	return translateError(err)
}

// NextSearchSyncTask returns the oldest pending task, then failed tasks whose
// retry time has passed. ErrNotFound means the queue is drained.
func (gdb *GormDB) NextSearchSyncTask(ctx context.Context, now time.Time) (*models.SearchSyncTask, error) {
	var task models.SearchSyncTask
	err := gdb.db.WithContext(ctx).
		Where("status = ?", models.QueueStatusPending).
		Order("created_at ASC").
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = gdb.db.WithContext(ctx).
			Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", models.QueueStatusFailed, now).
			Order("created_at ASC").
			First(&task).Error
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &task, nil
}

func (gdb *GormDB) SaveSearchSyncTask(ctx context.Context, task *models.SearchSyncTask) error {
	return translateError(gdb.db.WithContext(ctx).Save(task).Error)
}

// SearchSyncStats counts queue rows by status.
func (gdb *GormDB) SearchSyncStats(ctx context.Context) (map[string]int64, error) {
	return gdb.countByStatus(ctx, &models.SearchSyncTask{})
}
