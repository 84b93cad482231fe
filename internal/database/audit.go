package database

import (
	"context"

	"listing-portal/internal/models"
)

func (gdb *GormDB) RecordPropertyChanges(ctx context.Context, changes []models.PropertyChange) error {
	if len(changes) == 0 {
		return nil
	}
	return translateError(gdb.db.WithContext(ctx).Create(&changes).Error)
}

func (gdb *GormDB) ListPropertyChanges(ctx context.Context, propertyID string, limit int) ([]models.PropertyChange, error) {
	if limit <= 0 {
		limit = 50
	}
	var changes []models.PropertyChange
	err := gdb.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("detected_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&changes).Error
	return changes, translateError(err)
}

func (gdb *GormDB) CreateDeleteLog(ctx context.Context, entry *models.DeleteLog) error {
	return translateError(gdb.db.WithContext(ctx).Create(entry).Error)
}

func (gdb *GormDB) ListDeleteLogs(ctx context.Context, limit int) ([]models.DeleteLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var logs []models.DeleteLog
	err := gdb.db.WithContext(ctx).Order("deleted_at DESC").Limit(limit).Find(&logs).Error
	return logs, translateError(err)
}
