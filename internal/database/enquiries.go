package database

import (
	"context"

	"listing-portal/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (gdb *GormDB) CreateEnquiry(ctx context.Context, e *models.Enquiry) error {
	return translateError(gdb.db.WithContext(ctx).Create(e).Error)
}

func (gdb *GormDB) GetEnquiry(ctx context.Context, id string) (*models.Enquiry, error) {
	var e models.Enquiry
	if err := gdb.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &e, nil
}

func (gdb *GormDB) ListEnquiries(ctx context.Context, f EnquiryFilter) ([]models.Enquiry, error) {
	q := gdb.db.WithContext(ctx).Model(&models.Enquiry{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ClosedBefore != nil {
		q = q.Where("status = ? AND updated_at < ?", models.EnquiryStatusClosed, *f.ClosedBefore)
	}
	var enquiries []models.Enquiry
	err := q.Order("created_at DESC").Find(&enquiries).Error
	return enquiries, translateError(err)
}

func (gdb *GormDB) UpdateEnquiry(ctx context.Context, id string, mutate func(e *models.Enquiry) error) (*models.Enquiry, error) {
	var updated models.Enquiry
	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&updated, "id = ?", id).Error; err != nil {
			return err
		}
		if err := mutate(&updated); err != nil {
			return err
		}
		updated.ID = id
		return tx.Save(&updated).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &updated, nil
}

func (gdb *GormDB) DeleteEnquiry(ctx context.Context, id string) (*models.Enquiry, error) {
	var deleted models.Enquiry
	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&deleted, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Enquiry{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &deleted, nil
}

func (gdb *GormDB) CountEnquiriesByStatus(ctx context.Context) (map[string]int64, error) {
	return gdb.countByStatus(ctx, &models.Enquiry{})
}

func (gdb *GormDB) PurgeEnquiry(ctx context.Context, id string, entry *models.DeleteLog) error {
	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Enquiry{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(entry).Error
	})
	return translateError(err)
}
