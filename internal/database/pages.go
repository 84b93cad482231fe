package database

import (
	"context"

	"listing-portal/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (gdb *GormDB) CreatePage(ctx context.Context, p *models.Page) error {
	return translateError(gdb.db.WithContext(ctx).Create(p).Error)
}

func (gdb *GormDB) GetPageByID(ctx context.Context, id string) (*models.Page, error) {
	var p models.Page
	if err := gdb.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

func (gdb *GormDB) GetPageBySlug(ctx context.Context, slug string) (*models.Page, error) {
	var p models.Page
	if err := gdb.db.WithContext(ctx).First(&p, "slug = ?", slug).Error; err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

func (gdb *GormDB) ListPages(ctx context.Context) ([]models.Page, error) {
	var pages []models.Page
	err := gdb.db.WithContext(ctx).Order("updated_at DESC").Find(&pages).Error
	return pages, translateError(err)
}

// UpsertPage relies on the slug unique index; the existing row keeps its id.
func (gdb *GormDB) UpsertPage(ctx context.Context, p *models.Page) (*models.Page, error) {
	var stored models.Page
	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "content", "meta_title", "meta_description", "updated_at"}),
		}).Create(p).Error
		if err != nil {
			return err
		}
		return tx.First(&stored, "slug = ?", p.Slug).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &stored, nil
}

func (gdb *GormDB) UpdatePage(ctx context.Context, id string, mutate func(p *models.Page) error) (*models.Page, error) {
	var updated models.Page
	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&updated, "id = ?", id).Error; err != nil {
			return err
		}
		oldSlug := updated.Slug
		if err := mutate(&updated); err != nil {
			return err
		}
		updated.ID = id
		if updated.Slug != oldSlug {
			var taken int64
			if err := tx.Model(&models.Page{}).
				Where("slug = ? AND id <> ?", updated.Slug, id).
				Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return ErrDuplicate
			}
		}
		return tx.Save(&updated).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &updated, nil
}

func (gdb *GormDB) DeletePage(ctx context.Context, id string) (*models.Page, error) {
	var deleted models.Page
	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&deleted, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Page{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &deleted, nil
}
