package database

import (
	"context"
	"strings"

	"listing-portal/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (gdb *GormDB) CreateProperty(ctx context.Context, p *models.Property) error {
	return translateError(gdb.db.WithContext(ctx).Create(p).Error)
}

func (gdb *GormDB) GetPropertyByID(ctx context.Context, id string) (*models.Property, error) {
	var p models.Property
	if err := gdb.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

func (gdb *GormDB) GetPropertyBySlug(ctx context.Context, slug string) (*models.Property, error) {
	var p models.Property
	if err := gdb.db.WithContext(ctx).First(&p, "slug = ?", slug).Error; err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a lower-cased LIKE pattern matching s anywhere.
// MySQL and PostgreSQL both treat backslash as the default LIKE escape.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// applyPropertyFilter adds WHERE clauses for f
func applyPropertyFilter(q *gorm.DB, f PropertyFilter) *gorm.DB {
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if city := strings.TrimSpace(f.City); city != "" {
		q = q.Where("LOWER(city) LIKE ?", containsPattern(city))
	}
	if f.Type != "" {
		q = q.Where("property_type = ?", f.Type)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.Premium != nil {
		q = q.Where("premium = ?", *f.Premium)
	}
	if f.CreatedBy != "" {
		q = q.Where("created_by = ?", f.CreatedBy)
	}
	if query := strings.TrimSpace(f.Query); query != "" {
		like := containsPattern(query)
		q = q.Where("LOWER(title) LIKE ? OR LOWER(location) LIKE ? OR LOWER(city) LIKE ?", like, like, like)
	}
	return q
}

func (gdb *GormDB) ListProperties(ctx context.Context, f PropertyFilter) (*PropertyPage, error) {
	limit, offset := normalizePaging(f.Limit, f.Offset)

	var total int64
	base := applyPropertyFilter(gdb.db.WithContext(ctx).Model(&models.Property{}), f)
	if err := base.Count(&total).Error; err != nil {
		return nil, translateError(err)
	}

	items := make([]models.Property, 0, limit)
	err := applyPropertyFilter(gdb.db.WithContext(ctx).Model(&models.Property{}), f).
		Order("premium DESC").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, translateError(err)
	}

	return &PropertyPage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func (gdb *GormDB) UpdateProperty(ctx context.Context, id string, mutate func(p *models.Property) error) (*models.Property, *models.Property, error) {
	var before, after *models.Property
	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Property
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "id = ?", id).Error; err != nil {
			return err
		}
		before = current.Clone()
		if err := mutate(&current); err != nil {
			return err
		}
		current.ID = id

		if current.Slug != before.Slug {
			var taken int64
			if err := tx.Model(&models.Property{}).
				Where("slug = ? AND id <> ?", current.Slug, id).
				Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return ErrDuplicate
			}
		}

		if err := tx.Save(&current).Error; err != nil {
			return err
		}
		after = &current
		return nil
	})
	if err != nil {
		return nil, nil, translateError(err)
	}
	return before, after, nil
}

func (gdb *GormDB) DeleteProperty(ctx context.Context, id string) (*models.Property, error) {
	var deleted models.Property
	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&deleted, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Property{}, "id = ?", id).Error; err != nil {
			return err
		}
		// Enquiries outlive the listing they referenced.
		return tx.Model(&models.Enquiry{}).
			Where("property_id = ?", id).
			Update("property_id", nil).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &deleted, nil
}

func (gdb *GormDB) CountPropertiesByStatus(ctx context.Context) (map[string]int64, error) {
	return gdb.countByStatus(ctx, &models.Property{})
}
