package database

import (
	"context"
	"strings"

	"listing-portal/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (gdb *GormDB) CreateAccount(ctx context.Context, a *models.Account) error {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	return translateError(gdb.db.WithContext(ctx).Create(a).Error)
}

func (gdb *GormDB) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	var a models.Account
	if err := gdb.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &a, nil
}

func (gdb *GormDB) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	err := gdb.db.WithContext(ctx).
		First(&a, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &a, nil
}

func (gdb *GormDB) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := gdb.db.WithContext(ctx).Order("created_at DESC").Find(&accounts).Error
	return accounts, translateError(err)
}

func (gdb *GormDB) UpdateAccount(ctx context.Context, id string, mutate func(a *models.Account) error) (*models.Account, error) {
	var updated models.Account
	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&updated, "id = ?", id).Error; err != nil {
			return err
		}
		if err := mutate(&updated); err != nil {
			return err
		}
		updated.Email = strings.ToLower(strings.TrimSpace(updated.Email))
		return tx.Save(&updated).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &updated, nil
}

func (gdb *GormDB) DeleteAccount(ctx context.Context, id string) (*models.Account, error) {
	var deleted models.Account
	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&deleted, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Account{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &deleted, nil
}

func (gdb *GormDB) CountAccountsByStatus(ctx context.Context) (map[string]int64, error) {
	return gdb.countByStatus(ctx, &models.Account{})
}
