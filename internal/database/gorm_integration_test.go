//go:build integration

package database

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"listing-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// openPostgres starts a Postgres 16 container, or reuses TEST_PG_DSN when set.
func openPostgres(t *testing.T) *GormDB {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		pgC, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("listings"),
			postgres.WithUsername("listings"),
			postgres.WithPassword("listings"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

		dsn, err = pgC.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	db, err := Open(DriverPostgres, dsn, false)
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestGormDB_Postgres(t *testing.T) {
	db := openPostgres(t)
	ctx := context.Background()

	t.Run("duplicate email maps to ErrDuplicate", func(t *testing.T) {
		require.NoError(t, db.CreateAccount(ctx, &models.Account{ID: models.NewID(), Name: "A", Email: "dup@example.com", PasswordHash: "x"}))
		err := db.CreateAccount(ctx, &models.Account{ID: models.NewID(), Name: "B", Email: "DUP@example.com", PasswordHash: "x"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("concurrent signups leave one account", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make([]error, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = db.CreateAccount(ctx, &models.Account{ID: models.NewID(), Name: "R", Email: "race@example.com", PasswordHash: "x"})
			}(i)
		}
		wg.Wait()

		created := 0
		for _, err := range results {
			if err == nil {
				created++
			} else {
				assert.ErrorIs(t, err, ErrDuplicate)
			}
		}
		assert.Equal(t, 1, created)
	})

	t.Run("slug collision on update is rolled back", func(t *testing.T) {
		a := newProperty(models.NewID(), "pg-sea-view", models.PropertyStatusApproved)
		b := newProperty(models.NewID(), "pg-city-loft", models.PropertyStatusApproved)
		require.NoError(t, db.CreateProperty(ctx, a))
		require.NoError(t, db.CreateProperty(ctx, b))

		_, _, err := db.UpdateProperty(ctx, b.ID, func(p *models.Property) error {
			p.Slug = a.Slug
			return nil
		})
		assert.ErrorIs(t, err, ErrDuplicate)

		stored, err := db.GetPropertyByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "pg-city-loft", stored.Slug)
	})

	t.Run("public filter only returns approved", func(t *testing.T) {
		require.NoError(t, db.CreateProperty(ctx, newProperty(models.NewID(), "pg-draft", models.PropertyStatusDraft)))
		page, err := db.ListProperties(ctx, PropertyFilter{Statuses: []models.PropertyStatus{models.PropertyStatusApproved}})
		require.NoError(t, err)
		for _, p := range page.Items {
			assert.Equal(t, models.PropertyStatusApproved, p.Status)
		}
	})

	t.Run("page upsert", func(t *testing.T) {
		first, err := db.UpsertPage(ctx, &models.Page{ID: models.NewID(), Slug: "about", Title: "About"})
		require.NoError(t, err)
		second, err := db.UpsertPage(ctx, &models.Page{ID: models.NewID(), Slug: "about", Title: "About us"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "About us", second.Title)
	})

	t.Run("search sync queue collapses pending tasks", func(t *testing.T) {
		require.NoError(t, db.EnqueueSearchSync(ctx, "prop-q", models.SyncActionIndex))
		require.NoError(t, db.EnqueueSearchSync(ctx, "prop-q", models.SyncActionRemove))

		task, err := db.NextSearchSyncTask(ctx, time.Now())
		require.NoError(t, err)
		assert.Equal(t, "prop-q", task.PropertyID)
		assert.Equal(t, models.SyncActionRemove, task.Action)
	})
}
