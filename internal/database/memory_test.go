package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"listing-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProperty(id, slug string, status models.PropertyStatus) *models.Property {
	return &models.Property{
		ID:           id,
		Title:        "Flat " + slug,
		Slug:         slug,
		Price:        1000,
		PropertyType: "apartment",
		Location:     "Main street",
		City:         "Lisbon",
		OwnerContact: "+351000000",
		Status:       status,
		CreatedBy:    "owner-1",
	}
}

func TestMemoryStore_AccountEmailUniqueCaseInsensitive(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateAccount(ctx, &models.Account{ID: "a1", Email: "Jane@Example.com", Name: "Jane"}))
	err := s.CreateAccount(ctx, &models.Account{ID: "a2", Email: "jane@example.COM", Name: "Other"})
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := s.GetAccountByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, "jane@example.com", got.Email)
	assert.Equal(t, models.RoleUser, got.Role)
	assert.Equal(t, models.AccountStatusActive, got.Status)
}

func TestMemoryStore_ConcurrentSignupsOneWinner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.CreateAccount(ctx, &models.Account{
				ID:    models.NewID(),
				Email: "race@example.com",
			})
		}(i)
	}
	wg.Wait()

	ok, dup := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicate):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, dup)
}

func TestMemoryStore_UpdatePropertySlugCollisionLeavesRecord(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateProperty(ctx, newProperty("p1", "sea-view", models.PropertyStatusApproved)))
	require.NoError(t, s.CreateProperty(ctx, newProperty("p2", "city-loft", models.PropertyStatusApproved)))

	_, _, err := s.UpdateProperty(ctx, "p2", func(p *models.Property) error {
		p.Slug = "sea-view"
		p.Title = "changed"
		return nil
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	stored, err := s.GetPropertyByID(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "city-loft", stored.Slug)
	assert.Equal(t, "Flat city-loft", stored.Title)
}

func TestMemoryStore_UpdatePropertyKeepsOwnSlug(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.CreateProperty(ctx, newProperty("p1", "sea-view", models.PropertyStatusDraft)))

	before, after, err := s.UpdateProperty(ctx, "p1", func(p *models.Property) error {
		p.Price = 2500
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, before.Price)
	assert.Equal(t, 2500.0, after.Price)
	assert.Equal(t, "sea-view", after.Slug)
}

func TestMemoryStore_UpdatePropertyMutateErrorAborts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.CreateProperty(ctx, newProperty("p1", "sea-view", models.PropertyStatusDraft)))

	boom := errors.New("boom")
	_, _, err := s.UpdateProperty(ctx, "p1", func(p *models.Property) error {
		p.Status = models.PropertyStatusApproved
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := s.GetPropertyByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PropertyStatusDraft, stored.Status)
}

func TestMemoryStore_ListPropertiesFiltersAndPaging(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateProperty(ctx, newProperty("p1", "a", models.PropertyStatusApproved)))
	require.NoError(t, s.CreateProperty(ctx, newProperty("p2", "b", models.PropertyStatusPending)))
	require.NoError(t, s.CreateProperty(ctx, newProperty("p3", "c", models.PropertyStatusApproved)))
	porto := newProperty("p4", "d", models.PropertyStatusApproved)
	porto.City = "Porto"
	porto.Premium = true
	require.NoError(t, s.CreateProperty(ctx, porto))

	page, err := s.ListProperties(ctx, PropertyFilter{Statuses: []models.PropertyStatus{models.PropertyStatusApproved}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	for _, p := range page.Items {
		assert.Equal(t, models.PropertyStatusApproved, p.Status)
	}
	assert.Equal(t, "p4", page.Items[0].ID, "premium listings sort first")

	page, err = s.ListProperties(ctx, PropertyFilter{City: "porto"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "p4", page.Items[0].ID)

	page, err = s.ListProperties(ctx, PropertyFilter{City: "ORT"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1, "city matches as a case-insensitive substring")
	assert.Equal(t, "p4", page.Items[0].ID)

	page, err = s.ListProperties(ctx, PropertyFilter{City: "lis"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	page, err = s.ListProperties(ctx, PropertyFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Len(t, page.Items, 2)

	page, err = s.ListProperties(ctx, PropertyFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, defaultPageLimit, page.Limit)
}

func TestMemoryStore_DeletePropertyDetachesEnquiries(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.CreateProperty(ctx, newProperty("p1", "a", models.PropertyStatusApproved)))
	pid := "p1"
	require.NoError(t, s.CreateEnquiry(ctx, &models.Enquiry{ID: "e1", Name: "n", Phone: "1", Message: "m", PropertyID: &pid}))

	deleted, err := s.DeleteProperty(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "a", deleted.Slug)

	e, err := s.GetEnquiry(ctx, "e1")
	require.NoError(t, err)
	assert.Nil(t, e.PropertyID)

	_, err = s.DeleteProperty(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ClosedEnquiriesBefore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateEnquiry(ctx, &models.Enquiry{ID: "e1", Status: models.EnquiryStatusClosed}))
	require.NoError(t, s.CreateEnquiry(ctx, &models.Enquiry{ID: "e2", Status: models.EnquiryStatusNew}))

	cutoff := time.Now().Add(time.Hour)
	got, err := s.ListEnquiries(ctx, EnquiryFilter{ClosedBefore: &cutoff})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)

	require.NoError(t, s.PurgeEnquiry(ctx, "e1", &models.DeleteLog{EntityType: models.EntityEnquiry, EntityID: "e1", Reason: models.DeleteReasonExpired}))
	logs, err := s.ListDeleteLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "e1", logs[0].EntityID)
	assert.False(t, logs[0].DeletedAt.IsZero())

	assert.ErrorIs(t, s.PurgeEnquiry(ctx, "e1", &models.DeleteLog{}), ErrNotFound)
}

func TestMemoryStore_PageUpsertKeepsID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.UpsertPage(ctx, &models.Page{ID: "pg1", Slug: "about", Title: "About"})
	require.NoError(t, err)
	second, err := s.UpsertPage(ctx, &models.Page{ID: "pg2", Slug: "about", Title: "About us"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "About us", second.Title)

	pages, err := s.ListPages(ctx)
	require.NoError(t, err)
	assert.Len(t, pages, 1)

	assert.ErrorIs(t, s.CreatePage(ctx, &models.Page{ID: "pg3", Slug: "about"}), ErrDuplicate)
}

func TestMemoryStore_UpdatePageSlugCollision(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.CreatePage(ctx, &models.Page{ID: "pg1", Slug: "about"}))
	require.NoError(t, s.CreatePage(ctx, &models.Page{ID: "pg2", Slug: "terms"}))

	_, err := s.UpdatePage(ctx, "pg2", func(p *models.Page) error {
		p.Slug = "about"
		return nil
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryStore_PropertyChangesNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.RecordPropertyChanges(ctx, []models.PropertyChange{
		{PropertyID: "p1", ChangeType: models.ChangeTypeNew},
		{PropertyID: "p2", ChangeType: models.ChangeTypeNew},
		{PropertyID: "p1", ChangeType: models.ChangeTypeStatus},
	}))

	got, err := s.ListPropertyChanges(ctx, "p1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.ChangeTypeStatus, got[0].ChangeType)
	assert.Equal(t, models.ChangeTypeNew, got[1].ChangeType)
}
