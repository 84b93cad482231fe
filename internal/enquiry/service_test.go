package enquiry

import (
	"context"
	"testing"

	"listing-portal/internal/apperr"
	"listing-portal/internal/auth"
	"listing-portal/internal/database"
	"listing-portal/internal/logging"
	"listing-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = auth.Principal{AccountID: "admin-1", Role: auth.RoleAdmin}

func newTestService(t *testing.T) (*Service, *database.MemoryStore) {
	t.Helper()
	store := database.NewMemoryStore()
	return NewService(store, logging.Discard()), store
}

func strPtr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	svc, _ := newTestService(t)

	e, err := svc.Create(context.Background(), Input{Name: " Ann ", Email: "ANN@Example.com", Phone: "123", Message: "Is it free?"})
	require.NoError(t, err)
	assert.Equal(t, models.EnquiryStatusNew, e.Status)
	assert.Equal(t, "Ann", e.Name)
	assert.Equal(t, "ann@example.com", e.Email)
	assert.Nil(t, e.PropertyID)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), Input{Name: " ", Phone: "", Message: ""})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Len(t, appErr.Fields, 3)
}

func TestCreate_PropertyReference(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, store.CreateProperty(ctx, &models.Property{ID: "p1", Slug: "p1", Status: models.PropertyStatusApproved}))

	e, err := svc.Create(ctx, Input{Name: "A", Phone: "1", Message: "m", PropertyID: strPtr("p1")})
	require.NoError(t, err)
	require.NotNil(t, e.PropertyID)
	assert.Equal(t, "p1", *e.PropertyID)

	_, err = svc.Create(ctx, Input{Name: "A", Phone: "1", Message: "m", PropertyID: strPtr("nope")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	e, err = svc.Create(ctx, Input{Name: "A", Phone: "1", Message: "m", PropertyID: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, e.PropertyID)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.EnquiryStatusNew, models.EnquiryStatusReviewed))
	assert.True(t, CanTransition(models.EnquiryStatusReviewed, models.EnquiryStatusInProgress))
	assert.True(t, CanTransition(models.EnquiryStatusInProgress, models.EnquiryStatusClosed))
	assert.True(t, CanTransition(models.EnquiryStatusNew, models.EnquiryStatusClosed))
	assert.True(t, CanTransition(models.EnquiryStatusClosed, models.EnquiryStatusNew))
	assert.False(t, CanTransition(models.EnquiryStatusClosed, models.EnquiryStatusReviewed))
	assert.False(t, CanTransition(models.EnquiryStatusNew, "archived"))
}

func TestSetStatusListAndDelete(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	e1, err := svc.Create(ctx, Input{Name: "A", Phone: "1", Message: "m"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{Name: "B", Phone: "2", Message: "m"})
	require.NoError(t, err)

	closed, err := svc.SetStatus(ctx, admin, e1.ID, models.EnquiryStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, models.EnquiryStatusClosed, closed.Status)

	_, err = svc.SetStatus(ctx, admin, e1.ID, models.EnquiryStatusReviewed)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.SetStatus(ctx, admin, e1.ID, "archived")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.SetStatus(ctx, admin, "missing", models.EnquiryStatusReviewed)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	onlyNew, err := svc.List(ctx, models.EnquiryStatusNew)
	require.NoError(t, err)
	require.Len(t, onlyNew, 1)
	assert.Equal(t, "B", onlyNew[0].Name)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.List(ctx, "archived")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, svc.Delete(ctx, admin, e1.ID))
	_, err = svc.Get(ctx, e1.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(svc.Delete(ctx, admin, e1.ID), apperr.KindNotFound))

	logs, err := store.ListDeleteLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.EntityEnquiry, logs[0].EntityType)
}
