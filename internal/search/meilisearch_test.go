package search

import (
	"context"
	"testing"
	"time"

	"listing-portal/internal/breaker"
	"listing-portal/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildFilter_AlwaysApprovedOnly(t *testing.T) {
	assert.Equal(t, `status = "approved"`, BuildFilter(Query{Text: "loft"}))
}

func TestBuildFilter_AllParams(t *testing.T) {
	minPrice, maxPrice, premium := 100.0, 2500.5, true
	got := BuildFilter(Query{
		Type:     "apartment",
		MinPrice: &minPrice,
		MaxPrice: &maxPrice,
		Premium:  &premium,
	})
	assert.Equal(t,
		`status = "approved" AND property_type = "apartment" AND price >= 100 AND price <= 2500.5 AND premium = true`,
		got)
}

func TestBuildFilter_QuotesUserInput(t *testing.T) {
	got := BuildFilter(Query{Type: `x" OR status = "draft`})
	assert.Contains(t, got, `property_type = "x\" OR status = \"draft"`)
}

func TestNewDocument(t *testing.T) {
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p := &models.Property{ID: "p1", Title: "Loft", Slug: "loft", Price: 900, Status: models.PropertyStatusApproved, CreatedAt: created}

	doc := NewDocument(p)
	assert.Equal(t, "p1", doc.ID)
	assert.Equal(t, "approved", doc.Status)
	assert.Equal(t, created.Unix(), doc.CreatedAt)
}

func TestSearchClient_OpenBreakerShortCircuits(t *testing.T) {
	cb := breaker.NewCircuitBreaker("search", 1, time.Hour)
	cb.RecordFailure()
	// host is never contacted while the breaker is open
	s := NewSearchClient("http://127.0.0.1:1", "", "", cb)

	_, err := s.Search(context.Background(), Query{Text: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.Remove(context.Background(), "p1"), ErrUnavailable)
}
