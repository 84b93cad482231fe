// Package search keeps a Meilisearch index of approved listings and serves
// full-text queries over it.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"listing-portal/internal/breaker"
	"listing-portal/internal/models"

	"github.com/meilisearch/meilisearch-go"
)

// ErrUnavailable is returned while the search engine is failing.
var ErrUnavailable = errors.New("search: engine unavailable")

// Document is the indexed projection of an approved listing.
type Document struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Slug         string   `json:"slug"`
	Description  string   `json:"description"`
	Location     string   `json:"location"`
	City         string   `json:"city"`
	PropertyType string   `json:"property_type"`
	Price        float64  `json:"price"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *int     `json:"bathrooms,omitempty"`
	Premium      bool     `json:"premium"`
	Features     []string `json:"features"`
	CoverImage   string   `json:"cover_image,omitempty"`
	Status       string   `json:"status"`
	CreatedAt    int64    `json:"created_at"`
}

// NewDocument projects a listing into its index document.
func NewDocument(p *models.Property) Document {
	return Document{
		ID:           p.ID,
		Title:        p.Title,
		Slug:         p.Slug,
		Description:  p.Description,
		Location:     p.Location,
		City:         p.City,
		PropertyType: p.PropertyType,
		Price:        p.Price,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		Premium:      p.Premium,
		Features:     p.Features,
		CoverImage:   p.CoverImage,
		Status:       string(p.Status),
		CreatedAt:    p.CreatedAt.Unix(),
	}
}

type SearchClient struct {
	client  *meilisearch.Client
	index   string
	breaker *breaker.CircuitBreaker
}

func NewSearchClient(host, apiKey, index string, cb *breaker.CircuitBreaker) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	if index == "" {
		index = "listings"
	}

	return &SearchClient{
		client:  client,
		index:   index,
		breaker: cb,
	}
}

func (s *SearchClient) guard(fn func() error) error {
	if s.breaker == nil {
		return fn()
	}
	err := s.breaker.Do(fn)
	if errors.Is(err, breaker.ErrOpen) {
		return ErrUnavailable
	}
	return err
}

// Healthy pings the engine.
func (s *SearchClient) Healthy() bool {
	return s.client.IsHealthy()
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	if err != nil && !strings.Contains(err.Error(), "index_already_exists") {
		return err
	}

	idx := s.client.Index(s.index)

	if _, err := idx.UpdateSearchableAttributes(&[]string{
		"title",
		"location",
		"city",
		"description",
		"features",
	}); err != nil {
		return err
	}

	if _, err := idx.UpdateFilterableAttributes(&[]string{
		"status",
		"city",
		"property_type",
		"price",
		"bedrooms",
		"premium",
	}); err != nil {
		return err
	}

	if _, err := idx.UpdateSortableAttributes(&[]string{
		"price",
		"created_at",
		"premium",
	}); err != nil {
		return err
	}

	return nil
}

// Index adds or replaces the listing's document when it is public and
// removes it otherwise, so the index never holds a non-approved listing.
func (s *SearchClient) Index(ctx context.Context, p *models.Property) error {
	if !p.IsPublic() {
		return s.Remove(ctx, p.ID)
	}
	return s.guard(func() error {
		_, err := s.client.Index(s.index).AddDocuments([]Document{NewDocument(p)}, "id")
		return err
	})
}

// Remove deletes a listing's document.
func (s *SearchClient) Remove(ctx context.Context, id string) error {
	return s.guard(func() error {
		_, err := s.client.Index(s.index).DeleteDocument(id)
		return err
	})
}

// Reindex replaces the whole index with the given approved listings.
func (s *SearchClient) Reindex(ctx context.Context, properties []models.Property) error {
	docs := make([]Document, 0, len(properties))
	for i := range properties {
		if properties[i].IsPublic() {
			docs = append(docs, NewDocument(&properties[i]))
		}
	}
	return s.guard(func() error {
		idx := s.client.Index(s.index)
		if _, err := idx.DeleteAllDocuments(); err != nil {
			return err
		}
		if len(docs) == 0 {
			return nil
		}
		_, err := idx.AddDocuments(docs, "id")
		return err
	})
}

// Query is a full-text search request.
type Query struct {
	Text     string
	Type     string
	MinPrice *float64
	MaxPrice *float64
	Premium  *bool
	Limit    int64
	Offset   int64
}

// Result holds matched listing ids in ranking order.
type Result struct {
	IDs       []string
	TotalHits int64
}

// BuildFilter always restricts to approved listings. City is not part of
// the filter; callers match it as a substring on the loaded listings.
func BuildFilter(q Query) string {
	filters := []string{fmt.Sprintf("status = %q", string(models.PropertyStatusApproved))}

	if q.Type != "" {
		filters = append(filters, fmt.Sprintf("property_type = %q", q.Type))
	}
	if q.MinPrice != nil {
		filters = append(filters, fmt.Sprintf("price >= %g", *q.MinPrice))
	}
	if q.MaxPrice != nil {
		filters = append(filters, fmt.Sprintf("price <= %g", *q.MaxPrice))
	}
	if q.Premium != nil {
		filters = append(filters, fmt.Sprintf("premium = %t", *q.Premium))
	}

	return strings.Join(filters, " AND ")
}

// Search runs a full-text query over approved listings.
func (s *SearchClient) Search(ctx context.Context, q Query) (*Result, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}

	var res *meilisearch.SearchResponse
	err := s.guard(func() error {
		var err error
		res, err = s.client.Index(s.index).Search(q.Text, &meilisearch.SearchRequest{
			Limit:                q.Limit,
			Offset:               q.Offset,
			Filter:               BuildFilter(q),
			AttributesToRetrieve: []string{"id", "status"},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		// Convert hit to JSON then to Document
		raw, err := json.Marshal(hit)
		if err != nil {
			continue
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil || doc.ID == "" {
			continue
		}
		ids = append(ids, doc.ID)
	}

	return &Result{IDs: ids, TotalHits: res.EstimatedTotalHits}, nil
}
