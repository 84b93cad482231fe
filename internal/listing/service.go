// Package listing is the moderation lifecycle of property listings:
// draft → pending → approved/rejected, with approved as the only public state.
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"listing-portal/internal/apperr"
	"listing-portal/internal/auth"
	"listing-portal/internal/database"
	"listing-portal/internal/history"
	"listing-portal/internal/logging"
	"listing-portal/internal/models"
	"listing-portal/internal/search"
)

// Store is the persistence the service needs.
type Store interface {
	CreateProperty(ctx context.Context, p *models.Property) error
	GetPropertyByID(ctx context.Context, id string) (*models.Property, error)
	GetPropertyBySlug(ctx context.Context, slug string) (*models.Property, error)
	ListProperties(ctx context.Context, f database.PropertyFilter) (*database.PropertyPage, error)
	UpdateProperty(ctx context.Context, id string, mutate func(p *models.Property) error) (before, after *models.Property, err error)
	DeleteProperty(ctx context.Context, id string) (*models.Property, error)
	CreateDeleteLog(ctx context.Context, entry *models.DeleteLog) error
}

// Indexer mirrors listing writes into the public search index.
type Indexer interface {
	Index(ctx context.Context, p *models.Property) error
	Remove(ctx context.Context, id string) error
}

// Searcher runs full-text queries over approved listings.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Result, error)
}

// ImageRemover deletes stored images of a removed listing.
type ImageRemover interface {
	DeleteURLs(ctx context.Context, urls []string) error
}

type Service struct {
	store    Store
	history  *history.Service
	indexer  Indexer
	searcher Searcher
	images   ImageRemover
	log      logging.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

func WithIndexer(i Indexer) Option           { return func(s *Service) { s.indexer = i } }
func WithSearcher(q Searcher) Option         { return func(s *Service) { s.searcher = q } }
func WithImageRemover(r ImageRemover) Option { return func(s *Service) { s.images = r } }

func NewService(store Store, hist *history.Service, log logging.Logger, opts ...Option) *Service {
	s := &Service{store: store, history: hist, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Input is the body of a create request.
type Input struct {
	Title        string                 `json:"title" binding:"required,max=255"`
	Slug         string                 `json:"slug" binding:"omitempty,max=191"`
	Price        *float64               `json:"price" binding:"required,gte=0"`
	PropertyType string                 `json:"property_type" binding:"required,max=50"`
	Location     string                 `json:"location" binding:"required,max=255"`
	City         string                 `json:"city" binding:"omitempty,max=100"`
	Area         *float64               `json:"area" binding:"omitempty,gte=0"`
	Bedrooms     *int                   `json:"bedrooms" binding:"omitempty,gte=0"`
	Bathrooms    *int                   `json:"bathrooms" binding:"omitempty,gte=0"`
	Features     []string               `json:"features"`
	Description  string                 `json:"description"`
	Images       []string               `json:"images" binding:"omitempty,dive,url"`
	CoverImage   string                 `json:"cover_image" binding:"omitempty,url"`
	Premium      bool                   `json:"premium"`
	OwnerContact string                 `json:"owner_contact" binding:"required,max=255"`
	Status       *models.PropertyStatus `json:"status"`
}

// Patch is the body of an update request. Nil fields are left unchanged.
type Patch struct {
	Title        *string                `json:"title" binding:"omitempty,min=1,max=255"`
	Slug         *string                `json:"slug" binding:"omitempty,min=1,max=191"`
	Price        *float64               `json:"price" binding:"omitempty,gte=0"`
	PropertyType *string                `json:"property_type" binding:"omitempty,min=1,max=50"`
	Location     *string                `json:"location" binding:"omitempty,min=1,max=255"`
	City         *string                `json:"city" binding:"omitempty,max=100"`
	Area         *float64               `json:"area" binding:"omitempty,gte=0"`
	Bedrooms     *int                   `json:"bedrooms" binding:"omitempty,gte=0"`
	Bathrooms    *int                   `json:"bathrooms" binding:"omitempty,gte=0"`
	Features     *[]string              `json:"features"`
	Description  *string                `json:"description"`
	Images       *[]string              `json:"images" binding:"omitempty,dive,url"`
	CoverImage   *string                `json:"cover_image" binding:"omitempty,url"`
	Premium      *bool                  `json:"premium"`
	OwnerContact *string                `json:"owner_contact" binding:"omitempty,min=1,max=255"`
	Status       *models.PropertyStatus `json:"status"`
}

// Filter is a listing query as seen by callers.
type Filter struct {
	Status   models.PropertyStatus
	City     string
	Type     string
	MinPrice *float64
	MaxPrice *float64
	Premium  *bool
	Query    string
	Limit    int
	Offset   int
}

func (f Filter) toStore() database.PropertyFilter {
	return database.PropertyFilter{
		City:     strings.TrimSpace(f.City),
		Type:     strings.TrimSpace(f.Type),
		MinPrice: f.MinPrice,
		MaxPrice: f.MaxPrice,
		Premium:  f.Premium,
		Query:    f.Query,
		Limit:    f.Limit,
		Offset:   f.Offset,
	}
}

// CanTransition reports whether a caller with the given role may move a
// listing from one status to another. Admins may set any state; everyone
// else may only submit a draft or rejected listing for review.
func CanTransition(isAdmin bool, from, to models.PropertyStatus) bool {
	if !to.Valid() {
		return false
	}
	if isAdmin || from == to {
		return true
	}
	return to == models.PropertyStatusPending &&
		(from == models.PropertyStatusDraft || from == models.PropertyStatusRejected)
}

// Create stores a new listing owned by the caller. Non-admin callers always
// get a draft whatever status they sent.
func (s *Service) Create(ctx context.Context, actor auth.Principal, in Input) (*models.Property, error) {
	status := models.PropertyStatusDraft
	if actor.IsAdmin() && in.Status != nil {
		if !in.Status.Valid() {
			return nil, invalidStatus()
		}
		status = *in.Status
	}

	slug := in.Slug
	if strings.TrimSpace(slug) == "" {
		slug = Slugify(in.Title)
	}
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return nil, err
	}
	if in.Price == nil || *in.Price < 0 {
		return nil, apperr.ValidationFields("invalid listing", map[string]string{"price": "must be zero or more"})
	}

	p := &models.Property{
		ID:           models.NewID(),
		Title:        strings.TrimSpace(in.Title),
		Slug:         slug,
		Price:        *in.Price,
		PropertyType: strings.TrimSpace(in.PropertyType),
		Location:     strings.TrimSpace(in.Location),
		City:         strings.TrimSpace(in.City),
		Area:         in.Area,
		Bedrooms:     in.Bedrooms,
		Bathrooms:    in.Bathrooms,
		Features:     nonNil(in.Features),
		Description:  in.Description,
		Images:       nonNil(in.Images),
		CoverImage:   in.CoverImage,
		Premium:      in.Premium,
		OwnerContact: strings.TrimSpace(in.OwnerContact),
		Status:       status,
		CreatedBy:    actor.AccountID,
	}
	if p.CoverImage == "" && len(p.Images) > 0 {
		p.CoverImage = p.Images[0]
	}

	if err := s.store.CreateProperty(ctx, p); err != nil {
		return nil, translate(err)
	}

	s.history.Record(ctx, nil, p, actor.AccountID)
	s.syncIndex(ctx, p)
	s.log.Info(ctx, "listing created", "property_id", p.ID, "status", p.Status, "actor", actor.AccountID)
	return p, nil
}

// GetPublic returns an approved listing by slug. Listings in any other state
// are reported as missing.
func (s *Service) GetPublic(ctx context.Context, slug string) (*models.Property, error) {
	p, err := s.store.GetPropertyBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, translate(err)
	}
	if !p.IsPublic() {
		return nil, apperr.NotFound("listing not found")
	}
	return p, nil
}

// Get returns any listing by id (admin view).
func (s *Service) Get(ctx context.Context, id string) (*models.Property, error) {
	p, err := s.store.GetPropertyByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// ListPublic returns approved listings only; any status in f is ignored.
func (s *Service) ListPublic(ctx context.Context, f Filter) (*database.PropertyPage, error) {
	sf := f.toStore()
	sf.Statuses = []models.PropertyStatus{models.PropertyStatusApproved}
	return s.list(ctx, sf)
}

// ListAll returns listings in every state, optionally narrowed to one.
func (s *Service) ListAll(ctx context.Context, f Filter) (*database.PropertyPage, error) {
	sf := f.toStore()
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, invalidStatus()
		}
		sf.Statuses = []models.PropertyStatus{f.Status}
	}
	return s.list(ctx, sf)
}

// ListMine returns the caller's own listings in every state.
func (s *Service) ListMine(ctx context.Context, actor auth.Principal, f Filter) (*database.PropertyPage, error) {
	sf := f.toStore()
	sf.CreatedBy = actor.AccountID
	if f.Status != "" && f.Status.Valid() {
		sf.Statuses = []models.PropertyStatus{f.Status}
	}
	return s.list(ctx, sf)
}

func (s *Service) list(ctx context.Context, f database.PropertyFilter) (*database.PropertyPage, error) {
	page, err := s.store.ListProperties(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return page, nil
}

// Search runs a full-text query. Results always come from the store so only
// listings that are approved right now are returned. Without a search engine,
// or while it is failing, the store's substring match is used.
func (s *Service) Search(ctx context.Context, f Filter) (*database.PropertyPage, error) {
	if strings.TrimSpace(f.Query) == "" {
		return s.ListPublic(ctx, f)
	}
	if s.searcher == nil {
		return s.ListPublic(ctx, f)
	}

	limit, offset := f.Limit, f.Offset
	if limit <= 0 {
		limit = 20
	}
	res, err := s.searcher.Search(ctx, search.Query{
		Text:     f.Query,
		Type:     f.Type,
		MinPrice: f.MinPrice,
		MaxPrice: f.MaxPrice,
		Premium:  f.Premium,
		Limit:    int64(limit),
		Offset:   int64(offset),
	})
	if err != nil {
		s.log.Warn(ctx, "search engine failed, using store fallback", "error", err)
		return s.ListPublic(ctx, f)
	}

	// City is matched as a substring here, next to the approval re-check.
	// Hits dropped on this page come off the engine's estimated total.
	city := strings.ToLower(strings.TrimSpace(f.City))
	items := make([]models.Property, 0, len(res.IDs))
	dropped := 0
	for _, id := range res.IDs {
		p, err := s.store.GetPropertyByID(ctx, id)
		if err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				return nil, apperr.Internal(err)
			}
			dropped++
			continue
		}
		if !p.IsPublic() || (city != "" && !strings.Contains(strings.ToLower(p.City), city)) {
			dropped++
			continue
		}
		items = append(items, *p)
	}
	total := res.TotalHits - int64(dropped)
	if floor := int64(offset + len(items)); total < floor {
		total = floor
	}
	return &database.PropertyPage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// Update applies an admin edit. The slug is re-checked against every other
// listing; on collision nothing is written.
func (s *Service) Update(ctx context.Context, actor auth.Principal, id string, patch Patch) (*models.Property, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("admin role required")
	}
	var slug string
	if patch.Slug != nil {
		var err error
		if slug, err = NormalizeSlug(*patch.Slug); err != nil {
			return nil, err
		}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, invalidStatus()
	}

	before, after, err := s.store.UpdateProperty(ctx, id, func(p *models.Property) error {
		applyPatch(p, patch)
		if patch.Slug != nil {
			p.Slug = slug
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	s.afterWrite(ctx, before, after, actor)
	return after, nil
}

// SetStatus moves a listing to a new moderation state.
func (s *Service) SetStatus(ctx context.Context, actor auth.Principal, id string, status models.PropertyStatus) (*models.Property, error) {
	if !status.Valid() {
		return nil, invalidStatus()
	}
	before, after, err := s.store.UpdateProperty(ctx, id, func(p *models.Property) error {
		if !actor.IsAdmin() && p.CreatedBy != actor.AccountID {
			return apperr.Forbidden("not the owner of this listing")
		}
		if !CanTransition(actor.IsAdmin(), p.Status, status) {
			return apperr.Forbidden(fmt.Sprintf("cannot move listing from %s to %s", p.Status, status))
		}
		p.Status = status
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	s.afterWrite(ctx, before, after, actor)
	return after, nil
}

// Submit sends the caller's draft or rejected listing for review.
func (s *Service) Submit(ctx context.Context, actor auth.Principal, id string) (*models.Property, error) {
	return s.SetStatus(ctx, actor, id, models.PropertyStatusPending)
}

// Delete removes a listing, writes a delete log, drops it from the search
// index and deletes its stored images.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("admin role required")
	}
	deleted, err := s.store.DeleteProperty(ctx, id)
	if err != nil {
		return translate(err)
	}

	entry := &models.DeleteLog{
		EntityType: models.EntityProperty,
		EntityID:   deleted.ID,
		Title:      deleted.Title,
		ActorID:    actor.AccountID,
		DeletedAt:  time.Now().UTC(),
		Reason:     models.DeleteReasonManual,
	}
	if err := s.store.CreateDeleteLog(ctx, entry); err != nil {
		s.log.Warn(ctx, "delete log not written", "property_id", id, "error", err)
	}

	if s.indexer != nil {
		if err := s.indexer.Remove(ctx, id); err != nil {
			s.log.Warn(ctx, "search removal failed", "property_id", id, "error", err)
		}
	}
	if s.images != nil {
		urls := append([]string{}, deleted.Images...)
		if deleted.CoverImage != "" {
			urls = append(urls, deleted.CoverImage)
		}
		if err := s.images.DeleteURLs(ctx, urls); err != nil {
			s.log.Warn(ctx, "image cleanup failed", "property_id", id, "error", err)
		}
	}

	s.log.Info(ctx, "listing deleted", "property_id", id, "actor", actor.AccountID)
	return nil
}

// History returns the change trail of a listing, newest first.
func (s *Service) History(ctx context.Context, id string, limit int) ([]models.PropertyChange, error) {
	if _, err := s.store.GetPropertyByID(ctx, id); err != nil {
		return nil, translate(err)
	}
	changes, err := s.history.List(ctx, id, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return changes, nil
}

func (s *Service) afterWrite(ctx context.Context, before, after *models.Property, actor auth.Principal) {
	changes := s.history.Record(ctx, before, after, actor.AccountID)
	s.syncIndex(ctx, after)
	if before.Status != after.Status {
		s.log.Info(ctx, "listing status changed",
			"property_id", after.ID, "from", before.Status, "to", after.Status, "actor", actor.AccountID)
	} else if len(changes) > 0 {
		s.log.Info(ctx, "listing updated", "property_id", after.ID, "changes", len(changes), "actor", actor.AccountID)
	}
}

func (s *Service) syncIndex(ctx context.Context, p *models.Property) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.Index(ctx, p); err != nil {
		s.log.Warn(ctx, "search sync failed", "property_id", p.ID, "error", err)
	}
}

func applyPatch(p *models.Property, patch Patch) {
	if patch.Title != nil {
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.PropertyType != nil {
		p.PropertyType = strings.TrimSpace(*patch.PropertyType)
	}
	if patch.Location != nil {
		p.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.City != nil {
		p.City = strings.TrimSpace(*patch.City)
	}
	if patch.Area != nil {
		p.Area = patch.Area
	}
	if patch.Bedrooms != nil {
		p.Bedrooms = patch.Bedrooms
	}
	if patch.Bathrooms != nil {
		p.Bathrooms = patch.Bathrooms
	}
	if patch.Features != nil {
		p.Features = nonNil(*patch.Features)
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Images != nil {
		p.Images = nonNil(*patch.Images)
	}
	if patch.CoverImage != nil {
		p.CoverImage = *patch.CoverImage
	}
	if patch.Premium != nil {
		p.Premium = *patch.Premium
	}
	if patch.OwnerContact != nil {
		p.OwnerContact = strings.TrimSpace(*patch.OwnerContact)
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func invalidStatus() error {
	return apperr.ValidationFields("invalid status", map[string]string{
		"status": "must be one of draft, pending, approved, rejected",
	})
}

func translate(err error) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, database.ErrNotFound):
		return apperr.NotFound("listing not found")
	case errors.Is(err, database.ErrDuplicate):
		return apperr.Conflict("slug already in use")
	default:
		return apperr.Internal(err)
	}
}
