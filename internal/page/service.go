// Package page serves static content pages (about, terms, faq) addressed
// by slug.
package page

import (
	"context"
	"errors"
	"strings"
	"time"

	"listing-portal/internal/apperr"
	"listing-portal/internal/auth"
	"listing-portal/internal/database"
	"listing-portal/internal/listing"
	"listing-portal/internal/logging"
	"listing-portal/internal/models"
)

// Store is the persistence the service needs.
type Store interface {
	CreatePage(ctx context.Context, p *models.Page) error
	GetPageByID(ctx context.Context, id string) (*models.Page, error)
	GetPageBySlug(ctx context.Context, slug string) (*models.Page, error)
	ListPages(ctx context.Context) ([]models.Page, error)
	UpsertPage(ctx context.Context, p *models.Page) (*models.Page, error)
	UpdatePage(ctx context.Context, id string, mutate func(p *models.Page) error) (*models.Page, error)
	DeletePage(ctx context.Context, id string) (*models.Page, error)
	CreateDeleteLog(ctx context.Context, entry *models.DeleteLog) error
}

type Service struct {
	store Store
	log   logging.Logger
}

func NewService(store Store, log logging.Logger) *Service {
	return &Service{store: store, log: log}
}

// Input is the body of a create or upsert request.
type Input struct {
	Slug            string `json:"slug" binding:"omitempty,max=191"`
	Title           string `json:"title" binding:"required,max=255"`
	Content         string `json:"content"`
	MetaTitle       string `json:"meta_title" binding:"omitempty,max=255"`
	MetaDescription string `json:"meta_description"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Slug            *string `json:"slug" binding:"omitempty,min=1,max=191"`
	Title           *string `json:"title" binding:"omitempty,min=1,max=255"`
	Content         *string `json:"content"`
	MetaTitle       *string `json:"meta_title" binding:"omitempty,max=255"`
	MetaDescription *string `json:"meta_description"`
}

func (s *Service) Get(ctx context.Context, slug string) (*models.Page, error) {
	p, err := s.store.GetPageBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]models.Page, error) {
	pages, err := s.store.ListPages(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return pages, nil
}

func (s *Service) build(slug string, in Input) (*models.Page, error) {
	slug, err := listing.NormalizeSlug(slug)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.ValidationFields("invalid page", map[string]string{"title": "is required"})
	}
	return &models.Page{
		ID:              models.NewID(),
		Slug:            slug,
		Title:           title,
		Content:         in.Content,
		MetaTitle:       strings.TrimSpace(in.MetaTitle),
		MetaDescription: strings.TrimSpace(in.MetaDescription),
	}, nil
}

// Upsert creates the page at slug or overwrites its content. Repeating the
// same call leaves the same single page.
func (s *Service) Upsert(ctx context.Context, actor auth.Principal, slug string, in Input) (*models.Page, error) {
	p, err := s.build(slug, in)
	if err != nil {
		return nil, err
	}
	stored, err := s.store.UpsertPage(ctx, p)
	if err != nil {
		return nil, translate(err)
	}
	s.log.Info(ctx, "page saved", "slug", stored.Slug, "actor", actor.AccountID)
	return stored, nil
}

// Create stores a new page and fails with a conflict if the slug exists.
func (s *Service) Create(ctx context.Context, actor auth.Principal, in Input) (*models.Page, error) {
	slug := in.Slug
	if strings.TrimSpace(slug) == "" {
		slug = listing.Slugify(in.Title)
	}
	p, err := s.build(slug, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreatePage(ctx, p); err != nil {
		return nil, translate(err)
	}
	s.log.Info(ctx, "page created", "slug", p.Slug, "actor", actor.AccountID)
	return p, nil
}

// Update edits a page by id, re-checking the slug against other pages.
func (s *Service) Update(ctx context.Context, actor auth.Principal, id string, patch Patch) (*models.Page, error) {
	var slug string
	if patch.Slug != nil {
		var err error
		if slug, err = listing.NormalizeSlug(*patch.Slug); err != nil {
			return nil, err
		}
	}
	p, err := s.store.UpdatePage(ctx, id, func(p *models.Page) error {
		if patch.Slug != nil {
			p.Slug = slug
		}
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return apperr.ValidationFields("invalid page", map[string]string{"title": "is required"})
			}
			p.Title = title
		}
		if patch.Content != nil {
			p.Content = *patch.Content
		}
		if patch.MetaTitle != nil {
			p.MetaTitle = strings.TrimSpace(*patch.MetaTitle)
		}
		if patch.MetaDescription != nil {
			p.MetaDescription = strings.TrimSpace(*patch.MetaDescription)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	s.log.Info(ctx, "page updated", "page_id", id, "actor", actor.AccountID)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	deleted, err := s.store.DeletePage(ctx, id)
	if err != nil {
		return translate(err)
	}
	entry := &models.DeleteLog{
		EntityType: models.EntityPage,
		EntityID:   deleted.ID,
		Title:      deleted.Slug,
		ActorID:    actor.AccountID,
		DeletedAt:  time.Now().UTC(),
		Reason:     models.DeleteReasonManual,
	}
	if err := s.store.CreateDeleteLog(ctx, entry); err != nil {
		s.log.Warn(ctx, "delete log not written", "page_id", id, "error", err)
	}
	return nil
}

func translate(err error) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, database.ErrNotFound):
		return apperr.NotFound("page not found")
	case errors.Is(err, database.ErrDuplicate):
		return apperr.Conflict("slug already in use")
	default:
		return apperr.Internal(err)
	}
}
