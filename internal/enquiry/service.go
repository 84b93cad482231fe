// Package enquiry captures leads from the public site and lets admins work
// through them.
package enquiry

import (
	"context"
	"errors"
	"strings"
	"time"

	"listing-portal/internal/apperr"
	"listing-portal/internal/auth"
	"listing-portal/internal/database"
	"listing-portal/internal/logging"
	"listing-portal/internal/models"
)

// Store is the persistence the service needs.
type Store interface {
	CreateEnquiry(ctx context.Context, e *models.Enquiry) error
	GetEnquiry(ctx context.Context, id string) (*models.Enquiry, error)
	ListEnquiries(ctx context.Context, f database.EnquiryFilter) ([]models.Enquiry, error)
	UpdateEnquiry(ctx context.Context, id string, mutate func(e *models.Enquiry) error) (*models.Enquiry, error)
	DeleteEnquiry(ctx context.Context, id string) (*models.Enquiry, error)
	GetPropertyByID(ctx context.Context, id string) (*models.Property, error)
	CreateDeleteLog(ctx context.Context, entry *models.DeleteLog) error
}

type Service struct {
	store Store
	log   logging.Logger
}

func NewService(store Store, log logging.Logger) *Service {
	return &Service{store: store, log: log}
}

// Input is the body of a public enquiry.
type Input struct {
	Name       string  `json:"name" binding:"required,max=120"`
	Email      string  `json:"email" binding:"omitempty,email,max=191"`
	Phone      string  `json:"phone" binding:"required,max=40"`
	Message    string  `json:"message" binding:"required,max=5000"`
	PropertyID *string `json:"property_id" binding:"omitempty"`
}

// CanTransition reports whether an enquiry may move between statuses.
// Closed is terminal except for reopening as new.
func CanTransition(from, to models.EnquiryStatus) bool {
	if !to.Valid() {
		return false
	}
	if from == models.EnquiryStatusClosed {
		return to == models.EnquiryStatusClosed || to == models.EnquiryStatusNew
	}
	return true
}

// Create stores a new enquiry with status new. A property reference must
// point at an existing listing.
func (s *Service) Create(ctx context.Context, in Input) (*models.Enquiry, error) {
	fields := map[string]string{}
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)
	message := strings.TrimSpace(in.Message)
	if name == "" {
		fields["name"] = "is required"
	}
	if phone == "" {
		fields["phone"] = "is required"
	}
	if message == "" {
		fields["message"] = "is required"
	}
	if len(fields) > 0 {
		return nil, apperr.ValidationFields("invalid enquiry", fields)
	}

	var propertyID *string
	if in.PropertyID != nil && strings.TrimSpace(*in.PropertyID) != "" {
		id := strings.TrimSpace(*in.PropertyID)
		if _, err := s.store.GetPropertyByID(ctx, id); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, apperr.ValidationFields("invalid enquiry", map[string]string{"property_id": "does not reference a listing"})
			}
			return nil, apperr.Internal(err)
		}
		propertyID = &id
	}

	e := &models.Enquiry{
		ID:         models.NewID(),
		Name:       name,
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:      phone,
		Message:    message,
		PropertyID: propertyID,
		Status:     models.EnquiryStatusNew,
	}
	if err := s.store.CreateEnquiry(ctx, e); err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.Info(ctx, "enquiry received", "enquiry_id", e.ID)
	return e, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Enquiry, error) {
	e, err := s.store.GetEnquiry(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// List returns enquiries newest first, optionally by status.
func (s *Service) List(ctx context.Context, status models.EnquiryStatus) ([]models.Enquiry, error) {
	if status != "" && !status.Valid() {
		return nil, invalidStatus()
	}
	out, err := s.store.ListEnquiries(ctx, database.EnquiryFilter{Status: status})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// SetStatus advances an enquiry.
func (s *Service) SetStatus(ctx context.Context, actor auth.Principal, id string, status models.EnquiryStatus) (*models.Enquiry, error) {
	if !status.Valid() {
		return nil, invalidStatus()
	}
	e, err := s.store.UpdateEnquiry(ctx, id, func(e *models.Enquiry) error {
		if !CanTransition(e.Status, status) {
			return apperr.ValidationFields("invalid status transition", map[string]string{
				"status": "a closed enquiry can only be reopened as new",
			})
		}
		e.Status = status
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	s.log.Info(ctx, "enquiry status changed", "enquiry_id", id, "status", status, "actor", actor.AccountID)
	return e, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	deleted, err := s.store.DeleteEnquiry(ctx, id)
	if err != nil {
		return translate(err)
	}
	entry := &models.DeleteLog{
		EntityType: models.EntityEnquiry,
		EntityID:   deleted.ID,
		Title:      deleted.Name,
		ActorID:    actor.AccountID,
		DeletedAt:  time.Now().UTC(),
		Reason:     models.DeleteReasonManual,
	}
	if err := s.store.CreateDeleteLog(ctx, entry); err != nil {
		s.log.Warn(ctx, "delete log not written", "enquiry_id", id, "error", err)
	}
	return nil
}

func invalidStatus() error {
	return apperr.ValidationFields("invalid status", map[string]string{
		"status": "must be one of new, reviewed, in_progress, closed",
	})
}

func translate(err error) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, database.ErrNotFound):
		return apperr.NotFound("enquiry not found")
	default:
		return apperr.Internal(err)
	}
}
