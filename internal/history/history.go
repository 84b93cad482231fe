// Package history records the moderation audit trail of listings: every
// create and every meaningful field change becomes a property_changes row.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"listing-portal/internal/logging"
	"listing-portal/internal/models"
)

// Store persists change rows.
type Store interface {
	RecordPropertyChanges(ctx context.Context, changes []models.PropertyChange) error
	ListPropertyChanges(ctx context.Context, propertyID string, limit int) ([]models.PropertyChange, error)
}

// Service handles listing change history
type Service struct {
	store Store
	log   logging.Logger
	now   func() time.Time
}

// NewService creates a new history service
func NewService(store Store, log logging.Logger) *Service {
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// DetectChanges compares two versions of a listing. A nil before means the
// listing was just created.
func DetectChanges(before, after *models.Property, actorID string, at time.Time) []models.PropertyChange {
	if after == nil {
		return nil
	}
	if before == nil {
		return []models.PropertyChange{{
			PropertyID: after.ID,
			ActorID:    actorID,
			ChangeType: models.ChangeTypeNew,
			NewValue:   string(after.Status),
			DetectedAt: at,
		}}
	}

	changes := []models.PropertyChange{}
	add := func(changeType, oldVal, newVal string, magnitude *float64) {
		changes = append(changes, models.PropertyChange{
			PropertyID:      after.ID,
			ActorID:         actorID,
			ChangeType:      changeType,
			OldValue:        oldVal,
			NewValue:        newVal,
			ChangeMagnitude: magnitude,
			DetectedAt:      at,
		})
	}

	if before.Status != after.Status {
		add(models.ChangeTypeStatus, string(before.Status), string(after.Status), nil)
	}

	if before.Price != after.Price {
		magnitude := after.Price - before.Price
		add(models.ChangeTypePrice, formatPrice(before.Price), formatPrice(after.Price), &magnitude)
	}

	if before.Slug != after.Slug {
		add(models.ChangeTypeSlug, before.Slug, after.Slug, nil)
	}

	if before.Title != after.Title {
		add(models.ChangeTypeTitle, before.Title, after.Title, nil)
	}

	if before.Location != after.Location || before.City != after.City {
		add(models.ChangeTypeLocation,
			joinLocation(before.Location, before.City),
			joinLocation(after.Location, after.City), nil)
	}

	if before.Premium != after.Premium {
		add(models.ChangeTypePremium, fmt.Sprintf("%t", before.Premium), fmt.Sprintf("%t", after.Premium), nil)
	}

	if before.CoverImage != after.CoverImage || !stringsEqual(before.Images, after.Images) {
		add(models.ChangeTypeImages,
			fmt.Sprintf("%d images", len(before.Images)),
			fmt.Sprintf("%d images", len(after.Images)), nil)
	}

	return changes
}

// Record detects and saves changes. Failures are logged, never returned:
// history must not fail the write that produced it.
func (s *Service) Record(ctx context.Context, before, after *models.Property, actorID string) []models.PropertyChange {
	changes := DetectChanges(before, after, actorID, s.now())
	if len(changes) == 0 {
		return nil
	}
	if err := s.store.RecordPropertyChanges(ctx, changes); err != nil {
		s.log.Warn(ctx, "history not recorded", "property_id", after.ID, "error", err)
		return nil
	}
	return changes
}

// List returns the newest changes first.
func (s *Service) List(ctx context.Context, propertyID string, limit int) ([]models.PropertyChange, error) {
	return s.store.ListPropertyChanges(ctx, propertyID, limit)
}

func formatPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func joinLocation(location, city string) string {
	if city == "" {
		return location
	}
	return strings.TrimSpace(location + ", " + city)
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
