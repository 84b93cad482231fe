package models

import "time"

// PropertyChange records one detected difference between two versions of a
// listing. Together the rows form the moderation audit trail.
type PropertyChange struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID      string    `gorm:"type:varchar(36);not null;index" json:"property_id"`
	ActorID         string    `gorm:"type:varchar(36)" json:"actor_id,omitempty"`
	ChangeType      string    `gorm:"type:varchar(50);not null" json:"change_type"` // status_changed, price_changed, etc.
	OldValue        string    `gorm:"type:text" json:"old_value,omitempty"`
	NewValue        string    `gorm:"type:text" json:"new_value,omitempty"`
	ChangeMagnitude *float64  `gorm:"type:decimal(14,2)" json:"change_magnitude,omitempty"` // For numerical changes
	DetectedAt      time.Time `gorm:"not null;index" json:"detected_at"`
}

// TableName specifies the table name
func (PropertyChange) TableName() string {
	return "property_changes"
}

// ChangeType constants
const (
	ChangeTypeNew      = "new_property"
	ChangeTypeStatus   = "status_changed"
	ChangeTypePrice    = "price_changed"
	ChangeTypeSlug     = "slug_changed"
	ChangeTypeTitle    = "title_changed"
	ChangeTypeImages   = "images_changed"
	ChangeTypePremium  = "premium_changed"
	ChangeTypeLocation = "location_changed"
)
