package models

import "time"

type Property struct {
	ID    string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title string `gorm:"type:varchar(255);not null" json:"title"`
	Slug  string `gorm:"type:varchar(191);not null;uniqueIndex" json:"slug"`

	// Filter attributes
	Price        float64  `gorm:"type:decimal(14,2);not null;index" json:"price"`
	PropertyType string   `gorm:"type:varchar(50);not null;index" json:"property_type"`
	Location     string   `gorm:"type:varchar(255);not null" json:"location"`
	City         string   `gorm:"type:varchar(100);index" json:"city,omitempty"`
	Area         *float64 `gorm:"type:decimal(10,2)" json:"area,omitempty"`
	Bedrooms     *int     `gorm:"type:int" json:"bedrooms,omitempty"`
	Bathrooms    *int     `gorm:"type:int" json:"bathrooms,omitempty"`
	Premium      bool     `gorm:"not null;default:false;index" json:"premium"`

	Features     []string `gorm:"type:text;serializer:json" json:"features"`
	Description  string   `gorm:"type:text" json:"description"`
	Images       []string `gorm:"type:text;serializer:json" json:"images"`
	CoverImage   string   `gorm:"type:text" json:"cover_image,omitempty"`
	OwnerContact string   `gorm:"type:varchar(255);not null" json:"owner_contact"`

	// Moderation
	Status    PropertyStatus `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	CreatedBy string         `gorm:"type:varchar(36);not null;index" json:"created_by"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_properties_created_at,sort:desc" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// PropertyStatus is the moderation state of a listing.
type PropertyStatus string

const (
	PropertyStatusDraft    PropertyStatus = "draft"
	PropertyStatusPending  PropertyStatus = "pending"
	PropertyStatusApproved PropertyStatus = "approved"
	PropertyStatusRejected PropertyStatus = "rejected"
)

// PropertyStatuses lists every moderation state.
var PropertyStatuses = []PropertyStatus{
	PropertyStatusDraft,
	PropertyStatusPending,
	PropertyStatusApproved,
	PropertyStatusRejected,
}

// Valid reports whether s is a known moderation state.
func (s PropertyStatus) Valid() bool {
	for _, known := range PropertyStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// TableName sets the table name explicitly.
func (Property) TableName() string {
	return "properties"
}

// IsPublic reports whether the listing may be shown to anonymous readers.
func (p *Property) IsPublic() bool {
	return p.Status == PropertyStatusApproved
}

// Clone returns a deep copy so callers can mutate without aliasing slices.
func (p *Property) Clone() *Property {
	c := *p
	c.Features = append([]string(nil), p.Features...)
	c.Images = append([]string(nil), p.Images...)
	if p.Area != nil {
		v := *p.Area
		c.Area = &v
	}
	if p.Bedrooms != nil {
		v := *p.Bedrooms
		c.Bedrooms = &v
	}
	if p.Bathrooms != nil {
		v := *p.Bathrooms
		c.Bathrooms = &v
	}
	return &c
}
