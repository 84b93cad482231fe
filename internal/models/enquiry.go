package models

import "time"

// Enquiry is a lead submitted through the public contact forms.
type Enquiry struct {
	ID         string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name       string        `gorm:"type:varchar(120);not null" json:"name"`
	Email      string        `gorm:"type:varchar(191)" json:"email,omitempty"`
	Phone      string        `gorm:"type:varchar(40);not null" json:"phone"`
	Message    string        `gorm:"type:text;not null" json:"message"`
	PropertyID *string       `gorm:"type:varchar(36);index" json:"property_id,omitempty"`
	Status     EnquiryStatus `gorm:"type:varchar(20);not null;default:'new';index" json:"status"`
	CreatedAt  time.Time     `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type EnquiryStatus string

const (
	EnquiryStatusNew        EnquiryStatus = "new"
	EnquiryStatusReviewed   EnquiryStatus = "reviewed"
	EnquiryStatusInProgress EnquiryStatus = "in_progress"
	EnquiryStatusClosed     EnquiryStatus = "closed"
)

var EnquiryStatuses = []EnquiryStatus{
	EnquiryStatusNew,
	EnquiryStatusReviewed,
	EnquiryStatusInProgress,
	EnquiryStatusClosed,
}

func (s EnquiryStatus) Valid() bool {
	for _, known := range EnquiryStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (Enquiry) TableName() string {
	return "enquiries"
}
