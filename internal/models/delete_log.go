package models

import "time"

// DeleteLog represents a record of a physically deleted entity
type DeleteLog struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType string    `gorm:"type:varchar(20);not null;index" json:"entity_type"`
	EntityID   string    `gorm:"type:varchar(36);not null;index" json:"entity_id"`
	Title      string    `gorm:"type:text" json:"title"`
	ActorID    string    `gorm:"type:varchar(36)" json:"actor_id,omitempty"`
	DeletedAt  time.Time `gorm:"not null;index" json:"deleted_at"`
	Reason     string    `gorm:"type:varchar(50);not null" json:"reason"`
}

// TableName specifies the table name
func (DeleteLog) TableName() string {
	return "delete_logs"
}

// Entity types
const (
	EntityProperty = "property"
	EntityEnquiry  = "enquiry"
	EntityAccount  = "account"
	EntityPage     = "page"
)

// DeleteReason constants
const (
	DeleteReasonManual  = "manual_deletion"
	DeleteReasonExpired = "retention_expired"
)
