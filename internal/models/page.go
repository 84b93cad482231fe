package models

import "time"

// Page is a static content page addressed by slug.
type Page struct {
	ID              string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Slug            string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"slug"`
	Title           string    `gorm:"type:varchar(255);not null" json:"title"`
	Content         string    `gorm:"type:text" json:"content"`
	MetaTitle       string    `gorm:"type:varchar(255)" json:"meta_title,omitempty"`
	MetaDescription string    `gorm:"type:text" json:"meta_description,omitempty"`
	CreatedAt       time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;autoUpdateTime;index" json:"updated_at"`
}

func (Page) TableName() string {
	return "pages"
}
