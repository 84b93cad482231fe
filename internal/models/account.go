package models

import "time"

// Account is a registered user or administrator.
// PasswordHash is never serialized.
type Account struct {
	ID           string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string        `gorm:"type:varchar(120);not null" json:"name"`
	Email        string        `gorm:"type:varchar(191);not null;uniqueIndex" json:"email"`
	Phone        string        `gorm:"type:varchar(40)" json:"phone,omitempty"`
	PasswordHash string        `gorm:"type:varchar(100);not null" json:"-"`
	Role         Role          `gorm:"type:varchar(16);not null;default:'user';index" json:"role"`
	Status       AccountStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	CreatedAt    time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "active"
	AccountStatusBlocked AccountStatus = "blocked"
)

// Valid reports whether s is a known account status.
func (s AccountStatus) Valid() bool {
	return s == AccountStatusActive || s == AccountStatusBlocked
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a *Account) IsBlocked() bool {
	return a.Status == AccountStatusBlocked
}
